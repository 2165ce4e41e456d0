// Package viiper is a small client for the VIIPER management API: it
// creates a virtual USB bus and keyboard device on a VIIPER server and
// streams keyboard input to it.
package viiper

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"
)

// Config controls dialing, timeouts and authentication.
type Config struct {
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Password     string
}

func defaultConfig() Config {
	return Config{
		DialTimeout:  3 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

// Transport implements request framing: `<path>[ <payload>]\0` out, a
// single JSON line back, then the server closes the connection.
type Transport struct {
	addr   string
	cfg    Config
	logger *slog.Logger
	mock   func(path string, payload []byte) (string, error)
}

// NewTransport returns a TCP transport. A nil cfg uses the defaults.
func NewTransport(addr string, cfg *Config, logger *slog.Logger) *Transport {
	c := defaultConfig()
	if cfg != nil {
		c = *cfg
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{addr: addr, cfg: c, logger: logger}
}

// NewMockTransport answers requests from responder without networking.
// Streams cannot be opened on it.
func NewMockTransport(responder func(path string, payload []byte) (string, error)) *Transport {
	return &Transport{addr: "mock", cfg: defaultConfig(), logger: slog.Default(), mock: responder}
}

// Do sends one request and returns the response without its trailing
// newline. payload may be nil, []byte, string or any JSON-marshalable value.
func (t *Transport) Do(ctx context.Context, path string, payload any, params map[string]string) (string, error) {
	full := fillPath(path, params)
	body, err := payloadBytes(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	if t.mock != nil {
		return t.mock(full, body)
	}

	conn, err := t.dial(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	line := []byte(full)
	if len(body) > 0 {
		line = append(append(line, ' '), body...)
	}
	if _, err := conn.Write(append(line, 0)); err != nil {
		return "", fmt.Errorf("write: %w", err)
	}
	if t.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(t.cfg.ReadTimeout))
	}
	resp, err := io.ReadAll(conn)
	if err != nil && len(resp) == 0 {
		return "", fmt.Errorf("read: %w", err)
	}
	t.logger.Debug("viiper request", "path", full, "response", strings.TrimSpace(string(resp)))
	return strings.TrimSuffix(string(resp), "\n"), nil
}

// dial connects and, when a password is configured, authenticates and
// wraps the connection in the session cipher.
func (t *Transport) dial(ctx context.Context) (net.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	d := &net.Dialer{Timeout: t.cfg.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		if err := tcp.SetNoDelay(true); err != nil {
			t.logger.Warn("failed to set TCP_NODELAY", "error", err)
		}
	}
	if t.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
	}
	if t.cfg.Password == "" {
		return conn, nil
	}

	key, err := DeriveKey(t.cfg.Password)
	if err != nil {
		conn.Close()
		return nil, err
	}
	r := bufio.NewReader(conn)
	clientNonce, serverNonce, err := handshake(r, conn, key)
	if err != nil {
		conn.Close()
		return nil, err
	}
	secure, err := wrapConn(conn, r, DeriveSessionKey(key, serverNonce, clientNonce))
	if err != nil {
		conn.Close()
		return nil, err
	}
	return secure, nil
}

func fillPath(pattern string, params map[string]string) string {
	out := pattern
	for k, v := range params {
		out = strings.ReplaceAll(out, "{"+k+"}", url.PathEscape(v))
	}
	return strings.ToLower(out)
}

func payloadBytes(v any) ([]byte, error) {
	switch p := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return p, nil
	case string:
		return []byte(p), nil
	default:
		return json.Marshal(v)
	}
}
