package viiper

import (
	"bufio"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	handshakeMagic   = "eVI1\x00"
	handshakeOK      = "OK\x00"
	nonceSize        = 32
	pbkdf2Iterations = 100000
	pbkdf2Salt       = "VIIPER-Key-v1"
	authContext      = "VIIPER-Auth-v1"
	sessionContext   = "VIIPER-Session-v1"
)

var ErrUnauthorized = errors.New("viiper: invalid password")

// DeriveKey stretches a password into the 32-byte pre-shared key.
func DeriveKey(password string) ([]byte, error) {
	if password == "" {
		return nil, errors.New("viiper: password cannot be empty")
	}
	return pbkdf2.Key([]byte(password), []byte(pbkdf2Salt), pbkdf2Iterations, 32, sha256.New), nil
}

// DeriveSessionKey mixes the key with both handshake nonces.
func DeriveSessionKey(key, serverNonce, clientNonce []byte) []byte {
	h := sha256.New()
	h.Write(key)
	h.Write(serverNonce)
	h.Write(clientNonce)
	h.Write([]byte(sessionContext))
	return h.Sum(nil)
}

// clientAuth is the HMAC proving knowledge of key for clientNonce.
func clientAuth(key, clientNonce []byte) []byte {
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write([]byte(authContext))
	_, _ = mac.Write(clientNonce)
	return mac.Sum(nil)
}

// handshake runs the client side of the auth exchange:
// send magic + nonce + hmac, expect "OK\0" + server nonce.
func handshake(r *bufio.Reader, w io.Writer, key []byte) (clientNonce, serverNonce []byte, err error) {
	clientNonce = make([]byte, nonceSize)
	if _, err := rand.Read(clientNonce); err != nil {
		return nil, nil, fmt.Errorf("generate client nonce: %w", err)
	}

	msg := append([]byte(handshakeMagic), clientNonce...)
	msg = append(msg, clientAuth(key, clientNonce)...)
	if _, err := w.Write(msg); err != nil {
		return nil, nil, fmt.Errorf("write handshake: %w", err)
	}

	prefix := make([]byte, len(handshakeOK))
	if _, err := io.ReadFull(r, prefix); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, ErrUnauthorized
		}
		return nil, nil, fmt.Errorf("read handshake response: %w", err)
	}
	if string(prefix) != handshakeOK {
		rest, _ := io.ReadAll(r)
		line := strings.TrimSuffix(string(append(prefix, rest...)), "\n")
		var apiErr APIError
		if err := json.Unmarshal([]byte(line), &apiErr); err == nil && (apiErr.Status != 0 || apiErr.Title != "") {
			return nil, nil, &apiErr
		}
		return nil, nil, fmt.Errorf("invalid handshake response from server: %s", line)
	}

	serverNonce = make([]byte, nonceSize)
	if _, err := io.ReadFull(r, serverNonce); err != nil {
		return nil, nil, fmt.Errorf("read server nonce: %w", err)
	}
	return clientNonce, serverNonce, nil
}
