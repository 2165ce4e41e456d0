package viiper

import (
	"bufio"
	"context"
	"encoding"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

var ErrStreamClosed = errors.New("viiper: stream closed")

// Stream is the bidirectional byte channel of one device.
type Stream struct {
	conn   net.Conn
	BusID  uint32
	DevID  string
	closed atomic.Bool

	readMu     sync.Mutex
	readCancel context.CancelFunc
}

// OpenStream connects to the stream channel of an existing device.
func (c *Client) OpenStream(ctx context.Context, busID uint32, devID string) (*Stream, error) {
	t := c.transport
	if t.mock != nil {
		return nil, errors.New("stream connections not supported with mock transport")
	}
	conn, err := t.dial(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := fmt.Fprintf(conn, "bus/%d/%s\x00", busID, devID); err != nil {
		conn.Close()
		return nil, fmt.Errorf("write stream path: %w", err)
	}
	// deadlines from dial only apply to the handshake
	_ = conn.SetDeadline(time.Time{})
	return &Stream{conn: conn, BusID: busID, DevID: devID}, nil
}

// Write sends raw device input.
func (s *Stream) Write(p []byte) (int, error) {
	if s.closed.Load() {
		return 0, ErrStreamClosed
	}
	return s.conn.Write(p)
}

// WriteBinary marshals v and sends it as one message.
func (s *Stream) WriteBinary(v encoding.BinaryMarshaler) error {
	data, err := v.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	_, err = s.Write(data)
	return err
}

// StartReading decodes messages from the device in a goroutine and hands
// each to fn until ctx is done, the stream closes or decode fails. The
// returned channel yields the terminating error once.
func (s *Stream) StartReading(ctx context.Context, decode func(r *bufio.Reader) ([]byte, error), fn func([]byte)) <-chan error {
	s.readMu.Lock()
	defer s.readMu.Unlock()
	errCh := make(chan error, 1)
	if s.readCancel != nil {
		errCh <- errors.New("viiper: stream already being read")
		close(errCh)
		return errCh
	}
	readCtx, cancel := context.WithCancel(ctx)
	s.readCancel = cancel

	go func() {
		defer close(errCh)
		defer cancel()
		r := bufio.NewReader(s.conn)
		for {
			msg, err := decode(r)
			if err != nil {
				if s.closed.Load() || readCtx.Err() != nil {
					err = io.EOF
				}
				errCh <- err
				return
			}
			fn(msg)
		}
	}()
	go func() {
		<-readCtx.Done()
		s.Close()
	}()
	return errCh
}

// Close closes the connection and stops reading.
func (s *Stream) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.readMu.Lock()
	if s.readCancel != nil {
		s.readCancel()
	}
	s.readMu.Unlock()
	return s.conn.Close()
}
