// Package terminal lets a person type on a simulated keyboard: bytes read
// from a raw-mode terminal become key taps on a matrix.SimMatrix.
package terminal

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/Alia5/matrixkb/hid"
	"github.com/Alia5/matrixkb/internal/log"
	"github.com/Alia5/matrixkb/layout"
	"github.com/Alia5/matrixkb/matrix"
	"golang.org/x/term"
)

const (
	ctrlC = 0x03
	ctrlD = 0x04
	ctrlG = 0x07 // taps the magic key
	del   = 0x7f
)

// Sample counts of one tap. Every phase is longer than the debounce window
// so each edge registers.
const (
	lead = matrix.SettleSamples + 1
	held = matrix.SettleSamples + 3
	tail = matrix.SettleSamples + 1
)

type Terminal struct {
	sim      *matrix.SimMatrix
	layout   *layout.Layout
	logger   *slog.Logger
	magic    int
	shift    int
	hasShift bool
}

func New(sim *matrix.SimMatrix, l *layout.Layout, logger *slog.Logger) *Terminal {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Terminal{sim: sim, layout: l, logger: logger}
	t.magic, _ = l.Find(l.Commands.Magic)
	t.shift, t.hasShift = l.Find(layout.Mod(hid.ModLeftShift))
	if !t.hasShift {
		t.shift, t.hasShift = l.Find(layout.Mod(hid.ModRightShift))
	}
	return t
}

// Handle maps one input byte onto the matrix. It reports whether the byte
// asks to quit.
func (t *Terminal) Handle(b byte) (quit bool) {
	var code uint8
	var ok bool
	switch b {
	case ctrlC, ctrlD:
		return true
	case ctrlG:
		t.Tap(t.magic, false)
		return false
	case del, '\b':
		code, ok = hid.KeyBackspace, true
	default:
		code, ok = hid.CharToKey[b]
	}
	if !ok {
		t.logger.Debug("no key for input", "byte", b)
		return false
	}
	k, ok := t.layout.Find(layout.Key(code))
	if !ok {
		t.logger.Debug("key not on layout", "key", hid.CodeName(code), "layout", t.layout.Name)
		return false
	}
	t.Tap(k, hid.ShiftChars[b])
	return false
}

// Tap queues a full press and release of key k, optionally wrapped in a
// shift press. Taps are queued behind any that are still pending so they
// register in order.
func (t *Terminal) Tap(k int, shift bool) {
	shift = shift && t.hasShift
	start := 0
	for i := 0; i < t.layout.Len(); i++ {
		start = max(start, t.sim.Pending(i))
	}
	offset := 0
	if shift {
		t.feed(t.shift, start, lead+held+tail)
		offset = lead
	}
	t.feed(k, start+offset, held)
}

// feed queues zeros until sample index at, then n ones, then tail zeros.
func (t *Terminal) feed(k, at, n int) {
	pad := max(0, at-t.sim.Pending(k))
	samples := make([]bool, 0, pad+n+tail)
	samples = append(samples, make([]bool, pad)...)
	for i := 0; i < n; i++ {
		samples = append(samples, true)
	}
	samples = append(samples, make([]bool, tail)...)
	t.sim.Feed(k, samples...)
}

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool { return term.IsTerminal(int(f.Fd())) }

// Run reads in until ctx is done, in is exhausted or a quit byte arrives.
// A terminal is switched to raw mode for the duration and log output is
// adjusted to match.
func (t *Terminal) Run(ctx context.Context, in *os.File) error {
	if IsTerminal(in) {
		fd := int(in.Fd())
		state, err := term.MakeRaw(fd)
		if err != nil {
			return err
		}
		defer func() { _ = term.Restore(fd, state) }()
		log.SetRawConsole(true)
		defer log.SetRawConsole(false)
	}

	input := make(chan byte, 64)
	var readErr error
	go func() {
		defer close(input)
		buf := make([]byte, 64)
		for {
			n, err := in.Read(buf)
			for _, b := range buf[:n] {
				input <- b
			}
			if err != nil {
				readErr = err
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case b, ok := <-input:
			if !ok {
				if readErr == io.EOF {
					return nil
				}
				return readErr
			}
			if t.Handle(b) {
				return nil
			}
		}
	}
}
