// Package report keeps the set of keys currently reported to the host and
// transmits a full report after every change.
package report

import (
	"context"
	"log/slog"

	"github.com/Alia5/matrixkb/hid"
	"github.com/Alia5/matrixkb/internal/log"
)

// Transport delivers reports to the host.
type Transport interface {
	Send(r hid.Report) error
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(r hid.Report) error

func (f TransportFunc) Send(r hid.Report) error { return f(r) }

// Queue holds up to six keycodes, most recently pressed first, plus the
// modifier mask. It is not safe for concurrent use; the scan handler owns it.
type Queue struct {
	keys      [hid.ReportKeys]uint8
	mods      uint8
	transport Transport
	logger    *slog.Logger
}

// New returns an empty queue sending through t.
func New(t Transport, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{transport: t, logger: logger}
}

// Press puts code at the head. The oldest of six queued keys falls off; a
// code already queued moves to the head instead of appearing twice.
func (q *Queue) Press(code uint8) {
	i := q.index(code)
	if i < 0 {
		i = hid.ReportKeys - 1
	}
	copy(q.keys[1:i+1], q.keys[:i])
	q.keys[0] = code
	q.send()
}

// Release removes the first occurrence of code and closes the gap. Releasing
// a code that is not queued leaves the queue as it is.
func (q *Queue) Release(code uint8) {
	if i := q.index(code); i >= 0 {
		copy(q.keys[i:], q.keys[i+1:])
		q.keys[hid.ReportKeys-1] = 0
	}
	q.send()
}

// ModifierPress sets the bits of mask.
func (q *Queue) ModifierPress(mask uint8) {
	q.mods |= mask
	q.send()
}

// ModifierRelease clears the bits of mask.
func (q *Queue) ModifierRelease(mask uint8) {
	q.mods &^= mask
	q.send()
}

// Clear empties keys and modifiers and reports the all-up state.
func (q *Queue) Clear() {
	q.keys = [hid.ReportKeys]uint8{}
	q.mods = 0
	q.send()
}

// Report returns the current report.
func (q *Queue) Report() hid.Report {
	return hid.Report{Modifiers: q.mods, Keys: q.keys}
}

func (q *Queue) index(code uint8) int {
	for i, k := range q.keys {
		if k == code {
			return i
		}
	}
	return -1
}

func (q *Queue) send() {
	r := q.Report()
	q.logger.Log(context.Background(), log.LevelTrace, "report", "mods", hid.ModifiersString(r.Modifiers), "keys", r.Pressed())
	if q.transport == nil {
		return
	}
	if err := q.transport.Send(r); err != nil {
		q.logger.Warn("failed to send report", "error", err)
	}
}
