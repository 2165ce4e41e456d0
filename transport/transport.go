// Package transport delivers host reports produced by the report queue.
package transport

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Alia5/matrixkb/hid"
	"github.com/Alia5/matrixkb/internal/log"
	"github.com/Alia5/matrixkb/report"
)

// Log writes one structured log line per report.
type Log struct {
	logger *slog.Logger
	level  slog.Level
}

func NewLog(logger *slog.Logger, level slog.Level) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger, level: level}
}

func (l *Log) Send(r hid.Report) error {
	l.logger.Log(context.Background(), l.level, "report",
		"mods", hid.ModifiersString(r.Modifiers),
		"keys", keyNames(r),
	)
	return nil
}

func keyNames(r hid.Report) []string {
	keys := r.Pressed()
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = hid.CodeName(k)
	}
	return out
}

// Raw hex-dumps the 8-byte boot report of every transmission.
type Raw struct{ raw log.RawLogger }

func NewRaw(raw log.RawLogger) Raw { return Raw{raw: raw} }

func (t Raw) Send(r hid.Report) error {
	b, err := r.MarshalBinary()
	if err != nil {
		return err
	}
	t.raw.Log(false, b)
	return nil
}

// Multi sends every report to each transport in order. All transports are
// tried; their errors are joined.
type Multi []report.Transport

func (m Multi) Send(r hid.Report) error {
	var errs []error
	for _, t := range m {
		if err := t.Send(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
