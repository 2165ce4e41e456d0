package terminal_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Alia5/matrixkb/firmware"
	"github.com/Alia5/matrixkb/hid"
	"github.com/Alia5/matrixkb/internal/log"
	"github.com/Alia5/matrixkb/internal/terminal"
	"github.com/Alia5/matrixkb/layout"
	"github.com/Alia5/matrixkb/matrix"
	"github.com/Alia5/matrixkb/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rig struct {
	term    *terminal.Terminal
	sim     *matrix.SimMatrix
	dev     *firmware.Device
	reports []hid.Report
}

func newRig(t *testing.T) *rig {
	t.Helper()
	l, err := layout.Model("demo")
	require.NoError(t, err)
	r := &rig{sim: matrix.NewSimMatrix(l.Rows, l.Cols)}
	r.dev, err = firmware.New(firmware.Config{
		Layout: l,
		Matrix: r.sim,
		Transport: report.TransportFunc(func(rep hid.Report) error {
			r.reports = append(r.reports, rep)
			return nil
		}),
		Logger: log.Discard(),
	})
	require.NoError(t, err)
	r.term = terminal.New(r.sim, l, log.Discard())
	return r
}

func (r *rig) drain() {
	for i := 0; i < 200; i++ {
		r.dev.Scan()
	}
}

func TestTypedBytesBecomeTaps(t *testing.T) {
	r := newRig(t)
	assert.False(t, r.term.Handle('q'))
	assert.False(t, r.term.Handle('W'))
	assert.False(t, r.term.Handle('q'))
	r.drain()

	var typed []uint8
	var mods []uint8
	for _, rep := range r.reports {
		if rep.Count() > 0 {
			typed = append(typed, rep.Keys[0])
			mods = append(mods, rep.Modifiers)
		}
	}
	assert.Equal(t, []uint8{hid.KeyQ, hid.KeyW, hid.KeyQ}, typed)
	assert.Equal(t, []uint8{0, hid.ModLeftShift, 0}, mods)
	assert.Equal(t, hid.Report{}, r.dev.Report())
}

func TestControlBytes(t *testing.T) {
	r := newRig(t)
	assert.False(t, r.term.Handle(0x07))
	r.drain()
	assert.Equal(t, firmware.ModeMagic, r.dev.Mode())

	assert.False(t, r.term.Handle('z'), "keys missing from the layout are ignored")
	assert.True(t, r.term.Handle(0x03))
	assert.True(t, r.term.Handle(0x04))
}

func TestRunReadsUntilQuit(t *testing.T) {
	r := newRig(t)
	pr, pw, err := os.Pipe()
	require.NoError(t, err)
	defer pr.Close()

	_, err = pw.Write([]byte{'e', 0x03, 'q'})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- r.term.Run(context.Background(), pr) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on Ctrl-C")
	}
	pw.Close()

	assert.Positive(t, r.sim.Pending(7), "E was queued")
	assert.Zero(t, r.sim.Pending(5), "nothing after Ctrl-C is handled")
}

func TestRunStopsAtEOF(t *testing.T) {
	r := newRig(t)
	pr, pw, err := os.Pipe()
	require.NoError(t, err)
	defer pr.Close()
	require.NoError(t, pw.Close())
	assert.NoError(t, r.term.Run(context.Background(), pr))
}
