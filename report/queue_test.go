package report_test

import (
	"errors"
	"testing"

	"github.com/Alia5/matrixkb/hid"
	"github.com/Alia5/matrixkb/internal/log"
	"github.com/Alia5/matrixkb/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capture struct {
	reports []hid.Report
	err     error
}

func (c *capture) Send(r hid.Report) error {
	c.reports = append(c.reports, r)
	return c.err
}

func (c *capture) last() hid.Report { return c.reports[len(c.reports)-1] }

func newQueue() (*report.Queue, *capture) {
	c := &capture{}
	return report.New(c, log.Discard()), c
}

func TestPressMostRecentFirst(t *testing.T) {
	q, c := newQueue()
	q.Press(hid.KeyA)
	q.Press(hid.KeyB)
	q.Press(hid.KeyC)

	require.Len(t, c.reports, 3)
	assert.Equal(t, [6]uint8{hid.KeyC, hid.KeyB, hid.KeyA}, c.last().Keys)
	assert.Equal(t, [6]uint8{hid.KeyA}, c.reports[0].Keys)
}

func TestPressSeventhDropsOldest(t *testing.T) {
	q, c := newQueue()
	codes := []uint8{hid.KeyA, hid.KeyB, hid.KeyC, hid.KeyD, hid.KeyE, hid.KeyF, hid.KeyG}
	for _, code := range codes {
		q.Press(code)
	}
	r := c.last()
	assert.Equal(t, 6, r.Count())
	assert.NotContains(t, r.Pressed(), uint8(hid.KeyA))
	assert.Equal(t, [6]uint8{hid.KeyG, hid.KeyF, hid.KeyE, hid.KeyD, hid.KeyC, hid.KeyB}, r.Keys)
}

func TestPressDuplicateMovesToHead(t *testing.T) {
	q, _ := newQueue()
	q.Press(hid.KeyA)
	q.Press(hid.KeyB)
	q.Press(hid.KeyA)
	assert.Equal(t, [6]uint8{hid.KeyA, hid.KeyB}, q.Report().Keys)
}

func TestRelease(t *testing.T) {
	tests := []struct {
		name    string
		pressed []uint8
		release uint8
		want    [6]uint8
	}{
		{"head", []uint8{hid.KeyA, hid.KeyB, hid.KeyC}, hid.KeyC, [6]uint8{hid.KeyB, hid.KeyA}},
		{"middle", []uint8{hid.KeyA, hid.KeyB, hid.KeyC}, hid.KeyB, [6]uint8{hid.KeyC, hid.KeyA}},
		{"tail of full queue", []uint8{4, 5, 6, 7, 8, 9}, 4, [6]uint8{9, 8, 7, 6, 5}},
		{"absent", []uint8{hid.KeyA}, hid.KeyZ, [6]uint8{hid.KeyA}},
		{"empty", nil, hid.KeyZ, [6]uint8{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, c := newQueue()
			for _, p := range tt.pressed {
				q.Press(p)
			}
			before := len(c.reports)
			q.Release(tt.release)
			assert.Equal(t, tt.want, q.Report().Keys)
			assert.Len(t, c.reports, before+1, "every release transmits")
		})
	}
}

func TestModifiers(t *testing.T) {
	q, c := newQueue()
	q.ModifierPress(hid.ModLeftShift)
	q.ModifierPress(hid.ModRightGUI)
	assert.Equal(t, uint8(hid.ModLeftShift|hid.ModRightGUI), c.last().Modifiers)
	q.ModifierRelease(hid.ModLeftShift)
	assert.Equal(t, uint8(hid.ModRightGUI), c.last().Modifiers)
	q.ModifierRelease(hid.ModLeftShift)
	assert.Equal(t, uint8(hid.ModRightGUI), c.last().Modifiers)
	assert.Len(t, c.reports, 4)
}

func TestClear(t *testing.T) {
	q, c := newQueue()
	q.Press(hid.KeyA)
	q.ModifierPress(hid.ModLeftCtrl)
	q.Clear()
	assert.Equal(t, hid.Report{}, c.last())
	assert.Equal(t, hid.Report{}, q.Report())
}

func TestTransportErrorIsSwallowed(t *testing.T) {
	c := &capture{err: errors.New("unplugged")}
	q := report.New(c, log.Discard())
	q.Press(hid.KeyA)
	assert.Equal(t, [6]uint8{hid.KeyA}, q.Report().Keys)
	assert.Len(t, c.reports, 1)
}

func TestNilTransport(t *testing.T) {
	q := report.New(nil, nil)
	q.Press(hid.KeyA)
	assert.Equal(t, 1, q.Report().Count())

	var got []hid.Report
	q = report.New(report.TransportFunc(func(r hid.Report) error {
		got = append(got, r)
		return nil
	}), nil)
	q.Press(hid.KeyQ)
	assert.Len(t, got, 1)
}
