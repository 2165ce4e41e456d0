package firmware_test

import (
	"context"
	"testing"
	"time"

	"github.com/Alia5/matrixkb/firmware"
	"github.com/Alia5/matrixkb/hid"
	"github.com/Alia5/matrixkb/internal/log"
	"github.com/Alia5/matrixkb/layout"
	"github.com/Alia5/matrixkb/matrix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// demo layout positions
const (
	keyQ     = 5
	keyW     = 6
	keyX     = 9
	keyR     = 10
	keyP     = 11
	keyCtrl  = 12
	keyB     = 13
	keyMagic = 15
)

type harness struct {
	t       *testing.T
	dev     *firmware.Device
	sim     *matrix.SimMatrix
	reports []hid.Report
	status  []uint8
	jumps   int
}

func newHarness(t *testing.T, l *layout.Layout) *harness {
	t.Helper()
	h := &harness{t: t, sim: matrix.NewSimMatrix(l.Rows, l.Cols)}
	dev, err := firmware.New(firmware.Config{
		Layout: l,
		Matrix: h.sim,
		Transport: transportFunc(func(r hid.Report) error {
			h.reports = append(h.reports, r)
			return nil
		}),
		Status:     firmware.StatusFunc(func(code uint8) { h.status = append(h.status, code) }),
		Bootloader: firmware.BootloaderFunc(func() { h.jumps++ }),
		Logger:     log.Discard(),
	})
	require.NoError(t, err)
	h.dev = dev
	return h
}

func demo(t *testing.T) *harness {
	t.Helper()
	l, err := layout.Model("demo")
	require.NoError(t, err)
	return newHarness(t, l)
}

type transportFunc func(hid.Report) error

func (f transportFunc) Send(r hid.Report) error { return f(r) }

func (h *harness) scan(n int) {
	for i := 0; i < n; i++ {
		require.True(h.t, h.dev.Scan())
	}
}

// press holds key k for the seven scans it takes to register.
func (h *harness) press(k int) {
	h.sim.Hold(k, true)
	h.scan(7)
}

// release lets go of key k for the seven scans it takes to register.
func (h *harness) release(k int) {
	h.sim.Hold(k, false)
	h.scan(7)
}

func (h *harness) tap(k int) {
	h.press(k)
	h.release(k)
}

// since returns the reports sent after the first n.
func (h *harness) since(n int) [][6]uint8 {
	var out [][6]uint8
	for _, r := range h.reports[n:] {
		out = append(out, r.Keys)
	}
	return out
}

func keys(codes ...uint8) [6]uint8 {
	var k [6]uint8
	copy(k[:], codes)
	return k
}

func TestNewRequiresLayoutAndMatrix(t *testing.T) {
	_, err := firmware.New(firmware.Config{})
	assert.ErrorIs(t, err, firmware.ErrNoLayout)

	l, err := layout.Model("demo")
	require.NoError(t, err)
	_, err = firmware.New(firmware.Config{Layout: l})
	assert.ErrorIs(t, err, firmware.ErrNoMatrix)
}

func TestIdleTyping(t *testing.T) {
	h := demo(t)
	h.press(keyQ)
	assert.Equal(t, keys(hid.KeyQ), h.dev.Report().Keys)
	h.press(keyCtrl)
	assert.Equal(t, uint8(hid.ModLeftCtrl), h.dev.Report().Modifiers)
	h.release(keyQ)
	h.release(keyCtrl)
	assert.Equal(t, hid.Report{}, h.dev.Report())
	assert.Len(t, h.reports, 4)
	assert.Equal(t, firmware.ModeIdle, h.dev.Mode())
}

func TestBounceDoesNotType(t *testing.T) {
	h := demo(t)
	h.sim.Feed(keyQ, true, true, false, true, true, true, true, true, false)
	h.scan(12)
	assert.Empty(t, h.reports)
	assert.False(t, h.dev.Pressed(keyQ))
}

func TestMagicMacro(t *testing.T) {
	h := demo(t)
	h.press(keyMagic)
	assert.Equal(t, firmware.ModeMagic, h.dev.Mode())
	assert.Empty(t, h.reports, "the magic key never reaches the host")
	assert.Equal(t, firmware.StatusMagic, h.status[len(h.status)-1])

	h.press(keyX)
	assert.Equal(t, [][6]uint8{keys(hid.KeyX), {}, keys(hid.KeyX), {}}, h.since(0))
	assert.Equal(t, firmware.ModeMagic, h.dev.Mode())

	h.release(keyX)
	h.release(keyMagic)
	assert.Len(t, h.reports, 4)

	h.press(keyMagic)
	assert.Equal(t, firmware.ModeIdle, h.dev.Mode())
	h.release(keyMagic)
	assert.Len(t, h.reports, 4)
}

func TestMagicSwallowsOtherKeys(t *testing.T) {
	h := demo(t)
	h.tap(keyMagic)
	h.tap(keyQ)
	h.tap(keyCtrl)
	assert.Empty(t, h.reports)
	assert.Equal(t, firmware.ModeMagic, h.dev.Mode())
}

func TestRecordStart(t *testing.T) {
	h := demo(t)
	h.tap(keyMagic)
	h.press(keyR)
	assert.Equal(t, firmware.ModeMagic, h.dev.Mode(), "recording starts on release")
	h.release(keyR)

	assert.Equal(t, firmware.ModeRecording, h.dev.Mode())
	assert.Empty(t, h.dev.Recorded())
	require.Len(t, h.reports, 1)
	assert.Equal(t, hid.Report{}, h.reports[0], "keyboard state is cleared")
	assert.Equal(t, firmware.StatusRecording, h.status[len(h.status)-1])
}

func TestRecordAndReplay(t *testing.T) {
	h := demo(t)
	h.tap(keyMagic)
	h.tap(keyR)
	require.Equal(t, firmware.ModeRecording, h.dev.Mode())

	start := len(h.reports)
	h.press(keyQ)
	h.press(keyW)
	h.release(keyQ)
	h.release(keyW)
	recorded := h.since(start)
	assert.Equal(t, [][6]uint8{keys(hid.KeyQ), keys(hid.KeyW, hid.KeyQ), keys(hid.KeyW), {}}, recorded)
	assert.Equal(t, []int{keyQ, keyW, keyQ, keyW}, h.dev.Recorded())

	// magic key press while recording ends it
	h.press(keyMagic)
	assert.Equal(t, firmware.ModeIdle, h.dev.Mode())
	h.release(keyMagic)
	assert.Len(t, h.dev.Recorded(), 4)

	h.tap(keyMagic)
	start = len(h.reports)
	h.press(keyP)
	assert.Equal(t, firmware.ModeIdle, h.dev.Mode())
	replayed := h.since(start)
	require.Len(t, replayed, 5)
	assert.Equal(t, [6]uint8{}, replayed[0], "replay starts from a clear state")
	assert.Equal(t, recorded, replayed[1:])

	// P was cleared by the replay, so letting go of it sends nothing
	h.release(keyP)
	assert.Len(t, h.reports, start+5)

	// the buffer survives playback
	assert.Len(t, h.dev.Recorded(), 4)
}

func TestReplayTogglesHeldKey(t *testing.T) {
	h := demo(t)
	h.tap(keyMagic)
	h.tap(keyR)
	h.press(keyQ)
	h.tap(keyMagic)
	require.Equal(t, firmware.ModeIdle, h.dev.Mode())

	h.dev.Replay()
	assert.True(t, h.dev.Pressed(keyQ))
	assert.Equal(t, keys(hid.KeyQ), h.dev.Report().Keys)

	h.dev.Replay()
	assert.True(t, h.dev.Pressed(keyQ), "replay clears first, so a lone press is pressed again")
}

func TestBootloader(t *testing.T) {
	h := demo(t)
	h.tap(keyB)
	assert.Zero(t, h.jumps)
	h.tap(keyMagic)
	h.press(keyB)
	assert.Equal(t, 1, h.jumps)
}

func TestBootloaderMissing(t *testing.T) {
	l, err := layout.Model("demo")
	require.NoError(t, err)
	sim := matrix.NewSimMatrix(l.Rows, l.Cols)
	dev, err := firmware.New(firmware.Config{Layout: l, Matrix: sim, Logger: log.Discard()})
	require.NoError(t, err)

	sim.Hold(keyMagic, true)
	for i := 0; i < 7; i++ {
		dev.Scan()
	}
	sim.Hold(keyB, true)
	for i := 0; i < 7; i++ {
		dev.Scan()
	}
	assert.Equal(t, firmware.ModeMagic, dev.Mode())
	assert.Equal(t, hid.Report{}, dev.Report())
}

func TestModeVisibleWithinSameScan(t *testing.T) {
	l, err := layout.New("pair", 1, 2,
		[]layout.Entry{layout.Mod(hid.ModRightGUI), layout.Key(hid.KeyX)},
		layout.DefaultCommands())
	require.NoError(t, err)
	h := newHarness(t, l)

	h.sim.Hold(0, true)
	h.sim.Hold(1, true)
	h.scan(7)

	assert.Equal(t, firmware.ModeMagic, h.dev.Mode())
	assert.Equal(t, [][6]uint8{keys(hid.KeyX), {}, keys(hid.KeyX), {}}, h.since(0))
}

func TestUnassignedPositionIgnored(t *testing.T) {
	l, err := layout.New("gap", 1, 3,
		[]layout.Entry{layout.None, layout.Key(hid.KeyA), layout.Mod(hid.ModRightGUI)},
		layout.DefaultCommands())
	require.NoError(t, err)
	h := newHarness(t, l)

	h.tap(2)
	h.tap(0)
	h.tap(2)
	h.tap(0)
	assert.Empty(t, h.reports)
	assert.Equal(t, firmware.ModeIdle, h.dev.Mode())
}

func TestStatusFollowsHostLEDsWhenIdle(t *testing.T) {
	h := demo(t)
	h.dev.SetHostLEDs(hid.LEDCapsLock)
	h.scan(1)
	assert.Equal(t, uint8(hid.LEDCapsLock), h.status[0])
	assert.Equal(t, uint8(hid.LEDCapsLock), h.dev.HostLEDs())

	h.tap(keyMagic)
	assert.Equal(t, firmware.StatusMagic, h.dev.StatusCode())
	assert.Equal(t, uint8(0x06), firmware.StatusMagic)
	assert.Equal(t, uint8(0x05), firmware.StatusRecording)
}

func TestRunStopsOnCancel(t *testing.T) {
	h := demo(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.dev.Run(ctx, time.Millisecond) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Positive(t, h.dev.Scans())
}

func TestRunRejectsBadPeriod(t *testing.T) {
	h := demo(t)
	assert.ErrorIs(t, h.dev.Run(context.Background(), 0), firmware.ErrPeriod)
}
