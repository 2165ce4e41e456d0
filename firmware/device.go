// Package firmware is the keyboard controller core: it scans the matrix,
// routes debounced key transitions through the mode state machine and
// keeps the host report up to date.
package firmware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Alia5/matrixkb/hid"
	"github.com/Alia5/matrixkb/internal/log"
	"github.com/Alia5/matrixkb/layout"
	"github.com/Alia5/matrixkb/matrix"
	"github.com/Alia5/matrixkb/report"
)

var (
	ErrNoLayout = errors.New("firmware: layout is required")
	ErrNoMatrix = errors.New("firmware: matrix is required")
	ErrPeriod   = errors.New("firmware: scan period must be positive")
)

// DefaultDebugEvery is how many scans pass between trace dumps of the
// keyboard state.
const DefaultDebugEvery = 100

// Config wires a Device to its collaborators. Layout and Matrix are
// required; the rest are optional.
type Config struct {
	Layout     *layout.Layout
	Matrix     matrix.Matrix
	Transport  report.Transport
	Status     StatusIndicator
	Bootloader Bootloader
	Logger     *slog.Logger
	// DebugEvery is the number of scans between state dumps at trace level.
	// Zero uses DefaultDebugEvery, negative disables.
	DebugEvery int
}

// Device is a single keyboard instance. All mutable state is owned by the
// scan handler; only SetHostLEDs may be called from other goroutines.
type Device struct {
	layout  *layout.Layout
	matrix  matrix.Matrix
	scanner *matrix.Scanner
	queue   *report.Queue
	status  StatusIndicator
	boot    Bootloader
	logger  *slog.Logger

	mode   Mode
	replay ReplayBuffer

	pressCommands   map[uint8]handler
	releaseCommands map[uint8]handler

	scanning   atomic.Bool
	hostLEDs   atomic.Uint32
	scans      uint64
	debugEvery int
}

// New returns a Device in idle mode with every key released and an empty
// report.
func New(cfg Config) (*Device, error) {
	if cfg.Layout == nil {
		return nil, ErrNoLayout
	}
	if cfg.Matrix == nil {
		return nil, ErrNoMatrix
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	every := cfg.DebugEvery
	if every == 0 {
		every = DefaultDebugEvery
	}
	d := &Device{
		layout:     cfg.Layout,
		matrix:     cfg.Matrix,
		scanner:    matrix.NewScanner(cfg.Layout.Rows, cfg.Layout.Cols),
		queue:      report.New(cfg.Transport, logger),
		status:     cfg.Status,
		boot:       cfg.Bootloader,
		logger:     logger,
		debugEvery: every,
	}
	d.buildCommands()
	return d, nil
}

// Scan runs one scan cycle. It returns false without touching anything if a
// scan is already in progress.
func (d *Device) Scan() bool {
	if !d.scanning.CompareAndSwap(false, true) {
		return false
	}
	defer d.scanning.Store(false)

	d.scanner.Scan(d.matrix, d.dispatch)
	d.updateStatus()

	d.scans++
	if d.debugEvery > 0 && d.scans%uint64(d.debugEvery) == 0 {
		d.dump()
	}
	return true
}

// Run scans every period until ctx is done.
func (d *Device) Run(ctx context.Context, period time.Duration) error {
	if period <= 0 {
		return ErrPeriod
	}
	d.logger.Info("scanning", "layout", d.layout.Name, "keys", d.layout.Len(), "period", period)
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("scan loop stopped", "scans", d.scans)
			return nil
		case <-ticker.C:
			if !d.Scan() {
				d.logger.Debug("scan overrun, tick skipped")
			}
		}
	}
}

// Replay clears all key state and feeds the recorded events back through
// the dispatcher. Each event toggles its key: a released key is pressed and
// a pressed key is released.
func (d *Device) Replay() {
	d.clearAll()
	events := d.replay.Entries()
	d.logger.Debug("replaying", "events", len(events))
	for _, k := range events {
		edge := matrix.EdgePress
		if d.scanner.Pressed(k) {
			edge = matrix.EdgeRelease
		}
		d.scanner.SetPressed(k, edge == matrix.EdgePress)
		d.dispatch(matrix.Transition{Key: k, Edge: edge})
	}
}

// SetHostLEDs stores the lock-LED byte last sent by the host. It is shown on
// the status indicator while idle.
func (d *Device) SetHostLEDs(leds uint8) { d.hostLEDs.Store(uint32(leds)) }

// HostLEDs returns the last host LED byte.
func (d *Device) HostLEDs() uint8 { return uint8(d.hostLEDs.Load()) }

// Mode returns the active mode.
func (d *Device) Mode() Mode { return d.mode }

// Report returns the current host report.
func (d *Device) Report() hid.Report { return d.queue.Report() }

// Pressed reports the debounced state of physical key k.
func (d *Device) Pressed(k int) bool { return d.scanner.Pressed(k) }

// Recorded returns the replay buffer contents.
func (d *Device) Recorded() []int { return d.replay.Entries() }

// Layout returns the device layout.
func (d *Device) Layout() *layout.Layout { return d.layout }

// Scans returns the number of completed scan cycles.
func (d *Device) Scans() uint64 { return d.scans }

// StatusCode is the value the status indicator gets for the current mode.
func (d *Device) StatusCode() uint8 {
	switch d.mode {
	case ModeMagic:
		return StatusMagic
	case ModeRecording:
		return StatusRecording
	default:
		return d.HostLEDs()
	}
}

func (d *Device) setMode(m Mode) {
	if m == d.mode {
		return
	}
	d.logger.Debug("mode", "from", d.mode.String(), "to", m.String())
	d.mode = m
}

// clearAll releases every key and sends an empty report. Debounce history
// is kept, so keys still held are not seen as pressed again until they are
// released and re-pressed.
func (d *Device) clearAll() {
	d.scanner.ReleaseAll()
	d.queue.Clear()
}

func (d *Device) updateStatus() {
	if d.status != nil {
		d.status.UpdateStatus(d.StatusCode())
	}
}

func (d *Device) dump() {
	if !d.logger.Enabled(context.Background(), log.LevelTrace) {
		return
	}
	var sb strings.Builder
	for i, h := range d.scanner.Histories() {
		if i > 0 && i%d.layout.Cols == 0 {
			sb.WriteByte('|')
		}
		fmt.Fprintf(&sb, "%02x", h)
	}
	d.logger.Log(context.Background(), log.LevelTrace, "state",
		"scans", d.scans,
		"mode", d.mode.String(),
		"report", d.queue.Report().String(),
		"history", sb.String(),
	)
}
