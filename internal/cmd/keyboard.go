package cmd

import (
	"fmt"
	"log/slog"

	"github.com/Alia5/matrixkb/firmware"
	"github.com/Alia5/matrixkb/hid"
	"github.com/Alia5/matrixkb/layout"
	"github.com/Alia5/matrixkb/matrix"
	"github.com/Alia5/matrixkb/report"
)

// Keyboard holds the options shared by commands that build a device.
type Keyboard struct {
	Layout     string `help:"Built-in model or layout file (json, yaml, toml)" default:"demo" env:"MATRIXKB_LAYOUT"`
	DebugEvery int    `help:"Scans between trace-level state dumps; negative disables" default:"100" env:"MATRIXKB_DEBUG_EVERY"`
}

// build resolves the layout and wires a device to a simulated matrix.
func (k Keyboard) build(logger *slog.Logger, out report.Transport, boot firmware.Bootloader) (*firmware.Device, *matrix.SimMatrix, error) {
	l, err := layout.Resolve(k.Layout)
	if err != nil {
		return nil, nil, err
	}
	sim := matrix.NewSimMatrix(l.Rows, l.Cols)
	dev, err := firmware.New(firmware.Config{
		Layout:     l,
		Matrix:     sim,
		Transport:  out,
		Status:     statusLogger(logger),
		Bootloader: boot,
		Logger:     logger,
		DebugEvery: k.DebugEvery,
	})
	if err != nil {
		return nil, nil, err
	}
	logger.Info("keyboard ready", "layout", l.Name, "rows", l.Rows, "cols", l.Cols, "magic", l.Commands.Magic.String())
	return dev, sim, nil
}

// statusLogger reports status indicator changes; the code is a lock-LED
// byte.
func statusLogger(logger *slog.Logger) firmware.StatusIndicator {
	last := -1
	return firmware.StatusFunc(func(code uint8) {
		if int(code) == last {
			return
		}
		last = int(code)
		logger.Info("status", "leds", fmt.Sprintf("0x%02x", code), "lit", ledNames(code))
	})
}

func ledNames(code uint8) []string {
	names := []string{}
	for _, l := range []struct {
		bit  uint8
		name string
	}{
		{hid.LEDNumLock, "num"},
		{hid.LEDCapsLock, "caps"},
		{hid.LEDScrollLock, "scroll"},
		{hid.LEDCompose, "compose"},
		{hid.LEDKana, "kana"},
	} {
		if code&l.bit != 0 {
			names = append(names, l.name)
		}
	}
	return names
}
