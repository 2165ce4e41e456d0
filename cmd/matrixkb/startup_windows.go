//go:build windows

package main

import (
	"log/slog"
	"os"

	"github.com/Alia5/matrixkb/internal/util"
)

// Double-clicking the binary opens the interactive keyboard.
func init() {
	if util.IsRunFromGUI() {
		slog.Info("started from the desktop, running the interactive keyboard")
		os.Args = util.WithDefaultCommand(os.Args, "run")
	}
}
