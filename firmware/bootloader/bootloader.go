// Package bootloader implements firmware.Bootloader for hosted builds: the
// running process is replaced by a firmware-update command.
package bootloader

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
)

var ErrNoCommand = errors.New("bootloader: no command configured")

// Exec replaces the current process with Command. Jump never returns; if the
// hand-off fails the process exits with status 1.
type Exec struct {
	path   string
	argv   []string
	logger *slog.Logger
}

// New resolves command[0] on PATH.
func New(command []string, logger *slog.Logger) (*Exec, error) {
	if len(command) == 0 || command[0] == "" {
		return nil, ErrNoCommand
	}
	if logger == nil {
		logger = slog.Default()
	}
	path, err := exec.LookPath(command[0])
	if err != nil {
		return nil, fmt.Errorf("bootloader: %w", err)
	}
	return &Exec{
		path:   path,
		argv:   append([]string(nil), command...),
		logger: logger,
	}, nil
}

// Path returns the resolved executable.
func (e *Exec) Path() string { return e.path }

// Jump hands control to the update command.
func (e *Exec) Jump() {
	e.logger.Info("bootloader hand-off", "path", e.path, "args", e.argv[1:])
	err := e.exec()
	e.logger.Error("bootloader hand-off failed", "path", e.path, "error", err)
	os.Exit(1)
}
