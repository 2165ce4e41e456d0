package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Alia5/matrixkb/firmware"
	"github.com/Alia5/matrixkb/internal/log"
	"github.com/Alia5/matrixkb/internal/script"
	"github.com/Alia5/matrixkb/transport"
)

type Simulate struct {
	Keyboard `embed:""`
	Script   string `arg:"" help:"Key script to run; - reads stdin"`
}

// Run is called by Kong when the simulate command is executed.
func (s *Simulate) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var src io.Reader = os.Stdin
	if s.Script != "-" {
		f, err := os.Open(s.Script)
		if err != nil {
			return err
		}
		defer f.Close()
		src = f
	}
	return s.Start(ctx, src, logger, rawLogger)
}

// Start runs the script from src. Reports are logged at info level.
func (s *Simulate) Start(ctx context.Context, src io.Reader, logger *slog.Logger, rawLogger log.RawLogger) error {
	boot := firmware.BootloaderFunc(func() { logger.Info("bootloader requested") })
	out := transport.Multi{transport.NewLog(logger, slog.LevelInfo), transport.NewRaw(rawLogger)}
	dev, sim, err := s.build(logger, out, boot)
	if err != nil {
		return err
	}

	if err := script.NewRunner(dev, sim, logger).Run(ctx, src); err != nil {
		return fmt.Errorf("%s: %w", s.Script, err)
	}
	logger.Info("script done", "scans", dev.Scans(), "mode", dev.Mode().String(), "report", dev.Report().String())
	return nil
}
