package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Alia5/matrixkb/firmware"
	"github.com/Alia5/matrixkb/firmware/bootloader"
	"github.com/Alia5/matrixkb/internal/log"
	"github.com/Alia5/matrixkb/internal/terminal"
	"github.com/Alia5/matrixkb/transport"
)

type VIIPER struct {
	Addr     string        `help:"VIIPER API server to attach a virtual keyboard to (empty disables)" env:"MATRIXKB_VIIPER_ADDR"`
	Password string        `help:"VIIPER API password" env:"MATRIXKB_VIIPER_PASSWORD"`
	Bus      uint32        `help:"VIIPER bus to use; 0 picks or creates one" default:"0" env:"MATRIXKB_VIIPER_BUS"`
	Timeout  time.Duration `help:"VIIPER request timeout" default:"5s" env:"MATRIXKB_VIIPER_TIMEOUT"`
}

type Run struct {
	Keyboard    `embed:""`
	Period      time.Duration `help:"Scan period" default:"1ms" env:"MATRIXKB_PERIOD"`
	Bootloader  []string      `help:"Command the bootloader key hands over to" env:"MATRIXKB_BOOTLOADER"`
	Interactive bool          `help:"Read keys from the terminal" default:"true" negatable:"" env:"MATRIXKB_INTERACTIVE"`
	VIIPER      VIIPER        `embed:"" prefix:"viiper."`
}

// Run is called by Kong when the run command is executed.
func (r *Run) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return r.Start(ctx, logger, rawLogger)
}

func (r *Run) Start(ctx context.Context, logger *slog.Logger, rawLogger log.RawLogger) error {
	var boot firmware.Bootloader
	if len(r.Bootloader) > 0 {
		b, err := bootloader.New(r.Bootloader, logger)
		if err != nil {
			return err
		}
		boot = b
	}

	out := transport.Multi{transport.NewLog(logger, slog.LevelDebug), transport.NewRaw(rawLogger)}
	dev, sim, err := r.build(logger, &out, boot)
	if err != nil {
		return err
	}

	if r.VIIPER.Addr != "" {
		v, err := transport.DialVIIPER(ctx, transport.VIIPERConfig{
			Addr:     r.VIIPER.Addr,
			Password: r.VIIPER.Password,
			BusID:    r.VIIPER.Bus,
			Timeout:  r.VIIPER.Timeout,
		}, logger, dev.SetHostLEDs)
		if err != nil {
			return err
		}
		defer func() {
			if err := v.Close(); err != nil {
				logger.Warn("viiper detach", "error", err)
			}
		}()
		out = append(out, v)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	scanErr := make(chan error, 1)
	go func() { scanErr <- dev.Run(ctx, r.Period) }()

	if r.Interactive {
		logger.Info("type to press keys; Ctrl-G taps the magic key, Ctrl-C quits")
		term := terminal.New(sim, dev.Layout(), logger)
		if err := term.Run(ctx, os.Stdin); err != nil {
			cancel()
			<-scanErr
			return err
		}
		cancel()
	}

	err = <-scanErr
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
