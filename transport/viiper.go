package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Alia5/matrixkb/hid"
	"github.com/Alia5/matrixkb/internal/viiper"
)

// VIIPERConfig selects the server and bus a VIIPER transport attaches to.
type VIIPERConfig struct {
	Addr     string
	Password string
	// BusID pins the bus; zero reuses the lowest existing bus or creates one.
	BusID   uint32
	Timeout time.Duration
}

// VIIPER presents the keyboard to a VIIPER server as a virtual USB
// keyboard. Reports are streamed as [modifiers, count, keys...]; LED bytes
// coming back from the host are passed to the onLEDs callback.
type VIIPER struct {
	client     *viiper.Client
	stream     *viiper.Stream
	busID      uint32
	devID      string
	createdBus bool
	logger     *slog.Logger
	errCh      <-chan error
}

// DialVIIPER creates the virtual keyboard and opens its stream.
func DialVIIPER(ctx context.Context, cfg VIIPERConfig, logger *slog.Logger, onLEDs func(uint8)) (*VIIPER, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tcfg := &viiper.Config{Password: cfg.Password}
	if cfg.Timeout > 0 {
		tcfg.DialTimeout = cfg.Timeout
		tcfg.ReadTimeout = cfg.Timeout
		tcfg.WriteTimeout = cfg.Timeout
	}
	client := viiper.New(viiper.NewTransport(cfg.Addr, tcfg, logger))

	busID, created := cfg.BusID, false
	if busID == 0 {
		var err error
		if busID, created, err = client.EnsureBus(ctx); err != nil {
			return nil, fmt.Errorf("viiper bus: %w", err)
		}
	}

	stream, dev, err := client.AddDeviceAndConnect(ctx, busID, viiper.DeviceCreateRequest{Type: viiper.DeviceTypeKeyboard})
	if err != nil {
		if dev != nil {
			_, _ = client.DeviceRemove(ctx, dev.BusID, dev.DevID)
		}
		if created {
			_, _ = client.BusRemove(ctx, busID)
		}
		return nil, fmt.Errorf("viiper device: %w", err)
	}
	logger.Info("virtual keyboard attached", "addr", cfg.Addr, "bus", dev.BusID, "dev", dev.DevID)

	v := &VIIPER{
		client:     client,
		stream:     stream,
		busID:      busID,
		devID:      dev.DevID,
		createdBus: created,
		logger:     logger,
	}
	v.errCh = stream.StartReading(context.Background(), readLEDs, func(msg []byte) {
		logger.Debug("host LEDs", "leds", fmt.Sprintf("0x%02x", msg[0]))
		if onLEDs != nil {
			onLEDs(msg[0])
		}
	})
	go v.watch()
	return v, nil
}

func readLEDs(r *bufio.Reader) ([]byte, error) {
	b, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	return []byte{b}, nil
}

func (v *VIIPER) watch() {
	if err := <-v.errCh; err != nil && !errors.Is(err, io.EOF) {
		v.logger.Warn("viiper stream closed", "error", err)
	}
}

// Send streams r to the virtual keyboard.
func (v *VIIPER) Send(r hid.Report) error {
	_, err := v.stream.Write(EncodeStream(r))
	return err
}

// Close detaches the device and removes the bus if this transport made it.
func (v *VIIPER) Close() error {
	ctx := context.Background()
	errs := []error{v.stream.Close()}
	if _, err := v.client.DeviceRemove(ctx, v.busID, v.devID); err != nil {
		errs = append(errs, fmt.Errorf("remove device: %w", err))
	}
	if v.createdBus {
		if _, err := v.client.BusRemove(ctx, v.busID); err != nil {
			errs = append(errs, fmt.Errorf("remove bus: %w", err))
		}
	}
	return errors.Join(errs...)
}

// EncodeStream converts a report into the VIIPER keyboard stream format.
func EncodeStream(r hid.Report) []byte {
	keys := r.Pressed()
	b := make([]byte, 2, 2+len(keys))
	b[0] = r.Modifiers
	b[1] = uint8(len(keys))
	return append(b, keys...)
}
