package firmware

import "github.com/Alia5/matrixkb/hid"

// Mode is the command-interpreter state. Exactly one is active.
type Mode uint8

const (
	ModeIdle Mode = iota
	ModeMagic
	ModeRecording
)

func (m Mode) String() string {
	switch m {
	case ModeMagic:
		return "magic"
	case ModeRecording:
		return "recording"
	default:
		return "idle"
	}
}

// Status codes passed to the StatusIndicator. In idle mode the host's own
// LED byte is passed through instead.
const (
	StatusMagic     uint8 = hid.LEDCapsLock | hid.LEDScrollLock
	StatusRecording uint8 = hid.LEDNumLock | hid.LEDScrollLock
)

// StatusIndicator shows the current mode, typically on the lock LEDs.
type StatusIndicator interface {
	UpdateStatus(code uint8)
}

// StatusFunc adapts a function to StatusIndicator.
type StatusFunc func(code uint8)

func (f StatusFunc) UpdateStatus(code uint8) { f(code) }

// Bootloader hands control to the firmware-update routine. Jump does not
// return on real hardware.
type Bootloader interface {
	Jump()
}

// BootloaderFunc adapts a function to Bootloader.
type BootloaderFunc func()

func (f BootloaderFunc) Jump() { f() }
