// Package script drives a simulated keyboard from a line-oriented script.
//
// Each line is one command, split shell-style; '#' starts a comment.
//
//	press KEY...         hold keys and scan until they register
//	release KEY...       let go of keys and scan until they register
//	tap KEY...           press and release each key in turn
//	chord KEY...         press all keys, then release them in reverse
//	type TEXT            tap the keys for an ASCII string, shifting as needed
//	bounce KEY SAMPLES   feed raw samples such as 1101111 to KEY, one per scan
//	wait N               run N scan cycles
//	leds BYTE            set the host lock-LED byte
//	expect-mode MODE     fail unless the mode is idle, magic or recording
//	expect-keys [KEY...] fail unless the report keys are exactly these, in order
//	expect-mods [MOD...] fail unless the report modifiers are exactly these
//	expect-status BYTE   fail unless the status indicator code is BYTE
//
// KEY is a layout key name (X, LeftShift, Enter), "magic" for the
// attention key, or @N for physical index N.
package script

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/Alia5/matrixkb/firmware"
	"github.com/Alia5/matrixkb/hid"
	"github.com/Alia5/matrixkb/layout"
	"github.com/Alia5/matrixkb/matrix"
	"github.com/google/shlex"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrArgs           = errors.New("wrong number of arguments")
	ErrExpectation    = errors.New("expectation failed")
)

type command struct {
	min, max int // argument count; max < 0 is unbounded
	run      func(r *Runner, args []string) error
}

var commands = map[string]command{
	"press":         {1, -1, (*Runner).press},
	"release":       {1, -1, (*Runner).release},
	"tap":           {1, -1, (*Runner).tap},
	"chord":         {1, -1, (*Runner).chord},
	"type":          {1, 1, (*Runner).typeText},
	"bounce":        {2, 2, (*Runner).bounce},
	"wait":          {1, 1, (*Runner).wait},
	"leds":          {1, 1, (*Runner).leds},
	"expect-mode":   {1, 1, (*Runner).expectMode},
	"expect-keys":   {0, hid.ReportKeys, (*Runner).expectKeys},
	"expect-mods":   {0, 8, (*Runner).expectMods},
	"expect-status": {1, 1, (*Runner).expectStatus},
}

// Runner executes scripts against a device whose matrix is sim.
type Runner struct {
	dev    *firmware.Device
	sim    *matrix.SimMatrix
	layout *layout.Layout
	logger *slog.Logger
}

func NewRunner(dev *firmware.Device, sim *matrix.SimMatrix, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{dev: dev, sim: sim, layout: dev.Layout(), logger: logger}
}

// Run executes every line of src. It stops at the first failing line.
func (r *Runner) Run(ctx context.Context, src io.Reader) error {
	sc := bufio.NewScanner(src)
	n := 0
	for sc.Scan() {
		n++
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.Exec(sc.Text()); err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
	}
	return sc.Err()
}

// Exec runs a single script line. Blank and comment lines are no-ops.
func (r *Runner) Exec(line string) error {
	words, err := shlex.Split(line)
	if err != nil {
		return err
	}
	if len(words) == 0 {
		return nil
	}
	name, args := strings.ToLower(words[0]), words[1:]
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	if len(args) < cmd.min || (cmd.max >= 0 && len(args) > cmd.max) {
		return fmt.Errorf("%s: %w", name, ErrArgs)
	}
	r.logger.Debug("script", "cmd", name, "args", args)
	return cmd.run(r, args)
}

// Key resolves a script key reference to a physical index.
func (r *Runner) Key(name string) (int, error) {
	switch {
	case strings.EqualFold(name, "magic"):
		k, _ := r.layout.Find(r.layout.Commands.Magic)
		return k, nil
	case strings.HasPrefix(name, "@"):
		k, err := strconv.Atoi(name[1:])
		if err != nil || k < 0 || k >= r.layout.Len() {
			return 0, fmt.Errorf("%w: %s", layout.ErrUnknownKey, name)
		}
		return k, nil
	}
	e, err := layout.ParseEntry(name)
	if err != nil {
		return 0, err
	}
	if k, ok := r.layout.Find(e); ok {
		return k, nil
	}
	return 0, fmt.Errorf("%w: %s is not on layout %s", layout.ErrUnknownKey, name, r.layout.Name)
}

func (r *Runner) keys(names []string) ([]int, error) {
	out := make([]int, len(names))
	for i, n := range names {
		k, err := r.Key(n)
		if err != nil {
			return nil, err
		}
		out[i] = k
	}
	return out, nil
}

func (r *Runner) scan(n int) {
	for i := 0; i < n; i++ {
		r.dev.Scan()
	}
}

func (r *Runner) set(names []string, down bool) error {
	ks, err := r.keys(names)
	if err != nil {
		return err
	}
	for _, k := range ks {
		r.sim.Hold(k, down)
	}
	r.scan(matrix.SettleSamples)
	return nil
}

func (r *Runner) press(args []string) error   { return r.set(args, true) }
func (r *Runner) release(args []string) error { return r.set(args, false) }

func (r *Runner) tap(args []string) error {
	for _, a := range args {
		if err := r.set([]string{a}, true); err != nil {
			return err
		}
		if err := r.set([]string{a}, false); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) chord(args []string) error {
	for _, a := range args {
		if err := r.set([]string{a}, true); err != nil {
			return err
		}
	}
	for i := len(args) - 1; i >= 0; i-- {
		if err := r.set([]string{args[i]}, false); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) typeText(args []string) error {
	shift, hasShift := r.layout.Find(layout.Mod(hid.ModLeftShift))
	if !hasShift {
		shift, hasShift = r.layout.Find(layout.Mod(hid.ModRightShift))
	}
	for i := 0; i < len(args[0]); i++ {
		c := args[0][i]
		code, ok := hid.CharToKey[c]
		if !ok {
			return fmt.Errorf("type: no key for %q", c)
		}
		k, ok := r.layout.Find(layout.Key(code))
		if !ok {
			return fmt.Errorf("%w: %s is not on layout %s", layout.ErrUnknownKey, hid.CodeName(code), r.layout.Name)
		}
		keys := []string{"@" + strconv.Itoa(k)}
		if hid.ShiftChars[c] {
			if !hasShift {
				return fmt.Errorf("type: %q needs a shift key", c)
			}
			keys = []string{"@" + strconv.Itoa(shift), keys[0]}
		}
		if err := r.chord(keys); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) bounce(args []string) error {
	k, err := r.Key(args[0])
	if err != nil {
		return err
	}
	samples := make([]bool, 0, len(args[1]))
	for _, c := range args[1] {
		switch c {
		case '0':
			samples = append(samples, false)
		case '1':
			samples = append(samples, true)
		default:
			return fmt.Errorf("bounce: samples must be 0 or 1, got %q", c)
		}
	}
	r.sim.Feed(k, samples...)
	r.scan(len(samples))
	return nil
}

func (r *Runner) wait(args []string) error {
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return fmt.Errorf("wait: bad scan count %q", args[0])
	}
	r.scan(n)
	return nil
}

func parseByte(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	return uint8(v), err
}

func (r *Runner) leds(args []string) error {
	b, err := parseByte(args[0])
	if err != nil {
		return fmt.Errorf("leds: %w", err)
	}
	r.dev.SetHostLEDs(b)
	return nil
}

func (r *Runner) expectMode(args []string) error {
	if got := r.dev.Mode().String(); !strings.EqualFold(got, args[0]) {
		return fmt.Errorf("%w: mode is %s, want %s", ErrExpectation, got, args[0])
	}
	return nil
}

func (r *Runner) expectKeys(args []string) error {
	want := make([]uint8, len(args))
	for i, a := range args {
		code, ok := hid.LookupKey(a)
		if !ok {
			return fmt.Errorf("%w: %s", layout.ErrUnknownKey, a)
		}
		want[i] = code
	}
	if got := r.dev.Report().Pressed(); !slices.Equal(got, want) {
		return fmt.Errorf("%w: report is %s", ErrExpectation, r.dev.Report())
	}
	return nil
}

func (r *Runner) expectMods(args []string) error {
	var want uint8
	for _, a := range args {
		m, ok := hid.LookupModifier(a)
		if !ok {
			return fmt.Errorf("%w: %s", layout.ErrUnknownKey, a)
		}
		want |= m
	}
	if got := r.dev.Report().Modifiers; got != want {
		return fmt.Errorf("%w: modifiers are %s, want %s", ErrExpectation, hid.ModifiersString(got), hid.ModifiersString(want))
	}
	return nil
}

func (r *Runner) expectStatus(args []string) error {
	want, err := parseByte(args[0])
	if err != nil {
		return fmt.Errorf("expect-status: %w", err)
	}
	if got := r.dev.StatusCode(); got != want {
		return fmt.Errorf("%w: status is 0x%02x, want 0x%02x", ErrExpectation, got, want)
	}
	return nil
}
