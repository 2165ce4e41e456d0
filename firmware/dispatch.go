package firmware

import (
	"github.com/Alia5/matrixkb/layout"
	"github.com/Alia5/matrixkb/matrix"
)

// keyClass is what a physical key is, as far as routing is concerned.
type keyClass uint8

const (
	classNone keyClass = iota
	classMagic
	classModifier
	classNormal
)

type route struct {
	mode  Mode
	class keyClass
	edge  matrix.Edge
}

type handler func(d *Device, k int, e layout.Entry)

// routes is the whole key-dispatch state machine. A (mode, class, edge)
// triple without an entry is swallowed; in magic mode that is every key
// that is not a command.
var routes = map[route]handler{
	{ModeIdle, classMagic, matrix.EdgePress}:      (*Device).enterMagic,
	{ModeRecording, classMagic, matrix.EdgePress}: (*Device).stopRecording,

	{ModeIdle, classModifier, matrix.EdgePress}:   (*Device).modifierDown,
	{ModeIdle, classModifier, matrix.EdgeRelease}: (*Device).modifierUp,
	{ModeIdle, classNormal, matrix.EdgePress}:     (*Device).keyDown,
	{ModeIdle, classNormal, matrix.EdgeRelease}:   (*Device).keyUp,

	{ModeRecording, classModifier, matrix.EdgePress}:   recorded((*Device).modifierDown),
	{ModeRecording, classModifier, matrix.EdgeRelease}: recorded((*Device).modifierUp),
	{ModeRecording, classNormal, matrix.EdgePress}:     recorded((*Device).keyDown),
	{ModeRecording, classNormal, matrix.EdgeRelease}:   recorded((*Device).keyUp),

	{ModeMagic, classMagic, matrix.EdgePress}:    (*Device).exitMagic,
	{ModeMagic, classNormal, matrix.EdgePress}:   (*Device).magicPress,
	{ModeMagic, classNormal, matrix.EdgeRelease}: (*Device).magicRelease,
}

// recorded logs the key into the replay buffer before handling it. A full
// buffer ends the recording; the event itself still goes through.
func recorded(h handler) handler {
	return func(d *Device, k int, e layout.Entry) {
		if !d.replay.Record(k) {
			d.logger.Info("replay buffer full, recording stopped", "capacity", ReplayCapacity)
			d.setMode(ModeIdle)
		}
		h(d, k, e)
	}
}

func (d *Device) classify(k int, e layout.Entry) keyClass {
	switch {
	case d.layout.IsMagic(k):
		return classMagic
	case e.IsNone():
		return classNone
	case e.Kind == layout.KindModifier:
		return classModifier
	default:
		return classNormal
	}
}

func (d *Device) dispatch(t matrix.Transition) {
	e := d.layout.Entry(t.Key)
	class := d.classify(t.Key, e)
	d.logger.Debug("key", "key", t.Key, "entry", e.String(), "edge", t.Edge.String(), "mode", d.mode.String())
	if h, ok := routes[route{mode: d.mode, class: class, edge: t.Edge}]; ok {
		h(d, t.Key, e)
	}
}

func (d *Device) keyDown(_ int, e layout.Entry)      { d.queue.Press(e.Code) }
func (d *Device) keyUp(_ int, e layout.Entry)        { d.queue.Release(e.Code) }
func (d *Device) modifierDown(_ int, e layout.Entry) { d.queue.ModifierPress(e.Code) }
func (d *Device) modifierUp(_ int, e layout.Entry)   { d.queue.ModifierRelease(e.Code) }

func (d *Device) enterMagic(int, layout.Entry)    { d.setMode(ModeMagic) }
func (d *Device) exitMagic(int, layout.Entry)     { d.setMode(ModeIdle) }
func (d *Device) stopRecording(int, layout.Entry) { d.setMode(ModeIdle) }

// magicPress runs the press command bound to the key's code, if any.
func (d *Device) magicPress(k int, e layout.Entry) {
	if h, ok := d.pressCommands[e.Code]; ok {
		h(d, k, e)
	}
}

// magicRelease runs the release command bound to the key's code, if any.
func (d *Device) magicRelease(k int, e layout.Entry) {
	if h, ok := d.releaseCommands[e.Code]; ok {
		h(d, k, e)
	}
}

// macro types the macro key twice, straight into the report queue.
func (d *Device) macro(int, layout.Entry) {
	code := d.layout.Commands.MacroKey
	for i := 0; i < 2; i++ {
		d.queue.Press(code)
		d.queue.Release(code)
	}
}

func (d *Device) startRecording(int, layout.Entry) {
	d.clearAll()
	d.replay.Reset()
	d.setMode(ModeRecording)
}

func (d *Device) playback(int, layout.Entry) {
	d.setMode(ModeIdle)
	d.Replay()
}

func (d *Device) jumpBootloader(int, layout.Entry) {
	if d.boot == nil {
		d.logger.Warn("bootloader requested but none configured")
		return
	}
	d.logger.Info("jumping to bootloader")
	d.boot.Jump()
}

func (d *Device) buildCommands() {
	c := d.layout.Commands
	d.pressCommands = map[uint8]handler{
		c.Macro:      (*Device).macro,
		c.Replay:     (*Device).playback,
		c.Bootloader: (*Device).jumpBootloader,
	}
	d.releaseCommands = map[uint8]handler{
		c.Record: (*Device).startRecording,
	}
}
