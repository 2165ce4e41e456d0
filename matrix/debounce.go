// Package matrix scans a row/column switch matrix and debounces every key
// with an 8-bit sample history.
package matrix

// Edge is the transition produced by one debounce sample.
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgePress
	EdgeRelease
)

func (e Edge) String() string {
	switch e {
	case EdgePress:
		return "press"
	case EdgeRelease:
		return "release"
	default:
		return "none"
	}
}

const (
	pressPattern   = 0b01111111
	releasePattern = 0b10000000
)

// SettleSamples is the number of steady samples after which a clean press
// or release registers.
const SettleSamples = 7

// Register is the debounce state of one key (a KeyMatrixCell).
//
// Each sample is ORed into bit 0, so a high reading sticks until it ages out
// of bit 7. A press fires only when the seven newest samples are set and the
// oldest is clear; a release fires only when the history has drained down
// to the single aged-out bit. Any other pattern, however close, is ignored.
type Register struct {
	Pressed bool
	History uint8
}

// Sample feeds one raw reading and shifts the history for the next cycle.
func (r *Register) Sample(raw bool) Edge {
	if raw {
		r.History |= 1
	}
	edge := EdgeNone
	switch {
	case r.History == pressPattern && !r.Pressed:
		r.Pressed = true
		edge = EdgePress
	case r.History == releasePattern && r.Pressed:
		r.Pressed = false
		edge = EdgeRelease
	}
	r.History <<= 1
	return edge
}

// Reset zeroes the register.
func (r *Register) Reset() { *r = Register{} }
