// Package layout defines the per-model layout table: one (kind, code) entry
// per physical key position in row-major order, the matrix dimensions, and
// the keys that act as firmware commands in magic mode.
package layout

import (
	"errors"
	"fmt"

	"github.com/Alia5/matrixkb/hid"
)

// MaxKeys is the largest matrix the firmware addresses; key indices are
// stored as bytes in the replay buffer.
const MaxKeys = 256

var (
	ErrDimensions  = errors.New("layout dimensions do not match key table")
	ErrTooManyKeys = errors.New("layout exceeds 256 keys")
	ErrUnknownKey  = errors.New("unknown key name")
	ErrNoMagicKey  = errors.New("magic key is not present in the layout")
	ErrUnknownName = errors.New("unknown keyboard model")
)

// Kind tells whether an entry is a modifier bit or an ordinary key.
type Kind uint8

const (
	KindNormal Kind = iota
	KindModifier
)

func (k Kind) String() string {
	if k == KindModifier {
		return "modifier"
	}
	return "normal"
}

// Entry is one layout table cell. For KindModifier, Code is the modifier
// bitmask (hid.ModLeftShift, ...); for KindNormal it is the usage code.
type Entry struct {
	Kind Kind
	Code uint8
}

// Key returns an ordinary key entry.
func Key(code uint8) Entry { return Entry{Kind: KindNormal, Code: code} }

// Mod returns a modifier entry for the given bitmask.
func Mod(mask uint8) Entry { return Entry{Kind: KindModifier, Code: mask} }

// None is an unassigned matrix position.
var None = Entry{}

// IsNone reports whether the position has no assignment.
func (e Entry) IsNone() bool { return e == None }

func (e Entry) String() string {
	switch {
	case e.IsNone():
		return "-"
	case e.Kind == KindModifier:
		return hid.ModifiersString(e.Code)
	default:
		return hid.CodeName(e.Code)
	}
}

// Commands names the keys interpreted while in magic mode. Macro, Record,
// Replay and Bootloader match ordinary entries by usage code.
type Commands struct {
	Magic      Entry
	Macro      uint8
	MacroKey   uint8 // code typed twice by the macro
	Record     uint8
	Replay     uint8
	Bootloader uint8
}

// DefaultCommands uses the right GUI key as the attention key.
func DefaultCommands() Commands {
	return Commands{
		Magic:      Mod(hid.ModRightGUI),
		Macro:      hid.KeyX,
		MacroKey:   hid.KeyX,
		Record:     hid.KeyR,
		Replay:     hid.KeyP,
		Bootloader: hid.KeyB,
	}
}

// Layout is the immutable layout table of one keyboard model.
type Layout struct {
	Name     string
	Rows     int
	Cols     int
	Keys     []Entry
	Commands Commands
}

// New validates and builds a layout. keys is row-major.
func New(name string, rows, cols int, keys []Entry, cmds Commands) (*Layout, error) {
	if rows <= 0 || cols <= 0 || rows*cols != len(keys) {
		return nil, fmt.Errorf("%w: %dx%d with %d keys", ErrDimensions, rows, cols, len(keys))
	}
	if len(keys) > MaxKeys {
		return nil, fmt.Errorf("%w: %d", ErrTooManyKeys, len(keys))
	}
	l := &Layout{
		Name:     name,
		Rows:     rows,
		Cols:     cols,
		Keys:     append([]Entry(nil), keys...),
		Commands: cmds,
	}
	if _, ok := l.Find(cmds.Magic); !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoMagicKey, cmds.Magic)
	}
	return l, nil
}

// Len returns the number of physical key positions.
func (l *Layout) Len() int { return len(l.Keys) }

// Entry returns the entry at physical index k.
func (l *Layout) Entry(k int) Entry { return l.Keys[k] }

// Index converts a row/column pair into a physical key index.
func (l *Layout) Index(row, col int) int { return row*l.Cols + col }

// Position converts a physical key index into its row and column.
func (l *Layout) Position(k int) (row, col int) { return k / l.Cols, k % l.Cols }

// IsMagic reports whether physical key k is the attention key.
func (l *Layout) IsMagic(k int) bool { return l.Keys[k] == l.Commands.Magic }

// Find returns the first physical index holding e.
func (l *Layout) Find(e Entry) (int, bool) {
	for k, x := range l.Keys {
		if x == e {
			return k, true
		}
	}
	return 0, false
}

// FindCode returns the first physical index producing the given usage code,
// resolving modifier usages (0xE0-0xE7) to modifier entries.
func (l *Layout) FindCode(code uint8) (int, bool) {
	if bit, ok := hid.ModifierBit(code); ok {
		return l.Find(Mod(bit))
	}
	return l.Find(Key(code))
}
