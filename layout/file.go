package layout

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"

	"github.com/Alia5/matrixkb/hid"
)

// File is the on-disk shape of a layout. Keys are names as understood by
// ParseEntry, one inner slice per matrix row.
type File struct {
	Name     string       `json:"name" yaml:"name" toml:"name"`
	Keys     [][]string   `json:"keys" yaml:"keys" toml:"keys"`
	Commands FileCommands `json:"commands" yaml:"commands" toml:"commands"`
}

// FileCommands mirrors Commands with key names. Empty fields keep defaults.
type FileCommands struct {
	Magic      string `json:"magic,omitempty" yaml:"magic,omitempty" toml:"magic,omitempty"`
	Macro      string `json:"macro,omitempty" yaml:"macro,omitempty" toml:"macro,omitempty"`
	MacroKey   string `json:"macroKey,omitempty" yaml:"macroKey,omitempty" toml:"macroKey,omitempty"`
	Record     string `json:"record,omitempty" yaml:"record,omitempty" toml:"record,omitempty"`
	Replay     string `json:"replay,omitempty" yaml:"replay,omitempty" toml:"replay,omitempty"`
	Bootloader string `json:"bootloader,omitempty" yaml:"bootloader,omitempty" toml:"bootloader,omitempty"`
}

// ParseEntry resolves a key name. Modifier names produce modifier entries;
// "", "-" and "none" produce None.
func ParseEntry(name string) (Entry, error) {
	n := strings.TrimSpace(name)
	switch strings.ToLower(n) {
	case "", "-", "none":
		return None, nil
	}
	if mask, ok := hid.LookupModifier(n); ok {
		return Mod(mask), nil
	}
	if code, ok := hid.LookupKey(n); ok {
		return Key(code), nil
	}
	return None, fmt.Errorf("%w: %q", ErrUnknownKey, name)
}

func parseCode(name string, def uint8) (uint8, error) {
	if name == "" {
		return def, nil
	}
	code, ok := hid.LookupKey(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownKey, name)
	}
	return code, nil
}

// Build converts the file form into a validated Layout.
func (f *File) Build() (*Layout, error) {
	rows := len(f.Keys)
	cols := 0
	if rows > 0 {
		cols = len(f.Keys[0])
	}
	keys := make([]Entry, 0, rows*cols)
	for r, row := range f.Keys {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d keys, want %d", ErrDimensions, r, len(row), cols)
		}
		for c, name := range row {
			e, err := ParseEntry(name)
			if err != nil {
				return nil, fmt.Errorf("row %d col %d: %w", r, c, err)
			}
			keys = append(keys, e)
		}
	}

	cmds := DefaultCommands()
	if f.Commands.Magic != "" {
		e, err := ParseEntry(f.Commands.Magic)
		if err != nil {
			return nil, fmt.Errorf("magic: %w", err)
		}
		cmds.Magic = e
	}
	var err error
	if cmds.Macro, err = parseCode(f.Commands.Macro, cmds.Macro); err != nil {
		return nil, fmt.Errorf("macro: %w", err)
	}
	if cmds.MacroKey, err = parseCode(f.Commands.MacroKey, cmds.MacroKey); err != nil {
		return nil, fmt.Errorf("macroKey: %w", err)
	}
	if cmds.Record, err = parseCode(f.Commands.Record, cmds.Record); err != nil {
		return nil, fmt.Errorf("record: %w", err)
	}
	if cmds.Replay, err = parseCode(f.Commands.Replay, cmds.Replay); err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	if cmds.Bootloader, err = parseCode(f.Commands.Bootloader, cmds.Bootloader); err != nil {
		return nil, fmt.Errorf("bootloader: %w", err)
	}

	name := f.Name
	if name == "" {
		name = "custom"
	}
	return New(name, rows, cols, keys, cmds)
}

// File returns the on-disk form of l.
func (l *Layout) File() *File {
	f := &File{Name: l.Name}
	for r := 0; r < l.Rows; r++ {
		row := make([]string, l.Cols)
		for c := range row {
			row[c] = l.Keys[l.Index(r, c)].String()
		}
		f.Keys = append(f.Keys, row)
	}
	f.Commands = FileCommands{
		Magic:      l.Commands.Magic.String(),
		Macro:      hid.CodeName(l.Commands.Macro),
		MacroKey:   hid.CodeName(l.Commands.MacroKey),
		Record:     hid.CodeName(l.Commands.Record),
		Replay:     hid.CodeName(l.Commands.Replay),
		Bootloader: hid.CodeName(l.Commands.Bootloader),
	}
	return f
}

// Parse decodes a layout in the given format ("json", "yaml" or "toml").
func Parse(data []byte, format string) (*Layout, error) {
	var f File
	var err error
	switch normalizeFormat(format) {
	case "json":
		err = json.Unmarshal(data, &f)
	case "yaml":
		err = yaml.Unmarshal(data, &f)
	case "toml":
		err = toml.Unmarshal(data, &f)
	default:
		return nil, fmt.Errorf("unsupported layout format: %s", format)
	}
	if err != nil {
		return nil, fmt.Errorf("decode layout: %w", err)
	}
	return f.Build()
}

// Encode renders l in the given format.
func Encode(l *Layout, format string) ([]byte, error) {
	f := l.File()
	switch normalizeFormat(format) {
	case "json":
		return json.MarshalIndent(f, "", "  ")
	case "yaml":
		return yaml.Marshal(f)
	case "toml":
		return toml.Marshal(*f)
	default:
		return nil, fmt.Errorf("unsupported layout format: %s", format)
	}
}

// Load reads a layout file, picking the decoder from the extension.
func Load(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, strings.TrimPrefix(filepath.Ext(path), "."))
}

// Resolve returns the built-in model called nameOrPath, or loads it as a
// file when no such model exists.
func Resolve(nameOrPath string) (*Layout, error) {
	if l, err := Model(nameOrPath); err == nil {
		return l, nil
	}
	l, err := Load(nameOrPath)
	if err != nil {
		return nil, fmt.Errorf("layout %q: %w", nameOrPath, err)
	}
	return l, nil
}

func normalizeFormat(f string) string {
	switch strings.ToLower(f) {
	case "json":
		return "json"
	case "yaml", "yml":
		return "yaml"
	case "toml":
		return "toml"
	default:
		return ""
	}
}
