package layout

import (
	"fmt"
	"sort"
)

// Built-in keyboard models, row-major.
var models = map[string]File{
	// 4x4 pad used by the simulator and the tests.
	"demo": {
		Name: "demo",
		Keys: [][]string{
			{"Escape", "1", "2", "3"},
			{"Tab", "Q", "W", "E"},
			{"LeftShift", "X", "R", "P"},
			{"LeftCtrl", "B", "Space", "RightGUI"},
		},
	},
	// 5x14 ANSI 60% board in the Teensy 2.0 matrix order.
	"teensy60": {
		Name: "teensy60",
		Keys: [][]string{
			{"Escape", "1", "2", "3", "4", "5", "6", "7", "8", "9", "0", "Minus", "Equal", "Backspace"},
			{"Tab", "Q", "W", "E", "R", "T", "Y", "U", "I", "O", "P", "LeftBrace", "RightBrace", "Backslash"},
			{"CapsLock", "A", "S", "D", "F", "G", "H", "J", "K", "L", "Semicolon", "Apostrophe", "-", "Enter"},
			{"LeftShift", "-", "Z", "X", "C", "V", "B", "N", "M", "Comma", "Period", "Slash", "-", "RightShift"},
			{"LeftCtrl", "LeftGUI", "LeftAlt", "-", "-", "-", "Space", "-", "-", "-", "RightAlt", "RightGUI", "Application", "RightCtrl"},
		},
	},
}

// Model builds the named built-in layout.
func Model(name string) (*Layout, error) {
	f, ok := models[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownName, name)
	}
	return f.Build()
}

// Models lists the built-in model names.
func Models() []string {
	out := make([]string, 0, len(models))
	for n := range models {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
