package hid

import (
	"fmt"
	"strings"
	"sync"
)

var (
	byNameOnce sync.Once
	keyByName  map[string]uint8
	modByName  map[string]uint8
)

func buildNameIndex() {
	keyByName = make(map[string]uint8, len(KeyName))
	for code, name := range KeyName {
		keyByName[strings.ToLower(name)] = code
	}
	modByName = make(map[string]uint8, len(ModifierName))
	for mask, name := range ModifierName {
		modByName[strings.ToLower(name)] = mask
	}
}

// LookupKey resolves a key name ("A", "Enter", "kp7") to its usage code.
// Names are matched case-insensitively; "0x2c" style hex is accepted too.
func LookupKey(name string) (uint8, bool) {
	byNameOnce.Do(buildNameIndex)
	n := strings.ToLower(strings.TrimSpace(name))
	if code, ok := keyByName[n]; ok {
		return code, true
	}
	var code uint8
	if _, err := fmt.Sscanf(n, "0x%x", &code); err == nil {
		return code, true
	}
	return 0, false
}

// LookupModifier resolves a modifier name ("LeftShift", "rightgui") to its
// bitmask.
func LookupModifier(name string) (uint8, bool) {
	byNameOnce.Do(buildNameIndex)
	mask, ok := modByName[strings.ToLower(strings.TrimSpace(name))]
	return mask, ok
}

// ModifierBit converts a modifier usage code (0xE0-0xE7) into its report bit.
func ModifierBit(usage uint8) (uint8, bool) {
	if usage < KeyLeftCtrl || usage > KeyRightGUI {
		return 0, false
	}
	return 1 << (usage - KeyLeftCtrl), true
}

// CodeName returns a printable name for a usage code.
func CodeName(code uint8) string {
	if n, ok := KeyName[code]; ok {
		return n
	}
	return fmt.Sprintf("0x%02x", code)
}

// ModifiersString renders a modifier mask as "LeftShift+RightGUI".
func ModifiersString(mask uint8) string {
	if mask == 0 {
		return "-"
	}
	var parts []string
	for bit := uint8(1); bit != 0; bit <<= 1 {
		if mask&bit != 0 {
			parts = append(parts, ModifierName[bit])
		}
	}
	return strings.Join(parts, "+")
}
