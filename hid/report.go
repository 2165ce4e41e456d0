package hid

import (
	"fmt"
	"io"
	"strings"
)

// ReportKeys is the number of keycode slots in a boot protocol report.
const ReportKeys = 6

// ReportSize is the encoded size of a boot protocol keyboard report.
const ReportSize = 2 + ReportKeys

// Report is the fixed-shape keyboard payload sent to the host.
//
// Wire layout (8 bytes):
//
//	Byte 0: Modifiers
//	Byte 1: Reserved (0x00)
//	Bytes 2-7: Keycodes, zero padded
type Report struct {
	Modifiers uint8
	Keys      [ReportKeys]uint8
}

// Count returns the number of non-zero keycodes.
func (r Report) Count() int {
	n := 0
	for _, k := range r.Keys {
		if k != 0 {
			n++
		}
	}
	return n
}

// Pressed returns the non-zero keycodes in report order.
func (r Report) Pressed() []uint8 {
	out := make([]uint8, 0, ReportKeys)
	for _, k := range r.Keys {
		if k != 0 {
			out = append(out, k)
		}
	}
	return out
}

// MarshalBinary encodes the report in boot protocol layout.
func (r Report) MarshalBinary() ([]byte, error) {
	b := make([]byte, ReportSize)
	b[0] = r.Modifiers
	copy(b[2:], r.Keys[:])
	return b, nil
}

// UnmarshalBinary decodes an 8-byte boot protocol report.
func (r *Report) UnmarshalBinary(data []byte) error {
	if len(data) < ReportSize {
		return io.ErrUnexpectedEOF
	}
	r.Modifiers = data[0]
	copy(r.Keys[:], data[2:ReportSize])
	return nil
}

func (r Report) String() string {
	names := make([]string, 0, ReportKeys)
	for _, k := range r.Pressed() {
		names = append(names, CodeName(k))
	}
	return fmt.Sprintf("mods=%s keys=[%s]", ModifiersString(r.Modifiers), strings.Join(names, " "))
}
