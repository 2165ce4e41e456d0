package matrix

// Matrix is raw access to the switch matrix hardware.
type Matrix interface {
	// SelectRow drives row r so its switches can be probed.
	SelectRow(r int)
	// SampleColumn reports whether the switch at (selected row, c) is closed.
	SampleColumn(c int) bool
	// DeselectAllRows releases every row after a full pass.
	DeselectAllRows()
}

// Transition is a debounced press or release of physical key Key.
type Transition struct {
	Key  int
	Edge Edge
}

// Scanner owns the debounce registers of every key position.
type Scanner struct {
	rows  int
	cols  int
	cells []Register
}

// NewScanner returns a scanner for a rows x cols matrix with zeroed cells.
func NewScanner(rows, cols int) *Scanner {
	return &Scanner{
		rows:  rows,
		cols:  cols,
		cells: make([]Register, rows*cols),
	}
}

// Scan performs one full pass in row-major order. fn is invoked for each
// transition as soon as it is computed, before the next key is sampled, so
// state changed by fn is visible to the rest of the pass.
func (s *Scanner) Scan(m Matrix, fn func(Transition)) {
	k := 0
	for r := 0; r < s.rows; r++ {
		m.SelectRow(r)
		for c := 0; c < s.cols; c++ {
			if edge := s.cells[k].Sample(m.SampleColumn(c)); edge != EdgeNone && fn != nil {
				fn(Transition{Key: k, Edge: edge})
			}
			k++
		}
	}
	m.DeselectAllRows()
}

// Len returns the number of cells.
func (s *Scanner) Len() int { return len(s.cells) }

// Pressed reports the debounced state of key k.
func (s *Scanner) Pressed(k int) bool { return s.cells[k].Pressed }

// SetPressed overrides the debounced state of key k without touching its
// sample history.
func (s *Scanner) SetPressed(k int, pressed bool) { s.cells[k].Pressed = pressed }

// ReleaseAll clears every pressed flag. Histories are kept, so a key that is
// still physically held has to drain and re-accumulate before it fires again.
func (s *Scanner) ReleaseAll() {
	for i := range s.cells {
		s.cells[i].Pressed = false
	}
}

// Reset zeroes all cells.
func (s *Scanner) Reset() {
	for i := range s.cells {
		s.cells[i].Reset()
	}
}

// Cell returns a copy of the register of key k.
func (s *Scanner) Cell(k int) Register { return s.cells[k] }

// Histories returns a snapshot of every sample history, for debug output.
func (s *Scanner) Histories() []uint8 {
	out := make([]uint8, len(s.cells))
	for i, c := range s.cells {
		out[i] = c.History
	}
	return out
}
