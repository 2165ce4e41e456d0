package matrix

import "sync"

// SimMatrix is an in-memory Matrix. Keys are either held (read high every
// cycle) or fed from a queue of raw samples, one per scan, which lets tests
// and scripts inject switch bounce.
type SimMatrix struct {
	mu      sync.Mutex
	rows    int
	cols    int
	held    []bool
	queued  [][]bool
	row     int
	selects int
}

// NewSimMatrix returns an idle rows x cols matrix.
func NewSimMatrix(rows, cols int) *SimMatrix {
	return &SimMatrix{
		rows:   rows,
		cols:   cols,
		held:   make([]bool, rows*cols),
		queued: make([][]bool, rows*cols),
		row:    -1,
	}
}

// Hold sets the steady state of key k.
func (m *SimMatrix) Hold(k int, down bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held[k] = down
}

// Held reports the steady state of key k.
func (m *SimMatrix) Held(k int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held[k]
}

// Feed queues raw samples for key k; they take precedence over the held
// state until consumed.
func (m *SimMatrix) Feed(k int, samples ...bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queued[k] = append(m.queued[k], samples...)
}

// Pending returns the number of queued samples for key k.
func (m *SimMatrix) Pending(k int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queued[k])
}

// ReleaseAll lifts every held key and drops queued samples.
func (m *SimMatrix) ReleaseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.held {
		m.held[k] = false
		m.queued[k] = nil
	}
}

func (m *SimMatrix) SelectRow(r int) {
	m.mu.Lock()
	m.row = r
	m.selects++
	m.mu.Unlock()
}

func (m *SimMatrix) SampleColumn(c int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.row < 0 {
		return false
	}
	k := m.row*m.cols + c
	if q := m.queued[k]; len(q) > 0 {
		m.queued[k] = q[1:]
		return q[0]
	}
	return m.held[k]
}

func (m *SimMatrix) DeselectAllRows() {
	m.mu.Lock()
	m.row = -1
	m.mu.Unlock()
}

// RowSelects returns how many times a row has been strobed.
func (m *SimMatrix) RowSelects() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selects
}
