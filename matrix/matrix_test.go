package matrix_test

import (
	"math/rand"
	"testing"

	"github.com/Alia5/matrixkb/matrix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feed(r *matrix.Register, samples ...bool) []matrix.Edge {
	out := make([]matrix.Edge, len(samples))
	for i, s := range samples {
		out[i] = r.Sample(s)
	}
	return out
}

func repeat(v bool, n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestRegisterPressAfterSevenSamples(t *testing.T) {
	var r matrix.Register
	edges := feed(&r, repeat(true, 6)...)
	for _, e := range edges {
		assert.Equal(t, matrix.EdgeNone, e)
	}
	assert.False(t, r.Pressed)

	assert.Equal(t, matrix.EdgePress, r.Sample(true))
	assert.True(t, r.Pressed)

	// Held: no further edges.
	for _, e := range feed(&r, repeat(true, 20)...) {
		assert.Equal(t, matrix.EdgeNone, e)
	}
}

func TestRegisterReleaseAfterSevenIdleSamples(t *testing.T) {
	var r matrix.Register
	feed(&r, repeat(true, 10)...)
	require.True(t, r.Pressed)

	edges := feed(&r, repeat(false, 7)...)
	for _, e := range edges[:6] {
		assert.Equal(t, matrix.EdgeNone, e)
	}
	assert.Equal(t, matrix.EdgeRelease, edges[6])
	assert.False(t, r.Pressed)
}

func TestRegisterBounceIsIgnored(t *testing.T) {
	var r matrix.Register
	bouncy := []bool{true, false, true, true, false, true, true, true, true, true, true, false}
	for _, e := range feed(&r, bouncy...) {
		assert.Equal(t, matrix.EdgeNone, e)
	}
	assert.False(t, r.Pressed)

	// Seven clean samples after the last gap still press.
	edges := feed(&r, repeat(true, 7)...)
	assert.Equal(t, matrix.EdgePress, edges[6])
}

func TestRegisterStickyBitDelaysRelease(t *testing.T) {
	var r matrix.Register
	feed(&r, repeat(true, 8)...)
	require.True(t, r.Pressed)

	// A single high reading in the middle of the release restarts the drain.
	edges := feed(&r, false, false, false, true, false, false, false, false, false, false, false)
	for _, e := range edges[:10] {
		assert.Equal(t, matrix.EdgeNone, e)
	}
	assert.Equal(t, matrix.EdgeRelease, edges[10])
}

// The register must behave exactly like an 8-sample window: press when the
// newest seven samples are high and the eighth is low, release when only the
// eighth is high.
func TestRegisterMatchesWindowModel(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for run := 0; run < 200; run++ {
		var r matrix.Register
		var hist []bool
		pressed := false
		bias := rng.Float64()
		for i := 0; i < 400; i++ {
			s := rng.Float64() < bias
			hist = append(hist, s)

			at := func(back int) bool {
				idx := len(hist) - 1 - back
				return idx >= 0 && hist[idx]
			}
			newest, oldestClear := true, !at(7)
			anyNew := false
			for b := 0; b < 7; b++ {
				newest = newest && at(b)
				anyNew = anyNew || at(b)
			}
			want := matrix.EdgeNone
			switch {
			case newest && oldestClear && !pressed:
				want = matrix.EdgePress
				pressed = true
			case !anyNew && at(7) && pressed:
				want = matrix.EdgeRelease
				pressed = false
			}

			require.Equal(t, want, r.Sample(s), "run %d sample %d", run, i)
			require.Equal(t, pressed, r.Pressed)
		}
	}
}

func TestScannerRowMajorOrder(t *testing.T) {
	m := matrix.NewSimMatrix(2, 3)
	s := matrix.NewScanner(2, 3)
	m.Hold(4, true)
	m.Hold(1, true)

	var got []matrix.Transition
	for i := 0; i < 7; i++ {
		s.Scan(m, func(tr matrix.Transition) { got = append(got, tr) })
	}
	assert.Equal(t, []matrix.Transition{
		{Key: 1, Edge: matrix.EdgePress},
		{Key: 4, Edge: matrix.EdgePress},
	}, got)
	assert.True(t, s.Pressed(1))
	assert.True(t, s.Pressed(4))
	assert.Equal(t, 14, m.RowSelects())

	m.ReleaseAll()
	got = nil
	for i := 0; i < 7; i++ {
		s.Scan(m, func(tr matrix.Transition) { got = append(got, tr) })
	}
	assert.Equal(t, []matrix.Transition{
		{Key: 1, Edge: matrix.EdgeRelease},
		{Key: 4, Edge: matrix.EdgeRelease},
	}, got)
}

func TestScannerFedSamples(t *testing.T) {
	m := matrix.NewSimMatrix(1, 2)
	s := matrix.NewScanner(1, 2)
	m.Feed(0, true, false, true, true, true, true, true, true, true)
	assert.Equal(t, 9, m.Pending(0))

	var got []matrix.Transition
	for i := 0; i < 9; i++ {
		s.Scan(m, func(tr matrix.Transition) { got = append(got, tr) })
	}
	assert.Equal(t, []matrix.Transition{{Key: 0, Edge: matrix.EdgePress}}, got)
	assert.Zero(t, m.Pending(0))
}

func TestScannerOverrides(t *testing.T) {
	s := matrix.NewScanner(1, 3)
	s.SetPressed(2, true)
	assert.True(t, s.Pressed(2))
	s.ReleaseAll()
	assert.False(t, s.Pressed(2))

	m := matrix.NewSimMatrix(1, 3)
	m.Hold(0, true)
	s.Scan(m, nil)
	assert.Equal(t, []uint8{0x02, 0, 0}, s.Histories())
	s.Reset()
	assert.Equal(t, matrix.Register{}, s.Cell(0))
}
