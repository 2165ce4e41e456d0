package firmware

// ReplayCapacity is the number of key events a recording can hold.
const ReplayCapacity = 255

// ReplayBuffer logs the physical key indices seen while recording. Events
// carry no direction; replay infers it from the key's pressed flag.
type ReplayBuffer struct {
	keys [ReplayCapacity]uint8
	n    int
}

// Record appends k. It returns false, leaving the buffer unchanged, once the
// buffer is full.
func (b *ReplayBuffer) Record(k int) bool {
	if b.n >= ReplayCapacity {
		return false
	}
	b.keys[b.n] = uint8(k)
	b.n++
	return true
}

// Len returns the number of recorded events.
func (b *ReplayBuffer) Len() int { return b.n }

// Reset empties the buffer.
func (b *ReplayBuffer) Reset() { b.n = 0 }

// Entries returns a copy of the recorded key indices in order.
func (b *ReplayBuffer) Entries() []int {
	out := make([]int, b.n)
	for i := range out {
		out[i] = int(b.keys[i])
	}
	return out
}
