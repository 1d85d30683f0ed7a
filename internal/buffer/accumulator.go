// Package buffer provides the growable receive buffer that framers carve messages from.
package buffer

// minCapacity is the first allocation made by an empty Accumulator.
const minCapacity = 32

// Accumulator is an append-only byte buffer. Consumed bytes are removed from the
// front by shifting the tail down, so Bytes always starts at the oldest unread byte.
// It is not safe for concurrent use; a connection owns exactly one.
type Accumulator struct {
	data   []byte // len(data) is the capacity
	length int
}

// Append copies p to the end of the valid region, doubling the capacity as needed.
func (a *Accumulator) Append(p []byte) {
	if len(p) == 0 {
		return
	}

	need := a.length + len(p)
	if need > len(a.data) {
		capacity := max(len(a.data), minCapacity)
		for capacity < need {
			capacity *= 2
		}
		grown := make([]byte, capacity)
		copy(grown, a.data[:a.length])
		a.data = grown
	}

	copy(a.data[a.length:], p)
	a.length = need
}

// Consume drops the first n bytes. n must not exceed Len.
func (a *Accumulator) Consume(n int) {
	if n < 0 || n > a.length {
		panic("buffer: consume out of range")
	}
	copy(a.data, a.data[n:a.length])
	a.length -= n
}

// Bytes returns the valid bytes. The slice aliases the internal storage and is
// only valid until the next Append or Consume.
func (a *Accumulator) Bytes() []byte {
	return a.data[:a.length]
}

// Len returns the number of valid bytes.
func (a *Accumulator) Len() int {
	return a.length
}

// Cap returns the number of allocated bytes.
func (a *Accumulator) Cap() int {
	return len(a.data)
}

// Reset forgets all valid bytes but keeps the allocation.
func (a *Accumulator) Reset() {
	a.length = 0
}
