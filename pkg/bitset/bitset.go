// Package bitset provides a fixed-capacity set of small integers backed by
// four 64-bit words.
package bitset

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
)

// Capacity is the number of addressable slots.
const Capacity = 256

const words = Capacity / 64

var (
	// ErrIndexOutOfRange is returned by Set for indices >= Capacity.
	ErrIndexOutOfRange = errors.New("bitset: index out of range")

	// ErrInvalidLength is returned by FromBytes for input that is not Capacity/8 bytes.
	ErrInvalidLength = errors.New("bitset: invalid encoded length")
)

// BitSet is a value type; copying it copies the bits.
type BitSet struct {
	w [words]uint64
}

// IsSet reports whether slot i is set. Out-of-range indices are never set.
func (b BitSet) IsSet(i uint32) bool {
	if i >= Capacity {
		return false
	}
	return b.w[i/64]&(1<<(i%64)) != 0
}

// Set marks slot i.
func (b *BitSet) Set(i uint32) error {
	if i >= Capacity {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	b.w[i/64] |= 1 << (i % 64)
	return nil
}

// Count returns the number of set slots.
func (b BitSet) Count() uint32 {
	var n int
	for _, w := range b.w {
		n += bits.OnesCount64(w)
	}
	return uint32(n)
}

// IsFull reports whether exactly the first n slots are set.
func (b BitSet) IsFull(n uint32) bool {
	if n > Capacity || b.Count() != n {
		return false
	}
	for i := uint32(0); i < n; i++ {
		if !b.IsSet(i) {
			return false
		}
	}
	return true
}

// Indices returns the set slots in ascending order.
func (b BitSet) Indices() []uint32 {
	out := make([]uint32, 0, b.Count())
	for wi, w := range b.w {
		for w != 0 {
			tz := bits.TrailingZeros64(w)
			out = append(out, uint32(wi*64+tz))
			w &= w - 1
		}
	}
	return out
}

// Bytes encodes the set as 32 little-endian bytes.
func (b BitSet) Bytes() []byte {
	out := make([]byte, words*8)
	for i, w := range b.w {
		binary.LittleEndian.PutUint64(out[i*8:], w)
	}
	return out
}

// FromBytes decodes the output of Bytes.
func FromBytes(p []byte) (BitSet, error) {
	var b BitSet
	if len(p) != words*8 {
		return b, fmt.Errorf("%w: %d", ErrInvalidLength, len(p))
	}
	for i := range b.w {
		b.w[i] = binary.LittleEndian.Uint64(p[i*8:])
	}
	return b, nil
}
