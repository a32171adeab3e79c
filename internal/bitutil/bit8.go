package bitutil

import "math/bits"

// Bit8 alias for uint8, provides bit twiddling methods on a single byte.
// No allocator tier uses it; the small-block pools keep an intrusive
// free chain instead.
type Bit8 uint8

// Ones counts the number of set bits.
func (b Bit8) Ones() int8 {
	return int8(bits.OnesCount8(uint8(b)))
}

// Zeros counts the number of unset bits.
func (b Bit8) Zeros() int8 {
	return 8 - b.Ones()
}

// Setbit returns b with bit n set.
func (b Bit8) Setbit(n uint8) Bit8 {
	return b | (1 << n)
}

// Clearbit returns b with bit n cleared.
func (b Bit8) Clearbit(n uint8) Bit8 {
	return b &^ (1 << n)
}

// Findfirstset returns the index of the lowest set bit, or -1 if b is zero.
func (b Bit8) Findfirstset() int8 {
	if b == 0 {
		return -1
	}
	return int8(bits.TrailingZeros8(uint8(b)))
}
