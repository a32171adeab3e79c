// Package blockhdr centralizes the one piece of genuinely unsafe pointer
// arithmetic in the allocator: the tagged header word that sits
// immediately before every block returned to a caller.
//
// Every allocated region is preceded by one machine word. Its low 4 bits
// carry flags; the remaining bits carry either a byte size (medium/large
// blocks) or a pointer to the owning small-block pool (small/tiny
// blocks). Centralizing the load-at-ptr-minus-one-word discipline here
// means no other package reaches for unsafe.Pointer arithmetic on a
// caller-visible pointer directly.
package blockhdr

import "unsafe"

// Size is the width of the header word and the offset backward from a
// payload pointer to find it.
const Size = unsafe.Sizeof(uintptr(0))

// Flag bits packed into the low 4 bits of a header word.
type Flag uintptr

const (
	// IsFree marks a block as currently on a free list.
	IsFree Flag = 1 << 0
	// IsMedium marks a medium-tier block; clear means small (when
	// IsLarge is also clear) or large (when IsLarge is set).
	IsMedium Flag = 1 << 1
	// IsLarge marks a large-tier block when IsMedium is clear.
	IsLarge Flag = 1 << 2
	// SmallPoolInUse marks a medium block that hosts a small-block pool
	// (IsMedium set, same bit position as IsLarge).
	SmallPoolInUse Flag = 1 << 2
	// PrevMediumFree is set on a medium block when the immediately
	// preceding block in its super-pool is free.
	PrevMediumFree Flag = 1 << 3
	// LargeSegmented marks a large block whose backing VM was grown by
	// reserving a second, separately-mapped segment (Windows grow path).
	LargeSegmented Flag = 1 << 3

	flagMask = Flag(0xF)
)

// Header is the raw tagged word stored at payload-Size.
type Header uintptr

// At returns the address of the header immediately preceding payload.
func At(payload unsafe.Pointer) *Header {
	return (*Header)(unsafe.Pointer(uintptr(payload) - Size))
}

// Payload returns the payload pointer that follows this header, given the
// header's own address.
func Payload(hdr *Header) unsafe.Pointer {
	return unsafe.Pointer(uintptr(unsafe.Pointer(hdr)) + Size)
}

// Flags extracts the flag bits.
func (h Header) Flags() Flag {
	return Flag(uintptr(h) & uintptr(flagMask))
}

// Has reports whether every bit in f is set.
func (h Header) Has(f Flag) bool {
	return uintptr(h)&uintptr(f) == uintptr(f)
}

// WithFlags returns h with the given flag bits set, others in the mask
// left untouched.
func (h Header) WithFlags(f Flag) Header {
	return Header(uintptr(h) | uintptr(f))
}

// WithoutFlags returns h with the given flag bits cleared.
func (h Header) WithoutFlags(f Flag) Header {
	return Header(uintptr(h) &^ uintptr(f))
}

// PackSize builds a header word carrying `size` in the upper bits and
// `flags` in the low 4 bits, for medium and large blocks.
func PackSize(size int64, flags Flag) Header {
	return Header((uintptr(size) &^ uintptr(flagMask)) | uintptr(flags&flagMask))
}

// Size extracts the size field from a medium/large header.
func (h Header) Size() int64 {
	return int64(uintptr(h) &^ uintptr(flagMask))
}

// PackPool builds a header word carrying a pointer to the owning
// small-block pool in the upper bits and `flags` in the low 4 bits, for
// small and tiny blocks.
func PackPool(pool unsafe.Pointer, flags Flag) Header {
	return Header((uintptr(pool) &^ uintptr(flagMask)) | uintptr(flags&flagMask))
}

// Pool extracts the owning small-block pool pointer from a small/tiny
// header.
func (h Header) Pool() unsafe.Pointer {
	return unsafe.Pointer(uintptr(h) &^ uintptr(flagMask))
}
