// Package sizeclass builds the tiny/small size-class table: 46
// ascending class sizes from 16 bytes in 16-byte steps up through
// 256 bytes, then geometrically widening to 2608 bytes, with the last
// two entries duplicated as sentinel padding. A 16-entry lookup table
// covers the fast path for requests that land in the fixed 16-byte-step
// region; everything above it falls back to a SuitableSize-style
// binary search over the class table.
package sizeclass

import "math"

// NumClasses is the total number of size classes.
const NumClasses = 46

// LinearClasses is the count of classes on the fixed 16-byte-step ramp
// (16, 32, ..., 256).
const LinearClasses = 16

// LinearStep is the granularity of the fixed-step region.
const LinearStep = int64(16)

// LinearMax is the largest size served by the fixed-step region.
const LinearMax = LinearStep * LinearClasses // 256

// MaxSmallBlockSize is the largest request the small/tiny tier will
// serve.
const MaxSmallBlockSize = int64(2608)

// Table holds the ascending class sizes plus the fast lookup table for
// the fixed-step region.
type Table struct {
	Classes []int64 // NumClasses entries, ascending, last two equal MaxSmallBlockSize
	lookup  [LinearClasses]int8
}

// Build constructs the standard size-class table.
func Build() *Table {
	classes := make([]int64, 0, NumClasses)
	for s := LinearStep; s <= LinearMax; s += LinearStep {
		classes = append(classes, s)
	}

	// Geometric ramp from LinearMax to MaxSmallBlockSize: NumClasses -
	// LinearClasses - 2 distinct steps (the final two entries duplicate
	// the top of the ramp as sentinel padding).
	steps := NumClasses - LinearClasses - 2
	prev := LinearMax
	for i := 1; i <= steps; i++ {
		v := geometricStep(LinearMax, MaxSmallBlockSize, steps, i)
		v = roundUp16(v)
		if v <= prev {
			v = prev + LinearStep
		}
		if i == steps || v > MaxSmallBlockSize {
			v = MaxSmallBlockSize
		}
		classes = append(classes, v)
		prev = v
	}
	// sentinel padding
	classes = append(classes, MaxSmallBlockSize, MaxSmallBlockSize)

	t := &Table{Classes: classes}
	for i := 0; i < LinearClasses; i++ {
		t.lookup[i] = int8(i)
	}
	return t
}

// geometricStep computes the i-th of `steps` geometrically spaced sizes
// between lo and hi (exclusive of lo, inclusive of hi at i==steps).
func geometricStep(lo, hi int64, steps, i int) int64 {
	if steps <= 0 {
		return hi
	}
	ratio := float64(hi) / float64(lo)
	frac := float64(i) / float64(steps)
	return int64(float64(lo) * math.Pow(ratio, frac))
}

func roundUp16(v int64) int64 {
	if r := v % LinearStep; r != 0 {
		v += LinearStep - r
	}
	return v
}

// ClassFor returns the index of the smallest class able to hold `n`
// bytes (n already includes header overhead), or -1 if n exceeds
// MaxSmallBlockSize.
func (t *Table) ClassFor(n int64) int {
	if n <= 0 {
		n = 1
	}
	if n <= LinearMax {
		idx := (n + LinearStep - 1) / LinearStep
		return int(t.lookup[idx-1])
	}
	if n > MaxSmallBlockSize {
		return -1
	}
	return suitableIndex(t.Classes, n)
}

// suitableIndex is a SuitableSize-style binary search over the
// ascending class table, generalized to return an index instead of a
// size.
func suitableIndex(classes []int64, n int64) int {
	lo, hi := 0, len(classes)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if classes[mid] < n {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
