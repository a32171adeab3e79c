package sizeclass

import "testing"

func TestBuildShape(t *testing.T) {
	tbl := Build()
	if len(tbl.Classes) != NumClasses {
		t.Fatalf("expected %v classes, got %v", NumClasses, len(tbl.Classes))
	}
	for i := 1; i < len(tbl.Classes); i++ {
		if tbl.Classes[i] < tbl.Classes[i-1] {
			t.Fatalf("classes must be non-decreasing: %v at %v < %v at %v",
				tbl.Classes[i], i, tbl.Classes[i-1], i-1)
		}
	}
	last := tbl.Classes[len(tbl.Classes)-1]
	secondLast := tbl.Classes[len(tbl.Classes)-2]
	if last != MaxSmallBlockSize || secondLast != MaxSmallBlockSize {
		t.Fatalf("expected last two classes to be sentinel %v, got %v %v",
			MaxSmallBlockSize, secondLast, last)
	}
	for i := 0; i < LinearClasses; i++ {
		want := LinearStep * int64(i+1)
		if tbl.Classes[i] != want {
			t.Fatalf("expected linear class %v == %v, got %v", i, want, tbl.Classes[i])
		}
	}
}

func TestClassForLinearRegion(t *testing.T) {
	tbl := Build()
	cases := []struct{ n, want int64 }{
		{1, 16}, {16, 16}, {17, 32}, {240, 240}, {241, 256}, {256, 256},
	}
	for _, c := range cases {
		idx := tbl.ClassFor(c.n)
		if idx < 0 || tbl.Classes[idx] != c.want {
			t.Fatalf("ClassFor(%v): expected class size %v, got index %v", c.n, c.want, idx)
		}
	}
}

func TestClassForGeometricRegion(t *testing.T) {
	tbl := Build()
	idx := tbl.ClassFor(257)
	if tbl.Classes[idx] < 257 {
		t.Fatalf("expected class size >= 257, got %v", tbl.Classes[idx])
	}
	idx = tbl.ClassFor(MaxSmallBlockSize)
	if tbl.Classes[idx] != MaxSmallBlockSize {
		t.Fatalf("expected exact fit at max, got %v", tbl.Classes[idx])
	}
	if tbl.ClassFor(MaxSmallBlockSize+1) != -1 {
		t.Fatalf("expected -1 beyond max small block size")
	}
}
