package cgl

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestColumnArgsort(t *testing.T) {
	f := mat.NewDense(5, 1, []float64{5.0, 4.0, 6.0, 1.0, 2.0})

	fAs := columnArgsort(f.ColView(0))

	if fAs[0] != 3 || fAs[1] != 4 || fAs[2] != 1 || fAs[3] != 0 || fAs[4] != 2 {
		t.Errorf("wrong argsort %v", fAs)
	}
}

func TestBuildOrderSkipsNominalAttributes(t *testing.T) {
	features := mat.NewDense(3, 2, []float64{
		2, 0,
		1, 1,
		3, 0,
	})
	attributes := []Attribute{
		{Name: "size", Kind: Numeric},
		{Name: "color", Kind: Nominal, Values: []string{"red", "blue"}},
	}

	order := BuildOrder(features, attributes)

	if order[0] == nil || order[1] != nil {
		t.Fatalf("expected an order array for the numeric attribute only, got %v", order)
	}
	if order[0][0] != 1 || order[0][1] != 0 || order[0][2] != 2 {
		t.Errorf("wrong numeric order %v", order[0])
	}
}

func TestPartitionSliceIsStable(t *testing.T) {
	a := []int{3, 8, 5, 2, 7, 4}
	buffer := make([]int, 3)

	partitionSlice(a, 0, 3, 6, func(o int) bool { return o%2 == 0 }, buffer)

	want := []int{8, 2, 4, 3, 5, 7}
	for i := range want {
		if a[i] != want[i] {
			t.Fatalf("partitioned array is %v, want %v", a, want)
		}
	}
}

func TestPartitionSlicePanicsOnInconsistentSplit(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic on an inconsistent split point")
		}
	}()

	a := []int{1, 2, 3, 4}
	buffer := make([]int, 4)
	// Two even elements, but the caller claims three.
	partitionSlice(a, 0, 3, 4, func(o int) bool { return o%2 == 0 }, buffer)
}

func TestCompressDropsZeroWeightSamples(t *testing.T) {
	features := mat.NewDense(5, 1, []float64{5.0, 4.0, 6.0, 1.0, 2.0})
	attributes := NumericAttributes(1)

	oi := &orderIndex{order: BuildOrder(features, attributes)}
	oi.compress([]int{1, 0, 1, 0, 1}, false, false)

	wantOriginal := []int{0, 2, 4}
	for i := range wantOriginal {
		if oi.original[i] != wantOriginal[i] {
			t.Fatalf("original order is %v, want %v", oi.original, wantOriginal)
		}
	}

	// Full order was [3 4 1 0 2]; dropping samples 1 and 3 keeps [4 0 2].
	wantOrder := []int{4, 0, 2}
	for i := range wantOrder {
		if oi.order[0][i] != wantOrder[i] {
			t.Fatalf("compressed order is %v, want %v", oi.order[0], wantOrder)
		}
	}
}

func TestCompressCopiesSharedOrder(t *testing.T) {
	features := mat.NewDense(4, 1, []float64{0.4, 0.1, 0.3, 0.2})
	attributes := NumericAttributes(1)

	shared := BuildOrder(features, attributes)
	keep := append([]int(nil), shared[0]...)

	oi := &orderIndex{order: shared}
	oi.compress([]int{1, 1, 1, 1}, true, true)
	oi.partition(0, 2, 4, func(o int) bool { return o >= 2 }, make([]int, 2))

	for i := range keep {
		if shared[0][i] != keep[i] {
			t.Fatalf("shared order was mutated: %v, want %v", shared[0], keep)
		}
	}
}
