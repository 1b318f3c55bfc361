package cgl

import (
	"log"
	"sort"

	"gonum.org/v1/gonum/mat"
)

//columnArgsort returns the permutation of row indices that sorts one
//feature column in ascending order.
func columnArgsort(col mat.Vector) []int {
	h := col.Len()
	indices := make([]int, h)
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return col.AtVec(indices[a]) < col.AtVec(indices[b])
	})
	return indices
}

//BuildOrder computes, for every numeric attribute, the ascending-value
//permutation of sample indices. Nominal attributes get a nil entry; their
//splits are found by direct bucket counts instead of an ordered scan.
//The result can be shared across the trees of an ensemble: each tree
//copies it before mutating (see orderIndex.compress).
func BuildOrder(features *mat.Dense, attributes []Attribute) [][]int {
	_, p := features.Dims()
	order := make([][]int, p)
	for j := 0; j < p; j++ {
		if attributes[j].Kind == Numeric {
			order[j] = columnArgsort(features.ColView(j))
		}
	}
	return order
}

//orderIndex is the mutable training-time index over the samples: one
//ascending permutation per numeric attribute plus the original-order array
//of the active sample subset. During training the arrays are rearranged so
//that the samples of every frontier node occupy a contiguous range, all
//arrays referencing the same index set per range.
type orderIndex struct {
	order    [][]int
	original []int
}

//compress rewrites the index to cover only samples with a non-zero
//multiplicity, preserving relative order, and populates the original-order
//array. When mustCopy is set the order arrays are duplicated even if no
//sample is dropped, so a precomputed index shared with other trees is
//never mutated in place.
func (oi *orderIndex) compress(samples []int, mustCopy, allPresent bool) {
	p := len(oi.order)
	n := len(samples)

	if allPresent && mustCopy {
		orderCopy := make([][]int, p)
		for j := 0; j < p; j++ {
			if oi.order[j] != nil {
				orderCopy[j] = append([]int(nil), oi.order[j]...)
			}
		}
		oi.order = orderCopy
	}

	if !allPresent {
		presentCount := 0
		for i := 0; i < n; i++ {
			if samples[i] != 0 {
				presentCount++
			}
		}
		compressed := oi.order
		if mustCopy {
			compressed = make([][]int, p)
		}
		for j := 0; j < p; j++ {
			if oi.order[j] != nil {
				attributeOrder := oi.order[j]
				compressedOrder := make([]int, 0, presentCount)
				for _, o := range attributeOrder {
					if samples[o] != 0 {
						compressedOrder = append(compressedOrder, o)
					}
				}
				compressed[j] = compressedOrder
			}
		}
		oi.order = compressed

		oi.original = make([]int, 0, presentCount)
		for i := 0; i < n; i++ {
			if samples[i] != 0 {
				oi.original = append(oi.original, i)
			}
		}
	} else {
		oi.original = make([]int, n)
		for i := range oi.original {
			oi.original[i] = i
		}
	}
}

//partition rearranges the range [low, high) of every attribute order and
//of the original order so that all samples satisfying goesTrue come first,
//each side keeping its relative input order. split is the expected number
//of true-branch samples counted by the caller; buffer is scratch space for
//the false branch.
func (oi *orderIndex) partition(low, split, high int, goesTrue func(int) bool, buffer []int) {
	for _, attributeOrder := range oi.order {
		if attributeOrder != nil {
			partitionSlice(attributeOrder, low, split, high, goesTrue, buffer)
		}
	}
	partitionSlice(oi.original, low, split, high, goesTrue, buffer)
}

//partitionSlice stably partitions a[low:high] around the branch predicate.
//A realized count disagreeing with split means the predicate and the
//caller's bookkeeping diverged; continuing would corrupt every later
//split of the tree, so it is fatal.
func partitionSlice(a []int, low, split, high int, goesTrue func(int) bool, buffer []int) {
	j := low
	k := 0
	for i := low; i < high; i++ {
		if goesTrue(a[i]) {
			a[j] = a[i]
			j++
		} else {
			buffer[k] = a[i]
			k++
		}
	}
	if k != high-split || j != split {
		log.Panicf("inconsistent partition %d..%d..%d: split ended up at %d", low, split, high, j)
	}
	copy(a[split:high], buffer[:k])
}
