package cgl

import (
	"container/heap"
	"log"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

//builder owns the mutable state of one tree construction: the training
//data, the order index, the configured limits and the importance
//accumulator. It is discarded once the tree is finalized.
type builder struct {
	features   *mat.Dense
	labels     []int
	samples    []int
	attributes []Attribute
	k          int
	rule       SplitRule
	nodeSize   int
	maxNodes   int
	mtry       int
	threads    int
	oi         *orderIndex
	importance []float64
}

//trainNode is a frontier node: a tree node plus its backing sample range
//[low, high) in the order index, carrying the best split found for that
//range. It is consumed exactly once, either expanded into two children or
//left as a leaf.
type trainNode struct {
	b         *builder
	node      *Node
	low, high int
}

//frontier is a max-heap of pending splits ordered by gain.
type frontier []*trainNode

func (f frontier) Len() int           { return len(f) }
func (f frontier) Less(a, b int) bool { return f[a].node.Gain > f[b].node.Gain }
func (f frontier) Swap(a, b int)      { f[a], f[b] = f[b], f[a] }

func (f *frontier) Push(x interface{}) {
	*f = append(*f, x.(*trainNode))
}

func (f *frontier) Pop() interface{} {
	old := *f
	last := old[len(old)-1]
	*f = old[:len(old)-1]
	return last
}

//adopt merges one attribute's candidate into the node, keeping the first
//strictly greater gain.
func (tn *trainNode) adopt(split candidateSplit) {
	if split.gain > tn.node.Gain {
		tn.node.Feature = split.feature
		tn.node.Value = split.value
		tn.node.Gain = split.gain
		tn.node.trueOutput = split.trueOutput
		tn.node.falseOutput = split.falseOutput
	}
}

//findBestSplit computes the best split of the node's range, if any.
//Pure nodes and nodes at or below the minimum leaf size are not split.
//With mtry below the attribute count a random subset of attributes is
//searched sequentially; otherwise all attributes are searched, fanned out
//to worker tasks when the builder is configured with more than one thread.
func (tn *trainNode) findBestSplit() bool {
	b := tn.b

	label := -1
	pure := true
	for i := tn.low; i < tn.high; i++ {
		o := b.oi.original[i]
		if label == -1 {
			label = b.labels[o]
		} else if b.labels[o] != label {
			pure = false
			break
		}
	}
	if pure {
		return false
	}

	count := make([]int, b.k)
	n := 0
	for i := tn.low; i < tn.high; i++ {
		o := b.oi.original[i]
		s := b.samples[o]
		n += s
		count[b.labels[o]] += s
	}

	if n <= b.nodeSize {
		return false
	}

	impurity := Impurity(b.rule, count, n)
	p := len(b.attributes)

	if b.mtry < p {
		//Random-forest mode: the ensemble is already parallel, so the
		//subset is searched sequentially.
		variables := rand.Perm(p)
		falseCount := make([]int, b.k)
		for j := 0; j < b.mtry; j++ {
			tn.adopt(b.findSplit(n, tn.low, tn.high, count, falseCount, impurity, variables[j]))
		}
	} else {
		for _, split := range b.searchAll(n, tn.low, tn.high, count, impurity) {
			tn.adopt(split)
		}
	}

	return tn.node.Feature != -1
}

//searchAll evaluates every attribute over the range, in parallel when the
//builder has more than one thread. The workers only read shared state and
//each writes its own result slot; a failed pool is retried sequentially
//with identical results.
func (b *builder) searchAll(n, low, high int, count []int, impurity float64) []candidateSplit {
	p := len(b.attributes)
	result := make([]candidateSplit, p)

	search := func(j int) candidateSplit {
		falseCount := make([]int, b.k)
		return b.findSplit(n, low, high, count, falseCount, impurity, j)
	}

	if b.threads <= 1 {
		for j := 0; j < p; j++ {
			result[j] = search(j)
		}
		return result
	}

	pool := NewPool(b.threads)
	for j := 0; j < p; j++ {
		pool.AddTask(&taskFindSplit{result, j, search})
	}
	pool.Close()
	pool.WaitAll()

	if pool.Failed() {
		for j := 0; j < p; j++ {
			result[j] = search(j)
		}
	}

	return result
}

//split finalizes the node's pending split: it partitions the range,
//creates the two children with smoothed posteriors, accounts the gain to
//the importance vector and evaluates each child's own best split. Children
//with a usable split are pushed onto nextSplits; a nil queue grows
//depth-first by immediate recursion instead.
func (tn *trainNode) split(nextSplits *frontier) bool {
	b := tn.b
	node := tn.node
	if node.Feature < 0 {
		log.Panic("cannot split a node without a usable feature")
	}

	var goesTrue func(int) bool
	switch b.attributes[node.Feature].Kind {
	case Nominal:
		goesTrue = func(o int) bool { return b.features.At(o, node.Feature) == node.Value }
	case Numeric:
		goesTrue = func(o int) bool { return b.features.At(o, node.Feature) <= node.Value }
	default:
		log.Panicf("unsupported attribute kind: %d", b.attributes[node.Feature].Kind)
	}

	tc, fc := 0, 0
	truePosterior := make([]float64, b.k)
	falsePosterior := make([]float64, b.k)
	split := tn.low
	for i := tn.low; i < tn.high; i++ {
		o := b.oi.original[i]
		yi := b.labels[o]
		s := b.samples[o]
		if goesTrue(o) {
			tc += s
			truePosterior[yi] += float64(s)
			split++
		} else {
			fc += s
			falsePosterior[yi] += float64(s)
		}
	}

	//The gain was estimated before partitioning; if a realized child falls
	//below the minimum leaf size the node reverts to a leaf.
	if tc < b.nodeSize || fc < b.nodeSize {
		node.Feature = -1
		node.Value = 0
		node.Gain = 0
		return false
	}

	// add-one smoothing of the children's posterior probabilities
	for q := 0; q < b.k; q++ {
		truePosterior[q] = (truePosterior[q] + 1) / float64(tc+b.k)
		falsePosterior[q] = (falsePosterior[q] + 1) / float64(fc+b.k)
	}

	node.True = newLeaf(node.trueOutput, truePosterior)
	node.False = newLeaf(node.falseOutput, falsePosterior)

	buffer := make([]int, tn.high-split)
	b.oi.partition(tn.low, split, tn.high, goesTrue, buffer)

	trueChild := &trainNode{b: b, node: node.True, low: tn.low, high: split}
	if tc > b.nodeSize && trueChild.findBestSplit() {
		if nextSplits != nil {
			heap.Push(nextSplits, trueChild)
		} else {
			trueChild.split(nil)
		}
	}

	falseChild := &trainNode{b: b, node: node.False, low: split, high: tn.high}
	if fc > b.nodeSize && falseChild.findBestSplit() {
		if nextSplits != nil {
			heap.Push(nextSplits, falseChild)
		} else {
			falseChild.split(nil)
		}
	}

	b.importance[node.Feature] += node.Gain

	return true
}
