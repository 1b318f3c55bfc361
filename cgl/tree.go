package cgl

import (
	"container/heap"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"gonum.org/v1/gonum/mat"
)

//TreeParams collect the arguments required to grow a classification tree.
type TreeParams struct {
	//Matrix holds the immutable training samples and their class labels.
	Matrix CMatrix
	//Attributes describes the feature columns; nil means all numeric.
	Attributes []Attribute
	//MaxNodes is the maximum number of leaves, at least 2.
	MaxNodes int
	//NodeSize is the minimum weighted sample count of a leaf; 0 means 1.
	NodeSize int
	//Mtry is the number of attributes searched per split; 0 means all of
	//them (plain decision tree), less than the attribute count enables
	//random-forest style subsampling.
	Mtry int
	//Rule selects the impurity criterion.
	Rule SplitRule
	//Samples is the per-sample multiplicity vector from bootstrap
	//resampling; nil means every sample once.
	Samples []int
	//Order is a precomputed result of BuildOrder, reusable across the
	//trees of an ensemble; nil means the tree builds its own.
	Order [][]int
	//Threads bounds the per-attribute split search fan-out; values below
	//2 search sequentially.
	Threads int
	//DepthFirst grows by recursion instead of the gain-ordered frontier
	//queue. MaxNodes does not bound depth-first growth.
	DepthFirst bool
}

//Tree is a finalized classification tree.
type Tree struct {
	Attributes []Attribute `json:"attributes"`
	K          int         `json:"k"`
	Rule       SplitRule   `json:"rule"`
	TreeRoot   *Node       `json:"root"`
	VarImp     []float64   `json:"importance"`
}

//NewTree grows a classification tree with at most params.MaxNodes leaves.
//All configuration errors are rejected here, before any growth starts.
func NewTree(params TreeParams) (*Tree, error) {
	features := params.Matrix.Features
	labels := params.Matrix.Labels

	if features == nil {
		return nil, fmt.Errorf("no feature matrix")
	}
	h, p := features.Dims()
	if h != len(labels) {
		return nil, fmt.Errorf("the sizes of features and labels don't match: %d != %d", h, len(labels))
	}

	if params.MaxNodes < 2 {
		return nil, fmt.Errorf("invalid maximum leaves: %d", params.MaxNodes)
	}

	nodeSize := params.NodeSize
	if nodeSize == 0 {
		nodeSize = 1
	}
	if nodeSize < 1 {
		return nil, fmt.Errorf("invalid minimum size of leaf nodes: %d", params.NodeSize)
	}

	mtry := params.Mtry
	if mtry == 0 {
		mtry = p
	}
	if mtry < 1 || mtry > p {
		return nil, fmt.Errorf("invalid number of variables to split on: %d", params.Mtry)
	}

	k, err := classCount(labels)
	if err != nil {
		return nil, err
	}

	attributes := params.Attributes
	if attributes == nil {
		attributes = NumericAttributes(p)
	}
	if len(attributes) != p {
		return nil, fmt.Errorf("the schema has %d attributes, the feature matrix %d columns", len(attributes), p)
	}

	samples := params.Samples
	allPresent := true
	count := make([]int, k)
	if samples == nil {
		samples = make([]int, h)
		for i := range samples {
			samples[i] = 1
			count[labels[i]]++
		}
	} else {
		if len(samples) != h {
			return nil, fmt.Errorf("the sizes of samples and labels don't match: %d != %d", len(samples), h)
		}
		for i, s := range samples {
			if s < 0 {
				return nil, fmt.Errorf("negative sample multiplicity: %d", s)
			}
			count[labels[i]] += s
			if s == 0 {
				allPresent = false
			}
		}
	}

	order := params.Order
	if order == nil {
		order = BuildOrder(features, attributes)
	}

	oi := &orderIndex{order: order}
	oi.compress(samples, params.Order != nil, allPresent)

	b := &builder{
		features:   features,
		labels:     labels,
		samples:    samples,
		attributes: attributes,
		k:          k,
		rule:       params.Rule,
		nodeSize:   nodeSize,
		maxNodes:   params.MaxNodes,
		mtry:       mtry,
		threads:    params.Threads,
		oi:         oi,
		importance: make([]float64, p),
	}

	posterior := make([]float64, k)
	for q := 0; q < k; q++ {
		posterior[q] = float64(count[q]) / float64(h)
	}
	root := newLeaf(whichMax(count), posterior)

	trainRoot := &trainNode{b: b, node: root, low: 0, high: len(oi.original)}

	if params.DepthFirst {
		if trainRoot.findBestSplit() {
			trainRoot.split(nil)
		}
	} else {
		nextSplits := &frontier{}
		if trainRoot.findBestSplit() {
			heap.Push(nextSplits, trainRoot)
		}

		//Pop the best pending leaf, split it and push its children back,
		//until the leaf budget is exhausted.
		for leaves := 1; leaves < b.maxNodes; leaves++ {
			if nextSplits.Len() == 0 {
				break
			}
			pending := heap.Pop(nextSplits).(*trainNode)
			pending.split(nextSplits)
		}
	}

	return &Tree{
		Attributes: attributes,
		K:          k,
		Rule:       params.Rule,
		TreeRoot:   root,
		VarImp:     b.importance,
	}, nil
}

//classCount validates the label vector and returns the number of classes.
//Labels must cover the contiguous range [0, k) with k >= 2; a gap in the
//range is an encoding error of the caller.
func classCount(labels []int) (int, error) {
	maxLabel := -1
	for _, y := range labels {
		if y < 0 {
			return 0, fmt.Errorf("negative class label: %d", y)
		}
		if y > maxLabel {
			maxLabel = y
		}
	}

	seen := make([]int, maxLabel+1)
	for _, y := range labels {
		seen[y]++
	}
	for y, c := range seen {
		if c == 0 {
			return 0, fmt.Errorf("missing class: %d", y)
		}
	}

	k := maxLabel + 1
	if k < 2 {
		return 0, fmt.Errorf("only one class")
	}
	return k, nil
}

//Root exposes the finalized tree for external traversal and rendering.
func (t *Tree) Root() *Node {
	return t.TreeRoot
}

//Predict returns the predicted class of one sample vector.
func (t *Tree) Predict(x []float64) int {
	return t.TreeRoot.predict(t.Attributes, x)
}

//PredictPosterior returns the predicted class of one sample vector and
//copies the leaf's posterior distribution into posterior, which must have
//length k. The posterior is estimated from smoothed sample ratios in the
//leaf; it is mainly useful when trees are averaged in an ensemble.
func (t *Tree) PredictPosterior(x []float64, posterior []float64) int {
	return t.TreeRoot.predictPosterior(t.Attributes, x, posterior)
}

//PredictAll predicts the class of every row of a feature matrix and
//returns them as a column.
func (t *Tree) PredictAll(features *mat.Dense) *mat.Dense {
	h := Height(features)
	prediction := mat.NewDense(h, 1, nil)
	for p := 0; p < h; p++ {
		prediction.Set(p, 0, float64(t.Predict(row(features, p))))
	}
	return prediction
}

//Importance returns the per-attribute variable importance: the sum of the
//impurity reduction of every finalized split on that attribute.
func (t *Tree) Importance() []float64 {
	return t.VarImp
}

//MaxDepth returns the number of nodes along the longest path from the
//root down to the farthest leaf.
func (t *Tree) MaxDepth() int {
	return t.TreeRoot.depth()
}

//Save stores the tree as an indented JSON file.
func (t *Tree) Save(filename string) {
	dest, err := os.Create(filename)
	if err != nil {
		log.Print("can't open file ", filename, " to write")
	}
	HandleError(err)
	defer func() { HandleError(dest.Close()) }()

	treeByteRepr, err := json.MarshalIndent(t, "", "  ")
	HandleError(err)

	_, err = dest.Write(treeByteRepr)
	HandleError(err)
}

//LoadTree reads a tree saved by Save.
func LoadTree(filename string) (tree Tree) {
	source, err := os.Open(filename)
	HandleError(err)
	defer func() { HandleError(source.Close()) }()

	decoder := json.NewDecoder(source)
	HandleError(decoder.Decode(&tree))
	return
}
