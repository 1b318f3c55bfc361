package cgl

import (
	"bytes"
	"encoding/json"
	"math"
	"path"
	"testing"

	"gonum.org/v1/gonum/mat"
)

//separableMatrix builds two linearly separable clusters of 50 points each
//on one numeric attribute, split exactly at 0.5.
func separableMatrix() CMatrix {
	raw := make([]float64, 100)
	labels := make([]int, 100)
	for i := 0; i < 100; i++ {
		if i < 50 {
			raw[i] = float64(i) * 0.01
		} else {
			raw[i] = 0.5 + float64(i-50)*0.01
			labels[i] = 1
		}
	}
	return CMatrix{Features: mat.NewDense(100, 1, raw), Labels: labels}
}

//threeClusterMatrix builds three separable clusters for a 3-class problem.
func threeClusterMatrix() CMatrix {
	raw := make([]float64, 30)
	labels := make([]int, 30)
	for i := 0; i < 10; i++ {
		raw[i] = float64(i) * 0.03
		raw[10+i] = 0.35 + float64(i)*0.03
		raw[20+i] = 0.7 + float64(i)*0.03
		labels[10+i] = 1
		labels[20+i] = 2
	}
	return CMatrix{Features: mat.NewDense(30, 1, raw), Labels: labels}
}

func leaves(node *Node) []*Node {
	if node.IsLeaf() {
		return []*Node{node}
	}
	return append(leaves(node.True), leaves(node.False)...)
}

func TestSeparableClusters(t *testing.T) {
	matrix := separableMatrix()

	tree, err := NewTree(TreeParams{Matrix: matrix, MaxNodes: 10})
	if err != nil {
		t.Fatal(err)
	}

	root := tree.Root()
	if root.IsLeaf() {
		t.Fatal("the root did not split")
	}
	if root.Feature != 0 {
		t.Errorf("root split feature is %d, want 0", root.Feature)
	}
	if root.Gain <= 0 {
		t.Errorf("root split gain is %g, want > 0", root.Gain)
	}
	if math.Abs(root.Value-0.495) > 1e-12 {
		t.Errorf("root split value is %g, want 0.495", root.Value)
	}

	for i := 0; i < 100; i++ {
		if got := tree.Predict(row(matrix.Features, i)); got != matrix.Labels[i] {
			t.Fatalf("sample %d predicted as %d, want %d", i, got, matrix.Labels[i])
		}
	}

	if depth := tree.MaxDepth(); depth != 2 {
		t.Errorf("tree depth is %d, want 2", depth)
	}
	if imp := tree.Importance(); imp[0] <= 0 {
		t.Errorf("importance of the split attribute is %g, want > 0", imp[0])
	}
}

func TestLeafPosteriorsAreSmoothed(t *testing.T) {
	matrix := separableMatrix()

	tree, err := NewTree(TreeParams{Matrix: matrix, MaxNodes: 10})
	if err != nil {
		t.Fatal(err)
	}

	for _, leaf := range leaves(tree.Root()) {
		sum := 0.0
		for _, p := range leaf.Posterior {
			if p <= 0 || p >= 1 {
				t.Errorf("posterior entry %g outside (0, 1)", p)
			}
			sum += p
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("leaf posterior sums to %g, want 1", sum)
		}
	}

	// 50 samples per side and add-one smoothing with k = 2.
	posterior := make([]float64, 2)
	if got := tree.PredictPosterior([]float64{0.1}, posterior); got != 0 {
		t.Fatalf("predicted class %d, want 0", got)
	}
	if math.Abs(posterior[0]-51.0/52.0) > 1e-12 || math.Abs(posterior[1]-1.0/52.0) > 1e-12 {
		t.Errorf("posterior is %v, want [51/52 1/52]", posterior)
	}
}

func TestLeafBudget(t *testing.T) {
	matrix := threeClusterMatrix()

	tree, err := NewTree(TreeParams{Matrix: matrix, MaxNodes: 2})
	if err != nil {
		t.Fatal(err)
	}
	if got := len(leaves(tree.Root())); got > 2 {
		t.Errorf("tree has %d leaves, budget was 2", got)
	}

	tree, err = NewTree(TreeParams{Matrix: matrix, MaxNodes: 10})
	if err != nil {
		t.Fatal(err)
	}
	if got := len(leaves(tree.Root())); got != 3 {
		t.Errorf("tree has %d leaves, want 3 for three separable clusters", got)
	}
	for i := 0; i < 30; i++ {
		if got := tree.Predict(row(matrix.Features, i)); got != matrix.Labels[i] {
			t.Fatalf("sample %d predicted as %d, want %d", i, got, matrix.Labels[i])
		}
	}
}

func TestMinimumLeafSizeHolds(t *testing.T) {
	raw := make([]float64, 40)
	labels := make([]int, 40)
	for i := 0; i < 40; i++ {
		raw[i] = float64(i) * 0.025
		if i >= 20 {
			labels[i] = 1
		}
	}
	// Two mislabeled points that would invite single-sample leaves.
	labels[5] = 1
	labels[30] = 0
	matrix := CMatrix{Features: mat.NewDense(40, 1, raw), Labels: labels}

	tree, err := NewTree(TreeParams{Matrix: matrix, MaxNodes: 16, NodeSize: 5})
	if err != nil {
		t.Fatal(err)
	}

	routed := make(map[*Node]int)
	for i := 0; i < 40; i++ {
		x := row(matrix.Features, i)
		node := tree.Root()
		for !node.IsLeaf() {
			if node.goesTrue(tree.Attributes, x) {
				node = node.True
			} else {
				node = node.False
			}
		}
		routed[node]++
	}

	total := 0
	for leaf, count := range routed {
		if count < 5 {
			t.Errorf("leaf %p holds %d training samples, want at least 5", leaf, count)
		}
		total += count
	}
	if total != 40 {
		t.Errorf("leaves hold %d training samples in total, want all 40", total)
	}
}

func TestConstantAttributeStaysLeaf(t *testing.T) {
	matrix := CMatrix{
		Features: mat.NewDense(6, 1, []float64{0.5, 0.5, 0.5, 0.5, 0.5, 0.5}),
		Labels:   []int{0, 1, 0, 1, 1, 1},
	}

	tree, err := NewTree(TreeParams{Matrix: matrix, MaxNodes: 10})
	if err != nil {
		t.Fatal(err)
	}
	if !tree.Root().IsLeaf() {
		t.Fatal("expected the root to stay a leaf")
	}
	if got := tree.Predict([]float64{0.5}); got != 1 {
		t.Errorf("predicted %d, want the majority class 1", got)
	}
}

func TestZeroWeightSamplesAreExcluded(t *testing.T) {
	raw := []float64{0.0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9}
	labels := []int{0, 0, 0, 1, 0, 1, 1, 1, 0, 1}
	samples := []int{1, 1, 1, 0, 1, 1, 1, 1, 0, 1}
	matrix := CMatrix{Features: mat.NewDense(10, 1, raw), Labels: labels}

	tree, err := NewTree(TreeParams{Matrix: matrix, MaxNodes: 10, Samples: samples})
	if err != nil {
		t.Fatal(err)
	}

	// The two contradicting points carry zero weight, so the clusters are
	// separable between 0.4 and 0.5.
	if root := tree.Root(); math.Abs(root.Value-0.45) > 1e-12 {
		t.Errorf("root split value is %g, want 0.45", root.Value)
	}
	for i, s := range samples {
		if s == 0 {
			continue
		}
		if got := tree.Predict(row(matrix.Features, i)); got != labels[i] {
			t.Errorf("sample %d predicted as %d, want %d", i, got, labels[i])
		}
	}
}

func TestRebuildIsDeterministic(t *testing.T) {
	matrix := threeClusterMatrix()

	first, err := NewTree(TreeParams{Matrix: matrix, MaxNodes: 8})
	if err != nil {
		t.Fatal(err)
	}
	second, err := NewTree(TreeParams{Matrix: matrix, MaxNodes: 8})
	if err != nil {
		t.Fatal(err)
	}
	third, err := NewTree(TreeParams{Matrix: matrix, MaxNodes: 8, Threads: 4})
	if err != nil {
		t.Fatal(err)
	}

	firstRepr, err := json.Marshal(first)
	if err != nil {
		t.Fatal(err)
	}
	secondRepr, err := json.Marshal(second)
	if err != nil {
		t.Fatal(err)
	}
	thirdRepr, err := json.Marshal(third)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(firstRepr, secondRepr) {
		t.Error("two sequential builds from the same data differ")
	}
	if !bytes.Equal(firstRepr, thirdRepr) {
		t.Error("parallel split search changed the tree")
	}
}

func TestDepthFirstGrowth(t *testing.T) {
	matrix := separableMatrix()

	tree, err := NewTree(TreeParams{Matrix: matrix, MaxNodes: 10, DepthFirst: true})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 100; i++ {
		if got := tree.Predict(row(matrix.Features, i)); got != matrix.Labels[i] {
			t.Fatalf("sample %d predicted as %d, want %d", i, got, matrix.Labels[i])
		}
	}
	if got := len(leaves(tree.Root())); got != 2 {
		t.Errorf("tree has %d leaves, want 2", got)
	}
}

func TestNominalAttributeTree(t *testing.T) {
	raw := []float64{
		0, 1.5,
		0, 2.5,
		0, 0.5,
		0, 1.0,
		1, 2.0,
		1, 0.7,
		1, 1.2,
		2, 2.2,
		2, 0.3,
		2, 1.8,
		1, 1.1,
		2, 0.9,
	}
	labels := []int{0, 0, 0, 0, 1, 1, 1, 1, 1, 1, 1, 1}
	matrix := CMatrix{Features: mat.NewDense(12, 2, raw), Labels: labels}
	attributes := []Attribute{
		{Name: "shape", Kind: Nominal, Values: []string{"dot", "dash", "wave"}},
		{Name: "size", Kind: Numeric},
	}

	tree, err := NewTree(TreeParams{Matrix: matrix, Attributes: attributes, MaxNodes: 6})
	if err != nil {
		t.Fatal(err)
	}

	root := tree.Root()
	if root.Feature != 0 || root.Value != 0 {
		t.Fatalf("root split is attribute %d at %g, want the nominal attribute at category 0", root.Feature, root.Value)
	}
	for i := 0; i < 12; i++ {
		if got := tree.Predict(row(matrix.Features, i)); got != labels[i] {
			t.Fatalf("sample %d predicted as %d, want %d", i, got, labels[i])
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	matrix := threeClusterMatrix()

	tree, err := NewTree(TreeParams{Matrix: matrix, MaxNodes: 10})
	if err != nil {
		t.Fatal(err)
	}

	filename := path.Join(t.TempDir(), "tree.json")
	tree.Save(filename)
	loaded := LoadTree(filename)

	if loaded.MaxDepth() != tree.MaxDepth() {
		t.Errorf("loaded tree depth is %d, want %d", loaded.MaxDepth(), tree.MaxDepth())
	}
	for i := 0; i < 30; i++ {
		x := row(matrix.Features, i)
		if loaded.Predict(x) != tree.Predict(x) {
			t.Fatalf("loaded tree disagrees on sample %d", i)
		}
	}
}

func TestConstructionRejections(t *testing.T) {
	good := separableMatrix()

	cases := []struct {
		name   string
		params TreeParams
	}{
		{"max nodes below two", TreeParams{Matrix: good, MaxNodes: 1}},
		{"negative node size", TreeParams{Matrix: good, MaxNodes: 4, NodeSize: -1}},
		{"mtry above attribute count", TreeParams{Matrix: good, MaxNodes: 4, Mtry: 5}},
		{"label gap", TreeParams{
			Matrix:   CMatrix{Features: mat.NewDense(4, 1, []float64{1, 2, 3, 4}), Labels: []int{0, 2, 0, 2}},
			MaxNodes: 4,
		}},
		{"single class", TreeParams{
			Matrix:   CMatrix{Features: mat.NewDense(3, 1, []float64{1, 2, 3}), Labels: []int{0, 0, 0}},
			MaxNodes: 4,
		}},
		{"negative label", TreeParams{
			Matrix:   CMatrix{Features: mat.NewDense(3, 1, []float64{1, 2, 3}), Labels: []int{0, -1, 1}},
			MaxNodes: 4,
		}},
		{"length mismatch", TreeParams{
			Matrix:   CMatrix{Features: mat.NewDense(3, 1, []float64{1, 2, 3}), Labels: []int{0, 1}},
			MaxNodes: 4,
		}},
		{"samples length mismatch", TreeParams{Matrix: good, MaxNodes: 4, Samples: []int{1, 1}}},
		{"negative multiplicity", TreeParams{Matrix: good, MaxNodes: 4, Samples: negativeSamples(100)}},
		{"schema width mismatch", TreeParams{Matrix: good, MaxNodes: 4, Attributes: NumericAttributes(3)}},
	}

	for _, tc := range cases {
		if _, err := NewTree(tc.params); err == nil {
			t.Errorf("%s: expected a construction error", tc.name)
		}
	}
}

func negativeSamples(h int) []int {
	samples := make([]int, h)
	for i := range samples {
		samples[i] = 1
	}
	samples[h/2] = -3
	return samples
}
