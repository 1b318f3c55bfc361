package cgl

import "log"

//Node is one node of a finalized classification tree. A leaf carries the
//predicted class and the smoothed posterior distribution; an internal node
//carries the split attribute, the split value (threshold for numeric
//attributes, category code for nominal ones), the recorded gain and the
//two children. Feature is -1 on leaves.
type Node struct {
	Output    int       `json:"output"`
	Posterior []float64 `json:"posterior,omitempty"`
	Feature   int       `json:"feature"`
	Value     float64   `json:"value"`
	Gain      float64   `json:"gain"`
	True      *Node     `json:"true,omitempty"`
	False     *Node     `json:"false,omitempty"`

	//predicted outputs of the children, filled by the split search and
	//consumed when the split is finalized
	trueOutput  int
	falseOutput int
}

//newLeaf creates a leaf node with the given prediction and posterior.
func newLeaf(output int, posterior []float64) *Node {
	return &Node{Output: output, Posterior: posterior, Feature: -1}
}

//IsLeaf reports whether the node has no children.
func (node *Node) IsLeaf() bool {
	return node.True == nil && node.False == nil
}

//goesTrue evaluates the branch predicate of an internal node for one
//sample vector.
func (node *Node) goesTrue(attributes []Attribute, x []float64) bool {
	switch attributes[node.Feature].Kind {
	case Nominal:
		return x[node.Feature] == node.Value
	case Numeric:
		return x[node.Feature] <= node.Value
	}
	log.Panicf("unsupported attribute kind: %d", attributes[node.Feature].Kind)
	return false
}

//predict descends to a leaf and returns its predicted class.
func (node *Node) predict(attributes []Attribute, x []float64) int {
	if node.IsLeaf() {
		return node.Output
	}
	if node.goesTrue(attributes, x) {
		return node.True.predict(attributes, x)
	}
	return node.False.predict(attributes, x)
}

//predictPosterior descends to a leaf, copies its posterior distribution
//into posterior and returns the predicted class.
func (node *Node) predictPosterior(attributes []Attribute, x []float64, posterior []float64) int {
	if node.IsLeaf() {
		copy(posterior, node.Posterior)
		return node.Output
	}
	if node.goesTrue(attributes, x) {
		return node.True.predictPosterior(attributes, x, posterior)
	}
	return node.False.predictPosterior(attributes, x, posterior)
}

//depth returns the number of nodes on the longest path below node,
//including the node itself.
func (node *Node) depth() int {
	if node == nil {
		return 0
	}
	trueDepth := node.True.depth()
	falseDepth := node.False.depth()
	if trueDepth > falseDepth {
		return trueDepth + 1
	}
	return falseDepth + 1
}
