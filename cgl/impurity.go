package cgl

import (
	"fmt"
	"math"
)

//SplitRule is the criterion used to score candidate splits of a node.
type SplitRule int

const (
	//Gini impurity, used by the CART algorithm. It reaches its minimum (zero)
	//when all samples of a node fall into a single class.
	Gini SplitRule = iota
	//Entropy is the information gain criterion of the ID3/C4.5 family.
	Entropy
	//ClassificationError is one minus the frequency of the majority class.
	ClassificationError
)

//String returns the config-file name of a split rule.
func (r SplitRule) String() string {
	switch r {
	case Gini:
		return "gini"
	case Entropy:
		return "entropy"
	case ClassificationError:
		return "classification_error"
	}
	return fmt.Sprintf("SplitRule(%d)", int(r))
}

//ParseSplitRule converts a config-file name into a split rule.
func ParseSplitRule(name string) (SplitRule, error) {
	switch name {
	case "gini", "":
		return Gini, nil
	case "entropy":
		return Entropy, nil
	case "classification_error":
		return ClassificationError, nil
	}
	return Gini, fmt.Errorf("unknown split rule: %q", name)
}

//Impurity computes the impurity of a node from its class histogram count
//and the total weighted count n. Callers never pass n == 0.
func Impurity(rule SplitRule, count []int, n int) float64 {
	impurity := 0.0

	switch rule {
	case Gini:
		squaredSum := 0.0
		for _, c := range count {
			if c > 0 {
				squaredSum += float64(c) * float64(c)
			}
		}
		impurity = 1 - squaredSum/(float64(n)*float64(n))
	case Entropy:
		for _, c := range count {
			if c > 0 {
				p := float64(c) / float64(n)
				impurity -= p * math.Log2(p)
			}
		}
	case ClassificationError:
		impurity = math.Abs(1 - float64(maxOf(count))/float64(n))
	}

	return impurity
}

//maxOf returns the largest element of a histogram.
func maxOf(count []int) int {
	m := count[0]
	for _, c := range count[1:] {
		if c > m {
			m = c
		}
	}
	return m
}

//whichMax returns the index of the largest element of a histogram,
//the first one on ties.
func whichMax(count []int) int {
	best := 0
	for i, c := range count {
		if c > count[best] {
			best = i
		}
	}
	return best
}
