package cgl

import (
	"math"
	"testing"
)

func TestImpurityPureHistogram(t *testing.T) {
	count := []int{10, 0}

	for _, rule := range []SplitRule{Gini, Entropy, ClassificationError} {
		if impurity := Impurity(rule, count, 10); impurity != 0 {
			t.Errorf("rule %v: impurity of a pure histogram is %g, want 0", rule, impurity)
		}
	}
}

func TestImpurityBalancedHistogram(t *testing.T) {
	count := []int{5, 5}

	if impurity := Impurity(Gini, count, 10); math.Abs(impurity-0.5) > 1e-12 {
		t.Errorf("gini of a balanced histogram is %g, want 0.5", impurity)
	}
	if impurity := Impurity(Entropy, count, 10); math.Abs(impurity-1.0) > 1e-12 {
		t.Errorf("entropy of a balanced histogram is %g, want 1", impurity)
	}
	if impurity := Impurity(ClassificationError, count, 10); math.Abs(impurity-0.5) > 1e-12 {
		t.Errorf("classification error of a balanced histogram is %g, want 0.5", impurity)
	}
}

func TestImpuritySkewedHistogram(t *testing.T) {
	count := []int{2, 6}

	if impurity := Impurity(Gini, count, 8); math.Abs(impurity-0.375) > 1e-12 {
		t.Errorf("gini is %g, want 0.375", impurity)
	}
	wantEntropy := -0.25*math.Log2(0.25) - 0.75*math.Log2(0.75)
	if impurity := Impurity(Entropy, count, 8); math.Abs(impurity-wantEntropy) > 1e-12 {
		t.Errorf("entropy is %g, want %g", impurity, wantEntropy)
	}
	if impurity := Impurity(ClassificationError, count, 8); math.Abs(impurity-0.25) > 1e-12 {
		t.Errorf("classification error is %g, want 0.25", impurity)
	}
}

func TestParseSplitRule(t *testing.T) {
	for _, rule := range []SplitRule{Gini, Entropy, ClassificationError} {
		parsed, err := ParseSplitRule(rule.String())
		if err != nil {
			t.Fatalf("can't parse %q back: %v", rule.String(), err)
		}
		if parsed != rule {
			t.Errorf("parsed %q into %v, want %v", rule.String(), parsed, rule)
		}
	}

	if _, err := ParseSplitRule("chi_squared"); err == nil {
		t.Error("expected an error for an unknown rule name")
	}
}

func TestWhichMaxTakesFirstOnTies(t *testing.T) {
	if got := whichMax([]int{3, 7, 7, 1}); got != 1 {
		t.Errorf("whichMax returned %d, want 1", got)
	}
}
