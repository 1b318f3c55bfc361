package cgl

import (
	"log"
	"math"

	"gorgonia.org/tensor"
)

//candidateSplit is the outcome of the split search for one attribute over
//one node range. feature stays -1 when no cut with strictly positive gain
//and both sides at the minimum leaf size exists.
type candidateSplit struct {
	feature     int
	value       float64
	gain        float64
	trueOutput  int
	falseOutput int
}

//findSplit searches the best cut point on attribute j for the node backed
//by [low, high). n is the weighted sample count of the node, count its
//class histogram and impurity its impurity under the configured rule.
//falseCount is scratch space of length k owned by the calling task.
func (b *builder) findSplit(n, low, high int, count, falseCount []int, impurity float64, j int) candidateSplit {
	split := candidateSplit{feature: -1}

	switch b.attributes[j].Kind {
	case Nominal:
		m := b.attributes[j].Size()
		trueCount := tensor.New(tensor.WithShape(m, b.k), tensor.Of(tensor.Int))

		for i := low; i < high; i++ {
			o := b.oi.original[i]
			l := int(b.features.At(o, j))
			element, err := trueCount.At(l, b.labels[o])
			HandleError(err)
			HandleError(trueCount.SetAt(element.(int)+b.samples[o], l, b.labels[o]))
		}

		trueBucket := make([]int, b.k)
		for l := 0; l < m; l++ {
			tc := 0
			for q := 0; q < b.k; q++ {
				element, err := trueCount.At(l, q)
				HandleError(err)
				trueBucket[q] = element.(int)
				tc += trueBucket[q]
			}
			fc := n - tc

			// Either side below the minimum leaf size: not a usable cut.
			if tc < b.nodeSize || fc < b.nodeSize {
				continue
			}

			for q := 0; q < b.k; q++ {
				falseCount[q] = count[q] - trueBucket[q]
			}

			gain := impurity -
				float64(tc)/float64(n)*Impurity(b.rule, trueBucket, tc) -
				float64(fc)/float64(n)*Impurity(b.rule, falseCount, fc)

			if gain > split.gain {
				split = candidateSplit{
					feature:     j,
					value:       float64(l),
					gain:        gain,
					trueOutput:  whichMax(trueBucket),
					falseOutput: whichMax(falseCount),
				}
			}
		}
	case Numeric:
		trueCount := make([]int, b.k)
		attributeOrder := b.oi.order[j]
		prevx := math.NaN()
		prevy := -1

		for i := low; i < high; i++ {
			o := attributeOrder[i]
			xoj := b.features.At(o, j)
			//A cut exists only between two distinct values carrying
			//different labels; runs of equal value or equal label only
			//accumulate the true-branch histogram.
			if math.IsNaN(prevx) || xoj == prevx || b.labels[o] == prevy {
				prevx = xoj
				prevy = b.labels[o]
				trueCount[b.labels[o]] += b.samples[o]
				continue
			}

			tc := sumOf(trueCount)
			fc := n - tc

			if tc < b.nodeSize || fc < b.nodeSize {
				prevx = xoj
				prevy = b.labels[o]
				trueCount[b.labels[o]] += b.samples[o]
				continue
			}

			for q := 0; q < b.k; q++ {
				falseCount[q] = count[q] - trueCount[q]
			}

			gain := impurity -
				float64(tc)/float64(n)*Impurity(b.rule, trueCount, tc) -
				float64(fc)/float64(n)*Impurity(b.rule, falseCount, fc)

			if gain > split.gain {
				split = candidateSplit{
					feature:     j,
					value:       (xoj + prevx) / 2,
					gain:        gain,
					trueOutput:  whichMax(trueCount),
					falseOutput: whichMax(falseCount),
				}
			}

			prevx = xoj
			prevy = b.labels[o]
			trueCount[b.labels[o]] += b.samples[o]
		}
	default:
		log.Panicf("unsupported attribute kind: %d", b.attributes[j].Kind)
	}

	return split
}

//sumOf returns the total of a histogram.
func sumOf(count []int) int {
	s := 0
	for _, c := range count {
		s += c
	}
	return s
}
