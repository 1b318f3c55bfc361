package cgl

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

//ForestParams collect the arguments required to train a bagged ensemble
//of classification trees.
type ForestParams struct {
	Matrix     CMatrix
	Attributes []Attribute
	//Trees is the ensemble size; 0 means 100.
	Trees int
	//MaxNodes, NodeSize and Rule are passed through to every tree.
	MaxNodes int
	NodeSize int
	Rule     SplitRule
	//Mtry is the attribute subsample per split; 0 means floor(sqrt(p)).
	Mtry int
	//Workers bounds the number of trees trained concurrently; values
	//below 2 train sequentially.
	Workers int
	//Seed makes the bootstrap draws reproducible.
	Seed int64
}

//Forest is a bagged ensemble of classification trees sharing one
//precomputed order index. Every member draws its own bootstrap
//multiplicity vector, so each tree compacts a private copy of the index
//and the shared base is never mutated.
type Forest struct {
	Trees []*Tree `json:"trees"`
	K     int     `json:"k"`
	OOB   float64 `json:"oob"`
	imp   []float64
}

//NewForest trains a random forest.
func NewForest(params ForestParams) (*Forest, error) {
	features := params.Matrix.Features
	labels := params.Matrix.Labels
	if features == nil {
		return nil, fmt.Errorf("no feature matrix")
	}
	h, p := features.Dims()

	trees := params.Trees
	if trees == 0 {
		trees = 100
	}
	if trees < 1 {
		return nil, fmt.Errorf("invalid ensemble size: %d", params.Trees)
	}

	mtry := params.Mtry
	if mtry == 0 {
		mtry = int(math.Sqrt(float64(p)))
		if mtry < 1 {
			mtry = 1
		}
	}

	attributes := params.Attributes
	if attributes == nil {
		attributes = NumericAttributes(p)
	}

	order := BuildOrder(features, attributes)

	forest := &Forest{Trees: make([]*Tree, trees)}
	multiplicities := make([][]int, trees)

	var group errgroup.Group
	if params.Workers > 1 {
		group.SetLimit(params.Workers)
	} else {
		group.SetLimit(1)
	}

	for b := 0; b < trees; b++ {
		b := b
		group.Go(func() error {
			rng := rand.New(rand.NewSource(params.Seed + int64(b)))
			samples := make([]int, h)
			for i := 0; i < h; i++ {
				samples[rng.Intn(h)]++
			}
			multiplicities[b] = samples

			tree, err := NewTree(TreeParams{
				Matrix:     params.Matrix,
				Attributes: attributes,
				MaxNodes:   params.MaxNodes,
				NodeSize:   params.NodeSize,
				Mtry:       mtry,
				Rule:       params.Rule,
				Samples:    samples,
				Order:      order,
			})
			if err != nil {
				return err
			}
			forest.Trees[b] = tree
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	forest.K = forest.Trees[0].K
	forest.OOB = forest.oobError(features, labels, multiplicities)

	forest.imp = make([]float64, p)
	for _, tree := range forest.Trees {
		for j, g := range tree.VarImp {
			forest.imp[j] += g
		}
	}
	for j := range forest.imp {
		forest.imp[j] /= float64(trees)
	}

	return forest, nil
}

//oobError estimates the generalization error by majority vote of the
//trees that did not see each sample in their bootstrap draw.
func (f *Forest) oobError(features *mat.Dense, labels []int, multiplicities [][]int) float64 {
	h := Height(features)
	wrong, voted := 0, 0

	votes := make([]int, f.K)
	for i := 0; i < h; i++ {
		for q := range votes {
			votes[q] = 0
		}
		x := row(features, i)
		seen := false
		for b, tree := range f.Trees {
			if multiplicities[b][i] == 0 {
				votes[tree.Predict(x)]++
				seen = true
			}
		}
		if !seen {
			continue
		}
		voted++
		if whichMax(votes) != labels[i] {
			wrong++
		}
	}

	if voted == 0 {
		return 0
	}
	return float64(wrong) / float64(voted)
}

//Predict returns the majority-vote class of one sample vector.
func (f *Forest) Predict(x []float64) int {
	votes := make([]int, f.K)
	for _, tree := range f.Trees {
		votes[tree.Predict(x)]++
	}
	return whichMax(votes)
}

//PredictPosterior averages the leaf posteriors of all trees into
//posterior and returns the class with the largest mean probability.
func (f *Forest) PredictPosterior(x []float64, posterior []float64) int {
	for q := range posterior {
		posterior[q] = 0
	}
	treePosterior := make([]float64, f.K)
	for _, tree := range f.Trees {
		tree.PredictPosterior(x, treePosterior)
		for q := range posterior {
			posterior[q] += treePosterior[q]
		}
	}
	best := 0
	for q := range posterior {
		posterior[q] /= float64(len(f.Trees))
		if posterior[q] > posterior[best] {
			best = q
		}
	}
	return best
}

//PredictAll predicts the class of every row of a feature matrix.
func (f *Forest) PredictAll(features *mat.Dense) *mat.Dense {
	h := Height(features)
	prediction := mat.NewDense(h, 1, nil)
	for p := 0; p < h; p++ {
		prediction.Set(p, 0, float64(f.Predict(row(features, p))))
	}
	return prediction
}

//Importance returns the mean per-attribute importance over the ensemble.
func (f *Forest) Importance() []float64 {
	return f.imp
}

//Save stores the forest as an indented JSON file.
func (f *Forest) Save(filename string) {
	dest, err := os.Create(filename)
	if err != nil {
		log.Print("can't open file ", filename, " to write")
	}
	HandleError(err)
	defer func() { HandleError(dest.Close()) }()

	forestByteRepr, err := json.MarshalIndent(f, "", "  ")
	HandleError(err)

	_, err = dest.Write(forestByteRepr)
	HandleError(err)
}

//LoadForest reads a forest saved by Save and rebuilds the mean
//importance vector from its trees.
func LoadForest(filename string) (forest Forest) {
	source, err := os.Open(filename)
	HandleError(err)
	defer func() { HandleError(source.Close()) }()

	decoder := json.NewDecoder(source)
	HandleError(decoder.Decode(&forest))

	if len(forest.Trees) > 0 {
		forest.imp = make([]float64, len(forest.Trees[0].VarImp))
		for _, tree := range forest.Trees {
			for j, g := range tree.VarImp {
				forest.imp[j] += g
			}
		}
		for j := range forest.imp {
			forest.imp[j] /= float64(len(forest.Trees))
		}
	}
	return
}
