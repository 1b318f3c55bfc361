package cgl

import (
	"log"
	"os"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

//CMatrix bundles the training inputs of one classification dataset:
//a feature matrix with one row per sample and the integer class labels.
//Labels must form the contiguous range [0, k); NewTree validates that.
type CMatrix struct {
	Features    *mat.Dense
	Labels      []int
	Description *string
}

//SetDescription attaches a description used in log messages.
func (cm *CMatrix) SetDescription(description string) {
	cm.Description = &description
}

//Height returns the number of rows of a matrix.
func Height(m mat.Matrix) int {
	h, _ := m.Dims()
	return h
}

//HandleError panics on a non-nil error. It is used for unrecoverable
//I/O failures in loaders and renderers.
func HandleError(err error) {
	if err != nil {
		log.Panic(err)
	}
}

//ReadCMatrix reads the two components of a dataset and unites them into
//one CMatrix object. Both files are npy arrays; labels are a column of
//class codes.
func ReadCMatrix(fileNameFeatures, fileNameLabels string) (cm CMatrix) {
	log.Print("\ttry to load features <", fileNameFeatures, ">")
	cm.Features = ReadNpy(fileNameFeatures)
	log.Print("\ttry to load labels <", fileNameLabels, ">")
	labelMat := ReadNpy(fileNameLabels)

	h := Height(labelMat)
	cm.Labels = make([]int, h)
	for p := 0; p < h; p++ {
		cm.Labels[p] = int(labelMat.At(p, 0))
	}

	return
}

//ReadNpy reads the content of an npy file into a dense matrix.
func ReadNpy(fileName string) (denseMat *mat.Dense) {
	f, err := os.Open(fileName)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { HandleError(f.Close()) }()

	r, err := npyio.NewReader(f)
	if err != nil {
		log.Fatal(err)
	}

	denseMat = &mat.Dense{}
	HandleError(r.Read(denseMat))
	return
}

//row copies row p of a feature matrix into a fresh slice.
func row(features *mat.Dense, p int) []float64 {
	_, w := features.Dims()
	x := make([]float64, w)
	mat.Row(x, p, features)
	return x
}
