// Package model_selection provides seeded train/test splitting and k-fold
// cross-validation.
package model_selection

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-obesity/pkg/errors"
)

// Split holds the two parts of a train/test split. The index slices refer
// to rows of the original matrices.
type Split struct {
	XTrain, XTest *mat.Dense
	YTrain, YTest *mat.Dense

	TrainIndices []int
	TestIndices  []int
}

// TrainTestSplit shuffles the rows with PCG(seed, seed) and puts the first
// ceil(n*testSize) permuted rows into the test part. testSize must lie in
// (0, 1) and both parts must be non-empty.
func TrainTestSplit(X, y mat.Matrix, testSize float64, seed uint64) (*Split, error) {
	if X == nil || y == nil {
		return nil, errors.NewValueError("TrainTestSplit", "nil matrix")
	}
	n, _ := X.Dims()
	yRows, _ := y.Dims()
	if n != yRows {
		return nil, errors.NewDimensionError("TrainTestSplit", n, yRows, 0)
	}
	if testSize <= 0 || testSize >= 1 || math.IsNaN(testSize) {
		return nil, errors.NewValidationError("test_size", "must be in (0, 1)", testSize)
	}

	nTest := int(math.Ceil(float64(n) * testSize))
	if nTest == 0 || nTest >= n {
		return nil, errors.NewValueError("TrainTestSplit",
			"with n_samples and test_size the resulting train set would be empty")
	}

	r := rand.New(rand.NewPCG(seed, seed))
	perm := r.Perm(n)

	s := &Split{
		TestIndices:  append([]int(nil), perm[:nTest]...),
		TrainIndices: append([]int(nil), perm[nTest:]...),
	}
	s.XTrain = Take(X, s.TrainIndices)
	s.XTest = Take(X, s.TestIndices)
	s.YTrain = Take(y, s.TrainIndices)
	s.YTest = Take(y, s.TestIndices)
	return s, nil
}

// Take copies the given rows of m, in order, into a new matrix.
func Take(m mat.Matrix, rows []int) *mat.Dense {
	_, c := m.Dims()
	out := mat.NewDense(len(rows), c, nil)
	buf := make([]float64, c)
	for i, r := range rows {
		mat.Row(buf, r, m)
		out.SetRow(i, buf)
	}
	return out
}
