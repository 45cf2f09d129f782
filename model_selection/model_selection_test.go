package model_selection

import (
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-obesity/core/model"
	"github.com/YuminosukeSato/scigo-obesity/pkg/errors"
	"github.com/YuminosukeSato/scigo-obesity/sklearn/tree"
)

// indexed returns X whose only column is the row index and y = index % 2.
func indexed(n int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, 1, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		y.Set(i, 0, float64(i%2))
	}
	return X, y
}

func TestTrainTestSplit(t *testing.T) {
	X, y := indexed(10)

	s, err := TrainTestSplit(X, y, 0.2, 28)
	require.NoError(t, err)

	assert.Len(t, s.TestIndices, 2)
	assert.Len(t, s.TrainIndices, 8)

	perm := rand.New(rand.NewPCG(28, 28)).Perm(10)
	assert.Equal(t, perm[:2], s.TestIndices)
	assert.Equal(t, perm[2:], s.TrainIndices)

	// rows follow the index slices and stay paired with their labels
	for i, idx := range s.TrainIndices {
		assert.Equal(t, float64(idx), s.XTrain.At(i, 0))
		assert.Equal(t, float64(idx%2), s.YTrain.At(i, 0))
	}
	for i, idx := range s.TestIndices {
		assert.Equal(t, float64(idx), s.XTest.At(i, 0))
		assert.Equal(t, float64(idx%2), s.YTest.At(i, 0))
	}

	all := append(append([]int(nil), s.TrainIndices...), s.TestIndices...)
	sort.Ints(all)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, all)

	again, err := TrainTestSplit(X, y, 0.2, 28)
	require.NoError(t, err)
	assert.Equal(t, s.TestIndices, again.TestIndices, "same seed, same split")
}

func TestTrainTestSplit_CeilTestSize(t *testing.T) {
	X, y := indexed(11)
	s, err := TrainTestSplit(X, y, 0.2, 1)
	require.NoError(t, err)
	assert.Len(t, s.TestIndices, 3)
}

func TestTrainTestSplit_Errors(t *testing.T) {
	X, y := indexed(4)

	tests := []struct {
		name     string
		X, y     mat.Matrix
		testSize float64
	}{
		{"nil", nil, y, 0.2},
		{"row mismatch", X, mat.NewDense(3, 1, nil), 0.2},
		{"zero size", X, y, 0},
		{"full size", X, y, 1},
		{"empty train", mat.NewDense(1, 1, nil), mat.NewDense(1, 1, nil), 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := TrainTestSplit(tt.X, tt.y, tt.testSize, 0)
			assert.Error(t, err)
		})
	}

	_, err := TrainTestSplit(X, y, 1.5, 0)
	var vErr *errors.ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func TestKFold(t *testing.T) {
	X, y := indexed(7)

	folds := NewKFold(3, false, 0).Split(X, y)
	require.Len(t, folds, 3)
	assert.Equal(t, []int{0, 1, 2}, folds[0].TestIndices)
	assert.Equal(t, []int{3, 4}, folds[1].TestIndices)
	assert.Equal(t, []int{5, 6}, folds[2].TestIndices)
	assert.Equal(t, []int{0, 1, 2, 5, 6}, folds[1].TrainIndices)

	shuffled := NewKFold(3, true, 5).Split(X, y)
	var seen []int
	for _, f := range shuffled {
		seen = append(seen, f.TestIndices...)
		assert.Len(t, f.TrainIndices, 7-len(f.TestIndices))
	}
	sort.Ints(seen)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6}, seen)

	assert.Equal(t, 5, NewKFold(1, false, 0).GetNSplits())
}

func TestStratifiedKFold(t *testing.T) {
	X, y := indexed(12)

	folds := NewStratifiedKFold(3, true, 28).Split(X, y)
	require.Len(t, folds, 3)
	for _, f := range folds {
		require.Len(t, f.TestIndices, 4)
		ones := 0
		for _, idx := range f.TestIndices {
			ones += idx % 2
		}
		assert.Equal(t, 2, ones, "each fold keeps the class balance")
	}
}

func TestCrossValidate(t *testing.T) {
	X := mat.NewDense(12, 1, nil)
	y := mat.NewDense(12, 1, nil)
	for i := 0; i < 12; i++ {
		X.Set(i, 0, float64(i))
		if i >= 6 {
			y.Set(i, 0, 1)
		}
	}

	newModel := func() model.Classifier { return tree.NewDecisionTreeClassifier() }
	res, err := CrossValidate(newModel, X, y, NewStratifiedKFold(3, true, 28), 2)
	require.NoError(t, err)

	assert.Len(t, res.TestScores, 3)
	for _, s := range res.TrainScores {
		assert.Equal(t, 1.0, s)
	}
	assert.GreaterOrEqual(t, res.GetMeanScore(), 0.5)
	assert.GreaterOrEqual(t, res.GetStdScore(), 0.0)

	_, err = CrossValidate(newModel, mat.NewDense(2, 1, nil), mat.NewDense(2, 1, nil), NewKFold(3, false, 0), 1)
	assert.Error(t, err)
}

func TestCVResult_Stats(t *testing.T) {
	res := &CVResult{TestScores: []float64{0.8, 0.9, 1.0}}
	assert.InDelta(t, 0.9, res.GetMeanScore(), 1e-12)
	assert.InDelta(t, 0.1, res.GetStdScore(), 1e-12)
	assert.Equal(t, 0.0, (&CVResult{}).GetMeanScore())
}
