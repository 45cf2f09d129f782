package ensemble

import (
	"bytes"
	"encoding/gob"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-obesity/pkg/errors"
	"github.com/YuminosukeSato/scigo-obesity/pkg/log"
)

// blobs returns three well separated classes labelled 10, 20 and 30 with one
// informative feature and two noise features.
func blobs(n int, seed uint64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewPCG(seed, seed))
	X := mat.NewDense(n, 3, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		class := i % 3
		X.Set(i, 0, float64(class)*10+rng.Float64())
		X.Set(i, 1, rng.Float64())
		X.Set(i, 2, rng.Float64())
		y.Set(i, 0, float64(10*(class+1)))
	}
	return X, y
}

func TestRandomForestClassifier_FitPredict(t *testing.T) {
	X, y := blobs(60, 1)

	rf := NewRandomForestClassifier(WithNEstimators(25), WithRandomState(28))
	require.NoError(t, rf.Fit(X, y))

	assert.Equal(t, []float64{10, 20, 30}, rf.Classes())
	assert.Equal(t, 1.0, rf.Score(X, y))

	proba, err := rf.PredictProba(X)
	require.NoError(t, err)
	r, c := proba.Dims()
	assert.Equal(t, 60, r)
	assert.Equal(t, 3, c)
	for i := 0; i < r; i++ {
		assert.InDelta(t, 1.0, mat.Sum(proba.(*mat.Dense).RowView(i)), 1e-9)
	}

	imp := rf.GetFeatureImportances()
	require.Len(t, imp, 3)
	assert.InDelta(t, 1.0, imp[0]+imp[1]+imp[2], 1e-9)
	assert.Greater(t, imp[0], imp[1])
	assert.Greater(t, imp[0], imp[2])
}

func TestRandomForestClassifier_DeterministicAcrossJobs(t *testing.T) {
	X, y := blobs(45, 2)

	fit := func(jobs int) mat.Matrix {
		rf := NewRandomForestClassifier(WithNEstimators(12), WithRandomState(7), WithNJobs(jobs))
		require.NoError(t, rf.Fit(X, y))
		p, err := rf.PredictProba(X)
		require.NoError(t, err)
		return p
	}

	assert.True(t, mat.Equal(fit(1), fit(4)), "result must not depend on n_jobs")

	other := NewRandomForestClassifier(WithNEstimators(12), WithRandomState(8))
	require.NoError(t, other.Fit(X, y))
	p, _ := other.PredictProba(X)
	assert.False(t, mat.Equal(fit(1), p), "different seeds should give different forests")
}

func TestRandomForestClassifier_LargeBatchMatchesRowByRow(t *testing.T) {
	X, y := blobs(3*sequentialPredictRows, 3)

	rf := NewRandomForestClassifier(WithNEstimators(10), WithRandomState(5), WithNJobs(4))
	require.NoError(t, rf.Fit(X, y))

	batch, err := rf.PredictProba(X)
	require.NoError(t, err)

	n, _ := X.Dims()
	for i := 0; i < n; i++ {
		row := mat.NewDense(1, 3, mat.Row(nil, i, X))
		single, err := rf.PredictProba(row)
		require.NoError(t, err)
		assert.Equal(t, mat.Row(nil, 0, single), mat.Row(nil, i, batch), "row %d", i)
	}
}

func TestRandomForestClassifier_NoBootstrapAllFeaturesIsTree(t *testing.T) {
	X := mat.NewDense(6, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		2, 2,
		2, 3,
		3, 2,
	})
	y := mat.NewDense(6, 1, []float64{0, 0, 0, 1, 1, 1})

	rf := NewRandomForestClassifier(
		WithNEstimators(3),
		WithBootstrap(false),
		WithMaxFeatures("all"),
	)
	require.NoError(t, rf.Fit(X, y))
	for _, tr := range rf.Estimators() {
		assert.Equal(t, 3, tr.NodeCount())
	}
	pred, err := rf.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 1, 1, 1}, mat.Col(nil, 0, pred))
}

func TestRandomForestClassifier_ResolveMaxFeatures(t *testing.T) {
	tests := []struct {
		mode      string
		nFeatures int
		want      int
	}{
		{"sqrt", 31, 5},
		{"sqrt", 1, 1},
		{"log2", 31, 4},
		{"log2", 1, 1},
		{"all", 31, 31},
	}
	for _, tt := range tests {
		rf := NewRandomForestClassifier(WithMaxFeatures(tt.mode))
		assert.Equal(t, tt.want, rf.resolveMaxFeatures(tt.nFeatures), "%s of %d", tt.mode, tt.nFeatures)
	}
}

func TestRandomForestClassifier_Errors(t *testing.T) {
	X, y := blobs(9, 3)

	rf := NewRandomForestClassifier()
	_, err := rf.Predict(X)
	var nfErr *errors.NotFittedError
	assert.True(t, errors.As(err, &nfErr))
	assert.Equal(t, 0.0, rf.Score(X, y))

	var vErr *errors.ValidationError
	assert.True(t, errors.As(NewRandomForestClassifier(WithNEstimators(0)).Fit(X, y), &vErr))
	assert.True(t, errors.As(NewRandomForestClassifier(WithMaxFeatures("half")).Fit(X, y), &vErr))

	var dErr *errors.DimensionError
	assert.True(t, errors.As(rf.Fit(X, mat.NewDense(8, 1, nil)), &dErr))

	bad := mat.DenseCopyOf(X)
	bad.Set(2, 1, math.NaN())
	assert.Error(t, rf.Fit(bad, y))

	require.NoError(t, NewRandomForestClassifier(WithNEstimators(2)).Fit(X, y))
	fitted := NewRandomForestClassifier(WithNEstimators(2))
	require.NoError(t, fitted.Fit(X, y))
	_, err = fitted.PredictProba(mat.NewDense(1, 2, nil))
	assert.True(t, errors.As(err, &dErr))
}

func TestRandomForestClassifier_Gob(t *testing.T) {
	X, y := blobs(30, 4)
	rf := NewRandomForestClassifier(WithNEstimators(5), WithRandomState(28))
	require.NoError(t, rf.Fit(X, y))

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(rf))
	var loaded RandomForestClassifier
	require.NoError(t, gob.NewDecoder(&buf).Decode(&loaded))

	want, err := rf.PredictProba(X)
	require.NoError(t, err)
	got, err := loaded.PredictProba(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))
	assert.Equal(t, rf.GetParams(), loaded.GetParams())
	assert.Equal(t, rf.GetFeatureImportances(), loaded.GetFeatureImportances())
}

func TestRandomForestClassifier_Logs(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	log.SetLogger(logger)
	t.Cleanup(func() { log.SetLogger(nil) })

	X, y := blobs(9, 5)
	rf := NewRandomForestClassifier(WithNEstimators(2))
	require.NoError(t, rf.Fit(X, y))
	_, err := rf.Predict(X)
	require.NoError(t, err)

	assert.True(t, logger.ContainsMessage("Training started"))
	assert.True(t, logger.ContainsMessage("Training finished"))
	assert.True(t, logger.ContainsMessage("Prediction finished"))
	assert.True(t, logger.ContainsField(log.TreesKey, 2.0), "JSON numbers decode as float64")
	assert.True(t, logger.ContainsField(log.ComponentKey, "ensemble.forest"))
}
