package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-obesity/pkg/errors"
)

// vec returns nil for an empty slice; gonum panics on zero-length vectors.
func vec(v []float64) *mat.VecDense {
	if len(v) == 0 {
		return nil
	}
	return mat.NewVecDense(len(v), v)
}

func TestVectorMetrics(t *testing.T) {
	type metric func(yTrue, yPred *mat.VecDense) (float64, error)

	tests := []struct {
		name    string
		metric  metric
		yTrue   []float64
		yPred   []float64
		want    float64
		wantErr bool
	}{
		// AUC over the "obese" indicator and the predicted probability
		{name: "AUC separable", metric: AUC, yTrue: []float64{0, 0, 1, 1, 1}, yPred: []float64{0.2, 0.3, 0.6, 0.7, 0.9}, want: 1},
		{name: "AUC reversed", metric: AUC, yTrue: []float64{0, 0, 1, 1}, yPred: []float64{0.9, 0.8, 0.2, 0.1}, want: 0},
		{name: "AUC one inverted pair", metric: AUC, yTrue: []float64{0, 1, 0, 1}, yPred: []float64{0.2, 0.3, 0.4, 0.9}, want: 0.75},
		{name: "AUC ties count half", metric: AUC, yTrue: []float64{0, 1, 0, 1}, yPred: []float64{0.5, 0.5, 0.5, 0.5}, want: 0.5},
		{name: "AUC single class", metric: AUC, yTrue: []float64{1, 1, 1}, yPred: []float64{0.1, 0.4, 0.8}, want: 0.5},
		{name: "AUC non-binary labels", metric: AUC, yTrue: []float64{0, 2, 1}, yPred: []float64{0.1, 0.5, 0.9}, wantErr: true},
		{name: "AUC length mismatch", metric: AUC, yTrue: []float64{0, 1}, yPred: []float64{0.5}, wantErr: true},
		{name: "AUC empty", metric: AUC, wantErr: true},
		{name: "AUC NaN score", metric: AUC, yTrue: []float64{0, 1, 1}, yPred: []float64{0.2, math.NaN(), 0.7}, wantErr: true},

		{name: "BinaryLogLoss confident", metric: BinaryLogLoss, yTrue: []float64{1, 0}, yPred: []float64{0.8, 0.2}, want: 0.2231436},
		{name: "BinaryLogLoss coin flip", metric: BinaryLogLoss, yTrue: []float64{1, 1, 0}, yPred: []float64{0.5, 0.5, 0.5}, want: 0.6931472},
		{name: "BinaryLogLoss clipped", metric: BinaryLogLoss, yTrue: []float64{0, 1}, yPred: []float64{0, 1}, want: 0},
		{name: "BinaryLogLoss non-binary labels", metric: BinaryLogLoss, yTrue: []float64{0, 3}, yPred: []float64{0.1, 0.9}, wantErr: true},
		{name: "BinaryLogLoss empty", metric: BinaryLogLoss, wantErr: true},
		{name: "BinaryLogLoss infinite score", metric: BinaryLogLoss, yTrue: []float64{0, 1}, yPred: []float64{0.1, math.Inf(1)}, wantErr: true},

		// class codes as produced by the label encoder
		{name: "Accuracy one miss", metric: Accuracy, yTrue: []float64{0, 3, 6, 3}, yPred: []float64{0, 3, 5, 3}, want: 0.75},
		{name: "Accuracy all wrong", metric: Accuracy, yTrue: []float64{2, 2}, yPred: []float64{4, 1}, want: 0},
		{name: "Accuracy empty", metric: Accuracy, wantErr: true},
		{name: "ClassificationError one miss", metric: ClassificationError, yTrue: []float64{0, 3, 6, 3}, yPred: []float64{0, 3, 5, 3}, want: 0.25},
		{name: "ClassificationError perfect", metric: ClassificationError, yTrue: []float64{1, 5}, yPred: []float64{1, 5}, want: 0},
		{name: "ClassificationError length mismatch", metric: ClassificationError, yTrue: []float64{0, 1}, yPred: []float64{0}, wantErr: true},
	}

	errors.SetZerologWarnFunc(func(error) {})
	t.Cleanup(func() { errors.SetZerologWarnFunc(nil) })

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.metric(vec(tt.yTrue), vec(tt.yPred))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-6)
		})
	}
}

func TestAUC_NonFiniteScoreReportsRow(t *testing.T) {
	_, err := AUC(vec([]float64{0, 1, 1}), vec([]float64{0.2, 0.4, math.NaN()}))

	var numErr *errors.NumericalInstabilityError
	if assert.True(t, errors.As(err, &numErr)) {
		assert.Equal(t, "AUC", numErr.Operation)
		assert.Equal(t, 2, numErr.Iteration)
	}
}

func TestAUCMatrix(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   mat.Matrix
		yPred   mat.Matrix
		want    float64
		wantErr bool
	}{
		{
			name:  "Column matrix",
			yTrue: mat.NewDense(4, 1, []float64{0, 1, 0, 1}),
			yPred: mat.NewDense(4, 1, []float64{0.2, 0.3, 0.4, 0.9}),
			want:  0.75,
		},
		{
			name:  "Extra columns are ignored",
			yTrue: mat.NewDense(3, 2, []float64{0, 7, 1, 7, 1, 7}),
			yPred: mat.NewDense(3, 2, []float64{0.1, 7, 0.6, 7, 0.9, 7}),
			want:  1,
		},
		{name: "Nil matrix", yPred: mat.NewDense(1, 1, []float64{0.5}), wantErr: true},
		{name: "Empty matrix", yTrue: &mat.Dense{}, yPred: &mat.Dense{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AUCMatrix(tt.yTrue, tt.yPred)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

// benchData mimics the size of the obesity training file.
func benchData() (*mat.VecDense, *mat.VecDense) {
	n := 2111
	yTrue := make([]float64, n)
	yPred := make([]float64, n)
	for i := 0; i < n; i++ {
		yPred[i] = float64(i%97) / 97
		if i%3 == 0 {
			yTrue[i] = 1
		}
	}
	return mat.NewVecDense(n, yTrue), mat.NewVecDense(n, yPred)
}

func BenchmarkAUC(b *testing.B) {
	yTrue, yPred := benchData()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = AUC(yTrue, yPred)
	}
}

func BenchmarkBinaryLogLoss(b *testing.B) {
	yTrue, yPred := benchData()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = BinaryLogLoss(yTrue, yPred)
	}
}
