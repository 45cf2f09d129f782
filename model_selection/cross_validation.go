package model_selection

import (
	"math"
	"math/rand/v2"
	"sort"
	"strconv"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-obesity/core/model"
	"github.com/YuminosukeSato/scigo-obesity/core/parallel"
	"github.com/YuminosukeSato/scigo-obesity/pkg/errors"
	"github.com/YuminosukeSato/scigo-obesity/pkg/log"
)

// KFoldSplitter defines interface for cross-validation splitters
type KFoldSplitter interface {
	Split(X, y mat.Matrix) []CVFold
	GetNSplits() int
}

// CVFold represents a single fold in cross-validation
type CVFold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold implements k-fold cross-validation splitter
type KFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed uint64
}

// NewKFold creates a new k-fold splitter
func NewKFold(nSplits int, shuffle bool, randomSeed uint64) *KFold {
	if nSplits < 2 {
		nSplits = 5 // Default to 5-fold
	}
	return &KFold{
		NSplits:    nSplits,
		Shuffle:    shuffle,
		RandomSeed: randomSeed,
	}
}

// GetNSplits returns the number of splits
func (kf *KFold) GetNSplits() int {
	return kf.NSplits
}

// Split generates train/test indices for each fold. The first n%k folds get
// one extra test sample.
func (kf *KFold) Split(X, _ mat.Matrix) []CVFold {
	nSamples, _ := X.Dims()

	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}
	if kf.Shuffle {
		r := rand.New(rand.NewPCG(kf.RandomSeed, kf.RandomSeed))
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	folds := make([]CVFold, kf.NSplits)
	foldSize := nSamples / kf.NSplits
	remainder := nSamples % kf.NSplits

	current := 0
	for i := 0; i < kf.NSplits; i++ {
		testSize := foldSize
		if i < remainder {
			testSize++
		}
		folds[i] = complement(indices[current:current+testSize], nSamples)
		current += testSize
	}
	return folds
}

// complement builds the fold whose test part is test; the train part holds
// every other row in ascending order.
func complement(test []int, nSamples int) CVFold {
	inTest := make([]bool, nSamples)
	for _, idx := range test {
		inTest[idx] = true
	}
	train := make([]int, 0, nSamples-len(test))
	for j := 0; j < nSamples; j++ {
		if !inTest[j] {
			train = append(train, j)
		}
	}
	return CVFold{TrainIndices: train, TestIndices: append([]int(nil), test...)}
}

// StratifiedKFold implements stratified k-fold cross-validation
type StratifiedKFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed uint64
}

// NewStratifiedKFold creates a new stratified k-fold splitter
func NewStratifiedKFold(nSplits int, shuffle bool, randomSeed uint64) *StratifiedKFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &StratifiedKFold{
		NSplits:    nSplits,
		Shuffle:    shuffle,
		RandomSeed: randomSeed,
	}
}

// GetNSplits returns the number of splits
func (skf *StratifiedKFold) GetNSplits() int {
	return skf.NSplits
}

// Split distributes the rows of every class evenly across the folds.
// Classes are visited in ascending label order so the folds depend only on
// the data and the seed.
func (skf *StratifiedKFold) Split(X, y mat.Matrix) []CVFold {
	nSamples, _ := X.Dims()

	classIndices := make(map[float64][]int)
	for i := 0; i < nSamples; i++ {
		label := y.At(i, 0)
		classIndices[label] = append(classIndices[label], i)
	}
	labels := make([]float64, 0, len(classIndices))
	for label := range classIndices {
		labels = append(labels, label)
	}
	sort.Float64s(labels)

	if skf.Shuffle {
		r := rand.New(rand.NewPCG(skf.RandomSeed, skf.RandomSeed))
		for _, label := range labels {
			indices := classIndices[label]
			r.Shuffle(len(indices), func(i, j int) {
				indices[i], indices[j] = indices[j], indices[i]
			})
		}
	}

	tests := make([][]int, skf.NSplits)
	for _, label := range labels {
		indices := classIndices[label]
		nClass := len(indices)
		foldSize := nClass / skf.NSplits
		remainder := nClass % skf.NSplits

		current := 0
		for i := 0; i < skf.NSplits; i++ {
			testSize := foldSize
			if i < remainder {
				testSize++
			}
			tests[i] = append(tests[i], indices[current:current+testSize]...)
			current += testSize
		}
	}

	folds := make([]CVFold, skf.NSplits)
	for i, test := range tests {
		folds[i] = complement(test, nSamples)
	}
	return folds
}

// CVResult stores cross-validation results
type CVResult struct {
	TrainScores []float64
	TestScores  []float64
	FitTimes    []float64 // seconds
}

// GetMeanScore returns mean test score
func (cv *CVResult) GetMeanScore() float64 {
	if len(cv.TestScores) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, score := range cv.TestScores {
		sum += score
	}
	return sum / float64(len(cv.TestScores))
}

// GetStdScore returns the sample standard deviation of the test scores
func (cv *CVResult) GetStdScore() float64 {
	if len(cv.TestScores) <= 1 {
		return 0.0
	}

	mean := cv.GetMeanScore()
	sumSq := 0.0
	for _, score := range cv.TestScores {
		diff := score - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(len(cv.TestScores)-1))
}

// CrossValidate fits a fresh classifier from newModel on the training part of
// every fold and records train and test accuracy. Folds run on up to nJobs
// goroutines; each fold writes only its own result slots.
func CrossValidate(newModel func() model.Classifier, X, y mat.Matrix, splitter KFoldSplitter, nJobs int) (*CVResult, error) {
	nSamples, _ := X.Dims()
	if nSamples < splitter.GetNSplits() {
		return nil, errors.NewValueError("CrossValidate", "fewer samples than folds")
	}

	folds := splitter.Split(X, y)
	nFolds := len(folds)
	for i, fold := range folds {
		if len(fold.TestIndices) == 0 || len(fold.TrainIndices) == 0 {
			return nil, errors.NewValueError("CrossValidate", "fold "+strconv.Itoa(i)+" is empty")
		}
	}
	result := &CVResult{
		TrainScores: make([]float64, nFolds),
		TestScores:  make([]float64, nFolds),
		FitTimes:    make([]float64, nFolds),
	}
	errs := make([]error, nFolds)

	parallel.ParallelizeN(nFolds, nJobs, func(lo, hi int) {
		for idx := lo; idx < hi; idx++ {
			fold := folds[idx]
			trainX, trainY := Take(X, fold.TrainIndices), Take(y, fold.TrainIndices)
			testX, testY := Take(X, fold.TestIndices), Take(y, fold.TestIndices)

			m := newModel()
			start := time.Now()
			if err := m.Fit(trainX, trainY); err != nil {
				errs[idx] = errors.Wrapf(err, "fold %d training failed", idx)
				continue
			}
			result.FitTimes[idx] = time.Since(start).Seconds()
			result.TrainScores[idx] = m.Score(trainX, trainY)
			result.TestScores[idx] = m.Score(testX, testY)
		}
	})
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	log.GetLoggerWithName("model_selection").Info("Cross-validation finished",
		log.PhaseKey, log.PhaseValidation,
		"folds", nFolds,
		log.AccuracyKey, result.GetMeanScore(),
	)
	return result, nil
}
