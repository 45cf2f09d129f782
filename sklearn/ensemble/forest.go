// Package ensemble implements bagged tree ensembles.
package ensemble

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-obesity/core/model"
	"github.com/YuminosukeSato/scigo-obesity/core/parallel"
	"github.com/YuminosukeSato/scigo-obesity/pkg/errors"
	"github.com/YuminosukeSato/scigo-obesity/pkg/log"
	"github.com/YuminosukeSato/scigo-obesity/sklearn/tree"
)

// sequentialPredictRows is the batch size up to which PredictProba stays on
// the calling goroutine.
const sequentialPredictRows = 64

// RandomForestClassifier averages the class probabilities of decision trees
// grown on bootstrap samples with random feature subsets.
type RandomForestClassifier struct {
	state *model.StateManager

	// Hyperparameters (scikit-learn defaults)
	nEstimators     int    // Number of trees
	criterion       string // "gini" or "entropy"
	maxDepth        int    // -1 means unlimited
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     string // "sqrt", "log2" or "all"
	bootstrap       bool
	randomState     uint64
	nJobs           int // <= 0 uses every CPU

	// Model parameters
	trees               []*tree.DecisionTreeClassifier
	classes_            []float64
	nFeatures_          int
	featureImportances_ []float64
}

// Option is a functional option for RandomForestClassifier
type Option func(*RandomForestClassifier)

// NewRandomForestClassifier creates a forest of 100 gini trees that look at
// sqrt(n_features) features per split, fit on bootstrap samples.
func NewRandomForestClassifier(opts ...Option) *RandomForestClassifier {
	rf := &RandomForestClassifier{
		state:           model.NewStateManager(),
		nEstimators:     100,
		criterion:       "gini",
		maxDepth:        -1,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		maxFeatures:     "sqrt",
		bootstrap:       true,
		nJobs:           -1,
	}
	for _, opt := range opts {
		opt(rf)
	}
	return rf
}

// WithNEstimators sets the number of trees
func WithNEstimators(n int) Option {
	return func(rf *RandomForestClassifier) { rf.nEstimators = n }
}

// WithCriterion sets the split criterion of every tree
func WithCriterion(criterion string) Option {
	return func(rf *RandomForestClassifier) { rf.criterion = criterion }
}

// WithMaxDepth limits tree depth. Values < 1 mean unlimited.
func WithMaxDepth(depth int) Option {
	return func(rf *RandomForestClassifier) { rf.maxDepth = depth }
}

// WithMinSamplesSplit sets the minimum samples required to split a node
func WithMinSamplesSplit(n int) Option {
	return func(rf *RandomForestClassifier) { rf.minSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum samples in each leaf
func WithMinSamplesLeaf(n int) Option {
	return func(rf *RandomForestClassifier) { rf.minSamplesLeaf = n }
}

// WithMaxFeatures selects the features examined per split: "sqrt", "log2" or "all"
func WithMaxFeatures(mode string) Option {
	return func(rf *RandomForestClassifier) { rf.maxFeatures = mode }
}

// WithBootstrap toggles bootstrap sampling
func WithBootstrap(bootstrap bool) Option {
	return func(rf *RandomForestClassifier) { rf.bootstrap = bootstrap }
}

// WithRandomState sets the master seed
func WithRandomState(seed uint64) Option {
	return func(rf *RandomForestClassifier) { rf.randomState = seed }
}

// WithNJobs sets the number of goroutines used for fitting and prediction
func WithNJobs(n int) Option {
	return func(rf *RandomForestClassifier) { rf.nJobs = n }
}

func (rf *RandomForestClassifier) validateParams() error {
	if rf.nEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be >= 1", rf.nEstimators)
	}
	switch rf.maxFeatures {
	case "sqrt", "log2", "all":
	default:
		return errors.NewValidationError("max_features", "must be 'sqrt', 'log2' or 'all'", rf.maxFeatures)
	}
	return nil
}

func (rf *RandomForestClassifier) resolveMaxFeatures(nFeatures int) int {
	var n int
	switch rf.maxFeatures {
	case "sqrt":
		n = int(math.Sqrt(float64(nFeatures)))
	case "log2":
		n = int(math.Log2(float64(nFeatures)))
	default:
		n = nFeatures
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Fit grows the forest on X (n_samples x n_features) and y (n_samples x 1).
// Per-tree seeds are drawn in order from the master seed before any tree is
// fit, so the result does not depend on nJobs.
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "RandomForestClassifier.Fit")

	if err := rf.validateParams(); err != nil {
		return err
	}
	nSamples, nFeatures := X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return errors.NewModelError("RandomForestClassifier.Fit", "empty data", errors.ErrEmptyData)
	}
	yRows, yCols := y.Dims()
	if yRows != nSamples {
		return errors.NewDimensionError("RandomForestClassifier.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("RandomForestClassifier.Fit", 1, yCols, 1)
	}
	if err := errors.CheckMatrix("RandomForestClassifier.Fit", X, nSamples, nFeatures); err != nil {
		return err
	}

	logger := log.GetLoggerWithName("ensemble.forest").With(log.ModelNameKey, "RandomForestClassifier")
	start := time.Now()

	classes, codes := encodeClasses(y, nSamples)
	cols := make([][]float64, nFeatures)
	for j := range cols {
		cols[j] = mat.Col(nil, j, X)
	}

	logger.Info("Training started",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		log.ClassesKey, len(classes),
		log.TreesKey, rf.nEstimators,
		log.RandomSeedKey, rf.randomState,
	)

	master := rand.New(rand.NewPCG(rf.randomState, rf.randomState))
	seeds := make([]uint64, rf.nEstimators)
	for i := range seeds {
		seeds[i] = master.Uint64()
	}

	maxFeatures := rf.resolveMaxFeatures(nFeatures)
	trees := make([]*tree.DecisionTreeClassifier, rf.nEstimators)
	errs := make([]error, rf.nEstimators)

	parallel.ParallelizeN(rf.nEstimators, rf.nJobs, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			t := tree.NewDecisionTreeClassifier(
				tree.WithCriterion(rf.criterion),
				tree.WithMaxDepth(rf.maxDepth),
				tree.WithMinSamplesSplit(rf.minSamplesSplit),
				tree.WithMinSamplesLeaf(rf.minSamplesLeaf),
				tree.WithMaxFeatures(maxFeatures),
				tree.WithRandomState(seeds[i]),
			)
			w := rf.sampleWeights(seeds[i], nSamples)
			errs[i] = errors.SafeExecute(fmt.Sprintf("tree %d", i), func() error {
				return t.FitColumns(cols, codes, len(classes), w)
			})
			trees[i] = t
		}
	})
	for i, e := range errs {
		if e != nil {
			return errors.Wrapf(e, "RandomForestClassifier.Fit: tree %d", i)
		}
	}

	rf.trees = trees
	rf.classes_ = classes
	rf.nFeatures_ = nFeatures
	rf.featureImportances_ = meanImportances(trees, nFeatures)
	rf.state.SetDimensions(nFeatures, nSamples)
	rf.state.SetFitted()

	logger.Info("Training finished",
		log.OperationKey, log.OperationFit,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// sampleWeights draws the bootstrap counts of one tree. Without bootstrap
// every sample has weight 1.
func (rf *RandomForestClassifier) sampleWeights(seed uint64, n int) []float64 {
	w := make([]float64, n)
	if !rf.bootstrap {
		for i := range w {
			w[i] = 1
		}
		return w
	}
	rng := rand.New(rand.NewPCG(seed, ^seed))
	for k := 0; k < n; k++ {
		w[rng.IntN(n)]++
	}
	return w
}

func encodeClasses(y mat.Matrix, n int) ([]float64, []int) {
	labels := make([]float64, n)
	seen := make(map[float64]struct{})
	var classes []float64
	for i := range labels {
		labels[i] = y.At(i, 0)
		if _, ok := seen[labels[i]]; !ok {
			seen[labels[i]] = struct{}{}
			classes = append(classes, labels[i])
		}
	}
	sort.Float64s(classes)
	index := make(map[float64]int, len(classes))
	for k, c := range classes {
		index[c] = k
	}
	codes := make([]int, n)
	for i, l := range labels {
		codes[i] = index[l]
	}
	return classes, codes
}

// meanImportances averages the importances of the trees that split at least
// once and renormalises the result.
func meanImportances(trees []*tree.DecisionTreeClassifier, nFeatures int) []float64 {
	out := make([]float64, nFeatures)
	used := 0
	for _, t := range trees {
		if t.NodeCount() <= 1 {
			continue
		}
		for j, v := range t.GetFeatureImportances() {
			out[j] += v
		}
		used++
	}
	if used == 0 {
		return out
	}
	sum := 0.0
	for j := range out {
		out[j] /= float64(used)
		sum += out[j]
	}
	if sum > 0 {
		for j := range out {
			out[j] /= sum
		}
	}
	return out
}

// PredictProba returns the mean class distribution over all trees
// (n_samples x n_classes), columns ordered as Classes().
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := rf.state.RequireFitted("RandomForestClassifier", "PredictProba"); err != nil {
		return nil, err
	}
	nSamples, nFeatures := X.Dims()
	if err := rf.state.RequireFeatures("RandomForestClassifier.PredictProba", nFeatures); err != nil {
		return nil, err
	}

	nClasses := len(rf.classes_)
	proba := mat.NewDense(nSamples, nClasses, nil)
	scale := 1 / float64(len(rf.trees))

	parallel.ParallelizeWithThreshold(nSamples, sequentialPredictRows, rf.nJobs, func(lo, hi int) {
		row := make([]float64, nFeatures)
		acc := make([]float64, nClasses)
		for i := lo; i < hi; i++ {
			mat.Row(row, i, X)
			for k := range acc {
				acc[k] = 0
			}
			for _, t := range rf.trees {
				for k, v := range t.LeafValue(row) {
					acc[k] += v
				}
			}
			for k := range acc {
				acc[k] *= scale
			}
			proba.SetRow(i, acc)
		}
	})
	return proba, nil
}

// Predict returns the class with the highest mean probability (n_samples x 1).
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	nSamples, nClasses := proba.Dims()
	pred := mat.NewDense(nSamples, 1, nil)
	for i := 0; i < nSamples; i++ {
		best := 0
		for k := 1; k < nClasses; k++ {
			if proba.At(i, k) > proba.At(i, best) {
				best = k
			}
		}
		pred.Set(i, 0, rf.classes_[best])
	}

	log.GetLoggerWithName("ensemble.forest").Debug("Prediction finished",
		log.ModelNameKey, "RandomForestClassifier",
		log.OperationKey, log.OperationPredict,
		log.PredsKey, nSamples,
	)
	return pred, nil
}

// Score returns the mean accuracy on the given data, or 0 when X cannot be
// predicted.
func (rf *RandomForestClassifier) Score(X, y mat.Matrix) float64 {
	pred, err := rf.Predict(X)
	if err != nil {
		return 0.0
	}
	nSamples, _ := X.Dims()
	if nSamples == 0 {
		return 0.0
	}
	correct := 0
	for i := 0; i < nSamples; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(nSamples)
}

// Classes returns the class labels in probability column order.
func (rf *RandomForestClassifier) Classes() []float64 {
	return append([]float64(nil), rf.classes_...)
}

// GetFeatureImportances returns the impurity-based importances, summing to 1
// unless no tree split.
func (rf *RandomForestClassifier) GetFeatureImportances() []float64 {
	return append([]float64(nil), rf.featureImportances_...)
}

// Estimators returns the fitted trees.
func (rf *RandomForestClassifier) Estimators() []*tree.DecisionTreeClassifier {
	return rf.trees
}

// IsFitted reports whether Fit has completed.
func (rf *RandomForestClassifier) IsFitted() bool { return rf.state.IsFitted() }

// GetParams returns the model hyperparameters
func (rf *RandomForestClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      rf.nEstimators,
		"criterion":         rf.criterion,
		"max_depth":         rf.maxDepth,
		"min_samples_split": rf.minSamplesSplit,
		"min_samples_leaf":  rf.minSamplesLeaf,
		"max_features":      rf.maxFeatures,
		"bootstrap":         rf.bootstrap,
		"random_state":      rf.randomState,
		"n_jobs":            rf.nJobs,
	}
}

// forestState is the gob representation of a RandomForestClassifier.
type forestState struct {
	NEstimators     int
	Criterion       string
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     string
	Bootstrap       bool
	RandomState     uint64
	NJobs           int

	Trees       []*tree.DecisionTreeClassifier
	Classes     []float64
	NFeatures   int
	Importances []float64
	State       model.ModelState
}

// GobEncode implements gob.GobEncoder.
func (rf *RandomForestClassifier) GobEncode() ([]byte, error) {
	st := forestState{
		NEstimators:     rf.nEstimators,
		Criterion:       rf.criterion,
		MaxDepth:        rf.maxDepth,
		MinSamplesSplit: rf.minSamplesSplit,
		MinSamplesLeaf:  rf.minSamplesLeaf,
		MaxFeatures:     rf.maxFeatures,
		Bootstrap:       rf.bootstrap,
		RandomState:     rf.randomState,
		NJobs:           rf.nJobs,
		Trees:           rf.trees,
		Classes:         rf.classes_,
		NFeatures:       rf.nFeatures_,
		Importances:     rf.featureImportances_,
		State:           rf.state.GetState(),
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(st); err != nil {
		return nil, errors.Wrap(err, "RandomForestClassifier.GobEncode")
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (rf *RandomForestClassifier) GobDecode(data []byte) error {
	var st forestState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return errors.Wrap(err, "RandomForestClassifier.GobDecode")
	}
	rf.nEstimators = st.NEstimators
	rf.criterion = st.Criterion
	rf.maxDepth = st.MaxDepth
	rf.minSamplesSplit = st.MinSamplesSplit
	rf.minSamplesLeaf = st.MinSamplesLeaf
	rf.maxFeatures = st.MaxFeatures
	rf.bootstrap = st.Bootstrap
	rf.randomState = st.RandomState
	rf.nJobs = st.NJobs
	rf.trees = st.Trees
	rf.classes_ = st.Classes
	rf.nFeatures_ = st.NFeatures
	rf.featureImportances_ = st.Importances
	if rf.state == nil {
		rf.state = model.NewStateManager()
	}
	rf.state.SetState(st.State)
	return nil
}

var (
	_ model.Classifier         = (*RandomForestClassifier)(nil)
	_ model.ImportanceReporter = (*RandomForestClassifier)(nil)
)
