// Package tree implements a CART decision tree classifier compatible with
// scikit-learn's DecisionTreeClassifier.
package tree

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-obesity/core/model"
	"github.com/YuminosukeSato/scigo-obesity/pkg/errors"
)

// DecisionTreeClassifier is a CART classifier.
//
// Split thresholds lie halfway between consecutive distinct feature values
// and samples with x <= threshold go left. An impure node is always split
// when a valid split exists, even if the impurity does not decrease.
type DecisionTreeClassifier struct {
	state *model.StateManager // State management (composition)

	// Hyperparameters
	criterion       string // "gini" or "entropy"
	maxDepth        int    // -1 means unlimited
	minSamplesSplit int    // Minimum samples required to split a node
	minSamplesLeaf  int    // Minimum samples required in each leaf
	maxFeatures     int    // Features examined per split; <= 0 means all
	randomState     uint64 // Seed for the feature permutation

	// Model parameters
	nodes               []Node
	classes_            []float64 // Class labels, sorted
	nClasses_           int
	nFeatures_          int
	featureImportances_ []float64
}

// Option is a functional option for DecisionTreeClassifier
type Option func(*DecisionTreeClassifier)

// NewDecisionTreeClassifier creates a new DecisionTreeClassifier with the
// scikit-learn defaults: gini, unlimited depth, min_samples_split=2,
// min_samples_leaf=1 and all features examined at every split.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		state:           model.NewStateManager(),
		criterion:       "gini",
		maxDepth:        -1,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		maxFeatures:     0,
	}
	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

// WithCriterion sets the split quality measure ("gini" or "entropy")
func WithCriterion(criterion string) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.criterion = criterion
	}
}

// WithMaxDepth limits the depth of the tree. Values < 1 mean unlimited.
func WithMaxDepth(depth int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.maxDepth = depth
	}
}

// WithMinSamplesSplit sets the minimum number of samples required to split a node
func WithMinSamplesSplit(n int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets the minimum number of samples in each leaf
func WithMinSamplesLeaf(n int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesLeaf = n
	}
}

// WithMaxFeatures sets how many non-constant features are examined per split
func WithMaxFeatures(n int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.maxFeatures = n
	}
}

// WithRandomState sets the seed of the feature permutation
func WithRandomState(seed uint64) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.randomState = seed
	}
}

func (dt *DecisionTreeClassifier) validateParams() error {
	switch {
	case dt.criterion != "gini" && dt.criterion != "entropy":
		return errors.NewValidationError("criterion", "must be 'gini' or 'entropy'", dt.criterion)
	case dt.minSamplesSplit < 2:
		return errors.NewValidationError("min_samples_split", "must be >= 2", dt.minSamplesSplit)
	case dt.minSamplesLeaf < 1:
		return errors.NewValidationError("min_samples_leaf", "must be >= 1", dt.minSamplesLeaf)
	}
	return nil
}

// Fit builds the tree from X (n_samples x n_features) and y (n_samples x 1).
// Any set of distinct label values is accepted; they are sorted into classes.
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "DecisionTreeClassifier.Fit")

	nSamples, nFeatures := X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return errors.NewModelError("DecisionTreeClassifier.Fit", "empty data", errors.ErrEmptyData)
	}
	yRows, yCols := y.Dims()
	if yRows != nSamples {
		return errors.NewDimensionError("DecisionTreeClassifier.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("DecisionTreeClassifier.Fit", 1, yCols, 1)
	}
	if err := errors.CheckMatrix("DecisionTreeClassifier.Fit", X, nSamples, nFeatures); err != nil {
		return err
	}

	labels := make([]float64, nSamples)
	for i := range labels {
		labels[i] = y.At(i, 0)
	}
	classes := uniqueSorted(labels)
	index := make(map[float64]int, len(classes))
	for k, c := range classes {
		index[c] = k
	}
	codes := make([]int, nSamples)
	for i, l := range labels {
		codes[i] = index[l]
	}

	cols := make([][]float64, nFeatures)
	for j := range cols {
		cols[j] = mat.Col(nil, j, X)
	}
	weights := make([]float64, nSamples)
	for i := range weights {
		weights[i] = 1
	}

	if err := dt.FitColumns(cols, codes, len(classes), weights); err != nil {
		return err
	}
	dt.classes_ = classes
	return nil
}

// FitColumns builds the tree from feature-major data: cols[j][i] is feature j
// of sample i. y holds class codes in [0, nClasses) and sampleWeight the
// weight of every sample; samples with zero weight are ignored. Classes are
// labelled 0..nClasses-1. The forest calls this directly so that all trees
// share one copy of the data.
func (dt *DecisionTreeClassifier) FitColumns(cols [][]float64, y []int, nClasses int, sampleWeight []float64) error {
	if err := dt.validateParams(); err != nil {
		return err
	}
	if len(cols) == 0 || len(y) == 0 {
		return errors.NewModelError("DecisionTreeClassifier.Fit", "empty data", errors.ErrEmptyData)
	}
	if len(sampleWeight) != len(y) {
		return errors.NewDimensionError("DecisionTreeClassifier.Fit", len(y), len(sampleWeight), 0)
	}
	for j, c := range cols {
		if len(c) != len(y) {
			return errors.NewValueError("DecisionTreeClassifier.Fit", fmt.Sprintf("feature %d has %d samples, want %d", j, len(c), len(y)))
		}
	}
	for _, c := range y {
		if c < 0 || c >= nClasses {
			return errors.NewValueError("DecisionTreeClassifier.Fit", fmt.Sprintf("class code %d out of range [0, %d)", c, nClasses))
		}
	}

	maxFeatures := dt.maxFeatures
	if maxFeatures <= 0 || maxFeatures > len(cols) {
		maxFeatures = len(cols)
	}

	impurity := gini
	if dt.criterion == "entropy" {
		impurity = entropy
	}

	b := &builder{
		cols:        cols,
		y:           y,
		w:           sampleWeight,
		nClasses:    nClasses,
		impurity:    impurity,
		maxDepth:    dt.maxDepth,
		minSplit:    dt.minSamplesSplit,
		minLeaf:     dt.minSamplesLeaf,
		maxFeatures: maxFeatures,
		rng:         rand.New(rand.NewPCG(dt.randomState, dt.randomState)),
		samples:     make([]int, 0, len(y)),
	}
	b.build()

	if len(b.samples) == 0 {
		return errors.NewModelError("DecisionTreeClassifier.Fit", "all sample weights are zero", errors.ErrEmptyData)
	}

	dt.nodes = b.nodes
	dt.nClasses_ = nClasses
	dt.nFeatures_ = len(cols)
	dt.classes_ = make([]float64, nClasses)
	for k := range dt.classes_ {
		dt.classes_[k] = float64(k)
	}
	dt.featureImportances_ = normalise(b.importances)

	dt.state.SetDimensions(len(cols), len(b.samples))
	dt.state.SetFitted()
	return nil
}

// normalise scales v to sum to 1. An all-zero vector (a single-leaf tree)
// stays zero.
func normalise(v []float64) []float64 {
	out := make([]float64, len(v))
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	if sum <= 0 {
		return out
	}
	for i, x := range v {
		out[i] = x / sum
	}
	return out
}

func uniqueSorted(v []float64) []float64 {
	seen := make(map[float64]struct{})
	var out []float64
	for _, x := range v {
		if _, ok := seen[x]; !ok {
			seen[x] = struct{}{}
			out = append(out, x)
		}
	}
	sort.Float64s(out)
	return out
}

// LeafValue returns the class distribution of the leaf reached by row.
// The returned slice belongs to the tree and must not be modified.
func (dt *DecisionTreeClassifier) LeafValue(row []float64) []float64 {
	n := &dt.nodes[0]
	for !n.IsLeaf() {
		if row[n.Feature] <= n.Threshold {
			n = &dt.nodes[n.Left]
		} else {
			n = &dt.nodes[n.Right]
		}
	}
	return n.Value
}

func (dt *DecisionTreeClassifier) checkPredict(method string, X mat.Matrix) error {
	if err := dt.state.RequireFitted("DecisionTreeClassifier", method); err != nil {
		return err
	}
	_, nFeatures := X.Dims()
	return dt.state.RequireFeatures("DecisionTreeClassifier."+method, nFeatures)
}

// PredictProba returns the class distribution of the leaf each row falls in
// (n_samples x n_classes).
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.checkPredict("PredictProba", X); err != nil {
		return nil, err
	}
	nSamples, nFeatures := X.Dims()
	proba := mat.NewDense(nSamples, dt.nClasses_, nil)
	row := make([]float64, nFeatures)
	for i := 0; i < nSamples; i++ {
		mat.Row(row, i, X)
		proba.SetRow(i, dt.LeafValue(row))
	}
	return proba, nil
}

// Predict returns the most probable class label of every row (n_samples x 1).
// Ties resolve to the smaller class.
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.checkPredict("Predict", X); err != nil {
		return nil, err
	}
	nSamples, nFeatures := X.Dims()
	pred := mat.NewDense(nSamples, 1, nil)
	row := make([]float64, nFeatures)
	for i := 0; i < nSamples; i++ {
		mat.Row(row, i, X)
		pred.Set(i, 0, dt.classes_[argmax(dt.LeafValue(row))])
	}
	return pred, nil
}

func argmax(v []float64) int {
	best := 0
	for k := 1; k < len(v); k++ {
		if v[k] > v[best] {
			best = k
		}
	}
	return best
}

// Score returns the mean accuracy on the given data. It returns 0 when the
// model cannot predict X.
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) float64 {
	predictions, err := dt.Predict(X)
	if err != nil {
		return 0.0
	}

	nSamples, _ := X.Dims()
	correct := 0
	for i := 0; i < nSamples; i++ {
		if predictions.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(nSamples)
}

// GetFeatureImportances returns the normalised total impurity decrease
// contributed by each feature. Nil before Fit.
func (dt *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	return append([]float64(nil), dt.featureImportances_...)
}

// GetDepth returns the depth of the deepest leaf (the root is depth 0).
func (dt *DecisionTreeClassifier) GetDepth() int {
	depth := 0
	for i := range dt.nodes {
		if dt.nodes[i].Depth > depth {
			depth = dt.nodes[i].Depth
		}
	}
	return depth
}

// GetNLeaves returns the number of leaves.
func (dt *DecisionTreeClassifier) GetNLeaves() int {
	n := 0
	for i := range dt.nodes {
		if dt.nodes[i].IsLeaf() {
			n++
		}
	}
	return n
}

// NodeCount returns the number of nodes.
func (dt *DecisionTreeClassifier) NodeCount() int { return len(dt.nodes) }

// Classes returns the class labels in probability column order.
func (dt *DecisionTreeClassifier) Classes() []float64 {
	return append([]float64(nil), dt.classes_...)
}

// NClasses returns the number of classes seen during fitting.
func (dt *DecisionTreeClassifier) NClasses() int { return dt.nClasses_ }

// GetParams returns the model hyperparameters
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":         dt.criterion,
		"max_depth":         dt.maxDepth,
		"min_samples_split": dt.minSamplesSplit,
		"min_samples_leaf":  dt.minSamplesLeaf,
		"max_features":      dt.maxFeatures,
		"random_state":      dt.randomState,
	}
}

// SetParams sets the model hyperparameters. Integer parameters accept int
// or float64 values (as decoded from YAML or JSON).
func (dt *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "criterion":
			s, ok := value.(string)
			if !ok {
				return errors.NewValueError("SetParams", fmt.Sprintf("criterion must be a string, got %T", value))
			}
			dt.criterion = s
		case "max_depth":
			if value == nil {
				dt.maxDepth = -1
				continue
			}
			n, err := toInt(key, value)
			if err != nil {
				return err
			}
			dt.maxDepth = n
		case "min_samples_split":
			n, err := toInt(key, value)
			if err != nil {
				return err
			}
			dt.minSamplesSplit = n
		case "min_samples_leaf":
			n, err := toInt(key, value)
			if err != nil {
				return err
			}
			dt.minSamplesLeaf = n
		case "max_features":
			n, err := toInt(key, value)
			if err != nil {
				return err
			}
			dt.maxFeatures = n
		case "random_state":
			n, err := toInt(key, value)
			if err != nil {
				return err
			}
			dt.randomState = uint64(n)
		default:
			return errors.NewValueError("SetParams", "unknown parameter: "+key)
		}
	}
	return nil
}

func toInt(key string, value interface{}) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		if v == math.Trunc(v) {
			return int(v), nil
		}
	}
	return 0, errors.NewValueError("SetParams", fmt.Sprintf("%s must be an integer, got %v", key, value))
}

// treeState is the gob representation of a DecisionTreeClassifier.
type treeState struct {
	Criterion       string
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int
	RandomState     uint64

	Nodes       []Node
	Classes     []float64
	NClasses    int
	NFeatures   int
	Importances []float64
	State       model.ModelState
}

// GobEncode implements gob.GobEncoder.
func (dt *DecisionTreeClassifier) GobEncode() ([]byte, error) {
	st := treeState{
		Criterion:       dt.criterion,
		MaxDepth:        dt.maxDepth,
		MinSamplesSplit: dt.minSamplesSplit,
		MinSamplesLeaf:  dt.minSamplesLeaf,
		MaxFeatures:     dt.maxFeatures,
		RandomState:     dt.randomState,
		Nodes:           dt.nodes,
		Classes:         dt.classes_,
		NClasses:        dt.nClasses_,
		NFeatures:       dt.nFeatures_,
		Importances:     dt.featureImportances_,
		State:           dt.state.GetState(),
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(st); err != nil {
		return nil, errors.Wrap(err, "DecisionTreeClassifier.GobEncode")
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (dt *DecisionTreeClassifier) GobDecode(data []byte) error {
	var st treeState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return errors.Wrap(err, "DecisionTreeClassifier.GobDecode")
	}
	dt.criterion = st.Criterion
	dt.maxDepth = st.MaxDepth
	dt.minSamplesSplit = st.MinSamplesSplit
	dt.minSamplesLeaf = st.MinSamplesLeaf
	dt.maxFeatures = st.MaxFeatures
	dt.randomState = st.RandomState
	dt.nodes = st.Nodes
	dt.classes_ = st.Classes
	dt.nClasses_ = st.NClasses
	dt.nFeatures_ = st.NFeatures
	dt.featureImportances_ = st.Importances
	if dt.state == nil {
		dt.state = model.NewStateManager()
	}
	dt.state.SetState(st.State)
	return nil
}

var _ model.Classifier = (*DecisionTreeClassifier)(nil)
