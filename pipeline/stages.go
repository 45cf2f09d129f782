package pipeline

import (
	"fmt"
	"io"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigo-obesity/core/model"
	"github.com/YuminosukeSato/scigo-obesity/dataset"
	"github.com/YuminosukeSato/scigo-obesity/metrics"
	"github.com/YuminosukeSato/scigo-obesity/model_selection"
	"github.com/YuminosukeSato/scigo-obesity/pkg/errors"
	"github.com/YuminosukeSato/scigo-obesity/pkg/log"
	"github.com/YuminosukeSato/scigo-obesity/preprocessing"
	"github.com/YuminosukeSato/scigo-obesity/report"
	"github.com/YuminosukeSato/scigo-obesity/schema"
	"github.com/YuminosukeSato/scigo-obesity/sklearn/ensemble"
)

// Data is the raw input of a run. Train no longer has the id column; Test
// still does.
type Data struct {
	Train *dataset.Frame
	Test  *dataset.Frame
}

// LoadData reads the train and test CSV files and drops the id column from
// the training frame.
func LoadData(cfg *Config) (*Data, error) {
	train, err := dataset.ReadCSVFile(cfg.TrainPath)
	if err != nil {
		return nil, errors.Wrap(err, "LoadData: train")
	}
	test, err := dataset.ReadCSVFile(cfg.TestPath)
	if err != nil {
		return nil, errors.Wrap(err, "LoadData: test")
	}

	if !train.Has(cfg.LabelColumn) {
		return nil, errors.Wrapf(errors.ErrUnknownColumn, "LoadData: train has no label column %q", cfg.LabelColumn)
	}
	if !test.Has(cfg.IDColumn) {
		return nil, errors.Wrapf(errors.ErrUnknownColumn, "LoadData: test has no id column %q", cfg.IDColumn)
	}
	if train.Has(cfg.IDColumn) {
		if train, err = train.Drop(cfg.IDColumn); err != nil {
			return nil, errors.Wrap(err, "LoadData")
		}
	}

	log.GetLoggerWithName("pipeline").Info("Data loaded",
		log.StageKey, "LoadData",
		log.SamplesKey, train.NRows(),
		log.FeaturesKey, train.NCols(),
		"test.samples", test.NRows(),
	)
	return &Data{Train: train, Test: test}, nil
}

// Inspect prints the summaries of the reference run: both heads, the
// distinct-value counts and column info of the training data and the label
// distribution in percent.
func Inspect(w io.Writer, cfg *Config, data *Data) error {
	fmt.Fprintln(w, data.Train.Head(5))
	fmt.Fprintln(w, data.Test.Head(5))
	fmt.Fprintln(w, dataset.FormatNUnique(data.Train.NUnique()))
	fmt.Fprintln(w, data.Train.Info())

	vcs, err := data.Train.ValueCounts(cfg.LabelColumn)
	if err != nil {
		return errors.Wrap(err, "Inspect")
	}
	fmt.Fprintln(w, dataset.FormatValueCounts(cfg.LabelColumn, vcs))
	return nil
}

// Features is the encoded input of the model.
type Features struct {
	// Train is the one-hot encoded training matrix; its Columns are the
	// Feature Schema of the model.
	Train *preprocessing.Encoded
	// Labels holds the raw label of every training row.
	Labels []string
	// Test is the encoded test matrix with its own schema, before
	// reconciliation.
	Test *preprocessing.Encoded
	// IDs holds the id of every test row, formatted as in the input file.
	IDs []string

	Divergences []schema.Divergence
	Applied     []schema.Applied
}

// PrepareFeatures checks the categorical levels of train against test,
// applies the correction table to the test frame and one-hot encodes both
// frames independently.
func PrepareFeatures(w io.Writer, cfg *Config, data *Data) (*Features, error) {
	labelCol, err := data.Train.Column(cfg.LabelColumn)
	if err != nil {
		return nil, errors.Wrap(err, "PrepareFeatures")
	}
	labels := make([]string, labelCol.Len())
	for i := range labels {
		labels[i] = labelCol.String(i)
	}
	trainX, err := data.Train.Drop(cfg.LabelColumn)
	if err != nil {
		return nil, errors.Wrap(err, "PrepareFeatures")
	}

	idCol, err := data.Test.Column(cfg.IDColumn)
	if err != nil {
		return nil, errors.Wrap(err, "PrepareFeatures")
	}
	ids := make([]string, idCol.Len())
	for i := range ids {
		ids[i] = idCol.String(i)
	}
	testX, err := data.Test.Drop(cfg.IDColumn)
	if err != nil {
		return nil, errors.Wrap(err, "PrepareFeatures")
	}

	divergences := schema.CheckLevels(trainX, testX, cfg.Categorical)
	for _, d := range divergences {
		fmt.Fprintln(w, d.Attribute, "needs attention")
	}

	corrected, applied, err := cfg.Corrections.Apply(testX)
	if err != nil {
		return nil, errors.Wrap(err, "PrepareFeatures")
	}

	trainEnc, err := preprocessing.GetDummies(trainX, cfg.Categorical)
	if err != nil {
		return nil, errors.Wrap(err, "PrepareFeatures: encode train")
	}
	testEnc, err := preprocessing.GetDummies(corrected, presentIn(corrected, cfg.Categorical))
	if err != nil {
		return nil, errors.Wrap(err, "PrepareFeatures: encode test")
	}

	log.GetLoggerWithName("pipeline").Info("Features encoded",
		log.StageKey, "PrepareFeatures",
		log.FeaturesKey, len(trainEnc.Columns),
		"test.features", len(testEnc.Columns),
		log.CorrectionsKey, len(applied),
	)
	return &Features{
		Train:       trainEnc,
		Labels:      labels,
		Test:        testEnc,
		IDs:         ids,
		Divergences: divergences,
		Applied:     applied,
	}, nil
}

// presentIn keeps the names that exist in frame. A categorical attribute
// missing from the test file only yields missing columns, which the
// reconciler fills.
func presentIn(frame *dataset.Frame, names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if frame.Has(name) {
			out = append(out, name)
		}
	}
	return out
}

// ReconcileSchema rewrites the test matrix to the Feature Schema of the
// model.
func ReconcileSchema(trainSchema schema.Schema, test *preprocessing.Encoded) (*preprocessing.Encoded, schema.Report, error) {
	out, rep, err := schema.Reconcile(trainSchema, test)
	if err != nil {
		return nil, schema.Report{}, errors.Wrap(err, "ReconcileSchema")
	}
	log.GetLoggerWithName("pipeline").Info("Test schema reconciled",
		log.StageKey, "ReconcileSchema",
		log.MissingColumnsKey, len(rep.Missing),
		log.DroppedColumnsKey, len(rep.Dropped),
	)
	return out, rep, nil
}

// newForest builds the classifier every training stage uses.
func newForest(cfg *Config) *ensemble.RandomForestClassifier {
	return ensemble.NewRandomForestClassifier(
		ensemble.WithNEstimators(cfg.NEstimators),
		ensemble.WithMaxFeatures(cfg.MaxFeatures),
		ensemble.WithRandomState(cfg.Seed),
		ensemble.WithNJobs(cfg.NJobs),
	)
}

// TrainModel fits a forest on the full encoded training data.
func TrainModel(cfg *Config, features *Features) (*Model, error) {
	encoder := preprocessing.NewLabelEncoder()
	y, err := encoder.FitTransform(features.Labels)
	if err != nil {
		return nil, errors.Wrap(err, "TrainModel")
	}

	forest := newForest(cfg)
	if err := forest.Fit(features.Train.Data, y); err != nil {
		return nil, errors.Wrap(err, "TrainModel")
	}
	return &Model{
		Schema:  schema.Schema(features.Train.Schema()),
		Encoder: encoder,
		Forest:  forest,
	}, nil
}

// PredictTest predicts a label for every row of a reconciled test matrix.
func PredictTest(m *Model, test *preprocessing.Encoded) ([]string, error) {
	preds, err := m.Predict(test)
	if err != nil {
		return nil, errors.Wrap(err, "PredictTest")
	}
	return preds, nil
}

// WriteSubmission writes "id,label" rows, one per test record, with no
// index column.
func WriteSubmission(cfg *Config, ids, preds []string) error {
	if len(ids) != len(preds) {
		return errors.NewDimensionError("WriteSubmission", len(ids), len(preds), 0)
	}
	rows := make([][]string, len(ids))
	for i := range ids {
		rows[i] = []string{ids[i], preds[i]}
	}
	if err := dataset.WriteCSVFile(cfg.SubmissionPath, []string{cfg.IDColumn, cfg.LabelColumn}, rows); err != nil {
		return errors.Wrap(err, "WriteSubmission")
	}
	log.GetLoggerWithName("pipeline").Info("Submission written",
		log.StageKey, "WriteSubmission",
		log.PathKey, cfg.SubmissionPath,
		log.PredsKey, len(rows),
	)
	return nil
}

// Evaluation is the outcome of the hold-out validation.
type Evaluation struct {
	Accuracy    float64
	LogLoss     float64
	Confusion   *mat.Dense
	Classes     []string
	Importances []report.Importance
	CV          *model_selection.CVResult
}

// Evaluate splits the encoded training data, fits a fresh forest on the
// training part and scores it on the held-out part. When cfg.CVFolds > 1 it
// also runs stratified k-fold cross-validation on the full training data.
func Evaluate(cfg *Config, features *Features) (*Evaluation, error) {
	encoder := preprocessing.NewLabelEncoder()
	yAll, err := encoder.FitTransform(features.Labels)
	if err != nil {
		return nil, errors.Wrap(err, "Evaluate")
	}

	split, err := model_selection.TrainTestSplit(features.Train.Data, yAll, cfg.ValidationSize, cfg.Seed)
	if err != nil {
		return nil, errors.Wrap(err, "Evaluate")
	}

	forest := newForest(cfg)
	if err := forest.Fit(split.XTrain, split.YTrain); err != nil {
		return nil, errors.Wrap(err, "Evaluate")
	}
	pred, err := forest.Predict(split.XTest)
	if err != nil {
		return nil, errors.Wrap(err, "Evaluate")
	}
	acc, err := metrics.AccuracyMatrix(split.YTest, pred)
	if err != nil {
		return nil, errors.Wrap(err, "Evaluate")
	}

	ev := &Evaluation{Accuracy: acc}
	names := encoder.Classes()
	for _, c := range forest.Classes() {
		ev.Classes = append(ev.Classes, names[int(c)])
	}

	// the forest only knows the classes present in its training part, so
	// losses are computed over its own class codes
	yTrue := mat.NewVecDense(len(split.TestIndices), nil)
	yPred := mat.NewVecDense(len(split.TestIndices), nil)
	index := make(map[float64]int)
	for k, c := range forest.Classes() {
		index[c] = k
	}
	known := true
	for i := range split.TestIndices {
		k, ok := index[split.YTest.At(i, 0)]
		if !ok {
			known = false
			break
		}
		yTrue.SetVec(i, float64(k))
		yPred.SetVec(i, float64(index[pred.At(i, 0)]))
	}
	if known {
		proba, err := forest.PredictProba(split.XTest)
		if err != nil {
			return nil, errors.Wrap(err, "Evaluate")
		}
		if ev.LogLoss, err = metrics.LogLoss(yTrue, proba); err != nil {
			return nil, errors.Wrap(err, "Evaluate")
		}
		if ev.Confusion, err = metrics.ConfusionMatrix(yTrue, yPred, len(forest.Classes())); err != nil {
			return nil, errors.Wrap(err, "Evaluate")
		}
	} else {
		ev.LogLoss = -1
		log.GetLoggerWithName("pipeline").Warn("Validation contains a class unseen in training, log loss skipped",
			log.StageKey, "Evaluate",
		)
	}

	if ev.Importances, err = report.RankImportances(features.Train.Schema(), forest.GetFeatureImportances()); err != nil {
		return nil, errors.Wrap(err, "Evaluate")
	}

	if cfg.CVFolds > 1 {
		cv, err := model_selection.CrossValidate(
			func() model.Classifier { return newForest(cfg) },
			features.Train.Data, yAll,
			model_selection.NewStratifiedKFold(cfg.CVFolds, true, cfg.Seed),
			1,
		)
		if err != nil {
			return nil, errors.Wrap(err, "Evaluate: cross-validation")
		}
		ev.CV = cv
	}

	log.GetLoggerWithName("pipeline").Info("Validation finished",
		log.StageKey, "Evaluate",
		log.PhaseKey, log.PhaseValidation,
		log.SamplesKey, len(split.TestIndices),
		log.AccuracyKey, acc,
		log.LossKey, ev.LogLoss,
	)
	return ev, nil
}

// FormatConfusion renders a confusion matrix as CSV with class names on both
// axes, true classes as rows.
func FormatConfusion(cm *mat.Dense, classes []string) string {
	var sb strings.Builder
	r, c := cm.Dims()
	fmt.Fprintf(&sb, "%s\n", strings.Join(append([]string{"true\\pred"}, classes[:c]...), ","))
	for i := 0; i < r; i++ {
		cells := make([]string, c+1)
		cells[0] = classes[i]
		for j := 0; j < c; j++ {
			cells[j+1] = fmt.Sprintf("%d", int(cm.At(i, j)))
		}
		fmt.Fprintln(&sb, strings.Join(cells, ","))
	}
	return sb.String()
}
