// Standard attribute keys used across the pipeline.
//
// Keys follow a hierarchical naming convention (e.g. "model.name",
// "data.samples") so that log lines can be filtered by prefix.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of model.
	// Examples: "RandomForestClassifier", "DecisionTreeClassifier", "LabelEncoder"
	ModelNameKey = "model.name"

	// EstimatorIDKey identifies one model instance, e.g. a tree inside a forest.
	EstimatorIDKey = "estimator.id"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "score"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is performing the operation.
	// Examples: "dataset", "schema", "ensemble", "pipeline"
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of model lifecycle.
	PhaseKey = "ml.phase"

	// StageKey names the pipeline stage (LoadData, ReconcileSchema, ...).
	StageKey = "pipeline.stage"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of rows.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of feature columns.
	FeaturesKey = "data.features"

	// ClassesKey indicates the number of target classes.
	ClassesKey = "data.classes"

	// PathKey is the file a stage read or wrote.
	PathKey = "data.path"
)

// Schema reconciliation
const (
	// AttributeKey is a categorical attribute name (e.g. "CALC").
	AttributeKey = "schema.attribute"

	// MissingColumnsKey lists columns filled with zeros.
	MissingColumnsKey = "schema.missing"

	// DroppedColumnsKey lists test columns not present in the training schema.
	DroppedColumnsKey = "schema.dropped"

	// CorrectionsKey is the number of correction rules applied.
	CorrectionsKey = "schema.corrections"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// AccuracyKey records classification accuracy in [0, 1].
	AccuracyKey = "metrics.accuracy"

	// LossKey records log loss on held-out data.
	LossKey = "metrics.loss"
)

// Prediction and Output Context
const (
	// PredsKey indicates the number of predictions made.
	PredsKey = "preds.count"
)

// Error and Warning Context
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"

	// SuggestionKey provides helpful suggestions for resolving issues.
	SuggestionKey = "error.suggestion"
)

// Hyperparameters and Configuration
const (
	// HyperParamsKey contains model hyperparameters as a structured object.
	HyperParamsKey = "model.hyperparams"

	// TreesKey records the number of trees in a forest.
	TreesKey = "hyperparams.n_estimators"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"

	// WorkerIDKey identifies the goroutine slot that fit a tree.
	WorkerIDKey = "infra.worker_id"
)

// Standard attribute value constants for common operations.
const (
	// Standard ML operations
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationScore     = "score"

	// Standard ML phases
	PhaseTraining      = "training"
	PhaseValidation    = "validation"
	PhaseInference     = "inference"
	PhasePreprocessing = "preprocessing"

	// Standard error codes
	ErrorNotFitted         = "NOT_FITTED"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorEmptyData         = "EMPTY_DATA"
	ErrorInvalidInput      = "INVALID_INPUT"
	ErrorUnknownColumn     = "UNKNOWN_COLUMN"
)
