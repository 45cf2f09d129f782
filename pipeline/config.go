// Package pipeline wires the obesity classification run: load the CSV files,
// inspect them, encode and reconcile the feature schemas, fit the forest,
// write the submission and report a hold-out validation accuracy.
package pipeline

import (
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/scigo-obesity/pkg/errors"
	"github.com/YuminosukeSato/scigo-obesity/schema"
)

// Config holds every knob of a run. Zero values are not meaningful; start
// from DefaultConfig.
type Config struct {
	TrainPath      string `yaml:"train"`
	TestPath       string `yaml:"test"`
	SubmissionPath string `yaml:"submission"`

	IDColumn    string   `yaml:"id_column"`
	LabelColumn string   `yaml:"label_column"`
	Categorical []string `yaml:"categorical"`

	Corrections schema.CorrectionTable `yaml:"corrections"`

	Seed           uint64  `yaml:"seed"`
	ValidationSize float64 `yaml:"validation_size"`
	NEstimators    int     `yaml:"n_estimators"`
	MaxFeatures    string  `yaml:"max_features"`
	NJobs          int     `yaml:"n_jobs"`
	CVFolds        int     `yaml:"cv_folds"` // 0 disables cross-validation

	TopK           int    `yaml:"top_k"`
	ModelPath      string `yaml:"model_path"`      // optional gob artifact of the full-data model
	ImportancePlot string `yaml:"importance_plot"` // optional chart of the validation importances
	Inspect        bool   `yaml:"inspect"`         // print head/info/nunique summaries

	// Out receives the human readable report. Nil discards it.
	Out io.Writer `yaml:"-"`
}

// DefaultCategorical lists the categorical attributes of the obesity data.
var DefaultCategorical = []string{
	"Gender",
	"family_history_with_overweight",
	"FAVC",
	"CAEC",
	"SMOKE",
	"SCC",
	"CALC",
	"MTRANS",
}

// DefaultConfig reproduces the reference run: files in the working
// directory, 100 trees seeded with 28 and a 20% validation split.
func DefaultConfig() *Config {
	return &Config{
		TrainPath:      "train.csv",
		TestPath:       "test.csv",
		SubmissionPath: "submission.csv",
		IDColumn:       "id",
		LabelColumn:    "NObeyesdad",
		Categorical:    append([]string(nil), DefaultCategorical...),
		Corrections:    schema.DefaultCorrections(),
		Seed:           28,
		ValidationSize: 0.2,
		NEstimators:    100,
		MaxFeatures:    "sqrt",
		NJobs:          -1,
		TopK:           10,
		Inspect:        true,
	}
}

// LoadConfig overlays the YAML document read from r onto DefaultConfig.
// Unknown keys are rejected.
func LoadConfig(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "LoadConfig: decode yaml")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "LoadConfig")
	}
	return cfg, nil
}

// LoadConfigFile reads a YAML config from path.
func LoadConfigFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer file.Close()
	return LoadConfig(file)
}

// Validate checks that the configuration describes a runnable job.
func (c *Config) Validate() error {
	switch {
	case c.TrainPath == "":
		return errors.NewValidationError("train", "is required", c.TrainPath)
	case c.TestPath == "":
		return errors.NewValidationError("test", "is required", c.TestPath)
	case c.SubmissionPath == "":
		return errors.NewValidationError("submission", "is required", c.SubmissionPath)
	case c.IDColumn == "":
		return errors.NewValidationError("id_column", "is required", c.IDColumn)
	case c.LabelColumn == "":
		return errors.NewValidationError("label_column", "is required", c.LabelColumn)
	case c.IDColumn == c.LabelColumn:
		return errors.NewValidationError("label_column", "must differ from id_column", c.LabelColumn)
	case c.ValidationSize <= 0 || c.ValidationSize >= 1:
		return errors.NewValidationError("validation_size", "must be in (0, 1)", c.ValidationSize)
	case c.NEstimators < 1:
		return errors.NewValidationError("n_estimators", "must be >= 1", c.NEstimators)
	case c.CVFolds < 0 || c.CVFolds == 1:
		return errors.NewValidationError("cv_folds", "must be 0 or >= 2", c.CVFolds)
	}
	switch c.MaxFeatures {
	case "sqrt", "log2", "all":
	default:
		return errors.NewValidationError("max_features", "must be 'sqrt', 'log2' or 'all'", c.MaxFeatures)
	}
	for _, name := range c.Categorical {
		if name == c.IDColumn || name == c.LabelColumn {
			return errors.NewValidationError("categorical", "must not contain the id or label column", name)
		}
	}
	return c.Corrections.Validate()
}

func (c *Config) out() io.Writer {
	if c.Out == nil {
		return io.Discard
	}
	return c.Out
}
