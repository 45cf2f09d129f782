package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/YuminosukeSato/scigo-obesity/pkg/errors"
	"github.com/YuminosukeSato/scigo-obesity/pkg/log"
	"github.com/YuminosukeSato/scigo-obesity/preprocessing"
	"github.com/YuminosukeSato/scigo-obesity/report"
	"github.com/YuminosukeSato/scigo-obesity/schema"
)

// Result summarises a finished run.
type Result struct {
	SubmissionPath string
	Rows           int
	Schema         schema.Report
	Divergences    []schema.Divergence
	Applied        []schema.Applied
	Accuracy       float64
	LogLoss        float64 // -1 when the validation part had a class unseen in training
	Importances    []report.Importance
	Evaluation     *Evaluation
}

// stage runs fn as a named pipeline stage. The context is checked first and
// a panic inside fn is returned as an error naming the stage.
func stage(ctx context.Context, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrapf(err, "%s: cancelled", name)
	}
	logger := log.GetLoggerWithName("pipeline").With(log.StageKey, name)
	start := time.Now()
	if err := errors.SafeExecute(name, fn); err != nil {
		logger.Error("Stage failed", log.ErrAttrKey, err)
		return err
	}
	logger.Debug("Stage finished", log.DurationMsKey, time.Since(start).Milliseconds())
	return nil
}

// Run executes the whole job described by cfg. Every stage receives its
// inputs explicitly: the full-data model and the validation model are fit on
// distinct matrices.
func Run(ctx context.Context, cfg *Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	w := cfg.out()

	var (
		data     *Data
		features *Features
		trained  *Model
		test     *preprocessing.Encoded
		rep      schema.Report
		preds    []string
		eval     *Evaluation
	)

	if err := stage(ctx, "LoadData", func() (err error) {
		data, err = LoadData(cfg)
		return err
	}); err != nil {
		return nil, err
	}

	if cfg.Inspect {
		if err := stage(ctx, "Inspect", func() error {
			return Inspect(w, cfg, data)
		}); err != nil {
			return nil, err
		}
	}

	if err := stage(ctx, "PrepareFeatures", func() (err error) {
		features, err = PrepareFeatures(w, cfg, data)
		return err
	}); err != nil {
		return nil, err
	}

	if err := stage(ctx, "TrainModel", func() (err error) {
		trained, err = TrainModel(cfg, features)
		return err
	}); err != nil {
		return nil, err
	}

	if cfg.ModelPath != "" {
		if err := stage(ctx, "SaveModel", func() error {
			return SaveModel(trained, cfg.ModelPath)
		}); err != nil {
			return nil, err
		}
	}

	if err := stage(ctx, "ReconcileSchema", func() (err error) {
		test, rep, err = ReconcileSchema(trained.Schema, features.Test)
		return err
	}); err != nil {
		return nil, err
	}

	if err := stage(ctx, "PredictTest", func() (err error) {
		preds, err = PredictTest(trained, test)
		return err
	}); err != nil {
		return nil, err
	}

	if err := stage(ctx, "WriteSubmission", func() error {
		return WriteSubmission(cfg, features.IDs, preds)
	}); err != nil {
		return nil, err
	}

	if err := stage(ctx, "Evaluate", func() (err error) {
		eval, err = Evaluate(cfg, features)
		return err
	}); err != nil {
		return nil, err
	}

	fmt.Fprintln(w, report.FormatImportances(eval.Importances, cfg.TopK))
	if eval.Confusion != nil {
		fmt.Fprintln(w, FormatConfusion(eval.Confusion, eval.Classes))
	}
	if eval.CV != nil {
		fmt.Fprintf(w, "Cross-validation Accuracy: %.4f (+/- %.4f)\n", eval.CV.GetMeanScore(), eval.CV.GetStdScore())
	}
	fmt.Fprintf(w, "Validation Accuracy: %v\n", eval.Accuracy)

	if cfg.ImportancePlot != "" {
		if err := stage(ctx, "PlotImportances", func() error {
			return report.PlotImportances(eval.Importances, cfg.TopK, cfg.ImportancePlot)
		}); err != nil {
			return nil, err
		}
	}

	return &Result{
		SubmissionPath: cfg.SubmissionPath,
		Rows:           len(preds),
		Schema:         rep,
		Divergences:    features.Divergences,
		Applied:        features.Applied,
		Accuracy:       eval.Accuracy,
		LogLoss:        eval.LogLoss,
		Importances:    eval.Importances,
		Evaluation:     eval,
	}, nil
}
