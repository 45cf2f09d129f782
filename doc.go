// Package obesity classifies survey respondents into obesity categories with
// a random forest and keeps the test feature schema aligned with the one the
// model was trained on.
//
// One-hot encoding the training and test files independently yields
// different column sets whenever a categorical attribute has levels that
// appear in only one of them. The schema package detects those level
// divergences, applies a curated correction table to known-unseen test
// levels and reconciles the encoded test matrix against the training
// Feature Schema: missing columns are zero-filled, unknown columns dropped,
// and the order matches training exactly.
//
// # Quick Start
//
//	go run ./cmd/obesity -train train.csv -test test.csv -out submission.csv
//
// prints the data summaries, the level divergences, the top feature
// importances and the hold-out validation accuracy, and writes one
// "id,NObeyesdad" row per test row.
//
// The same run from Go:
//
//	package main
//
//	import (
//	    "context"
//	    "fmt"
//	    "log"
//	    "os"
//
//	    "github.com/YuminosukeSato/scigo-obesity/pipeline"
//	)
//
//	func main() {
//	    cfg := pipeline.DefaultConfig()
//	    cfg.Out = os.Stdout
//
//	    res, err := pipeline.Run(context.Background(), cfg)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println("Validation Accuracy:", res.Accuracy)
//	}
//
// # Packages
//
//   - schema: Feature Schema, level divergence check, correction table, reconciliation
//   - dataset: CSV loading into typed frames and the head/info/nunique summaries
//   - preprocessing: one-hot encoding (GetDummies) and label encoding
//   - sklearn/tree: CART DecisionTreeClassifier
//   - sklearn/ensemble: RandomForestClassifier
//   - model_selection: train/test split, KFold, StratifiedKFold, CrossValidate
//   - metrics: accuracy, confusion matrix, log loss, AUC
//   - report: ranked feature importances as text and as a bar chart
//   - pipeline: the staged run and its YAML configuration
//   - core/model: estimator interfaces, fitted state and gob persistence
//   - core/parallel: chunked goroutine fan-out
//   - pkg/errors, pkg/log: structured errors, warnings and logging
//
// # scikit-learn Compatibility
//
// The estimators follow the scikit-learn shape:
//
//	forest := ensemble.NewRandomForestClassifier(
//	    ensemble.WithNEstimators(100),
//	    ensemble.WithMaxFeatures("sqrt"),
//	    ensemble.WithRandomState(28),
//	    ensemble.WithNJobs(-1), // Use all CPU cores
//	)
//
// A fixed random state gives the same forest for any number of workers.
package obesity
