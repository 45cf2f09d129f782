// Command obesity trains a random forest on the obesity survey data, writes
// a submission for the test file and prints a hold-out validation accuracy.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/YuminosukeSato/scigo-obesity/pipeline"
	"github.com/YuminosukeSato/scigo-obesity/pkg/log"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults are used when empty)")
	trainPath := flag.String("train", "train.csv", "training CSV with the label column")
	testPath := flag.String("test", "test.csv", "test CSV with the id column")
	output := flag.String("out", "submission.csv", "submission CSV to write")
	seed := flag.Uint64("seed", 28, "random seed for the forest and the validation split")
	trees := flag.Int("trees", 100, "number of trees")
	valSize := flag.Float64("val-size", 0.2, "fraction of the training rows held out for validation")
	jobs := flag.Int("jobs", -1, "parallel workers, -1 uses every CPU")
	cvFolds := flag.Int("cv-folds", 0, "stratified cross-validation folds, 0 disables")
	modelOut := flag.String("model-out", "", "write the full-data model as a gob artifact")
	plotOut := flag.String("importance-plot", "", "write a bar chart of the top feature importances")
	quiet := flag.Bool("quiet", false, "skip the data inspection summaries")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Parse()

	level, err := log.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log.SetupLoggerTo(os.Stderr, level)
	log.NewWarnLogger(os.Stderr)

	cfg := pipeline.DefaultConfig()
	if *configPath != "" {
		if cfg, err = pipeline.LoadConfigFile(*configPath); err != nil {
			slog.Error("Failed to load config", log.ErrAttr(err))
			os.Exit(1)
		}
	}

	// flags given on the command line win over the config file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "train":
			cfg.TrainPath = *trainPath
		case "test":
			cfg.TestPath = *testPath
		case "out":
			cfg.SubmissionPath = *output
		case "seed":
			cfg.Seed = *seed
		case "trees":
			cfg.NEstimators = *trees
		case "val-size":
			cfg.ValidationSize = *valSize
		case "jobs":
			cfg.NJobs = *jobs
		case "cv-folds":
			cfg.CVFolds = *cvFolds
		case "model-out":
			cfg.ModelPath = *modelOut
		case "importance-plot":
			cfg.ImportancePlot = *plotOut
		case "quiet":
			cfg.Inspect = !*quiet
		}
	})
	cfg.Out = os.Stdout

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := pipeline.Run(ctx, cfg)
	if err != nil {
		slog.Error("Run failed", log.ErrAttr(err))
		stop()
		os.Exit(1)
	}
	slog.Info("Submission written",
		slog.String(log.PathKey, res.SubmissionPath),
		slog.Int(log.PredsKey, res.Rows),
		slog.Float64(log.AccuracyKey, res.Accuracy),
	)
}
