// trainbox is the offline training utility for the box classifier. It
// never runs as part of the analysis pipeline: point it at a directory
// of crossed box crops and one of empty crops, and it trains several
// candidate networks and stores the best one as a model artifact.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"markscan/internal/classify"
	"markscan/internal/common"
	"markscan/internal/train"
)

func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		crossedDir  = flag.String("crossed", "", "directory with crossed box crops (required)")
		emptyDir    = flag.String("empty", "", "directory with empty box crops (required)")
		out         = flag.String("out", "./model/classifier.json", "output artifact path")
		sampleSide  = flag.Int("side", 40, "sample side length in pixels")
		batchSize   = flag.Int("batch", 50, "mini-batch size")
		rate        = flag.Float64("rate", 1.0, "learning rate")
		epochs      = flag.Int("epochs", 400, "training epochs per generation")
		generations = flag.Int("generations", 1, "number of candidate networks to train")
		threshold   = flag.Float64("threshold", 0.999, "minimum validation accuracy to accept")
		seed        = flag.Int64("seed", time.Now().UnixNano(), "RNG seed")
	)
	flag.Parse()

	if *crossedDir == "" || *emptyDir == "" {
		printError("Error: --crossed and --empty are required\n")
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	v := common.NewValidator().
		Field("batch", *batchSize, common.Positive).
		Field("rate", *rate, common.Positive).
		Field("epochs", *epochs, common.Positive).
		Field("generations", *generations, common.Positive).
		Field("side", *sampleSide, common.Positive).
		Field("threshold", *threshold, common.UnitInterval)
	if v.HasErrors() {
		printError("Error: %s\n", v.ErrorMessage())
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(*seed))
	ds, err := train.LoadDataset(*crossedDir, *emptyDir, *sampleSide, rng)
	if err != nil {
		logger.Error("failed to load dataset", "error", err)
		os.Exit(1)
	}
	logger.Info("dataset loaded",
		"training_samples", len(ds.Training),
		"validation_samples", len(ds.Validation),
	)

	selector := train.NewSelector(train.SelectorConfig{
		Layers:            []int{*sampleSide * *sampleSide, 2},
		Generations:       *generations,
		AccuracyThreshold: *threshold,
		Seed:              *seed,
		Hyperparams: train.Hyperparams{
			BatchSize:    *batchSize,
			LearningRate: *rate,
			Epochs:       *epochs,
		},
	}, logger)

	artifact, err := selector.Select(ds)
	if err != nil {
		logger.Error("training failed", "error", err)
		os.Exit(1)
	}
	if err := classify.SaveArtifact(*out, artifact); err != nil {
		logger.Error("failed to save artifact", "error", err)
		os.Exit(1)
	}

	logger.Info("training complete",
		"artifact", *out,
		"model_version", artifact.Version(),
		"validation_accuracy", artifact.Metadata.ValidationAccuracy,
	)
	fmt.Printf("Training complete!\n")
	fmt.Printf("- Validation accuracy: %.4f\n", artifact.Metadata.ValidationAccuracy)
	fmt.Printf("- Artifact: %s\n", *out)
}
