package train

import (
	"fmt"
	"log/slog"
	"math/rand"

	"markscan/internal/classify"
)

// SelectorConfig drives the generation loop.
type SelectorConfig struct {
	Layers            []int
	Generations       int
	AccuracyThreshold float64
	Seed              int64
	Hyperparams
}

// Selector trains several networks from fresh random weights and keeps
// the one with the best validation accuracy.
type Selector struct {
	cfg    SelectorConfig
	logger *slog.Logger
}

func NewSelector(cfg SelectorConfig, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{cfg: cfg, logger: logger}
}

// Select runs the configured number of generations over the dataset and
// returns the winning artifact. It fails if no generation clears the
// accuracy threshold on the validation split.
func (s *Selector) Select(ds *Dataset) (*classify.Artifact, error) {
	rng := rand.New(rand.NewSource(s.cfg.Seed))

	var bestNet *classify.Network
	bestAcc := -1.0
	bestGen := 0

	for gen := 1; gen <= s.cfg.Generations; gen++ {
		net, err := classify.NewNetwork(s.cfg.Layers, rng)
		if err != nil {
			return nil, err
		}
		SGD(net, ds.Training, s.cfg.Hyperparams, rng)
		acc := Evaluate(net, ds.Validation)

		s.logger.Info("train.generation.done",
			"generation", gen,
			"validation_accuracy", acc,
			"training_samples", len(ds.Training),
			"validation_samples", len(ds.Validation),
		)
		if acc > bestAcc {
			bestNet, bestAcc, bestGen = net, acc, gen
		}
	}

	if bestAcc < s.cfg.AccuracyThreshold {
		return nil, fmt.Errorf("best validation accuracy %.4f below threshold %.4f after %d generations",
			bestAcc, s.cfg.AccuracyThreshold, s.cfg.Generations)
	}

	return classify.FromNetwork(bestNet, classify.TrainingMetadata{
		BatchSize:          s.cfg.BatchSize,
		LearningRate:       s.cfg.LearningRate,
		Epochs:             s.cfg.Epochs,
		Generation:         bestGen,
		ValidationAccuracy: bestAcc,
	}), nil
}
