// Package train holds the offline, manually-triggered training flow for
// the box classifier. Nothing here runs during normal pipeline
// operation.
package train

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"markscan/internal/classify"
	"markscan/internal/imaging"
)

// TrainingProportion is the share of samples used for training; the
// rest validates the trained network.
const TrainingProportion = 0.75

// Expectation vectors in label order (empty, crossed).
var (
	emptyVec   = []float64{1, 0}
	crossedVec = []float64{0, 1}
)

// Sample is one labelled box crop, flattened for the network.
type Sample struct {
	Path     string
	Input    []float64
	Expected []float64
}

// Dataset is a shuffled, split collection of labelled samples.
type Dataset struct {
	Training   []Sample
	Validation []Sample
}

// LoadDataset reads .png box crops from a crossed and an empty
// directory, resizes them to side x side, shuffles with rng and splits
// them by TrainingProportion.
func LoadDataset(crossedDir, emptyDir string, side int, rng *rand.Rand) (*Dataset, error) {
	crossed, err := loadDir(crossedDir, side, crossedVec)
	if err != nil {
		return nil, err
	}
	empty, err := loadDir(emptyDir, side, emptyVec)
	if err != nil {
		return nil, err
	}

	all := append(crossed, empty...)
	if len(all) == 0 {
		return nil, fmt.Errorf("no training samples found in %s or %s", crossedDir, emptyDir)
	}
	rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })

	split := int(float64(len(all))*TrainingProportion + 0.5)
	return &Dataset{
		Training:   all[:split],
		Validation: all[split:],
	}, nil
}

func loadDir(dir string, side int, expected []float64) ([]Sample, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read training dir: %w", err)
	}

	var samples []Sample
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".png") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		img, err := imaging.Load(path)
		if err != nil {
			return nil, err
		}
		gray := imaging.Resize(imaging.ToGray(img), side, side)
		input, err := classify.SampleVector(gray, side)
		if err != nil {
			return nil, err
		}
		samples = append(samples, Sample{Path: path, Input: input, Expected: expected})
	}
	return samples, nil
}
