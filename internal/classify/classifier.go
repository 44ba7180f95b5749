// Package classify labels cropped box samples as crossed or empty with
// a pre-trained feed-forward network. Inference is static: the weights
// come from a versioned artifact loaded at startup and never change
// during a run.
package classify

import (
	"fmt"
	"image"
	"log/slog"
	"math"

	"markscan/constants"
)

// Prediction is one classified box sample. Scores holds the raw network
// outputs in label order (empty, crossed).
type Prediction struct {
	Label      constants.Label
	Confidence float64
	Scores     [2]float64
}

// Classifier wraps the network and its artifact metadata.
type Classifier struct {
	net    *Network
	art    *Artifact
	side   int
	logger *slog.Logger
}

// Load reads a model artifact and builds a ready classifier. The first
// layer must be a perfect square of a sample side, and the output layer
// must score exactly the two labels.
func Load(path string, logger *slog.Logger) (*Classifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	art, err := LoadArtifact(path)
	if err != nil {
		return nil, err
	}
	net, err := art.Network()
	if err != nil {
		return nil, err
	}

	if out := net.Sizes[len(net.Sizes)-1]; out != len(constants.AllLabels) {
		return nil, fmt.Errorf("artifact output layer has %d neurons, want %d", out, len(constants.AllLabels))
	}
	side := int(math.Sqrt(float64(net.Sizes[0])))
	if side*side != net.Sizes[0] {
		return nil, fmt.Errorf("artifact input layer %d is not a square sample", net.Sizes[0])
	}

	logger.Info("classifier.loaded",
		"path", path,
		"model_version", art.Version(),
		"input_side", side,
		"trained_at", art.TrainedAt,
	)
	return &Classifier{net: net, art: art, side: side, logger: logger}, nil
}

// SampleSide returns the expected side length of input samples.
func (c *Classifier) SampleSide() int { return c.side }

// CheckSampleSide verifies the artifact was trained for the configured
// sample size, catching a stale model before the batch starts.
func (c *Classifier) CheckSampleSide(side int) error {
	if c.side != side {
		return fmt.Errorf("artifact expects %dx%d samples, configuration produces %dx%d", c.side, c.side, side, side)
	}
	return nil
}

// ModelVersion returns the artifact descriptor for run records.
func (c *Classifier) ModelVersion() string { return c.art.Version() }

// Predict classifies one grayscale box sample. The sample must already
// be resized to SampleSide x SampleSide.
func (c *Classifier) Predict(sample *image.Gray) (Prediction, error) {
	input, err := SampleVector(sample, c.side)
	if err != nil {
		return Prediction{}, err
	}
	out, err := c.net.Feedforward(input)
	if err != nil {
		return Prediction{}, err
	}

	p := Prediction{Scores: [2]float64{out[0], out[1]}}
	p.Label = constants.LabelEmpty
	winner := out[0]
	if out[1] > out[0] {
		p.Label = constants.LabelCrossed
		winner = out[1]
	}
	if sum := out[0] + out[1]; sum > 0 {
		p.Confidence = winner / sum
	} else {
		p.Confidence = 0.5
	}
	return p, nil
}

// SampleVector flattens a square grayscale sample into the network
// input: row-major pixel values scaled into [0, 1].
func SampleVector(sample *image.Gray, side int) ([]float64, error) {
	b := sample.Bounds()
	if b.Dx() != side || b.Dy() != side {
		return nil, fmt.Errorf("sample is %dx%d, want %dx%d", b.Dx(), b.Dy(), side, side)
	}
	v := make([]float64, side*side)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v[i] = float64(sample.GrayAt(x, y).Y) / 255
			i++
		}
	}
	return v, nil
}
