package classify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ArtifactFormatVersion is the artifact format this build reads and writes.
const ArtifactFormatVersion = 1

// TrainingMetadata records the hyperparameters and validation outcome of
// the run that produced an artifact. Unset fields are omitted from the
// document; the schema constrains only the fields that are present.
type TrainingMetadata struct {
	BatchSize          int     `json:"batch_size,omitempty"`
	LearningRate       float64 `json:"learning_rate,omitempty"`
	Epochs             int     `json:"epochs,omitempty"`
	Generation         int     `json:"generation,omitempty"`
	ValidationAccuracy float64 `json:"validation_accuracy,omitempty"`
}

// Artifact is the portable serialized form of a trained classifier:
// an explicit architecture description plus weight and bias arrays,
// versioned so older readers can refuse newer files.
type Artifact struct {
	FormatVersion int              `json:"format_version"`
	Layers        []int            `json:"layers"`
	Activation    string           `json:"activation"`
	Weights       [][]float64      `json:"weights"`
	Biases        [][]float64      `json:"biases"`
	TrainedAt     time.Time        `json:"trained_at"`
	Metadata      TrainingMetadata `json:"metadata"`
}

// Version is a short human-readable descriptor of the artifact,
// suitable for run records and logs.
func (a *Artifact) Version() string {
	return fmt.Sprintf("v%d gen%d acc%.4f", a.FormatVersion, a.Metadata.Generation, a.Metadata.ValidationAccuracy)
}

// artifactSchema returns the JSON-Schema (draft 2020-12 subset) the
// artifact document must satisfy, as a generic map.
func artifactSchema() map[string]any {
	numberArray := map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "number"},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"format_version": map[string]any{"type": "integer", "minimum": 1},
			"layers": map[string]any{
				"type":     "array",
				"minItems": 2,
				"items":    map[string]any{"type": "integer", "minimum": 1},
			},
			"activation": map[string]any{"type": "string", "enum": []string{"sigmoid"}},
			"weights":    map[string]any{"type": "array", "items": numberArray},
			"biases":     map[string]any{"type": "array", "items": numberArray},
			"trained_at": map[string]any{"type": "string"},
			"metadata": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"batch_size":          map[string]any{"type": "integer", "minimum": 1},
					"learning_rate":       map[string]any{"type": "number"},
					"epochs":              map[string]any{"type": "integer", "minimum": 1},
					"generation":          map[string]any{"type": "integer", "minimum": 0},
					"validation_accuracy": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
				},
			},
		},
		"required": []string{"format_version", "layers", "activation", "weights", "biases"},
	}
}

// ValidateArtifactJSON validates raw artifact bytes against the schema.
func ValidateArtifactJSON(data []byte) error {
	b, err := json.Marshal(artifactSchema())
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("artifact.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("artifact.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal artifact: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("artifact does not match schema: %w", err)
	}
	return nil
}

// LoadArtifact reads, schema-validates and decodes an artifact file,
// then cross-checks the weight shapes against the declared layers.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	if err := ValidateArtifactJSON(data); err != nil {
		return nil, err
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if a.FormatVersion > ArtifactFormatVersion {
		return nil, fmt.Errorf("artifact format v%d is newer than supported v%d", a.FormatVersion, ArtifactFormatVersion)
	}
	if err := a.checkShapes(); err != nil {
		return nil, err
	}
	return &a, nil
}

// SaveArtifact writes the artifact as indented JSON, creating parent
// directories as needed. The document is validated against the same
// schema LoadArtifact enforces, so a saved artifact always loads back.
func SaveArtifact(path string, a *Artifact) error {
	if err := a.checkShapes(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	if err := ValidateArtifactJSON(data); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}

// FromNetwork captures a trained network into an artifact.
func FromNetwork(n *Network, meta TrainingMetadata) *Artifact {
	c := n.Clone()
	return &Artifact{
		FormatVersion: ArtifactFormatVersion,
		Layers:        c.Sizes,
		Activation:    "sigmoid",
		Weights:       c.Weights,
		Biases:        c.Biases,
		TrainedAt:     time.Now().UTC(),
		Metadata:      meta,
	}
}

// Network rebuilds the runnable network from the artifact.
func (a *Artifact) Network() (*Network, error) {
	if err := a.checkShapes(); err != nil {
		return nil, err
	}
	n := &Network{
		Sizes:   append([]int(nil), a.Layers...),
		Weights: make([][]float64, len(a.Weights)),
		Biases:  make([][]float64, len(a.Biases)),
	}
	for l := range a.Weights {
		n.Weights[l] = append([]float64(nil), a.Weights[l]...)
		n.Biases[l] = append([]float64(nil), a.Biases[l]...)
	}
	return n, nil
}

func (a *Artifact) checkShapes() error {
	transitions := len(a.Layers) - 1
	if transitions < 1 {
		return fmt.Errorf("artifact declares %d layers, need at least 2", len(a.Layers))
	}
	if len(a.Weights) != transitions || len(a.Biases) != transitions {
		return fmt.Errorf("artifact has %d weight and %d bias matrices for %d transitions",
			len(a.Weights), len(a.Biases), transitions)
	}
	for l := 0; l < transitions; l++ {
		in, out := a.Layers[l], a.Layers[l+1]
		if len(a.Weights[l]) != in*out {
			return fmt.Errorf("layer %d weight matrix has %d entries, want %d", l, len(a.Weights[l]), in*out)
		}
		if len(a.Biases[l]) != out {
			return fmt.Errorf("layer %d bias vector has %d entries, want %d", l, len(a.Biases[l]), out)
		}
	}
	return nil
}
