package train

import (
	"image"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"markscan/internal/classify"
	"markscan/internal/imaging"
)

// syntheticSamples builds a trivially separable set: dark inputs are
// crossed, bright inputs empty.
func syntheticSamples(n int) []Sample {
	var out []Sample
	for i := 0; i < n; i++ {
		dark := []float64{0.05, 0.1, 0.05, 0.1}
		bright := []float64{0.9, 0.95, 0.92, 0.88}
		out = append(out,
			Sample{Input: dark, Expected: crossedVec},
			Sample{Input: bright, Expected: emptyVec},
		)
	}
	return out
}

func TestSGDLearnsSeparableData(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	net, err := classify.NewNetwork([]int{4, 2}, rng)
	if err != nil {
		t.Fatalf("NewNetwork: %v", err)
	}

	samples := syntheticSamples(8)
	SGD(net, samples, Hyperparams{BatchSize: 4, LearningRate: 3.0, Epochs: 300}, rng)

	if acc := Evaluate(net, samples); acc != 1.0 {
		t.Fatalf("accuracy after training = %f, want 1.0", acc)
	}
}

func TestSGDTrainsSetSmallerThanBatch(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	net, err := classify.NewNetwork([]int{4, 2}, rng)
	if err != nil {
		t.Fatalf("NewNetwork: %v", err)
	}

	// 6 samples against a batch size of 50: every epoch is one partial
	// mini-batch, which must still update the network.
	samples := syntheticSamples(3)
	SGD(net, samples, Hyperparams{BatchSize: 50, LearningRate: 3.0, Epochs: 300}, rng)

	if acc := Evaluate(net, samples); acc != 1.0 {
		t.Fatalf("accuracy after training = %f, want 1.0", acc)
	}
}

func TestSGDIsDeterministicForFixedSeed(t *testing.T) {
	train := func() []float64 {
		rng := rand.New(rand.NewSource(11))
		net, err := classify.NewNetwork([]int{4, 2}, rng)
		if err != nil {
			t.Fatalf("NewNetwork: %v", err)
		}
		SGD(net, syntheticSamples(4), Hyperparams{BatchSize: 2, LearningRate: 1.0, Epochs: 20}, rng)
		out, err := net.Feedforward([]float64{0.2, 0.3, 0.4, 0.5})
		if err != nil {
			t.Fatalf("Feedforward: %v", err)
		}
		return out
	}

	a, b := train(), train()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("run outputs differ: %v vs %v", a, b)
		}
	}
}

func TestEvaluateEmpty(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	net, err := classify.NewNetwork([]int{4, 2}, rng)
	if err != nil {
		t.Fatalf("NewNetwork: %v", err)
	}
	if acc := Evaluate(net, nil); acc != 0 {
		t.Fatalf("accuracy of empty set = %f, want 0", acc)
	}
}

func writeCrops(t *testing.T, dir string, n int, v uint8) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < n; i++ {
		img := image.NewGray(image.Rect(0, 0, 4, 4))
		for p := range img.Pix {
			img.Pix[p] = v
		}
		if err := imaging.Save(filepath.Join(dir, "crop"+strconv.Itoa(i)+".png"), img); err != nil {
			t.Fatal(err)
		}
	}
}

func TestLoadDatasetSplit(t *testing.T) {
	root := t.TempDir()
	crossedDir := filepath.Join(root, "crossed")
	emptyDir := filepath.Join(root, "empty")
	writeCrops(t, crossedDir, 6, 20)
	writeCrops(t, emptyDir, 6, 240)
	// Non-PNG files are ignored.
	if err := os.WriteFile(filepath.Join(crossedDir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	ds, err := LoadDataset(crossedDir, emptyDir, 4, rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}

	if total := len(ds.Training) + len(ds.Validation); total != 12 {
		t.Fatalf("total samples = %d, want 12", total)
	}
	if len(ds.Training) != 9 {
		t.Errorf("training samples = %d, want 9 (75%%)", len(ds.Training))
	}

	// Expectations follow the source directory.
	for _, s := range append(append([]Sample{}, ds.Training...), ds.Validation...) {
		want := emptyVec
		if filepath.Dir(s.Path) == crossedDir {
			want = crossedVec
		}
		if s.Expected[0] != want[0] || s.Expected[1] != want[1] {
			t.Errorf("%s: expectation %v, want %v", s.Path, s.Expected, want)
		}
		if len(s.Input) != 16 {
			t.Errorf("%s: input length %d, want 16", s.Path, len(s.Input))
		}
	}
}

func TestLoadDatasetEmptyDirs(t *testing.T) {
	root := t.TempDir()
	crossedDir := filepath.Join(root, "crossed")
	emptyDir := filepath.Join(root, "empty")
	writeCrops(t, crossedDir, 0, 0)
	writeCrops(t, emptyDir, 0, 0)

	if _, err := LoadDataset(crossedDir, emptyDir, 4, rand.New(rand.NewSource(1))); err == nil {
		t.Fatal("expected error for empty training directories")
	}
}

func TestSelectorPicksPassingNetwork(t *testing.T) {
	root := t.TempDir()
	crossedDir := filepath.Join(root, "crossed")
	emptyDir := filepath.Join(root, "empty")
	writeCrops(t, crossedDir, 8, 15)
	writeCrops(t, emptyDir, 8, 235)

	ds, err := LoadDataset(crossedDir, emptyDir, 4, rand.New(rand.NewSource(5)))
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}

	sel := NewSelector(SelectorConfig{
		Layers:            []int{16, 2},
		Generations:       2,
		AccuracyThreshold: 0.9,
		Seed:              5,
		Hyperparams:       Hyperparams{BatchSize: 4, LearningRate: 3.0, Epochs: 300},
	}, slog.Default())

	art, err := sel.Select(ds)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if art.Metadata.ValidationAccuracy < 0.9 {
		t.Errorf("validation accuracy %f below threshold", art.Metadata.ValidationAccuracy)
	}
	if art.Metadata.Generation < 1 || art.Metadata.Generation > 2 {
		t.Errorf("generation = %d, want 1 or 2", art.Metadata.Generation)
	}
}

func TestSelectorFailsBelowThreshold(t *testing.T) {
	// Identical inputs with opposite labels cannot be separated.
	samples := []Sample{
		{Input: []float64{0.5, 0.5, 0.5, 0.5}, Expected: crossedVec},
		{Input: []float64{0.5, 0.5, 0.5, 0.5}, Expected: emptyVec},
	}
	ds := &Dataset{Training: samples, Validation: samples}

	sel := NewSelector(SelectorConfig{
		Layers:            []int{4, 2},
		Generations:       1,
		AccuracyThreshold: 0.99,
		Seed:              1,
		Hyperparams:       Hyperparams{BatchSize: 2, LearningRate: 1.0, Epochs: 10},
	}, slog.Default())

	if _, err := sel.Select(ds); err == nil {
		t.Fatal("expected failure when validation accuracy cannot reach the threshold")
	}
}
