package classify

import (
	"fmt"
	"math"
	"math/rand"
)

// Network is a plain fully-connected feed-forward network with sigmoid
// activations. Weights[l] is the (Sizes[l+1] x Sizes[l]) matrix between
// layer l and l+1, stored row-major; Biases[l] has Sizes[l+1] entries.
type Network struct {
	Sizes   []int
	Weights [][]float64
	Biases  [][]float64
}

// NewNetwork builds a network with the given layer sizes and gaussian
// random parameters drawn from rng.
func NewNetwork(sizes []int, rng *rand.Rand) (*Network, error) {
	if len(sizes) < 2 {
		return nil, fmt.Errorf("network needs at least 2 layers, got %d", len(sizes))
	}
	for _, s := range sizes {
		if s < 1 {
			return nil, fmt.Errorf("invalid layer size %d", s)
		}
	}

	n := &Network{
		Sizes:   append([]int(nil), sizes...),
		Weights: make([][]float64, len(sizes)-1),
		Biases:  make([][]float64, len(sizes)-1),
	}
	for l := 0; l < len(sizes)-1; l++ {
		in, out := sizes[l], sizes[l+1]
		w := make([]float64, in*out)
		// Scale initial weights down by the fan-in so the sigmoid
		// does not start saturated.
		scale := 1 / math.Sqrt(float64(in))
		for i := range w {
			w[i] = rng.NormFloat64() * scale
		}
		b := make([]float64, out)
		for i := range b {
			b[i] = rng.NormFloat64()
		}
		n.Weights[l] = w
		n.Biases[l] = b
	}
	return n, nil
}

// Feedforward runs the input vector through the network and returns the
// output activations.
func (n *Network) Feedforward(input []float64) ([]float64, error) {
	if len(input) != n.Sizes[0] {
		return nil, fmt.Errorf("input size %d, network expects %d", len(input), n.Sizes[0])
	}
	a := input
	for l := range n.Weights {
		a = layerForward(n.Weights[l], n.Biases[l], a)
	}
	return a, nil
}

// Activations runs the input through the network keeping every layer's
// weighted inputs and activations, as backpropagation needs them. The
// returned slices have one entry per layer, input included for acts.
func (n *Network) Activations(input []float64) (acts [][]float64, zs [][]float64) {
	acts = make([][]float64, 0, len(n.Sizes))
	zs = make([][]float64, 0, len(n.Weights))
	a := input
	acts = append(acts, a)
	for l := range n.Weights {
		z := weightedInput(n.Weights[l], n.Biases[l], a)
		zs = append(zs, z)
		a = make([]float64, len(z))
		for i, v := range z {
			a[i] = Sigmoid(v)
		}
		acts = append(acts, a)
	}
	return acts, zs
}

// Clone returns a deep copy of the network.
func (n *Network) Clone() *Network {
	c := &Network{
		Sizes:   append([]int(nil), n.Sizes...),
		Weights: make([][]float64, len(n.Weights)),
		Biases:  make([][]float64, len(n.Biases)),
	}
	for l := range n.Weights {
		c.Weights[l] = append([]float64(nil), n.Weights[l]...)
		c.Biases[l] = append([]float64(nil), n.Biases[l]...)
	}
	return c
}

func layerForward(w, b, a []float64) []float64 {
	z := weightedInput(w, b, a)
	out := make([]float64, len(z))
	for i, v := range z {
		out[i] = Sigmoid(v)
	}
	return out
}

func weightedInput(w, b, a []float64) []float64 {
	out := make([]float64, len(b))
	for row := range b {
		sum := b[row]
		off := row * len(a)
		for col := range a {
			sum += w[off+col] * a[col]
		}
		out[row] = sum
	}
	return out
}

// Sigmoid is the logistic activation.
func Sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// SigmoidPrime is the derivative of Sigmoid.
func SigmoidPrime(z float64) float64 {
	s := Sigmoid(z)
	return s * (1 - s)
}
