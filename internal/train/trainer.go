package train

import (
	"math/rand"

	"markscan/internal/classify"
)

// Hyperparams are the knobs of one SGD run.
type Hyperparams struct {
	BatchSize    int
	LearningRate float64
	Epochs       int
}

// SGD trains the network in place with mini-batch stochastic gradient
// descent under a quadratic cost. The sample order is reshuffled each
// epoch with rng.
func SGD(net *classify.Network, samples []Sample, hp Hyperparams, rng *rand.Rand) {
	if len(samples) == 0 || hp.BatchSize < 1 {
		return
	}
	work := append([]Sample(nil), samples...)

	for epoch := 0; epoch < hp.Epochs; epoch++ {
		rng.Shuffle(len(work), func(i, j int) { work[i], work[j] = work[j], work[i] })
		for start := 0; start < len(work); start += hp.BatchSize {
			end := start + hp.BatchSize
			if end > len(work) {
				end = len(work)
			}
			updateBatch(net, work[start:end], hp.LearningRate)
		}
	}
}

// Evaluate returns the fraction of samples whose argmax output matches
// the expectation.
func Evaluate(net *classify.Network, samples []Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	correct := 0
	for _, s := range samples {
		out, err := net.Feedforward(s.Input)
		if err != nil {
			continue
		}
		if argmax(out) == argmax(s.Expected) {
			correct++
		}
	}
	return float64(correct) / float64(len(samples))
}

// updateBatch accumulates the backprop gradients over one mini-batch
// and applies the averaged step.
func updateBatch(net *classify.Network, batch []Sample, eta float64) {
	gradW := make([][]float64, len(net.Weights))
	gradB := make([][]float64, len(net.Biases))
	for l := range net.Weights {
		gradW[l] = make([]float64, len(net.Weights[l]))
		gradB[l] = make([]float64, len(net.Biases[l]))
	}

	for _, s := range batch {
		backprop(net, s, gradW, gradB)
	}

	step := eta / float64(len(batch))
	for l := range net.Weights {
		for i := range net.Weights[l] {
			net.Weights[l][i] -= step * gradW[l][i]
		}
		for i := range net.Biases[l] {
			net.Biases[l][i] -= step * gradB[l][i]
		}
	}
}

// backprop adds one sample's gradients into gradW/gradB.
// Quadratic cost: delta_L = (a_L - y) ⊙ σ'(z_L).
func backprop(net *classify.Network, s Sample, gradW, gradB [][]float64) {
	acts, zs := net.Activations(s.Input)
	last := len(net.Weights) - 1

	delta := make([]float64, len(acts[last+1]))
	for i := range delta {
		delta[i] = (acts[last+1][i] - s.Expected[i]) * classify.SigmoidPrime(zs[last][i])
	}
	accumulate(gradW[last], gradB[last], delta, acts[last])

	for l := last - 1; l >= 0; l-- {
		next := make([]float64, net.Sizes[l+1])
		cols := net.Sizes[l+1]
		for j := 0; j < cols; j++ {
			var sum float64
			for i := range delta {
				sum += net.Weights[l+1][i*cols+j] * delta[i]
			}
			next[j] = sum * classify.SigmoidPrime(zs[l][j])
		}
		delta = next
		accumulate(gradW[l], gradB[l], delta, acts[l])
	}
}

func accumulate(gw, gb, delta, prevAct []float64) {
	for i, d := range delta {
		gb[i] += d
		off := i * len(prevAct)
		for j, a := range prevAct {
			gw[off+j] += d * a
		}
	}
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
