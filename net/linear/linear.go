// Package linear implements an affine scoring model: one weight row and one
// bias per output class. It is the checkpoint-backed model the decoder runs
// when curves are produced from saved weights.
package linear

import "errors"
import "fmt"
import "math/rand"

import "github.com/neurlang/abstain/parallel"

var ErrShape = errors.New("input width does not match model")

// Linear scores inputs with Weights x + Bias. With Abstain the last output is the abstention class.
type Linear struct {
	Weights [][]float64 `json:"weights"`
	Bias    []float64   `json:"bias"`
	Abstain bool        `json:"abstain,omitempty"`

	training bool
}

// New returns a model for inputs of width in and the given number of classes,
// plus one more output when abstain is set. A non-nil rng fills small random weights.
func New(in, classes int, abstain bool, rng *rand.Rand) *Linear {
	out := classes
	if abstain {
		out++
	}
	l := &Linear{Weights: make([][]float64, out), Bias: make([]float64, out), Abstain: abstain, training: true}
	for i := range l.Weights {
		l.Weights[i] = make([]float64, in)
		if rng != nil {
			for j := range l.Weights[i] {
				l.Weights[i][j] = rng.NormFloat64() * 0.01
			}
		}
	}
	return l
}

// In is the expected input width.
func (l *Linear) In() int {
	if len(l.Weights) == 0 {
		return 0
	}
	return len(l.Weights[0])
}

// Out is the number of scores per input.
func (l *Linear) Out() int {
	return len(l.Weights)
}

// Classes is the number of real classes, excluding abstention.
func (l *Linear) Classes() int {
	if l.Abstain {
		return l.Out() - 1
	}
	return l.Out()
}

// SetTraining records the mode. An affine model behaves the same in both.
func (l *Linear) SetTraining(training bool) {
	l.training = training
}

// Training reports the current mode.
func (l *Linear) Training() bool {
	return l.training
}

// Forward scores each input row. Rows are spread over parallel.Workers goroutines.
func (l *Linear) Forward(inputs [][]float64) ([][]float64, error) {
	for i, x := range inputs {
		if len(x) != l.In() {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrShape, i, len(x), l.In())
		}
	}
	dot := dot1
	if parallel.Vectorized() {
		dot = dot4
	}
	out := make([][]float64, len(inputs))
	parallel.ForEach(len(inputs), parallel.Workers(), func(i int) {
		row := make([]float64, l.Out())
		for k, w := range l.Weights {
			row[k] = dot(w, inputs[i]) + l.Bias[k]
		}
		out[i] = row
	})
	return out, nil
}

func dot1(a, b []float64) (s float64) {
	for i := range a {
		s += a[i] * b[i]
	}
	return
}

// dot4 accumulates four lanes so the compiler can keep them in separate registers.
func dot4(a, b []float64) float64 {
	var s0, s1, s2, s3 float64
	i := 0
	for ; i+4 <= len(a); i += 4 {
		s0 += a[i] * b[i]
		s1 += a[i+1] * b[i+1]
		s2 += a[i+2] * b[i+2]
		s3 += a[i+3] * b[i+3]
	}
	for ; i < len(a); i++ {
		s0 += a[i] * b[i]
	}
	return (s0 + s1) + (s2 + s3)
}

func (l *Linear) check() error {
	if len(l.Weights) == 0 || len(l.Bias) != len(l.Weights) {
		return fmt.Errorf("%w: %d weight rows, %d biases", ErrShape, len(l.Weights), len(l.Bias))
	}
	for i, w := range l.Weights {
		if len(w) != len(l.Weights[0]) {
			return fmt.Errorf("%w: weight row %d has %d values", ErrShape, i, len(w))
		}
	}
	return nil
}
