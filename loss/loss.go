// Package loss implements the training objectives for confidence-aware models.
//
// Each loss returns its scalar value together with the gradient with respect
// to the raw output scores, and with respect to the confidences where a loss
// uses them. Terms documented as detached are held constant when the
// gradient is formed.
package loss

import "errors"
import "fmt"
import "math"

import "github.com/neurlang/abstain/confidence"

const (
	// Epsilon caps the abstention probability below one before log(1 - p).
	Epsilon = 1e-7

	// LogFloor is the smallest value passed to a logarithm.
	LogFloor = 1e-9
)

var (
	ErrShape      = errors.New("batch shape mismatch")
	ErrGold       = errors.New("gold label out of range")
	ErrHorizon    = errors.New("batch does not fill one horizon group")
	ErrArithmetic = errors.New("arithmetic failure")
	ErrUnknown    = errors.New("unknown loss")
)

// Batch is one minibatch of model outputs.
// Output holds raw scores, one row per example. Confidence may be nil for
// losses that do not read it.
type Batch struct {
	Output     [][]float64
	Confidence []float64
	Gold       []int
}

// Len is the number of examples.
func (b Batch) Len() int {
	return len(b.Output)
}

// Result is a loss value plus its gradients.
// Grad has the shape of Batch.Output. GradConfidence is nil unless the loss reads confidences.
type Result struct {
	Value          float64
	Grad           [][]float64
	GradConfidence []float64
}

// Loss is a single-batch objective.
type Loss interface {
	Loss(b Batch) (Result, error)

	// Notify tells the loss which epoch is starting.
	Notify(epoch int)

	String() string
}

// validate checks row count agreement and that every gold label indexes into
// the first classes columns of its row.
func validate(b Batch, classes func(width int) int, needConfidence bool) error {
	if len(b.Gold) != len(b.Output) {
		return fmt.Errorf("%w: %d rows, %d gold labels", ErrShape, len(b.Output), len(b.Gold))
	}
	if needConfidence && len(b.Confidence) != len(b.Output) {
		return fmt.Errorf("%w: %d rows, %d confidences", ErrShape, len(b.Output), len(b.Confidence))
	}
	if len(b.Output) == 0 {
		return fmt.Errorf("%w: empty batch", ErrShape)
	}
	for i, row := range b.Output {
		if g := b.Gold[i]; g < 0 || g >= classes(len(row)) {
			return fmt.Errorf("%w: row %d gold %d width %d", ErrGold, i, g, len(row))
		}
	}
	return nil
}

func allColumns(width int) int { return width }

func withoutAbstain(width int) int { return width - 1 }

func zeros(b Batch) [][]float64 {
	g := make([][]float64, len(b.Output))
	for i, row := range b.Output {
		g[i] = make([]float64, len(row))
	}
	return g
}

// crossEntropy returns -log softmax(row)[gold] and its gradient softmax(row) - onehot(gold).
func crossEntropy(row []float64, gold int) (float64, []float64) {
	lp := confidence.LogSoftmax(row)
	grad := make([]float64, len(row))
	for j, v := range lp {
		grad[j] = math.Exp(v)
	}
	grad[gold] -= 1
	return -lp[gold], grad
}

// clipMask zeroes gradient entries of scores that the clip saturated.
func clipMask(row, grad []float64) {
	for j, v := range row {
		if v < -confidence.ClipLimit || v > confidence.ClipLimit {
			grad[j] = 0
		}
	}
}

// softmaxPair returns the softmax weights of two scalars.
func softmaxPair(a, b float64) (float64, float64) {
	w := confidence.Softmax([]float64{a, b})
	return w[0], w[1]
}

// ClipGradNorm rescales grad in place so its global L2 norm is at most max and returns the norm before scaling.
func ClipGradNorm(grad [][]float64, max float64) float64 {
	var sq float64
	for _, row := range grad {
		for _, v := range row {
			sq += v * v
		}
	}
	norm := math.Sqrt(sq)
	if norm > max && norm > 0 {
		scale := max / norm
		for _, row := range grad {
			for j := range row {
				row[j] *= scale
			}
		}
	}
	return norm
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
