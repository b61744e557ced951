package loss

import "fmt"

import "github.com/neurlang/abstain/confidence"

// PairResult is the value of a pairwise loss and the gradients for both sides.
type PairResult struct {
	Value float64
	GradX [][]float64
	GradY [][]float64
}

// Pairwise blends the cross-entropy of two parallel batches. For each pair
// (x_i, y_i) the weights are softmax(conf_x_i, conf_y_i), detached, so the more
// confident side dominates the pair's loss. Scores are clipped first.
type Pairwise struct{}

// Weights returns the detached blending weights for one pair of confidences.
func (Pairwise) Weights(confX, confY float64) (float64, float64) {
	return softmaxPair(confX, confY)
}

func (p Pairwise) Loss(x, y Batch) (PairResult, error) {
	if err := validate(x, allColumns, true); err != nil {
		return PairResult{}, fmt.Errorf("x: %w", err)
	}
	if err := validate(y, allColumns, true); err != nil {
		return PairResult{}, fmt.Errorf("y: %w", err)
	}
	if x.Len() != y.Len() {
		return PairResult{}, fmt.Errorf("%w: %d x rows, %d y rows", ErrShape, x.Len(), y.Len())
	}
	n := float64(x.Len())
	res := PairResult{
		GradX: make([][]float64, x.Len()),
		GradY: make([][]float64, y.Len()),
	}
	for i := range x.Output {
		wx, wy := p.Weights(x.Confidence[i], y.Confidence[i])
		ceX, gX := crossEntropy(confidence.Clip(x.Output[i]), x.Gold[i])
		ceY, gY := crossEntropy(confidence.Clip(y.Output[i]), y.Gold[i])
		for j := range gX {
			gX[j] *= wx / n
		}
		for j := range gY {
			gY[j] *= wy / n
		}
		clipMask(x.Output[i], gX)
		clipMask(y.Output[i], gY)
		res.Value += (wx*ceX + wy*ceY) / n
		res.GradX[i] = gX
		res.GradY[i] = gY
	}
	return res, nil
}

func (Pairwise) Notify(epoch int) {}

func (Pairwise) String() string {
	return "PairwiseConfidenceLoss"
}
