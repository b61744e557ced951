package loss

import "math"

import "github.com/neurlang/abstain/confidence"

// Conscious adds a calibration term to the negative log-likelihood:
// a correct prediction is rewarded for high confidence, an incorrect one
// for low confidence. Correctness is detached.
type Conscious struct{}

func (Conscious) Loss(b Batch) (Result, error) {
	if err := validate(b, allColumns, true); err != nil {
		return Result{}, err
	}
	n := float64(b.Len())
	res := Result{
		Grad:           make([][]float64, b.Len()),
		GradConfidence: make([]float64, b.Len()),
	}
	for i, raw := range b.Output {
		p := confidence.Softmax(confidence.Clip(raw))
		g := b.Gold[i]
		pred, _ := confidence.ArgMax(p)
		grad := make([]float64, len(p))
		res.Grad[i] = grad

		if p[g] < LogFloor {
			res.Value -= math.Log(LogFloor) / n
		} else {
			res.Value -= math.Log(p[g]) / n
			for j := range grad {
				grad[j] = p[j] / n
			}
			grad[g] -= 1 / n
			clipMask(raw, grad)
		}

		c := b.Confidence[i]
		term, sign := 1-c, 1.0
		if pred == g {
			term, sign = c, -1.0
		}
		if term < LogFloor {
			res.Value -= math.Log(LogFloor) / n
			continue
		}
		res.Value -= math.Log(term) / n
		res.GradConfidence[i] = sign / (term * n)
	}
	return res, nil
}

func (Conscious) Notify(epoch int) {}

func (Conscious) String() string {
	return "ConsciousLoss"
}
