package loss

import "fmt"
import "math"
import "math/rand"

import "github.com/neurlang/abstain/confidence"

// Weighted behaves as plain cross-entropy until WarmupEpochs have started.
// Afterwards the batch is cut to a multiple of Horizon, shuffled, and split
// into groups of Horizon examples. Inside a group each example's loss is
// weighted by the softmax of the group's gold likelihoods, detached, so the
// model is pushed away from relying on the examples it already finds easy
// relative to their group.
type Weighted struct {
	WarmupEpochs int
	Horizon      int

	rng    *rand.Rand
	warmup bool
}

// NewWeighted returns a weighted loss in its warmup phase. A nil rng gets a fixed seed.
func NewWeighted(warmupEpochs, horizon int, rng *rand.Rand) *Weighted {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Weighted{WarmupEpochs: warmupEpochs, Horizon: horizon, rng: rng, warmup: true}
}

func (w *Weighted) Notify(epoch int) {
	if epoch >= w.WarmupEpochs {
		w.warmup = false
	}
}

// Warmup reports whether the loss still behaves as cross-entropy.
func (w *Weighted) Warmup() bool {
	return w.warmup
}

func (w *Weighted) Loss(b Batch) (Result, error) {
	if err := validate(b, allColumns, false); err != nil {
		return Result{}, err
	}
	if w.warmup {
		return meanCrossEntropy(b), nil
	}
	if w.Horizon <= 0 {
		return Result{}, fmt.Errorf("%w: horizon %d", ErrHorizon, w.Horizon)
	}
	kept := b.Len() / w.Horizon * w.Horizon
	if kept == 0 {
		return Result{}, fmt.Errorf("%w: %d rows, horizon %d", ErrHorizon, b.Len(), w.Horizon)
	}

	order := w.rng.Perm(kept)
	res := Result{Grad: zeros(b)}
	n := float64(kept)

	ce := make([]float64, w.Horizon)
	likelihood := make([]float64, w.Horizon)
	grads := make([][]float64, w.Horizon)
	for start := 0; start < kept; start += w.Horizon {
		for k := 0; k < w.Horizon; k++ {
			row := order[start+k]
			ce[k], grads[k] = crossEntropy(b.Output[row], b.Gold[row])
			likelihood[k] = math.Exp(-ce[k])
		}
		weights := confidence.Softmax(likelihood)
		for k := 0; k < w.Horizon; k++ {
			res.Value += weights[k] * ce[k] / n
			g := grads[k]
			for j := range g {
				g[j] *= weights[k] / n
			}
			res.Grad[order[start+k]] = g
		}
	}
	return res, nil
}

func (w *Weighted) String() string {
	return "WeightedNLLLoss"
}
