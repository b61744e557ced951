package loss

import "math"

import "github.com/neurlang/abstain/confidence"

// Abstaining rewards probability mass on the abstention class (the last column):
//
//	loss = -mean log max(p_gold + alpha * p_abstain, LogFloor)
//
// alpha is zero until WarmupEpochs, then reaches TargetAlpha, either at once or
// linearly over RampEpochs epochs.
type Abstaining struct {
	TargetAlpha  float64
	WarmupEpochs int
	RampEpochs   int

	alpha float64
}

// NewAbstaining returns the loss already notified of epoch 0.
func NewAbstaining(alpha float64, warmupEpochs int) *Abstaining {
	a := &Abstaining{TargetAlpha: alpha, WarmupEpochs: warmupEpochs}
	a.Notify(0)
	return a
}

// AlphaAt is the abstention weight in force during epoch.
func (a *Abstaining) AlphaAt(epoch int) float64 {
	if epoch < a.WarmupEpochs {
		return 0
	}
	if a.RampEpochs <= 0 {
		return a.TargetAlpha
	}
	frac := float64(epoch-a.WarmupEpochs+1) / float64(a.RampEpochs)
	return a.TargetAlpha * math.Min(1, frac)
}

func (a *Abstaining) Notify(epoch int) {
	a.alpha = a.AlphaAt(epoch)
}

// Alpha is the current abstention weight.
func (a *Abstaining) Alpha() float64 {
	return a.alpha
}

func (a *Abstaining) Loss(b Batch) (Result, error) {
	if err := validate(b, withoutAbstain, false); err != nil {
		return Result{}, err
	}
	n := float64(b.Len())
	res := Result{Grad: make([][]float64, b.Len())}
	for i, raw := range b.Output {
		p := confidence.Softmax(confidence.Clip(raw))
		g, k := b.Gold[i], len(p)-1
		l := p[g] + a.alpha*p[k]
		grad := make([]float64, len(p))
		res.Grad[i] = grad
		if l < LogFloor {
			res.Value -= math.Log(LogFloor) / n
			continue
		}
		res.Value -= math.Log(l) / n
		for j := range grad {
			dg := -p[g] * p[j]
			dk := -p[k] * p[j]
			if j == g {
				dg += p[g]
			}
			if j == k {
				dk += p[k]
			}
			grad[j] = -(dg + a.alpha*dk) / (l * n)
		}
		clipMask(raw, grad)
	}
	return res, nil
}

func (a *Abstaining) String() string {
	return "AbstainingLoss"
}
