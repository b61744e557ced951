package loss

import "fmt"
import "math"

import "github.com/neurlang/abstain/confidence"

// DAC is the deep abstaining classifier loss with an annealed abstention weight.
//
// Up to and including LearnEpochs it trains with plain cross-entropy and only
// tracks an exponential moving average of the threshold
// mean((1 - p_abstain) * h_c), where h_c is the cross-entropy over the
// non-abstain classes. After that it minimizes
//
//	(1 - p_abstain) * h_c - alpha * log(1 - p_abstain)
//
// alpha starts at the tracked threshold divided by AlphaInitFactor and grows
// linearly, once per epoch, to reach TargetAlpha at TotalEpochs.
type DAC struct {
	TargetAlpha     float64
	LearnEpochs     int
	TotalEpochs     int
	AlphaInitFactor float64
	EWMAMu          float64

	epoch int

	threshold float64
	ewma      float64
	haveEWMA  bool

	alpha      float64
	alphaInc   float64
	alphaEpoch int
	haveAlpha  bool
}

// NewDAC returns a DAC loss with the usual initialization factor of 64 and EWMA rate of 0.05.
func NewDAC(targetAlpha float64, learnEpochs, totalEpochs int) *DAC {
	return &DAC{
		TargetAlpha:     targetAlpha,
		LearnEpochs:     learnEpochs,
		TotalEpochs:     totalEpochs,
		AlphaInitFactor: 64,
		EWMAMu:          0.05,
	}
}

func (d *DAC) Notify(epoch int) {
	d.epoch = epoch
}

// Alpha returns the abstention weight and whether it has been initialized.
func (d *DAC) Alpha() (float64, bool) {
	return d.alpha, d.haveAlpha
}

// Threshold returns the last instantaneous threshold and its moving average.
func (d *DAC) Threshold() (instant, ewma float64) {
	return d.threshold, d.ewma
}

func (d *DAC) smooth(instant float64) float64 {
	if !d.haveEWMA {
		return instant
	}
	return d.EWMAMu*instant + (1-d.EWMAMu)*d.ewma
}

func (d *DAC) Loss(b Batch) (Result, error) {
	if err := validate(b, withoutAbstain, false); err != nil {
		return Result{}, err
	}
	if d.epoch <= d.LearnEpochs {
		return d.learn(b), nil
	}
	return d.abstain(b)
}

// learn is the statistics-only phase: cross-entropy over every column,
// with the threshold tracked from detached quantities.
func (d *DAC) learn(b Batch) Result {
	res := meanCrossEntropy(b)

	n := float64(b.Len())
	var hc float64
	for i, row := range b.Output {
		ce, _ := crossEntropy(row[:len(row)-1], b.Gold[i])
		hc += ce / n
	}
	var threshold float64
	for _, row := range b.Output {
		p := confidence.Softmax(row)
		threshold += (1 - p[len(p)-1]) * hc / n
	}
	d.threshold = threshold
	d.ewma = d.smooth(threshold)
	d.haveEWMA = true
	return res
}

func (d *DAC) abstain(b Batch) (Result, error) {
	n := float64(b.Len())
	hc := make([]float64, b.Len())
	hcGrad := make([][]float64, b.Len())
	probs := make([][]float64, b.Len())
	pa := make([]float64, b.Len())
	capped := make([]bool, b.Len())

	var threshold float64
	for i, row := range b.Output {
		k := len(row) - 1
		hc[i], hcGrad[i] = crossEntropy(row[:k], b.Gold[i])
		probs[i] = confidence.Softmax(row)
		pa[i] = probs[i][k]
		if pa[i] > 1-Epsilon {
			pa[i], capped[i] = 1-Epsilon, true
		}
		threshold += (1 - pa[i]) * hc[i] / n
	}
	ewma := d.smooth(threshold)

	alpha, inc, alphaEpoch := d.alpha, d.alphaInc, d.alphaEpoch
	if !d.haveAlpha {
		remaining := d.TotalEpochs - d.epoch
		if remaining <= 0 {
			return Result{}, fmt.Errorf("%w: epoch %d leaves %d epochs to anneal alpha", ErrArithmetic, d.epoch, remaining)
		}
		if d.AlphaInitFactor == 0 {
			return Result{}, fmt.Errorf("%w: zero alpha init factor", ErrArithmetic)
		}
		alpha = ewma / d.AlphaInitFactor
		inc = (d.TargetAlpha - alpha) / float64(remaining)
		alphaEpoch = d.epoch
	} else if d.epoch > alphaEpoch {
		alpha += inc
		alphaEpoch = d.epoch
	}

	res := Result{Grad: make([][]float64, b.Len())}
	for i, row := range b.Output {
		k := len(row) - 1
		q := 1 - pa[i]
		v := q*hc[i] - alpha*math.Log(q)
		res.Value += v / n

		grad := make([]float64, len(row))
		res.Grad[i] = grad
		// d/dp_abstain of the per-example loss
		dpa := alpha/q - hc[i]
		for j := range grad {
			if j < k {
				grad[j] = q * hcGrad[i][j]
			}
			if !capped[i] {
				p := probs[i]
				dp := -p[k] * p[j]
				if j == k {
					dp += p[k]
				}
				grad[j] += dpa * dp
			}
			grad[j] /= n
		}
	}
	if !finite(res.Value) {
		return Result{}, fmt.Errorf("%w: loss %v at epoch %d (alpha %v)", ErrArithmetic, res.Value, d.epoch, alpha)
	}

	d.threshold, d.ewma, d.haveEWMA = threshold, ewma, true
	d.alpha, d.alphaInc, d.alphaEpoch, d.haveAlpha = alpha, inc, alphaEpoch, true
	return res, nil
}

func (d *DAC) String() string {
	return "DACLoss"
}
