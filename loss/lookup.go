package loss

import "fmt"
import "math/rand"

// Params carries the hyperparameters Lookup may need. Unused fields are ignored.
type Params struct {
	Alpha        float64 `yaml:"alpha"`
	WarmupEpochs int     `yaml:"warmup_epochs"`
	RampEpochs   int     `yaml:"ramp_epochs"`
	TotalEpochs  int     `yaml:"total_epochs"`
	Horizon      int     `yaml:"horizon"`
	Seed         int64   `yaml:"seed"`
}

// Lookup builds a single-batch loss by name.
func Lookup(name string, p Params) (Loss, error) {
	switch name {
	case "ce", "cross_entropy":
		return &CrossEntropy{}, nil
	case "nll":
		return NewNLL(), nil
	case "weighted":
		return NewWeighted(p.WarmupEpochs, p.Horizon, rand.New(rand.NewSource(p.Seed))), nil
	case "abstaining":
		a := &Abstaining{TargetAlpha: p.Alpha, WarmupEpochs: p.WarmupEpochs, RampEpochs: p.RampEpochs}
		a.Notify(0)
		return a, nil
	case "conscious":
		return Conscious{}, nil
	case "dac":
		return NewDAC(p.Alpha, p.WarmupEpochs, p.TotalEpochs), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
}
