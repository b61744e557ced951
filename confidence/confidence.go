// Package confidence turns raw class scores into probabilities and a scalar
// confidence per example.
//
// The last column of a score row is the abstention class whenever a model
// has one. Every extractor clips the scores to [-ClipLimit, ClipLimit]
// before the softmax so that exp never overflows.
package confidence

import "errors"
import "math"
import "math/rand"

// ClipLimit bounds raw scores before exponentiation.
const ClipLimit = 25

// ErrUnknownExtractor is returned by Lookup for a name it does not know.
var ErrUnknownExtractor = errors.New("unknown confidence extractor")

// Extractor maps a batch of raw score rows to normalized probabilities and one confidence per row.
type Extractor func(scores [][]float64) (probs [][]float64, conf []float64)

// Clip returns a copy of row with every value clamped to [-ClipLimit, ClipLimit].
func Clip(row []float64) []float64 {
	out := make([]float64, len(row))
	for i, v := range row {
		out[i] = math.Max(-ClipLimit, math.Min(ClipLimit, v))
	}
	return out
}

// Softmax returns the softmax of row. The row is not clipped.
func Softmax(row []float64) []float64 {
	out := make([]float64, len(row))
	if len(row) == 0 {
		return out
	}
	max := row[0]
	for _, v := range row[1:] {
		if v > max {
			max = v
		}
	}
	var sum float64
	for i, v := range row {
		out[i] = math.Exp(v - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// LogSoftmax returns log(softmax(row)) computed without forming the softmax.
func LogSoftmax(row []float64) []float64 {
	out := make([]float64, len(row))
	if len(row) == 0 {
		return out
	}
	max := row[0]
	for _, v := range row[1:] {
		if v > max {
			max = v
		}
	}
	var sum float64
	for _, v := range row {
		sum += math.Exp(v - max)
	}
	lse := max + math.Log(sum)
	for i, v := range row {
		out[i] = v - lse
	}
	return out
}

// Probabilities clips and softmaxes every row.
func Probabilities(scores [][]float64) [][]float64 {
	probs := make([][]float64, len(scores))
	for i, row := range scores {
		probs[i] = Softmax(Clip(row))
	}
	return probs
}

// ArgMax returns the index and value of the largest element, or -1 for an empty row.
// Ties go to the lowest index.
func ArgMax(row []float64) (int, float64) {
	if len(row) == 0 {
		return -1, math.Inf(-1)
	}
	best := 0
	for i, v := range row {
		if v > row[best] {
			best = i
		}
	}
	return best, row[best]
}

// Entropy is the Shannon entropy of a probability row, each term floored at 1e-14 inside the log.
func Entropy(row []float64) float64 {
	var h float64
	for _, p := range row {
		h -= p * math.Log(math.Max(p, 1e-14))
	}
	return h
}

// MaxProb uses the largest class probability as confidence.
func MaxProb(scores [][]float64) ([][]float64, []float64) {
	probs := Probabilities(scores)
	conf := make([]float64, len(probs))
	for i, row := range probs {
		_, conf[i] = ArgMax(row)
	}
	return probs, conf
}

// MaxNonAbstain uses the largest probability among the non-abstain classes.
func MaxNonAbstain(scores [][]float64) ([][]float64, []float64) {
	probs := Probabilities(scores)
	conf := make([]float64, len(probs))
	for i, row := range probs {
		if len(row) < 2 {
			continue
		}
		_, conf[i] = ArgMax(row[:len(row)-1])
	}
	return probs, conf
}

// InverseAbstain uses one minus the abstention class probability.
func InverseAbstain(scores [][]float64) ([][]float64, []float64) {
	probs := Probabilities(scores)
	conf := make([]float64, len(probs))
	for i, row := range probs {
		if len(row) == 0 {
			continue
		}
		conf[i] = 1 - row[len(row)-1]
	}
	return probs, conf
}

// Abstention softmaxes every clipped column, the abstention class included, and
// reports the raw, unclipped abstention score as confidence.
func Abstention(scores [][]float64) ([][]float64, []float64) {
	probs := Probabilities(scores)
	conf := make([]float64, len(scores))
	for i, row := range scores {
		if len(row) == 0 {
			continue
		}
		conf[i] = row[len(row)-1]
	}
	return probs, conf
}

// Random returns an extractor whose confidence is a standard normal draw,
// an uninformative baseline for curve comparisons.
func Random(rng *rand.Rand) Extractor {
	return func(scores [][]float64) ([][]float64, []float64) {
		probs := Probabilities(scores)
		conf := make([]float64, len(probs))
		for i := range conf {
			conf[i] = rng.NormFloat64()
		}
		return probs, conf
	}
}

// Lookup resolves an extractor by its configuration name.
// The random extractor draws from rng; a nil rng gets a fixed seed.
func Lookup(name string, rng *rand.Rand) (Extractor, error) {
	switch name {
	case "max_prob":
		return MaxProb, nil
	case "max_non_abs":
		return MaxNonAbstain, nil
	case "inv_abs":
		return InverseAbstain, nil
	case "abs":
		return Abstention, nil
	case "random":
		if rng == nil {
			rng = rand.New(rand.NewSource(1))
		}
		return Random(rng), nil
	}
	return nil, ErrUnknownExtractor
}
