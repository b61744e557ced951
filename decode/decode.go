// Package decode runs a trained scoring model over validation data and
// yields one prediction record per example.
package decode

import "errors"
import "fmt"
import "iter"

import "github.com/neurlang/abstain/confidence"
import "github.com/neurlang/abstain/record"
import "github.com/neurlang/abstain/zone"

var (
	ErrShape              = errors.New("batch shape mismatch")
	ErrNegAbsNeedsAbstain = errors.New("neg_abs confidence needs an abstention class")
)

// Model scores a batch of inputs. SetTraining switches between training and
// inference behaviour (dropout and the like); the decoder only reads the model.
type Model interface {
	Forward(inputs [][]float64) ([][]float64, error)
	SetTraining(training bool)
}

// Batch is one validation minibatch. IDs and Zones are optional; when present
// they have one entry per input.
type Batch struct {
	IDs    []string
	Inputs [][]float64
	Gold   []int
	Zones  []zone.Zone
}

// Source yields validation batches. It is consumed once per decode pass.
type Source = iter.Seq[Batch]

// Kind selects how the decoder scores its confidence.
type Kind int

const (
	// Baseline is the probability of the predicted class.
	Baseline Kind = iota
	// NegAbs is one minus the probability of the abstention class.
	NegAbs
)

// ParseKind maps "baseline" and "neg_abs" to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "baseline", "":
		return Baseline, nil
	case "neg_abs":
		return NegAbs, nil
	}
	return 0, fmt.Errorf("unknown confidence kind %q", s)
}

func (k Kind) String() string {
	if k == NegAbs {
		return "neg_abs"
	}
	return "baseline"
}

// Decoder turns model scores into records.
//
// With Abstain the last column is the abstention class: it survives zone
// masking and is never predicted. When Extractor is set it supplies the
// probabilities and confidences and Confidence is ignored. A positive
// Threshold marks every record below it as abstained.
type Decoder struct {
	Abstain    bool
	Confidence Kind
	Extractor  confidence.Extractor
	Threshold  float64
}

// Decode returns the lazy record stream for one pass over src.
//
// The model is put in inference mode when iteration starts and back in
// training mode when it ends, also when the consumer stops early or an error
// is yielded. An error ends the stream.
func (d Decoder) Decode(m Model, src Source) iter.Seq2[record.Record, error] {
	return func(yield func(record.Record, error) bool) {
		m.SetTraining(false)
		defer m.SetTraining(true)

		if d.Extractor == nil && d.Confidence == NegAbs && !d.Abstain {
			yield(record.Record{}, ErrNegAbsNeedsAbstain)
			return
		}
		n := 0
		for b := range src {
			recs, err := d.batch(m, b)
			if err != nil {
				yield(record.Record{}, fmt.Errorf("batch starting at example %d: %w", n, err))
				return
			}
			for _, r := range recs {
				if !yield(r, nil) {
					return
				}
			}
			n += len(recs)
		}
	}
}

func (d Decoder) batch(m Model, b Batch) ([]record.Record, error) {
	if len(b.Gold) != len(b.Inputs) ||
		(b.Zones != nil && len(b.Zones) != len(b.Inputs)) ||
		(b.IDs != nil && len(b.IDs) != len(b.Inputs)) {
		return nil, fmt.Errorf("%w: %d inputs, %d gold, %d zones, %d ids",
			ErrShape, len(b.Inputs), len(b.Gold), len(b.Zones), len(b.IDs))
	}
	scores, err := m.Forward(b.Inputs)
	if err != nil {
		return nil, err
	}
	if len(scores) != len(b.Inputs) {
		return nil, fmt.Errorf("%w: model returned %d rows for %d inputs", ErrShape, len(scores), len(b.Inputs))
	}

	// masked scores keep excluded classes out of the extractor's confidence;
	// the probability mask then zeroes what the clipped softmax leaves behind
	if b.Zones != nil {
		if scores, err = zone.MaskScores(scores, b.Zones, d.Abstain); err != nil {
			return nil, err
		}
	}
	var probs [][]float64
	var conf []float64
	if d.Extractor != nil {
		probs, conf = d.Extractor(scores)
	} else {
		probs = confidence.Probabilities(scores)
	}
	if b.Zones != nil {
		if probs, err = zone.MaskProbs(probs, b.Zones, d.Abstain); err != nil {
			return nil, err
		}
	}

	recs := make([]record.Record, len(probs))
	for i, row := range probs {
		candidates := row
		if d.Abstain {
			if len(row) < 2 {
				return nil, fmt.Errorf("%w: row %d has no class besides abstention", ErrShape, i)
			}
			candidates = row[:len(row)-1]
		}
		pred, best := confidence.ArgMax(candidates)
		r := record.Record{Pred: pred, Gold: b.Gold[i]}
		switch {
		case conf != nil:
			r.Confidence = conf[i]
		case d.Confidence == NegAbs:
			r.Confidence = 1 - row[len(row)-1]
		default:
			r.Confidence = best
		}
		if b.IDs != nil {
			r.ID = b.IDs[i]
		}
		if d.Threshold > 0 {
			r = r.At(d.Threshold)
		}
		recs[i] = r
	}
	return recs, nil
}

// Collect drains a record stream into a slice, stopping at the first error.
func Collect(seq iter.Seq2[record.Record, error]) ([]record.Record, error) {
	var recs []record.Record
	for r, err := range seq {
		if err != nil {
			return recs, err
		}
		recs = append(recs, r)
	}
	return recs, nil
}

// Slice adapts in-memory batches to a Source.
func Slice(batches []Batch) Source {
	return func(yield func(Batch) bool) {
		for _, b := range batches {
			if !yield(b) {
				return
			}
		}
	}
}
