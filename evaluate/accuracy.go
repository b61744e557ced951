// Package evaluate scores decoded prediction records: accuracy, the
// precision-yield curve and the confidence-ranked detection curves.
package evaluate

import "errors"
import "fmt"

import "github.com/neurlang/abstain/record"

var (
	ErrLengthMismatch = errors.New("predicted and gold lengths differ")
	ErrEmpty          = errors.New("no records")
	ErrUndefined      = errors.New("curve undefined for a single outcome class")
)

// Accuracy counts correct predictions and predictions that are not the abstain label.
func Accuracy(preds, gold []int, abstain int) (correct, confident int, err error) {
	if len(preds) != len(gold) {
		return 0, 0, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(preds), len(gold))
	}
	for i, p := range preds {
		if p != abstain {
			confident++
		}
		if p == gold[i] {
			correct++
		}
	}
	return correct, confident, nil
}

// Yield counts correct predictions among all examples.
func Yield(preds, gold []int) (correct, total int, err error) {
	if len(preds) != len(gold) {
		return 0, 0, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(preds), len(gold))
	}
	for i, p := range preds {
		if p == gold[i] {
			correct++
		}
	}
	return correct, len(preds), nil
}

// Summary is the scalar evaluation of a record set.
type Summary struct {
	Correct   int
	Confident int
	Total     int
}

// Accuracy is correct over confident, zero when nothing was answered.
func (s Summary) Accuracy() float64 {
	if s.Confident == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Confident)
}

// Coverage is the fraction of examples that were answered.
func (s Summary) Coverage() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Confident) / float64(s.Total)
}

// Yield is the fraction of all examples answered correctly.
func (s Summary) Yield() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Total)
}

// Evaluate summarizes records; abstained records count as not confident.
func Evaluate(recs []record.Record) Summary {
	s := Summary{Total: len(recs)}
	for _, r := range recs {
		if r.Abstained || r.Pred == record.Abstain {
			continue
		}
		s.Confident++
		if r.Pred == r.Gold {
			s.Correct++
		}
	}
	return s
}
