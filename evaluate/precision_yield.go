package evaluate

import "encoding/json"
import "fmt"
import "os"
import "sort"
import "strconv"

import "github.com/neurlang/abstain/record"

// Thresholds is the ladder 0, 5, ..., 100 swept by the precision-yield curve.
func Thresholds() []int {
	out := make([]int, 0, 21)
	for t := 0; t <= 100; t += 5 {
		out = append(out, t)
	}
	return out
}

// PY is one precision-yield pair.
type PY struct {
	Precision float64
	Yield     float64
}

// MarshalJSON writes the pair as a two element array.
func (p PY) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.Precision, p.Yield})
}

func (p *PY) UnmarshalJSON(b []byte) error {
	var pair [2]float64
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	p.Precision, p.Yield = pair[0], pair[1]
	return nil
}

// PYCurve maps an integer threshold to its precision-yield pair.
type PYCurve map[int]PY

// Sorted returns the thresholds in ascending order.
func (c PYCurve) Sorted() []int {
	keys := make([]int, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// Predictor returns the predictions made with a given threshold, abstaining with record.Abstain.
type Predictor func(threshold int) []int

// NewPYCurve sweeps thresholds through predictor. Precision is correct over
// confident and zero when nothing is confident; yield is correct over all.
func NewPYCurve(predictor Predictor, gold []int, thresholds []int) (PYCurve, error) {
	curve := make(PYCurve, len(thresholds))
	for _, t := range thresholds {
		preds := predictor(t)
		correct, confident, err := Accuracy(preds, gold, record.Abstain)
		if err != nil {
			return nil, fmt.Errorf("threshold %d: %w", t, err)
		}
		var p PY
		if confident > 0 {
			p.Precision = float64(correct) / float64(confident)
		}
		correct, total, err := Yield(preds, gold)
		if err != nil {
			return nil, fmt.Errorf("threshold %d: %w", t, err)
		}
		if total > 0 {
			p.Yield = float64(correct) / float64(total)
		}
		curve[t] = p
	}
	return curve, nil
}

// PYCurveFromRecords sweeps the standard ladder over decoded records,
// reading threshold t as the confidence cutoff t/100.
func PYCurveFromRecords(recs []record.Record) (PYCurve, error) {
	predictor := func(t int) []int {
		cutoff := float64(t) / 100
		preds := make([]int, len(recs))
		for i, r := range recs {
			preds[i] = r.At(cutoff).Pred
		}
		return preds
	}
	return NewPYCurve(predictor, record.Golds(recs), Thresholds())
}

// MarshalJSON writes the curve with string threshold keys.
func (c PYCurve) MarshalJSON() ([]byte, error) {
	m := make(map[string]PY, len(c))
	for k, v := range c {
		m[strconv.Itoa(k)] = v
	}
	return json.Marshal(m)
}

func (c *PYCurve) UnmarshalJSON(b []byte) error {
	var m map[string]PY
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	out := make(PYCurve, len(m))
	for k, v := range m {
		t, err := strconv.Atoi(k)
		if err != nil {
			return fmt.Errorf("threshold key %q: %w", k, err)
		}
		out[t] = v
	}
	*c = out
	return nil
}

// WritePYCurve persists the curve as a JSON document.
func WritePYCurve(name string, c PYCurve) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(name, b, 0o644)
}

// ReadPYCurve loads a curve written by WritePYCurve.
func ReadPYCurve(name string) (PYCurve, error) {
	b, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	var c PYCurve
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return c, nil
}
