// Package record holds the per-example prediction record shared by the decoder and the evaluators.
package record

import "bufio"
import "encoding/json"
import "fmt"
import "io"
import "os"

// Abstain is the label that replaces a prediction the model declined to make.
const Abstain = -1

// Record is one decoded validation example.
type Record struct {
	ID         string  `json:"id,omitempty"`
	Pred       int     `json:"pred"`
	Gold       int     `json:"gold"`
	Confidence float64 `json:"confidence"`
	Abstained  bool    `json:"abstained,omitempty"`
}

// Correct reports whether an answered prediction matches gold.
func (r Record) Correct() bool {
	return !r.Abstained && r.Pred != Abstain && r.Pred == r.Gold
}

// At returns the record as seen with a confidence cutoff: below it the prediction becomes Abstain.
func (r Record) At(cutoff float64) Record {
	if r.Confidence < cutoff {
		r.Pred = Abstain
		r.Abstained = true
	}
	return r
}

// Preds and Golds split records into label slices.
func Preds(recs []Record) []int {
	out := make([]int, len(recs))
	for i, r := range recs {
		out[i] = r.Pred
	}
	return out
}

func Golds(recs []Record) []int {
	out := make([]int, len(recs))
	for i, r := range recs {
		out[i] = r.Gold
	}
	return out
}

// WriteJSONL writes one JSON object per line.
func WriteJSONL(w io.Writer, recs []Record) error {
	enc := json.NewEncoder(w)
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

// ReadJSONL reads records written by WriteJSONL. Blank lines are skipped.
func ReadJSONL(r io.Reader) ([]Record, error) {
	var recs []Record
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		recs = append(recs, rec)
	}
	return recs, sc.Err()
}

// ReadFile reads a JSON-lines record file.
func ReadFile(name string) ([]Record, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadJSONL(f)
}

// WriteFile writes a JSON-lines record file.
func WriteFile(name string, recs []Record) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	err = WriteJSONL(f, recs)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
