package evaluate

import "errors"
import "fmt"
import "sort"

import "github.com/neurlang/abstain/record"

var ErrNotMonotonic = errors.New("x is neither non-increasing nor non-decreasing")

// Curve is an ordered sequence of points with the area under it.
type Curve struct {
	X    []float64
	Y    []float64
	Area float64
}

// AUC integrates y over x with the trapezoidal rule. x must be monotone in
// either direction; a non-increasing x yields the same positive area as its
// reverse.
func AUC(x, y []float64) (float64, error) {
	if len(x) != len(y) {
		return 0, fmt.Errorf("%w: %d x, %d y", ErrLengthMismatch, len(x), len(y))
	}
	direction := 1.0
	var inc, dec bool
	for i := 1; i < len(x); i++ {
		switch d := x[i] - x[i-1]; {
		case d > 0:
			inc = true
		case d < 0:
			dec = true
		}
	}
	if inc && dec {
		return 0, ErrNotMonotonic
	}
	if dec {
		direction = -1
	}
	var area float64
	for i := 1; i < len(x); i++ {
		area += (x[i] - x[i-1]) * (y[i] + y[i-1]) / 2
	}
	return direction * area, nil
}

// ranked holds true and false positive counts at each distinct confidence,
// walking the records from the most to the least confident. Correct records
// are the positives.
type ranked struct {
	tps, fps   []float64
	thresholds []float64
}

func rank(recs []record.Record) (ranked, error) {
	if len(recs) == 0 {
		return ranked{}, ErrEmpty
	}
	sorted := make([]record.Record, len(recs))
	copy(sorted, recs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})
	var r ranked
	var tp float64
	for i, rec := range sorted {
		if rec.Correct() {
			tp++
		}
		if i+1 < len(sorted) && sorted[i+1].Confidence == rec.Confidence {
			continue
		}
		r.tps = append(r.tps, tp)
		r.fps = append(r.fps, float64(i+1)-tp)
		r.thresholds = append(r.thresholds, rec.Confidence)
	}
	return r, nil
}

// PRCurve returns precision against recall as the confidence cutoff is lowered.
// Points are ordered by decreasing recall, stop where full recall is first
// reached, and end at recall 0 with precision 1.
func PRCurve(recs []record.Record) (precision, recall []float64, area float64, err error) {
	r, err := rank(recs)
	if err != nil {
		return nil, nil, 0, err
	}
	total := r.tps[len(r.tps)-1]
	if total == 0 {
		return nil, nil, 0, fmt.Errorf("%w: no correct records", ErrUndefined)
	}
	last := sort.SearchFloat64s(r.tps, total)
	for i := last; i >= 0; i-- {
		precision = append(precision, r.tps[i]/(r.tps[i]+r.fps[i]))
		recall = append(recall, r.tps[i]/total)
	}
	precision = append(precision, 1)
	recall = append(recall, 0)
	area, err = AUC(recall, precision)
	return precision, recall, area, err
}

// ROCCurve returns false and true positive rates as the cutoff is lowered,
// starting at (0, 0). Points on a straight segment between their neighbours are dropped.
func ROCCurve(recs []record.Record) (fpr, tpr []float64, area float64, err error) {
	r, err := rank(recs)
	if err != nil {
		return nil, nil, 0, err
	}
	tps, fps := r.tps, r.fps
	if len(fps) > 2 {
		var keptT, keptF []float64
		for i := range fps {
			if i == 0 || i == len(fps)-1 ||
				fps[i+1]-2*fps[i]+fps[i-1] != 0 ||
				tps[i+1]-2*tps[i]+tps[i-1] != 0 {
				keptT = append(keptT, tps[i])
				keptF = append(keptF, fps[i])
			}
		}
		tps, fps = keptT, keptF
	}
	positives, negatives := tps[len(tps)-1], fps[len(fps)-1]
	if positives == 0 || negatives == 0 {
		return nil, nil, 0, fmt.Errorf("%w: %v correct, %v incorrect", ErrUndefined, positives, negatives)
	}
	fpr = append(fpr, 0)
	tpr = append(tpr, 0)
	for i := range tps {
		fpr = append(fpr, fps[i]/negatives)
		tpr = append(tpr, tps[i]/positives)
	}
	area, err = AUC(fpr, tpr)
	return fpr, tpr, area, err
}

// RiskCoverageCurve sweeps each distinct confidence, from the lowest up, as
// a cutoff. Coverage is the fraction of records at or above the cutoff and
// risk the fraction of all records that are covered and wrong. The curve
// ends at (0, 0). Capacity is one minus the area under risk.
func RiskCoverageCurve(recs []record.Record) (coverage, risk []float64, capacity float64, err error) {
	r, err := rank(recs)
	if err != nil {
		return nil, nil, 0, err
	}
	n := float64(len(recs))
	for i := len(r.tps) - 1; i >= 0; i-- {
		coverage = append(coverage, (r.tps[i]+r.fps[i])/n)
		risk = append(risk, r.fps[i]/n)
	}
	coverage = append(coverage, 0)
	risk = append(risk, 0)
	area, err := AUC(coverage, risk)
	if err != nil {
		return nil, nil, 0, err
	}
	return coverage, risk, 1 - area, nil
}

// Report bundles every curve computed for one record set.
type Report struct {
	Summary Summary
	PY      PYCurve
	PR      Curve
	ROC     Curve

	// RiskCoverage.Area holds the capacity, not the raw area.
	RiskCoverage Curve
}

// NewReport computes the summary and all curves. Curves that are undefined
// for the records (for example no incorrect record for ROC) are left empty.
func NewReport(recs []record.Record) (Report, error) {
	var rep Report
	var err error
	rep.Summary = Evaluate(recs)
	if rep.PY, err = PYCurveFromRecords(recs); err != nil {
		return rep, err
	}
	p, r, a, err := PRCurve(recs)
	if err != nil && !errors.Is(err, ErrUndefined) {
		return rep, err
	}
	rep.PR = Curve{X: r, Y: p, Area: a}
	f, t, a, err := ROCCurve(recs)
	if err != nil && !errors.Is(err, ErrUndefined) {
		return rep, err
	}
	rep.ROC = Curve{X: f, Y: t, Area: a}
	c, k, a, err := RiskCoverageCurve(recs)
	if err != nil {
		return rep, err
	}
	rep.RiskCoverage = Curve{X: c, Y: k, Area: a}
	return rep, nil
}
