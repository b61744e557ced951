// Package zone restricts score rows to the candidate classes valid for each example.
package zone

import "errors"
import "fmt"

// LargeNegative replaces masked raw scores so they never win an arg-max.
const LargeNegative = -1e7

var (
	ErrBadZone   = errors.New("zone out of range")
	ErrZoneCount = errors.New("zone count does not match row count")
)

// Zone is the half open range [Start, Stop) of valid class indices for one example.
// A zone holds at least one class.
type Zone struct {
	Start int `json:"start"`
	Stop  int `json:"stop"`
}

// Contains reports whether class i is inside the zone.
func (z Zone) Contains(i int) bool {
	return i >= z.Start && i < z.Stop
}

// check rejects zones that fall outside the row or hold no class.
func (z Zone) check(width int) error {
	if z.Start < 0 || z.Stop > width || z.Start >= z.Stop {
		return fmt.Errorf("%w: [%d, %d) for width %d", ErrBadZone, z.Start, z.Stop, width)
	}
	return nil
}

func mask(rows [][]float64, zones []Zone, abstain bool, fill float64) ([][]float64, error) {
	if len(rows) != len(zones) {
		return nil, fmt.Errorf("%w: %d rows, %d zones", ErrZoneCount, len(rows), len(zones))
	}
	out := make([][]float64, len(rows))
	for r, row := range rows {
		z := zones[r]
		if err := z.check(len(row)); err != nil {
			return nil, fmt.Errorf("row %d: %w", r, err)
		}
		revised := make([]float64, len(row))
		for i := range revised {
			revised[i] = fill
		}
		copy(revised[z.Start:z.Stop], row[z.Start:z.Stop])
		if abstain && len(row) > 0 {
			revised[len(row)-1] = row[len(row)-1]
		}
		out[r] = revised
	}
	return out, nil
}

// MaskScores keeps raw scores inside each zone and sets the rest to LargeNegative,
// so a following softmax gives them no mass. With abstain the last column is kept.
func MaskScores(scores [][]float64, zones []Zone, abstain bool) ([][]float64, error) {
	return mask(scores, zones, abstain, LargeNegative)
}

// MaskProbs zeroes probabilities outside each zone and L1 renormalizes the row.
// With abstain the last column is kept. Rows left with no mass stay all zero.
func MaskProbs(probs [][]float64, zones []Zone, abstain bool) ([][]float64, error) {
	out, err := mask(probs, zones, abstain, 0)
	if err != nil {
		return nil, err
	}
	for _, row := range out {
		var sum float64
		for _, v := range row {
			if v < 0 {
				v = -v
			}
			sum += v
		}
		if sum == 0 {
			continue
		}
		for i := range row {
			row[i] /= sum
		}
	}
	return out, nil
}
