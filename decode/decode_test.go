package decode

import (
	"errors"
	"math"
	"testing"

	"github.com/neurlang/abstain/confidence"
	"github.com/neurlang/abstain/record"
	"github.com/neurlang/abstain/zone"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedModel returns its inputs as scores and records mode switches.
type fixedModel struct {
	modes []bool
	fail  error
}

func (m *fixedModel) Forward(inputs [][]float64) ([][]float64, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	if len(m.modes) == 0 || m.modes[len(m.modes)-1] {
		return nil, errors.New("forward called in training mode")
	}
	return inputs, nil
}

func (m *fixedModel) SetTraining(training bool) {
	m.modes = append(m.modes, training)
}

func logits(p ...float64) []float64 {
	out := make([]float64, len(p))
	for i, v := range p {
		out[i] = math.Log(v)
	}
	return out
}

func batches() []Batch {
	return []Batch{
		{
			IDs:    []string{"a", "b"},
			Inputs: [][]float64{logits(0.6, 0.1, 0.1, 0.2), logits(0.1, 0.2, 0.3, 0.4)},
			Gold:   []int{0, 1},
		},
		{
			IDs:    []string{"c"},
			Inputs: [][]float64{logits(0.2, 0.5, 0.2, 0.1)},
			Gold:   []int{2},
		},
	}
}

func TestDecodeBaseline(t *testing.T) {
	m := &fixedModel{}
	recs, err := Collect(Decoder{}.Decode(m, Slice(batches())))
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, "a", recs[0].ID)
	assert.Equal(t, 0, recs[0].Pred)
	assert.InDelta(t, 0.6, recs[0].Confidence, 1e-9)
	assert.Equal(t, 3, recs[1].Pred)
	assert.InDelta(t, 0.4, recs[1].Confidence, 1e-9)
	assert.Equal(t, 1, recs[2].Pred)
	assert.Equal(t, 2, recs[2].Gold)

	assert.Equal(t, []bool{false, true}, m.modes)
}

func TestDecodeAbstain(t *testing.T) {
	m := &fixedModel{}
	d := Decoder{Abstain: true, Confidence: NegAbs}
	recs, err := Collect(d.Decode(m, Slice(batches())))
	require.NoError(t, err)

	// the abstention column is never predicted
	assert.Equal(t, 2, recs[1].Pred)
	assert.InDelta(t, 0.6, recs[1].Confidence, 1e-9)
	assert.InDelta(t, 0.8, recs[0].Confidence, 1e-9)
}

func TestDecodeZones(t *testing.T) {
	b := Batch{
		Inputs: [][]float64{logits(0.5, 0.1, 0.3, 0.1)},
		Gold:   []int{2},
		Zones:  []zone.Zone{{Start: 1, Stop: 3}},
	}
	recs, err := Collect(Decoder{Abstain: true}.Decode(&fixedModel{}, Slice([]Batch{b})))
	require.NoError(t, err)
	assert.Equal(t, 2, recs[0].Pred)
	// renormalized over {0.1, 0.3} plus the kept abstention 0.1
	assert.InDelta(t, 0.6, recs[0].Confidence, 1e-9)
}

func TestDecodeZonesWithExtractor(t *testing.T) {
	b := Batch{
		Inputs: [][]float64{logits(0.5, 0.1, 0.3, 0.1)},
		Gold:   []int{2},
		Zones:  []zone.Zone{{Start: 1, Stop: 3}},
	}
	for _, tc := range []struct {
		name string
		ex   confidence.Extractor
		conf float64
	}{
		{"max_non_abs", confidence.MaxNonAbstain, 0.6},
		{"max_prob", confidence.MaxProb, 0.6},
		{"inv_abs", confidence.InverseAbstain, 0.8},
	} {
		t.Run(tc.name, func(t *testing.T) {
			d := Decoder{Abstain: true, Extractor: tc.ex}
			recs, err := Collect(d.Decode(&fixedModel{}, Slice([]Batch{b})))
			require.NoError(t, err)
			assert.Equal(t, 2, recs[0].Pred)
			// class 0 is outside the zone and must not lend its 0.5
			assert.InDelta(t, tc.conf, recs[0].Confidence, 1e-9)
		})
	}
}

func TestDecodeRejectsEmptyZone(t *testing.T) {
	b := Batch{
		Inputs: [][]float64{logits(0.7, 0.2, 0.1)},
		Gold:   []int{1},
		Zones:  []zone.Zone{{Start: 1, Stop: 1}},
	}
	m := &fixedModel{}
	_, err := Collect(Decoder{}.Decode(m, Slice([]Batch{b})))
	assert.ErrorIs(t, err, zone.ErrBadZone)
	assert.Equal(t, []bool{false, true}, m.modes)
}

func TestDecodeThreshold(t *testing.T) {
	recs, err := Collect(Decoder{Threshold: 0.5}.Decode(&fixedModel{}, Slice(batches())))
	require.NoError(t, err)
	assert.False(t, recs[0].Abstained)
	assert.True(t, recs[1].Abstained)
	assert.Equal(t, record.Abstain, recs[1].Pred)
	assert.Equal(t, 1, recs[1].Gold)
}

func TestDecodeExtractor(t *testing.T) {
	recs, err := Collect(Decoder{Extractor: confidence.InverseAbstain}.Decode(&fixedModel{}, Slice(batches())))
	require.NoError(t, err)
	assert.InDelta(t, 0.8, recs[0].Confidence, 1e-9)
	assert.Equal(t, 3, recs[1].Pred)
}

func TestDecodeRestoresModeOnBreak(t *testing.T) {
	m := &fixedModel{}
	for range (Decoder{}).Decode(m, Slice(batches())) {
		break
	}
	assert.Equal(t, []bool{false, true}, m.modes)
}

func TestDecodeErrors(t *testing.T) {
	m := &fixedModel{fail: errors.New("boom")}
	_, err := Collect(Decoder{}.Decode(m, Slice(batches())))
	assert.ErrorContains(t, err, "boom")
	assert.Equal(t, []bool{false, true}, m.modes)

	m = &fixedModel{}
	bad := []Batch{{Inputs: [][]float64{{1, 2}}, Gold: []int{0, 1}}}
	_, err = Collect(Decoder{}.Decode(m, Slice(bad)))
	assert.ErrorIs(t, err, ErrShape)

	m = &fixedModel{}
	_, err = Collect(Decoder{Confidence: NegAbs}.Decode(m, Slice(batches())))
	assert.ErrorIs(t, err, ErrNegAbsNeedsAbstain)
	assert.Equal(t, []bool{false, true}, m.modes)
}

func TestDecodeIsLazy(t *testing.T) {
	pulled := 0
	src := func(yield func(Batch) bool) {
		for _, b := range batches() {
			pulled++
			if !yield(b) {
				return
			}
		}
	}
	for r, err := range (Decoder{}).Decode(&fixedModel{}, src) {
		require.NoError(t, err)
		assert.Equal(t, "a", r.ID)
		break
	}
	assert.Equal(t, 1, pulled)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("neg_abs")
	require.NoError(t, err)
	assert.Equal(t, NegAbs, k)
	assert.Equal(t, "neg_abs", k.String())
	k, err = ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, Baseline, k)
	_, err = ParseKind("max")
	assert.Error(t, err)
}
