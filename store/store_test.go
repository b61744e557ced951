package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/neurlang/abstain/evaluate"
	"github.com/neurlang/abstain/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture() []record.Record {
	return []record.Record{
		{ID: "t10k:0", Pred: 1, Gold: 7, Confidence: 0.1},
		{ID: "t10k:1", Pred: 8, Gold: 8, Confidence: 0.3},
		{ID: "t10k:2", Pred: 4, Gold: 9, Confidence: 0.5},
		{ID: "t10k:3", Pred: 6, Gold: 6, Confidence: 0.7},
		{Pred: record.Abstain, Gold: 3, Confidence: 0.05, Abstained: true},
	}
}

func TestSaveAndLoadRun(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	recs := fixture()
	rep, err := evaluate.NewReport(recs)
	require.NoError(t, err)

	id, err := s.SaveRun(ctx, "pair_neg_abs", "dac", rep, recs)
	require.NoError(t, err)
	assert.Len(t, id, 36)

	run, err := s.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "pair_neg_abs", run.Name)
	assert.Equal(t, "dac", run.Loss)
	assert.Equal(t, rep.Summary, run.Summary)
	assert.True(t, run.PRAUC.Valid)
	assert.Equal(t, rep.PR.Area, run.PRAUC.Float64)
	assert.True(t, run.ROCAUC.Valid)
	assert.Equal(t, rep.ROC.Area, run.ROCAUC.Float64)
	assert.Equal(t, rep.RiskCoverage.Area, run.Capacity)
	assert.Equal(t, rep.PY, run.PY)
	assert.False(t, run.CreatedAt.IsZero())

	back, err := s.Records(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, recs, back)
}

func TestUndefinedCurvesStoredAsNull(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	// every record correct: ROC has no negatives
	recs := []record.Record{
		{Pred: 1, Gold: 1, Confidence: 0.2},
		{Pred: 2, Gold: 2, Confidence: 0.9},
	}
	rep, err := evaluate.NewReport(recs)
	require.NoError(t, err)

	id, err := s.SaveRun(ctx, "all_correct", "ce", rep, recs)
	require.NoError(t, err)
	run, err := s.GetRun(ctx, id)
	require.NoError(t, err)
	assert.False(t, run.ROCAUC.Valid)
	assert.True(t, run.PRAUC.Valid)

	// nothing correct: PR has no positives either
	recs = []record.Record{{Pred: 1, Gold: 2, Confidence: 0.4}}
	rep, err = evaluate.NewReport(recs)
	require.NoError(t, err)
	id, err = s.SaveRun(ctx, "all_wrong", "ce", rep, recs)
	require.NoError(t, err)
	run, err = s.GetRun(ctx, id)
	require.NoError(t, err)
	assert.False(t, run.PRAUC.Valid)
	assert.False(t, run.ROCAUC.Valid)
}

func TestListRuns(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	rep, err := evaluate.NewReport(fixture())
	require.NoError(t, err)
	for _, name := range []string{"baseline", "neg_abs"} {
		_, err := s.SaveRun(ctx, name, "", rep, nil)
		require.NoError(t, err)
	}
	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
	assert.Equal(t, "", runs[0].Loss)
}

func TestGetRunNotFound(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
