package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurlang/abstain/loss"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Data.BatchSize)
	assert.Equal(t, "baseline", cfg.Decode.Confidence)
	assert.Equal(t, "precision_yield_curve.json", cfg.Output.CurveFile)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data:
  dir: /data/mnist
  batch_size: 0
  significance: 95
decode:
  abstain: true
  confidence: neg_abs
  threshold: 0.25
checkpoints:
  - saved/pair_baseline.json.lzw
  - saved/pair_neg_abs.json.lzw
loss:
  name: dac
  params:
    alpha: 1.5
    warmup_epochs: 5
    total_epochs: 30
`), 0o644))

	t.Setenv("ABSTAIN_DB", "/tmp/runs.db")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/mnist", cfg.Data.Dir)
	assert.Equal(t, 1, cfg.Data.BatchSize)
	assert.Equal(t, byte(95), cfg.Data.Significance)
	assert.True(t, cfg.Decode.Abstain)
	assert.Equal(t, "neg_abs", cfg.Decode.Confidence)
	assert.Equal(t, 0.25, cfg.Decode.Threshold)
	assert.Len(t, cfg.Checkpoints, 2)
	assert.Equal(t, "/tmp/runs.db", cfg.Output.DB)
	assert.Equal(t, "dac", cfg.Loss.Name)
	assert.Equal(t, 1.5, cfg.Loss.Params.Alpha)
	assert.Equal(t, 30, cfg.Loss.Params.TotalEpochs)

	t.Setenv("ABSTAIN_THRESHOLD", "high")
	_, err = Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDecoder(t *testing.T) {
	cfg := Default()
	cfg.Decode.Abstain = true
	cfg.Decode.Confidence = "neg_abs"
	d, err := cfg.Decoder()
	require.NoError(t, err)
	assert.True(t, d.Abstain)
	assert.Nil(t, d.Extractor)

	cfg.Decode.Extractor = "inv_abs"
	d, err = cfg.Decoder()
	require.NoError(t, err)
	assert.NotNil(t, d.Extractor)

	cfg.Decode.Extractor = "entropy"
	_, err = cfg.Decoder()
	assert.Error(t, err)

	cfg.Decode.Extractor = ""
	cfg.Decode.Confidence = "margin"
	_, err = cfg.Decoder()
	assert.Error(t, err)
}

func TestObjective(t *testing.T) {
	cfg := Default()
	l, err := cfg.Objective()
	require.NoError(t, err)
	assert.Equal(t, "CrossEntropyLoss", l.String())

	cfg.Loss.Name = "abstaining"
	cfg.Loss.Params.Alpha = 0.5
	l, err = cfg.Objective()
	require.NoError(t, err)
	assert.Equal(t, "AbstainingLoss", l.String())

	cfg.Loss.Name = "hinge"
	_, err = cfg.Objective()
	assert.ErrorIs(t, err, loss.ErrUnknown)
}
