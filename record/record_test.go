package record

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAt(t *testing.T) {
	r := Record{Pred: 3, Gold: 3, Confidence: 0.4}
	assert.True(t, r.Correct())
	assert.Equal(t, r, r.At(0.4))

	low := r.At(0.5)
	assert.Equal(t, Abstain, low.Pred)
	assert.True(t, low.Abstained)
	assert.False(t, low.Correct())
}

func TestJSONL(t *testing.T) {
	recs := []Record{
		{Pred: 1, Gold: 7, Confidence: 0.1},
		{ID: "d000.s001.t002", Pred: Abstain, Gold: 2, Confidence: 0.05, Abstained: true},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteJSONL(&buf, recs))
	assert.True(t, strings.HasPrefix(buf.String(), `{"pred":1,"gold":7,"confidence":0.1}`))

	got, err := ReadJSONL(strings.NewReader(buf.String() + "\n"))
	require.NoError(t, err)
	assert.Equal(t, recs, got)

	_, err = ReadJSONL(strings.NewReader("{\"pred\":1}\nnot json\n"))
	assert.ErrorContains(t, err, "line 2")
}

func TestFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "decoded.jsonl")
	recs := []Record{{Pred: 8, Gold: 8, Confidence: 0.3}}
	require.NoError(t, WriteFile(name, recs))
	got, err := ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, recs, got)
	assert.Equal(t, []int{8}, Preds(got))
	assert.Equal(t, []int{8}, Golds(got))
}
