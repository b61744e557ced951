package evaluate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSampleSize(t *testing.T) {
	// 95% level, 5% margin: 384.16 shrinks to 369.98 under the population correction
	assert.Equal(t, 369, SampleSize(10000, 95))
	assert.Equal(t, 9, SampleSize(10, 95))
	assert.Equal(t, 10000, SampleSize(10000, 100))
	assert.Equal(t, 0, SampleSize(0, 95))
	assert.Less(t, SampleSize(10000, 90), SampleSize(10000, 95))
	assert.Greater(t, SampleSize(10000, 99), SampleSize(10000, 95))
}
