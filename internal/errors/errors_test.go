package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderChain(t *testing.T) {
	t.Parallel()
	base := NewStd("decode failed")
	err := New(base).
		Component("audio").
		Category(CategoryAudio).
		Context("path", "/data/rec.flac").
		Build()

	assert.Equal(t, "decode failed", err.Error())
	assert.Equal(t, "audio", err.Component)
	assert.Equal(t, CategoryAudio, err.Category)
	assert.Equal(t, "/data/rec.flac", err.GetContext()["path"])
	assert.ErrorIs(t, err, base)
}

func TestNewf(t *testing.T) {
	t.Parallel()
	err := Newf("bad value %d", 42).Component("conf").Build()
	assert.Equal(t, "bad value 42", err.Error())
}

func TestAsThroughWrapping(t *testing.T) {
	t.Parallel()
	inner := Newf("inner").Component("dataset").Category(CategoryDataset).Build()
	wrapped := fmt.Errorf("fetching example: %w", inner)

	var ee *EnhancedError
	require.True(t, As(wrapped, &ee))
	assert.Equal(t, "dataset", ee.Component)
}

func TestFullErrorIncludesContext(t *testing.T) {
	t.Parallel()
	err := Newf("boom").
		Component("sampler").
		Context("t_min", 12.0).
		Context("operation", "random_offset").
		Build()
	full := err.FullError()
	assert.Contains(t, full, "boom")
	assert.Contains(t, full, "operation")
	assert.Contains(t, full, "t_min")
}
