package tokencount

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountTokens_NonEmpty(t *testing.T) {
	c := NewCounter()
	n, err := c.CountTokens("hello world, this is a token counting test", "openai/gpt-4o-mini")
	require.NoError(t, err)
	assert.Greater(t, n, 0)
}

func TestCountTokens_CachesEncoding(t *testing.T) {
	c := NewCounter()
	_, err := c.CountTokens("first", "gpt-4")
	require.NoError(t, err)
	_, err = c.CountTokens("second", "gpt-4")
	require.NoError(t, err)
	assert.Len(t, c.encodingCache, 1)
}

func TestClamp_ShortTextUnchanged(t *testing.T) {
	c := NewCounter()
	in := "short text"
	assert.Equal(t, in, c.Clamp(in, "gpt-4", 100))
}

func TestClamp_LongTextTruncated(t *testing.T) {
	c := NewCounter()
	in := strings.Repeat("kubernetes deployment rollout strategy ", 200)
	out := c.Clamp(in, "gpt-4", 50)
	assert.Less(t, len(out), len(in))
	n, err := c.CountTokens(out, "gpt-4")
	require.NoError(t, err)
	assert.LessOrEqual(t, n, 50)
}

func TestClamp_ZeroBudgetNoop(t *testing.T) {
	c := NewCounter()
	in := "anything"
	assert.Equal(t, in, c.Clamp(in, "gpt-4", 0))
}

func TestNormalizeModelName(t *testing.T) {
	assert.Equal(t, "gpt-4", normalizeModelName("openai/gpt-4o-mini"))
	assert.Equal(t, "gpt-3.5-turbo", normalizeModelName("openai/gpt-3.5-turbo"))
	assert.Equal(t, "gpt-4", normalizeModelName("meta-llama/llama-3.1-8b-instruct:free"))
}
