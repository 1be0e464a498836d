package toolcall

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterValidation(t *testing.T) {
	reg := NewRegistry()

	err := reg.Register(&Descriptor{Primary: echoTransport})
	assert.ErrorContains(t, err, "name")

	err = reg.Register(&Descriptor{Name: "no-transport"})
	assert.ErrorContains(t, err, "primary transport")

	err = reg.Register(&Descriptor{Name: "bad-schema", Primary: echoTransport, Schema: []byte("{not json")})
	assert.ErrorContains(t, err, "schema")
}

func TestRegistryLookup(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&Descriptor{Name: "beta", Description: "b", Category: "workitems", Primary: echoTransport}))
	require.NoError(t, reg.Register(&Descriptor{Name: "alpha", Description: "a", Category: "testplans", Primary: echoTransport}))

	assert.True(t, reg.Has("alpha"))
	assert.False(t, reg.Has("gamma"))
	assert.Nil(t, reg.Get("gamma"))
	assert.Equal(t, []string{"alpha", "beta"}, reg.List())
}

func TestRegistrySummaries(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&Descriptor{Name: "alpha", Description: "first", Primary: echoTransport}))
	require.NoError(t, reg.Register(&Descriptor{Name: "beta", Description: "second", Primary: echoTransport}))

	subset := reg.Summaries([]string{"beta", "unknown"})
	require.Len(t, subset, 1)
	assert.Equal(t, "beta", subset[0].Name)
	assert.Equal(t, "second", subset[0].Description)

	all := reg.Summaries(nil)
	assert.Len(t, all, 2)
	assert.Equal(t, "alpha", all[0].Name)
}

func TestLimiterWindows(t *testing.T) {
	limiter := NewLimiter(LimitConfig{CallsPerMinute: 3})

	assert.True(t, limiter.Allow("t"))
	assert.True(t, limiter.Allow("t"))
	assert.True(t, limiter.Allow("t"))
	assert.False(t, limiter.Allow("t"))

	// Separate tools keep separate windows
	assert.True(t, limiter.Allow("other"))
}

func TestLimiterPerToolOverride(t *testing.T) {
	limiter := NewLimiter(LimitConfig{CallsPerMinute: 100})
	limiter.SetToolLimits("strict", LimitConfig{CallsPerMinute: 1})

	assert.True(t, limiter.Allow("strict"))
	assert.False(t, limiter.Allow("strict"))
	assert.True(t, limiter.Allow("loose"))
}
