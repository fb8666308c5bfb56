package cache

import (
	"testing"
	"time"

	"songforge/internal/scoring"

	"github.com/stretchr/testify/assert"
)

func TestMemoryCacheExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache(time.Minute, 0)
	defer c.Stop()
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Size())

	c.sweep()
	assert.Equal(t, 0, c.Size())
}

func TestMemoryCacheDeleteAndStop(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Millisecond)
	c.Set("a", "x")
	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Stop()
	c.Stop()
}

func TestAnalysisCache(t *testing.T) {
	ac := NewAnalysisCache(time.Minute)
	defer ac.Stop()

	_, ok := ac.GetAnalysis("missing")
	assert.False(t, ok)

	want := scoring.Analysis{Themes: []string{"sea"}, Atmosphere: "calm"}
	ac.SetAnalysis("k", want)
	got, ok := ac.GetAnalysis("k")
	assert.True(t, ok)
	assert.Equal(t, want, got)

	ac.Set("wrong", 42)
	_, ok = ac.GetAnalysis("wrong")
	assert.False(t, ok)
}
