package vision

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ebs-ai/ewaste-vision/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingAnalyzer struct {
	validateCalls int
	damageCalls   int
	describeCalls int
	summaryCalls  int
}

func (c *countingAnalyzer) ValidateCategory(ctx context.Context, crop []byte, candidate string, allowed []string) (*Validation, error) {
	c.validateCalls++
	return &Validation{Valid: true, Reasoning: "ok"}, nil
}

func (c *countingAnalyzer) AssessDamage(ctx context.Context, crop []byte, category string) (*DamageAssessment, error) {
	c.damageCalls++
	return &DamageAssessment{Level: 2, Analysis: "fine"}, nil
}

func (c *countingAnalyzer) Describe(ctx context.Context, crop []byte, category string) (*Description, error) {
	c.describeCalls++
	return &Description{Description: "item", Suggestions: []string{"a", "b", "c"}}, nil
}

func (c *countingAnalyzer) DisposalSummary(ctx context.Context, categories []string) (string, error) {
	c.summaryCalls++
	return "summary", nil
}

func newCacheFixture(t *testing.T) (*CachedAnalyzer, *countingAnalyzer) {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	inner := &countingAnalyzer{}
	return NewCachedAnalyzer(inner, store), inner
}

func TestCachedAnalyzerValidateHitsCache(t *testing.T) {
	cached, inner := newCacheFixture(t)
	ctx := context.Background()
	crop := []byte("crop-bytes")

	first, err := cached.ValidateCategory(ctx, crop, "Laptop", []string{"Laptop"})
	require.NoError(t, err)
	second, err := cached.ValidateCategory(ctx, crop, "Laptop", []string{"Laptop"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.validateCalls)
}

func TestCachedAnalyzerKeyIncludesCategory(t *testing.T) {
	cached, inner := newCacheFixture(t)
	ctx := context.Background()
	crop := []byte("crop-bytes")

	_, err := cached.AssessDamage(ctx, crop, "Laptop")
	require.NoError(t, err)
	_, err = cached.AssessDamage(ctx, crop, "Monitor")
	require.NoError(t, err)

	assert.Equal(t, 2, inner.damageCalls)
}

func TestCachedAnalyzerKeyIncludesCrop(t *testing.T) {
	cached, inner := newCacheFixture(t)
	ctx := context.Background()

	_, err := cached.Describe(ctx, []byte("crop-a"), "Laptop")
	require.NoError(t, err)
	_, err = cached.Describe(ctx, []byte("crop-b"), "Laptop")
	require.NoError(t, err)

	assert.Equal(t, 2, inner.describeCalls)
}

func TestCachedAnalyzerStagesDoNotCollide(t *testing.T) {
	cached, inner := newCacheFixture(t)
	ctx := context.Background()
	crop := []byte("crop-bytes")

	_, err := cached.AssessDamage(ctx, crop, "Laptop")
	require.NoError(t, err)
	_, err = cached.Describe(ctx, crop, "Laptop")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.damageCalls)
	assert.Equal(t, 1, inner.describeCalls)
}

func TestCachedAnalyzerSummaryPassesThrough(t *testing.T) {
	cached, inner := newCacheFixture(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := cached.DisposalSummary(ctx, []string{"Laptop"})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, inner.summaryCalls)
}

func TestCachedAnalyzerNilStore(t *testing.T) {
	inner := &countingAnalyzer{}
	cached := NewCachedAnalyzer(inner, nil)

	_, err := cached.ValidateCategory(context.Background(), []byte("x"), "Laptop", nil)
	require.NoError(t, err)
	_, err = cached.ValidateCategory(context.Background(), []byte("x"), "Laptop", nil)
	require.NoError(t, err)

	assert.Equal(t, 2, inner.validateCalls)
}
