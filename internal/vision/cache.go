package vision

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"

	"github.com/ebs-ai/ewaste-vision/internal/storage"
	"github.com/rs/zerolog/log"
)

// CachedAnalyzer wraps an Analyzer with a SQLite-backed cache keyed by crop
// content, stage, and category. Cache errors are logged and treated as
// misses so a broken cache never degrades enrichment.
type CachedAnalyzer struct {
	inner Analyzer
	store *storage.Store
}

// NewCachedAnalyzer creates a caching decorator around inner.
func NewCachedAnalyzer(inner Analyzer, store *storage.Store) *CachedAnalyzer {
	return &CachedAnalyzer{inner: inner, store: store}
}

// cacheKey hashes the stage, category, and crop bytes. Fields are
// length-prefixed to prevent boundary collisions.
func cacheKey(stage, category string, crop []byte) string {
	h := sha256.New()
	for _, field := range [][]byte{[]byte(stage), []byte(category), crop} {
		binary.Write(h, binary.LittleEndian, int64(len(field)))
		h.Write(field)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *CachedAnalyzer) lookup(key string, out any) bool {
	if c.store == nil {
		return false
	}
	payload, err := c.store.Get(key)
	if err != nil {
		log.Warn().Err(err).Msg("failed to check enrichment cache")
		return false
	}
	if payload == nil {
		return false
	}
	if err := json.Unmarshal(payload, out); err != nil {
		log.Warn().Err(err).Msg("corrupt enrichment cache entry")
		return false
	}
	log.Debug().Str("key", key[:16]).Msg("enrichment cache hit")
	return true
}

func (c *CachedAnalyzer) save(key, stage string, value any) {
	if c.store == nil {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.store.Set(key, stage, payload); err != nil {
		log.Warn().Err(err).Msg("failed to cache enrichment result")
	}
}

// ValidateCategory implements the Analyzer interface with caching.
func (c *CachedAnalyzer) ValidateCategory(ctx context.Context, crop []byte, candidate string, allowed []string) (*Validation, error) {
	key := cacheKey("validate", candidate, crop)

	var cached Validation
	if c.lookup(key, &cached) {
		return &cached, nil
	}

	result, err := c.inner.ValidateCategory(ctx, crop, candidate, allowed)
	if err != nil {
		return nil, err
	}
	c.save(key, "validate", result)
	return result, nil
}

// AssessDamage implements the Analyzer interface with caching.
func (c *CachedAnalyzer) AssessDamage(ctx context.Context, crop []byte, category string) (*DamageAssessment, error) {
	key := cacheKey("damage", category, crop)

	var cached DamageAssessment
	if c.lookup(key, &cached) {
		return &cached, nil
	}

	result, err := c.inner.AssessDamage(ctx, crop, category)
	if err != nil {
		return nil, err
	}
	c.save(key, "damage", result)
	return result, nil
}

// Describe implements the Analyzer interface with caching.
func (c *CachedAnalyzer) Describe(ctx context.Context, crop []byte, category string) (*Description, error) {
	key := cacheKey("describe", category, crop)

	var cached Description
	if c.lookup(key, &cached) {
		return &cached, nil
	}

	result, err := c.inner.Describe(ctx, crop, category)
	if err != nil {
		return nil, err
	}
	c.save(key, "describe", result)
	return result, nil
}

// DisposalSummary passes through uncached; the summary depends on the whole
// batch rather than a single crop.
func (c *CachedAnalyzer) DisposalSummary(ctx context.Context, categories []string) (string, error) {
	return c.inner.DisposalSummary(ctx, categories)
}
