package batch

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/maypok86/otter"

	"github.com/mvp-joe/logsift/internal/extractor"
)

// DefaultCacheSize is the number of file results kept in memory.
const DefaultCacheSize = 10_000

// ResultCache remembers extraction results by path and content hash, so an
// unchanged file is never parsed twice. It is safe for concurrent use.
type ResultCache struct {
	cache otter.Cache[string, *extractor.Result]
}

// NewResultCache creates a cache holding up to size results.
func NewResultCache(size int) (*ResultCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := otter.MustBuilder[string, *extractor.Result](size).
		CollectStats().
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build result cache: %w", err)
	}
	return &ResultCache{cache: c}, nil
}

// Get returns the cached result for path at the given content hash.
func (c *ResultCache) Get(path, hash string) (*extractor.Result, bool) {
	return c.cache.Get(cacheKey(path, hash))
}

// Set stores a result.
func (c *ResultCache) Set(path, hash string, res *extractor.Result) {
	c.cache.Set(cacheKey(path, hash), res)
}

// HitRatio reports the fraction of lookups that hit.
func (c *ResultCache) HitRatio() float64 {
	return c.cache.Stats().Ratio()
}

// Close releases the cache's background resources.
func (c *ResultCache) Close() {
	c.cache.Close()
}

func cacheKey(path, hash string) string {
	return path + "@" + hash
}

// ContentHash returns the hex SHA-256 of a file's contents.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
