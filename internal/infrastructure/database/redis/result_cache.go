package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/turtacn/ClauseIQ-Intelligence/internal/infrastructure/monitoring/logging"
	types "github.com/turtacn/ClauseIQ-Intelligence/pkg/types/clause"
)

// ResultCache memoises parse results per (category, clause text) pair.
// The clause text is hashed so arbitrarily long clauses produce fixed-size
// keys; identical requests are served without touching the engine.
type ResultCache struct {
	cache  Cache
	ttl    time.Duration
	logger logging.Logger
}

// NewResultCache builds a ResultCache. ttl bounds staleness after a rule
// bundle refresh; zero falls back to the cache default.
func NewResultCache(cache Cache, ttl time.Duration, log logging.Logger) *ResultCache {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ResultCache{cache: cache, ttl: ttl, logger: log}
}

// Key derives the cache key for one request.
func (rc *ResultCache) Key(category types.CoverageCategory, clauseText string) string {
	h := sha256.Sum256([]byte(string(category) + "\x00" + clauseText))
	return "parse:" + string(category) + ":" + hex.EncodeToString(h[:])
}

// Get returns the cached result, or nil on a miss. Cache failures are
// reported as misses; the caller parses again rather than failing the
// request.
func (rc *ResultCache) Get(ctx context.Context, category types.CoverageCategory, clauseText string) *types.ParseResult {
	var result types.ParseResult
	err := rc.cache.Get(ctx, rc.Key(category, clauseText), &result)
	if err == ErrCacheMiss {
		return nil
	}
	if err != nil {
		rc.logger.Warn("Result cache read failed", logging.Err(err))
		return nil
	}
	return &result
}

// Put stores a result. Failures are logged and swallowed; caching is best
// effort.
func (rc *ResultCache) Put(ctx context.Context, category types.CoverageCategory, clauseText string, result *types.ParseResult) {
	if result == nil {
		return
	}
	if err := rc.cache.Set(ctx, rc.Key(category, clauseText), result, rc.ttl); err != nil {
		rc.logger.Warn("Result cache write failed", logging.Err(err))
	}
}

// Flush drops every cached parse result. Called after the rule bundle is
// rebuilt so stale results do not outlive the rules that produced them.
func (rc *ResultCache) Flush(ctx context.Context) {
	deleted, err := rc.cache.DeleteByPrefix(ctx, "parse:")
	if err != nil {
		rc.logger.Warn("Result cache flush failed", logging.Err(err))
		return
	}
	if deleted > 0 {
		rc.logger.Info("Flushed result cache", logging.Int64("entries", deleted))
	}
}
