package query

import (
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/strata-analytics/strata/core/frame"
)

const (
	// Keep up to ~128 MiB of cached step results in-memory by default.
	defaultMaxCost = 128 << 20
	// Rule of thumb from Ristretto: ~10x expected live keys.
	defaultNumCounters = 1_000_000
	defaultBufferItems = 64
)

// Cache stores step results keyed by the verbatim statement text. A hit
// means the exact same statement ran before; there is no normalization.
type Cache interface {
	Get(statement string) (*frame.Frame, bool)
	Set(statement string, result *frame.Frame)
	Clear() error
}

// MemoryCache is an in-process result cache backed by Ristretto.
type MemoryCache struct {
	store *ristretto.Cache
	ttl   time.Duration
}

// NewMemoryCache creates a memory cache. maxBytes <= 0 uses the default
// budget; ttl <= 0 keeps entries until evicted by cost pressure.
func NewMemoryCache(maxBytes int64, ttl time.Duration) *MemoryCache {
	if maxBytes <= 0 {
		maxBytes = defaultMaxCost
	}
	// Ristretto requires sizing knobs up front. Values are variable-sized
	// row sets, so cost-based admission keeps RAM bounded.
	store, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: defaultNumCounters,
		MaxCost:     maxBytes,
		BufferItems: defaultBufferItems,
	})
	if err != nil {
		// Invalid config should never happen with static values.
		panic(err)
	}
	return &MemoryCache{store: store, ttl: ttl}
}

// Get returns a clone of the cached result so callers cannot mutate the
// cached rows.
func (c *MemoryCache) Get(statement string) (*frame.Frame, bool) {
	value, ok := c.store.Get(statement)
	if !ok {
		return nil, false
	}
	result, ok := value.(*frame.Frame)
	if !ok {
		return nil, false
	}
	return result.Clone(), true
}

// Set stores a clone of the result under the verbatim statement text.
func (c *MemoryCache) Set(statement string, result *frame.Frame) {
	if result == nil {
		return
	}
	cost := estimateFrameCost(result)
	cloned := result.Clone()

	var accepted bool
	if c.ttl > 0 {
		accepted = c.store.SetWithTTL(statement, cloned, cost, c.ttl)
	} else {
		accepted = c.store.Set(statement, cloned, cost)
	}
	if accepted {
		// Ristretto sets are asynchronous. Wait ensures the value can be
		// read back by the next step of the same run.
		c.store.Wait()
	}
}

// Clear drops all cached results.
func (c *MemoryCache) Clear() error {
	c.store.Clear()
	return nil
}

func estimateFrameCost(f *frame.Frame) int64 {
	var total int64
	for _, col := range f.Columns {
		total += int64(len(col))
	}
	for _, row := range f.Rows {
		total += int64(len(row) * 16)
		for _, value := range row {
			total += estimateValueCost(value)
		}
	}
	if total <= 0 {
		return 1
	}
	return total
}

func estimateValueCost(v any) int64 {
	switch val := v.(type) {
	case nil:
		return 0
	case string:
		return int64(len(val))
	case []byte:
		return int64(len(val))
	case bool:
		return 1
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return 8
	case float32:
		return 4
	case float64:
		return 8
	case time.Time:
		return 16
	default:
		// Fallback for uncommon driver types.
		return 16
	}
}
