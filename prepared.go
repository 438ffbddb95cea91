package tarantool

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// preparedCache is the bounded LRU keyed by exact SQL text spec.md §4.10
// describes, plus the non-blocking try-lock that gives its PREPARE
// warm-up single-flight discipline: whichever caller grabs updateMu does
// the round trip and fills the cache, everyone else just skips caching
// for that call instead of queueing behind it.
type preparedCache struct {
	cache    *lru.Cache[string, uint64]
	updateMu sync.Mutex
}

// newPreparedCache returns nil when capacity <= 0, disabling the cache;
// every method on a nil *preparedCache is a safe no-op.
func newPreparedCache(capacity int) *preparedCache {
	if capacity <= 0 {
		return nil
	}
	c, err := lru.New[string, uint64](capacity)
	if err != nil {
		return nil
	}
	return &preparedCache{cache: c}
}

func (p *preparedCache) lookup(text string) (uint64, bool) {
	if p == nil {
		return 0, false
	}
	return p.cache.Get(text)
}

// tryFill attempts the single-flight PREPARE described in spec.md §4.10.
// If the update lock is already held, it returns immediately without
// calling prepare at all.
func (p *preparedCache) tryFill(text string, prepare func() (uint64, error)) {
	if p == nil {
		return
	}
	if !p.updateMu.TryLock() {
		return
	}
	defer p.updateMu.Unlock()

	if _, ok := p.cache.Get(text); ok {
		return
	}
	stmtID, err := prepare()
	if err != nil {
		return
	}
	p.cache.Add(text, stmtID)
}
