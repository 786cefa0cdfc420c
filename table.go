package rtpa

import (
	"sync"
)

const numShards = 64

// Table is the in-memory StrategyStore: a map from information-set key
// to Strategy, split across fixed shards so walks touching different
// keys never contend on one lock. Entries are created lazily and live
// until Reset.
type Table struct {
	shards [numShards]tableShard
}

type tableShard struct {
	mu      sync.RWMutex
	entries map[string]*Strategy
}

// NewTable creates an empty Table.
func NewTable() *Table {
	t := &Table{}
	for i := range t.shards {
		t.shards[i].entries = make(map[string]*Strategy)
	}
	return t
}

// Get returns the Policy for key, creating it on first use.
func (t *Table) Get(key string) Policy {
	return t.strategy(key)
}

// strategy is Get without the interface wrapper, for snapshot code
// that needs the concrete entry.
func (t *Table) strategy(key string) *Strategy {
	sh := &t.shards[shardIndex(key)]

	sh.mu.RLock()
	s, ok := sh.entries[key]
	sh.mu.RUnlock()
	if ok {
		return s
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()
	if s, ok := sh.entries[key]; ok {
		return s
	}
	s = NewStrategy()
	sh.entries[key] = s
	return s
}

// Len returns the number of entries across all shards.
func (t *Table) Len() int {
	n := 0
	for i := range t.shards {
		sh := &t.shards[i]
		sh.mu.RLock()
		n += len(sh.entries)
		sh.mu.RUnlock()
	}
	return n
}

// ForEach visits every entry in unspecified order, stopping at the
// first error. Entries added concurrently with the walk may or may not
// be visited.
func (t *Table) ForEach(fn func(key string, p Policy) error) error {
	for i := range t.shards {
		keys, strategies := t.shards[i].snapshot()
		for j, k := range keys {
			if err := fn(k, strategies[j]); err != nil {
				return err
			}
		}
	}
	return nil
}

// Lookup returns the entry for key without creating one.
func (t *Table) Lookup(key string) (Policy, bool) {
	shard := &t.shards[shardIndex(key)]
	shard.mu.RLock()
	s, ok := shard.entries[key]
	shard.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return s, true
}

// put installs a strategy under key, replacing any existing entry.
// Used when restoring a snapshot.
func (t *Table) put(key string, s *Strategy) {
	shard := &t.shards[shardIndex(key)]
	shard.mu.Lock()
	shard.entries[key] = s
	shard.mu.Unlock()
}

// Reset discards every entry.
func (t *Table) Reset() {
	for i := range t.shards {
		sh := &t.shards[i]
		sh.mu.Lock()
		sh.entries = make(map[string]*Strategy)
		sh.mu.Unlock()
	}
}

// snapshot copies the shard's contents out so callers can iterate
// without holding the shard lock.
func (sh *tableShard) snapshot() ([]string, []*Strategy) {
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	keys := make([]string, 0, len(sh.entries))
	strategies := make([]*Strategy, 0, len(sh.entries))
	for k, s := range sh.entries {
		keys = append(keys, k)
		strategies = append(strategies, s)
	}
	return keys, strategies
}

func shardIndex(key string) int {
	h := uint32(2166136261)
	for i := 0; i < len(key); i++ {
		h ^= uint32(key[i])
		h *= 16777619
	}
	return int(h % numShards)
}
