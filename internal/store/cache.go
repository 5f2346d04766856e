package store

import (
	"sync"
	"time"
)

type cachedTable struct {
	table     Table
	fetchedAt time.Time
}

// tableCache is a TTL cache of table snapshots keyed by table name. Reads
// within the TTL window reuse the snapshot; writers invalidate explicitly.
type tableCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cachedTable
}

func newTableCache(ttl time.Duration) *tableCache {
	return &tableCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cachedTable),
	}
}

func (c *tableCache) get(name string) (Table, bool) {
	c.mu.RLock()
	entry, ok := c.entries[name]
	c.mu.RUnlock()

	if !ok || c.now().Sub(entry.fetchedAt) > c.ttl {
		return Table{}, false
	}
	return entry.table.clone(), true
}

func (c *tableCache) set(name string, table Table) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = cachedTable{table: table.clone(), fetchedAt: c.now()}
}

func (c *tableCache) invalidate(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, name)
}

func (c *tableCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cachedTable)
}
