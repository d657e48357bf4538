package scraper

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// Cache is the concurrent composite-key store backing the Auxiliary
// Scraper Cache. Reads and writes never block each other across
// different keys.
type Cache struct {
	records *xsync.MapOf[string, Record]
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{records: xsync.NewMapOf[string, Record]()}
}

// Get returns the record for compositeKey, if any, regardless of
// freshness; callers check Record.Fresh themselves.
func (c *Cache) Get(compositeKey string) (Record, bool) {
	return c.records.Load(compositeKey)
}

// Upsert stores r under its own composite key, overwriting whatever was
// there. There is no partial-update path.
func (c *Cache) Upsert(r Record) {
	c.records.Store(r.CompositeKey(), r)
}
