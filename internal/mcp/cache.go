package mcp

import (
	"sync"

	"github.com/a3tai/mcp-pdf-forms/internal/pdf/extraction"
)

// cacheEntry is an extracted schema together with the document it came
// from and the last output written for it.
type cacheEntry struct {
	Schema *extraction.Schema
	Source string
	Output string
}

// schemaCache holds extracted schemas by form id for the lifetime of the
// server
type schemaCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

func newSchemaCache() *schemaCache {
	return &schemaCache{entries: make(map[string]cacheEntry)}
}

func (c *schemaCache) Put(schema *extraction.Schema) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[schema.FormID] = cacheEntry{Schema: schema, Source: schema.Source.Path}
}

func (c *schemaCache) Get(formID string) (cacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[formID]
	return e, ok
}

// SetOutput records the output path of a cached form. Unknown ids are ignored.
func (c *schemaCache) SetOutput(formID, output string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[formID]; ok {
		e.Output = output
		c.entries[formID] = e
	}
}

func (c *schemaCache) Delete(formID string) (cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[formID]
	delete(c.entries, formID)
	return e, ok
}

func (c *schemaCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
