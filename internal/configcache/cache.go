// Package configcache holds the process-wide mirror of the
// configuration store: a concurrent path → bytes mapping with typed
// getters. It is authoritative between store events, so entries never
// expire; they only change when the store says so.
package configcache

import (
	"strconv"
	"strings"
	"sync"

	"datagate/internal/configstore"
)

// Cache is a concurrent-safe mapping of store path to raw bytes.
// Writes are single-writer per path (the watch loop); reads come from
// the request path.
type Cache struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string][]byte)}
}

// Load replaces all entries under no particular subtree with the
// given snapshot, typically the result of an initial ReadTree.
func (c *Cache) Load(tree map[string][]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for path, data := range tree {
		c.entries[path] = data
	}
}

// Apply folds a store event into the cache.
func (c *Cache) Apply(event configstore.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch event.Type {
	case configstore.NodeUpdated:
		c.entries[event.Path] = event.Data
	case configstore.NodeRemoved:
		delete(c.entries, event.Path)
	}
}

// Get returns the raw bytes at path.
func (c *Cache) Get(path string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, ok := c.entries[path]
	return data, ok
}

// GetString returns the value at path as a UTF-8 string, or def when
// the path is absent.
func (c *Cache) GetString(path, def string) string {
	if data, ok := c.Get(path); ok {
		return string(data)
	}
	return def
}

// GetInt returns the value at path parsed as an int, or def when the
// path is absent or unparseable.
func (c *Cache) GetInt(path string, def int) int {
	if data, ok := c.Get(path); ok {
		if v, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil {
			return v
		}
	}
	return def
}

// GetLong returns the value at path parsed as an int64.
func (c *Cache) GetLong(path string, def int64) int64 {
	if data, ok := c.Get(path); ok {
		if v, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64); err == nil {
			return v
		}
	}
	return def
}

// GetBool returns the value at path parsed as a bool ("true"/"false",
// case-insensitive), or def when absent or unparseable.
func (c *Cache) GetBool(path string, def bool) bool {
	if data, ok := c.Get(path); ok {
		if v, err := strconv.ParseBool(strings.TrimSpace(string(data))); err == nil {
			return v
		}
	}
	return def
}

// Subtree returns a copy of every entry at or under root.
func (c *Cache) Subtree(root string) map[string][]byte {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string][]byte)
	for path, data := range c.entries {
		if path == root || strings.HasPrefix(path, root+"/") {
			out[path] = data
		}
	}
	return out
}

// Children returns the distinct immediate child segment names under
// root, in no particular order.
func (c *Cache) Children(root string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]bool)
	prefix := root + "/"
	for path := range c.entries {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		rest := strings.TrimPrefix(path, prefix)
		if i := strings.Index(rest, "/"); i >= 0 {
			rest = rest[:i]
		}
		seen[rest] = true
	}

	children := make([]string, 0, len(seen))
	for name := range seen {
		children = append(children, name)
	}
	return children
}
