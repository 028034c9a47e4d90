package projection

import (
	"sync"

	"relay-chat/internal/engine"
)

// Cache is the client-held mirror of subscribed documents. It applies the
// engine's added/changed/removed events in arrival order; UI layers read
// from it and never re-fetch.
type Cache struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
	ready       map[string]bool
}

func NewCache() *Cache {
	return &Cache{
		collections: make(map[string]map[string]map[string]any),
		ready:       make(map[string]bool),
	}
}

// Apply patches the mirror with one server event.
func (c *Cache) Apply(ev engine.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Kind {
	case engine.KindReady:
		c.ready[ev.SubID] = true
	case engine.KindAdded:
		coll := c.collections[ev.Collection]
		if coll == nil {
			coll = make(map[string]map[string]any)
			c.collections[ev.Collection] = coll
		}
		fields := make(map[string]any, len(ev.Fields))
		for k, v := range ev.Fields {
			fields[k] = v
		}
		coll[ev.ID] = fields
	case engine.KindChanged:
		doc := c.collections[ev.Collection][ev.ID]
		if doc == nil {
			return
		}
		for k, v := range ev.Fields {
			doc[k] = v
		}
		for _, k := range ev.Cleared {
			delete(doc, k)
		}
	case engine.KindRemoved:
		delete(c.collections[ev.Collection], ev.ID)
	}
}

// Ready reports whether the subscription's initial set has arrived.
func (c *Cache) Ready(subID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready[subID]
}

// Get returns a copy of one document's fields.
func (c *Cache) Get(collection, id string) (map[string]any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	doc, ok := c.collections[collection][id]
	if !ok {
		return nil, false
	}
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out, true
}

// Count returns how many documents the mirror holds for a collection.
func (c *Cache) Count(collection string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.collections[collection])
}

// IDs returns the document ids currently mirrored for a collection.
func (c *Cache) IDs(collection string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.collections[collection]))
	for id := range c.collections[collection] {
		out = append(out, id)
	}
	return out
}
