package events

import (
	"sync"
)

// Collection names for the change feed.
const (
	CollectionMessages = "messages"
	CollectionTyping   = "typingIndicators"
	CollectionUsers    = "users"
)

// Op is the kind of store mutation a change event describes.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Doc is any document that can ride the change feed.
type Doc interface {
	DocID() string
}

// ChangeEvent describes one committed store write. Before is nil on insert,
// After is nil on delete; updates carry both so consumers can diff fields
// without re-reading the store.
type ChangeEvent struct {
	Collection string
	Op         Op
	ID         string
	Before     Doc
	After      Doc
	// Remote marks events ingested from another node via the redis bridge,
	// so the bridge never forwards them back out.
	Remote bool
}

// Handler consumes change events in publish order.
type Handler func(ChangeEvent)

// Bus is the change feed all mutations publish to.
type Bus interface {
	Publish(ev ChangeEvent)
	Subscribe(h Handler)
}

// InProcBus delivers events synchronously, in publish order, to every
// handler. The subscription engine's ordering guarantee rests on this.
type InProcBus struct {
	mu       sync.RWMutex
	handlers []Handler
}

func NewInProcBus() *InProcBus {
	return &InProcBus{}
}

func (b *InProcBus) Subscribe(h Handler) {
	b.mu.Lock()
	b.handlers = append(b.handlers, h)
	b.mu.Unlock()
}

func (b *InProcBus) Publish(ev ChangeEvent) {
	b.mu.RLock()
	handlers := b.handlers
	b.mu.RUnlock()
	for _, h := range handlers {
		h(ev)
	}
}
