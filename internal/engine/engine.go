package engine

import (
	"context"
	"sync"

	"relay-chat/internal/events"
	"relay-chat/pkg/logger"
)

// Engine maintains every active subscription and reduces each store write
// to the minimal add/change/remove deltas per subscription. It evaluates
// only the changed document against each filter; it never re-runs a full
// query on the write path.
type Engine struct {
	mu   sync.Mutex
	subs map[string]*subscription
}

func New(bus events.Bus) *Engine {
	e := &Engine{subs: make(map[string]*subscription)}
	bus.Subscribe(e.Apply)
	return e
}

// Subscribe activates a live query: the initial matched set is emitted as
// added events followed by ready, and the subscription then receives
// incremental updates until Unsubscribe.
//
// The initial fetch runs outside the engine lock. Store reads are allowed
// to publish on the bus themselves (the typing sweep deletes expired
// records while listing), and Apply must stay free to take the lock for
// those events. The subscription registers first in a pending state that
// buffers anything applied during the fetch; the buffer is then replayed
// against the fetched set before ready, so no write between fetch and
// registration is lost or delivered twice.
func (e *Engine) Subscribe(ctx context.Context, id string, spec Spec, sink Sink) error {
	sub := &subscription{id: id, spec: spec, sink: sink, pending: true}
	e.mu.Lock()
	e.subs[id] = sub
	e.mu.Unlock()

	var docs []events.Doc
	if spec.InitialFetch != nil {
		fetched, err := spec.InitialFetch(ctx)
		if err != nil {
			e.mu.Lock()
			delete(e.subs, id)
			e.mu.Unlock()
			return err
		}
		docs = fetched
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.subs[id] != sub {
		// Unsubscribed while the fetch ran; nothing to emit.
		return nil
	}
	for _, doc := range docs {
		sub.members = append(sub.members, doc)
		sub.emitAdded(doc)
	}
	sub.pending = false
	buffered := sub.buffer
	sub.buffer = nil
	for _, ev := range buffered {
		e.applyToSub(sub, ev)
	}
	sink(Event{Kind: KindReady, SubID: id})
	return nil
}

// Unsubscribe drops the subscription; any in-flight recomputation for it is
// simply never delivered.
func (e *Engine) Unsubscribe(id string) {
	e.mu.Lock()
	delete(e.subs, id)
	e.mu.Unlock()
}

// ActiveCount returns the number of live subscriptions.
func (e *Engine) ActiveCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs)
}

// Apply evaluates one committed store write against every subscription on
// that collection. Runs synchronously on the bus, so per-subscription event
// order equals the server's application order.
func (e *Engine) Apply(ev events.ChangeEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, sub := range e.subs {
		if sub.spec.Collection != ev.Collection {
			continue
		}
		if sub.pending {
			sub.buffer = append(sub.buffer, ev)
			continue
		}
		e.applyToSub(sub, ev)
	}
}

func (e *Engine) applyToSub(sub *subscription, ev events.ChangeEvent) {
	pos := sub.indexOf(ev.ID)
	matchesNow := ev.After != nil && sub.spec.Filter(ev.After)

	switch {
	case pos < 0 && matchesNow:
		e.add(sub, ev.After)
	case pos >= 0 && !matchesNow:
		wasFull := sub.spec.Limit > 0 && len(sub.members) == sub.spec.Limit
		sub.removeAt(pos)
		sub.emitRemoved(ev.ID)
		if wasFull {
			e.backfill(sub)
		}
	case pos >= 0 && matchesNow:
		before := sub.members[pos]
		sub.members[pos] = ev.After
		sub.emitChanged(before, ev.After)
	}
}

// add inserts a newly matching document, displacing the weakest-ranked
// member when the window is already full and the newcomer outranks it.
func (e *Engine) add(sub *subscription, doc events.Doc) {
	if sub.spec.Limit > 0 && len(sub.members) == sub.spec.Limit {
		weakest := sub.members[len(sub.members)-1]
		if !sub.spec.Less(doc, weakest) {
			return
		}
		sub.removeAt(len(sub.members) - 1)
		sub.emitRemoved(weakest.DocID())
	}
	sub.insertSorted(doc)
	sub.emitAdded(doc)
}

// backfill pulls the next-ranked document from the store after a removal
// opened a slot in a previously full window.
func (e *Engine) backfill(sub *subscription) {
	if sub.spec.Backfill == nil {
		return
	}
	var boundary events.Doc
	if len(sub.members) > 0 {
		boundary = sub.members[len(sub.members)-1]
	}
	doc, ok, err := sub.spec.Backfill(context.Background(), boundary)
	if err != nil {
		logger.GetGlobalLogger().Errorf("subscription %s backfill: %s", sub.id, err.Error())
		return
	}
	if !ok || !sub.spec.Filter(doc) || sub.indexOf(doc.DocID()) >= 0 {
		return
	}
	sub.insertSorted(doc)
	sub.emitAdded(doc)
}
