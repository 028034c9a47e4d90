package engine

import (
	"context"
	"encoding/json"
	"reflect"

	"relay-chat/internal/events"
)

// Event is one incremental update emitted to a subscription's sink.
// Added carries the full document fields, Changed only the fields whose
// values differ plus the keys that disappeared, Removed just the id.
// Ready marks the end of the initial set.
type Event struct {
	Kind       string         `json:"type"`
	SubID      string         `json:"subId,omitempty"`
	Collection string         `json:"collection,omitempty"`
	ID         string         `json:"id,omitempty"`
	Fields     map[string]any `json:"fields,omitempty"`
	Cleared    []string       `json:"cleared,omitempty"`
}

const (
	KindAdded   = "added"
	KindChanged = "changed"
	KindRemoved = "removed"
	KindReady   = "ready"
)

// Sink receives a subscription's events in emission order.
type Sink func(Event)

// Spec parameterizes one live query: which documents match, how they rank,
// how many the window holds, and how to fetch from the store when the
// incremental path cannot answer alone.
type Spec struct {
	Collection string
	// Filter reports whether a document belongs to the result set.
	Filter func(doc events.Doc) bool
	// Less orders the result set; the last member in this order is the
	// weakest-ranked one, displaced first when the window is full.
	Less func(a, b events.Doc) bool
	// Limit caps the window size. Zero means unbounded.
	Limit int
	// InitialFetch computes the starting result set from the store.
	InitialFetch func(ctx context.Context) ([]events.Doc, error)
	// Backfill fetches the next document ranked past the boundary, used to
	// refill a previously full window after a removal. A nil boundary means
	// the window emptied out. Optional.
	Backfill func(ctx context.Context, boundary events.Doc) (events.Doc, bool, error)
	// Project narrows a document to its published fields. Optional.
	Project func(doc events.Doc) events.Doc
}

// subscription holds one active live query and its current members, kept
// sorted by Spec.Less. While pending (initial fetch in flight) applied
// events accumulate in buffer instead of being evaluated.
type subscription struct {
	id      string
	spec    Spec
	sink    Sink
	members []events.Doc
	pending bool
	buffer  []events.ChangeEvent
}

func (s *subscription) indexOf(id string) int {
	for i, d := range s.members {
		if d.DocID() == id {
			return i
		}
	}
	return -1
}

// insertSorted puts doc at its rank and returns the insertion index.
func (s *subscription) insertSorted(doc events.Doc) int {
	i := 0
	for ; i < len(s.members); i++ {
		if s.spec.Less(doc, s.members[i]) {
			break
		}
	}
	s.members = append(s.members, nil)
	copy(s.members[i+1:], s.members[i:])
	s.members[i] = doc
	return i
}

func (s *subscription) removeAt(i int) {
	s.members = append(s.members[:i], s.members[i+1:]...)
}

func (s *subscription) project(doc events.Doc) events.Doc {
	if s.spec.Project != nil {
		return s.spec.Project(doc)
	}
	return doc
}

func (s *subscription) emitAdded(doc events.Doc) {
	s.sink(Event{
		Kind:       KindAdded,
		Collection: s.spec.Collection,
		ID:         doc.DocID(),
		Fields:     docFields(s.project(doc)),
	})
}

func (s *subscription) emitChanged(before, after events.Doc) {
	fields, cleared := diffFields(s.project(before), s.project(after))
	if len(fields) == 0 && len(cleared) == 0 {
		return
	}
	s.sink(Event{
		Kind:       KindChanged,
		Collection: s.spec.Collection,
		ID:         after.DocID(),
		Fields:     fields,
		Cleared:    cleared,
	})
}

func (s *subscription) emitRemoved(id string) {
	s.sink(Event{
		Kind:       KindRemoved,
		Collection: s.spec.Collection,
		ID:         id,
	})
}

// docFields flattens a document to its serialized field map.
func docFields(doc events.Doc) map[string]any {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

// diffFields compares two documents at the top level of their serialized
// form: fields holds changed or new values, cleared the keys that vanished.
func diffFields(before, after events.Doc) (map[string]any, []string) {
	prev := docFields(before)
	next := docFields(after)
	fields := make(map[string]any)
	for k, v := range next {
		if old, ok := prev[k]; !ok || !reflect.DeepEqual(old, v) {
			fields[k] = v
		}
	}
	var cleared []string
	for k := range prev {
		if _, ok := next[k]; !ok {
			cleared = append(cleared, k)
		}
	}
	return fields, cleared
}
