package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"

	"relay-chat/internal/domain/message"
	relay_errors "relay-chat/pkg/errors"
)

// PebbleMessageRepository keeps the message log under sortable keys:
// msg:{createdAtNanos:020d}:{id}. An id index (msgidx:{id}) resolves
// point lookups to log positions.
type PebbleMessageRepository struct {
	store *Store
}

func NewMessageRepository(store *Store) MessageRepository {
	return &PebbleMessageRepository{store: store}
}

func messageKey(a Anchor) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", msgPrefix, a.CreatedAt.UnixNano(), a.ID))
}

func (r *PebbleMessageRepository) Insert(ctx context.Context, m *message.Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	key := messageKey(Anchor{CreatedAt: m.CreatedAt, ID: m.ID})
	batch := r.store.db.NewBatch()
	defer batch.Close()
	if err := batch.Set(key, data, nil); err != nil {
		return err
	}
	if err := batch.Set([]byte(msgIndex+m.ID), key, nil); err != nil {
		return err
	}
	return batch.Commit(pebble.Sync)
}

func (r *PebbleMessageRepository) primaryKey(id string) ([]byte, error) {
	key, ok, err := r.store.get([]byte(msgIndex + id))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, relay_errors.ErrNotFound
	}
	return key, nil
}

func (r *PebbleMessageRepository) GetByID(ctx context.Context, id string) (*message.Message, error) {
	key, err := r.primaryKey(id)
	if err != nil {
		return nil, err
	}
	data, ok, err := r.store.get(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, relay_errors.ErrNotFound
	}
	var m message.Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *PebbleMessageRepository) Put(ctx context.Context, m *message.Message) error {
	key, err := r.primaryKey(m.ID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return r.store.set(key, data)
}

func (r *PebbleMessageRepository) Delete(ctx context.Context, id string) error {
	key, err := r.primaryKey(id)
	if err != nil {
		return err
	}
	batch := r.store.db.NewBatch()
	defer batch.Close()
	if err := batch.Delete(key, nil); err != nil {
		return err
	}
	if err := batch.Delete([]byte(msgIndex+id), nil); err != nil {
		return err
	}
	return batch.Commit(pebble.Sync)
}

func matchesConversation(m *message.Message, conversationID string) bool {
	return conversationID == "" || m.ConversationID == conversationID
}

func (r *PebbleMessageRepository) ListOldest(ctx context.Context, conversationID string, limit int) ([]*message.Message, error) {
	return r.scanAsc(nil, conversationID, limit)
}

func (r *PebbleMessageRepository) ListNewer(ctx context.Context, conversationID string, after *Anchor, limit int) ([]*message.Message, error) {
	var lower []byte
	if after != nil {
		// Successor of the anchor key: strictly newer positions only.
		lower = append(messageKey(*after), 0x00)
	}
	return r.scanAsc(lower, conversationID, limit)
}

func (r *PebbleMessageRepository) scanAsc(lower []byte, conversationID string, limit int) ([]*message.Message, error) {
	prefix := []byte(msgPrefix)
	iter, err := r.store.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	start := prefix
	if lower != nil {
		start = lower
	}
	var out []*message.Message
	for iter.SeekGE(start); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		m, err := decodeMessage(iter.Value())
		if err != nil {
			return nil, err
		}
		if !matchesConversation(m, conversationID) {
			continue
		}
		out = append(out, m)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, iter.Error()
}

func (r *PebbleMessageRepository) ListOlder(ctx context.Context, conversationID string, before *Anchor, limit int) ([]*message.Message, error) {
	prefix := []byte(msgPrefix)
	iter, err := r.store.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	// Position just past the end of the window: the anchor key itself for a
	// cursor query (strictly older), or past every msg: key when unanchored.
	upper := []byte(msgPrefix + "\xff")
	if before != nil {
		upper = messageKey(*before)
	}
	var out []*message.Message
	for valid := iter.SeekLT(upper); valid; valid = iter.Prev() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		m, err := decodeMessage(iter.Value())
		if err != nil {
			return nil, err
		}
		if !matchesConversation(m, conversationID) {
			continue
		}
		out = append(out, m)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, iter.Error()
}

func (r *PebbleMessageRepository) CountPinned(ctx context.Context, conversationID string) (int, error) {
	prefix := []byte(msgPrefix)
	iter, err := r.store.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	count := 0
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		m, err := decodeMessage(iter.Value())
		if err != nil {
			return 0, err
		}
		// Pin scope is exact: messages in the default room never count
		// against a conversation's quota and vice versa.
		if m.IsPinned && m.ConversationID == conversationID {
			count++
		}
	}
	return count, iter.Error()
}

func decodeMessage(data []byte) (*message.Message, error) {
	var m message.Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
