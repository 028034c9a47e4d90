package repository

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/cockroachdb/pebble"

	"relay-chat/internal/domain/presence"
	relay_errors "relay-chat/pkg/errors"
)

// PebbleTypingRepository stores typing records under typing:{username}.
// One key per author keeps the one-live-record invariant structural.
type PebbleTypingRepository struct {
	store *Store
}

func NewTypingRepository(store *Store) TypingRepository {
	return &PebbleTypingRepository{store: store}
}

func (r *PebbleTypingRepository) Get(ctx context.Context, username string) (*presence.TypingIndicator, error) {
	data, ok, err := r.store.get([]byte(typingPrefix + username))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, relay_errors.ErrNotFound
	}
	var t presence.TypingIndicator
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *PebbleTypingRepository) Put(ctx context.Context, t *presence.TypingIndicator) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return r.store.set([]byte(typingPrefix+t.Username), data)
}

func (r *PebbleTypingRepository) Delete(ctx context.Context, username string) error {
	return r.store.delete([]byte(typingPrefix + username))
}

func (r *PebbleTypingRepository) List(ctx context.Context, conversationID string) ([]*presence.TypingIndicator, error) {
	prefix := []byte(typingPrefix)
	iter, err := r.store.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []*presence.TypingIndicator
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var t presence.TypingIndicator
		if err := json.Unmarshal(iter.Value(), &t); err != nil {
			return nil, err
		}
		if conversationID != "" && t.ConversationID != conversationID {
			continue
		}
		out = append(out, &t)
	}
	return out, iter.Error()
}
