package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/pebble"

	"relay-chat/internal/domain/user"
	relay_errors "relay-chat/pkg/errors"
)

// PebbleUserRepository stores accounts under user:{id} with a unique
// username index at useridx:name:{username}.
type PebbleUserRepository struct {
	store *Store
}

func NewUserRepository(store *Store) UserRepository {
	return &PebbleUserRepository{store: store}
}

// storedUser is the persistence form of an account. The domain type redacts
// PasswordHash from JSON so the hash can never ride the change feed or an
// HTTP response; the store is the one place that must keep it, so it gets
// its own encoding.
type storedUser struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"displayName"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

func encodeUser(u *user.User) ([]byte, error) {
	return json.Marshal(storedUser{
		ID:           u.ID,
		Username:     u.Username,
		DisplayName:  u.DisplayName,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	})
}

func decodeUser(data []byte) (*user.User, error) {
	var s storedUser
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &user.User{
		ID:           s.ID,
		Username:     s.Username,
		DisplayName:  s.DisplayName,
		PasswordHash: s.PasswordHash,
		CreatedAt:    s.CreatedAt,
	}, nil
}

func (r *PebbleUserRepository) Create(ctx context.Context, u *user.User) error {
	_, taken, err := r.store.get([]byte(userNameIndex + u.Username))
	if err != nil {
		return err
	}
	if taken {
		return relay_errors.ErrAlreadyExists
	}
	data, err := encodeUser(u)
	if err != nil {
		return err
	}
	batch := r.store.db.NewBatch()
	defer batch.Close()
	if err := batch.Set([]byte(userPrefix+u.ID), data, nil); err != nil {
		return err
	}
	if err := batch.Set([]byte(userNameIndex+u.Username), []byte(u.ID), nil); err != nil {
		return err
	}
	return batch.Commit(pebble.Sync)
}

func (r *PebbleUserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	data, ok, err := r.store.get([]byte(userPrefix + id))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, relay_errors.ErrNotFound
	}
	return decodeUser(data)
}

func (r *PebbleUserRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	id, ok, err := r.store.get([]byte(userNameIndex + username))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, relay_errors.ErrNotFound
	}
	return r.GetByID(ctx, string(id))
}

func (r *PebbleUserRepository) List(ctx context.Context) ([]*user.User, error) {
	prefix := []byte(userPrefix)
	iter, err := r.store.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []*user.User
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		u, err := decodeUser(iter.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, iter.Error()
}
