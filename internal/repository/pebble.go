package repository

import (
	"github.com/cockroachdb/pebble"
)

// Store wraps the shared pebble handle the repositories operate on.
type Store struct {
	db *pebble.DB
}

// Open opens (or creates) the pebble database at path.
func Open(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Key prefixes. Message keys embed a zero-padded creation timestamp so a
// prefix scan walks the log in time order; secondary index keys map ids
// back to primary keys.
const (
	msgPrefix     = "msg:"
	msgIndex      = "msgidx:"
	typingPrefix  = "typing:"
	userPrefix    = "user:"
	userNameIndex = "useridx:name:"
)

func (s *Store) get(key []byte) ([]byte, bool, error) {
	val, closer, err := s.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	out := make([]byte, len(val))
	copy(out, val)
	if err := closer.Close(); err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func (s *Store) set(key, val []byte) error {
	return s.db.Set(key, val, pebble.Sync)
}

func (s *Store) delete(key []byte) error {
	return s.db.Delete(key, pebble.Sync)
}
