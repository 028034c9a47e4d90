package repository

import (
	"context"
	"time"

	"relay-chat/internal/domain/message"
	"relay-chat/internal/domain/presence"
	"relay-chat/internal/domain/user"
)

// Anchor is a (createdAt, id) position in the message log. Pagination and
// window backfill address the log through anchors, never offsets.
type Anchor struct {
	CreatedAt time.Time
	ID        string
}

// MessageRepository is the durable, time-ordered message log.
// A conversationID of "" means the default room and matches every message
// on list operations; a non-empty id filters to that conversation.
type MessageRepository interface {
	Insert(ctx context.Context, m *message.Message) error
	GetByID(ctx context.Context, id string) (*message.Message, error)
	// Put overwrites an existing record in place. CreatedAt is immutable,
	// so the record's position in the log never moves.
	Put(ctx context.Context, m *message.Message) error
	Delete(ctx context.Context, id string) error
	// ListOldest returns up to limit messages in ascending creation order.
	ListOldest(ctx context.Context, conversationID string, limit int) ([]*message.Message, error)
	// ListNewer returns up to limit messages strictly newer than the anchor,
	// ascending. A nil anchor starts from the beginning of the log.
	ListNewer(ctx context.Context, conversationID string, after *Anchor, limit int) ([]*message.Message, error)
	// ListOlder returns up to limit messages strictly older than the anchor,
	// descending. A nil anchor starts from the newest message.
	ListOlder(ctx context.Context, conversationID string, before *Anchor, limit int) ([]*message.Message, error)
	// CountPinned counts pinned messages in exactly the given scope.
	CountPinned(ctx context.Context, conversationID string) (int, error)
}

// TypingRepository stores the ephemeral typing side table, keyed by username.
type TypingRepository interface {
	Get(ctx context.Context, username string) (*presence.TypingIndicator, error)
	Put(ctx context.Context, t *presence.TypingIndicator) error
	Delete(ctx context.Context, username string) error
	// List returns all live records, optionally scoped to one conversation.
	List(ctx context.Context, conversationID string) ([]*presence.TypingIndicator, error)
}

// UserRepository stores account records.
type UserRepository interface {
	Create(ctx context.Context, u *user.User) error
	GetByID(ctx context.Context, id string) (*user.User, error)
	GetByUsername(ctx context.Context, username string) (*user.User, error)
	List(ctx context.Context) ([]*user.User, error)
}
