package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"relay-chat/internal/domain/presence"
	"relay-chat/internal/events"
	"relay-chat/internal/repository"
	relay_errors "relay-chat/pkg/errors"
)

// TypingService owns the ephemeral typing side table. Records expire
// passively: every read path sweeps entries older than the TTL before
// serving, so no background timer exists.
type TypingService struct {
	repo repository.TypingRepository
	bus  events.Bus
	now  func() time.Time
}

func NewTypingService(repo repository.TypingRepository, bus events.Bus) *TypingService {
	return &TypingService{repo: repo, bus: bus, now: time.Now}
}

// Set refreshes the caller's typing record: the prior record (if any) is
// replaced outright, keeping at most one live record per author.
func (s *TypingService) Set(ctx context.Context, username, conversationID string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return relay_errors.ErrInvalidInput
	}

	if old, err := s.repo.Get(ctx, username); err == nil {
		if err := s.repo.Delete(ctx, username); err != nil {
			return err
		}
		s.publishRemoved(old)
	}

	t := &presence.TypingIndicator{
		ID:             uuid.New().String(),
		Username:       username,
		ConversationID: conversationID,
		UpdatedAt:      s.now(),
	}
	if err := s.repo.Put(ctx, t); err != nil {
		return err
	}
	s.bus.Publish(events.ChangeEvent{
		Collection: events.CollectionTyping,
		Op:         events.OpInsert,
		ID:         t.ID,
		After:      t,
	})
	return nil
}

// Clear drops the caller's typing record; absent is a safe no-op.
func (s *TypingService) Clear(ctx context.Context, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return relay_errors.ErrInvalidInput
	}
	old, err := s.repo.Get(ctx, username)
	if err != nil {
		return nil
	}
	if err := s.repo.Delete(ctx, username); err != nil {
		return err
	}
	s.publishRemoved(old)
	return nil
}

// Sweep opportunistically deletes records past the TTL. Best effort and
// cheap; callers invoke it before reading, never on a schedule.
func (s *TypingService) Sweep(ctx context.Context) error {
	all, err := s.repo.List(ctx, "")
	if err != nil {
		return err
	}
	now := s.now()
	for _, t := range all {
		if !t.Expired(now) {
			continue
		}
		if err := s.repo.Delete(ctx, t.Username); err != nil {
			return err
		}
		s.publishRemoved(t)
	}
	return nil
}

// List sweeps, then returns the live records for the scope.
func (s *TypingService) List(ctx context.Context, conversationID string) ([]*presence.TypingIndicator, error) {
	if err := s.Sweep(ctx); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, conversationID)
}

func (s *TypingService) publishRemoved(t *presence.TypingIndicator) {
	s.bus.Publish(events.ChangeEvent{
		Collection: events.CollectionTyping,
		Op:         events.OpDelete,
		ID:         t.ID,
		Before:     t,
	})
}
