package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"relay-chat/internal/domain/message"
	"relay-chat/internal/events"
	"relay-chat/internal/observability"
	"relay-chat/internal/repository"
	relay_errors "relay-chat/pkg/errors"
)

const (
	// EditWindow bounds how long after creation a message stays editable.
	// The boundary is exclusive: exactly EditWindow after createdAt is
	// already expired.
	EditWindow = 15 * time.Minute

	// MaxPins caps concurrently pinned messages per scope.
	MaxPins = 5
)

// MessageService is the single entry point for message mutations. Every
// operation validates and authorizes before the one store write that
// commits it, then publishes the change.
type MessageService struct {
	repo repository.MessageRepository
	bus  events.Bus
	now  func() time.Time
}

func NewMessageService(repo repository.MessageRepository, bus events.Bus) *MessageService {
	return &MessageService{repo: repo, bus: bus, now: time.Now}
}

// InsertInput carries everything messages.insert accepts.
type InsertInput struct {
	Text           string
	ConversationID string
	// LegacyUsername backs the pre-authentication display-name path; it is
	// only consulted when the caller identity has no display name.
	LegacyUsername string
	ReplyTo        *message.ReplySnapshot
	Attachments    []message.Attachment
}

func (s *MessageService) Insert(ctx context.Context, caller *Identity, in InsertInput) (*message.Message, error) {
	if caller == nil {
		return nil, relay_errors.ErrNotAuthorized
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, relay_errors.ErrInvalidInput
	}

	displayName := caller.DisplayName
	if displayName == "" {
		displayName = strings.TrimSpace(in.LegacyUsername)
	}
	if displayName == "" {
		return nil, relay_errors.ErrInvalidInput
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	authorID := caller.UserID
	m := &message.Message{
		ID:                id.String(),
		Text:              text,
		AuthorID:          &authorID,
		AuthorDisplayName: displayName,
		ConversationID:    in.ConversationID,
		CreatedAt:         s.now(),
	}
	// Empty optional fields stay absent; the log never stores empty arrays
	// or hollow reply snapshots.
	if in.ReplyTo != nil && in.ReplyTo.MessageID != "" {
		v := *in.ReplyTo
		m.ReplyTo = &v
	}
	if len(in.Attachments) > 0 {
		m.Attachments = append([]message.Attachment(nil), in.Attachments...)
	}

	if err := s.repo.Insert(ctx, m); err != nil {
		return nil, err
	}
	s.publish(events.OpInsert, nil, m)
	observability.RecordMutation("insert")
	return m, nil
}

func (s *MessageService) Update(ctx context.Context, caller *Identity, messageID, newText, legacyUsername string) error {
	if caller == nil {
		return relay_errors.ErrNotAuthorized
	}
	before, err := s.repo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if !before.Owner().Allows(caller.UserID, legacyUsername) {
		return relay_errors.ErrUnauthorized
	}
	// Window is anchored at createdAt, never at a prior edit.
	if s.now().Sub(before.CreatedAt) >= EditWindow {
		return relay_errors.ErrTimeExpired
	}
	text := strings.TrimSpace(newText)
	if text == "" {
		return relay_errors.ErrInvalidInput
	}

	after := before.Clone()
	after.Text = text
	after.IsEdited = true
	editedAt := s.now()
	after.EditedAt = &editedAt

	if err := s.repo.Put(ctx, after); err != nil {
		return err
	}
	s.publish(events.OpUpdate, before, after)
	observability.RecordMutation("update")
	return nil
}

// Remove hard-deletes a message. Ownership rules mirror Update, without the
// time window. A missing id is NotFound, not a silent no-op.
func (s *MessageService) Remove(ctx context.Context, caller *Identity, messageID, legacyUsername string) error {
	if caller == nil {
		return relay_errors.ErrNotAuthorized
	}
	before, err := s.repo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if !before.Owner().Allows(caller.UserID, legacyUsername) {
		return relay_errors.ErrUnauthorized
	}
	if err := s.repo.Delete(ctx, messageID); err != nil {
		return err
	}
	s.publish(events.OpDelete, before, nil)
	observability.RecordMutation("remove")
	return nil
}

// AddReaction toggles a (emoji, reactor) entry. No authorization by design:
// any caller may react under any supplied name; an authenticated caller's
// id is recorded alongside. Applying the same toggle twice restores the
// original reaction set.
func (s *MessageService) AddReaction(ctx context.Context, caller *Identity, messageID, emoji, reactorName string) error {
	if strings.TrimSpace(emoji) == "" {
		return relay_errors.ErrInvalidInput
	}
	before, err := s.repo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}

	var reactorID *string
	name := strings.TrimSpace(reactorName)
	if caller != nil {
		id := caller.UserID
		reactorID = &id
		if name == "" {
			name = caller.DisplayName
		}
	}
	if name == "" {
		return relay_errors.ErrInvalidInput
	}

	after := before.Clone()
	if i := findReaction(after.Reactions, emoji, reactorID, name); i >= 0 {
		after.Reactions = append(after.Reactions[:i], after.Reactions[i+1:]...)
		if len(after.Reactions) == 0 {
			after.Reactions = nil
		}
	} else {
		after.Reactions = append(after.Reactions, message.Reaction{
			Emoji:       emoji,
			ReactorID:   reactorID,
			ReactorName: name,
			CreatedAt:   s.now(),
		})
	}

	if err := s.repo.Put(ctx, after); err != nil {
		return err
	}
	s.publish(events.OpUpdate, before, after)
	observability.RecordMutation("react")
	return nil
}

func findReaction(reactions []message.Reaction, emoji string, reactorID *string, name string) int {
	for i, r := range reactions {
		if r.Emoji != emoji {
			continue
		}
		if reactorID != nil && r.ReactorID != nil {
			if *r.ReactorID == *reactorID {
				return i
			}
			continue
		}
		if r.ReactorName == name {
			return i
		}
	}
	return -1
}

// MarkAsSeen records the caller in seenBy. Idempotent: a second call for
// the same viewer is a silent success, never a duplicate entry.
func (s *MessageService) MarkAsSeen(ctx context.Context, caller *Identity, messageID, legacyUsername string) error {
	if caller == nil {
		return relay_errors.ErrNotAuthorized
	}
	before, err := s.repo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}

	name := caller.DisplayName
	if name == "" {
		name = strings.TrimSpace(legacyUsername)
	}
	if before.SeenByViewer(caller.UserID, name) {
		return nil
	}

	after := before.Clone()
	viewerID := caller.UserID
	after.SeenBy = append(after.SeenBy, message.SeenEntry{
		UserID:   &viewerID,
		Username: name,
		SeenAt:   s.now(),
	})

	if err := s.repo.Put(ctx, after); err != nil {
		return err
	}
	s.publish(events.OpUpdate, before, after)
	observability.RecordMutation("seen")
	return nil
}

// Pin pins a message. The pinned-count invariant is checked at pin time
// against the message's own conversation scope; unpin only ever decreases
// the count, so nothing reconciles in the background.
func (s *MessageService) Pin(ctx context.Context, messageID, pinnerName string) error {
	before, err := s.repo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if before.IsPinned {
		return relay_errors.ErrAlreadyPinned
	}
	count, err := s.repo.CountPinned(ctx, before.ConversationID)
	if err != nil {
		return err
	}
	if count >= MaxPins {
		return relay_errors.ErrMaxPinsReached
	}

	after := before.Clone()
	after.IsPinned = true
	pinnedAt := s.now()
	after.PinnedAt = &pinnedAt
	after.PinnedBy = strings.TrimSpace(pinnerName)

	if err := s.repo.Put(ctx, after); err != nil {
		return err
	}
	s.publish(events.OpUpdate, before, after)
	observability.RecordMutation("pin")
	return nil
}

// Unpin clears pin state unconditionally; only a missing id is an error.
func (s *MessageService) Unpin(ctx context.Context, messageID string) error {
	before, err := s.repo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}

	after := before.Clone()
	after.IsPinned = false
	after.PinnedAt = nil
	after.PinnedBy = ""

	if err := s.repo.Put(ctx, after); err != nil {
		return err
	}
	s.publish(events.OpUpdate, before, after)
	observability.RecordMutation("unpin")
	return nil
}

func (s *MessageService) GetByID(ctx context.Context, messageID string) (*message.Message, error) {
	return s.repo.GetByID(ctx, messageID)
}

func (s *MessageService) publish(op events.Op, before, after *message.Message) {
	ev := events.ChangeEvent{Collection: events.CollectionMessages, Op: op}
	if before != nil {
		ev.Before = before
		ev.ID = before.ID
	}
	if after != nil {
		ev.After = after
		ev.ID = after.ID
	}
	s.bus.Publish(ev)
}
