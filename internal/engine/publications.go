package engine

import (
	"context"

	"relay-chat/internal/domain/message"
	"relay-chat/internal/domain/presence"
	"relay-chat/internal/domain/user"
	"relay-chat/internal/events"
	"relay-chat/internal/repository"
	"relay-chat/internal/services"
)

// Publication names a client can subscribe to.
const (
	PubMessages          = "messages"
	PubMessagesPaginated = "messages.paginated"
	PubTyping            = "typingIndicators"
	PubUsers             = "users"
)

const (
	recentWindowLimit    = 100
	paginatedDefaultSize = 30
	paginatedMaxSize     = 50
)

// Publications builds subscription specs from client parameters. An
// unauthenticated caller on an auth-required publication gets a valid,
// empty, immediately-ready spec rather than an error: transports treat
// "not logged in" and "no data yet" uniformly.
type Publications struct {
	messages repository.MessageRepository
	users    repository.UserRepository
	typing   *services.TypingService
}

func NewPublications(messages repository.MessageRepository, users repository.UserRepository, typing *services.TypingService) *Publications {
	return &Publications{messages: messages, users: users, typing: typing}
}

func emptySpec(collection string) Spec {
	return Spec{
		Collection: collection,
		Filter:     func(events.Doc) bool { return false },
		Less:       func(a, b events.Doc) bool { return false },
	}
}

func asMessage(doc events.Doc) (*message.Message, bool) {
	m, ok := doc.(*message.Message)
	return m, ok
}

// createdAsc orders messages oldest-first, ids breaking timestamp ties.
func createdAsc(a, b events.Doc) bool {
	ma, ok := asMessage(a)
	if !ok {
		return false
	}
	mb, ok := asMessage(b)
	if !ok {
		return false
	}
	if !ma.CreatedAt.Equal(mb.CreatedAt) {
		return ma.CreatedAt.Before(mb.CreatedAt)
	}
	return ma.ID < mb.ID
}

func createdDesc(a, b events.Doc) bool {
	return createdAsc(b, a)
}

// olderThan reports whether m sits strictly before the anchor in the
// (createdAt, id) order.
func olderThan(m *message.Message, anchor repository.Anchor) bool {
	if !m.CreatedAt.Equal(anchor.CreatedAt) {
		return m.CreatedAt.Before(anchor.CreatedAt)
	}
	return m.ID < anchor.ID
}

func messageDocs(ms []*message.Message) []events.Doc {
	out := make([]events.Doc, len(ms))
	for i, m := range ms {
		out[i] = m
	}
	return out
}

// RecentMessages is the unbounded recent-window publication: all messages
// in scope, ascending, capped at 100. Requires authentication.
func (p *Publications) RecentMessages(caller *services.Identity, conversationID string) Spec {
	if caller == nil {
		return emptySpec(events.CollectionMessages)
	}
	return Spec{
		Collection: events.CollectionMessages,
		Filter: func(doc events.Doc) bool {
			m, ok := asMessage(doc)
			return ok && (conversationID == "" || m.ConversationID == conversationID)
		},
		Less:  createdAsc,
		Limit: recentWindowLimit,
		InitialFetch: func(ctx context.Context) ([]events.Doc, error) {
			ms, err := p.messages.ListOldest(ctx, conversationID, recentWindowLimit)
			if err != nil {
				return nil, err
			}
			return messageDocs(ms), nil
		},
		Backfill: func(ctx context.Context, boundary events.Doc) (events.Doc, bool, error) {
			var after *repository.Anchor
			if b, ok := asMessage(boundary); ok {
				after = &repository.Anchor{CreatedAt: b.CreatedAt, ID: b.ID}
			}
			ms, err := p.messages.ListNewer(ctx, conversationID, after, 1)
			if err != nil || len(ms) == 0 {
				return nil, false, err
			}
			return ms[0], true, nil
		},
	}
}

// PaginatedMessages anchors a descending page on the cursor message's
// (createdAt, id) pair. Append-only inserts of newer messages can never
// enter an anchored page, which is what keeps cursors valid under
// concurrent sends. A cursor naming an unknown id degrades to the first
// page. Requires authentication.
func (p *Publications) PaginatedMessages(ctx context.Context, caller *services.Identity, cursorID string, limit int, conversationID string) Spec {
	if caller == nil {
		return emptySpec(events.CollectionMessages)
	}
	if limit <= 0 {
		limit = paginatedDefaultSize
	}
	if limit > paginatedMaxSize {
		limit = paginatedMaxSize
	}

	var anchor *repository.Anchor
	if cursorID != "" {
		if m, err := p.messages.GetByID(ctx, cursorID); err == nil {
			anchor = &repository.Anchor{CreatedAt: m.CreatedAt, ID: m.ID}
		}
	}

	return Spec{
		Collection: events.CollectionMessages,
		Filter: func(doc events.Doc) bool {
			m, ok := asMessage(doc)
			if !ok {
				return false
			}
			if conversationID != "" && m.ConversationID != conversationID {
				return false
			}
			return anchor == nil || olderThan(m, *anchor)
		},
		Less:  createdDesc,
		Limit: limit,
		InitialFetch: func(ctx context.Context) ([]events.Doc, error) {
			ms, err := p.messages.ListOlder(ctx, conversationID, anchor, limit)
			if err != nil {
				return nil, err
			}
			return messageDocs(ms), nil
		},
		Backfill: func(ctx context.Context, boundary events.Doc) (events.Doc, bool, error) {
			before := anchor
			if b, ok := asMessage(boundary); ok {
				before = &repository.Anchor{CreatedAt: b.CreatedAt, ID: b.ID}
			}
			ms, err := p.messages.ListOlder(ctx, conversationID, before, 1)
			if err != nil || len(ms) == 0 {
				return nil, false, err
			}
			return ms[0], true, nil
		},
	}
}

// TypingIndicators publishes the live typing set for a scope. Activation
// sweeps expired records first; no authentication required.
func (p *Publications) TypingIndicators(conversationID string) Spec {
	return Spec{
		Collection: events.CollectionTyping,
		Filter: func(doc events.Doc) bool {
			t, ok := doc.(*presence.TypingIndicator)
			return ok && (conversationID == "" || t.ConversationID == conversationID)
		},
		Less: func(a, b events.Doc) bool {
			ta, ok := a.(*presence.TypingIndicator)
			if !ok {
				return false
			}
			tb, ok := b.(*presence.TypingIndicator)
			if !ok {
				return false
			}
			if !ta.UpdatedAt.Equal(tb.UpdatedAt) {
				return ta.UpdatedAt.Before(tb.UpdatedAt)
			}
			return ta.ID < tb.ID
		},
		InitialFetch: func(ctx context.Context) ([]events.Doc, error) {
			ts, err := p.typing.List(ctx, conversationID)
			if err != nil {
				return nil, err
			}
			out := make([]events.Doc, len(ts))
			for i, t := range ts {
				out[i] = t
			}
			return out, nil
		},
	}
}

// UserDirectory publishes display names only; full identity records never
// leave the server. Requires authentication.
func (p *Publications) UserDirectory(caller *services.Identity) Spec {
	if caller == nil {
		return emptySpec(events.CollectionUsers)
	}
	return Spec{
		Collection: events.CollectionUsers,
		Filter: func(doc events.Doc) bool {
			_, ok := doc.(*user.User)
			return ok
		},
		Less: func(a, b events.Doc) bool {
			ua, ok := a.(*user.User)
			if !ok {
				return false
			}
			ub, ok := b.(*user.User)
			if !ok {
				return false
			}
			if ua.DisplayName != ub.DisplayName {
				return ua.DisplayName < ub.DisplayName
			}
			return ua.ID < ub.ID
		},
		InitialFetch: func(ctx context.Context) ([]events.Doc, error) {
			us, err := p.users.List(ctx)
			if err != nil {
				return nil, err
			}
			out := make([]events.Doc, len(us))
			for i, u := range us {
				out[i] = u
			}
			return out, nil
		},
		Project: func(doc events.Doc) events.Doc {
			u, ok := doc.(*user.User)
			if !ok {
				return doc
			}
			return u.DirectoryView()
		},
	}
}
