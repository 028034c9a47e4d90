package message

import (
	"time"
)

// AttachmentKind discriminates image previews from generic files.
type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentFile  AttachmentKind = "file"
)

// Attachment references uploaded content; the bytes live behind Ref
// (an object-storage key or URL), never in the message log.
type Attachment struct {
	Kind AttachmentKind `json:"kind"`
	Ref  string         `json:"ref"`
	Name string         `json:"name"`
	Size int64          `json:"size"`
}

// ReplySnapshot is an immutable copy of the quoted message taken at send
// time. Edits or deletes of the original never rewrite the quote.
type ReplySnapshot struct {
	MessageID  string `json:"messageId"`
	Text       string `json:"text"`
	AuthorName string `json:"authorName"`
}

// Reaction is one (emoji, reactor) entry. ReactorID is nil for reactions
// recorded under a bare display name.
type Reaction struct {
	Emoji       string    `json:"emoji"`
	ReactorID   *string   `json:"reactorId,omitempty"`
	ReactorName string    `json:"reactorName"`
	CreatedAt   time.Time `json:"createdAt"`
}

// SeenEntry records that a viewer has seen the message. At most one entry
// per distinct viewer identity.
type SeenEntry struct {
	UserID   *string   `json:"userId,omitempty"`
	Username string    `json:"username"`
	SeenAt   time.Time `json:"seenAt"`
}

// Message is the durable chat log record. IDs are UUIDv7, so lexical id
// order tracks creation order; the pagination tie-break depends on that.
type Message struct {
	ID                string          `json:"id"`
	Text              string          `json:"text"`
	AuthorID          *string         `json:"authorId,omitempty"`
	AuthorDisplayName string          `json:"authorDisplayName"`
	ConversationID    string          `json:"conversationId,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	IsEdited          bool            `json:"isEdited"`
	EditedAt          *time.Time      `json:"editedAt,omitempty"`
	Reactions         []Reaction      `json:"reactions,omitempty"`
	SeenBy            []SeenEntry     `json:"seenBy,omitempty"`
	ReplyTo           *ReplySnapshot  `json:"replyTo,omitempty"`
	Attachments       []Attachment    `json:"attachments,omitempty"`
	IsPinned          bool            `json:"isPinned"`
	PinnedAt          *time.Time      `json:"pinnedAt,omitempty"`
	PinnedBy          string          `json:"pinnedBy,omitempty"`
}

// DocID implements the change-feed document contract.
func (m *Message) DocID() string { return m.ID }

// Clone returns a deep copy. Mutations always operate on a copy so the
// before/after documents on a change event stay independent.
func (m *Message) Clone() *Message {
	out := *m
	if m.AuthorID != nil {
		v := *m.AuthorID
		out.AuthorID = &v
	}
	if m.EditedAt != nil {
		v := *m.EditedAt
		out.EditedAt = &v
	}
	if m.PinnedAt != nil {
		v := *m.PinnedAt
		out.PinnedAt = &v
	}
	if m.ReplyTo != nil {
		v := *m.ReplyTo
		out.ReplyTo = &v
	}
	if m.Reactions != nil {
		out.Reactions = make([]Reaction, len(m.Reactions))
		copy(out.Reactions, m.Reactions)
	}
	if m.SeenBy != nil {
		out.SeenBy = make([]SeenEntry, len(m.SeenBy))
		copy(out.SeenBy, m.SeenBy)
	}
	if m.Attachments != nil {
		out.Attachments = make([]Attachment, len(m.Attachments))
		copy(out.Attachments, m.Attachments)
	}
	return &out
}

// SeenByViewer reports whether a seenBy entry already exists for the viewer,
// matched by user id primarily and display name secondarily (legacy data).
func (m *Message) SeenByViewer(userID, username string) bool {
	for _, e := range m.SeenBy {
		if userID != "" && e.UserID != nil && *e.UserID == userID {
			return true
		}
		if username != "" && e.Username == username {
			return true
		}
	}
	return false
}
