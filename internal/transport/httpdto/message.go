package httpdto

// ReplyRef is the caller-supplied quote; the server snapshots it into the
// message at send time.
type ReplyRef struct {
	MessageID  string `json:"message_id"`
	Text       string `json:"text"`
	AuthorName string `json:"author_name"`
}

type AttachmentRef struct {
	Kind string `json:"kind"`
	Ref  string `json:"ref"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

type InsertMessageRequest struct {
	Text           string          `json:"text"`
	ConversationID string          `json:"conversation_id"`
	LegacyUsername string          `json:"legacy_username"`
	ReplyTo        *ReplyRef       `json:"reply_to"`
	Attachments    []AttachmentRef `json:"attachments"`
}

type UpdateMessageRequest struct {
	Text           string `json:"text"`
	LegacyUsername string `json:"legacy_username"`
}

type RemoveMessageRequest struct {
	LegacyUsername string `json:"legacy_username"`
}

type ReactionRequest struct {
	Emoji       string `json:"emoji"`
	ReactorName string `json:"reactor_name"`
}

type SeenRequest struct {
	LegacyUsername string `json:"legacy_username"`
}

type PinRequest struct {
	PinnedBy string `json:"pinned_by"`
}
