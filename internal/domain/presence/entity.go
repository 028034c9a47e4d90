package presence

import "time"

// TTL is how long a typing record stays live without a refresh. Readers
// sweep anything older before serving results; there is no background timer.
const TTL = 5 * time.Second

// TypingIndicator is an ephemeral "user X is typing" fact. One live record
// per username; a refresh replaces the old record outright.
type TypingIndicator struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	ConversationID string    `json:"conversationId,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (t *TypingIndicator) DocID() string { return t.ID }

// Expired reports whether the record is past the TTL relative to now.
func (t *TypingIndicator) Expired(now time.Time) bool {
	return t.UpdatedAt.Before(now.Add(-TTL))
}
