package httpdto

type SetTypingRequest struct {
	Username       string `json:"username"`
	ConversationID string `json:"conversation_id"`
}
