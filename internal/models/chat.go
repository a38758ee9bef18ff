package models

// Citation points a chat answer back to a guide source.
type Citation struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	URL    string `json:"url,omitempty"`
}

// ChatMessage is one turn in a guide Q&A conversation.
type ChatMessage struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	Citations []Citation `json:"citations,omitempty"`
}

// ChatRequest is an incoming chat message, optionally continuing an
// existing conversation.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// ChatResponse is the assistant's reply with its conversation handle.
type ChatResponse struct {
	Message        ChatMessage `json:"message"`
	ConversationID string      `json:"conversation_id"`
}
