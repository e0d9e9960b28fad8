package gptbots

import "encoding/json"

type CreateConversationRequest struct {
	UserID string `json:"user_id"`
}

type CreateConversationResponse struct {
	ConversationID string `json:"conversation_id"`
}

type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type Message struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

type SendMessageRequest struct {
	ConversationID string    `json:"conversation_id"`
	ResponseMode   string    `json:"response_mode"`
	Messages       []Message `json:"messages"`
}

// MessageResponse is a blocking reply. Output and Usage stay raw: their shapes
// vary between agent types and are decoded by ExtractText and ParseUsage.
type MessageResponse struct {
	MessageID      string          `json:"message_id"`
	ConversationID string          `json:"conversation_id"`
	CreateTime     int64           `json:"create_time,omitempty"`
	Output         json.RawMessage `json:"output"`
	Usage          json.RawMessage `json:"usage,omitempty"`
}

type ErrorResponse struct {
	Code    any    `json:"code,omitempty"`
	Message string `json:"message"`
}
