package response

import (
	"converse-backend/model"
	"encoding/json"
	"time"
)

type ChatResponse struct {
	ChatID       string    `json:"chat_id"`
	Title        string    `json:"title"`
	AssistantID  string    `json:"assistant_id"`
	Model        string    `json:"model"`
	LastChatTime time.Time `json:"last_chat_time"`
}

type GetChatsResponse struct {
	Chats []ChatResponse `json:"chats"`
}

type MessageResponse struct {
	ID              uint            `json:"id"`
	CreatedAt       time.Time       `json:"created_at"`
	Role            string          `json:"role"`
	Content         string          `json:"content"`
	Parts           json.RawMessage `json:"parts,omitempty"`
	Context         json.RawMessage `json:"context,omitempty"`
	Model           string          `json:"model,omitempty"`
	Terminated      bool            `json:"terminated,omitempty"`
	Error           string          `json:"error,omitempty"`
	PreviousSummary string          `json:"previous_summary,omitempty"`
}

type GetChatMessagesResponse struct {
	Messages []MessageResponse `json:"messages"`
}

type UsageResponse struct {
	CreatedAt time.Time       `json:"created_at"`
	Model     string          `json:"model"`
	Task      model.UsageTask `json:"task"`
	MessageID uint            `json:"message_id,omitempty"`

	InputTokens       int `json:"input_tokens"`
	OutputTokens      int `json:"output_tokens"`
	TotalTokens       int `json:"total_tokens"`
	ReasoningTokens   int `json:"reasoning_tokens"`
	CachedInputTokens int `json:"cached_input_tokens"`
}

type GetChatUsageResponse struct {
	Usage []UsageResponse `json:"usage"`
}
