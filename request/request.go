package request

import "converse-backend/model"

type UserRegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type UserLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ChatRequest struct {
	ChatID      string `json:"chat_id" binding:"required"`
	AssistantID string `json:"assistant_id" binding:"required"`
	Model       string `json:"model" binding:"required"`
	Query       string `json:"query" binding:"required"`

	// Attached image references; only the first is forwarded to the
	// model.
	Images []model.FileRef `json:"images"`

	WebSearch    bool `json:"web_search"`
	UseRetrieval bool `json:"use_retrieval"`
}

type RegenerateRequest struct {
	ChatID      string `json:"chat_id" binding:"required"`
	AssistantID string `json:"assistant_id" binding:"required"`
	Model       string `json:"model" binding:"required"`

	// Assistant message to regenerate.
	MessageID uint `json:"message_id" binding:"required"`
}

type UpdateChatTitleRequest struct {
	ChatID string `json:"chat_id" binding:"required"`
	Title  string `json:"title" binding:"required"`
}
