package model

import (
	"encoding/json"
	"time"
)

type UsageTask string

const (
	UsageTaskChat     UsageTask = "chat"
	UsageTaskTitle    UsageTask = "title"
	UsageTaskCompress UsageTask = "compress"
)

// TokenUsage is an additive token count record.
type TokenUsage struct {
	InputTokens       int `json:"input_tokens"`
	OutputTokens      int `json:"output_tokens"`
	TotalTokens       int `json:"total_tokens"`
	ReasoningTokens   int `json:"reasoning_tokens"`
	CachedInputTokens int `json:"cached_input_tokens"`
}

func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
	u.ReasoningTokens += other.ReasoningTokens
	u.CachedInputTokens += other.CachedInputTokens
}

func (u TokenUsage) IsZero() bool {
	return u == TokenUsage{}
}

// UsageRecord is one append-only ledger row, written per completed task.
type UsageRecord struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	AssistantID string    `gorm:"not null;index" json:"assistant_id"`
	Model       string    `gorm:"not null" json:"model"`
	Task        UsageTask `gorm:"not null" json:"task"`
	ChatID      string    `gorm:"index" json:"chat_id"`
	MessageID   uint      `json:"message_id"`

	TokenUsage `gorm:"embedded"`

	// Raw request body kept for diagnostics.
	RequestBody json.RawMessage `json:"request_body"`
}

func (UsageRecord) TableName() string {
	return "usage_record"
}
