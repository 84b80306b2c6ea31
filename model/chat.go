package model

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

const DefaultChatTitle = "New chat"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

type Chat struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ChatID    string    `gorm:"not null;uniqueIndex" json:"chat_id"`
	UserEmail string    `gorm:"not null;index" json:"user_email"`

	// Assistant and model bound by the most recent completion attempt,
	// updated before the outcome is known.
	AssistantID  string    `json:"assistant_id"`
	Model        string    `json:"model"`
	Title        string    `json:"title"`
	LastChatTime time.Time `json:"last_chat_time"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Chat) TableName() string {
	return "chat"
}

// Message rows are read in (chat_id, created_at) order. Every user row is
// paired with an assistant placeholder row stamped strictly later, so the
// two most recent rows of a chat are always one user/assistant pair.
type Message struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index:idx_chat_created" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ChatID    string    `gorm:"not null;index:idx_chat_created" json:"chat_id"`
	UserEmail string    `gorm:"not null" json:"user_email"`
	Role      string    `gorm:"not null" json:"role"`

	// Finalized assistant text, or the raw user prompt.
	Content string `json:"content"`

	// Ordered part list, assistant rows only.
	Parts json.RawMessage `json:"parts"`

	// Attached reference docs / web-search payload, user rows only.
	Context json.RawMessage `json:"context"`

	// Rolling compressed history up to and including this row.
	// Empty means no summary is anchored here.
	PreviousSummary string `json:"previous_summary"`

	// Attached file references, user rows only.
	Files json.RawMessage `json:"files"`

	Model string `json:"model"`
	Steps int    `json:"steps"`

	InputTokens       int `json:"input_tokens"`
	OutputTokens      int `json:"output_tokens"`
	TotalTokens       int `json:"total_tokens"`
	ReasoningTokens   int `json:"reasoning_tokens"`
	CachedInputTokens int `json:"cached_input_tokens"`

	Terminated bool   `json:"terminated"`
	Error      string `json:"error"`
}

func (Message) TableName() string {
	return "chat_message"
}

func (m *Message) DecodeParts() ([]MessagePart, error) {
	if len(m.Parts) == 0 {
		return nil, nil
	}
	var parts []MessagePart
	if err := json.Unmarshal(m.Parts, &parts); err != nil {
		return nil, err
	}
	return parts, nil
}

func (m *Message) DecodeContext() (*MessageContext, error) {
	if len(m.Context) == 0 {
		return nil, nil
	}
	var mc MessageContext
	if err := json.Unmarshal(m.Context, &mc); err != nil {
		return nil, err
	}
	return &mc, nil
}

// MessageContext carries content injected into a user turn before the raw
// prompt: reference documents first, web-search results second.
type MessageContext struct {
	ReferenceDocs []ReferenceDoc `json:"reference_docs,omitempty"`
	SearchResults []SearchResult `json:"search_results,omitempty"`
}

type ReferenceDoc struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// FileRef points at an uploaded object; the attachment service resolves it
// to a presigned URL when the turn is normalized.
type FileRef struct {
	ObjectName string `json:"object_name"`
	MediaType  string `json:"media_type"`
}
