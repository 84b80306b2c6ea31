package model

import (
	"encoding/json"
	"time"
)

type SummaryMode string

const (
	SummaryModeCompress SummaryMode = "compress"
	SummaryModeSlice    SummaryMode = "slice"
)

type WebSearchMode string

const (
	WebSearchModeOff WebSearchMode = "off"

	// Provider-side search enabled through a provider flag.
	WebSearchModeBuiltin WebSearchMode = "builtin"

	// Search exposed as a regular tool; tool use is forced when the
	// caller requests search.
	WebSearchModeAgent WebSearchMode = "agent"
)

const (
	DefaultMessageCount     = 10
	DefaultMaxContextTokens = 30000
	DefaultStepCount        = 5
)

// Assistant is owned by administration; the completion core only reads it.
type Assistant struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	AssistantID string    `gorm:"not null;uniqueIndex" json:"assistant_id"`
	Name        string    `json:"name"`

	// Provider mode; every supported provider speaks the
	// OpenAI-compatible chat API.
	Provider string `json:"provider"`
	BaseURL  string `json:"base_url"`

	// AES-GCM encrypted, hex encoded. Decrypted before the model-client
	// boundary, never logged.
	APIKey string `json:"-"`

	Models       json.RawMessage `json:"models"`
	SystemPrompt string          `gorm:"type:text" json:"system_prompt"`
	Options      json.RawMessage `gorm:"type:json" json:"options"`
}

func (Assistant) TableName() string {
	return "assistant"
}

type SamplingOption struct {
	Enabled bool    `json:"enabled"`
	Value   float64 `json:"value"`
}

type AssistantOptions struct {
	SummaryMode      SummaryMode    `json:"summary_mode"`
	MaxContextTokens int            `json:"max_context_tokens"`
	MessageCount     int            `json:"message_count"`
	StepCount        int            `json:"step_count"`
	Temperature      SamplingOption `json:"temperature"`
	TopP             SamplingOption `json:"top_p"`
	FrequencyPenalty SamplingOption `json:"frequency_penalty"`
	PresencePenalty  SamplingOption `json:"presence_penalty"`
	WebSearchMode    WebSearchMode  `json:"web_search_mode"`

	// Enabled tool names, resolved against the tool registry.
	Tools []string `json:"tools"`
}

// DecodeOptions applies defaults for absent or out-of-range fields.
func (a *Assistant) DecodeOptions() (AssistantOptions, error) {
	opts := AssistantOptions{
		SummaryMode:      SummaryModeCompress,
		MaxContextTokens: DefaultMaxContextTokens,
		MessageCount:     DefaultMessageCount,
		StepCount:        DefaultStepCount,
		WebSearchMode:    WebSearchModeOff,
	}

	if len(a.Options) > 0 {
		if err := json.Unmarshal(a.Options, &opts); err != nil {
			return opts, err
		}
	}

	if opts.SummaryMode != SummaryModeSlice {
		opts.SummaryMode = SummaryModeCompress
	}
	if opts.MaxContextTokens <= 0 {
		opts.MaxContextTokens = DefaultMaxContextTokens
	}
	if opts.MessageCount <= 0 {
		opts.MessageCount = DefaultMessageCount
	}
	if opts.StepCount <= 0 {
		opts.StepCount = DefaultStepCount
	}
	if opts.WebSearchMode == "" {
		opts.WebSearchMode = WebSearchModeOff
	}

	return opts, nil
}

func (a *Assistant) DecodeModels() ([]string, error) {
	if len(a.Models) == 0 {
		return nil, nil
	}
	var models []string
	if err := json.Unmarshal(a.Models, &models); err != nil {
		return nil, err
	}
	return models, nil
}

// TaskModel designates the cheap assistant+model pair used for auxiliary
// work (summaries, titles). Single row, cached with a 24h TTL.
type TaskModel struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	UpdatedAt   time.Time `json:"updated_at"`
	AssistantID string    `gorm:"not null" json:"assistant_id"`
	Model       string    `gorm:"not null" json:"model"`
}

func (TaskModel) TableName() string {
	return "task_model"
}
