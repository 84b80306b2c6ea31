package model

import "encoding/json"

type PartType string

const (
	PartTypeText      PartType = "text"
	PartTypeTool      PartType = "tool"
	PartTypeReasoning PartType = "reasoning"
	PartTypeFile      PartType = "file"
)

type ToolState string

const (
	ToolStateCompleted ToolState = "completed"
	ToolStateError     ToolState = "error"
)

// MessagePart is one block of an assistant message. Type selects which
// fields are meaningful; consumers switch on it exhaustively.
type MessagePart struct {
	Type PartType `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// tool
	ToolName   string          `json:"tool_name,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
	Input      json.RawMessage `json:"input,omitempty"`
	Output     string          `json:"output,omitempty"`
	State      ToolState       `json:"state,omitempty"`
	ErrorText  string          `json:"error_text,omitempty"`

	// reasoning
	Reasoning string `json:"reasoning,omitempty"`

	// file
	FileURL   string `json:"file_url,omitempty"`
	MediaType string `json:"media_type,omitempty"`
}

func TextPart(text string) MessagePart {
	return MessagePart{Type: PartTypeText, Text: text}
}

func ReasoningPart(reasoning string) MessagePart {
	return MessagePart{Type: PartTypeReasoning, Reasoning: reasoning}
}

func EncodeParts(parts []MessagePart) (json.RawMessage, error) {
	if len(parts) == 0 {
		return nil, nil
	}
	return json.Marshal(parts)
}
