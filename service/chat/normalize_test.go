package chat

import (
	"converse-backend/model"
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/tmc/langchaingo/llms"
)

func textOf(t *testing.T, turn llms.MessageContent) string {
	t.Helper()
	var sb strings.Builder
	for _, part := range turn.Parts {
		if tp, ok := part.(llms.TextContent); ok {
			sb.WriteString(tp.Text)
		}
	}
	return sb.String()
}

func TestNormalizeTurns_ShortHistoryOmitted(t *testing.T) {
	history := []model.Message{
		{Role: model.RoleUser, Content: "lonely row"},
	}
	userTurn := &model.Message{Role: model.RoleUser, Content: "question"}

	turns := NormalizeTurns(history, userTurn, nil)
	if len(turns) != 1 {
		t.Fatalf("incomplete history must be dropped, got %d turns", len(turns))
	}
	if turns[0].Role != llms.ChatMessageTypeHuman {
		t.Fatalf("unexpected final role: %s", turns[0].Role)
	}
}

func TestNormalizeTurns_UserTextOrdering(t *testing.T) {
	contextJSON, _ := json.Marshal(model.MessageContext{
		ReferenceDocs: []model.ReferenceDoc{{Title: "doc", Content: "doc body"}},
		SearchResults: []model.SearchResult{{Title: "hit", URL: "https://example.com", Snippet: "snippet"}},
	})
	userTurn := &model.Message{
		Role:            model.RoleUser,
		Content:         "the question",
		PreviousSummary: "what came before",
		Context:         contextJSON,
	}

	turns := NormalizeTurns(nil, userTurn, nil)
	text := textOf(t, turns[0])

	idxSummary := strings.Index(text, "what came before")
	idxDocs := strings.Index(text, "doc body")
	idxSearch := strings.Index(text, "snippet")
	idxQuery := strings.Index(text, "the question")
	if idxSummary < 0 || idxDocs < 0 || idxSearch < 0 || idxQuery < 0 {
		t.Fatalf("sections missing from user text: %q", text)
	}
	if !(idxSummary < idxDocs && idxDocs < idxSearch && idxSearch < idxQuery) {
		t.Fatalf("sections out of order: %q", text)
	}
}

func TestNormalizeTurns_Deterministic(t *testing.T) {
	history := []model.Message{
		{Role: model.RoleUser, Content: "q"},
		{Role: model.RoleAssistant, Content: "a"},
	}
	userTurn := &model.Message{Role: model.RoleUser, Content: "next"}

	first := NormalizeTurns(history, userTurn, nil)
	second := NormalizeTurns(history, userTurn, nil)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("normalization is not deterministic")
	}
}

func TestNormalizeTurns_AssistantToolPartsReplayed(t *testing.T) {
	parts, _ := model.EncodeParts([]model.MessagePart{
		model.TextPart("let me check"),
		{
			Type:       model.PartTypeTool,
			ToolName:   "web_search",
			ToolCallID: "call-1",
			Input:      json.RawMessage(`{"query":"go"}`),
			Output:     "found it",
			State:      model.ToolStateCompleted,
		},
		model.TextPart("here is the answer"),
	})
	history := []model.Message{
		{Role: model.RoleUser, Content: "q"},
		{Role: model.RoleAssistant, Content: "here is the answer", Parts: parts},
	}
	userTurn := &model.Message{Role: model.RoleUser, Content: "next"}

	turns := NormalizeTurns(history, userTurn, nil)

	// user, assistant-with-call, tool response, trailing assistant text,
	// final user turn
	if len(turns) != 5 {
		t.Fatalf("expected 5 turns, got %d", len(turns))
	}
	if turns[1].Role != llms.ChatMessageTypeAI {
		t.Fatalf("expected assistant turn, got %s", turns[1].Role)
	}

	var sawCall bool
	for _, part := range turns[1].Parts {
		if call, ok := part.(llms.ToolCall); ok {
			sawCall = true
			if call.ID != "call-1" || call.FunctionCall.Name != "web_search" {
				t.Fatalf("unexpected tool call: %+v", call)
			}
		}
	}
	if !sawCall {
		t.Fatalf("tool call missing from assistant turn")
	}

	if turns[2].Role != llms.ChatMessageTypeTool {
		t.Fatalf("expected tool response turn, got %s", turns[2].Role)
	}
	resp, ok := turns[2].Parts[0].(llms.ToolCallResponse)
	if !ok || resp.Content != "found it" || resp.ToolCallID != "call-1" {
		t.Fatalf("unexpected tool response: %+v", turns[2].Parts[0])
	}

	if textOf(t, turns[3]) != "here is the answer" {
		t.Fatalf("trailing assistant text lost")
	}
}

func TestNormalizeTurns_ToolErrorReplayedAsContent(t *testing.T) {
	parts, _ := model.EncodeParts([]model.MessagePart{
		{
			Type:       model.PartTypeTool,
			ToolName:   "web_search",
			ToolCallID: "call-1",
			State:      model.ToolStateError,
			ErrorText:  "upstream 503",
		},
	})
	history := []model.Message{
		{Role: model.RoleUser, Content: "q"},
		{Role: model.RoleAssistant, Parts: parts},
	}
	userTurn := &model.Message{Role: model.RoleUser, Content: "next"}

	turns := NormalizeTurns(history, userTurn, nil)
	var toolTurn *llms.MessageContent
	for i := range turns {
		if turns[i].Role == llms.ChatMessageTypeTool {
			toolTurn = &turns[i]
		}
	}
	if toolTurn == nil {
		t.Fatalf("tool response turn missing")
	}
	resp := toolTurn.Parts[0].(llms.ToolCallResponse)
	if resp.Content != "upstream 503" {
		t.Fatalf("error text not replayed: %q", resp.Content)
	}
}

func TestNormalizeTurns_SingleImageAttached(t *testing.T) {
	userTurn := &model.Message{Role: model.RoleUser, Content: "what is this"}

	turns := NormalizeTurns(nil, userTurn, []string{"https://img/1.png", "https://img/2.png"})
	final := turns[len(turns)-1]

	var images []string
	for _, part := range final.Parts {
		if img, ok := part.(llms.ImageURLContent); ok {
			images = append(images, img.URL)
		}
	}
	if len(images) != 1 || images[0] != "https://img/1.png" {
		t.Fatalf("expected only the first image, got %v", images)
	}
	if !strings.Contains(textOf(t, final), imageInstruction) {
		t.Fatalf("image instruction missing")
	}
}
