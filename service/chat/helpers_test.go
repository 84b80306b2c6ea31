package chat

import (
	"context"
	"converse-backend/dao"
	"converse-backend/model"
	"converse-backend/service/summarization"
	"converse-backend/service/taskmodel"
	"fmt"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open("file:"+uuid.New().String()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := dao.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	dao.DB = db
}

func seedChat(t *testing.T) *model.Chat {
	t.Helper()
	record := &model.Chat{
		ChatID:    uuid.New().String(),
		UserEmail: "a@example.com",
		Title:     model.DefaultChatTitle,
	}
	if err := dao.CreateChat(record); err != nil {
		t.Fatalf("create chat: %v", err)
	}
	return record
}

// seedPair inserts one user/assistant pair. A non-empty answer finalizes
// the assistant row with the given cumulative token counter.
func seedPair(t *testing.T, record *model.Chat, query, answer string, totalTokens int) (*model.Message, *model.Message) {
	t.Helper()
	userMsg := &model.Message{ChatID: record.ChatID, UserEmail: record.UserEmail, Role: model.RoleUser, Content: query}
	assistantMsg := &model.Message{ChatID: record.ChatID, UserEmail: record.UserEmail, Role: model.RoleAssistant}
	if err := dao.CreateTurnPair(userMsg, assistantMsg); err != nil {
		t.Fatalf("create turn pair: %v", err)
	}
	if answer != "" {
		parts, err := model.EncodeParts([]model.MessagePart{model.TextPart(answer)})
		if err != nil {
			t.Fatalf("encode parts: %v", err)
		}
		usage := model.TokenUsage{TotalTokens: totalTokens}
		if err := dao.FinalizeAssistantMessage(assistantMsg.ID, answer, parts, 1, usage, "m1"); err != nil {
			t.Fatalf("finalize assistant: %v", err)
		}
		assistantMsg.Content = answer
		assistantMsg.TotalTokens = totalTokens
	}
	// keep created_at strictly increasing across pairs
	time.Sleep(2 * time.Millisecond)
	return userMsg, assistantMsg
}

type stubSummarizer struct {
	summary string
	usage   model.TokenUsage
	err     error

	calls       int
	gotMessages []model.Message
	gotPrevious string
}

func (s *stubSummarizer) SummarizeWithTaskModel(ctx context.Context, rollback taskmodel.Ref, messages []model.Message, previousSummary string) (*summarization.Result, error) {
	s.calls++
	s.gotMessages = messages
	s.gotPrevious = previousSummary
	if s.err != nil {
		return nil, s.err
	}
	return &summarization.Result{
		Summary:     s.summary,
		Usage:       s.usage,
		AssistantID: rollback.AssistantID,
		Model:       rollback.Model,
	}, nil
}

// fakeLLM scripts one response per call.
type fakeLLM struct {
	responses []*llms.ContentResponse
	err       error

	calls [][]llms.MessageContent
}

func (f *fakeLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	copied := append([]llms.MessageContent(nil), messages...)
	f.calls = append(f.calls, copied)

	if f.err != nil {
		return nil, f.err
	}
	if len(f.calls) > len(f.responses) {
		return nil, fmt.Errorf("unscripted call %d", len(f.calls))
	}
	return f.responses[len(f.calls)-1], nil
}

func (f *fakeLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := f.GenerateContent(ctx, []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)}, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func textResponse(text, stopReason string, totalTokens int) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			Content:    text,
			StopReason: stopReason,
			GenerationInfo: map[string]any{
				"TotalTokens": totalTokens,
			},
		}},
	}
}

func toolResponse(callID, name, arguments string, totalTokens int) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			StopReason: "tool_calls",
			GenerationInfo: map[string]any{
				"TotalTokens": totalTokens,
			},
			ToolCalls: []llms.ToolCall{{
				ID:   callID,
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      name,
					Arguments: arguments,
				},
			}},
		}},
	}
}
