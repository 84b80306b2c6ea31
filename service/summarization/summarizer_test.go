package summarization

import (
	"context"
	"converse-backend/model"
	"converse-backend/service/modelclient"
	"converse-backend/service/taskmodel"
	"fmt"
	"strings"
	"testing"

	"github.com/tmc/langchaingo/llms"
)

type fakeLLM struct {
	reply string
	err   error

	gotPrompt string
}

func (f *fakeLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, part := range messages[0].Parts {
		if tp, ok := part.(llms.TextContent); ok {
			f.gotPrompt = tp.Text
		}
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			Content: f.reply,
			GenerationInfo: map[string]any{
				"PromptTokens":     100,
				"CompletionTokens": 40,
				"TotalTokens":      140,
			},
		}},
	}, nil
}

func (f *fakeLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := f.GenerateContent(ctx, []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)}, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func sampleMessages() []model.Message {
	return []model.Message{
		{Role: model.RoleUser, Content: "How do I read a file in Go?"},
		{Role: model.RoleAssistant, Content: "Use os.ReadFile."},
	}
}

func TestSummarize_BuildsTranscript(t *testing.T) {
	llm := &fakeLLM{reply: "  User asked about file reading.  "}
	client := modelclient.FromLLM(llm, "task-model")

	summary, usage, err := Summarize(context.Background(), client, sampleMessages(), "")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary != "User asked about file reading." {
		t.Fatalf("summary not trimmed: %q", summary)
	}
	if usage.TotalTokens != 140 {
		t.Fatalf("usage not extracted: %+v", usage)
	}

	if !strings.Contains(llm.gotPrompt, "user: How do I read a file in Go?") {
		t.Fatalf("transcript missing user line: %q", llm.gotPrompt)
	}
	if !strings.Contains(llm.gotPrompt, "assistant: Use os.ReadFile.") {
		t.Fatalf("transcript missing assistant line: %q", llm.gotPrompt)
	}
}

func TestSummarize_MergesPreviousSummary(t *testing.T) {
	llm := &fakeLLM{reply: "merged"}
	client := modelclient.FromLLM(llm, "task-model")

	if _, _, err := Summarize(context.Background(), client, sampleMessages(), "earlier context"); err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if !strings.Contains(llm.gotPrompt, "earlier context") {
		t.Fatalf("previous summary not in prompt: %q", llm.gotPrompt)
	}
}

func TestSummarize_EmptyInputs(t *testing.T) {
	client := modelclient.FromLLM(&fakeLLM{reply: "x"}, "task-model")

	if _, _, err := Summarize(context.Background(), client, nil, ""); err == nil {
		t.Fatalf("expected error for empty input")
	}
}

func TestSummarize_EmptyReplyRejected(t *testing.T) {
	client := modelclient.FromLLM(&fakeLLM{reply: "   "}, "task-model")

	if _, _, err := Summarize(context.Background(), client, sampleMessages(), ""); err == nil {
		t.Fatalf("expected error for blank summary")
	}
}

func TestSummarizeWithTaskModel(t *testing.T) {
	llm := &fakeLLM{reply: "rolled up"}
	svc := &Service{
		Resolver: stubResolver{resolved: &taskmodel.Resolved{
			Assistant: &model.Assistant{AssistantID: "task-asst"},
			Model:     "task-model",
		}},
		NewClient: func(assistant *model.Assistant, modelID string) (*modelclient.Client, error) {
			return modelclient.FromLLM(llm, modelID), nil
		},
	}

	result, err := svc.SummarizeWithTaskModel(context.Background(), taskmodel.Ref{}, sampleMessages(), "")
	if err != nil {
		t.Fatalf("summarize with task model: %v", err)
	}
	if result.Summary != "rolled up" || result.AssistantID != "task-asst" || result.Model != "task-model" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestSummarizeWithTaskModel_ResolverFailure(t *testing.T) {
	svc := &Service{
		Resolver: stubResolver{err: fmt.Errorf("no task model")},
	}

	if _, err := svc.SummarizeWithTaskModel(context.Background(), taskmodel.Ref{}, sampleMessages(), ""); err == nil {
		t.Fatalf("expected resolver failure to propagate")
	}
}

type stubResolver struct {
	resolved *taskmodel.Resolved
	err      error
}

func (s stubResolver) Resolve(ctx context.Context, rollback taskmodel.Ref) (*taskmodel.Resolved, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.resolved, nil
}

func (s stubResolver) Invalidate(ctx context.Context) error {
	return nil
}
