package modelclient

import (
	"context"
	"converse-backend/config"
	"converse-backend/model"
	"converse-backend/utils"
	"fmt"
	"net/http"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Streaming completions can stay open for minutes.
var streamHTTPClient *http.Client = utils.NewHTTPClient(
	utils.WithTimeout(300 * time.Second),
)

// Client binds one assistant's provider credentials to one model id. All
// supported providers speak the OpenAI-compatible chat API; credential
// decryption happens here, before any provider call.
type Client struct {
	llm     llms.Model
	modelID string
}

func New(assistant *model.Assistant, modelID string) (*Client, error) {
	baseURL := assistant.BaseURL
	if baseURL == "" {
		baseURL = config.Cfg.Model.BaseURL
	}

	apiKey := config.Cfg.Model.APIKey
	if assistant.APIKey != "" {
		decrypted, err := utils.DecryptSecret(assistant.APIKey, config.Cfg.Secret.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt assistant credentials: %v", err)
		}
		apiKey = decrypted
	}

	llm, err := openai.New(
		openai.WithModel(modelID),
		openai.WithToken(apiKey),
		openai.WithBaseURL(baseURL),
		openai.WithHTTPClient(streamHTTPClient),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm client: %v", err)
	}

	return &Client{llm: llm, modelID: modelID}, nil
}

// FromLLM wraps an existing model implementation. Used by tests and by
// callers that already hold a configured client.
func FromLLM(llm llms.Model, modelID string) *Client {
	return &Client{llm: llm, modelID: modelID}
}

func (c *Client) ModelID() string {
	return c.modelID
}

// Call runs one round against the provider. Streaming behavior is selected
// by the caller through llms.WithStreamingFunc.
func (c *Client) Call(ctx context.Context, turns []llms.MessageContent, opts ...llms.CallOption) (*llms.ContentResponse, error) {
	return c.llm.GenerateContent(ctx, turns, opts...)
}

// Generate is the single non-streaming call used by auxiliary tasks
// (summaries, titles).
func (c *Client) Generate(ctx context.Context, turns []llms.MessageContent, opts ...llms.CallOption) (string, model.TokenUsage, error) {
	resp, err := c.llm.GenerateContent(ctx, turns, opts...)
	if err != nil {
		return "", model.TokenUsage{}, err
	}
	if len(resp.Choices) == 0 {
		return "", model.TokenUsage{}, fmt.Errorf("provider returned no choices")
	}

	choice := resp.Choices[0]
	return choice.Content, UsageFromChoice(choice), nil
}

// UsageFromChoice reads token counts out of the provider's generation info.
// Providers disagree on which keys they set; absent or unrecognized values
// count as zero.
func UsageFromChoice(choice *llms.ContentChoice) model.TokenUsage {
	if choice == nil || choice.GenerationInfo == nil {
		return model.TokenUsage{}
	}

	info := choice.GenerationInfo
	return model.TokenUsage{
		InputTokens:       intAt(info, "PromptTokens"),
		OutputTokens:      intAt(info, "CompletionTokens"),
		TotalTokens:       intAt(info, "TotalTokens"),
		ReasoningTokens:   intAt(info, "ReasoningTokens"),
		CachedInputTokens: intAt(info, "CachedPromptTokens"),
	}
}

func intAt(info map[string]any, key string) int {
	switch v := info[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
