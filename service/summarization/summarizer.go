// Package summarization folds older conversation turns into a rolling
// summary using the designated task model. Summarization is best-effort:
// callers log failures and proceed with the uncompressed history.
package summarization

import (
	"bytes"
	"context"
	"converse-backend/model"
	"converse-backend/service/modelclient"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/tmc/langchaingo/llms"
)

//go:embed prompts/summarization.txt
var summaryPrompt string

var summaryTmpl = template.Must(template.New("summary").Parse(summaryPrompt))

// Summarize runs one non-streaming call that folds messages (and the
// previous summary, when present) into a fresh summary. Only finalized text
// is summarized; tool and reasoning parts are excluded.
func Summarize(ctx context.Context, client *modelclient.Client, messages []model.Message, previousSummary string) (string, model.TokenUsage, error) {
	transcript := buildTranscript(messages)
	if transcript == "" && previousSummary == "" {
		return "", model.TokenUsage{}, fmt.Errorf("nothing to summarize")
	}

	var buf bytes.Buffer
	data := struct {
		PreviousSummary string
		Transcript      string
	}{
		PreviousSummary: previousSummary,
		Transcript:      transcript,
	}
	if err := summaryTmpl.Execute(&buf, data); err != nil {
		return "", model.TokenUsage{}, fmt.Errorf("failed to execute prompt template: %v", err)
	}

	turns := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, buf.String()),
	}

	summary, usage, err := client.Generate(ctx, turns)
	if err != nil {
		return "", model.TokenUsage{}, fmt.Errorf("llm call error: %w", err)
	}

	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "", usage, fmt.Errorf("provider returned an empty summary")
	}

	return summary, usage, nil
}

func buildTranscript(messages []model.Message) string {
	var sb strings.Builder
	for _, msg := range messages {
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}
		sb.WriteString(msg.Role)
		sb.WriteString(": ")
		sb.WriteString(content)
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}
