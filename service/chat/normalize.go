package chat

import (
	"converse-backend/model"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

const (
	summaryHeading       = "Summary of the previous conversation:"
	referenceDocsHeading = "Reference documents:"
	searchResultsHeading = "Web search results:"

	// Prepended to the final user turn when an image is attached.
	imageInstruction = "The user attached an image. Answer the question with reference to the attached image."
)

// NormalizeTurns converts stored rows into the ordered turn sequence sent
// to the model. Pure function of its inputs: the same rows always yield the
// same turns. The final user turn is appended last; when imageURLs is
// non-empty only the first image is attached.
func NormalizeTurns(history []model.Message, userTurn *model.Message, imageURLs []string) []llms.MessageContent {
	var turns []llms.MessageContent

	if len(history) >= 2 {
		for i := range history {
			msg := &history[i]
			switch msg.Role {
			case model.RoleUser:
				turns = append(turns, llms.TextParts(llms.ChatMessageTypeHuman, userText(msg)))
			case model.RoleAssistant:
				turns = append(turns, assistantTurns(msg)...)
			case model.RoleSystem:
				turns = append(turns, llms.TextParts(llms.ChatMessageTypeSystem, msg.Content))
			}
		}
	}

	final := llms.MessageContent{Role: llms.ChatMessageTypeHuman}
	text := userText(userTurn)
	if len(imageURLs) > 0 {
		text = imageInstruction + "\n\n" + text
	}
	final.Parts = append(final.Parts, llms.TextPart(text))
	if len(imageURLs) > 0 {
		final.Parts = append(final.Parts, llms.ImageURLPart(imageURLs[0]))
	}

	return append(turns, final)
}

// userText assembles one text block for a user row: rolling summary first,
// then injected context (reference docs before search results), then the
// raw prompt.
func userText(msg *model.Message) string {
	var sections []string

	if msg.PreviousSummary != "" {
		sections = append(sections, summaryHeading+"\n"+msg.PreviousSummary)
	}

	mc, err := msg.DecodeContext()
	if err != nil {
		slog.Error("Failed to decode message context",
			"message_id", msg.ID,
			"err", err,
		)
	}
	if mc != nil {
		if len(mc.ReferenceDocs) > 0 {
			var sb strings.Builder
			sb.WriteString(referenceDocsHeading)
			for _, doc := range mc.ReferenceDocs {
				sb.WriteString("\n[")
				sb.WriteString(doc.Title)
				sb.WriteString("]\n")
				sb.WriteString(doc.Content)
			}
			sections = append(sections, sb.String())
		}
		if len(mc.SearchResults) > 0 {
			var sb strings.Builder
			sb.WriteString(searchResultsHeading)
			for _, res := range mc.SearchResults {
				sb.WriteString("\n[")
				sb.WriteString(res.Title)
				sb.WriteString("](")
				sb.WriteString(res.URL)
				sb.WriteString(")\n")
				sb.WriteString(res.Snippet)
			}
			sections = append(sections, sb.String())
		}
	}

	sections = append(sections, msg.Content)
	return strings.Join(sections, "\n\n")
}

// assistantTurns re-emits a stored assistant row faithfully. Text and
// reasoning blocks stay in the assistant turn; each tool part becomes a
// tool call on the assistant turn followed by its tool-response turn, so
// the provider sees the same call/result interleaving that was recorded.
func assistantTurns(msg *model.Message) []llms.MessageContent {
	parts, err := msg.DecodeParts()
	if err != nil {
		slog.Error("Failed to decode message parts",
			"message_id", msg.ID,
			"err", err,
		)
		parts = nil
	}
	if len(parts) == 0 {
		if strings.TrimSpace(msg.Content) == "" {
			return nil
		}
		return []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeAI, msg.Content)}
	}

	var turns []llms.MessageContent
	current := llms.MessageContent{Role: llms.ChatMessageTypeAI}

	flush := func() {
		if len(current.Parts) > 0 {
			turns = append(turns, current)
		}
		current = llms.MessageContent{Role: llms.ChatMessageTypeAI}
	}

	for _, part := range parts {
		switch part.Type {
		case model.PartTypeText:
			current.Parts = append(current.Parts, llms.TextPart(part.Text))
		case model.PartTypeReasoning:
			// the openai-compatible wire has no reasoning input
			// channel; carried as an opaque text block
			current.Parts = append(current.Parts, llms.TextPart(part.Reasoning))
		case model.PartTypeTool:
			content := part.Output
			if part.State == model.ToolStateError {
				content = part.ErrorText
			}
			current.Parts = append(current.Parts, llms.ToolCall{
				ID:   part.ToolCallID,
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      part.ToolName,
					Arguments: string(part.Input),
				},
			})
			flush()
			turns = append(turns, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: part.ToolCallID,
					Name:       part.ToolName,
					Content:    content,
				}},
			})
		case model.PartTypeFile:
			// files are attached on user turns only; a stored
			// assistant file part carries nothing to replay
		}
	}
	flush()

	return turns
}
