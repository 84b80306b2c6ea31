package chat

import (
	"context"
	"converse-backend/dao"
	"converse-backend/model"
	"converse-backend/service/ledger"
	"converse-backend/service/summarization"
	"converse-backend/service/taskmodel"
	"fmt"
	"log/slog"
)

// Window is the bounded slice of a chat fed to the model: prior turns in
// chronological order plus the current user/assistant pair.
type Window struct {
	History       []model.Message
	UserTurn      *model.Message
	AssistantTurn *model.Message
}

// HistorySummarizer folds overflowing history into a rolling summary using
// the designated task model.
type HistorySummarizer interface {
	SummarizeWithTaskModel(ctx context.Context, rollback taskmodel.Ref, messages []model.Message, previousSummary string) (*summarization.Result, error)
}

// BuildWindow selects the prior turns for one completion according to the
// assistant's summary mode. With the compress strategy it may fold older
// turns into a rolling summary first; summarization failure is logged and
// the over-budget history is used as-is.
func BuildWindow(ctx context.Context, chat *model.Chat, assistant *model.Assistant, modelID string, opts model.AssistantOptions, summarizer HistorySummarizer) (*Window, error) {
	if opts.SummaryMode == model.SummaryModeSlice {
		return buildSliceWindow(chat, opts)
	}
	return buildCompressWindow(ctx, chat, assistant, modelID, opts, summarizer)
}

func buildSliceWindow(chat *model.Chat, opts model.AssistantOptions) (*Window, error) {
	messages, err := dao.GetRecentMessages(chat.UserEmail, chat.ChatID, 2*opts.MessageCount)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat messages: %w", err)
	}

	// restore chronological order after the descending fetch
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return splitPair(messages)
}

func buildCompressWindow(ctx context.Context, chat *model.Chat, assistant *model.Assistant, modelID string, opts model.AssistantOptions, summarizer HistorySummarizer) (*Window, error) {
	summaryMsg, err := dao.GetLatestSummaryMessage(chat.UserEmail, chat.ChatID)
	if err != nil {
		return nil, fmt.Errorf("failed to locate summary anchor: %w", err)
	}

	var messages []model.Message
	if summaryMsg != nil {
		messages, err = dao.GetMessagesSince(chat.UserEmail, chat.ChatID, summaryMsg.CreatedAt)
	} else {
		messages, err = dao.GetMessagesByChat(chat.UserEmail, chat.ChatID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load chat messages: %w", err)
	}

	window, err := splitPair(messages)
	if err != nil {
		return nil, err
	}

	if len(window.History) < 2 {
		return window, nil
	}

	if latestAssistantTotal(window.History) <= opts.MaxContextTokens {
		return window, nil
	}

	var previousSummary string
	if summaryMsg != nil {
		previousSummary = summaryMsg.PreviousSummary
	}

	// When at least two pairs overflow, fold everything but the newest
	// retained pair; otherwise fold it all and anchor the summary on the
	// current user turn.
	var compressMessages, retained []model.Message
	var anchor *model.Message
	if len(window.History) >= 4 {
		compressMessages = window.History[:len(window.History)-2]
		retained = window.History[len(window.History)-2:]
		anchor = latestUserMessage(retained)
	} else {
		compressMessages = window.History
		retained = nil
		anchor = window.UserTurn
	}
	if anchor == nil {
		return window, nil
	}

	rollback := taskmodel.Ref{AssistantID: assistant.AssistantID, Model: modelID}
	result, err := summarizer.SummarizeWithTaskModel(ctx, rollback, compressMessages, previousSummary)
	if err != nil {
		// best-effort: the completion proceeds over budget
		slog.Error("Failed to compress chat history",
			"chat_id", chat.ChatID,
			"err", err,
		)
		return window, nil
	}

	if err := dao.SetPreviousSummary(anchor.ID, result.Summary); err != nil {
		return nil, fmt.Errorf("failed to persist rolling summary: %w", err)
	}
	// keep the in-memory anchor consistent so the current turn sees the
	// fresh summary
	anchor.PreviousSummary = result.Summary

	if !result.Usage.IsZero() {
		ledger.Append(ctx, &model.UsageRecord{
			AssistantID: result.AssistantID,
			Model:       result.Model,
			Task:        model.UsageTaskCompress,
			ChatID:      chat.ChatID,
			MessageID:   anchor.ID,
			TokenUsage:  result.Usage,
		})
	}

	window.History = retained
	return window, nil
}

// splitPair peels the newest user/assistant pair off the tail; everything
// before it is history.
func splitPair(messages []model.Message) (*Window, error) {
	if len(messages) < 2 {
		return nil, fmt.Errorf("chat has no current message pair")
	}

	window := &Window{
		UserTurn:      &messages[len(messages)-2],
		AssistantTurn: &messages[len(messages)-1],
	}
	if len(messages) > 2 {
		window.History = messages[:len(messages)-2]
	}
	return window, nil
}

// latestAssistantTotal returns the cumulative token counter of the newest
// assistant row in history. Counters are absent on placeholders, so the
// newest finalized assistant row decides.
func latestAssistantTotal(history []model.Message) int {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == model.RoleAssistant {
			return history[i].TotalTokens
		}
	}
	return 0
}

func latestUserMessage(messages []model.Message) *model.Message {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == model.RoleUser {
			return &messages[i]
		}
	}
	return nil
}
