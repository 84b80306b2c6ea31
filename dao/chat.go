package dao

import (
	"converse-backend/model"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

func CreateChat(chat *model.Chat) error {
	return DB.Create(chat).Error
}

func GetChatByID(email, chatID string) (*model.Chat, error) {
	var chat model.Chat
	if err := DB.Where("user_email = ? AND chat_id = ?", email, chatID).
		First(&chat).Error; err != nil {
		return nil, err
	}
	return &chat, nil
}

func GetChatsByEmail(email string) ([]model.Chat, error) {
	var chats []model.Chat
	if err := DB.Where("user_email = ?", email).
		Order("last_chat_time DESC").
		Find(&chats).Error; err != nil {
		return nil, err
	}
	return chats, nil
}

// DeleteChat removes the chat's messages first, then soft-deletes the chat
// row, so a chat is never gone while messages still reference it.
func DeleteChat(email, chatID string) error {
	return DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chat_id = ?", chatID).
			Delete(&model.Message{}).Error; err != nil {
			return err
		}
		return tx.Where("user_email = ? AND chat_id = ?", email, chatID).
			Delete(&model.Chat{}).Error
	})
}

func UpdateChatTitle(email, chatID, title string) error {
	return DB.Model(&model.Chat{}).
		Where("user_email = ? AND chat_id = ?", email, chatID).
		Update("title", title).Error
}

// TouchChat binds the chat to the assistant/model of the current completion
// attempt and bumps last_chat_time. Runs before the outcome is known.
func TouchChat(chatID, assistantID, modelID string, t time.Time) error {
	return DB.Model(&model.Chat{}).
		Where("chat_id = ?", chatID).
		Updates(map[string]any{
			"assistant_id":   assistantID,
			"model":          modelID,
			"last_chat_time": t,
		}).Error
}

// CreateTurnPair inserts the user row and its assistant placeholder in one
// transaction. The assistant row is stamped strictly later than the user row
// so creation order is recoverable from created_at alone.
func CreateTurnPair(userMsg, assistantMsg *model.Message) error {
	now := time.Now()
	userMsg.CreatedAt = now
	assistantMsg.CreatedAt = now.Add(time.Millisecond)

	return DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(userMsg).Error; err != nil {
			return err
		}
		return tx.Create(assistantMsg).Error
	})
}

func GetMessagesByChat(email, chatID string) ([]model.Message, error) {
	var messages []model.Message
	if err := DB.Where("user_email = ? AND chat_id = ?", email, chatID).
		Order("created_at ASC").
		Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

// GetRecentMessages returns the newest rows first; callers restore
// chronological order.
func GetRecentMessages(email, chatID string, limit int) ([]model.Message, error) {
	var messages []model.Message
	if err := DB.Where("user_email = ? AND chat_id = ?", email, chatID).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func GetMessagesSince(email, chatID string, since time.Time) ([]model.Message, error) {
	var messages []model.Message
	if err := DB.Where("user_email = ? AND chat_id = ? AND created_at >= ?", email, chatID, since).
		Order("created_at ASC").
		Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

// GetLatestSummaryMessage returns the newest message carrying a rolling
// summary, or nil when the chat has never been compacted.
func GetLatestSummaryMessage(email, chatID string) (*model.Message, error) {
	var message model.Message
	err := DB.Where("user_email = ? AND chat_id = ? AND previous_summary <> ''", email, chatID).
		Order("created_at DESC").
		First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &message, nil
}

func GetMessageByID(messageID uint) (*model.Message, error) {
	var message model.Message
	if err := DB.Where("id = ?", messageID).
		First(&message).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

func SetPreviousSummary(messageID uint, summary string) error {
	return DB.Model(&model.Message{}).
		Where("id = ?", messageID).
		Update("previous_summary", summary).Error
}

func SetMessageTerminated(messageID uint) error {
	return DB.Model(&model.Message{}).
		Where("id = ?", messageID).
		Update("terminated", true).Error
}

func SetMessageError(messageID uint, errText string) error {
	return DB.Model(&model.Message{}).
		Where("id = ?", messageID).
		Update("error", errText).Error
}

// FinalizeAssistantMessage writes the aggregated outcome of one completion
// in a single update. Called exactly once per assistant row.
func FinalizeAssistantMessage(messageID uint, text string, parts json.RawMessage, steps int, usage model.TokenUsage, modelID string) error {
	return DB.Model(&model.Message{}).
		Where("id = ?", messageID).
		Updates(map[string]any{
			"content":             text,
			"parts":               parts,
			"steps":               steps,
			"input_tokens":        usage.InputTokens,
			"output_tokens":       usage.OutputTokens,
			"total_tokens":        usage.TotalTokens,
			"reasoning_tokens":    usage.ReasoningTokens,
			"cached_input_tokens": usage.CachedInputTokens,
			"model":               modelID,
		}).Error
}

// ResetAssistantMessage clears a prior outcome ahead of a regeneration.
func ResetAssistantMessage(messageID uint) error {
	return DB.Model(&model.Message{}).
		Where("id = ?", messageID).
		Updates(map[string]any{
			"content":             "",
			"parts":               nil,
			"steps":               0,
			"input_tokens":        0,
			"output_tokens":       0,
			"total_tokens":        0,
			"reasoning_tokens":    0,
			"cached_input_tokens": 0,
			"terminated":          false,
			"error":               "",
		}).Error
}
