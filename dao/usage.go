package dao

import "converse-backend/model"

func CreateUsageRecord(record *model.UsageRecord) error {
	return DB.Create(record).Error
}

func GetUsageByChat(email, chatID string) ([]model.UsageRecord, error) {
	var records []model.UsageRecord
	if err := DB.Joins("JOIN chat ON chat.chat_id = usage_record.chat_id").
		Where("chat.user_email = ? AND usage_record.chat_id = ?", email, chatID).
		Order("usage_record.created_at ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
