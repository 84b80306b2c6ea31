package dao

import (
	"converse-backend/model"
	"errors"

	"gorm.io/gorm"
)

func GetAssistantByID(assistantID string) (*model.Assistant, error) {
	var assistant model.Assistant
	if err := DB.Where("assistant_id = ?", assistantID).
		First(&assistant).Error; err != nil {
		return nil, err
	}
	return &assistant, nil
}

// GetTaskModel returns the designated task model, or nil when none is
// configured.
func GetTaskModel() (*model.TaskModel, error) {
	var taskModel model.TaskModel
	err := DB.Order("updated_at DESC").First(&taskModel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &taskModel, nil
}
