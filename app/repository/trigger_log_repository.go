package repository

import (
	"gorm.io/gorm"

	"github.com/PayButton/paybutton-server/app/models"
)

// triggerLogRepository implements the TriggerLogRepository interface
type triggerLogRepository struct {
	db *gorm.DB
}

// NewTriggerLogRepository creates a new trigger log repository instance
func NewTriggerLogRepository(db *gorm.DB) TriggerLogRepository {
	return &triggerLogRepository{db: db}
}

// GetByID retrieves a trigger log by its ID
func (r *triggerLogRepository) GetByID(id uint) (*models.TriggerLog, error) {
	var logEntry models.TriggerLog
	err := r.db.First(&logEntry, id).Error
	if err != nil {
		return nil, err
	}
	return &logEntry, nil
}

// ListForPaybutton returns a page of logs across all triggers of a button,
// along with the total count for pagination. desc orders newest first.
func (r *triggerLogRepository) ListForPaybutton(paybuttonID uint, offset, limit int, desc bool) ([]models.TriggerLog, int64, error) {
	base := func() *gorm.DB {
		return r.db.Model(&models.TriggerLog{}).
			Joins("JOIN triggers ON triggers.id = trigger_logs.trigger_id").
			Where("triggers.paybutton_id = ?", paybuttonID)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "trigger_logs.created_at ASC, trigger_logs.id ASC"
	if desc {
		order = "trigger_logs.created_at DESC, trigger_logs.id DESC"
	}

	var logs []models.TriggerLog
	err := base().Order(order).Offset(offset).Limit(limit).Find(&logs).Error
	return logs, total, err
}

// ListForTrigger returns a page of logs for a single trigger, newest first
func (r *triggerLogRepository) ListForTrigger(triggerID uint, offset, limit int) ([]models.TriggerLog, int64, error) {
	var total int64
	if err := r.db.Model(&models.TriggerLog{}).Where("trigger_id = ?", triggerID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []models.TriggerLog
	err := r.db.Where("trigger_id = ?", triggerID).
		Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).Find(&logs).Error
	return logs, total, err
}

// CountErrors counts error-flagged logs across all triggers of a button
func (r *triggerLogRepository) CountErrors(paybuttonID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.TriggerLog{}).
		Joins("JOIN triggers ON triggers.id = trigger_logs.trigger_id").
		Where("triggers.paybutton_id = ? AND trigger_logs.is_error = ?", paybuttonID, true).
		Count(&count).Error
	return count, err
}
