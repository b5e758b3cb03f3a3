package repository

import (
	"github.com/PayButton/paybutton-server/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
}

// PaybuttonRepository defines the interface for payment button operations
type PaybuttonRepository interface {
	Create(button *models.Paybutton) error
	GetByID(id uint) (*models.Paybutton, error)
	GetByUserID(userID uint) ([]models.Paybutton, error)
	GetWithTriggers(id uint) (*models.Paybutton, error)
	Update(button *models.Paybutton) error
	Delete(id uint) error
	Count() (int64, error)
}

// TriggerLogRepository defines the interface for trigger log queries
type TriggerLogRepository interface {
	GetByID(id uint) (*models.TriggerLog, error)
	ListForPaybutton(paybuttonID uint, offset, limit int, desc bool) ([]models.TriggerLog, int64, error)
	ListForTrigger(triggerID uint, offset, limit int) ([]models.TriggerLog, int64, error)
	CountErrors(paybuttonID uint) (int64, error)
}
