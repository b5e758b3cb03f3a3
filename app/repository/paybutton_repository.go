package repository

import (
	"gorm.io/gorm"

	"github.com/PayButton/paybutton-server/app/models"
)

// paybuttonRepository implements the PaybuttonRepository interface
type paybuttonRepository struct {
	db *gorm.DB
}

// NewPaybuttonRepository creates a new paybutton repository instance
func NewPaybuttonRepository(db *gorm.DB) PaybuttonRepository {
	return &paybuttonRepository{db: db}
}

// Create creates a new payment button in the database
func (r *paybuttonRepository) Create(button *models.Paybutton) error {
	return r.db.Create(button).Error
}

// GetByID retrieves a payment button by its ID
func (r *paybuttonRepository) GetByID(id uint) (*models.Paybutton, error) {
	var button models.Paybutton
	err := r.db.First(&button, id).Error
	if err != nil {
		return nil, err
	}
	return &button, nil
}

// GetByUserID retrieves all buttons owned by a user
func (r *paybuttonRepository) GetByUserID(userID uint) ([]models.Paybutton, error) {
	var buttons []models.Paybutton
	err := r.db.Where("user_id = ?", userID).Order("id ASC").Find(&buttons).Error
	return buttons, err
}

// GetWithTriggers retrieves a button with its triggers and addresses preloaded
func (r *paybuttonRepository) GetWithTriggers(id uint) (*models.Paybutton, error) {
	var button models.Paybutton
	err := r.db.Preload("Triggers").Preload("Addresses").First(&button, id).Error
	if err != nil {
		return nil, err
	}
	return &button, nil
}

// Update updates an existing payment button
func (r *paybuttonRepository) Update(button *models.Paybutton) error {
	return r.db.Save(button).Error
}

// Delete soft deletes a payment button by its ID
func (r *paybuttonRepository) Delete(id uint) error {
	return r.db.Delete(&models.Paybutton{}, id).Error
}

// Count returns the total number of payment buttons
func (r *paybuttonRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Paybutton{}).Count(&count).Error
	return count, err
}
