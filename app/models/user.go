package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Default daily credit allowances. An external daily-reset job refills the
// counters; this application only ever decrements them.
const (
	DefaultPostCredits  = 15
	DefaultEmailCredits = 15
)

// User owns paybuttons and pays for trigger deliveries with daily credits.
// PostCredits and EmailCredits are non-negative; decrements are clamped at
// commit time so the balance can never go below zero.
type User struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	Name              string         `gorm:"type:varchar(150)" json:"name" validate:"required,min=3,max=150"`
	Email             string         `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,min=5,max=200"`
	PreferredCurrency string         `gorm:"type:varchar(10);default:'USD'" json:"preferred_currency"`
	PostCredits       int            `gorm:"not null;default:15" json:"post_credits" validate:"min=0"`
	EmailCredits      int            `gorm:"not null;default:15" json:"email_credits" validate:"min=0"`
	CreatedAt         time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// HasPostCredits reports whether the user can still afford a webhook delivery.
func (u *User) HasPostCredits() bool {
	return u.PostCredits > 0
}

// HasEmailCredits reports whether the user can still afford an email delivery.
func (u *User) HasEmailCredits() bool {
	return u.EmailCredits > 0
}
