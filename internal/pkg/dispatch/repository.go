package dispatch

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/PayButton/paybutton-server/app/models"
)

// Repository is the persistence surface the dispatcher needs: one bulk
// trigger resolution per batch, and one atomic commit of the accumulated
// logs and credit debits.
type Repository interface {
	// ResolveTriggers returns, for each given address, every trigger
	// reachable through button ownership, annotated with the owner's credit
	// snapshot. Must be a single bulk lookup, never one query per address.
	ResolveTriggers(addresses []string) (map[string][]ResolvedTrigger, error)
	// CommitBatch atomically inserts the log rows and applies the clamped
	// per-user credit decrements. Either everything commits or nothing does.
	CommitBatch(logs []models.TriggerLog, debits map[uint]AcceptedCounts) error
}

type gormRepository struct {
	db        *gorm.DB
	chunkSize int
}

// NewRepository creates a dispatch repository backed by GORM.
func NewRepository(db *gorm.DB, logChunkSize int) Repository {
	if logChunkSize <= 0 {
		logChunkSize = defaultLogChunkSize
	}
	return &gormRepository{db: db, chunkSize: logChunkSize}
}

func (r *gormRepository) ResolveTriggers(addresses []string) (map[string][]ResolvedTrigger, error) {
	out := make(map[string][]ResolvedTrigger, len(addresses))
	if len(addresses) == 0 {
		return out, nil
	}

	var rows []models.Address
	err := r.db.
		Where("address IN ?", addresses).
		Preload("Paybuttons.Triggers").
		Preload("Paybuttons.User").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to resolve triggers: %w", err)
	}

	for _, addr := range rows {
		for _, button := range addr.Paybuttons {
			for _, trig := range button.Triggers {
				out[addr.Address] = append(out[addr.Address], ResolvedTrigger{
					Trigger:           trig,
					ButtonName:        button.Name,
					UserID:            button.UserID,
					PreferredCurrency: button.User.PreferredCurrency,
					PostCredits:       button.User.PostCredits,
					EmailCredits:      button.User.EmailCredits,
				})
			}
		}
	}
	return out, nil
}

// clampDebit never decrements past the live balance; concurrent batches may
// both have reserved optimistically, so the commit-time clamp is what keeps
// the persisted balance non-negative.
func clampDebit(current, accepted int) int {
	if accepted < current {
		return accepted
	}
	if current < 0 {
		return 0
	}
	return current
}

func (r *gormRepository) CommitBatch(logs []models.TriggerLog, debits map[uint]AcceptedCounts) error {
	if len(logs) == 0 && len(debits) == 0 {
		return nil
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		if len(logs) > 0 {
			if err := tx.CreateInBatches(&logs, r.chunkSize).Error; err != nil {
				return fmt.Errorf("failed to insert trigger logs: %w", err)
			}
		}

		for userID, counts := range debits {
			if counts.Post == 0 && counts.Email == 0 {
				continue
			}

			var user models.User
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, userID).Error; err != nil {
				return fmt.Errorf("failed to read balance for user %d: %w", userID, err)
			}

			// Both channel decrements land in one UPDATE; each clamp is
			// computed independently against the same live read.
			updates := map[string]interface{}{
				"post_credits":  user.PostCredits - clampDebit(user.PostCredits, counts.Post),
				"email_credits": user.EmailCredits - clampDebit(user.EmailCredits, counts.Email),
			}
			if err := tx.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to debit credits for user %d: %w", userID, err)
			}
		}
		return nil
	})
}
