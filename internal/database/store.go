package database

import (
	"errors"
	"log"

	"waba-onboarding/internal/models"

	"gorm.io/gorm"
)

// Store wraps the gorm handle for the onboarding audit trail and the
// consumed-callback ledger.
type Store struct {
	DB *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

// RecordTransition appends a step change to the audit trail. Failures are
// logged and swallowed; the audit trail never blocks the flow itself.
func (s *Store) RecordTransition(from, to, cause, detail string) {
	t := models.StepTransition{
		FromStep: from,
		ToStep:   to,
		Cause:    cause,
		Detail:   detail,
	}
	if err := s.DB.Create(&t).Error; err != nil {
		log.Printf("Error recording step transition %s -> %s: %v", from, to, err)
	}
}

// CallbackConsumed reports whether the given authorization code was already
// processed by this agent.
func (s *Store) CallbackConsumed(code string) bool {
	if code == "" {
		return false
	}
	var rec models.CallbackRecord
	err := s.DB.Where("code = ?", code).First(&rec).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Error looking up callback record: %v", err)
		}
		return false
	}
	return true
}

// MarkCallbackConsumed persists a code/state pair so it survives restarts.
func (s *Store) MarkCallbackConsumed(code, state string) {
	if code == "" {
		return
	}
	rec := models.CallbackRecord{Code: code, State: state}
	if err := s.DB.Create(&rec).Error; err != nil {
		log.Printf("Error recording consumed callback: %v", err)
	}
}

// RecentTransitions returns the newest audit entries, most recent first.
func (s *Store) RecentTransitions(limit int) ([]models.StepTransition, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []models.StepTransition
	err := s.DB.Order("id DESC").Limit(limit).Find(&out).Error
	return out, err
}
