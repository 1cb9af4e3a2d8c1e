package auth

import (
	"errors"
	"log"
	"sync"

	"waba-onboarding/internal/models"

	"gorm.io/gorm"
)

const tokenKey = "BEARER_TOKEN"

// Store is the single credential slot every backend call reads its bearer
// token from. The token is set on login, cleared only on explicit logout,
// and cached in memory so concurrent in-flight requests observe one value.
type Store struct {
	db *gorm.DB

	mu    sync.RWMutex
	token string
}

func NewStore(db *gorm.DB) *Store {
	s := &Store{db: db}
	s.load()
	return s
}

func (s *Store) load() {
	var cred models.Credential
	err := s.db.Where("key = ?", tokenKey).First(&cred).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Error loading stored credential: %v", err)
		}
		return
	}
	s.mu.Lock()
	s.token = cred.Value
	s.mu.Unlock()
}

// Token returns the current bearer token, or "" when logged out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SetToken stores a new bearer token.
func (s *Store) SetToken(token string) error {
	cred := models.Credential{Key: tokenKey, Value: token}
	if err := s.db.Save(&cred).Error; err != nil {
		return err
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

// ClearToken removes the stored credential (logout).
func (s *Store) ClearToken() error {
	if err := s.db.Where("key = ?", tokenKey).Delete(&models.Credential{}).Error; err != nil {
		return err
	}
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	return nil
}
