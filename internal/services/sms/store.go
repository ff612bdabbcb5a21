package sms

import (
	"errors"
	"sync"
	"time"

	"github.com/terralima/portalgo/internal/database"
	"github.com/terralima/portalgo/internal/models"
	"gorm.io/gorm"
)

// CodeStore persists one-time verification codes
type CodeStore interface {
	Save(code *models.VerificationCode) error
	// Latest returns the most recently issued code for a DNI, or nil
	Latest(dni string) (*models.VerificationCode, error)
	MarkUsed(code *models.VerificationCode) error
}

// DBStore keeps codes in the verification_codes table
type DBStore struct {
	db *database.DB
}

func NewDBStore(db *database.DB) *DBStore {
	return &DBStore{db: db}
}

func (s *DBStore) Save(code *models.VerificationCode) error {
	return s.db.Create(code).Error
}

func (s *DBStore) Latest(dni string) (*models.VerificationCode, error) {
	var code models.VerificationCode
	err := s.db.Where("dni = ?", dni).Order("created_at DESC").First(&code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // no code on file is not an error
	}
	if err != nil {
		return nil, err
	}
	return &code, nil
}

func (s *DBStore) MarkUsed(code *models.VerificationCode) error {
	return s.db.Model(code).Update("used", true).Error
}

// MemoryStore keeps codes in a mutex-guarded map, one per DNI. Used when
// no database is configured; entries are dropped on expiry.
type MemoryStore struct {
	mu    sync.Mutex
	codes map[string]*models.VerificationCode
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{codes: make(map[string]*models.VerificationCode)}
}

func (s *MemoryStore) Save(code *models.VerificationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code.DNI] = code
	return nil
}

func (s *MemoryStore) Latest(dni string) (*models.VerificationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.codes[dni]
	if !ok {
		return nil, nil
	}
	if time.Now().After(code.ExpiresAt.Add(5 * time.Minute)) {
		delete(s.codes, dni)
		return nil, nil
	}
	return code, nil
}

func (s *MemoryStore) MarkUsed(code *models.VerificationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stored, ok := s.codes[code.DNI]; ok {
		stored.Used = true
	}
	return nil
}
