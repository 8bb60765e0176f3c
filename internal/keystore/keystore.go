package keystore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/BumpBTC/bumpcore/internal/models"
)

// sessionRecord is the single-row table holding the persisted token. The
// auth token is the only piece of client state that is ever durably stored;
// wallets, transactions, and rates are re-fetched every app session.
type sessionRecord struct {
	ID        uint `gorm:"primaryKey"`
	Token     string
	Username  string
	CreatedAt time.Time
}

// Store persists the session token in a local sqlite file and serves
// synchronous snapshot reads from memory. Writes fully replace the stored
// value, so concurrent readers never observe a partial session.
type Store struct {
	db *gorm.DB

	mu      sync.RWMutex
	current *models.Session
}

// Open opens (creating if needed) the keystore at path and loads any
// persisted session into memory.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create keystore directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open keystore: %w", err)
	}

	if err := db.AutoMigrate(&sessionRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate keystore: %w", err)
	}

	// The file holds a credential; keep it owner-only.
	if err := os.Chmod(path, 0o600); err != nil {
		return nil, fmt.Errorf("failed to restrict keystore permissions: %w", err)
	}

	store := &Store{db: db}
	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

// load reads the persisted session, if any, into the in-memory snapshot.
func (s *Store) load() error {
	var record sessionRecord
	err := s.db.Order("id desc").First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		return fmt.Errorf("failed to read keystore: %w", err)
	}

	s.mu.Lock()
	s.current = &models.Session{
		Token:     record.Token,
		Username:  record.Username,
		CreatedAt: record.CreatedAt,
	}
	s.mu.Unlock()
	return nil
}

// Put replaces the stored session with the given one.
func (s *Store) Put(session models.Session) error {
	if session.Token == "" {
		return fmt.Errorf("refusing to store a session without a token")
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&sessionRecord{}).Error; err != nil {
			return err
		}
		return tx.Create(&sessionRecord{
			Token:     session.Token,
			Username:  session.Username,
			CreatedAt: session.CreatedAt,
		}).Error
	})
	if err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	s.mu.Lock()
	copied := session
	s.current = &copied
	s.mu.Unlock()
	return nil
}

// Current returns a copy of the stored session, or nil when logged out.
func (s *Store) Current() *models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	copied := *s.current
	return &copied
}

// Token returns the current bearer token. It satisfies the gateway's
// TokenSource.
func (s *Store) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil || s.current.Token == "" {
		return "", false
	}
	return s.current.Token, true
}

// Clear removes any stored session. It is safe to call when no session
// exists.
func (s *Store) Clear() error {
	if err := s.db.Where("1 = 1").Delete(&sessionRecord{}).Error; err != nil {
		return fmt.Errorf("failed to clear keystore: %w", err)
	}

	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	return nil
}
