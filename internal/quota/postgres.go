package quota

import (
	"context"
	"errors"

	"github.com/Conceptual-Machines/giftbox-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgresStore persists counts in the session_usages table
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Get retrieves the used count for a session
func (s *PostgresStore) Get(ctx context.Context, sessionID string) (int, error) {
	var usage models.SessionUsage
	err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&usage).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return usage.UsedCount, nil
}

// TryIncrement adds one only while the count is below limit
func (s *PostgresStore) TryIncrement(ctx context.Context, sessionID string, limit int) (int, bool, error) {
	var (
		count       int
		incremented bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		usage, err := lockUsage(tx, sessionID)
		if err != nil {
			return err
		}
		count = usage.UsedCount
		if count >= limit {
			return nil
		}
		usage.UsedCount++
		count = usage.UsedCount
		incremented = true
		return tx.Save(usage).Error
	})
	if err != nil {
		return 0, false, err
	}
	return count, incremented, nil
}

func (s *PostgresStore) Name() string {
	return KindPostgres
}

// lockUsage ensures the session row exists, then locks it for the rest of the
// transaction
func lockUsage(tx *gorm.DB, sessionID string) (*models.SessionUsage, error) {
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.SessionUsage{SessionID: sessionID}).Error; err != nil {
		return nil, err
	}

	// Lock the row to prevent race conditions
	var usage models.SessionUsage
	if err := tx.Raw("SELECT * FROM session_usages WHERE session_id = ? FOR UPDATE", sessionID).
		Scan(&usage).Error; err != nil {
		return nil, err
	}
	return &usage, nil
}

// Ping checks the database connection
func (s *PostgresStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
