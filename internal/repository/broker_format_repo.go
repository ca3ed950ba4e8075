package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"trading-journal-backend/internal/models"
)

// FindOrCreateBroker looks a broker up by exact (already normalized) name,
// creating it if absent. The insert ignores unique-constraint conflicts so a
// concurrent creation of the same name resolves to one row.
func (s *Store) FindOrCreateBroker(ctx context.Context, name string) (*models.Broker, error) {
	broker := models.Broker{ID: uuid.New(), Name: name, CreatedAt: time.Now()}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&broker).Error
	if err != nil {
		return nil, err
	}
	// Re-read: on conflict the insert was a no-op and broker.ID is not the
	// persisted row's id.
	var persisted models.Broker
	if err := s.db.WithContext(ctx).First(&persisted, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &persisted, nil
}

// CountFormats counts existing formats for one broker. Call inside the same
// transaction that inserts the new format so generated names stay unique.
func (s *Store) CountFormats(ctx context.Context, brokerID uuid.UUID) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.BrokerFormat{}).
		Where("broker_id = ?", brokerID).
		Count(&n).Error
	return n, err
}

// FormatByFingerprint finds the newest format generation for a
// (broker, header set) pair, or (nil, nil).
func (s *Store) FormatByFingerprint(ctx context.Context, brokerID uuid.UUID, fingerprint string) (*models.BrokerFormat, error) {
	var format models.BrokerFormat
	err := s.db.WithContext(ctx).
		Where("broker_id = ? AND header_fingerprint = ?", brokerID, fingerprint).
		Order("created_at DESC").
		First(&format).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &format, nil
}

// FormatByID fetches a format or returns (nil, nil).
func (s *Store) FormatByID(ctx context.Context, id uuid.UUID) (*models.BrokerFormat, error) {
	var format models.BrokerFormat
	err := s.db.WithContext(ctx).First(&format, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &format, nil
}

// CreateFormat persists a new broker format.
func (s *Store) CreateFormat(ctx context.Context, format *models.BrokerFormat) error {
	return s.db.WithContext(ctx).Create(format).Error
}

// IncrementFormatUsage bumps the usage counter and folds one success/failure
// into the rolling success rate.
func (s *Store) IncrementFormatUsage(ctx context.Context, formatID uuid.UUID, success bool) error {
	hit := 0.0
	if success {
		hit = 1.0
	}
	return s.db.WithContext(ctx).Exec(`
		UPDATE broker_formats
		SET usage_count = usage_count + 1,
		    success_rate = (success_rate * usage_count + ?) / (usage_count + 1),
		    updated_at = NOW()
		WHERE id = ?`, hit, formatID).Error
}

// SetFormatApproval flips a format's approval flag (admin action).
func (s *Store) SetFormatApproval(ctx context.Context, formatID uuid.UUID, approved bool) error {
	return s.db.WithContext(ctx).
		Model(&models.BrokerFormat{}).
		Where("id = ?", formatID).
		Update("is_approved", approved).Error
}
