package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"trading-journal-backend/internal/models"
)

// CreateUploadLog inserts a parse-attempt log.
func (s *Store) CreateUploadLog(ctx context.Context, l *models.CsvUploadLog) error {
	return s.db.WithContext(ctx).Create(l).Error
}

// LatestUnattachedUploadLog finds the most recent upload log for
// (user, filename) not yet attached to a batch, or (nil, nil).
func (s *Store) LatestUnattachedUploadLog(ctx context.Context, userID, filename string) (*models.CsvUploadLog, error) {
	var l models.CsvUploadLog
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND filename = ? AND import_batch_id IS NULL", userID, filename).
		Order("created_at DESC").
		First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// UpdateUploadLog applies a partial update to one upload log.
func (s *Store) UpdateUploadLog(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	return s.db.WithContext(ctx).
		Model(&models.CsvUploadLog{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// DeleteUploadLogsBefore removes audit logs older than cutoff.
func (s *Store) DeleteUploadLogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.CsvUploadLog{})
	return res.RowsAffected, res.Error
}
