package repository

import (
	"context"

	"github.com/google/uuid"

	"trading-journal-backend/internal/models"
)

// CreateIngestCheck inserts one admin-review record.
func (s *Store) CreateIngestCheck(ctx context.Context, c *models.AiIngestToCheck) error {
	return s.db.WithContext(ctx).Create(c).Error
}

// UpdateIngestCheck applies a partial update to one review record.
func (s *Store) UpdateIngestCheck(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	return s.db.WithContext(ctx).
		Model(&models.AiIngestToCheck{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// CreateFeedbackItems batch-inserts the per-header feedback rows.
func (s *Store) CreateFeedbackItems(ctx context.Context, items []models.AiIngestFeedbackItem) error {
	if len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(items, 200).Error
}

// UpdateIngestChecksByFormat applies a partial update to every review record
// of one broker format.
func (s *Store) UpdateIngestChecksByFormat(ctx context.Context, formatID uuid.UUID, fields map[string]interface{}) error {
	return s.db.WithContext(ctx).
		Model(&models.AiIngestToCheck{}).
		Where("broker_format_id = ?", formatID).
		Updates(fields).Error
}

// ListIngestChecks returns the admin review queue, newest first.
func (s *Store) ListIngestChecks(ctx context.Context, reviewStatus string, limit int) ([]models.AiIngestToCheck, error) {
	q := s.db.WithContext(ctx).Model(&models.AiIngestToCheck{})
	if reviewStatus != "" {
		q = q.Where("admin_review_status = ?", reviewStatus)
	}
	var checks []models.AiIngestToCheck
	err := q.Order("created_at DESC").Limit(limit).Find(&checks).Error
	return checks, err
}
