package repository

import (
	"context"

	"trading-journal-backend/internal/models"
)

// CreateMetric persists one cleanup/staging run metric.
func (s *Store) CreateMetric(ctx context.Context, m *models.StagingMetric) error {
	return s.db.WithContext(ctx).Create(m).Error
}

// RecentMetrics returns the latest run metrics, newest first.
func (s *Store) RecentMetrics(ctx context.Context, limit int) ([]models.StagingMetric, error) {
	var metrics []models.StagingMetric
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&metrics).Error
	return metrics, err
}
