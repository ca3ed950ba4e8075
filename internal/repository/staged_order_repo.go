package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"trading-journal-backend/internal/models"
)

// CreateStagedOrders batch-inserts staged orders.
func (s *Store) CreateStagedOrders(ctx context.Context, orders []models.StagedOrder) error {
	if len(orders) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(orders, 500).Error
}

// StagedOrdersByFormat lists staged orders awaiting promotion for one format.
func (s *Store) StagedOrdersByFormat(ctx context.Context, formatID uuid.UUID) ([]models.StagedOrder, error) {
	var orders []models.StagedOrder
	err := s.db.WithContext(ctx).
		Where("broker_format_id = ?", formatID).
		Order("created_at ASC").
		Find(&orders).Error
	return orders, err
}

// DeleteStagedOrders removes staged rows by id (after promotion).
func (s *Store) DeleteStagedOrders(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&models.StagedOrder{}).Error
}

// DeleteExpiredStagedOrders removes staged rows past the retention TTL. Only
// rows older than cutoff are touched, so it is safe to run concurrently with
// active staging.
func (s *Store) DeleteExpiredStagedOrders(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.StagedOrder{})
	return res.RowsAffected, res.Error
}

// CreateOrders batch-inserts live orders.
func (s *Store) CreateOrders(ctx context.Context, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(orders, 500).Error
}

// CreateTrades batch-inserts trades.
func (s *Store) CreateTrades(ctx context.Context, trades []models.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(trades, 500).Error
}
