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

// CreateBatch inserts a new import batch.
func (s *Store) CreateBatch(ctx context.Context, batch *models.ImportBatch) error {
	return s.db.WithContext(ctx).Create(batch).Error
}

// BatchByID fetches a batch or returns (nil, nil) when absent.
func (s *Store) BatchByID(ctx context.Context, id uuid.UUID) (*models.ImportBatch, error) {
	var batch models.ImportBatch
	err := s.db.WithContext(ctx).First(&batch, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// LockBatch re-reads a batch with a row-level lock. Only meaningful inside a
// transaction; it is the serialization point for concurrent finalizations of
// the same batch.
func (s *Store) LockBatch(ctx context.Context, id uuid.UUID) (*models.ImportBatch, error) {
	var batch models.ImportBatch
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&batch, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// UpdateBatch applies a partial update to one batch.
func (s *Store) UpdateBatch(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	return s.db.WithContext(ctx).
		Model(&models.ImportBatch{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// MarkBatchesCompleted flips every batch in ids to COMPLETED.
func (s *Store) MarkBatchesCompleted(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.ImportBatch{}).
		Where("id IN ?", ids).
		Update("status", models.BatchStatusCompleted).Error
}

// LatestActiveSessionBatch returns the most recent batch of (user, filename)
// whose session is still open within the retention window, or (nil, nil).
func (s *Store) LatestActiveSessionBatch(ctx context.Context, userID, filename string, since time.Time) (*models.ImportBatch, error) {
	var batch models.ImportBatch
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND filename = ? AND session_status = ? AND created_at > ?",
			userID, filename, models.SessionStatusActive, since).
		Order("created_at DESC").
		First(&batch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// SessionCompletedRows sums completed rows across every batch of a session.
func (s *Store) SessionCompletedRows(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var total int64
	err := s.db.WithContext(ctx).
		Model(&models.ImportBatch{}).
		Where("upload_session_id = ?", sessionID).
		Select("COALESCE(SUM(completed_row_count), 0)").
		Scan(&total).Error
	return int(total), err
}

// SessionAttemptCount counts finalize attempts recorded against a session.
func (s *Store) SessionAttemptCount(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var total int64
	err := s.db.WithContext(ctx).
		Model(&models.ImportBatch{}).
		Where("upload_session_id = ?", sessionID).
		Select("COALESCE(SUM(session_attempts), 0)").
		Scan(&total).Error
	return int(total), err
}

// MarkSessionComplete flips the session to COMPLETED on this batch, but only
// if no batch of the session is complete yet. A transaction-scoped advisory
// lock on the session id serializes concurrent completing chunks: the loser
// blocks here until the winner commits, and its guard subquery then runs on a
// fresh snapshot that sees the committed flag, so only one caller ever
// observes RowsAffected > 0. Must run inside a transaction.
func (s *Store) MarkSessionComplete(ctx context.Context, sessionID, batchID uuid.UUID) (bool, error) {
	if err := s.db.WithContext(ctx).
		Exec("SELECT pg_advisory_xact_lock(hashtext(?))", sessionID.String()).Error; err != nil {
		return false, err
	}
	res := s.db.WithContext(ctx).Exec(`
		UPDATE import_batches
		SET is_session_complete = TRUE, session_status = ?, updated_at = NOW()
		WHERE id = ? AND is_session_complete = FALSE
		AND NOT EXISTS (
			SELECT 1 FROM import_batches b
			WHERE b.upload_session_id = ? AND b.is_session_complete = TRUE AND b.id <> ?
		)`,
		models.SessionStatusCompleted, batchID, sessionID, batchID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
