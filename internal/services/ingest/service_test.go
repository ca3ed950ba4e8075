package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"trading-journal-backend/internal/inference"
	"trading-journal-backend/internal/models"
)

type fakeStore struct {
	openBatch *models.ImportBatch

	batches []models.ImportBatch
	logs    []models.CsvUploadLog
}

func (f *fakeStore) LatestActiveSessionBatch(ctx context.Context, userID, filename string, since time.Time) (*models.ImportBatch, error) {
	return f.openBatch, nil
}

func (f *fakeStore) SessionCompletedRows(ctx context.Context, sessionID uuid.UUID) (int, error) {
	return 0, nil
}

func (f *fakeStore) SessionAttemptCount(ctx context.Context, sessionID uuid.UUID) (int, error) {
	return 0, nil
}

func (f *fakeStore) MarkSessionComplete(ctx context.Context, sessionID, batchID uuid.UUID) (bool, error) {
	return false, nil
}

func (f *fakeStore) CreateBatch(ctx context.Context, batch *models.ImportBatch) error {
	f.batches = append(f.batches, *batch)
	return nil
}

func (f *fakeStore) CreateUploadLog(ctx context.Context, l *models.CsvUploadLog) error {
	f.logs = append(f.logs, *l)
	return nil
}

func TestUploadCreatesPendingBatch(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, inference.NewHeuristicEngine(), 2*time.Hour)
	raw := []byte("Symbol,Qty,Price,Side,Time\nAAPL,100,189.50,buy,2026-03-01\n")

	result, err := svc.Upload(context.Background(), "user-1", "trades.csv", "IBKR", raw)
	require.NoError(t, err)

	require.Equal(t, 1, result.RowCount)
	require.True(t, result.ReviewRequired)
	require.NotNil(t, result.Proposal)
	require.NotEqual(t, uuid.Nil, result.SessionID)

	require.Len(t, store.logs, 1)
	require.Equal(t, models.UploadLogParsing, store.logs[0].Status)
	require.Equal(t, 1, store.logs[0].RowCount)
	require.Nil(t, store.logs[0].ImportBatchID)

	require.Len(t, store.batches, 1)
	batch := store.batches[0]
	require.Equal(t, result.BatchID, batch.ID)
	require.Equal(t, models.BatchStatusPending, batch.Status)
	require.Equal(t, "IBKR", batch.BrokerType)
	require.True(t, batch.AIMappingUsed)
	require.NotNil(t, batch.TempFileContent)
	require.Equal(t, string(raw), *batch.TempFileContent)
	require.Equal(t, models.SessionStatusActive, batch.SessionStatus)
	require.Equal(t, 1, batch.ExpectedRowCount)

	// The stored payload round-trips into the finalize-side decoder.
	pending, err := models.DecodePendingReview(batch.PendingReview)
	require.NoError(t, err)
	require.Equal(t, "IBKR", pending.BrokerName)
	require.Len(t, pending.Mappings, 5)
	require.Equal(t, "symbol", pending.Mappings["Symbol"].Field)
}

func TestUploadJoinsOpenSession(t *testing.T) {
	sessionID := uuid.New()
	store := &fakeStore{
		openBatch: &models.ImportBatch{
			UploadSessionID:  &sessionID,
			ExpectedRowCount: 1000,
		},
	}
	svc := NewService(store, inference.NewHeuristicEngine(), 2*time.Hour)
	raw := []byte("Symbol,Qty,Price,Side,Time\nAAPL,100,189.50,buy,2026-03-01\n")

	result, err := svc.Upload(context.Background(), "user-1", "trades.csv", "IBKR", raw)
	require.NoError(t, err)

	require.Equal(t, sessionID, result.SessionID)
	require.Equal(t, 1000, store.batches[0].ExpectedRowCount)
}

func TestUploadRejectsMalformedFile(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, inference.NewHeuristicEngine(), time.Hour)

	_, err := svc.Upload(context.Background(), "user-1", "trades.csv", "IBKR", []byte("Symbol,Qty\n"))
	require.Error(t, err)
	require.Empty(t, store.batches)
	require.Empty(t, store.logs)
}
