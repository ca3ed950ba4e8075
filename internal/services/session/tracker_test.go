package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"trading-journal-backend/internal/models"
)

type fakeStore struct {
	openBatch     *models.ImportBatch
	completedRows int
	attempts      int

	markCalls   int
	markReturns bool
	sinceSeen   time.Time
}

func (f *fakeStore) LatestActiveSessionBatch(ctx context.Context, userID, filename string, since time.Time) (*models.ImportBatch, error) {
	f.sinceSeen = since
	return f.openBatch, nil
}

func (f *fakeStore) SessionCompletedRows(ctx context.Context, sessionID uuid.UUID) (int, error) {
	return f.completedRows, nil
}

func (f *fakeStore) SessionAttemptCount(ctx context.Context, sessionID uuid.UUID) (int, error) {
	return f.attempts, nil
}

func (f *fakeStore) MarkSessionComplete(ctx context.Context, sessionID, batchID uuid.UUID) (bool, error) {
	f.markCalls++
	return f.markReturns, nil
}

func TestDetectOrCreateSessionNew(t *testing.T) {
	store := &fakeStore{}
	tracker := NewTracker(store, 2*time.Hour)

	sess, err := tracker.DetectOrCreateSession(context.Background(), "user-1", "trades.csv", 500)
	require.NoError(t, err)

	require.True(t, sess.IsNew)
	require.NotEqual(t, uuid.Nil, sess.ID)
	require.Equal(t, 500, sess.ExpectedRowCount)
	require.Zero(t, sess.PreviousCompleted)
	require.WithinDuration(t, time.Now().Add(-2*time.Hour), store.sinceSeen, time.Minute)
}

func TestDetectOrCreateSessionJoinsOpenSession(t *testing.T) {
	sessionID := uuid.New()
	store := &fakeStore{
		openBatch: &models.ImportBatch{
			UploadSessionID:  &sessionID,
			ExpectedRowCount: 1000,
		},
		completedRows: 400,
	}
	tracker := NewTracker(store, 2*time.Hour)

	sess, err := tracker.DetectOrCreateSession(context.Background(), "user-1", "trades.csv", 300)
	require.NoError(t, err)

	require.False(t, sess.IsNew)
	require.Equal(t, sessionID, sess.ID)
	require.Equal(t, 1000, sess.ExpectedRowCount)
	require.Equal(t, 400, sess.PreviousCompleted)
}

func TestResume(t *testing.T) {
	sessionID := uuid.New()
	store := &fakeStore{completedRows: 250}
	tracker := NewTracker(store, time.Hour)

	sess, err := tracker.Resume(context.Background(), sessionID, 800, 100)
	require.NoError(t, err)
	require.Equal(t, sessionID, sess.ID)
	require.Equal(t, 800, sess.ExpectedRowCount)
	require.Equal(t, 250, sess.PreviousCompleted)
}

func TestResumeFallbackExpected(t *testing.T) {
	store := &fakeStore{}
	tracker := NewTracker(store, time.Hour)

	// Legacy batch rows never recorded an expected total.
	sess, err := tracker.Resume(context.Background(), uuid.New(), 0, 120)
	require.NoError(t, err)
	require.Equal(t, 120, sess.ExpectedRowCount)
}

func TestIsComplete(t *testing.T) {
	cases := []struct {
		prev, staged, expected int
		want                   bool
	}{
		{0, 500, 500, true},
		{400, 100, 500, true},
		{400, 200, 500, true}, // overshoot still completes
		{0, 499, 500, false},
		{100, 100, 500, false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, IsComplete(tc.prev, tc.staged, tc.expected),
			"prev=%d staged=%d expected=%d", tc.prev, tc.staged, tc.expected)
	}
}

func TestCompleteShortChunkNeverMarks(t *testing.T) {
	store := &fakeStore{markReturns: true}
	tracker := NewTracker(store, time.Hour)
	sess := &Session{ID: uuid.New(), ExpectedRowCount: 500, PreviousCompleted: 100}

	won, err := tracker.Complete(context.Background(), sess, 100, uuid.New())
	require.NoError(t, err)
	require.False(t, won)
	require.Zero(t, store.markCalls)
}

func TestCompleteMarksOnThreshold(t *testing.T) {
	store := &fakeStore{markReturns: true}
	tracker := NewTracker(store, time.Hour)
	sess := &Session{ID: uuid.New(), ExpectedRowCount: 500, PreviousCompleted: 400}

	won, err := tracker.Complete(context.Background(), sess, 100, uuid.New())
	require.NoError(t, err)
	require.True(t, won)
	require.Equal(t, 1, store.markCalls)
}

func TestCompleteLosesRaceToOtherChunk(t *testing.T) {
	// The store reports another batch already completed the session.
	store := &fakeStore{markReturns: false}
	tracker := NewTracker(store, time.Hour)
	sess := &Session{ID: uuid.New(), ExpectedRowCount: 500, PreviousCompleted: 450}

	won, err := tracker.Complete(context.Background(), sess, 100, uuid.New())
	require.NoError(t, err)
	require.False(t, won)
	require.Equal(t, 1, store.markCalls)
}
