// Package session correlates multiple upload attempts (chunks) of the same
// logical file so a multi-part upload's quota charge happens exactly once.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"trading-journal-backend/internal/models"
)

// Store is the persistence surface the tracker needs. Session state lives as
// fields on ImportBatch rows sharing one upload_session_id.
type Store interface {
	LatestActiveSessionBatch(ctx context.Context, userID, filename string, since time.Time) (*models.ImportBatch, error)
	SessionCompletedRows(ctx context.Context, sessionID uuid.UUID) (int, error)
	SessionAttemptCount(ctx context.Context, sessionID uuid.UUID) (int, error)
	MarkSessionComplete(ctx context.Context, sessionID, batchID uuid.UUID) (bool, error)
}

// Session describes the open upload session a chunk belongs to.
type Session struct {
	ID                uuid.UUID
	ExpectedRowCount  int
	PreviousCompleted int
	IsNew             bool
}

type Tracker struct {
	store  Store
	window time.Duration
}

// NewTracker builds a tracker. window is the retention window inside which
// repeated uploads of the same filename join the same session.
func NewTracker(store Store, window time.Duration) *Tracker {
	return &Tracker{store: store, window: window}
}

// DetectOrCreateSession returns the open session for (user, filename) within
// the retention window, or a fresh session whose expected total is this
// chunk's row count.
func (t *Tracker) DetectOrCreateSession(ctx context.Context, userID, filename string, totalRowsInChunk int) (*Session, error) {
	open, err := t.store.LatestActiveSessionBatch(ctx, userID, filename, time.Now().Add(-t.window))
	if err != nil {
		return nil, err
	}
	if open != nil && open.UploadSessionID != nil {
		completed, err := t.store.SessionCompletedRows(ctx, *open.UploadSessionID)
		if err != nil {
			return nil, err
		}
		return &Session{
			ID:                *open.UploadSessionID,
			ExpectedRowCount:  open.ExpectedRowCount,
			PreviousCompleted: completed,
		}, nil
	}
	return &Session{
		ID:               uuid.New(),
		ExpectedRowCount: totalRowsInChunk,
		IsNew:            true,
	}, nil
}

// Resume rebuilds the session view for a batch already tied to a session id.
// fallbackExpected covers legacy rows that never recorded an expected total.
func (t *Tracker) Resume(ctx context.Context, sessionID uuid.UUID, expected, fallbackExpected int) (*Session, error) {
	completed, err := t.store.SessionCompletedRows(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if expected == 0 {
		expected = fallbackExpected
	}
	return &Session{
		ID:                sessionID,
		ExpectedRowCount:  expected,
		PreviousCompleted: completed,
	}, nil
}

// AttemptCount reports how many finalize attempts the session has seen.
func (t *Tracker) AttemptCount(ctx context.Context, sessionID uuid.UUID) (int, error) {
	return t.store.SessionAttemptCount(ctx, sessionID)
}

// IsComplete is the session completion rule.
func IsComplete(previousCompleted, stagedThisChunk, expected int) bool {
	return previousCompleted+stagedThisChunk >= expected
}

// Complete marks the session COMPLETED through this batch, if this chunk
// pushed it over the expected total and no other chunk got there first.
// Returns true only on the false->true transition: that is the one moment the
// caller may charge quota. A completed session never regresses.
func (t *Tracker) Complete(ctx context.Context, sess *Session, stagedThisChunk int, batchID uuid.UUID) (bool, error) {
	if !IsComplete(sess.PreviousCompleted, stagedThisChunk, sess.ExpectedRowCount) {
		return false, nil
	}
	return t.store.MarkSessionComplete(ctx, sess.ID, batchID)
}
