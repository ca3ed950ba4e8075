package models

import (
	"time"

	"github.com/google/uuid"
)

// Cleanup run statuses.
const (
	CleanupStatusOK      = "ok"
	CleanupStatusPartial = "partial"
	CleanupStatusFailed  = "failed"
)

// StagingMetric records one cleanup/staging run for observability.
type StagingMetric struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	JobName       string    `gorm:"index"`
	Status        string
	StagedDeleted int64
	LogsDeleted   int64
	ErrorCount    int
	Error         string
	DurationMs    int64
	StartedAt     time.Time
	CreatedAt     time.Time `gorm:"index"`
}
