package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AiIngestToCheck processing statuses.
const (
	IngestCheckProcessing = "PROCESSING"
	IngestCheckCompleted  = "COMPLETED"
	IngestCheckFailed     = "FAILED"
)

// Admin review statuses.
const (
	AdminReviewPending  = "PENDING"
	AdminReviewApproved = "APPROVED"
	AdminReviewRejected = "REJECTED"
)

// AiIngestToCheck is one record per finalized mapping decision, queued for
// admin review.
type AiIngestToCheck struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID            string    `gorm:"index"`
	BrokerFormatID    uuid.UUID `gorm:"index"`
	UploadLogID       uuid.UUID
	ImportBatchID     uuid.UUID `gorm:"index"`
	ProcessingStatus  string
	AdminReviewStatus string `gorm:"index"`
	OrderIDs          datatypes.JSON
	AIConfidence      float64
	ProcessedAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// AiIngestFeedbackItem is one row per CSV header per finalization. Write-once,
// created inside the finalization transaction.
type AiIngestFeedbackItem struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	IngestCheckID      uuid.UUID `gorm:"index"`
	CsvHeader          string
	AISuggestedField   string
	UserCorrectedField *string
	Confidence         float64
	IsCorrect          bool
	IssueType          string
	Comment            string
	CreatedAt          time.Time
}
