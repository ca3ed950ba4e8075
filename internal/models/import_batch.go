package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ImportBatch statuses.
const (
	BatchStatusPending    = "PENDING"
	BatchStatusProcessing = "PROCESSING"
	BatchStatusCompleted  = "COMPLETED"
	BatchStatusFailed     = "FAILED"
)

// Upload session statuses (session fields are embedded on ImportBatch).
const (
	SessionStatusActive    = "ACTIVE"
	SessionStatusCompleted = "COMPLETED"
)

// ImportBatch is one logical user upload. The raw CSV is held in
// TempFileContent until finalization, then cleared. Session fields correlate
// multi-chunk uploads of the same file so quota is charged once per session.
type ImportBatch struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID             string    `gorm:"index"`
	Filename           string    `gorm:"index"`
	FileSize           int64
	BrokerType         string
	ImportType         string
	Status             string `gorm:"index"`
	TotalRecords       int
	SuccessCount       int
	ErrorCount         int
	Errors             datatypes.JSON
	AIMappingUsed      bool
	MappingConfidence  float64
	ColumnMappings     datatypes.JSON
	PendingReview      datatypes.JSON
	TempFileContent    *string
	UserReviewRequired bool

	UploadSessionID   *uuid.UUID `gorm:"index"`
	ExpectedRowCount  int
	CompletedRowCount int
	IsSessionComplete bool
	SessionAttempts   int
	SessionStatus     string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Terminal reports whether the batch reached a state that can never be
// finalized again.
func (b *ImportBatch) Terminal() bool {
	return b.Status == BatchStatusCompleted || b.Status == BatchStatusFailed
}
