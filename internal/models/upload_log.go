package models

import (
	"time"

	"github.com/google/uuid"
)

// CsvUploadLog statuses.
const (
	UploadLogParsing   = "PARSING"
	UploadLogValidated = "VALIDATED"
	UploadLogFailed    = "FAILED"
)

// CsvUploadLog tracks one parse attempt's lifecycle. It is created at
// initial-upload time with a nil batch id and attached to the ImportBatch
// during finalization.
type CsvUploadLog struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID        string    `gorm:"index"`
	Filename      string    `gorm:"index"`
	ImportBatchID *uuid.UUID
	Status        string
	RowCount      int
	Error         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
