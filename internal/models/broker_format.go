package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// BrokerFormat is a named (broker, header set) -> field mapping record.
// HeaderFingerprint identifies the header set; corrected re-uploads of the
// same header set create a new generation, so (broker, fingerprint) lookups
// take the newest row. Unapproved formats route rows to staging instead of
// live orders.
type BrokerFormat struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	BrokerID          uuid.UUID `gorm:"index:idx_broker_header_fp;uniqueIndex:idx_broker_format_name"`
	Name              string    `gorm:"uniqueIndex:idx_broker_format_name"`
	HeaderFingerprint string    `gorm:"index:idx_broker_header_fp"`
	Headers           datatypes.JSON
	FieldMappings     datatypes.JSON
	Confidence        float64
	IsApproved        bool `gorm:"index"`
	UsageCount        int
	SuccessRate       float64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
