package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// StagedOrder is a normalized row held back from the live tables until the
// broker format it was staged under is approved. Rows are linked to their
// import batch for traceability, promotion and cleanup.
type StagedOrder struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	ImportBatchID  uuid.UUID `gorm:"index"`
	BrokerFormatID uuid.UUID `gorm:"index"`
	UserID         string    `gorm:"index"`
	Symbol         string
	Side           string
	Quantity       decimal.Decimal `gorm:"type:numeric(20,8)"`
	Price          decimal.Decimal `gorm:"type:numeric(20,8)"`
	Commission     decimal.Decimal `gorm:"type:numeric(20,8)"`
	ExecutedAt     *time.Time
	OrderRef       string
	BrokerMetadata datatypes.JSON
	CreatedAt      time.Time `gorm:"index"`
}
