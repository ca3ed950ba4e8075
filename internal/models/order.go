package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Order is a live normalized execution, written either directly when the
// broker format is already approved or by promoting staged orders.
type Order struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	ImportBatchID  uuid.UUID `gorm:"index"`
	BrokerFormatID uuid.UUID
	TradeID        *uuid.UUID `gorm:"index"`
	UserID         string     `gorm:"index"`
	Symbol         string     `gorm:"index"`
	Side           string
	Quantity       decimal.Decimal `gorm:"type:numeric(20,8)"`
	Price          decimal.Decimal `gorm:"type:numeric(20,8)"`
	Commission     decimal.Decimal `gorm:"type:numeric(20,8)"`
	ExecutedAt     *time.Time
	OrderRef       string
	BrokerMetadata datatypes.JSON
	CreatedAt      time.Time
}

// Trade groups the orders of one symbol within a batch.
type Trade struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	ImportBatchID uuid.UUID `gorm:"index"`
	UserID        string    `gorm:"index"`
	Symbol        string    `gorm:"index"`
	OrderCount    int
	NetQuantity   decimal.Decimal `gorm:"type:numeric(20,8)"`
	AvgPrice      decimal.Decimal `gorm:"type:numeric(20,8)"`
	OpenedAt      *time.Time
	CreatedAt     time.Time
}
