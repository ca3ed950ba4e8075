package models

import (
	"time"

	"github.com/google/uuid"
)

// Broker is a name-keyed entity, found-or-created during finalization.
// The unique index makes concurrent creation of the same name safe.
type Broker struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"uniqueIndex"`
	CreatedAt time.Time
}
