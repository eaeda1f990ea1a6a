package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Artifact is one persisted unit of generated content. Rows are written
// exactly once and never updated, except to clear the debit_pending flag
// during reconciliation.
type Artifact struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	OwnerID      snowflake.ID      `gorm:"index;not null" json:"owner_id"`
	ContentType  string            `gorm:"not null" json:"content_type"`
	Topic        string            `gorm:"not null" json:"topic"`
	Body         string            `gorm:"not null" json:"body"`
	Cost         int64             `gorm:"not null" json:"cost"`
	DebitPending bool              `gorm:"not null;default:false" json:"debit_pending"`
	Metadata     datatypes.JSONMap `json:"metadata"`
	CreatedAt    time.Time         `json:"created_at"`
}

func (Artifact) TableName() string {
	return "artifacts"
}
