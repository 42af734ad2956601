package models

import (
	"time"

	"gorm.io/datatypes"
)

// Signal is a raw market signal produced by collectors.
type Signal struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	SignalType string `gorm:"type:varchar(50);not null;index"`
	Source     string `gorm:"type:varchar(50);not null;index"`

	Mint *string `gorm:"type:varchar(64);index"`

	Strength  float64        `gorm:"not null"`
	Direction string         `gorm:"type:varchar(10)"`
	Payload   datatypes.JSON `gorm:"type:jsonb"`

	ExpiresAt *time.Time `gorm:"type:timestamptz;index"`
	CreatedAt time.Time  `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (Signal) TableName() string {
	return "signals"
}
