package models

import (
	"time"

	"gorm.io/datatypes"
)

// SystemLog is the persisted audit trail. Components write through
// service.SystemLogService so entries also reach the structured logger.
type SystemLog struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement"`
	Level     string         `gorm:"type:varchar(10);not null;index"`
	Component string         `gorm:"type:varchar(40);not null;index"`
	Message   string         `gorm:"type:text;not null"`
	Details   datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (SystemLog) TableName() string {
	return "system_logs"
}
