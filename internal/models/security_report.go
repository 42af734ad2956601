package models

import (
	"time"

	"gorm.io/datatypes"
)

// SecurityReport caches the latest safety verdict for a mint. The checker
// refreshes a row when it is older than the configured cache TTL.
type SecurityReport struct {
	ID   uint64 `gorm:"primaryKey;autoIncrement"`
	Mint string `gorm:"type:varchar(64);uniqueIndex;not null"`

	Verdict string  `gorm:"type:varchar(10);not null;index"` // safe|warn|danger
	Score   float64 `gorm:"not null;default:0"`

	MintAuthority   bool `gorm:"not null;default:false"`
	FreezeAuthority bool `gorm:"not null;default:false"`

	LPLockedPct  float64 `gorm:"column:lp_locked_pct;not null;default:0"`
	TopHolderPct float64 `gorm:"not null;default:0"`

	Flags datatypes.JSON `gorm:"type:jsonb"`

	CheckedAt time.Time `gorm:"type:timestamptz;not null;index"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (SecurityReport) TableName() string {
	return "security_reports"
}
