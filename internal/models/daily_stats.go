package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type DailyStats struct {
	ID   uint64    `gorm:"primaryKey;autoIncrement"`
	Date time.Time `gorm:"type:date;not null;uniqueIndex"`

	TradesCount int `gorm:"not null;default:0"`
	WinCount    int `gorm:"not null;default:0"`
	LossCount   int `gorm:"not null;default:0"`

	VolumeUSD   decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	RealizedPnL decimal.Decimal `gorm:"column:realized_pnl;type:numeric(30,10);not null;default:0"`
	FeesUSD     decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (DailyStats) TableName() string {
	return "daily_stats"
}
