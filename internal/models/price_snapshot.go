package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceSnapshot is one observation of a mint's market state. Indicator
// computation reads the most recent window ordered by captured_at.
type PriceSnapshot struct {
	ID   uint64 `gorm:"primaryKey;autoIncrement"`
	Mint string `gorm:"type:varchar(64);not null;index:idx_snapshot_mint_time"`

	PriceUSD     decimal.Decimal `gorm:"type:numeric(30,12);not null"`
	LiquidityUSD decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	VolumeUSD    decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`

	PriceChange1hPct  *float64 `gorm:"column:price_change_1h_pct"`
	PriceChange24hPct *float64 `gorm:"column:price_change_24h_pct"`

	Source     string    `gorm:"type:varchar(30);not null"`
	CapturedAt time.Time `gorm:"type:timestamptz;not null;index:idx_snapshot_mint_time"`
	CreatedAt  time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (PriceSnapshot) TableName() string {
	return "price_snapshots"
}
