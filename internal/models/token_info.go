package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// TokenInfo is a tracked Solana mint, refreshed by market-data collectors.
type TokenInfo struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	Mint     string `gorm:"type:varchar(64);uniqueIndex;not null"`
	Symbol   string `gorm:"type:varchar(32);index"`
	Name     string `gorm:"type:varchar(120)"`
	Decimals int    `gorm:"not null;default:9"`

	PriceUSD     decimal.Decimal `gorm:"type:numeric(30,12);not null;default:0"`
	LiquidityUSD decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	Volume24hUSD decimal.Decimal `gorm:"column:volume_24h_usd;type:numeric(30,10);not null;default:0"`

	PairAddress string         `gorm:"type:varchar(64);index"`
	DexID       string         `gorm:"type:varchar(30)"`
	Labels      datatypes.JSON `gorm:"type:jsonb"`

	Active       bool      `gorm:"default:true;index"`
	DiscoveredAt time.Time `gorm:"type:timestamptz;not null"`
	CreatedAt    time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"type:timestamptz;autoUpdateTime;index"`
}

func (TokenInfo) TableName() string {
	return "tokens"
}
