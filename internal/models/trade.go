package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Trade is one execution attempt routed through Jupiter. A trade always
// references the decision that produced it.
type Trade struct {
	ID         uint64     `gorm:"primaryKey;autoIncrement"`
	DecisionID uint64     `gorm:"not null;index"`
	Decision   AIDecision `gorm:"foreignKey:DecisionID"`

	Mint string `gorm:"type:varchar(64);not null;index"`
	Side string `gorm:"type:varchar(10);not null"` // BUY|SELL

	InputMint    string          `gorm:"type:varchar(64);not null"`
	OutputMint   string          `gorm:"type:varchar(64);not null"`
	InputAmount  decimal.Decimal `gorm:"type:numeric(40,0);not null"` // raw base units
	OutputAmount decimal.Decimal `gorm:"type:numeric(40,0);not null;default:0"`

	PriceUSD    decimal.Decimal `gorm:"type:numeric(30,12);not null;default:0"`
	SizeUSD     decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	SlippageBps int             `gorm:"not null;default:0"`
	FeeUSD      decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`

	Route       datatypes.JSON `gorm:"type:jsonb"`
	TxSignature *string        `gorm:"type:varchar(120);index"`

	Status string  `gorm:"type:varchar(20);not null;index;default:'pending'"` // pending|submitted|confirmed|failed|simulated
	Error  *string `gorm:"type:text"`

	// RealizedPnL is set on SELL fills when the position book reduces or
	// closes a position.
	RealizedPnL *decimal.Decimal `gorm:"column:realized_pnl;type:numeric(30,10)"`

	ExecutedAt *time.Time `gorm:"type:timestamptz;index"`
	CreatedAt  time.Time  `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt  time.Time  `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Trade) TableName() string {
	return "trades"
}
