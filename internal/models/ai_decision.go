package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// AIDecision is one agent verdict for one mint. Every run is persisted,
// including HOLDs, so the full decision trail is queryable.
type AIDecision struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	DecisionID string `gorm:"type:varchar(40);uniqueIndex;not null"`
	Mint       string `gorm:"type:varchar(64);not null;index"`

	Action     string          `gorm:"type:varchar(10);not null;index"` // BUY|SELL|HOLD
	Confidence float64         `gorm:"not null"`
	SizeUSD    decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0"`
	Reasoning  string          `gorm:"type:text"`

	Model  string `gorm:"type:varchar(60);not null"`
	Status string `gorm:"type:varchar(20);not null;index;default:'pending'"` // pending|approved|rejected|executed|failed|expired

	// Full AggregatedInputs dump plus risk/security verdicts captured at
	// decision time, for post-trade review.
	Inputs          datatypes.JSON `gorm:"type:jsonb"`
	RiskVerdict     datatypes.JSON `gorm:"type:jsonb"`
	SecurityVerdict datatypes.JSON `gorm:"type:jsonb"`

	DataAgeMs    int   `gorm:"not null;default:0"`
	LLMLatencyMs int64 `gorm:"column:llm_latency_ms;not null;default:0"`

	ExpiresAt *time.Time `gorm:"type:timestamptz;index"`
	CreatedAt time.Time  `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt time.Time  `gorm:"type:timestamptz;autoUpdateTime"`
}

func (AIDecision) TableName() string {
	return "ai_decisions"
}
