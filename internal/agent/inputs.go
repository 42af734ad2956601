package agent

import (
	"time"

	"github.com/shopspring/decimal"
)

// AggregatedInputs is everything the decision model sees for one mint.
// It is serialized into the prompt and stored verbatim on the decision
// row for audit.
type AggregatedInputs struct {
	Mint        string          `json:"mint"`
	Symbol      string          `json:"symbol,omitempty"`
	MarketData  MarketDataInput `json:"market_data"`
	Technical   TechnicalInput  `json:"technical"`
	Risk        RiskInput       `json:"risk"`
	Security    SecurityInput   `json:"security"`
	Signals     []SignalInput   `json:"signals,omitempty"`
	GeneratedAt time.Time       `json:"generated_at"`
	DataAgeMs   int             `json:"data_age_ms"`
}

type MarketDataInput struct {
	PriceUSD          decimal.Decimal `json:"price_usd"`
	LiquidityUSD      decimal.Decimal `json:"liquidity_usd"`
	Volume24hUSD      decimal.Decimal `json:"volume_24h_usd"`
	PriceChange1hPct  *float64        `json:"price_change_1h_pct,omitempty"`
	PriceChange24hPct *float64        `json:"price_change_24h_pct,omitempty"`
	CapturedAt        time.Time       `json:"captured_at"`
}

type TechnicalInput struct {
	RSI           *float64 `json:"rsi,omitempty"`
	EMAShort      *float64 `json:"ema_short,omitempty"`
	EMALong       *float64 `json:"ema_long,omitempty"`
	MACD          *float64 `json:"macd,omitempty"`
	MACDSignal    *float64 `json:"macd_signal,omitempty"`
	MACDHistogram *float64 `json:"macd_histogram,omitempty"`
	Volatility    *float64 `json:"volatility,omitempty"`
	Samples       int      `json:"samples"`
}

type RiskInput struct {
	TotalExposureUSD    decimal.Decimal `json:"total_exposure_usd"`
	TokenExposureUSD    decimal.Decimal `json:"token_exposure_usd"`
	MaxTotalExposureUSD float64         `json:"max_total_exposure_usd"`
	MaxPerTokenUSD      float64         `json:"max_per_token_usd"`
	OpenPositions       int64           `json:"open_positions"`
	DailyRealizedPnLUSD decimal.Decimal `json:"daily_realized_pnl_usd"`
	HasOpenPosition     bool            `json:"has_open_position"`
	PositionQuantity    decimal.Decimal `json:"position_quantity"`
	PositionAvgEntry    decimal.Decimal `json:"position_avg_entry"`
}

type SecurityInput struct {
	Verdict      string   `json:"verdict"`
	Score        float64  `json:"score"`
	Flags        []string `json:"flags,omitempty"`
	TopHolderPct float64  `json:"top_holder_pct"`
	LPLockedPct  float64  `json:"lp_locked_pct"`
}

type SignalInput struct {
	Type      string    `json:"type"`
	Source    string    `json:"source"`
	Direction string    `json:"direction"`
	Strength  float64   `json:"strength"`
	CreatedAt time.Time `json:"created_at"`
}

// Decision is what the model returns for one set of inputs.
type Decision struct {
	Action     string          `json:"action"` // BUY|SELL|HOLD
	Confidence float64         `json:"confidence"`
	SizeUSD    decimal.Decimal `json:"size_usd"`
	Reasoning  string          `json:"reasoning"`
	Model      string          `json:"-"`
	LatencyMs  int             `json:"-"`
}
