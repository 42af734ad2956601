package agent

import (
	"context"

	"github.com/shopspring/decimal"
)

// FallbackDecider is a deterministic rule set used when no LLM is
// configured or the model call fails. It is intentionally conservative:
// it only buys on a clear oversold-with-momentum setup and only sells
// an existing position on an overbought one.
type FallbackDecider struct {
	MaxSizeUSD float64
}

func (d *FallbackDecider) ModelName() string { return "fallback" }

func (d *FallbackDecider) Decide(ctx context.Context, inputs AggregatedInputs) (*Decision, error) {
	hold := func(reason string) *Decision {
		return &Decision{Action: "HOLD", Confidence: 0.5, SizeUSD: decimal.Zero, Reasoning: reason, Model: d.ModelName()}
	}

	if inputs.Security.Verdict == "danger" {
		return hold("security verdict is danger"), nil
	}
	tech := inputs.Technical
	if tech.RSI == nil || tech.MACDHistogram == nil {
		return hold("insufficient indicator history"), nil
	}

	rsi := *tech.RSI
	hist := *tech.MACDHistogram

	if inputs.Risk.HasOpenPosition && rsi >= 70 && hist < 0 {
		return &Decision{
			Action:     "SELL",
			Confidence: 0.6,
			SizeUSD:    inputs.Risk.TokenExposureUSD,
			Reasoning:  "overbought with fading momentum, exiting position",
			Model:      d.ModelName(),
		}, nil
	}

	if rsi <= 30 && hist > 0 && inputs.Security.Verdict == "safe" {
		size := d.buySize(inputs)
		if size.IsPositive() {
			return &Decision{
				Action:     "BUY",
				Confidence: 0.55,
				SizeUSD:    size,
				Reasoning:  "oversold with positive momentum",
				Model:      d.ModelName(),
			}, nil
		}
	}

	return hold("no clear setup"), nil
}

func (d *FallbackDecider) buySize(inputs AggregatedInputs) decimal.Decimal {
	max := decimal.NewFromFloat(d.MaxSizeUSD)
	if max.LessThanOrEqual(decimal.Zero) {
		max = decimal.NewFromInt(25)
	}
	if inputs.Risk.MaxPerTokenUSD > 0 {
		remaining := decimal.NewFromFloat(inputs.Risk.MaxPerTokenUSD).Sub(inputs.Risk.TokenExposureUSD)
		if remaining.LessThan(max) {
			max = remaining
		}
	}
	if inputs.Risk.MaxTotalExposureUSD > 0 {
		remaining := decimal.NewFromFloat(inputs.Risk.MaxTotalExposureUSD).Sub(inputs.Risk.TotalExposureUSD)
		if remaining.LessThan(max) {
			max = remaining
		}
	}
	if max.IsNegative() {
		return decimal.Zero
	}
	return max
}
