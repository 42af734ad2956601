package agent

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
)

func f(v float64) *float64 { return &v }

func baseInputs() AggregatedInputs {
	return AggregatedInputs{
		Mint: "MintAAA",
		Technical: TechnicalInput{
			RSI:           f(50),
			MACDHistogram: f(0),
			Samples:       120,
		},
		Security: SecurityInput{Verdict: "safe"},
		Risk: RiskInput{
			MaxTotalExposureUSD: 1000,
			MaxPerTokenUSD:      200,
			TotalExposureUSD:    decimal.Zero,
			TokenExposureUSD:    decimal.Zero,
		},
	}
}

func TestFallbackHoldsByDefault(t *testing.T) {
	d := &FallbackDecider{MaxSizeUSD: 50}
	decision, err := d.Decide(context.Background(), baseInputs())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Action != "HOLD" {
		t.Fatalf("neutral inputs should HOLD, got %s", decision.Action)
	}
	if decision.Model != "fallback" {
		t.Fatalf("unexpected model %q", decision.Model)
	}
}

func TestFallbackBuysOversoldMomentum(t *testing.T) {
	inputs := baseInputs()
	inputs.Technical.RSI = f(25)
	inputs.Technical.MACDHistogram = f(0.002)

	d := &FallbackDecider{MaxSizeUSD: 50}
	decision, err := d.Decide(context.Background(), inputs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Action != "BUY" {
		t.Fatalf("expected BUY, got %s (%s)", decision.Action, decision.Reasoning)
	}
	if !decision.SizeUSD.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("unexpected size %s", decision.SizeUSD)
	}
}

func TestFallbackNeverBuysOnWarnVerdict(t *testing.T) {
	inputs := baseInputs()
	inputs.Technical.RSI = f(25)
	inputs.Technical.MACDHistogram = f(0.002)
	inputs.Security.Verdict = "warn"

	d := &FallbackDecider{MaxSizeUSD: 50}
	decision, _ := d.Decide(context.Background(), inputs)
	if decision.Action != "HOLD" {
		t.Fatalf("warn verdict should block fallback BUY, got %s", decision.Action)
	}
}

func TestFallbackHoldsOnDanger(t *testing.T) {
	inputs := baseInputs()
	inputs.Technical.RSI = f(25)
	inputs.Technical.MACDHistogram = f(0.002)
	inputs.Security.Verdict = "danger"

	d := &FallbackDecider{MaxSizeUSD: 50}
	decision, _ := d.Decide(context.Background(), inputs)
	if decision.Action != "HOLD" {
		t.Fatalf("danger verdict must HOLD, got %s", decision.Action)
	}
}

func TestFallbackSellsOverboughtPosition(t *testing.T) {
	inputs := baseInputs()
	inputs.Technical.RSI = f(78)
	inputs.Technical.MACDHistogram = f(-0.001)
	inputs.Risk.HasOpenPosition = true
	inputs.Risk.TokenExposureUSD = decimal.NewFromInt(120)

	d := &FallbackDecider{MaxSizeUSD: 50}
	decision, _ := d.Decide(context.Background(), inputs)
	if decision.Action != "SELL" {
		t.Fatalf("expected SELL, got %s", decision.Action)
	}
	if !decision.SizeUSD.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("sell should cover the position, got %s", decision.SizeUSD)
	}
}

func TestFallbackRespectsTokenCap(t *testing.T) {
	inputs := baseInputs()
	inputs.Technical.RSI = f(25)
	inputs.Technical.MACDHistogram = f(0.002)
	inputs.Risk.TokenExposureUSD = decimal.NewFromInt(190)

	d := &FallbackDecider{MaxSizeUSD: 50}
	decision, _ := d.Decide(context.Background(), inputs)
	if decision.Action != "BUY" {
		t.Fatalf("expected BUY, got %s", decision.Action)
	}
	if !decision.SizeUSD.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("size should shrink to remaining token capacity, got %s", decision.SizeUSD)
	}
}

func TestFallbackHoldsWithoutIndicators(t *testing.T) {
	inputs := baseInputs()
	inputs.Technical.RSI = nil

	d := &FallbackDecider{MaxSizeUSD: 50}
	decision, _ := d.Decide(context.Background(), inputs)
	if decision.Action != "HOLD" {
		t.Fatalf("missing indicators must HOLD, got %s", decision.Action)
	}
}
