package signal

import (
	"context"
	"time"

	"numerusx/internal/models"
)

type HealthStatus struct {
	Status     string
	LastPollAt *time.Time
	LastError  *string
	Details    map[string]any
}

type SourceInfo struct {
	SourceType   string
	Endpoint     string
	PollInterval time.Duration
}

type SignalSourceInfo interface {
	SourceInfo() SourceInfo
}

// Collector produces market signals into the hub.
type Collector interface {
	Name() string
	Start(ctx context.Context, out chan<- models.Signal) error
	Stop() error
	Health() HealthStatus
}

// Signal types emitted by the built-in collectors.
const (
	TypePriceMove   = "price_move"
	TypeVolumeSpike = "volume_spike"
	TypeNewToken    = "new_token"
	TypeWhaleTrade  = "whale_trade"
	TypeMomentum    = "momentum"
)
