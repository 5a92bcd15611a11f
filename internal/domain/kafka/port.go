package kafka

import (
	"context"
	"time"
)

// OutcomeEvent is the wire form of one recorded probe outcome.
type OutcomeEvent struct {
	EventID   string    `json:"event_id"`
	Service   string    `json:"service"`
	Status    string    `json:"status"`
	Previous  string    `json:"previous"`
	Changed   bool      `json:"changed"`
	LatencyMs float64   `json:"latency_ms"`
	Code      int       `json:"code,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	At        time.Time `json:"at"`
}

type OutcomeEvents interface {
	PublishOutcome(ctx context.Context, ev OutcomeEvent) error
}
