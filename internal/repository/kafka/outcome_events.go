package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/NordCoder/Hertz/internal/domain/kafka"
)

var _ domain.OutcomeEvents = (*OutcomeEventsKafka)(nil)

type publisher interface {
	Publish(ctx context.Context, key, value []byte) error
}

// OutcomeEventsKafka encodes outcome events as JSON keyed by service name, so every event of one
// service lands on the same partition.
type OutcomeEventsKafka struct {
	p publisher
}

func NewOutcomeEvents(p publisher) *OutcomeEventsKafka { return &OutcomeEventsKafka{p: p} }

func (k *OutcomeEventsKafka) PublishOutcome(ctx context.Context, ev domain.OutcomeEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode outcome event: %w", err)
	}
	return k.p.Publish(ctx, []byte(ev.Service), b)
}
