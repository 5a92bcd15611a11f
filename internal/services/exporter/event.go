package exporter

import (
	"time"

	domain "github.com/NordCoder/Hertz/internal/domain/kafka"
	"github.com/NordCoder/Hertz/internal/services/monitor"
	"github.com/google/uuid"
)

// ToEvent maps an engine notification to its exported form.
func ToEvent(n monitor.Notification) domain.OutcomeEvent {
	return domain.OutcomeEvent{
		EventID:   uuid.NewString(),
		Service:   string(n.ID),
		Status:    n.Outcome.Status.String(),
		Previous:  n.Previous.String(),
		Changed:   n.Changed,
		LatencyMs: float64(n.Outcome.Latency) / float64(time.Millisecond),
		Code:      n.Outcome.Code,
		Detail:    n.Outcome.Detail,
		At:        n.Outcome.Timestamp.UTC(),
	}
}
