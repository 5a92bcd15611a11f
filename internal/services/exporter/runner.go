package exporter

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	domain "github.com/NordCoder/Hertz/internal/domain/kafka"
	"github.com/NordCoder/Hertz/internal/domain/service"
	"github.com/NordCoder/Hertz/internal/obs"
	"github.com/NordCoder/Hertz/internal/obs/retry"
	"github.com/NordCoder/Hertz/internal/services/monitor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	exportedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hertz_export_events_total",
		Help: "Outcome events handed to the publisher, by result.",
	}, []string{"result"})
	exportLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hertz_export_publish_seconds",
		Help:    "Time to publish one outcome event, retries included.",
		Buckets: prometheus.DefBuckets,
	})
)

// Source is the engine side of the exporter.
type Source interface {
	Subscribe(buffer int) (<-chan monitor.Notification, func())
}

type Config struct {
	Workers int
	Buffer  int
}

// Runner publishes every engine notification as an outcome event. Notifications of one service
// always go through the same worker so their order is kept.
type Runner struct {
	log     *zap.Logger
	src     Source
	pub     domain.OutcomeEvents
	policy  retry.Policy
	workers int
	buffer  int
}

func NewRunner(log *zap.Logger, src Source, pub domain.OutcomeEvents, cfg Config) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("component", "exporter"))
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = monitor.DefaultNotifyBuffer
	}
	return &Runner{
		log:     log,
		src:     src,
		pub:     pub,
		policy:  retry.DefaultKafkaPolicy(log),
		workers: cfg.Workers,
		buffer:  cfg.Buffer,
	}
}

func (r *Runner) WithPolicy(p retry.Policy) *Runner {
	cp := *r
	cp.policy = p
	return &cp
}

// Run blocks until ctx is done or the source closes the subscription, then drains the workers.
func (r *Runner) Run(ctx context.Context) {
	sub, unsubscribe := r.src.Subscribe(r.buffer)
	defer unsubscribe()

	queues := make([]chan monitor.Notification, r.workers)
	var wg sync.WaitGroup
	for i := range queues {
		queues[i] = make(chan monitor.Notification, r.buffer)
		wg.Add(1)
		go func(q <-chan monitor.Notification) {
			defer wg.Done()
			for n := range q {
				r.export(ctx, n)
			}
		}(queues[i])
	}
	r.log.Info("exporter started", zap.Int("workers", r.workers))

	defer func() {
		for _, q := range queues {
			close(q)
		}
		wg.Wait()
		r.log.Info("exporter stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-sub:
			if !ok {
				return
			}
			select {
			case queues[shard(n.ID, r.workers)] <- n:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (r *Runner) export(ctx context.Context, n monitor.Notification) {
	if ctx.Err() != nil {
		exportedEvents.WithLabelValues("canceled").Inc()
		return
	}
	ev := ToEvent(n)

	ctx, span := otel.Tracer("exporter").Start(ctx, "exporter.publish",
		trace.WithAttributes(
			attribute.String("service.name", ev.Service),
			attribute.String("event.id", ev.EventID),
			attribute.String("outcome.status", ev.Status),
		),
	)
	defer span.End()

	start := time.Now()
	err := retry.Do(ctx, func() error { return r.pub.PublishOutcome(ctx, ev) }, r.policy)
	exportLatency.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		exportedEvents.WithLabelValues("ok").Inc()
	case errors.Is(err, context.Canceled):
		exportedEvents.WithLabelValues("canceled").Inc()
	default:
		span.RecordError(err)
		exportedEvents.WithLabelValues("error").Inc()
		obs.WithTrace(ctx, r.log).Error("outcome event lost",
			zap.String("service", ev.Service),
			zap.String("event_id", ev.EventID),
			zap.Error(err),
		)
	}
}

func shard(id service.ID, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return int(h.Sum32() % uint32(n))
}
