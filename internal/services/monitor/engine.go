package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/NordCoder/Hertz/internal/domain/service"
	"github.com/NordCoder/Hertz/internal/obs"
	"github.com/NordCoder/Hertz/internal/services/scheduler"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	mDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hertz_notifications_dropped_total", Help: "Notifications dropped on full subscriber queues.",
	})
	mDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hertz_outcomes_discarded_total", Help: "Outcomes of probes whose service was removed meanwhile.",
	})
	mChanges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hertz_status_changes_total", Help: "Recorded outcomes that changed a service status.",
	})
	mServices = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hertz_services", Help: "Monitored services.",
	})
)

// Engine composes the registry, the scheduler and the prober, and publishes every
// recorded outcome to subscribers.
type Engine struct {
	log    *zap.Logger
	reg    *Registry
	sched  *scheduler.Scheduler
	prober service.Prober
	hub    *hub

	// opMu keeps registry membership and timers in step.
	opMu sync.Mutex

	selMu    sync.RWMutex
	selected service.ID
}

func New(ctx context.Context, reg *Registry, prober service.Prober, clock clockwork.Clock, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		log:    log.With(zap.String("component", "monitor.engine")),
		reg:    reg,
		sched:  scheduler.New(ctx, clock, log),
		prober: prober,
		hub:    newHub(),
	}
}

// Start loads the registry and starts a timer per loaded service. Skipped records are
// logged and returned joined (errors.Is(err, service.ErrInvalidConfig)); the engine
// runs regardless. Any other error means nothing was loaded.
func (e *Engine) Start(ctx context.Context) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	loaded, err := e.reg.Load(ctx)
	if err != nil && !errors.Is(err, service.ErrInvalidConfig) {
		return err
	}
	for _, skipped := range unjoin(err) {
		e.log.Warn("skipped service record", zap.Error(skipped))
	}
	for _, cfg := range loaded {
		if serr := e.schedule(cfg.ID()); serr != nil {
			e.log.Error("schedule", zap.String("service", cfg.Name), zap.Error(serr))
		}
	}
	mServices.Set(float64(e.reg.Len()))
	e.log.Info("engine started", zap.Int("services", len(loaded)))
	return err
}

// AddService registers and schedules cfg. An error wrapping service.ErrPersist means the
// service is monitored but the store could not be updated.
func (e *Engine) AddService(ctx context.Context, cfg service.Config) (service.ID, error) {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	id, err := e.reg.Add(ctx, cfg)
	if err != nil && !errors.Is(err, service.ErrPersist) {
		return "", err
	}
	if serr := e.schedule(id); serr != nil {
		return id, serr
	}
	mServices.Set(float64(e.reg.Len()))
	e.log.Info("service added", zap.String("service", string(id)))
	return id, err
}

func (e *Engine) RemoveService(ctx context.Context, id service.ID) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	err := e.reg.Remove(ctx, id)
	if errors.Is(err, service.ErrNotFound) {
		return err
	}
	e.sched.Stop(string(id))

	e.selMu.Lock()
	if e.selected == id {
		e.selected = ""
	}
	e.selMu.Unlock()

	mServices.Set(float64(e.reg.Len()))
	e.log.Info("service removed", zap.String("service", string(id)))
	return err
}

// SelectService marks id as the source of the latency-series view. It has no effect on
// scheduling.
func (e *Engine) SelectService(id service.ID) error {
	if _, ok := e.reg.Get(id); !ok {
		return fmt.Errorf("%w: %q", service.ErrNotFound, id)
	}
	e.selMu.Lock()
	e.selected = id
	e.selMu.Unlock()
	return nil
}

func (e *Engine) Selected() (service.ID, bool) {
	e.selMu.RLock()
	defer e.selMu.RUnlock()
	return e.selected, e.selected != ""
}

// SelectedSeries returns the last k outcomes of the selected service, nil when nothing
// is selected.
func (e *Engine) SelectedSeries(k int) ([]service.Outcome, error) {
	id, ok := e.Selected()
	if !ok {
		return nil, nil
	}
	return e.reg.Recent(id, k)
}

func (e *Engine) Snapshot() []Snapshot { return e.reg.List() }

func (e *Engine) Get(id service.ID) (Snapshot, bool) { return e.reg.Get(id) }

func (e *Engine) Recent(id service.ID, k int) ([]service.Outcome, error) {
	return e.reg.Recent(id, k)
}

func (e *Engine) Subscribe(buffer int) (<-chan Notification, func()) {
	return e.hub.subscribe(buffer)
}

// Close stops every timer, waits for in-flight probes and closes subscriber channels.
func (e *Engine) Close() {
	e.sched.StopAll()
	e.sched.Wait()
	e.hub.close()
	e.log.Info("engine stopped")
}

func (e *Engine) schedule(id service.ID) error {
	st := e.reg.lookup(id)
	if st == nil {
		return fmt.Errorf("%w: %q", service.ErrNotFound, id)
	}
	return e.sched.Start(string(id), st.cfg.Interval, e.probeTask(st))
}

func (e *Engine) probeTask(st *serviceState) scheduler.Task {
	tr := otel.Tracer("monitor.engine")
	return func(ctx context.Context) {
		// A removed service's in-flight probe runs to completion; its outcome is dropped below.
		pctx, span := tr.Start(context.WithoutCancel(ctx), "monitor.probe",
			trace.WithAttributes(
				attribute.String("service.name", st.cfg.Name),
				attribute.String("service.url", st.cfg.TargetURL()),
			),
		)
		out := e.prober.Probe(pctx, st.cfg)
		span.SetAttributes(attribute.String("probe.status", out.Status.String()))
		span.End()

		prev, kept := e.reg.record(st, out)
		if !kept {
			mDiscarded.Inc()
			obs.WithTrace(pctx, e.log).Debug("outcome discarded", zap.String("service", st.cfg.Name))
			return
		}

		n := Notification{
			ID:       st.cfg.ID(),
			Outcome:  out,
			Previous: prev,
			Changed:  prev != out.Status,
		}
		if n.Changed {
			mChanges.Inc()
			obs.WithTrace(pctx, e.log).Info("status changed",
				zap.String("service", st.cfg.Name),
				zap.String("old", prev.String()),
				zap.String("new", out.Status.String()),
				zap.String("detail", out.Detail),
			)
		}
		if dropped := e.hub.publish(n); dropped > 0 {
			mDropped.Add(float64(dropped))
		}
	}
}

func unjoin(err error) []error {
	if err == nil {
		return nil
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}
