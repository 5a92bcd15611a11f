package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/NordCoder/Hertz/internal/domain/service"
	"github.com/NordCoder/Hertz/internal/obs/retry"
	"go.uber.org/zap"
)

type serviceState struct {
	cfg     service.Config
	history *History
}

// Snapshot is a point-in-time copy of one service's config and derived status.
type Snapshot struct {
	Config      service.Config
	Status      service.Status
	LastCheck   time.Time
	LastLatency time.Duration
	LastDetail  string
	UptimePct   float64
	Checks      int
}

func (st *serviceState) snapshot() Snapshot {
	s := Snapshot{
		Config:    st.cfg,
		Status:    st.history.Status(),
		UptimePct: st.history.UptimePct(),
		Checks:    st.history.Len(),
	}
	if last, ok := st.history.Latest(); ok {
		s.LastCheck = last.Timestamp
		s.LastLatency = last.Latency
		s.LastDetail = last.Detail
	}
	return s
}

// Registry owns the monitored services in insertion order. A single lock guards the
// service list and every history, so listings are never torn across services.
// persistMu serializes store writes; mu is never held while writing.
type Registry struct {
	log      *zap.Logger
	store    service.Store
	capacity int
	policy   retry.Policy
	timeout  time.Duration

	persistMu sync.Mutex

	mu    sync.RWMutex
	order []service.ID
	byID  map[service.ID]*serviceState
}

func NewRegistry(store service.Store, capacity int, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &Registry{
		log:      log.With(zap.String("component", "monitor.registry")),
		store:    store,
		capacity: capacity,
		policy:   retry.StorePolicy(log),
		byID:     make(map[service.ID]*serviceState),
	}
}

// WithWriteTimeout bounds every store save, retries included.
func (r *Registry) WithWriteTimeout(d time.Duration) *Registry {
	r.timeout = d
	return r
}

// Load reads the store once. Invalid records are skipped; their errors are joined into
// the returned error (errors.Is(err, service.ErrInvalidConfig)). A store failure loads nothing.
func (r *Registry) Load(ctx context.Context) ([]service.Config, error) {
	if r.store == nil {
		return nil, nil
	}
	recs, err := r.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load services: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		loaded  []service.Config
		skipped []error
	)
	for _, rec := range recs {
		cfg, err := service.FromRecord(rec)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		if _, dup := r.byID[cfg.ID()]; dup {
			skipped = append(skipped, &service.ConfigError{Index: rec.Index, Name: cfg.Name, Field: "name", Reason: "is duplicated"})
			continue
		}
		r.insertLocked(cfg)
		loaded = append(loaded, cfg)
	}
	return loaded, errors.Join(skipped...)
}

func (r *Registry) Add(ctx context.Context, cfg service.Config) (service.ID, error) {
	cfg, err := service.Validate(cfg)
	if err != nil {
		return "", err
	}

	r.persistMu.Lock()
	defer r.persistMu.Unlock()

	r.mu.Lock()
	if _, dup := r.byID[cfg.ID()]; dup {
		r.mu.Unlock()
		return "", fmt.Errorf("%w: %q", service.ErrDuplicateName, cfg.Name)
	}
	r.insertLocked(cfg)
	r.mu.Unlock()

	return cfg.ID(), r.persist(ctx)
}

func (r *Registry) Remove(ctx context.Context, id service.ID) error {
	r.persistMu.Lock()
	defer r.persistMu.Unlock()

	r.mu.Lock()
	if _, ok := r.byID[id]; !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", service.ErrNotFound, id)
	}
	delete(r.byID, id)
	for i, x := range r.order {
		if x == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	return r.persist(ctx)
}

func (r *Registry) List() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Snapshot, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id].snapshot())
	}
	return out
}

func (r *Registry) Get(id service.ID) (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.byID[id]
	if !ok {
		return Snapshot{}, false
	}
	return st.snapshot(), true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

func (r *Registry) Recent(id service.ID, k int) ([]service.Outcome, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", service.ErrNotFound, id)
	}
	return st.history.Recent(k), nil
}

func (r *Registry) Configs() []service.Config {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]service.Config, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id].cfg)
	}
	return out
}

func (r *Registry) lookup(id service.ID) *serviceState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[id]
}

// record appends o to st's history if st is still the registered state for its id.
// It reports the previous status and whether the outcome was kept.
func (r *Registry) record(st *serviceState, o service.Outcome) (service.Status, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.byID[st.cfg.ID()]; !ok || cur != st {
		return service.StatusUnknown, false
	}
	prev := st.history.Status()
	st.history.Append(o)
	return prev, true
}

func (r *Registry) insertLocked(cfg service.Config) {
	r.byID[cfg.ID()] = &serviceState{cfg: cfg, history: NewHistory(r.capacity)}
	r.order = append(r.order, cfg.ID())
}

func (r *Registry) persist(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	cfgs := r.Configs()
	err := retry.Do(ctx, func() error { return r.store.Save(ctx, cfgs) }, r.policy)
	if err != nil {
		r.log.Error("persist services", zap.Int("count", len(cfgs)), zap.Error(err))
		return fmt.Errorf("%w: %w", service.ErrPersist, err)
	}
	r.log.Debug("services persisted", zap.Int("count", len(cfgs)))
	return nil
}
