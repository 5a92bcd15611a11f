package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	ErrAlreadyScheduled = errors.New("already scheduled")
	ErrInvalidInterval  = errors.New("interval must be positive")
	ErrClosed           = errors.New("scheduler closed")
)

var (
	mFirings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hertz_scheduler_firings_total", Help: "Tasks run by the scheduler.",
	})
	mDeferred = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hertz_scheduler_deferred_total", Help: "Firings that fell due while the previous task was still running.",
	})
	mRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hertz_scheduler_timers", Help: "Timers in the Running state.",
	})
)

// Task is one unit of scheduled work. It runs on the timer's goroutine, so a task
// never overlaps with itself.
type Task func(ctx context.Context)

type timer struct {
	cancel context.CancelFunc
}

// Scheduler keeps one fixed-rate timer per id. The first firing happens one full
// interval after Start; firing k is due at start+k*interval regardless of how long
// earlier tasks took. A firing that falls due while its task is still running is
// deferred until the task returns; further missed slots collapse into it.
type Scheduler struct {
	log   *zap.Logger
	clock clockwork.Clock
	base  context.Context
	stop  context.CancelFunc

	mu     sync.Mutex
	timers map[string]*timer
	closed bool
	wg     sync.WaitGroup
}

func New(ctx context.Context, clock clockwork.Clock, log *zap.Logger) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = zap.NewNop()
	}
	base, stop := context.WithCancel(ctx)
	return &Scheduler{
		log:    log.With(zap.String("component", "scheduler")),
		clock:  clock,
		base:   base,
		stop:   stop,
		timers: make(map[string]*timer),
	}
}

func (s *Scheduler) Start(id string, interval time.Duration, task Task) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if _, ok := s.timers[id]; ok {
		return ErrAlreadyScheduled
	}
	ctx, cancel := context.WithCancel(s.base)
	t := &timer{cancel: cancel}
	s.timers[id] = t
	mRunning.Inc()

	first := s.clock.Now().Add(interval)
	s.wg.Add(1)
	go s.run(ctx, id, interval, first, task)

	s.log.Debug("timer started", zap.String("id", id), zap.Duration("interval", interval))
	return nil
}

// Stop cancels future firings of id. A task already running is not interrupted.
func (s *Scheduler) Stop(id string) bool {
	s.mu.Lock()
	t, ok := s.timers[id]
	if ok {
		delete(s.timers, id)
	}
	s.mu.Unlock()

	if !ok {
		return false
	}
	t.cancel()
	mRunning.Dec()
	s.log.Debug("timer stopped", zap.String("id", id))
	return true
}

// StopAll stops every timer and refuses new ones.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	s.closed = true
	n := len(s.timers)
	s.timers = make(map[string]*timer)
	s.mu.Unlock()

	s.stop()
	mRunning.Sub(float64(n))
}

// Wait blocks until every timer goroutine, including running tasks, has returned.
func (s *Scheduler) Wait() { s.wg.Wait() }

func (s *Scheduler) Running() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.timers))
	for id := range s.timers {
		out = append(out, id)
	}
	return out
}

func (s *Scheduler) run(ctx context.Context, id string, interval time.Duration, next time.Time, task Task) {
	defer s.wg.Done()

	for {
		if wait := next.Sub(s.clock.Now()); wait > 0 {
			tm := s.clock.NewTimer(wait)
			select {
			case <-ctx.Done():
				tm.Stop()
				return
			case <-tm.Chan():
			}
		}
		if ctx.Err() != nil {
			return
		}

		mFirings.Inc()
		task(ctx)

		next = next.Add(interval)
		if now := s.clock.Now(); !now.Before(next) {
			missed := now.Sub(next) / interval
			next = next.Add(missed * interval)
			mDeferred.Inc()
			s.log.Debug("firing deferred by running task",
				zap.String("id", id),
				zap.Int64("collapsed", int64(missed)),
			)
		}
	}
}
