package monitor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/NordCoder/Hertz/internal/domain/service"
	"github.com/NordCoder/Hertz/internal/services/prober"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock interface {
	clockwork.Clock
	Advance(time.Duration)
	BlockUntilContext(context.Context, int) error
}

func waitTimers(t *testing.T, fc fakeClock, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, fc.BlockUntilContext(ctx, n))
}

func recv(t *testing.T, ch <-chan Notification) Notification {
	t.Helper()
	select {
	case n, ok := <-ch:
		require.True(t, ok, "subscription closed")
		return n
	case <-time.After(3 * time.Second):
		t.Fatal("no notification")
		return Notification{}
	}
}

func newTestEngine(t *testing.T, p service.Prober, store service.Store) (*Engine, fakeClock) {
	t.Helper()
	fc := clockwork.NewFakeClock()
	e := New(context.Background(), newTestRegistry(store, 10), p, fc, zap.NewNop())
	t.Cleanup(e.Close)
	return e, fc
}

func TestEngine_FirstProbeAfterOneIntervalUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	var calls atomic.Int32
	inner := prober.New(prober.Config{Timeout: time.Second})
	p := proberFunc(func(ctx context.Context, c service.Config) service.Outcome {
		calls.Add(1)
		return inner.Probe(ctx, c)
	})
	e, fc := newTestEngine(t, p, &memStore{})
	sub, _ := e.Subscribe(4)

	id, err := e.AddService(context.Background(), service.Config{
		Name: "api", BaseURL: base, Path: "/health", Interval: 5 * time.Second,
	})
	require.NoError(t, err)
	waitTimers(t, fc, 1)

	snap := e.Snapshot()
	require.Len(t, snap, 1)
	require.Equal(t, service.StatusUnknown, snap[0].Status)

	fc.Advance(4 * time.Second)
	require.Never(t, func() bool { return calls.Load() > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	fc.Advance(time.Second)
	n := recv(t, sub)
	require.Equal(t, id, n.ID)
	require.Equal(t, service.StatusError, n.Outcome.Status)
	require.NotEmpty(t, n.Outcome.Detail)
	require.Equal(t, service.StatusUnknown, n.Previous)
	require.True(t, n.Changed)

	hist, err := e.Recent(id, 10)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	require.Equal(t, service.StatusError, hist[0].Status)
	require.Equal(t, service.StatusError, e.Snapshot()[0].Status)
}

func TestEngine_HungServiceDoesNotDelayOthers(t *testing.T) {
	hang := make(chan struct{})
	p := proberFunc(func(ctx context.Context, c service.Config) service.Outcome {
		if c.Name == "a" {
			<-hang
		}
		return service.Outcome{Status: service.StatusUp, Latency: time.Millisecond}
	})
	e, fc := newTestEngine(t, p, nil)
	t.Cleanup(func() { close(hang) }) // runs before e.Close

	sub, _ := e.Subscribe(16)
	ctx := context.Background()
	_, err := e.AddService(ctx, cfg("a", time.Second))
	require.NoError(t, err)
	_, err = e.AddService(ctx, cfg("b", 2*time.Second))
	require.NoError(t, err)
	waitTimers(t, fc, 2)

	fc.Advance(time.Second) // a fires and hangs
	waitTimers(t, fc, 1)    // only b waits now
	fc.Advance(time.Second) // b due at t=2s
	n := recv(t, sub)
	require.Equal(t, service.ID("b"), n.ID)

	waitTimers(t, fc, 1)
	fc.Advance(2 * time.Second) // b due at t=4s
	require.Equal(t, service.ID("b"), recv(t, sub).ID)

	got, err := e.Recent("b", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	ga, err := e.Recent("a", 10)
	require.NoError(t, err)
	require.Empty(t, ga)
}

func TestEngine_RemoveDiscardsInFlightOutcome(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	var calls atomic.Int32
	p := proberFunc(func(ctx context.Context, c service.Config) service.Outcome {
		calls.Add(1)
		started <- struct{}{}
		<-release
		return service.Outcome{Status: service.StatusUp}
	})
	store := &memStore{}
	e, fc := newTestEngine(t, p, store)
	sub, _ := e.Subscribe(4)
	ctx := context.Background()

	_, err := e.AddService(ctx, cfg("api", time.Second))
	require.NoError(t, err)
	require.NoError(t, e.SelectService("api"))
	waitTimers(t, fc, 1)
	fc.Advance(time.Second)
	<-started

	require.NoError(t, e.RemoveService(ctx, "api"))
	_, selected := e.Selected()
	require.False(t, selected)
	close(release)

	fc.Advance(10 * time.Second)
	select {
	case n := <-sub:
		t.Fatalf("unexpected notification %+v", n)
	case <-time.After(100 * time.Millisecond):
	}
	require.Equal(t, int32(1), calls.Load())
	require.Empty(t, e.Snapshot())
	_, err = e.Recent("api", 1)
	require.ErrorIs(t, err, service.ErrNotFound)

	_, saved := store.snapshot()
	require.Empty(t, saved)
}

func TestEngine_StatusChangeNotifications(t *testing.T) {
	statuses := []service.Status{service.StatusUp, service.StatusUp, service.StatusDown}
	var i atomic.Int32
	p := proberFunc(func(ctx context.Context, c service.Config) service.Outcome {
		st := statuses[int(i.Add(1)-1)%len(statuses)]
		return service.Outcome{Status: st}
	})
	e, fc := newTestEngine(t, p, nil)
	sub, _ := e.Subscribe(8)

	_, err := e.AddService(context.Background(), cfg("api", time.Second))
	require.NoError(t, err)

	var changed []bool
	for k := 0; k < 3; k++ {
		waitTimers(t, fc, 1)
		fc.Advance(time.Second)
		changed = append(changed, recv(t, sub).Changed)
	}
	require.Equal(t, []bool{true, false, true}, changed)
}

func TestEngine_FullSubscriberDropsInsteadOfBlocking(t *testing.T) {
	p := proberFunc(func(ctx context.Context, c service.Config) service.Outcome {
		return service.Outcome{Status: service.StatusUp}
	})
	e, fc := newTestEngine(t, p, nil)
	slow, _ := e.Subscribe(1)
	fast, _ := e.Subscribe(8)

	_, err := e.AddService(context.Background(), cfg("api", time.Second))
	require.NoError(t, err)
	for k := 0; k < 3; k++ {
		waitTimers(t, fc, 1)
		fc.Advance(time.Second)
		recv(t, fast)
	}

	require.Len(t, slow, 1)
	hist, err := e.Recent("api", 10)
	require.NoError(t, err)
	require.Len(t, hist, 3)
}

func TestEngine_StartLoadsStoreAndReportsSkipped(t *testing.T) {
	store := &memStore{recs: []service.Record{
		{Index: 0, Name: "api", URL: "http://localhost:9999", Path: "/health", CheckInterval: 5},
		{Index: 1, Name: "broken", URL: "http://localhost:9998", Path: "/", CheckInterval: -1},
		{Index: 2, Name: "web", URL: "http://localhost:9997", Path: "/", CheckInterval: 10},
	}}
	p := proberFunc(func(ctx context.Context, c service.Config) service.Outcome {
		return service.Outcome{Status: service.StatusUp}
	})
	e, fc := newTestEngine(t, p, store)

	err := e.Start(context.Background())
	require.ErrorIs(t, err, service.ErrInvalidConfig)

	snap := e.Snapshot()
	require.Len(t, snap, 2)
	require.Equal(t, "api", snap[0].Config.Name)
	require.Equal(t, "web", snap[1].Config.Name)
	waitTimers(t, fc, 2)
}

func TestEngine_SelectService(t *testing.T) {
	p := proberFunc(func(ctx context.Context, c service.Config) service.Outcome {
		return service.Outcome{Status: service.StatusUp, Latency: 3 * time.Millisecond}
	})
	e, fc := newTestEngine(t, p, nil)
	sub, _ := e.Subscribe(4)

	require.ErrorIs(t, e.SelectService("nope"), service.ErrNotFound)
	series, err := e.SelectedSeries(10)
	require.NoError(t, err)
	require.Nil(t, series)

	_, err = e.AddService(context.Background(), cfg("api", time.Second))
	require.NoError(t, err)
	require.NoError(t, e.SelectService("api"))
	id, ok := e.Selected()
	require.True(t, ok)
	require.Equal(t, service.ID("api"), id)

	waitTimers(t, fc, 1)
	fc.Advance(time.Second)
	recv(t, sub)

	series, err = e.SelectedSeries(10)
	require.NoError(t, err)
	require.Len(t, series, 1)
	require.Equal(t, 3*time.Millisecond, series[0].Latency)
}

func TestEngine_CloseClosesSubscriptions(t *testing.T) {
	e := New(context.Background(), newTestRegistry(nil, 10), proberFunc(func(context.Context, service.Config) service.Outcome {
		return service.Outcome{}
	}), clockwork.NewFakeClock(), nil)
	sub, unsubscribe := e.Subscribe(1)
	e.Close()

	_, ok := <-sub
	require.False(t, ok)
	unsubscribe()

	late, _ := e.Subscribe(1)
	_, ok = <-late
	require.False(t, ok)
}
