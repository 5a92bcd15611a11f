package monitor

import (
	"context"
	"sync"

	"github.com/NordCoder/Hertz/internal/domain/service"
)

type memStore struct {
	mu      sync.Mutex
	recs    []service.Record
	loadErr error
	saveErr error
	saves   int
	saved   []service.Config
}

func (m *memStore) Load(context.Context) ([]service.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recs, m.loadErr
}

func (m *memStore) Save(_ context.Context, cfgs []service.Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append([]service.Config(nil), cfgs...)
	return nil
}

func (m *memStore) snapshot() (int, []service.Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves, m.saved
}

type proberFunc func(ctx context.Context, cfg service.Config) service.Outcome

func (f proberFunc) Probe(ctx context.Context, cfg service.Config) service.Outcome { return f(ctx, cfg) }
