package service

import "context"

// Store is the durable home of the monitored-service set.
type Store interface {
	Load(ctx context.Context) ([]Record, error)
	Save(ctx context.Context, cfgs []Config) error
}

type Prober interface {
	Probe(ctx context.Context, cfg Config) Outcome
}
