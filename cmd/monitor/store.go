package main

import (
	"context"
	"fmt"
	"time"

	config "github.com/NordCoder/Hertz/internal/config/monitor"
	"github.com/NordCoder/Hertz/internal/domain/service"
	"github.com/NordCoder/Hertz/internal/obs"
	"github.com/NordCoder/Hertz/internal/repository/jsonfile"
	pg "github.com/NordCoder/Hertz/internal/repository/postgres"
	"go.uber.org/zap"
)

// openStore returns the configured config store, a health probe for it and a closer.
func openStore(ctx context.Context, cfg *config.Config, l *zap.Logger) (service.Store, obs.HealthFunc, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		db, err := pg.New(ctx, cfg.DB, l)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("db connect: %w", err)
		}
		health := func(ctx context.Context) error {
			hctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
			defer cancel()
			return db.Ping(hctx)
		}
		return pg.NewServiceStore(db, l), health, db.Close, nil
	default:
		return jsonfile.New(cfg.Store.Path).WithLogger(l), nil, func() {}, nil
	}
}
