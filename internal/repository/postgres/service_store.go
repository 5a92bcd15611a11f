package postgres

import (
	"context"
	"fmt"

	"github.com/NordCoder/Hertz/internal/domain/service"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var _ service.Store = (*ServiceStore)(nil)

// ServiceStore keeps the ordered service set in table services. Every Save replaces the whole
// table in one transaction so readers never observe a partial set.
type ServiceStore struct {
	db  *DB
	tx  Transactor
	log *zap.Logger
}

func NewServiceStore(db *DB, log *zap.Logger) *ServiceStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &ServiceStore{
		db:  db,
		tx:  NewTransactor(db, log),
		log: log.With(zap.String("component", "postgres.service_store")),
	}
}

const (
	qListServices = `
SELECT position, name, url, path, interval_sec
FROM services
ORDER BY position;
`

	qClearServices = `DELETE FROM services;`

	qInsertService = `
INSERT INTO services (position, name, url, path, interval_sec)
VALUES ($1, $2, $3, $4, $5);
`
)

type serviceRow struct {
	Position    int    `db:"position"`
	Name        string `db:"name"`
	URL         string `db:"url"`
	Path        string `db:"path"`
	IntervalSec int    `db:"interval_sec"`
}

func (s *ServiceStore) Load(ctx context.Context) ([]service.Record, error) {
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.querier(ctx).Query(ctx, qListServices)
	if err != nil {
		return nil, fmt.Errorf("query services: %w", err)
	}
	list, err := pgx.CollectRows(rows, pgx.RowToStructByName[serviceRow])
	if err != nil {
		return nil, fmt.Errorf("scan services: %w", err)
	}

	out := make([]service.Record, 0, len(list))
	for i, r := range list {
		out = append(out, service.Record{
			Index:         i,
			Name:          r.Name,
			URL:           r.URL,
			Path:          r.Path,
			CheckInterval: r.IntervalSec,
		})
	}
	s.log.Debug("services loaded", zap.Int("count", len(out)))
	return out, nil
}

func (s *ServiceStore) Save(ctx context.Context, cfgs []service.Config) error {
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		q := s.db.querier(ctx)
		if _, err := q.Exec(ctx, qClearServices); err != nil {
			return fmt.Errorf("clear services: %w", err)
		}
		if len(cfgs) == 0 {
			return nil
		}

		b := &pgx.Batch{}
		for i, c := range cfgs {
			r := service.RecordOf(i, c)
			b.Queue(qInsertService, r.Index, r.Name, r.URL, r.Path, r.CheckInterval)
		}
		if err := q.SendBatch(ctx, b).Close(); err != nil {
			return fmt.Errorf("insert services: %w", err)
		}
		s.log.Debug("services saved", zap.Int("count", len(cfgs)))
		return nil
	})
}
