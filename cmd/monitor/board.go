package main

import (
	"context"
	"time"

	"github.com/NordCoder/Hertz/internal/services/monitor"
	"go.uber.org/zap"
)

// board is the headless stand-in for a dashboard: it follows the engine's notifications
// and logs one line per recorded outcome.
type board struct {
	engine *monitor.Engine
	log    *zap.Logger
}

func newBoard(e *monitor.Engine, l *zap.Logger) *board {
	return &board{engine: e, log: l.With(zap.String("component", "board"))}
}

func (b *board) Run(ctx context.Context, buffer int) {
	sub, unsubscribe := b.engine.Subscribe(buffer)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-sub:
			if !ok {
				return
			}
			b.show(n)
		}
	}
}

func (b *board) show(n monitor.Notification) {
	fields := []zap.Field{
		zap.String("service", string(n.ID)),
		zap.String("status", n.Outcome.Status.String()),
		zap.Float64("latency_ms", float64(n.Outcome.Latency)/float64(time.Millisecond)),
	}
	if n.Outcome.Detail != "" {
		fields = append(fields, zap.String("detail", n.Outcome.Detail))
	}
	if snap, ok := b.engine.Get(n.ID); ok {
		fields = append(fields, zap.Float64("uptime_pct", snap.UptimePct), zap.Int("checks", snap.Checks))
	}
	b.log.Debug("probe", fields...)
}
