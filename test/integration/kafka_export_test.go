//go:build integration

package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	domain "github.com/NordCoder/Hertz/internal/domain/kafka"
	"github.com/NordCoder/Hertz/internal/domain/service"
	"github.com/NordCoder/Hertz/internal/repository/jsonfile"
	kafkarepo "github.com/NordCoder/Hertz/internal/repository/kafka"
	"github.com/NordCoder/Hertz/internal/services/exporter"
	"github.com/NordCoder/Hertz/internal/services/monitor"
	"github.com/NordCoder/Hertz/internal/services/prober"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestExport_OutcomesReachKafka(t *testing.T) {
	cfg := LoadCfg()
	WaitTCP(t, "kafka", cfg.KafkaBootstrap, 30*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, kafkarepo.EnsureTopic(ctx, []string{cfg.KafkaBootstrap}, kafkarepo.TopicSpec{Name: cfg.Topic}, zap.NewNop()))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	store := jsonfile.New(filepath.Join(t.TempDir(), "hertz_config.json"))
	reg := monitor.NewRegistry(store, 10, zap.NewNop())
	engine := monitor.New(ctx, reg, prober.New(prober.Config{Timeout: 2 * time.Second}), clockwork.NewRealClock(), zap.NewNop())
	require.NoError(t, engine.Start(ctx))
	defer engine.Close()

	prod := kafkarepo.NewProducer(kafkarepo.ProducerConfig{Brokers: []string{cfg.KafkaBootstrap}, Topic: cfg.Topic})
	defer func() { _ = prod.Close() }()

	runner := exporter.NewRunner(zap.NewNop(), engine, kafkarepo.NewOutcomeEvents(prod), exporter.Config{Workers: 2})
	go runner.Run(ctx)

	name := "it-" + time.Now().Format("150405.000000")
	_, err := engine.AddService(ctx, service.Config{Name: name, BaseURL: srv.URL, Interval: time.Second})
	require.NoError(t, err)

	ev, ok := ReadJSON(t, cfg.KafkaBootstrap, cfg.Topic, 30*time.Second, func(ev domain.OutcomeEvent) bool {
		return ev.Service == name
	})
	require.True(t, ok, "no outcome event for %s", name)
	require.Equal(t, "DOWN", ev.Status)
	require.Equal(t, "UNKNOWN", ev.Previous)
	require.True(t, ev.Changed)
	require.Equal(t, 503, ev.Code)
	require.NotEmpty(t, ev.EventID)
}
