package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/NordCoder/Hertz/internal/config/monitor"
	"github.com/NordCoder/Hertz/internal/domain/service"
	"github.com/NordCoder/Hertz/internal/obs"
	kafkarepo "github.com/NordCoder/Hertz/internal/repository/kafka"
	"github.com/NordCoder/Hertz/internal/services/exporter"
	"github.com/NordCoder/Hertz/internal/services/monitor"
	"github.com/NordCoder/Hertz/internal/services/prober"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

func main() {
	cfgPath := flag.String("config", "config/monitor.yaml", "path to the YAML config")
	flag.Usage = usage
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	l, err := obs.NewLogger(cfg.AsLoggerConfig())
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()
	zap.ReplaceGlobals(l)

	root, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := flag.Args()
	if len(args) == 0 || args[0] == "run" {
		if err := run(root, cfg, l); err != nil {
			l.Fatal("monitor", zap.Error(err))
		}
		return
	}
	if err := admin(root, cfg, l, args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `usage: %s [-config path] [command]

commands:
  run                                   monitor every stored service (default)
  list                                  print stored services
  add <name> <url> [path] [interval]    store a new service (interval in seconds)
  remove <name>                         delete a stored service

`, os.Args[0])
	flag.PrintDefaults()
}

func run(root context.Context, cfg *config.Config, l *zap.Logger) error {
	otelCloser, err := obs.SetupOTel(root, cfg.AsOTELConfig(), l)
	if err != nil {
		return fmt.Errorf("otel init: %w", err)
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	store, health, closeStore, err := openStore(root, cfg, l)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := monitor.NewRegistry(store, cfg.History.Capacity, l).WithWriteTimeout(cfg.Store.WriteTimeout)
	p := prober.New(cfg.AsProberConfig()).WithLogger(l)
	engine := monitor.New(root, reg, p, clockwork.NewRealClock(), l)

	if err := engine.Start(root); err != nil {
		if !errors.Is(err, service.ErrInvalidConfig) {
			return fmt.Errorf("load services: %w", err)
		}
		l.Warn("some stored services were skipped", zap.Error(err))
	}

	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, health, l)

	done := make(chan struct{})
	go func() {
		defer close(done)
		newBoard(engine, l).Run(root, cfg.Notify.Buffer)
	}()

	if cfg.Kafka.Enable {
		prod := kafkarepo.BootstrapProducer(root, kafkarepo.ProducerConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			BatchTimeout: cfg.Kafka.BatchTimeout,
			WriteTimeout: cfg.Kafka.WriteTimeout,
		}, l)
		defer func() { _ = prod.Close() }()

		runner := exporter.NewRunner(l, engine, kafkarepo.NewOutcomeEvents(prod), exporter.Config{
			Workers: cfg.Kafka.Workers,
			Buffer:  cfg.Notify.Buffer,
		})
		exported := make(chan struct{})
		go func() {
			defer close(exported)
			runner.Run(root)
		}()
		defer func() { <-exported }()
	}

	l.Info("monitor running", zap.Int("services", len(engine.Snapshot())), zap.String("store", cfg.Store.Driver))
	<-root.Done()
	l.Info("shutting down")

	engine.Close()
	<-done

	if ms != nil {
		shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = ms.Shutdown(shCtx)
	}
	l.Info("bye")
	return nil
}
