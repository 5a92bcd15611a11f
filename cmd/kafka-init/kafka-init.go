package main

import (
	"context"
	"flag"
	"log"
	"time"

	config "github.com/NordCoder/Hertz/internal/config/monitor"
	"github.com/NordCoder/Hertz/internal/obs"
	kafkarepo "github.com/NordCoder/Hertz/internal/repository/kafka"
	"go.uber.org/zap"
)

func main() {
	cfgPath := flag.String("config", "config/monitor.yaml", "path to the YAML config")
	partitions := flag.Int("partitions", 3, "partitions for the outcome topic")
	rf := flag.Int("replication", 1, "replication factor for the outcome topic")
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

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	err = kafkarepo.EnsureTopic(ctx, cfg.Kafka.Brokers, kafkarepo.TopicSpec{
		Name:              cfg.Kafka.Topic,
		NumPartitions:     *partitions,
		ReplicationFactor: *rf,
		MaxWait:           30 * time.Second,
	}, l)
	if err != nil {
		l.Fatal("ensure topic", zap.String("topic", cfg.Kafka.Topic), zap.Error(err))
	}
	l.Info("kafka-init ok", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
}
