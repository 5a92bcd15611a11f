package kafka

import (
	"context"

	"go.uber.org/zap"
)

// BootstrapProducer makes sure the topic exists before handing out a producer. A topic that
// cannot be confirmed is logged and left to auto-creation on first write.
func BootstrapProducer(ctx context.Context, cfg ProducerConfig, log *zap.Logger) *Producer {
	if err := EnsureTopic(ctx, cfg.Brokers, TopicSpec{Name: cfg.Topic}, log); err != nil && log != nil {
		log.Warn("ensure topic failed", zap.String("topic", cfg.Topic), zap.Error(err))
	}
	return NewProducer(cfg).WithLogger(log)
}
