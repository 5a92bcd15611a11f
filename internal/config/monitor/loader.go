package monitor_config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetDefault("app.name", "hertz")
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.version", "dev")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.output", "stderr")

	v.SetDefault("otel.enable", false)
	v.SetDefault("otel.service_name", "hertz")
	v.SetDefault("otel.sample_ratio", 1.0)
	v.SetDefault("otel.otlp_endpoint", "localhost:4317")

	v.SetDefault("server.metrics_addr", ":9100")

	v.SetDefault("store.driver", DriverFile)
	v.SetDefault("store.path", "hertz_config.json")
	v.SetDefault("store.write_timeout", "5s")

	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("db.max_conn_lifetime", "30m")
	v.SetDefault("db.max_conn_idle_time", "10m")
	v.SetDefault("db.health_check_period", "30s")
	v.SetDefault("db.query_timeout", "2s")

	v.SetDefault("probe.timeout", "5s")
	v.SetDefault("probe.user_agent", "Hertz/1.0")
	v.SetDefault("probe.follow_redirects", true)
	v.SetDefault("probe.verify_tls", true)

	v.SetDefault("history.capacity", 60)
	v.SetDefault("notify.buffer", 64)

	v.SetDefault("kafka.enable", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9094"})
	v.SetDefault("kafka.topic", "hertz.outcomes")
	v.SetDefault("kafka.workers", 2)
	v.SetDefault("kafka.batch_timeout", "50ms")
	v.SetDefault("kafka.write_timeout", "10s")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverFile:
		if c.Store.Path == "" {
			return ErrConfig("store.path is empty")
		}
	case DriverPostgres:
		if c.DB.DSN == "" {
			return ErrConfig("store.driver is postgres but db.dsn is empty")
		}
	default:
		return ErrConfig(fmt.Sprintf("unknown store.driver %q", c.Store.Driver))
	}
	if c.History.Capacity <= 0 {
		return ErrConfig("history.capacity must be positive")
	}
	if c.Probe.Timeout <= 0 {
		return ErrConfig("probe.timeout must be positive")
	}
	if c.Kafka.Enable && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return ErrConfig("kafka.enable needs kafka.brokers and kafka.topic")
	}
	return nil
}
