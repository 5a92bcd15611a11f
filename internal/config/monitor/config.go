package monitor_config

import (
	"time"

	"github.com/NordCoder/Hertz/internal/obs"
	pg "github.com/NordCoder/Hertz/internal/repository/postgres"
	"github.com/NordCoder/Hertz/internal/services/prober"
)

const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type Server struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
	Output string `mapstructure:"output"`
}

type Store struct {
	Driver       string        `mapstructure:"driver"`
	Path         string        `mapstructure:"path"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type Probe struct {
	Timeout         time.Duration `mapstructure:"timeout"`
	UserAgent       string        `mapstructure:"user_agent"`
	FollowRedirects bool          `mapstructure:"follow_redirects"`
	VerifyTLS       bool          `mapstructure:"verify_tls"`
}

type History struct {
	Capacity int `mapstructure:"capacity"`
}

type Notify struct {
	Buffer int `mapstructure:"buffer"`
}

type Kafka struct {
	Enable       bool          `mapstructure:"enable"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	Workers      int           `mapstructure:"workers"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type Config struct {
	App     App       `mapstructure:"app"`
	Log     Log       `mapstructure:"log"`
	OTEL    OTEL      `mapstructure:"otel"`
	Server  Server    `mapstructure:"server"`
	Store   Store     `mapstructure:"store"`
	DB      pg.Config `mapstructure:"db"`
	Probe   Probe     `mapstructure:"probe"`
	History History   `mapstructure:"history"`
	Notify  Notify    `mapstructure:"notify"`
	Kafka   Kafka     `mapstructure:"kafka"`
}

func (c *Config) AsLoggerConfig() obs.LogConfig {
	return obs.LogConfig{
		Level:  c.Log.Level,
		Pretty: c.Log.Pretty,
		Output: c.Log.Output,
		App:    c.App.Name,
		Env:    c.App.Env,
		Ver:    c.App.Version,
	}
}

func (c *Config) AsOTELConfig() obs.OTELConfig {
	return obs.OTELConfig{
		Enable:      c.OTEL.Enable,
		Endpoint:    c.OTEL.OTLPEndpoint,
		ServiceName: c.OTEL.ServiceName,
		Version:     c.App.Version,
		Env:         c.App.Env,
		SampleRatio: c.OTEL.SampleRatio,
	}
}

func (c *Config) AsProberConfig() prober.Config {
	return prober.Config{
		Timeout:         c.Probe.Timeout,
		UserAgent:       c.Probe.UserAgent,
		FollowRedirects: c.Probe.FollowRedirects,
		VerifyTLS:       c.Probe.VerifyTLS,
	}
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }
