package obs

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogConfig struct {
	Level  string
	Pretty bool
	// Output is a zap sink: "stdout", "stderr" or a file path. Empty means stderr.
	Output string
	App    string
	Env    string
	Ver    string
}

// NewLogger builds a JSON (or console when Pretty) logger. Sampling is off: per-probe
// lines repeat by nature and must not be thinned out.
func NewLogger(c LogConfig) (*zap.Logger, error) {
	base := zap.NewProductionConfig()
	if c.Pretty {
		base = zap.NewDevelopmentConfig()
	}
	base.Sampling = nil
	base.Level = zap.NewAtomicLevelAt(parseLevel(c.Level))
	base.EncoderConfig.TimeKey = "ts"
	base.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	base.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	if c.Output != "" {
		base.OutputPaths = []string{c.Output}
	}

	var fields []zap.Field
	if c.App != "" {
		fields = append(fields, zap.String("service", c.App))
	}
	if c.Env != "" {
		fields = append(fields, zap.String("env", c.Env))
	}
	if c.Ver != "" {
		fields = append(fields, zap.String("version", c.Ver))
	}

	l, err := base.Build(zap.Fields(fields...))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}

func parseLevel(s string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(s)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}
