package obs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_Level(t *testing.T) {
	l, err := NewLogger(LogConfig{Level: "debug", App: "hertz"})
	require.NoError(t, err)
	require.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = NewLogger(LogConfig{Level: "nonsense", Pretty: true})
	require.NoError(t, err)
	require.False(t, l.Core().Enabled(zapcore.DebugLevel))
	require.True(t, l.Core().Enabled(zapcore.InfoLevel))
}

func TestMetricsMux_Healthz(t *testing.T) {
	var down atomic.Bool
	srv := httptest.NewServer(metricsMux(func(context.Context) error {
		if !down.Load() {
			return nil
		}
		return errors.New("engine stopped")
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	down.Store(true)
	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWithTrace_NoSpanKeepsLogger(t *testing.T) {
	l := zap.NewNop()
	require.Same(t, l, WithTrace(context.Background(), l))
	require.Nil(t, WithTrace(context.Background(), nil))

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{1},
		SpanID:  trace.SpanID{2},
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	require.NotSame(t, l, WithTrace(ctx, l))
}

func TestSetupOTel_Disabled(t *testing.T) {
	o, err := SetupOTel(context.Background(), OTELConfig{Enable: false}, zap.NewNop())
	require.NoError(t, err)
	require.Nil(t, o.TracerProvider)
	require.NoError(t, o.Shutdown(context.Background()))
}

func TestNewLogger_FileOutputWithFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hertz.log")
	l, err := NewLogger(LogConfig{Level: "info", Output: path, App: "hertz", Env: "test"})
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		l.Info("probe", zap.Int("i", i))
	}
	require.NoError(t, l.Sync())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 200, "repeated lines must not be sampled away")
	require.Contains(t, lines[0], `"service":"hertz"`)
	require.Contains(t, lines[0], `"env":"test"`)
	require.NotContains(t, lines[0], `"version"`)
}
