package prober

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/NordCoder/Hertz/internal/domain/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// maxDrain bounds how much of a response body is read so the connection can be reused.
const maxDrain = 64 << 10

var (
	mProbes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hertz_probes_total", Help: "Probes by classified status.",
	}, []string{"status"})
	mLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hertz_probe_latency_seconds",
		Help:    "Latency of probes that received a response.",
		Buckets: prometheus.DefBuckets,
	})
)

var _ service.Prober = (*Prober)(nil)

// Prober performs exactly one GET per call and never retries.
type Prober struct {
	c   *http.Client
	cfg Config
	now func() time.Time
	log *zap.Logger
}

func New(cfg Config) *Prober {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Prober{
		c:   NewHTTPClient(cfg),
		cfg: cfg,
		now: time.Now,
		log: zap.L().With(zap.String("component", "prober")),
	}
}

func (p *Prober) WithLogger(l *zap.Logger) *Prober {
	if l == nil {
		return p
	}
	cp := *p
	cp.log = l.With(zap.String("component", "prober"))
	return &cp
}

func (p *Prober) Probe(ctx context.Context, cfg service.Config) service.Outcome {
	start := p.now()
	out := p.probe(ctx, cfg.TargetURL(), start)
	out.Timestamp = start

	mProbes.WithLabelValues(out.Status.String()).Inc()
	if out.Status != service.StatusError {
		mLatency.Observe(out.Latency.Seconds())
	}
	p.log.Debug("probe",
		zap.String("service", cfg.Name),
		zap.String("status", out.Status.String()),
		zap.Int("code", out.Code),
		zap.Int64("latency_ms", out.Latency.Milliseconds()),
		zap.String("detail", out.Detail),
	)
	return out
}

func (p *Prober) probe(ctx context.Context, url string, start time.Time) service.Outcome {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return failed(fmt.Errorf("build request: %w", err))
	}
	if p.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", p.cfg.UserAgent)
	}

	resp, err := p.c.Do(req)
	if err != nil {
		return failed(p.cause(err))
	}
	lat := p.now().Sub(start)
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))

	if resp.StatusCode == http.StatusOK {
		return service.Outcome{Status: service.StatusUp, Latency: lat, Code: resp.StatusCode}
	}
	return service.Outcome{
		Status:  service.StatusDown,
		Latency: lat,
		Code:    resp.StatusCode,
		Detail:  strconv.Itoa(resp.StatusCode),
	}
}

func (p *Prober) cause(err error) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return fmt.Errorf("timeout after %s: %w", p.cfg.Timeout, err)
	}
	return err
}

func failed(err error) service.Outcome {
	return service.Outcome{Status: service.StatusError, Detail: err.Error()}
}
