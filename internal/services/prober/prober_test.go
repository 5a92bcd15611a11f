package prober

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/NordCoder/Hertz/internal/domain/service"
	"github.com/stretchr/testify/require"
)

func svc(base, path string) service.Config {
	return service.Config{Name: "api", BaseURL: base, Path: path, Interval: 5 * time.Second}
}

func TestProbe_200IsUp(t *testing.T) {
	var gotPath, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUA = r.UserAgent()
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	p := New(Config{UserAgent: "Hertz/test", FollowRedirects: true})
	before := time.Now()
	out := p.Probe(context.Background(), svc(srv.URL+"/", "/health"))

	require.Equal(t, service.StatusUp, out.Status)
	require.Equal(t, http.StatusOK, out.Code)
	require.Greater(t, out.Latency, time.Duration(0))
	require.Empty(t, out.Detail)
	require.False(t, out.Timestamp.Before(before))
	require.Equal(t, "/health", gotPath)
	require.Equal(t, "Hertz/test", gotUA)
}

func TestProbe_500IsDownWithCode(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	out := New(Config{}).Probe(context.Background(), svc(srv.URL, "/"))

	require.Equal(t, service.StatusDown, out.Status)
	require.Equal(t, "500", out.Detail)
	require.Equal(t, 500, out.Code)
	require.Greater(t, out.Latency, time.Duration(0))
	require.EqualValues(t, 1, hits.Load(), "a probe is a single attempt")
}

func TestProbe_NonOKSuccessCodeIsDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	out := New(Config{}).Probe(context.Background(), svc(srv.URL, "/"))
	require.Equal(t, service.StatusDown, out.Status)
	require.Equal(t, "204", out.Detail)
}

func TestProbe_RedirectPolicy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/old" {
			http.Redirect(w, r, "/new", http.StatusMovedPermanently)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	follow := New(Config{FollowRedirects: true}).Probe(context.Background(), svc(srv.URL, "/old"))
	require.Equal(t, service.StatusUp, follow.Status)

	stay := New(Config{FollowRedirects: false}).Probe(context.Background(), svc(srv.URL, "/old"))
	require.Equal(t, service.StatusDown, stay.Status)
	require.Equal(t, "301", stay.Detail)
}

func TestProbe_ConnectionRefusedIsError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	out := New(Config{}).Probe(context.Background(), svc(base, "/health"))

	require.Equal(t, service.StatusError, out.Status)
	require.NotEmpty(t, out.Detail)
	require.Zero(t, out.Latency)
	require.Zero(t, out.Code)
}

func TestProbe_TimeoutIsError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	p := New(Config{Timeout: 100 * time.Millisecond})
	start := time.Now()
	out := p.Probe(context.Background(), svc(srv.URL, "/"))

	require.Equal(t, service.StatusError, out.Status)
	require.Contains(t, out.Detail, "timeout")
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestProbe_BadURLIsError(t *testing.T) {
	out := New(Config{}).Probe(context.Background(), svc("http://[::1", "/"))
	require.Equal(t, service.StatusError, out.Status)
	require.NotEmpty(t, out.Detail)
}
