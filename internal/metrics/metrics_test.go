package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_NopWithoutGateway(t *testing.T) {
	rec, err := New(Config{}, nil)
	require.NoError(t, err)
	assert.IsType(t, Nop{}, rec)

	rec.ObserveUnit("success", time.Second)
	rec.RunFinished(true)
	assert.NoError(t, rec.Flush(context.Background()))
}

func TestNewPushgateway_RequiresURL(t *testing.T) {
	_, err := NewPushgateway(Config{}, nil)
	assert.ErrorContains(t, err, "pushgateway URL is required")
}

func TestPushgateway_Collects(t *testing.T) {
	p, err := NewPushgateway(Config{PushgatewayURL: "http://pushgateway:9091"}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultJob, p.job)

	p.ObserveUnit("success", 100*time.Millisecond)
	p.ObserveUnit("success", 200*time.Millisecond)
	p.ObserveUnit("failed", 50*time.Millisecond)
	p.RunFinished(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(p.units.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.units.WithLabelValues("failed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(p.lastSuccess))
	assert.Equal(t, 2, testutil.CollectAndCount(p.durations))

	p.RunFinished(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(p.lastSuccess))
}

func TestPushgateway_Flush(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
		body   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		method, path, body = r.Method, r.URL.Path, string(data)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p, err := NewPushgateway(Config{PushgatewayURL: srv.URL, Job: "achilles"}, map[string]string{"database": "synpuf"})
	require.NoError(t, err)
	p.ObserveUnit("success", time.Second)
	p.RunFinished(true)

	require.NoError(t, p.Flush(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/achilles/database/synpuf", path)
	assert.NotEmpty(t, body)
}

func TestPushgateway_FlushError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p, err := NewPushgateway(Config{PushgatewayURL: srv.URL}, nil)
	require.NoError(t, err)

	assert.ErrorContains(t, p.Flush(context.Background()), "push to")
}
