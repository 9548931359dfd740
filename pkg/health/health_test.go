package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func observeN(p *probe, n int) {
	for range n {
		p.observe(context.Background())
	}
}

func TestProbe_FailureThreshold(t *testing.T) {
	fail := true
	p := &probe{
		name:    "db",
		timeout: time.Second,
		check: func(context.Context) error {
			if fail {
				return errors.New("connection refused")
			}
			return nil
		},
	}
	p.passing.Store(true)

	// Two failures are not enough to flip the probe.
	observeN(p, failureThreshold-1)
	assert.True(t, p.passing.Load())

	observeN(p, 1)
	assert.False(t, p.passing.Load())
	assert.Equal(t, "connection refused", p.failure())

	// A single success recovers it.
	fail = false
	observeN(p, 1)
	assert.True(t, p.passing.Load())
}

func TestService_ReadyGate(t *testing.T) {
	s := New()
	assert.False(t, s.IsReady(), "a fresh service must start not ready")

	s.SetReady(true)
	assert.True(t, s.IsReady())

	s.SetReady(false)
	assert.False(t, s.IsReady())
}

func TestService_ReadyEndpoint(t *testing.T) {
	s := New()
	s.AddReadinessCheck("db", time.Second, func(context.Context) error { return nil })

	w := httptest.NewRecorder()
	s.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp probeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Contains(t, resp.Checks, "_gate")

	s.SetReady(true)
	w = httptest.NewRecorder()
	s.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestService_LiveEndpointReportsFailures(t *testing.T) {
	s := New()
	s.AddLivenessCheck("stuck", time.Second, func(context.Context) error {
		return errors.New("wedged")
	})

	s.mu.Lock()
	p := s.probes[0]
	s.mu.Unlock()
	observeN(p, failureThreshold)

	w := httptest.NewRecorder()
	s.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp probeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "wedged", resp.Checks["stuck"])
}

func TestService_FailingReadinessBlocksReady(t *testing.T) {
	s := New()
	s.SetReady(true)
	s.AddReadinessCheck("db", time.Second, func(context.Context) error {
		return errors.New("down")
	})

	assert.True(t, s.IsReady(), "probe starts optimistic")

	s.mu.Lock()
	p := s.probes[0]
	s.mu.Unlock()
	observeN(p, failureThreshold)

	assert.False(t, s.IsReady())
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestPingCheck(t *testing.T) {
	assert.NoError(t, PingCheck(fakePinger{})(context.Background()))
	assert.Error(t, PingCheck(fakePinger{err: errors.New("refused")})(context.Background()))
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}
