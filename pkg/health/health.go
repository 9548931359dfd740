// Package health exposes liveness and readiness probes for the HTTP server.
//
// Probes are registered before Start and then evaluated periodically by a
// single scheduler goroutine. A probe flips to failing only after
// failureThreshold consecutive errors, and back to passing after a single
// success, so momentary blips do not bounce the service out of rotation.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc probes one dependency. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

const (
	failureThreshold = 3
	successThreshold = 1
)

type probeKind int

const (
	liveness probeKind = iota
	readiness
)

// probe is one registered check plus its rolling state. The streak counters
// are touched only by the scheduler goroutine; passing and lastErr are also
// read by the HTTP endpoints and therefore atomic.
type probe struct {
	name    string
	kind    probeKind
	timeout time.Duration
	check   CheckFunc

	passing atomic.Bool
	lastErr atomic.Pointer[error]

	failStreak int
	okStreak   int
}

func (p *probe) observe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.check(ctx)
	p.lastErr.Store(&err)

	if err != nil {
		p.okStreak = 0
		p.failStreak++
		if p.failStreak >= failureThreshold {
			p.passing.Store(false)
		}
		return
	}
	p.failStreak = 0
	p.okStreak++
	if p.okStreak >= successThreshold {
		p.passing.Store(true)
	}
}

func (p *probe) failure() string {
	if e := p.lastErr.Load(); e != nil && *e != nil {
		return (*e).Error()
	}
	return "check is failing"
}

// Service runs the registered probes and serves the probe endpoints.
type Service struct {
	ready atomic.Bool

	mu     sync.Mutex
	probes []*probe
	cancel context.CancelFunc
}

// New returns a Service in the not-ready state. Call SetReady(true) once
// startup is complete.
func New() *Service {
	return &Service{}
}

// AddLivenessCheck registers a process-level probe (goroutine leaks, GC
// stalls). A failing liveness probe means the process should be restarted.
func (s *Service) AddLivenessCheck(name string, timeout time.Duration, check CheckFunc) {
	s.add(liveness, name, timeout, check)
}

// AddReadinessCheck registers a dependency probe (database, cache). A failing
// readiness probe takes the instance out of rotation without restarting it.
func (s *Service) AddReadinessCheck(name string, timeout time.Duration, check CheckFunc) {
	s.add(readiness, name, timeout, check)
}

func (s *Service) add(kind probeKind, name string, timeout time.Duration, check CheckFunc) {
	p := &probe{name: name, kind: kind, timeout: timeout, check: check}
	// Start optimistic so a slow first evaluation does not fail a probe
	// that was healthy all along.
	p.passing.Store(true)

	s.mu.Lock()
	s.probes = append(s.probes, p)
	s.mu.Unlock()
}

// Start evaluates every probe once immediately and then on each interval
// tick, until Stop is called or ctx is cancelled. Register all probes before
// calling Start.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.cancel = cancel
	probes := s.probes
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			for _, p := range probes {
				p.observe(ctx)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop halts the scheduler. Safe to call more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// SetReady flips the manual readiness gate. Shutdown sets it to false first
// so the load balancer drains the instance before the listener closes.
func (s *Service) SetReady(ready bool) {
	s.ready.Store(ready)
}

// IsReady reports whether the manual gate is open and every readiness probe
// is passing.
func (s *Service) IsReady() bool {
	if !s.ready.Load() {
		return false
	}
	return len(s.failing(readiness)) == 0
}

func (s *Service) failing(kind probeKind) map[string]string {
	s.mu.Lock()
	probes := s.probes
	s.mu.Unlock()

	out := make(map[string]string)
	for _, p := range probes {
		if p.kind == kind && !p.passing.Load() {
			out[p.name] = p.failure()
		}
	}
	return out
}

type probeResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves /livez: 200 while all liveness probes pass, 503 with
// the failing probes otherwise.
func (s *Service) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeProbe(w, s.failing(liveness))
}

// ReadyEndpoint serves /readyz: 200 while the manual gate is open and all
// readiness probes pass, 503 with details otherwise.
func (s *Service) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failures := s.failing(readiness)
	if !s.ready.Load() {
		failures["_gate"] = "service is not ready"
	}
	writeProbe(w, failures)
}

func writeProbe(w http.ResponseWriter, failures map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	resp := probeResponse{Status: "ok"}
	code := http.StatusOK
	if len(failures) > 0 {
		resp.Status = "unhealthy"
		resp.Checks = failures
		code = http.StatusServiceUnavailable
	}
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
