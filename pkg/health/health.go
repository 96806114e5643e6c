// Package health answers liveness and readiness probes. A service registers
// the dependencies it cannot serve without as required checks and the ones
// it can run without (cache, broker, snapshot store) as optional checks; a
// failing optional check only degrades the report.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

// ErrNotConfigured marks an optional dependency that was never set up.
var ErrNotConfigured = errors.New("not configured")

// Check probes one dependency. The detail string is shown when it succeeds.
type Check func(ctx context.Context) (detail string, err error)

type ComponentHealth struct {
	Status   Status `json:"status"`
	Message  string `json:"message,omitempty"`
	Required bool   `json:"required"`
	Latency  string `json:"latency"`
}

type Report struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Timestamp  string                     `json:"timestamp"`
}

type registration struct {
	name     string
	check    Check
	required bool
}

// Checker is safe for concurrent use.
type Checker struct {
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.RWMutex
	checks []registration
}

// NewChecker bounds every check by timeout; zero means two seconds.
func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Checker{
		timeout: timeout,
		logger:  slog.Default().With("component", "health"),
	}
}

// Register adds a check whose failure takes the service down.
func (c *Checker) Register(name string, check Check) {
	c.add(registration{name: name, check: check, required: true})
}

// RegisterOptional adds a check whose failure only degrades the service.
func (c *Checker) RegisterOptional(name string, check Check) {
	c.add(registration{name: name, check: check})
}

func (c *Checker) add(r registration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.checks {
		if existing.name == r.name {
			c.checks[i] = r
			return
		}
	}
	c.checks = append(c.checks, r)
}

// Run executes every check concurrently. The report carries the worst
// component status.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := append([]registration(nil), c.checks...)
	c.mu.RUnlock()

	results := make([]ComponentHealth, len(checks))
	var wg sync.WaitGroup
	for i, r := range checks {
		wg.Go(func() {
			results[i] = c.probe(ctx, r)
		})
	}
	wg.Wait()

	report := Report{
		Status:     StatusUp,
		Components: make(map[string]ComponentHealth, len(checks)),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	for i, r := range checks {
		res := results[i]
		report.Components[r.name] = res
		switch {
		case res.Status == StatusDown:
			report.Status = StatusDown
		case res.Status == StatusDegraded && report.Status == StatusUp:
			report.Status = StatusDegraded
		}
	}
	return report
}

func (c *Checker) probe(ctx context.Context, r registration) ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	detail, err := r.check(ctx)
	res := ComponentHealth{
		Status:   StatusUp,
		Message:  detail,
		Required: r.required,
		Latency:  time.Since(start).Round(time.Microsecond).String(),
	}
	if err == nil {
		return res
	}
	res.Message = err.Error()
	if r.required {
		res.Status = StatusDown
		c.logger.Warn("required dependency unhealthy", "check", r.name, "error", err)
	} else {
		res.Status = StatusDegraded
		if !errors.Is(err, ErrNotConfigured) {
			c.logger.Info("optional dependency unhealthy", "check", r.name, "error", err)
		}
	}
	return res
}

func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	}
}

// ReadyHandler reports 503 only when a required check fails.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.Run(r.Context())
		status := http.StatusOK
		if report.Status == StatusDown {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, report)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
