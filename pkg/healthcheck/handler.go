package healthcheck

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

// Status of the service.
type Status int

const (
	// Unavailable indicates the service is not yet ready to handle requests
	Unavailable Status = iota
	// Ready indicates the service is ready to handle requests
	Ready
	// Broken indicates the service is broken and should not receive requests
	Broken
)

func (s Status) String() string {
	switch s {
	case Unavailable:
		return "unavailable"
	case Ready:
		return "ready"
	case Broken:
		return "broken"
	default:
		return "unknown"
	}
}

// HealthCheck provides an HTTP readiness probe backed by an
// atomically updated status.
type HealthCheck struct {
	state atomic.Value
}

type state struct {
	status      Status
	upSince     time.Time
	lastChanged time.Time
}

type healthCheckResponse struct {
	Status  string    `json:"status"`
	UpSince time.Time `json:"upSince"`
	Uptime  string    `json:"uptime,omitempty"`
}

// New returns a HealthCheck in the Unavailable state.
func New() *HealthCheck {
	hc := &HealthCheck{}
	hc.state.Store(state{status: Unavailable})
	return hc
}

// Set the health check status.
func (hc *HealthCheck) Set(status Status) {
	prev := hc.getState()
	next := state{
		status:      status,
		upSince:     prev.upSince,
		lastChanged: time.Now(),
	}
	if status == Ready && prev.status != Ready {
		next.upSince = time.Now()
	}
	hc.state.Store(next)
}

// Get the current health check status.
func (hc *HealthCheck) Get() Status {
	return hc.getState().status
}

func (hc *HealthCheck) getState() state {
	return hc.state.Load().(state)
}

// Handler returns the HTTP handler serving the health status.
func (hc *HealthCheck) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := hc.getState()
		code := http.StatusServiceUnavailable
		if s.status == Ready {
			code = http.StatusOK
		}

		resp := healthCheckResponse{
			Status:  s.status.String(),
			UpSince: s.upSince,
		}
		if !s.upSince.IsZero() {
			resp.Uptime = time.Since(s.upSince).String()
		}

		body, _ := json.Marshal(resp)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_, _ = w.Write(body)
	})
}
