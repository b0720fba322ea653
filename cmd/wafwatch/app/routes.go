package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/wafwatch/wafwatch/api/io"
	"github.com/wafwatch/wafwatch/internal/middleware"
	"github.com/wafwatch/wafwatch/pkg/audit"

	chiMiddleware "github.com/go-chi/chi/middleware"
)

func (m *Monitor) GetMonitorRoutes() *chi.Mux {
	router := chi.NewRouter()

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(chiMiddleware.RequestID)
		r.Use(chiMiddleware.RealIP)
		r.Use(middleware.Logger(m.log.Desugar()))
		r.Use(chiMiddleware.Recoverer)
		r.Use(chiMiddleware.Timeout(10 * time.Second))
		r.Use(middleware.Tracing)

		r.Group(func(r chi.Router) {
			// check the sender token for the event ingest endpoint
			r.Use(middleware.SenderTokenAuth(m.tokenStore, m.log))
			r.Route("/events", func(r chi.Router) {
				r.Post("/", m.HTTPCreateEventBatchHandler)
			})
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", m.HTTPListAlertsHandler)
			r.Get("/{alertID}", m.HTTPGetAlertHandler)
		})

		r.Route("/alarm", func(r chi.Router) {
			r.Get("/", m.HTTPGetAlarmStatusHandler)
			r.Get("/transitions", m.HTTPListTransitionsHandler)
		})
	})

	return router
}

type CreateEventBatchResponse struct {
	AlertIDs []string `json:"alertIDs"`
}

// HTTPCreateEventBatchHandler ingests a batch of CloudTrail events.
// Events are processed independently: unmatched and duplicate events
// are dropped silently and the response carries the IDs of the
// alerts recorded for matched events.
func (m *Monitor) HTTPCreateEventBatchHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var events []audit.Event

	if err := io.DecodeJSONBody(w, r, &events); err != nil {
		io.RespondError(ctx, m.log, w, err)
		return
	}

	m.log.With("count", len(events)).Info("received events")

	alerts := m.pipeline.ProcessBatch(ctx, events)

	res := CreateEventBatchResponse{AlertIDs: []string{}}
	for _, a := range alerts {
		res.AlertIDs = append(res.AlertIDs, a.ID)
	}

	io.RespondJSON(ctx, m.log, w, res, http.StatusAccepted)
}

func (m *Monitor) HTTPListAlertsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	alerts, err := m.storage.Alert.List()
	if err != nil {
		io.RespondError(ctx, m.log, w, err)
		return
	}
	io.RespondJSON(ctx, m.log, w, alerts, http.StatusOK)
}

func (m *Monitor) HTTPGetAlertHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	alertID := chi.URLParam(r, "alertID")

	a, err := m.storage.Alert.Get(alertID)
	if err != nil {
		io.RespondError(ctx, m.log, w, err)
		return
	}
	if a == nil {
		http.Error(w, "alert not found", http.StatusNotFound)
		return
	}
	io.RespondJSON(ctx, m.log, w, a, http.StatusOK)
}

// AlarmStatusResponse reports the evaluator state, or Enabled=false
// when the monitor runs with only the direct notification path.
type AlarmStatusResponse struct {
	Enabled       bool   `json:"enabled"`
	State         string `json:"state,omitempty"`
	Threshold     int    `json:"threshold,omitempty"`
	Period        string `json:"period,omitempty"`
	LastEvaluated string `json:"lastEvaluated,omitempty"`
}

func (m *Monitor) HTTPGetAlarmStatusHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	res := AlarmStatusResponse{}
	if m.evaluator != nil {
		status := m.evaluator.Status()
		res.Enabled = true
		res.State = string(status.State)
		res.Threshold = status.Threshold
		res.Period = status.Period.String()
		if !status.LastEvaluated.IsZero() {
			res.LastEvaluated = status.LastEvaluated.Format(time.RFC3339)
		}
	}
	io.RespondJSON(ctx, m.log, w, res, http.StatusOK)
}

func (m *Monitor) HTTPListTransitionsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	transitions, err := m.storage.Transition.List()
	if err != nil {
		io.RespondError(ctx, m.log, w, err)
		return
	}
	io.RespondJSON(ctx, m.log, w, transitions, http.StatusOK)
}
