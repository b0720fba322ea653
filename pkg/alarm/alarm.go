package alarm

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// State is the breach status of the evaluator.
type State string

const (
	StateOK               State = "OK"
	StateAlarm            State = "ALARM"
	StateInsufficientData State = "INSUFFICIENT_DATA"
)

// Transition records a state change of the evaluator at the end of
// an evaluation period.
type Transition struct {
	ID        string    `json:"id"`
	From      State     `json:"from"`
	To        State     `json:"to"`
	Sum       int       `json:"sum"`
	Threshold int       `json:"threshold"`
	Time      time.Time `json:"time"`
}

// Evaluator sums matched-event samples over fixed evaluation periods
// and drives an alarm state machine over the totals.
//
// The state machine starts in INSUFFICIENT_DATA. At each period
// boundary: a matched sum at or above the threshold moves to ALARM;
// a sum below the threshold with at least one sample observed moves
// to OK; a period with no samples at all holds the current state.
// Missing data never forces a transition in either direction, so a
// gap in the log pipeline cannot produce a false "all clear".
//
// The transition callback fires once per state change, not once per
// matched event: any number of matching events inside one period
// yields at most one notification for that period.
type Evaluator struct {
	log       *zap.SugaredLogger
	threshold int
	period    time.Duration

	mu            sync.Mutex
	state         State
	matched       int
	samples       int
	lastEvaluated time.Time

	onTransition func(ctx context.Context, t Transition)
}

type Opts struct {
	Log       *zap.SugaredLogger
	Threshold int
	Period    time.Duration

	// OnTransition is invoked synchronously from Evaluate whenever
	// the state changes.
	OnTransition func(ctx context.Context, t Transition)
}

func NewEvaluator(opts Opts) (*Evaluator, error) {
	if opts.Threshold < 1 {
		return nil, errors.New("alarm threshold must be at least 1")
	}
	if opts.Period <= 0 {
		return nil, errors.New("alarm period must be positive")
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Evaluator{
		log:          log,
		threshold:    opts.Threshold,
		period:       opts.Period,
		state:        StateInsufficientData,
		onTransition: opts.OnTransition,
	}, nil
}

// RecordSample registers one processed event with the current
// period. Every event the pipeline sees is a sample; matched reports
// whether it satisfied a match rule. Safe for concurrent use.
func (e *Evaluator) RecordSample(matched bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.samples++
	if matched {
		e.matched++
	}
}

// State returns the current alarm state.
func (e *Evaluator) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Status is a point-in-time snapshot of the evaluator, served on the
// monitoring API.
type Status struct {
	State         State         `json:"state"`
	Threshold     int           `json:"threshold"`
	Period        time.Duration `json:"period"`
	LastEvaluated time.Time     `json:"lastEvaluated"`
}

func (e *Evaluator) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{
		State:         e.state,
		Threshold:     e.threshold,
		Period:        e.period,
		LastEvaluated: e.lastEvaluated,
	}
}

// Evaluate closes the current period: it reads and resets the
// counters, applies the transition rule and fires the callback if
// the state changed. It returns the transition, or nil if the state
// held.
func (e *Evaluator) Evaluate(ctx context.Context) *Transition {
	e.mu.Lock()
	matched := e.matched
	samples := e.samples
	e.matched = 0
	e.samples = 0

	prev := e.state
	now := time.Now().UTC()
	e.lastEvaluated = now

	var next State
	switch {
	case samples == 0:
		// no data this period: hold the current state
		next = prev
	case matched >= e.threshold:
		next = StateAlarm
	default:
		next = StateOK
	}
	e.state = next
	e.mu.Unlock()

	if next == prev {
		e.log.With("state", next, "sum", matched, "samples", samples).Debug("alarm state held")
		return nil
	}

	t := Transition{
		ID:        uuid.NewString(),
		From:      prev,
		To:        next,
		Sum:       matched,
		Threshold: e.threshold,
		Time:      now,
	}

	e.log.With("from", t.From, "to", t.To, "sum", t.Sum, "threshold", t.Threshold).Info("alarm state transition")

	if e.onTransition != nil {
		e.onTransition(ctx, t)
	}
	return &t
}

// Run evaluates once per period until the context is cancelled.
func (e *Evaluator) Run(ctx context.Context) {
	ticker := time.NewTicker(e.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Evaluate(ctx)
		}
	}
}
