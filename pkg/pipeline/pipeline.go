package pipeline

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/wafwatch/wafwatch/pkg/alarm"
	"github.com/wafwatch/wafwatch/pkg/alert"
	"github.com/wafwatch/wafwatch/pkg/audit"
	"github.com/wafwatch/wafwatch/pkg/metrics"
	"github.com/wafwatch/wafwatch/pkg/notify"
	"github.com/wafwatch/wafwatch/pkg/rules"
	"github.com/wafwatch/wafwatch/pkg/storage"
	"go.uber.org/zap"
)

// maxSeenEvents bounds the dedup set. When exceeded the set resets;
// a redelivery older than that window produces a duplicate alert,
// which is acceptable for at-least-once semantics.
const maxSeenEvents = 10000

// Pipeline processes audit events: deduplicates redeliveries,
// evaluates them against the match rules, records alerts for matched
// events, feeds the alarm evaluator, and (on the direct notification
// path) publishes one notification per matched event.
//
// Events are processed independently: a failure on one event never
// blocks ingestion of subsequent events.
type Pipeline struct {
	log       *zap.SugaredLogger
	matcher   *rules.Matcher
	alerts    storage.AlertStorage
	evaluator *alarm.Evaluator
	notifier  notify.Notifier
	emitter   metrics.Emitter

	mu   sync.Mutex
	seen map[uint64]struct{}
}

type Opts struct {
	Log     *zap.SugaredLogger
	Matcher *rules.Matcher
	Alerts  storage.AlertStorage

	// Evaluator receives a sample per processed event when set
	// (the alarm notification path).
	Evaluator *alarm.Evaluator

	// Notifier publishes one message per matched event when set
	// (the direct notification path).
	Notifier notify.Notifier

	// Emitter mirrors matched events to an external metric.
	Emitter metrics.Emitter
}

func New(opts Opts) *Pipeline {
	log := opts.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	emitter := opts.Emitter
	if emitter == nil {
		emitter = metrics.NoopEmitter{}
	}
	return &Pipeline{
		log:       log,
		matcher:   opts.Matcher,
		alerts:    opts.Alerts,
		evaluator: opts.Evaluator,
		notifier:  opts.Notifier,
		emitter:   emitter,
		seen:      make(map[uint64]struct{}),
	}
}

// Process runs a single audit event through the pipeline. It returns
// the stored alert for a matched event, or nil for unmatched and
// duplicate events.
func (p *Pipeline) Process(ctx context.Context, e audit.Event) (*alert.Alert, error) {
	if p.isDuplicate(e) {
		p.log.With("eventID", e.EventID).Debug("skipping duplicate event")
		return nil, nil
	}

	matched := p.matcher.Match(e)

	if p.evaluator != nil {
		p.evaluator.RecordSample(matched)
	}

	if !matched {
		return nil, nil
	}

	p.log.With("eventName", e.EventName, "eventID", e.EventID).Info("matched audit event")

	resource, _ := e.ResourceName()
	if err := p.emitter.EmitMatch(ctx, resource); err != nil {
		// the metric mirror is best-effort
		p.log.With(zap.Error(err)).Error("error emitting metric")
	}

	a := alert.New(e)
	if err := p.alerts.Add(a); err != nil {
		return nil, errors.Wrap(err, "storing alert")
	}

	if p.notifier != nil {
		// a failed publish is logged but not retried: the audit
		// record is durably retained regardless of delivery
		if err := p.notifier.Publish(ctx, a.Subject, a.Body); err != nil {
			p.log.With(zap.Error(err), "alertID", a.ID).Error("error publishing notification")
		}
	}

	return &a, nil
}

// ProcessBatch processes events independently, collecting the alerts
// for matched events. Per-event errors are logged and skipped.
func (p *Pipeline) ProcessBatch(ctx context.Context, events []audit.Event) []alert.Alert {
	alerts := []alert.Alert{}
	for _, e := range events {
		a, err := p.Process(ctx, e)
		if err != nil {
			p.log.With(zap.Error(err), "eventID", e.EventID).Error("error processing event")
			continue
		}
		if a != nil {
			alerts = append(alerts, *a)
		}
	}
	return alerts
}

func (p *Pipeline) isDuplicate(e audit.Event) bool {
	hash, err := audit.Hash(e)
	if err != nil {
		// treat an unhashable event as new rather than dropping it
		p.log.With(zap.Error(err)).Warn("error hashing event")
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.seen[hash]; ok {
		return true
	}
	if len(p.seen) >= maxSeenEvents {
		p.seen = make(map[uint64]struct{})
	}
	p.seen[hash] = struct{}{}
	return false
}
