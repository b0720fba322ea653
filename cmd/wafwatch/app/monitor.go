package app

import (
	"context"
	"flag"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/wafwatch/wafwatch/pkg/alarm"
	"github.com/wafwatch/wafwatch/pkg/alert"
	"github.com/wafwatch/wafwatch/pkg/metrics"
	"github.com/wafwatch/wafwatch/pkg/notify"
	"github.com/wafwatch/wafwatch/pkg/pipeline"
	"github.com/wafwatch/wafwatch/pkg/rules"
	"github.com/wafwatch/wafwatch/pkg/storage"
	"github.com/wafwatch/wafwatch/pkg/tokens"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Monitor is the long-running component of wafwatch: it ingests
// CloudTrail events over HTTP and SQS, runs them through the match
// pipeline, drives the alarm evaluator and serves the monitoring API.
type Monitor struct {
	log        *zap.SugaredLogger
	tracer     trace.Tracer
	tokenStore tokens.TokenStorer
	storage    *storage.Storage
	matcher    *rules.Matcher
	pipeline   *pipeline.Pipeline
	evaluator  *alarm.Evaluator
	notifier   notify.Notifier

	Host      string
	RulesFile string

	// NotifyEachMatch enables the direct notification path: one
	// message published per matched event.
	NotifyEachMatch bool

	// AlarmEnabled enables the threshold evaluator path: matched
	// events are summed per period and notifications are published
	// on alarm state transitions.
	AlarmEnabled   bool
	AlarmThreshold int
	AlarmPeriod    time.Duration

	SNSTopicARN string

	MetricsEnabled    bool
	MetricsNamespace  string
	MetricsMetricName string

	TransportSQSEnabled   bool
	TransportSQSQueueURL  string
	TransportSQSTokenAuth bool

	// used to hold the servers so that we can shut them down
	httpServer *http.Server
	sqsServer  *SQSServer
	cancel     context.CancelFunc
	group      *errgroup.Group
}

func New() *Monitor {
	return &Monitor{}
}

type MonitorOptions struct {
	Logger     *zap.SugaredLogger
	Tracer     trace.Tracer
	TokenStore tokens.TokenStorer
	Storage    *storage.Storage

	// Notifier overrides the SNS notifier built from SNSTopicARN.
	// Used in tests and local runs.
	Notifier notify.Notifier
}

func (m *Monitor) AddFlags(fs *flag.FlagSet) {
	fs.StringVar(&m.Host, "monitor-host", "0.0.0.0:9090", "the monitor hostname to listen on")
	fs.StringVar(&m.RulesFile, "rules-file", "rules.yml", "path to the YAML match rules file")
	fs.BoolVar(&m.NotifyEachMatch, "notify-each-match", true, "publish a notification for every matched event")
	fs.BoolVar(&m.AlarmEnabled, "alarm-enabled", false, "sum matched events per period and notify on alarm state transitions")
	fs.IntVar(&m.AlarmThreshold, "alarm-threshold", 1, "matched events per period required to enter the alarm state")
	fs.DurationVar(&m.AlarmPeriod, "alarm-period", 5*time.Minute, "alarm evaluation period")
	fs.StringVar(&m.SNSTopicARN, "sns-topic-arn", "", "the SNS topic to publish notifications to (notifications are disabled if empty)")
	fs.BoolVar(&m.MetricsEnabled, "metrics-enabled", false, "mirror matched events to a CloudWatch metric")
	fs.StringVar(&m.MetricsNamespace, "metrics-namespace", "WAFWatch", "CloudWatch namespace for the matched-event metric")
	fs.StringVar(&m.MetricsMetricName, "metrics-metric-name", "WebACLChanges", "CloudWatch metric name for matched events")
	fs.BoolVar(&m.TransportSQSEnabled, "transport-sqs-enabled", false, "enable the SQS ingest transport")
	fs.StringVar(&m.TransportSQSQueueURL, "transport-sqs-queue-url", "", "(if SQS transport enabled) the SQS queue URL")
	fs.BoolVar(&m.TransportSQSTokenAuth, "transport-sqs-token-auth", false, "verify the sender token on events received via SQS")
}

func (m *Monitor) Start(ctx context.Context, opts *MonitorOptions) error {
	m.log = opts.Logger
	m.tracer = opts.Tracer
	m.tokenStore = opts.TokenStore
	m.storage = opts.Storage

	rr, err := rules.LoadFile(m.RulesFile)
	if err != nil {
		return errors.Wrapf(err, "loading match rules from %s", m.RulesFile)
	}
	m.matcher, err = rules.NewMatcher(rr)
	if err != nil {
		return err
	}
	m.log.With("rules", len(rr), "file", m.RulesFile).Info("loaded match rules")

	m.notifier = opts.Notifier
	if m.notifier == nil && m.SNSTopicARN != "" {
		m.notifier, err = notify.NewSNSNotifierFromConfig(ctx, m.SNSTopicARN)
		if err != nil {
			return err
		}
	}
	if m.notifier == nil {
		m.log.Warn("no SNS topic configured, notifications are disabled")
	}

	var emitter metrics.Emitter
	if m.MetricsEnabled {
		emitter, err = metrics.NewCloudWatchEmitterFromConfig(ctx, m.MetricsNamespace, m.MetricsMetricName)
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	g, ctx := errgroup.WithContext(ctx)
	m.group = g

	if m.AlarmEnabled {
		m.evaluator, err = alarm.NewEvaluator(alarm.Opts{
			Log:          m.log,
			Threshold:    m.AlarmThreshold,
			Period:       m.AlarmPeriod,
			OnTransition: m.handleTransition,
		})
		if err != nil {
			return err
		}
		g.Go(func() error {
			m.evaluator.Run(ctx)
			return nil
		})
	}

	var directNotifier notify.Notifier
	if m.NotifyEachMatch {
		directNotifier = m.notifier
	}

	m.pipeline = pipeline.New(pipeline.Opts{
		Log:       m.log,
		Matcher:   m.matcher,
		Alerts:    m.storage.Alert,
		Evaluator: m.evaluator,
		Notifier:  directNotifier,
		Emitter:   emitter,
	})

	m.log.With("monitor-host", m.Host).Info("starting wafwatch monitor server")

	errorLog, _ := zap.NewStdLogAt(m.log.Desugar(), zap.ErrorLevel)

	server := &http.Server{
		Addr:     m.Host,
		ErrorLog: errorLog,
		Handler:  m.GetMonitorRoutes(),
	}
	m.httpServer = server

	g.Go(func() error {
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "monitor HTTP server")
		}
		return nil
	})

	if m.TransportSQSEnabled {
		sqsServer, err := NewSQSServer(ctx, &SQSServerConfig{
			Log:      m.log,
			Tracer:   m.tracer,
			QueueUrl: m.TransportSQSQueueURL,
			Handler:  m.HandleSQSMessage,
		})
		if err != nil {
			return err
		}
		m.sqsServer = sqsServer

		m.log.With("queue-url", sqsServer.QueueUrl()).Info("starting SQS transport listener")

		sqsServer.Start(ctx)
	}

	return nil
}

// handleTransition persists an alarm state change and publishes the
// transition notification.
func (m *Monitor) handleTransition(ctx context.Context, t alarm.Transition) {
	if err := m.storage.Transition.Add(t); err != nil {
		m.log.With(zap.Error(err)).Error("error storing alarm transition")
	}

	if m.notifier == nil {
		return
	}
	msg := alert.FormatTransition(t)
	if err := m.notifier.Publish(ctx, msg.Subject, msg.Body); err != nil {
		m.log.With(zap.Error(err)).Error("error publishing alarm transition notification")
	}
}

func (m *Monitor) Close() error {
	if m.httpServer != nil {
		timeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.httpServer.Shutdown(timeout); err != nil {
			m.log.With(zap.Error(err)).Error("failed to stop the monitor HTTP server")
		}
	}
	if m.sqsServer != nil {
		m.sqsServer.Shutdown()
	}
	if m.cancel != nil {
		m.cancel()
	}
	if m.group != nil {
		return m.group.Wait()
	}
	return nil
}
