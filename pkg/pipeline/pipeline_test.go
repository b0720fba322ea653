package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wafwatch/wafwatch/pkg/alarm"
	"github.com/wafwatch/wafwatch/pkg/alert"
	"github.com/wafwatch/wafwatch/pkg/audit"
	"github.com/wafwatch/wafwatch/pkg/notify"
	"github.com/wafwatch/wafwatch/pkg/rules"
	"github.com/wafwatch/wafwatch/pkg/storage"
)

func testMatcher(t *testing.T) *rules.Matcher {
	m, err := rules.NewMatcher([]rules.Rule{
		{
			EventSource:  "wafv2.amazonaws.com",
			EventNames:   []string{"CreateWebACL", "UpdateWebACL", "DeleteWebACL"},
			ResourceName: "MyWebACL-TF",
		},
	})
	require.NoError(t, err)
	return m
}

func matchingEvent(id string) audit.Event {
	return audit.Event{
		EventID:     id,
		EventSource: "wafv2.amazonaws.com",
		EventName:   "UpdateWebACL",
		EventTime:   "2021-09-02T04:29:14Z",
		RequestParameters: map[string]interface{}{
			"name": "MyWebACL-TF",
		},
		UserIdentity: audit.UserIdentity{
			Type:     audit.IdentityIAMUser,
			UserName: "alice",
		},
	}
}

func TestProcess_MatchedEventStoredAndNotified(t *testing.T) {
	alerts := storage.NewInMemoryAlertStorage()
	notifier := notify.NewInMemoryNotifier()

	p := New(Opts{
		Matcher:  testMatcher(t),
		Alerts:   alerts,
		Notifier: notifier,
	})

	a, err := p.Process(context.Background(), matchingEvent("e1"))
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Contains(t, a.Subject, "UpdateWebACL")
	assert.Contains(t, a.Subject, "IAM User: alice")

	stored, err := alerts.List()
	require.NoError(t, err)
	assert.Len(t, stored, 1)

	msgs := notifier.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, a.Subject, msgs[0].Subject)
}

func TestProcess_UnmatchedEventIgnored(t *testing.T) {
	alerts := storage.NewInMemoryAlertStorage()
	notifier := notify.NewInMemoryNotifier()

	p := New(Opts{
		Matcher:  testMatcher(t),
		Alerts:   alerts,
		Notifier: notifier,
	})

	e := matchingEvent("e1")
	e.RequestParameters["name"] = "OtherACL"

	a, err := p.Process(context.Background(), e)
	require.NoError(t, err)
	assert.Nil(t, a)

	stored, err := alerts.List()
	require.NoError(t, err)
	assert.Empty(t, stored)
	assert.Empty(t, notifier.Messages())
}

func TestProcess_DuplicateEventProcessedOnce(t *testing.T) {
	alerts := storage.NewInMemoryAlertStorage()

	p := New(Opts{
		Matcher: testMatcher(t),
		Alerts:  alerts,
	})

	_, err := p.Process(context.Background(), matchingEvent("e1"))
	require.NoError(t, err)
	a, err := p.Process(context.Background(), matchingEvent("e1"))
	require.NoError(t, err)
	assert.Nil(t, a)

	stored, err := alerts.List()
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestProcess_FeedsEvaluatorSamples(t *testing.T) {
	evaluator, err := alarm.NewEvaluator(alarm.Opts{Threshold: 1, Period: 5 * time.Minute})
	require.NoError(t, err)

	p := New(Opts{
		Matcher:   testMatcher(t),
		Alerts:    storage.NewInMemoryAlertStorage(),
		Evaluator: evaluator,
	})

	ctx := context.Background()

	unmatched := matchingEvent("e1")
	unmatched.RequestParameters["name"] = "OtherACL"
	_, err = p.Process(ctx, unmatched)
	require.NoError(t, err)

	// unmatched traffic is data but not a breach
	tr := evaluator.Evaluate(ctx)
	require.NotNil(t, tr)
	assert.Equal(t, alarm.StateOK, tr.To)

	_, err = p.Process(ctx, matchingEvent("e2"))
	require.NoError(t, err)

	tr = evaluator.Evaluate(ctx)
	require.NotNil(t, tr)
	assert.Equal(t, alarm.StateAlarm, tr.To)
	assert.Equal(t, 1, tr.Sum)
}

func TestProcess_AlarmPathBurstNotifiesOnce(t *testing.T) {
	// three matching events in one period, threshold 1: one
	// transition and one notification
	notifier := notify.NewInMemoryNotifier()

	evaluator, err := alarm.NewEvaluator(alarm.Opts{
		Threshold: 1,
		Period:    5 * time.Minute,
		OnTransition: func(ctx context.Context, tr alarm.Transition) {
			msg := alert.FormatTransition(tr)
			_ = notifier.Publish(ctx, msg.Subject, msg.Body)
		},
	})
	require.NoError(t, err)

	p := New(Opts{
		Matcher:   testMatcher(t),
		Alerts:    storage.NewInMemoryAlertStorage(),
		Evaluator: evaluator,
	})

	ctx := context.Background()
	for _, id := range []string{"e1", "e2", "e3"} {
		_, err := p.Process(ctx, matchingEvent(id))
		require.NoError(t, err)
	}

	tr := evaluator.Evaluate(ctx)
	require.NotNil(t, tr)
	assert.Equal(t, 3, tr.Sum)
	assert.Len(t, notifier.Messages(), 1)
}

type failingAlertStorage struct{}

func (failingAlertStorage) Add(a alert.Alert) error             { return errors.New("disk full") }
func (failingAlertStorage) Get(id string) (*alert.Alert, error) { return nil, nil }
func (failingAlertStorage) List() ([]alert.Alert, error)        { return nil, nil }

func TestProcessBatch_IsolatesFailures(t *testing.T) {
	p := New(Opts{
		Matcher: testMatcher(t),
		Alerts:  failingAlertStorage{},
	})

	alerts := p.ProcessBatch(context.Background(), []audit.Event{
		matchingEvent("e1"),
		matchingEvent("e2"),
	})
	assert.Empty(t, alerts)
}
