package alarm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEvaluator(t *testing.T, threshold int, onTransition func(ctx context.Context, tr Transition)) *Evaluator {
	e, err := NewEvaluator(Opts{
		Threshold:    threshold,
		Period:       5 * time.Minute,
		OnTransition: onTransition,
	})
	require.NoError(t, err)
	return e
}

func TestEvaluator_StartsInsufficientData(t *testing.T) {
	e := newTestEvaluator(t, 1, nil)
	assert.Equal(t, StateInsufficientData, e.State())
}

func TestEvaluator_BurstFiresOnce(t *testing.T) {
	// three matching events in one period with threshold 1 must
	// produce exactly one transition and one notification
	fired := 0
	e := newTestEvaluator(t, 1, func(ctx context.Context, tr Transition) {
		fired++
	})

	e.RecordSample(true)
	e.RecordSample(true)
	e.RecordSample(true)

	tr := e.Evaluate(context.Background())
	require.NotNil(t, tr)
	assert.Equal(t, StateInsufficientData, tr.From)
	assert.Equal(t, StateAlarm, tr.To)
	assert.Equal(t, 3, tr.Sum)
	assert.Equal(t, 1, fired)
}

func TestEvaluator_BelowThresholdMovesToOK(t *testing.T) {
	e := newTestEvaluator(t, 2, nil)

	e.RecordSample(true)
	e.RecordSample(false)

	tr := e.Evaluate(context.Background())
	require.NotNil(t, tr)
	assert.Equal(t, StateOK, tr.To)
}

func TestEvaluator_EmptyPeriodHoldsState(t *testing.T) {
	// a period with no data after an alarm must not produce a false
	// "all clear": the state holds until a non-empty period clears it
	e := newTestEvaluator(t, 1, nil)

	e.RecordSample(true)
	require.NotNil(t, e.Evaluate(context.Background()))
	require.Equal(t, StateAlarm, e.State())

	tr := e.Evaluate(context.Background())
	assert.Nil(t, tr)
	assert.Equal(t, StateAlarm, e.State())
}

func TestEvaluator_EmptyPeriodHoldsInsufficientData(t *testing.T) {
	e := newTestEvaluator(t, 1, nil)
	assert.Nil(t, e.Evaluate(context.Background()))
	assert.Equal(t, StateInsufficientData, e.State())
}

func TestEvaluator_AlarmClearsOnNonBreachingPeriod(t *testing.T) {
	e := newTestEvaluator(t, 1, nil)

	e.RecordSample(true)
	require.NotNil(t, e.Evaluate(context.Background()))

	// unmatched traffic counts as data, so the alarm clears
	e.RecordSample(false)
	tr := e.Evaluate(context.Background())
	require.NotNil(t, tr)
	assert.Equal(t, StateAlarm, tr.From)
	assert.Equal(t, StateOK, tr.To)
}

func TestEvaluator_ReenteringAlarmNotifiesAgain(t *testing.T) {
	transitions := []Transition{}
	e := newTestEvaluator(t, 1, func(ctx context.Context, tr Transition) {
		transitions = append(transitions, tr)
	})

	e.RecordSample(true)
	e.Evaluate(context.Background())

	e.RecordSample(false)
	e.Evaluate(context.Background())

	e.RecordSample(true)
	e.Evaluate(context.Background())

	require.Len(t, transitions, 3)
	assert.Equal(t, StateAlarm, transitions[0].To)
	assert.Equal(t, StateOK, transitions[1].To)
	assert.Equal(t, StateAlarm, transitions[2].To)
}

func TestEvaluator_ConsecutiveBreachingPeriodsFireOnce(t *testing.T) {
	fired := 0
	e := newTestEvaluator(t, 1, func(ctx context.Context, tr Transition) {
		fired++
	})

	e.RecordSample(true)
	e.Evaluate(context.Background())

	e.RecordSample(true)
	tr := e.Evaluate(context.Background())

	assert.Nil(t, tr)
	assert.Equal(t, 1, fired)
	assert.Equal(t, StateAlarm, e.State())
}

func TestEvaluator_CounterResetsEachPeriod(t *testing.T) {
	e := newTestEvaluator(t, 2, nil)

	e.RecordSample(true)
	e.Evaluate(context.Background())
	require.Equal(t, StateOK, e.State())

	// one more match must not combine with the previous period's
	e.RecordSample(true)
	tr := e.Evaluate(context.Background())
	assert.Nil(t, tr)
	assert.Equal(t, StateOK, e.State())
}

func TestNewEvaluator_RejectsBadSettings(t *testing.T) {
	_, err := NewEvaluator(Opts{Threshold: 0, Period: time.Minute})
	assert.Error(t, err)

	_, err = NewEvaluator(Opts{Threshold: 1, Period: 0})
	assert.Error(t, err)
}
