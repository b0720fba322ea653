package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wafwatch/wafwatch/internal/middleware"
	"github.com/wafwatch/wafwatch/pkg/audit"
	"github.com/wafwatch/wafwatch/pkg/notify"
	"github.com/wafwatch/wafwatch/pkg/pipeline"
	"github.com/wafwatch/wafwatch/pkg/rules"
	"github.com/wafwatch/wafwatch/pkg/storage"
	"github.com/wafwatch/wafwatch/pkg/tokens"
	"go.uber.org/zap"
)

func buildTestMonitor(t *testing.T) (*Monitor, *tokens.Token, *notify.InMemoryNotifier) {
	log := zap.NewNop().Sugar()

	matcher, err := rules.NewMatcher([]rules.Rule{
		{
			EventSource:  "wafv2.amazonaws.com",
			EventNames:   []string{"UpdateWebACL", "DeleteWebACL"},
			ResourceName: "prod-web-acl",
		},
	})
	require.NoError(t, err)

	store := storage.BuildInMemoryStorage()
	notifier := &notify.InMemoryNotifier{}

	tokenStore := tokens.NewInMemoryTokenStorer()
	token, err := tokenStore.Create(context.Background(), "test-sender")
	require.NoError(t, err)

	m := &Monitor{
		log:        log,
		tokenStore: tokenStore,
		storage:    store,
		matcher:    matcher,
		notifier:   notifier,
	}
	m.pipeline = pipeline.New(pipeline.Opts{
		Log:      log,
		Matcher:  matcher,
		Alerts:   store.Alert,
		Notifier: notifier,
	})
	return m, token, notifier
}

func matchingEvent(id string) audit.Event {
	return audit.Event{
		EventID:     id,
		EventTime:   "2021-09-01T12:00:00Z",
		EventSource: "wafv2.amazonaws.com",
		EventName:   "UpdateWebACL",
		AWSRegion:   "us-east-1",
		UserIdentity: audit.UserIdentity{
			Type:     audit.IdentityIAMUser,
			UserName: "alice",
		},
		RequestParameters: map[string]interface{}{
			"name": "prod-web-acl",
		},
	}
}

func TestCreateEventBatch(t *testing.T) {
	m, token, notifier := buildTestMonitor(t)

	body, err := json.Marshal([]audit.Event{
		matchingEvent("event-1"),
		{EventID: "event-2", EventSource: "s3.amazonaws.com", EventName: "PutObject"},
	})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/v1/events", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.TokenHeader, token.ID)
	rec := httptest.NewRecorder()

	m.GetMonitorRoutes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var res CreateEventBatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Len(t, res.AlertIDs, 1)

	published := notifier.Messages()
	require.Len(t, published, 1)
	assert.Contains(t, published[0].Subject, "UpdateWebACL")
}

func TestCreateEventBatchRequiresToken(t *testing.T) {
	m, _, _ := buildTestMonitor(t)

	body, err := json.Marshal([]audit.Event{matchingEvent("event-1")})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/v1/events", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	m.GetMonitorRoutes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListAlerts(t *testing.T) {
	m, _, _ := buildTestMonitor(t)

	_, err := m.pipeline.Process(context.Background(), matchingEvent("event-1"))
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/v1/alerts", nil)
	rec := httptest.NewRecorder()
	m.GetMonitorRoutes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var alerts []json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alerts))
	assert.Len(t, alerts, 1)
}

func TestGetAlertNotFound(t *testing.T) {
	m, _, _ := buildTestMonitor(t)

	req := httptest.NewRequest("GET", "/api/v1/alerts/missing", nil)
	rec := httptest.NewRecorder()
	m.GetMonitorRoutes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAlarmStatusDisabled(t *testing.T) {
	m, _, _ := buildTestMonitor(t)

	req := httptest.NewRequest("GET", "/api/v1/alarm", nil)
	rec := httptest.NewRecorder()
	m.GetMonitorRoutes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var res AlarmStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.False(t, res.Enabled)
}

func TestHandleSQSMessage(t *testing.T) {
	m, _, notifier := buildTestMonitor(t)

	body, err := json.Marshal(matchingEvent("event-1"))
	require.NoError(t, err)
	s := string(body)

	err = m.HandleSQSMessage(context.Background(), &types.Message{Body: &s})
	require.NoError(t, err)

	assert.Len(t, notifier.Messages(), 1)
}

func TestHandleSQSMessageTokenAuth(t *testing.T) {
	m, token, notifier := buildTestMonitor(t)
	m.TransportSQSTokenAuth = true

	body, err := json.Marshal(matchingEvent("event-1"))
	require.NoError(t, err)
	s := string(body)

	// missing token attribute is rejected
	err = m.HandleSQSMessage(context.Background(), &types.Message{Body: &s})
	assert.Error(t, err)
	assert.Empty(t, notifier.Messages())

	msg := &types.Message{
		Body: &s,
		MessageAttributes: map[string]types.MessageAttributeValue{
			middleware.TokenHeader: {StringValue: &token.ID},
		},
	}
	err = m.HandleSQSMessage(context.Background(), msg)
	require.NoError(t, err)
	assert.Len(t, notifier.Messages(), 1)
}
