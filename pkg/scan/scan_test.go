package scan

import (
	"bytes"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wafwatch/wafwatch/pkg/audit"
	"github.com/wafwatch/wafwatch/pkg/rules"
	"go.uber.org/zap"
)

func row(values ...string) types.Row {
	data := make([]types.Datum, len(values))
	for i, v := range values {
		v := v
		data[i] = types.Datum{VarCharValue: aws.String(v)}
	}
	return types.Row{Data: data}
}

func TestEventFromRow(t *testing.T) {
	r := row(
		"abc-123",
		"2021-09-01T12:00:00Z",
		"wafv2.amazonaws.com",
		"UpdateWebACL",
		"us-east-1",
		"203.0.113.10",
		"aws-cli/2.2.0",
		"AssumedRole",
		"AROAEXAMPLE:session",
		"",
		"deploy-role",
		`{"name":"prod-web-acl","scope":"REGIONAL"}`,
		"123456789012",
	)

	e, err := eventFromRow(r)
	require.NoError(t, err)

	assert.Equal(t, "abc-123", e.EventID)
	assert.Equal(t, "UpdateWebACL", e.EventName)
	assert.Equal(t, "wafv2.amazonaws.com", e.EventSource)
	assert.Equal(t, audit.IdentityAssumedRole, e.UserIdentity.Type)

	issuer, ok := e.UserIdentity.SessionIssuerUserName()
	require.True(t, ok)
	assert.Equal(t, "deploy-role", issuer)

	name, ok := e.ResourceName()
	require.True(t, ok)
	assert.Equal(t, "prod-web-acl", name)
}

func TestEventFromRowShortRow(t *testing.T) {
	_, err := eventFromRow(row("abc-123"))
	assert.Error(t, err)
}

func TestEventFromRowBadParameters(t *testing.T) {
	r := row(
		"abc-123", "2021-09-01T12:00:00Z", "wafv2.amazonaws.com",
		"UpdateWebACL", "us-east-1", "203.0.113.10", "aws-cli/2.2.0",
		"IAMUser", "AIDAEXAMPLE", "alice", "",
		`not-json`, "123456789012",
	)
	_, err := eventFromRow(r)
	assert.Error(t, err)
}

func TestBuildQueryFiltersOnRules(t *testing.T) {
	m, err := rules.NewMatcher([]rules.Rule{
		{
			EventSource:  "wafv2.amazonaws.com",
			EventNames:   []string{"UpdateWebACL"},
			ResourceName: "prod-web-acl",
		},
	})
	require.NoError(t, err)

	s := NewScanner(&ScannerParams{
		Log:     zap.NewNop().Sugar(),
		Matcher: m,
		Table:   "cloudtrail_logs",
	})

	q := s.buildQuery()
	assert.Contains(t, q, "FROM cloudtrail_logs")
	assert.Contains(t, q, "eventsource IN ('wafv2.amazonaws.com')")
	assert.Contains(t, q, "eventname IN ('UpdateWebACL')")
}

func TestWriteReportEmpty(t *testing.T) {
	var buf bytes.Buffer
	WriteReport(&buf, nil)
	assert.Contains(t, buf.String(), "no matching changes")
}

func TestWriteReport(t *testing.T) {
	e := audit.Event{
		EventID:     "abc-123",
		EventName:   "UpdateWebACL",
		EventSource: "wafv2.amazonaws.com",
		UserIdentity: audit.UserIdentity{
			Type:     audit.IdentityIAMUser,
			UserName: "alice",
		},
	}

	var buf bytes.Buffer
	WriteReport(&buf, []audit.Event{e})
	out := buf.String()
	assert.Contains(t, out, "found 1 matching changes")
	assert.Contains(t, out, "UpdateWebACL")
	assert.Contains(t, out, "alice")
}
