package alert

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wafwatch/wafwatch/pkg/audit"
)

func TestActor_IAMUser(t *testing.T) {
	actor := Actor(audit.UserIdentity{
		Type:     audit.IdentityIAMUser,
		UserName: "alice",
	})
	assert.Equal(t, "IAM User: alice", actor)
}

func TestActor_AssumedRole(t *testing.T) {
	actor := Actor(audit.UserIdentity{
		Type: audit.IdentityAssumedRole,
		SessionContext: &audit.SessionContext{
			SessionIssuer: audit.SessionIssuer{UserName: "waf-deployer"},
		},
	})
	assert.Equal(t, "Role: waf-deployer", actor)
}

func TestActor_AssumedRoleWithoutSessionContext(t *testing.T) {
	actor := Actor(audit.UserIdentity{Type: audit.IdentityAssumedRole})
	assert.Equal(t, "Role: Unknown", actor)
}

func TestActor_Root(t *testing.T) {
	actor := Actor(audit.UserIdentity{Type: audit.IdentityRoot})
	assert.Equal(t, "Root Account", actor)
}

func TestActor_UnknownVariants(t *testing.T) {
	tests := map[string]struct {
		identity audit.UserIdentity
		expected string
	}{
		"service principal": {
			identity: audit.UserIdentity{Type: "AWSService", PrincipalID: "cloudtrail.amazonaws.com"},
			expected: "AWSService: cloudtrail.amazonaws.com",
		},
		"unknown type, no principal": {
			identity: audit.UserIdentity{Type: "FederatedUser"},
			expected: "FederatedUser: Unknown",
		},
		"empty identity": {
			identity: audit.UserIdentity{},
			expected: "Unknown: Unknown",
		},
	}
	for desc, tc := range tests {
		assert.Equal(t, tc.expected, Actor(tc.identity), desc)
	}
}

func TestFormat_FullEvent(t *testing.T) {
	e := audit.Event{
		EventID:         "b1e2c3d4-0000-1111-2222-333344445555",
		EventTime:       "2021-09-02T04:29:14Z",
		EventSource:     "wafv2.amazonaws.com",
		EventName:       "UpdateWebACL",
		AWSRegion:       "us-east-1",
		SourceIPAddress: "203.0.113.10",
		UserAgent:       "aws-cli/2.2.35",
		UserIdentity: audit.UserIdentity{
			Type:     audit.IdentityIAMUser,
			UserName: "alice",
		},
		RequestParameters: map[string]interface{}{
			"name": "MyWebACL-TF",
		},
		RecipientAccountID: "123456789012",
	}

	msg := Format(e)

	assert.Equal(t, "WAF configuration change: UpdateWebACL by IAM User: alice", msg.Subject)
	assert.Contains(t, msg.Body, "Action: UpdateWebACL")
	assert.Contains(t, msg.Body, "Time: 2021-09-02T04:29:14Z")
	assert.Contains(t, msg.Body, "Actor: IAM User: alice")
	assert.Contains(t, msg.Body, "Source IP: 203.0.113.10")
	assert.Contains(t, msg.Body, `"name":"MyWebACL-TF"`)
	assert.Contains(t, msg.Body, "Account: 123456789012")
	assert.Contains(t, msg.Body, "Region: us-east-1")
	assert.Contains(t, msg.Body, "Event ID: b1e2c3d4-0000-1111-2222-333344445555")
}

func TestFormat_EmptyEventNeverFails(t *testing.T) {
	msg := Format(audit.Event{})

	assert.Equal(t, "WAF configuration change: Unknown by Unknown: Unknown", msg.Subject)
	// every line of the body falls back to the placeholder
	for _, line := range strings.Split(strings.TrimSpace(msg.Body), "\n") {
		if !strings.Contains(line, ":") {
			continue
		}
		assert.Contains(t, line, Unknown, line)
	}
}

func TestFormat_Idempotent(t *testing.T) {
	e := audit.Event{
		EventID:   "repeat",
		EventName: "DeleteWebACL",
		UserIdentity: audit.UserIdentity{
			Type: audit.IdentityRoot,
		},
		RequestParameters: map[string]interface{}{
			"name": "MyWebACL-TF",
		},
	}

	assert.Equal(t, Format(e), Format(e))
}
