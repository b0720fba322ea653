package audit

import (
	"time"
)

// Identity type discriminators emitted by CloudTrail.
const (
	IdentityIAMUser     = "IAMUser"
	IdentityAssumedRole = "AssumedRole"
	IdentityRoot        = "Root"
)

// Event is a single CloudTrail audit record for an API call
// made against a monitored resource.
//
// Events are immutable once parsed. CloudTrail delivers them
// at-least-once, so consumers must be prepared to see the same
// event more than once (see Hash).
type Event struct {
	EventID            string                 `json:"eventID"`
	EventType          string                 `json:"eventType,omitempty"`
	EventTime          string                 `json:"eventTime"`
	EventSource        string                 `json:"eventSource"`
	EventName          string                 `json:"eventName"`
	AWSRegion          string                 `json:"awsRegion"`
	SourceIPAddress    string                 `json:"sourceIPAddress"`
	UserAgent          string                 `json:"userAgent"`
	UserIdentity       UserIdentity           `json:"userIdentity"`
	RequestParameters  map[string]interface{} `json:"requestParameters"`
	RecipientAccountID string                 `json:"recipientAccountId"`
}

// UserIdentity is the actor recorded on a CloudTrail event.
// CloudTrail emits several identity shapes (IAM user, assumed role,
// root account, service principals) with different fields populated,
// so every field other than Type is optional.
type UserIdentity struct {
	Type           string          `json:"type"`
	PrincipalID    string          `json:"principalId,omitempty"`
	ARN            string          `json:"arn,omitempty"`
	AccountID      string          `json:"accountId,omitempty"`
	UserName       string          `json:"userName,omitempty"`
	InvokedBy      string          `json:"invokedBy,omitempty"`
	SessionContext *SessionContext `json:"sessionContext,omitempty"`
}

type SessionContext struct {
	SessionIssuer SessionIssuer `json:"sessionIssuer"`
}

type SessionIssuer struct {
	Type     string `json:"type,omitempty"`
	UserName string `json:"userName,omitempty"`
	ARN      string `json:"arn,omitempty"`
}

// SessionIssuerUserName returns the user name of the role session
// issuer, or false if the event doesn't carry session context.
func (u UserIdentity) SessionIssuerUserName() (string, bool) {
	if u.SessionContext == nil || u.SessionContext.SessionIssuer.UserName == "" {
		return "", false
	}
	return u.SessionContext.SessionIssuer.UserName, true
}

// ResourceName returns the "name" request parameter, which for WAF
// API calls is the name of the Web ACL being modified. It returns
// false if the parameter is absent or not a string.
func (e Event) ResourceName() (string, bool) {
	if e.RequestParameters == nil {
		return "", false
	}
	name, ok := e.RequestParameters["name"].(string)
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

// Time parses the event timestamp. CloudTrail timestamps are RFC3339
// in UTC. The zero time is returned for malformed or absent values
// rather than an error, since a bad timestamp must not stop the
// event from being processed.
func (e Event) Time() time.Time {
	t, err := time.Parse(time.RFC3339, e.EventTime)
	if err != nil {
		return time.Time{}
	}
	return t
}
