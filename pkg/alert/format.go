package alert

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wafwatch/wafwatch/pkg/audit"
)

// Unknown is rendered in place of any event field that is absent.
// A partial event must still produce a readable notification, so
// formatting substitutes placeholders instead of failing.
const Unknown = "Unknown"

// Message is a rendered notification ready for publishing.
type Message struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Format renders a human-readable notification for a matched audit
// event. It is a pure function: formatting the same event twice
// produces an identical Message, and it never fails regardless of
// which fields the event is missing.
func Format(e audit.Event) Message {
	action := orUnknown(e.EventName)
	actor := Actor(e.UserIdentity)

	var b strings.Builder
	fmt.Fprintf(&b, "A change was detected to the monitored WAF configuration.\n\n")
	fmt.Fprintf(&b, "Action: %s\n", action)
	fmt.Fprintf(&b, "Time: %s\n", orUnknown(e.EventTime))
	fmt.Fprintf(&b, "Actor: %s\n", actor)
	fmt.Fprintf(&b, "Source IP: %s\n", orUnknown(e.SourceIPAddress))
	fmt.Fprintf(&b, "User Agent: %s\n", orUnknown(e.UserAgent))
	fmt.Fprintf(&b, "Request Parameters: %s\n", renderParameters(e.RequestParameters))
	fmt.Fprintf(&b, "Account: %s\n", orUnknown(e.RecipientAccountID))
	fmt.Fprintf(&b, "Region: %s\n", orUnknown(e.AWSRegion))
	fmt.Fprintf(&b, "Event ID: %s\n", orUnknown(e.EventID))

	return Message{
		Subject: fmt.Sprintf("WAF configuration change: %s by %s", action, actor),
		Body:    b.String(),
	}
}

// Actor resolves the event's identity into a display string.
// Resolution is ordered over the CloudTrail identity variants, with
// an explicit fallback branch for unknown shapes so that actor
// resolution never fails on an event we haven't seen before.
func Actor(u audit.UserIdentity) string {
	switch u.Type {
	case audit.IdentityIAMUser:
		return "IAM User: " + orUnknown(u.UserName)
	case audit.IdentityAssumedRole:
		issuer, ok := u.SessionIssuerUserName()
		if !ok {
			issuer = Unknown
		}
		return "Role: " + issuer
	case audit.IdentityRoot:
		return "Root Account"
	default:
		return orUnknown(u.Type) + ": " + orUnknown(u.PrincipalID)
	}
}

func renderParameters(params map[string]interface{}) string {
	if len(params) == 0 {
		return Unknown
	}
	data, err := json.Marshal(params)
	if err != nil {
		return Unknown
	}
	return string(data)
}

func orUnknown(s string) string {
	if s == "" {
		return Unknown
	}
	return s
}
