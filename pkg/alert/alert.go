package alert

import (
	"time"

	"github.com/google/uuid"
	"github.com/wafwatch/wafwatch/pkg/audit"
)

// Alert is a matched audit event together with its rendered
// notification. Alerts are persisted so that operators can review
// the change history behind an alarm.
type Alert struct {
	ID      string      `json:"id"`
	Event   audit.Event `json:"event"`
	Subject string      `json:"subject"`
	Body    string      `json:"body"`
	Time    time.Time   `json:"time"`
}

// New renders the event and wraps it in an Alert record.
func New(e audit.Event) Alert {
	msg := Format(e)
	return Alert{
		ID:      uuid.NewString(),
		Event:   e,
		Subject: msg.Subject,
		Body:    msg.Body,
		Time:    time.Now().UTC(),
	}
}
