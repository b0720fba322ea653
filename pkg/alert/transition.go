package alert

import (
	"fmt"
	"strings"
	"time"

	"github.com/wafwatch/wafwatch/pkg/alarm"
)

// FormatTransition renders a notification for an alarm state
// change. Like Format it is pure and never fails.
func FormatTransition(t alarm.Transition) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "The WAF change alarm transitioned from %s to %s.\n\n", t.From, t.To)
	fmt.Fprintf(&b, "Matched changes this period: %d (threshold: %d)\n", t.Sum, t.Threshold)
	fmt.Fprintf(&b, "Time: %s\n", t.Time.Format(time.RFC3339))

	return Message{
		Subject: fmt.Sprintf("WAF change alarm is now %s", t.To),
		Body:    b.String(),
	}
}
