package notify

import (
	"context"
)

// Notifier fans a rendered message out to subscribers. Delivery is
// at-least-once per confirmed subscriber and carries no ordering
// guarantee across messages; each body embeds its own timestamp so
// readers can reorder.
//
// Publish failures are best-effort: the caller logs them and moves
// on, since the underlying audit record is durably retained whether
// or not the notification lands.
type Notifier interface {
	Publish(ctx context.Context, subject, body string) error
}
