package notify

import (
	"context"
	"sync"
)

// PublishedMessage is a message captured by the in-memory notifier.
type PublishedMessage struct {
	Subject string
	Body    string
}

// InMemoryNotifier records published messages instead of delivering
// them. Used in tests and local runs without an SNS topic.
type InMemoryNotifier struct {
	mu       sync.Mutex
	messages []PublishedMessage
}

func NewInMemoryNotifier() *InMemoryNotifier {
	return &InMemoryNotifier{}
}

func (n *InMemoryNotifier) Publish(ctx context.Context, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, PublishedMessage{Subject: subject, Body: body})
	return nil
}

// Messages returns a copy of everything published so far.
func (n *InMemoryNotifier) Messages() []PublishedMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]PublishedMessage, len(n.messages))
	copy(out, n.messages)
	return out
}
