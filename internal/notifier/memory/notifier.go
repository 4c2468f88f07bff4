// Package memory contains an in-memory notifier for local development and
// tests.
package memory

import (
	"context"
	"sync"
)

// Notifier stores sent messages for inspection.
type Notifier struct {
	mu       sync.RWMutex
	messages []SentMessage
}

// SentMessage captures one Send call.
type SentMessage struct {
	Destination string
	Subject     string
	Body        string
}

// New returns a memory Notifier.
func New() *Notifier {
	return &Notifier{}
}

// Send records the message.
func (n *Notifier) Send(_ context.Context, destination, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, SentMessage{
		Destination: destination,
		Subject:     subject,
		Body:        body,
	})
	return nil
}

// Messages returns the recorded sends.
func (n *Notifier) Messages() []SentMessage {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]SentMessage, len(n.messages))
	copy(out, n.messages)
	return out
}
