// Package notify delivers whale event and execution outcome alerts to
// operator channels. Delivery is fire and forget: a failed send is logged
// and dropped, never retried, so a slow channel cannot stall the watch loop.
package notify

import (
	"context"
	"log"
)

// Sender is a single notification channel.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns the channel identifier, e.g. "telegram".
	Name() string
}

// Notifier fans a notification out to every configured sender.
type Notifier struct {
	senders []Sender
}

// NewNotifier creates a Notifier delivering to the given senders.
func NewNotifier(senders ...Sender) *Notifier {
	return &Notifier{senders: senders}
}

// Notify sends to all senders. Failures are logged per sender and do not
// block the others.
func (n *Notifier) Notify(ctx context.Context, title, message string) {
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			log.Printf("[notify] %s send failed: %v", s.Name(), err)
		}
	}
}
