package notify

import (
	"context"
	"log"
)

// LogSender writes notifications to the process log. Used as the fallback
// channel when no external channel is configured.
type LogSender struct{}

// NewLogSender creates a LogSender.
func NewLogSender() *LogSender {
	return &LogSender{}
}

// Send logs the notification.
func (s *LogSender) Send(_ context.Context, title, message string) error {
	log.Printf("[notify] %s: %s", title, message)
	return nil
}

// Name returns the sender identifier.
func (s *LogSender) Name() string {
	return "log"
}
