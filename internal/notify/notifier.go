// Package notify is the seam to the external mail/notification system.
// Delivery is fire-and-forget: a failed notification is logged and the
// payment flow continues regardless.
package notify

import (
	"context"
	"log/slog"
)

const (
	EventSwishAwaitingConfirmation = "swish_awaiting_confirmation"
	EventPaymentConfirmed          = "payment_confirmed"
	EventPaymentDeclined           = "payment_declined"
)

// Notifier delivers one event to the outside world. The returned bool
// reports delivery for logging only; callers never branch on it.
type Notifier interface {
	Notify(ctx context.Context, event string, payload map[string]any) bool
}

// LogNotifier writes every event to the operator log. It is the default
// implementation and the fallback when no mail transport is wired.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, event string, payload map[string]any) bool {
	attrs := make([]any, 0, 2+2*len(payload))
	attrs = append(attrs, "event", event)
	for k, v := range payload {
		attrs = append(attrs, k, v)
	}
	n.logger.Info("notify", attrs...)
	return true
}
