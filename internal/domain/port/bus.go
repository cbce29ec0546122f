package port

import "context"

// EventPublisher emits one immutable event onto a named topic,
// fire-and-forget. Delivery and ordering are the broker's concern.
type EventPublisher interface {
	Emit(ctx context.Context, topic string, payload any) error
}
