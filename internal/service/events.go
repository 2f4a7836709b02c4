package service

import "context"

// EventPublisher receives domain events for realtime fan-out. Publishing is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload any)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, any) {}

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}
