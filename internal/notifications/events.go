package notifications

import (
	"context"
	"encoding/json"
	"log/slog"

	"amber/internal/middleware"
	"amber/internal/observability"
)

// Event types broadcast to every connected client.
const (
	EventPostCreated    = "post_created"
	EventPostUpdated    = "post_updated"
	EventPostDeleted    = "post_deleted"
	EventCommentCreated = "comment_created"
)

// Envelope is the wire format of a realtime message.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Publisher fans domain events out to connected clients. With Redis the event goes through
// the broadcast channel so every instance's hub receives it; without Redis it goes straight
// to the local hub.
type Publisher struct {
	hub      *Hub
	notifier *Notifier
}

// NewPublisher creates a Publisher. notifier may be nil or disabled.
func NewPublisher(hub *Hub, notifier *Notifier) *Publisher {
	return &Publisher{hub: hub, notifier: notifier}
}

// Publish delivers the event. Failures are logged, never returned: events are best effort.
func (p *Publisher) Publish(ctx context.Context, eventType string, payload any) {
	if p == nil {
		return
	}
	data, err := json.Marshal(Envelope{Type: eventType, Payload: payload})
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to encode realtime event",
			slog.String("event", eventType), slog.String("error", err.Error()))
		return
	}
	observability.WebSocketEventsTotal.WithLabelValues(eventType).Inc()

	if p.notifier.Enabled() {
		err := p.notifier.PublishBroadcast(ctx, string(data))
		if err == nil {
			return
		}
		middleware.Logger.WarnContext(ctx, "redis publish failed, delivering locally",
			slog.String("event", eventType), slog.String("error", err.Error()))
	}
	if p.hub != nil {
		p.hub.BroadcastAll(string(data))
	}
}
