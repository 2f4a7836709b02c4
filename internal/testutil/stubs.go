package testutil

import (
	"context"
	"sync"
)

// PublishedEvent is one call recorded by RecordingPublisher.
type PublishedEvent struct {
	Type    string
	Payload any
}

// RecordingPublisher captures realtime events instead of delivering them.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent
}

func (p *RecordingPublisher) Publish(_ context.Context, eventType string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, PublishedEvent{Type: eventType, Payload: payload})
}

// Types returns the recorded event types in order.
func (p *RecordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// RecordingMailer captures password-reset mails.
type RecordingMailer struct {
	mu   sync.Mutex
	Sent []SentMail
	Err  error
}

// SentMail is one reset mail.
type SentMail struct {
	To  string
	URL string
}

func (m *RecordingMailer) SendPasswordReset(_ context.Context, to, resetURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, SentMail{To: to, URL: resetURL})
	return nil
}

// Last returns the most recent mail, if any.
func (m *RecordingMailer) Last() (SentMail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return SentMail{}, false
	}
	return m.Sent[len(m.Sent)-1], true
}
