// Package events provides a fire-and-forget NATS publisher for domain events
// that other components react to (watchlist changes, published recommendations).
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Subject constants for every event type.
const (
	SubjectWatchlistChanged         = "watchlist.changed"
	SubjectRecommendationsPublished = "recommendations.published"
)

// Event is the canonical envelope sent to all subjects.
type Event struct {
	EventID    string         `json:"event_id"`
	EventName  string         `json:"event_name"`
	UserID     string         `json:"user_id,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Conn is the subset of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subj string, data []byte) error
}

// Publisher publishes events over a NATS connection.
// The zero value and a nil pointer are both safe no-op stubs.
type Publisher struct {
	nc  Conn
	log *zap.Logger
	now func() time.Time
}

// New creates a Publisher. Pass nc=nil to get a no-op stub (useful in tests
// and deployments without NATS).
func New(nc Conn, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{nc: nc, log: log, now: time.Now}
}

// Enabled reports whether events actually leave the process.
func (p *Publisher) Enabled() bool {
	return p != nil && p.nc != nil
}

// Publish sends an event. Failures are logged as warnings and never surface
// to the caller. The publisher is safe to call with a nil receiver.
func (p *Publisher) Publish(subject, eventName, userID string, props map[string]any) {
	if !p.Enabled() {
		return
	}
	ev := Event{
		EventID:    uuid.NewString(),
		EventName:  eventName,
		UserID:     userID,
		OccurredAt: p.now().UTC(),
		Properties: props,
	}
	data, err := json.Marshal(ev)
	if err != nil {
		p.log.Warn("events: marshal failed", zap.String("event", eventName), zap.Error(err))
		return
	}
	if err := p.nc.Publish(subject, data); err != nil {
		p.log.Warn("events: publish failed", zap.String("subject", subject), zap.Error(err))
	}
}

// Decode parses an envelope received on any subject.
func Decode(data []byte) (Event, error) {
	var ev Event
	err := json.Unmarshal(data, &ev)
	return ev, err
}
