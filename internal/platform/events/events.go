package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Event types
const (
	EncounterCreated = "encounter.created"
	EncounterDone    = "encounter.done"
	EncounterSigned  = "encounter.signed"
	EncounterInvalid = "encounter.invalid"
	ComponentSaved   = "component.saved"
	ComponentSigned  = "component.signed"
)

// Event is the envelope written to the stream.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

type EncounterEvent struct {
	EncounterID string `json:"encounter_id"`
	Number      int64  `json:"number"`
	PatientID   string `json:"patient_id"`
	State       string `json:"state"`
	ActorID     string `json:"actor_id,omitempty"`
}

// Topic groups events by the encounter they concern.
func (e EncounterEvent) Topic() string { return "encounter:" + e.EncounterID }

type ComponentEvent struct {
	ComponentID   string `json:"component_id"`
	EncounterID   string `json:"encounter_id"`
	ComponentType string `json:"component_type"`
	CriticalInfo  string `json:"critical_info,omitempty"`
	SignedBy      string `json:"signed_by,omitempty"`
}

func (e ComponentEvent) Topic() string { return "encounter:" + e.EncounterID }

// Publisher emits lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, eventType string, data any) error
}

// StreamPublisher appends events to a Redis stream with XADD.
type StreamPublisher struct {
	client *redis.Client
	stream string
}

func NewStreamPublisher(client *redis.Client, stream string) *StreamPublisher {
	return &StreamPublisher{client: client, stream: stream}
}

func (p *StreamPublisher) Publish(ctx context.Context, eventType string, data any) error {
	eventJSON, err := json.Marshal(Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"type":  eventType,
			"event": eventJSON,
		},
	}
	if _, err := p.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

// Fanout publishes to every publisher and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, eventType string, data any) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, eventType, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }

// Emit publishes and logs failures at warn. Lifecycle transitions never fail
// because the stream is unavailable.
func Emit(ctx context.Context, p Publisher, logger zerolog.Logger, eventType string, data any) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, eventType, data); err != nil {
		logger.Warn().Err(err).Str("event", eventType).Msg("event publish failed")
	}
}
