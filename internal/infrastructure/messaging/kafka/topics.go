// Package kafka carries review corrections from the API to the worker and
// publishes parse lifecycle events for downstream consumers.
package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/turtacn/ClauseIQ-Intelligence/pkg/errors"
	types "github.com/turtacn/ClauseIQ-Intelligence/pkg/types/clause"
)

// Topics. Corrections are the learning feedback channel; parsed events let
// downstream systems react to new records without polling.
const (
	TopicCorrections           = "clause.corrections"
	TopicCorrectionsDeadLetter = "clause.corrections.dlq"
	TopicParseCompleted        = "clause.parsed"
)

// Event types carried in the envelope.
const (
	EventCorrectionSubmitted = "correction.submitted"
	EventParseCompleted      = "parse.completed"
)

// EventEnvelope is the wire form of every message.
type EventEnvelope struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	Source        string            `json:"source"`
	Timestamp     time.Time         `json:"timestamp"`
	SchemaVersion string            `json:"schema_version"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// ParseCompletedPayload announces a stored parse record.
type ParseCompletedPayload struct {
	RecordID          string    `json:"record_id"`
	Category          string    `json:"category"`
	OverallConfidence float64   `json:"overall_confidence"`
	Status            string    `json:"status"`
	ParsedAt          time.Time `json:"parsed_at"`
}

// NewEventEnvelope wraps a payload for publishing.
func NewEventEnvelope(eventType string, source string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal payload")
	}
	return &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: "v1",
		Payload:       data,
	}, nil
}

// DecodePayload unmarshals the payload into target.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return errors.New(errors.ErrCodeValidation, "envelope has no payload")
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal payload")
	}
	return nil
}

// ToMessage renders the envelope as a kafka message. The key keeps all
// messages for one parse record in one partition, so corrections for the
// same record are consumed in order.
func (e *EventEnvelope) ToMessage(topic string, key string) (kafka.Message, error) {
	val, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal envelope")
	}
	return kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: val,
		Time:  e.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.EventType)},
			{Key: "source_service", Value: []byte(e.Source)},
			{Key: "schema_version", Value: []byte(e.SchemaVersion)},
		},
	}, nil
}

// DecodeEnvelope parses a consumed kafka message back into an envelope.
func DecodeEnvelope(msg kafka.Message) (*EventEnvelope, error) {
	if len(msg.Value) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "empty message value")
	}
	var env EventEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal envelope")
	}
	return &env, nil
}

// NewCorrectionEnvelope wraps a correction for the corrections topic.
func NewCorrectionEnvelope(source string, c *types.Correction) (*EventEnvelope, error) {
	return NewEventEnvelope(EventCorrectionSubmitted, source, c)
}

// DecodeCorrection extracts the correction from a corrections-topic envelope.
func DecodeCorrection(env *EventEnvelope) (*types.Correction, error) {
	if env.EventType != EventCorrectionSubmitted {
		return nil, errors.New(errors.ErrCodeValidation, "unexpected event type").
			WithDetail(env.EventType)
	}
	var c types.Correction
	if err := env.DecodePayload(&c); err != nil {
		return nil, err
	}
	return &c, nil
}
