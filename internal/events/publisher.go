// Package events publishes domain events to the platform message bus.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// Event types emitted by this service.
const (
	TypeAnswerRecorded      = "question.answer_recorded"
	TypeAssignmentDelivered = "assignment.delivered"
	TypeReportGenerated     = "report.generated"
)

// Topic is the single bus topic this service publishes on.
const Topic = "testprep.events"

const (
	eventSource  = "testprep-service"
	eventVersion = "1.0"
)

// Event is the envelope for every message this service publishes.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// NewEvent builds an envelope with identity and provenance filled in.
func NewEvent(eventType string, data interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    eventSource,
		Version:   eventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// EventPublisher is the outbound bus contract used by services.
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// ===== EVENT PAYLOADS =====

type AnswerRecordedEvent struct {
	QuestionID       string `json:"question_id"`
	IsCorrect        bool   `json:"is_correct"`
	TimeSpentSeconds int    `json:"time_spent_seconds"`
	TimesUsed        int    `json:"times_used"`
}

type AssignmentDeliveredEvent struct {
	AssignmentID  string `json:"assignment_id"`
	StudentID     string `json:"student_id"`
	QuestionCount int    `json:"question_count"`
}

type ReportGeneratedEvent struct {
	ReportID  string    `json:"report_id"`
	StudentID string    `json:"student_id"`
	WeekStart time.Time `json:"week_start"`
}

// ===== WATERMILL PUBLISHERS =====

type watermillPublisher struct {
	publisher message.Publisher
	logger    *slog.Logger
}

// NewGoChannelPublisher returns an in-process publisher, used when no Kafka
// brokers are configured (local development, tests that want a real bus).
func NewGoChannelPublisher(logger *slog.Logger) EventPublisher {
	pub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewSlogLogger(logger))
	return &watermillPublisher{publisher: pub, logger: logger}
}

// NewKafkaPublisher returns a publisher backed by the given Kafka brokers.
func NewKafkaPublisher(brokers []string, logger *slog.Logger) (EventPublisher, error) {
	pub, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:   brokers,
			Marshaler: kafka.DefaultMarshaler{},
		},
		watermill.NewSlogLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	return &watermillPublisher{publisher: pub, logger: logger}, nil
}

func (p *watermillPublisher) Publish(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("event_type", event.Type)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(Topic, msg); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.Type, err)
	}

	p.logger.DebugContext(ctx, "Event published",
		"event_id", event.ID,
		"event_type", event.Type)

	return nil
}

func (p *watermillPublisher) Close() error {
	return p.publisher.Close()
}
