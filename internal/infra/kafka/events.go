package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/arkadem/campus-platform-iam/internal/core/domain"
	"github.com/arkadem/campus-platform-iam/internal/core/port"
	"github.com/arkadem/campus-platform-iam/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	AccountID string           `json:"account_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, accountID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		AccountID: accountID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishAccountRegistered publishes iam.account.registered events.
func (p *EventPublisher) PublishAccountRegistered(ctx context.Context, event domain.AccountRegisteredEvent) error {
	payload := struct {
		AccountID    string    `json:"account_id"`
		Email        string    `json:"email"`
		Status       string    `json:"status"`
		Reactivated  bool      `json:"reactivated"`
		RegisteredAt time.Time `json:"registered_at"`
	}{
		AccountID:    event.AccountID,
		Email:        event.Email,
		Status:       event.Status,
		Reactivated:  event.Reactivated,
		RegisteredAt: event.RegisteredAt.UTC(),
	}

	return p.publish(ctx, event.EventID, "iam.account.registered", event.AccountID, event.RegisteredAt, payload)
}

// PublishLoginLocked publishes iam.login.locked events.
func (p *EventPublisher) PublishLoginLocked(ctx context.Context, event domain.LoginLockedEvent) error {
	payload := struct {
		Email       string    `json:"email"`
		Failures    int       `json:"failures"`
		LockSeconds int       `json:"lock_seconds"`
		LockedAt    time.Time `json:"locked_at"`
	}{
		Email:       event.Email,
		Failures:    event.Failures,
		LockSeconds: int(event.LockTTL.Seconds()),
		LockedAt:    event.LockedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, "iam.login.locked", "", event.LockedAt, payload)
}

// PublishPasswordChanged publishes iam.account.password.changed events.
func (p *EventPublisher) PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error {
	payload := struct {
		AccountID string    `json:"account_id"`
		ChangedAt time.Time `json:"changed_at"`
		ChangedBy string    `json:"changed_by"`
	}{
		AccountID: event.AccountID,
		ChangedAt: event.ChangedAt.UTC(),
		ChangedBy: event.ChangedBy,
	}

	return p.publish(ctx, event.EventID, "iam.account.password.changed", event.AccountID, event.ChangedAt, payload)
}

// PublishAccountDeactivated publishes iam.account.deactivated events.
func (p *EventPublisher) PublishAccountDeactivated(ctx context.Context, event domain.AccountDeactivatedEvent) error {
	payload := struct {
		AccountID     string    `json:"account_id"`
		Email         string    `json:"email"`
		DeactivatedAt time.Time `json:"deactivated_at"`
	}{
		AccountID:     event.AccountID,
		Email:         event.Email,
		DeactivatedAt: event.DeactivatedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, "iam.account.deactivated", event.AccountID, event.DeactivatedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
