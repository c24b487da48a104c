package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arkadem/campus-platform-iam/internal/core/domain"
	"github.com/arkadem/campus-platform-iam/internal/core/port"
	"github.com/arkadem/campus-platform-iam/internal/infra/logger"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, accountID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("account_id", accountID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishAccountRegistered logs iam.account.registered events.
func (p *StubPublisher) PublishAccountRegistered(_ context.Context, event domain.AccountRegisteredEvent) error {
	payload := map[string]any{
		"account_id":    event.AccountID,
		"email":         logger.MaskEmail(event.Email),
		"status":        event.Status,
		"reactivated":   event.Reactivated,
		"registered_at": event.RegisteredAt,
	}
	p.logEvent("iam.account.registered", event.AccountID, event.RegisteredAt, payload)
	return nil
}

// PublishLoginLocked logs iam.login.locked events.
func (p *StubPublisher) PublishLoginLocked(_ context.Context, event domain.LoginLockedEvent) error {
	payload := map[string]any{
		"email":        logger.MaskEmail(event.Email),
		"failures":     event.Failures,
		"lock_seconds": int(event.LockTTL.Seconds()),
		"locked_at":    event.LockedAt,
	}
	p.logEvent("iam.login.locked", "", event.LockedAt, payload)
	return nil
}

// PublishPasswordChanged logs iam.account.password.changed events.
func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	payload := map[string]any{
		"account_id": event.AccountID,
		"changed_at": event.ChangedAt,
		"changed_by": event.ChangedBy,
	}
	p.logEvent("iam.account.password.changed", event.AccountID, event.ChangedAt, payload)
	return nil
}

// PublishAccountDeactivated logs iam.account.deactivated events.
func (p *StubPublisher) PublishAccountDeactivated(_ context.Context, event domain.AccountDeactivatedEvent) error {
	payload := map[string]any{
		"account_id":     event.AccountID,
		"email":          logger.MaskEmail(event.Email),
		"deactivated_at": event.DeactivatedAt,
	}
	p.logEvent("iam.account.deactivated", event.AccountID, event.DeactivatedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
