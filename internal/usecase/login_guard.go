package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arkadem/campus-platform-iam/internal/core/domain"
	"github.com/arkadem/campus-platform-iam/internal/core/port"
	"github.com/arkadem/campus-platform-iam/internal/infra/logger"
	"github.com/arkadem/campus-platform-iam/internal/infra/metrics"
)

// LoginGuard tracks consecutive authentication failures per address and trips
// a temporary lockout at the configured threshold.
type LoginGuard struct {
	store     port.TransientStore
	publisher port.EventPublisher
	logger    *zap.Logger
	metrics   *metrics.AuthMetrics

	failWindow time.Duration
	lockTTL    time.Duration
	maxFails   int64

	now func() time.Time
}

// LoginGuardConfig carries the lockout tuning knobs.
type LoginGuardConfig struct {
	FailWindow time.Duration
	LockTTL    time.Duration
	MaxFails   int
}

// NewLoginGuard constructs the brute-force guard.
func NewLoginGuard(store port.TransientStore, publisher port.EventPublisher, cfg LoginGuardConfig, log *zap.Logger) *LoginGuard {
	if cfg.FailWindow <= 0 {
		cfg.FailWindow = 5 * time.Minute
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	if cfg.MaxFails <= 0 {
		cfg.MaxFails = 5
	}

	return &LoginGuard{
		store:      store,
		publisher:  publisher,
		logger:     log,
		failWindow: cfg.FailWindow,
		lockTTL:    cfg.LockTTL,
		maxFails:   int64(cfg.MaxFails),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source. Intended for tests.
func (g *LoginGuard) WithClock(now func() time.Time) *LoginGuard {
	if now != nil {
		g.now = now
	}
	return g
}

// WithMetrics attaches lifecycle counters.
func (g *LoginGuard) WithMetrics(m *metrics.AuthMetrics) *LoginGuard {
	g.metrics = m
	return g
}

func failKey(address string) string {
	return fmt.Sprintf("auth:login:fails:%s", address)
}

func lockKey(address string) string {
	return fmt.Sprintf("auth:login:lock:%s", address)
}

// IsLocked reports whether the address currently sits under a lockout.
func (g *LoginGuard) IsLocked(ctx context.Context, address string) (bool, error) {
	locked, err := g.store.Exists(ctx, lockKey(address))
	if err != nil {
		return false, fmt.Errorf("check login lock: %w", err)
	}
	return locked, nil
}

// RecordFailure bumps the failure counter. The decay window is armed only on
// the first failure so later ones do not extend it. Reaching the threshold
// replaces the counter with a lock marker and emits a lifecycle event.
func (g *LoginGuard) RecordFailure(ctx context.Context, address string) error {
	count, err := g.store.Increment(ctx, failKey(address))
	if err != nil {
		return fmt.Errorf("increment login failures: %w", err)
	}
	g.metrics.RecordLoginFailure()

	if count == 1 {
		if err := g.store.Expire(ctx, failKey(address), g.failWindow); err != nil {
			return fmt.Errorf("arm failure window: %w", err)
		}
	}

	if count < g.maxFails {
		return nil
	}

	if err := g.store.Set(ctx, lockKey(address), "1", g.lockTTL); err != nil {
		return fmt.Errorf("set login lock: %w", err)
	}
	if err := g.store.Remove(ctx, failKey(address)); err != nil {
		return fmt.Errorf("clear failure counter: %w", err)
	}
	g.metrics.RecordLockout()

	g.logger.Warn("login lockout tripped",
		zap.String("address", logger.MaskEmail(address)),
		zap.Int64("failures", count),
		zap.Duration("lock_ttl", g.lockTTL),
	)

	if g.publisher != nil {
		event := domain.LoginLockedEvent{
			EventID:  uuid.NewString(),
			Email:    address,
			Failures: int(count),
			LockTTL:  g.lockTTL,
			LockedAt: g.now(),
		}
		if err := g.publisher.PublishLoginLocked(ctx, event); err != nil {
			g.logger.Warn("publish login locked event failed", zap.Error(err))
		}
	}

	return nil
}

// Clear drops both the failure counter and any lock marker for the address.
func (g *LoginGuard) Clear(ctx context.Context, address string) error {
	if err := g.store.Remove(ctx, failKey(address)); err != nil {
		return fmt.Errorf("clear failure counter: %w", err)
	}
	if err := g.store.Remove(ctx, lockKey(address)); err != nil {
		return fmt.Errorf("clear login lock: %w", err)
	}
	return nil
}
