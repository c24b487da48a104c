package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arkadem/campus-platform-iam/internal/core/domain"
	"github.com/arkadem/campus-platform-iam/internal/core/port"
	"github.com/arkadem/campus-platform-iam/internal/infra/logger"
	"github.com/arkadem/campus-platform-iam/internal/infra/security"
	"github.com/arkadem/campus-platform-iam/internal/repository"
)

// AccountService covers profile reads and owner-initiated mutations outside
// the registration and login flows.
type AccountService struct {
	accounts  port.AccountRepository
	cache     ProfileCache
	tokens    *SessionTokenService
	validator *security.PasswordValidator
	publisher port.EventPublisher
	logger    *zap.Logger

	now func() time.Time
}

// NewAccountService constructs the profile service.
func NewAccountService(
	accounts port.AccountRepository,
	cache ProfileCache,
	tokens *SessionTokenService,
	minPasswordScore int,
	publisher port.EventPublisher,
	log *zap.Logger,
) *AccountService {
	return &AccountService{
		accounts:  accounts,
		cache:     cache,
		tokens:    tokens,
		validator: security.DefaultPasswordValidator(minPasswordScore),
		publisher: publisher,
		logger:    log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *AccountService) WithClock(now func() time.Time) *AccountService {
	if now != nil {
		s.now = now
	}
	return s
}

// GetByID returns the account profile, serving from cache when warm.
func (s *AccountService) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: account id is required", ErrInvalidArgument)
	}

	if s.cache != nil {
		if cached, err := s.cache.Read(ctx, id); err == nil {
			return cached, nil
		} else if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("profile cache read failed", zap.Error(err))
		}
	}

	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Write(ctx, *account); err != nil {
			s.logger.Warn("profile cache write failed", zap.Error(err))
		}
	}

	return account, nil
}

// GetByEmail returns the account for an address. Profile fetches by address
// bypass the cache, which is keyed by id.
func (s *AccountService) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidArgument)
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	return account, nil
}

// UpdateNickname changes the display name of an active account.
func (s *AccountService) UpdateNickname(ctx context.Context, id, nickname string) (*domain.Account, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return nil, fmt.Errorf("%w: nickname is required", ErrInvalidArgument)
	}

	account, err := s.getMutable(ctx, id)
	if err != nil {
		return nil, err
	}

	account.Nickname = nickname
	account.UpdatedAt = s.now()
	if err := s.accounts.Update(ctx, *account); err != nil {
		return nil, fmt.Errorf("update nickname: %w", err)
	}

	s.evict(ctx, account.ID)
	return account, nil
}

// UpdatePassword replaces the password after checking the current one. The
// live refresh token is revoked so the change ends the existing session.
func (s *AccountService) UpdatePassword(ctx context.Context, id, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return fmt.Errorf("%w: old and new passwords are required", ErrInvalidArgument)
	}

	account, err := s.getMutable(ctx, id)
	if err != nil {
		return err
	}

	ok, err := security.VerifyPassword(oldPassword, account.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}

	if err := s.validator.Validate(newPassword); err != nil {
		return errors.Join(ErrPasswordPolicyViolation, err)
	}
	if err := security.RequireDifferentFrom(oldPassword).Validate(newPassword); err != nil {
		return errors.Join(ErrPasswordPolicyViolation, err)
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	if err := s.accounts.UpdatePassword(ctx, account.ID, hash, now); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.evict(ctx, account.ID)
	if s.tokens != nil {
		if err := s.tokens.RevokeForAddress(ctx, account.Email); err != nil {
			s.logger.Warn("revoke session after password change", zap.Error(err))
		}
	}

	if s.publisher != nil {
		event := domain.PasswordChangedEvent{
			EventID:   uuid.NewString(),
			AccountID: account.ID,
			ChangedAt: now,
			ChangedBy: "owner",
		}
		if err := s.publisher.PublishPasswordChanged(ctx, event); err != nil {
			s.logger.Warn("publish password changed event failed", zap.Error(err))
		}
	}

	return nil
}

// Deactivate retires the account. The status-change timestamp it writes is
// what the re-registration cooldown later measures from.
func (s *AccountService) Deactivate(ctx context.Context, id string) error {
	account, err := s.getMutable(ctx, id)
	if err != nil {
		return err
	}

	now := s.now()
	if err := s.accounts.UpdateStatus(ctx, account.ID, domain.AccountStatusDeactivated, now); err != nil {
		return fmt.Errorf("deactivate account: %w", err)
	}

	s.evict(ctx, account.ID)
	if s.tokens != nil {
		if err := s.tokens.RevokeForAddress(ctx, account.Email); err != nil {
			s.logger.Warn("revoke session after deactivation", zap.Error(err))
		}
	}

	s.logger.Info("account deactivated",
		zap.String("account_id", account.ID),
		zap.String("email", logger.MaskEmail(account.Email)),
	)

	if s.publisher != nil {
		event := domain.AccountDeactivatedEvent{
			EventID:       uuid.NewString(),
			AccountID:     account.ID,
			Email:         account.Email,
			DeactivatedAt: now,
		}
		if err := s.publisher.PublishAccountDeactivated(ctx, event); err != nil {
			s.logger.Warn("publish account deactivated event failed", zap.Error(err))
		}
	}

	return nil
}

// getMutable loads the account and requires normal standing.
func (s *AccountService) getMutable(ctx context.Context, id string) (*domain.Account, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: account id is required", ErrInvalidArgument)
	}

	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	if account.Status != domain.AccountStatusNormal {
		return nil, ErrInvalidStatus
	}

	return account, nil
}

func (s *AccountService) evict(ctx context.Context, accountID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Evict(ctx, accountID); err != nil {
		s.logger.Warn("evict profile cache", zap.String("account_id", accountID), zap.Error(err))
	}
}
