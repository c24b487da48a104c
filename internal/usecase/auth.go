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
	"github.com/arkadem/campus-platform-iam/internal/infra/metrics"
	"github.com/arkadem/campus-platform-iam/internal/infra/security"
	"github.com/arkadem/campus-platform-iam/internal/repository"
)

// ProfileCache is the read-through cache contract for account profiles.
// Mutating flows evict; a nil cache disables caching entirely.
type ProfileCache interface {
	Read(ctx context.Context, id string) (*domain.Account, error)
	Write(ctx context.Context, account domain.Account) error
	Evict(ctx context.Context, id string) error
}

// AuthService drives the account lifecycle: code-verified registration and
// reactivation, guarded login, refresh token rotation, and password reset.
type AuthService struct {
	accounts     port.AccountRepository
	cache        ProfileCache
	verification *VerificationService
	guard        *LoginGuard
	tokens       *SessionTokenService
	validator    *security.PasswordValidator
	publisher    port.EventPublisher
	logger       *zap.Logger
	metrics      *metrics.AuthMetrics

	emailSuffix string
	cooldown    time.Duration

	now func() time.Time
}

// AuthConfig carries the registration policy knobs.
type AuthConfig struct {
	EmailSuffix          string
	ReactivationCooldown time.Duration
	MinPasswordScore     int
}

// NewAuthService wires the lifecycle controller.
func NewAuthService(
	accounts port.AccountRepository,
	cache ProfileCache,
	verification *VerificationService,
	guard *LoginGuard,
	tokens *SessionTokenService,
	publisher port.EventPublisher,
	cfg AuthConfig,
	log *zap.Logger,
) *AuthService {
	if cfg.ReactivationCooldown <= 0 {
		cfg.ReactivationCooldown = 10 * 24 * time.Hour
	}

	return &AuthService{
		accounts:     accounts,
		cache:        cache,
		verification: verification,
		guard:        guard,
		tokens:       tokens,
		validator:    security.DefaultPasswordValidator(cfg.MinPasswordScore),
		publisher:    publisher,
		logger:       log,
		emailSuffix:  cfg.EmailSuffix,
		cooldown:     cfg.ReactivationCooldown,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	if now != nil {
		s.now = now
	}
	return s
}

// WithMetrics attaches lifecycle counters.
func (s *AuthService) WithMetrics(m *metrics.AuthMetrics) *AuthService {
	s.metrics = m
	return s
}

// normalizeAddress lowercases, trims, and enforces the campus suffix.
func (s *AuthService) normalizeAddress(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", fmt.Errorf("%w: email is required", ErrInvalidArgument)
	}
	if s.emailSuffix != "" {
		if !strings.HasSuffix(email, s.emailSuffix) || len(email) <= len(s.emailSuffix) {
			return "", fmt.Errorf("%w: email must end with %s", ErrInvalidArgument, s.emailSuffix)
		}
	}
	return email, nil
}

// assertRegisterAllowed decides whether the address may go through the
// registration flow. It returns the existing account when the flow should
// reactivate rather than create. A deactivated account with no recorded
// status-change time is treated as still inside the cooldown.
func (s *AuthService) assertRegisterAllowed(ctx context.Context, email string) (*domain.Account, bool, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("lookup account: %w", err)
	}

	switch account.Status {
	case domain.AccountStatusNormal:
		return nil, false, ErrDuplicateAccount
	case domain.AccountStatusBanned:
		return nil, false, ErrInvalidStatus
	case domain.AccountStatusDeactivated:
		if account.UpdatedAt.IsZero() {
			return nil, false, ErrInvalidStatus
		}
		if s.now().Before(account.UpdatedAt.Add(s.cooldown)) {
			return nil, false, ErrInvalidStatus
		}
		return account, true, nil
	default:
		return nil, false, ErrInvalidStatus
	}
}

// SendRegistrationCode mails a verification code for registration or
// reactivation. Lifecycle eligibility is checked before the send rate limit,
// so a duplicate address reads as duplicate even while rate limited.
func (s *AuthService) SendRegistrationCode(ctx context.Context, email string) error {
	email, err := s.normalizeAddress(email)
	if err != nil {
		return err
	}

	if _, _, err := s.assertRegisterAllowed(ctx, email); err != nil {
		return err
	}

	return s.verification.Issue(ctx, PurposeRegister, email)
}

// RegisterInput carries a registration request.
type RegisterInput struct {
	Email           string
	Nickname        string
	Password        string
	ConfirmPassword string
	Code            string
}

// Register consumes a valid code and either creates the account or
// reactivates a deactivated one past its cooldown.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.Account, error) {
	email, err := s.normalizeAddress(in.Email)
	if err != nil {
		return nil, err
	}
	if in.Password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidArgument)
	}
	if in.Password != in.ConfirmPassword {
		return nil, fmt.Errorf("%w: passwords do not match", ErrInvalidArgument)
	}

	existing, reactivate, err := s.assertRegisterAllowed(ctx, email)
	if err != nil {
		return nil, err
	}

	if err := s.verification.Validate(ctx, PurposeRegister, email, in.Code); err != nil {
		return nil, err
	}

	if err := s.validator.Validate(in.Password); err != nil {
		return nil, errors.Join(ErrPasswordPolicyViolation, err)
	}

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()

	if reactivate {
		account := *existing
		account.PasswordHash = hash
		account.Status = domain.AccountStatusNormal
		account.UpdatedAt = now
		if nickname := strings.TrimSpace(in.Nickname); nickname != "" {
			account.Nickname = nickname
		}

		if err := s.accounts.Update(ctx, account); err != nil {
			return nil, fmt.Errorf("reactivate account: %w", err)
		}
		s.evict(ctx, account.ID)
		s.publishRegistered(ctx, account, true, now)

		s.logger.Info("account reactivated",
			zap.String("account_id", account.ID),
			zap.String("email", logger.MaskEmail(account.Email)),
		)
		return &account, nil
	}

	account := domain.Account{
		ID:           uuid.NewString(),
		Email:        email,
		Nickname:     strings.TrimSpace(in.Nickname),
		PasswordHash: hash,
		Status:       domain.AccountStatusNormal,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if account.Nickname == "" {
		account.Nickname = strings.TrimSuffix(email, s.emailSuffix)
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateAccount
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	s.publishRegistered(ctx, account, false, now)

	s.logger.Info("account registered",
		zap.String("account_id", account.ID),
		zap.String("email", logger.MaskEmail(account.Email)),
	)
	return &account, nil
}

// Login authenticates the address and issues a fresh token pair. Failures
// against an existing, normal-status account feed the lockout counter; a
// wrong lifecycle state does not, since no credential was probed.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	email, err := s.normalizeAddress(email)
	if err != nil {
		return nil, err
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidArgument)
	}

	locked, err := s.guard.IsLocked(ctx, email)
	if err != nil {
		return nil, err
	}
	if locked {
		return nil, ErrAccountLocked
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			if gerr := s.guard.RecordFailure(ctx, email); gerr != nil {
				s.logger.Warn("record login failure", zap.Error(gerr))
			}
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	if account.Status != domain.AccountStatusNormal {
		return nil, ErrInvalidStatus
	}

	ok, err := security.VerifyPassword(password, account.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		if gerr := s.guard.RecordFailure(ctx, email); gerr != nil {
			s.logger.Warn("record login failure", zap.Error(gerr))
		}
		return nil, ErrInvalidCredentials
	}

	if err := s.guard.Clear(ctx, email); err != nil {
		return nil, err
	}

	access, err := s.tokens.IssueAccessToken(email)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefreshToken(ctx, email)
	if err != nil {
		return nil, err
	}

	return &domain.LoginResult{
		Account:      account.Sanitized(),
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

// Refresh exchanges a live refresh token for a new token pair, rotating the
// refresh token in the process.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.LoginResult, error) {
	email, err := s.tokens.Resolve(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRefreshTokenInvalid
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	if account.Status != domain.AccountStatusNormal {
		return nil, ErrInvalidStatus
	}

	access, err := s.tokens.IssueAccessToken(email)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefreshToken(ctx, email)
	if err != nil {
		return nil, err
	}

	return &domain.LoginResult{
		Account:      account.Sanitized(),
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

// Logout revokes the refresh token. Unknown tokens fail with
// ErrRefreshTokenInvalid; revocation of a live token is final, so a
// subsequent refresh with the same token also fails.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.tokens.Revoke(ctx, refreshToken)
}

// SendPasswordResetCode mails a reset code. The account must already exist
// and be in normal standing.
func (s *AuthService) SendPasswordResetCode(ctx context.Context, email string) error {
	email, err := s.normalizeAddress(email)
	if err != nil {
		return err
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("lookup account: %w", err)
	}
	if account.Status != domain.AccountStatusNormal {
		return ErrInvalidStatus
	}

	return s.verification.Issue(ctx, PurposeReset, email)
}

// ResetPasswordByCode consumes a reset code, replaces the password, ends the
// live session, and clears any lockout so the owner can log in again.
func (s *AuthService) ResetPasswordByCode(ctx context.Context, email, code, password, confirmPassword string) error {
	email, err := s.normalizeAddress(email)
	if err != nil {
		return err
	}
	if password == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidArgument)
	}
	if password != confirmPassword {
		return fmt.Errorf("%w: passwords do not match", ErrInvalidArgument)
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("lookup account: %w", err)
	}
	if account.Status != domain.AccountStatusNormal {
		return ErrInvalidStatus
	}

	if err := s.verification.Validate(ctx, PurposeReset, email, code); err != nil {
		return err
	}

	if err := s.validator.Validate(password); err != nil {
		return errors.Join(ErrPasswordPolicyViolation, err)
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	if err := s.accounts.UpdatePassword(ctx, account.ID, hash, now); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.evict(ctx, account.ID)
	if err := s.tokens.RevokeForAddress(ctx, email); err != nil {
		s.logger.Warn("revoke session after reset", zap.Error(err))
	}
	if err := s.guard.Clear(ctx, email); err != nil {
		s.logger.Warn("clear lockout after reset", zap.Error(err))
	}

	if s.publisher != nil {
		event := domain.PasswordChangedEvent{
			EventID:   uuid.NewString(),
			AccountID: account.ID,
			ChangedAt: now,
			ChangedBy: "reset_code",
		}
		if err := s.publisher.PublishPasswordChanged(ctx, event); err != nil {
			s.logger.Warn("publish password changed event failed", zap.Error(err))
		}
	}

	return nil
}

func (s *AuthService) evict(ctx context.Context, accountID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Evict(ctx, accountID); err != nil {
		s.logger.Warn("evict profile cache", zap.String("account_id", accountID), zap.Error(err))
	}
}

func (s *AuthService) publishRegistered(ctx context.Context, account domain.Account, reactivated bool, at time.Time) {
	s.metrics.RecordRegistration(reactivated)
	if s.publisher == nil {
		return
	}
	event := domain.AccountRegisteredEvent{
		EventID:      uuid.NewString(),
		AccountID:    account.ID,
		Email:        account.Email,
		Status:       string(account.Status),
		Reactivated:  reactivated,
		RegisteredAt: at,
	}
	if err := s.publisher.PublishAccountRegistered(ctx, event); err != nil {
		s.logger.Warn("publish account registered event failed", zap.Error(err))
	}
}
