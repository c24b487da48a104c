package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arkadem/campus-platform-iam/internal/core/port"
	"github.com/arkadem/campus-platform-iam/internal/infra/logger"
	"github.com/arkadem/campus-platform-iam/internal/infra/mail"
	"github.com/arkadem/campus-platform-iam/internal/infra/metrics"
	"github.com/arkadem/campus-platform-iam/internal/infra/security"
	"github.com/arkadem/campus-platform-iam/internal/repository"
)

// CodePurpose distinguishes the independent verification code flows. Codes and
// rate markers for different purposes never collide in the store.
type CodePurpose string

const (
	// PurposeRegister is the registration / reactivation flow.
	PurposeRegister CodePurpose = "register"
	// PurposeReset is the password reset flow.
	PurposeReset CodePurpose = "reset"
)

const verificationCodeLength = 4

// VerificationService issues and validates short-lived numeric codes delivered
// by mail, with a per-address send rate limit per purpose.
type VerificationService struct {
	store    port.TransientStore
	notifier port.Notifier
	logger   *zap.Logger
	metrics  *metrics.AuthMetrics

	codeTTL map[CodePurpose]time.Duration
	rateTTL map[CodePurpose]time.Duration
}

// VerificationConfig carries the per-purpose lifetimes.
type VerificationConfig struct {
	RegisterCodeTTL     time.Duration
	RegisterCodeRateTTL time.Duration
	ResetCodeTTL        time.Duration
	ResetCodeRateTTL    time.Duration
}

// NewVerificationService constructs the code issuance service.
func NewVerificationService(store port.TransientStore, notifier port.Notifier, cfg VerificationConfig, log *zap.Logger) *VerificationService {
	if cfg.RegisterCodeTTL <= 0 {
		cfg.RegisterCodeTTL = 90 * time.Second
	}
	if cfg.RegisterCodeRateTTL <= 0 {
		cfg.RegisterCodeRateTTL = 60 * time.Second
	}
	if cfg.ResetCodeTTL <= 0 {
		cfg.ResetCodeTTL = 90 * time.Second
	}
	if cfg.ResetCodeRateTTL <= 0 {
		cfg.ResetCodeRateTTL = 60 * time.Second
	}

	return &VerificationService{
		store:    store,
		notifier: notifier,
		logger:   log,
		codeTTL: map[CodePurpose]time.Duration{
			PurposeRegister: cfg.RegisterCodeTTL,
			PurposeReset:    cfg.ResetCodeTTL,
		},
		rateTTL: map[CodePurpose]time.Duration{
			PurposeRegister: cfg.RegisterCodeRateTTL,
			PurposeReset:    cfg.ResetCodeRateTTL,
		},
	}
}

// WithMetrics attaches lifecycle counters.
func (s *VerificationService) WithMetrics(m *metrics.AuthMetrics) *VerificationService {
	s.metrics = m
	return s
}

func codeKey(purpose CodePurpose, address string) string {
	return fmt.Sprintf("auth:code:%s:%s", purpose, address)
}

func rateKey(purpose CodePurpose, address string) string {
	return fmt.Sprintf("auth:code:rate:%s:%s", purpose, address)
}

// Issue generates a fresh code for the address, stores it, arms the rate
// marker, and mails it. The code and marker are written before the mail is
// attempted: a relay failure surfaces as ErrDeliveryFailed but leaves both in
// place, so the user cannot hammer the relay by retrying and a slow mail that
// does arrive still validates.
func (s *VerificationService) Issue(ctx context.Context, purpose CodePurpose, address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return fmt.Errorf("%w: address is required", ErrInvalidArgument)
	}
	ttl, ok := s.codeTTL[purpose]
	if !ok {
		return fmt.Errorf("%w: unknown code purpose %q", ErrInvalidArgument, purpose)
	}

	limited, err := s.store.Exists(ctx, rateKey(purpose, address))
	if err != nil {
		return fmt.Errorf("check rate marker: %w", err)
	}
	if limited {
		return ErrRateLimited
	}

	code, err := security.GenerateNumericCode(verificationCodeLength)
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}

	if err := s.store.Set(ctx, codeKey(purpose, address), code, ttl); err != nil {
		return fmt.Errorf("store code: %w", err)
	}
	if err := s.store.Set(ctx, rateKey(purpose, address), "1", s.rateTTL[purpose]); err != nil {
		return fmt.Errorf("store rate marker: %w", err)
	}
	s.metrics.RecordCodeIssued(string(purpose))

	subject, body := s.renderMail(purpose, code, ttl)
	if err := s.notifier.Send(ctx, address, subject, body); err != nil {
		s.logger.Warn("verification code delivery failed",
			zap.String("purpose", string(purpose)),
			zap.String("address", logger.MaskEmail(address)),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	return nil
}

// Validate compares the submitted code with the stored one and consumes it on
// match. An absent code reads as expired; a mismatch leaves the stored code in
// place for further attempts within its lifetime.
func (s *VerificationService) Validate(ctx context.Context, purpose CodePurpose, address, code string) error {
	address = strings.TrimSpace(address)
	code = strings.TrimSpace(code)
	if address == "" || code == "" {
		return fmt.Errorf("%w: address and code are required", ErrInvalidArgument)
	}

	stored, err := s.store.Get(ctx, codeKey(purpose, address))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCodeExpired
		}
		return fmt.Errorf("load code: %w", err)
	}
	if stored != code {
		return ErrCodeInvalid
	}

	if err := s.store.Remove(ctx, codeKey(purpose, address)); err != nil {
		return fmt.Errorf("consume code: %w", err)
	}

	return nil
}

func (s *VerificationService) renderMail(purpose CodePurpose, code string, ttl time.Duration) (string, string) {
	seconds := int(ttl.Seconds())
	if purpose == PurposeReset {
		return mail.ResetCodeMail(code, seconds)
	}
	return mail.RegistrationCodeMail(code, seconds)
}
