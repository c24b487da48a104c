package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arkadem/campus-platform-iam/internal/core/port"
	"github.com/arkadem/campus-platform-iam/internal/infra/security"
	"github.com/arkadem/campus-platform-iam/internal/repository"
)

const refreshTokenBytes = 32

// SessionTokenService mints access tokens and manages opaque refresh tokens.
// Each address holds at most one live refresh token: issuing a new one
// invalidates the previous via the per-address index.
type SessionTokenService struct {
	store      port.TransientStore
	signer     port.TokenSigner
	refreshTTL time.Duration
}

// NewSessionTokenService constructs the token service.
func NewSessionTokenService(store port.TransientStore, signer port.TokenSigner, refreshTTL time.Duration) *SessionTokenService {
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &SessionTokenService{store: store, signer: signer, refreshTTL: refreshTTL}
}

func refreshTokenKey(token string) string {
	return fmt.Sprintf("auth:refresh:token:%s", token)
}

func refreshByAddrKey(address string) string {
	return fmt.Sprintf("auth:refresh:byaddr:%s", address)
}

// IssueAccessToken mints a signed short-lived access token for the address.
func (s *SessionTokenService) IssueAccessToken(address string) (string, error) {
	token, err := s.signer.Sign(address)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return token, nil
}

// IssueRefreshToken rotates the refresh token for the address: the previous
// token, if any, is dropped before the new one is stored under both the token
// key and the per-address index.
func (s *SessionTokenService) IssueRefreshToken(ctx context.Context, address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", fmt.Errorf("%w: address is required", ErrInvalidArgument)
	}

	previous, err := s.store.Get(ctx, refreshByAddrKey(address))
	switch {
	case err == nil:
		if err := s.store.Remove(ctx, refreshTokenKey(previous)); err != nil {
			return "", fmt.Errorf("drop previous refresh token: %w", err)
		}
	case errors.Is(err, repository.ErrNotFound):
		// First session for the address.
	default:
		return "", fmt.Errorf("load refresh index: %w", err)
	}

	token, err := security.GenerateSecureToken(refreshTokenBytes)
	if err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}

	if err := s.store.Set(ctx, refreshTokenKey(token), address, s.refreshTTL); err != nil {
		return "", fmt.Errorf("store refresh token: %w", err)
	}
	if err := s.store.Set(ctx, refreshByAddrKey(address), token, s.refreshTTL); err != nil {
		return "", fmt.Errorf("store refresh index: %w", err)
	}

	return token, nil
}

// Resolve maps a refresh token back to its address, or reports
// ErrRefreshTokenInvalid when the token is unknown, expired, or rotated away.
func (s *SessionTokenService) Resolve(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrRefreshTokenInvalid
	}

	address, err := s.store.Get(ctx, refreshTokenKey(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrRefreshTokenInvalid
		}
		return "", fmt.Errorf("load refresh token: %w", err)
	}

	return address, nil
}

// RevokeForAddress drops whatever refresh token the address currently holds.
// Used when a password change must end the existing session.
func (s *SessionTokenService) RevokeForAddress(ctx context.Context, address string) error {
	token, err := s.store.Get(ctx, refreshByAddrKey(address))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load refresh index: %w", err)
	}

	if err := s.store.Remove(ctx, refreshTokenKey(token)); err != nil {
		return fmt.Errorf("drop refresh token: %w", err)
	}
	if err := s.store.Remove(ctx, refreshByAddrKey(address)); err != nil {
		return fmt.Errorf("drop refresh index: %w", err)
	}

	return nil
}

// Revoke invalidates the refresh token and its per-address index entry.
// Unknown or already-revoked tokens fail with ErrRefreshTokenInvalid;
// the deletions themselves are idempotent, so revoking then retrying the
// same token reports invalid rather than silently succeeding.
func (s *SessionTokenService) Revoke(ctx context.Context, token string) error {
	address, err := s.Resolve(ctx, token)
	if err != nil {
		return err
	}

	if err := s.store.Remove(ctx, refreshTokenKey(token)); err != nil {
		return fmt.Errorf("drop refresh token: %w", err)
	}
	if err := s.store.Remove(ctx, refreshByAddrKey(address)); err != nil {
		return fmt.Errorf("drop refresh index: %w", err)
	}

	return nil
}
