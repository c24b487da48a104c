package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/arkadem/campus-platform-iam/internal/core/domain"
)

func TestGetByIDUsesCache(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	account := f.registerAccount(t, testAddress, testPassword)

	first, err := f.profile.GetByID(ctx, account.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if first.Email != testAddress {
		t.Fatalf("email %q, want %q", first.Email, testAddress)
	}

	// The first read warmed the cache; mutate the row behind its back and
	// confirm the stale copy is served until evicted.
	if err := f.accounts.UpdateStatus(ctx, account.ID, domain.AccountStatusBanned, f.clock.Now()); err != nil {
		t.Fatalf("update status: %v", err)
	}
	cached, err := f.profile.GetByID(ctx, account.ID)
	if err != nil {
		t.Fatalf("cached get: %v", err)
	}
	if cached.Status != domain.AccountStatusNormal {
		t.Fatalf("expected cached status normal, got %q", cached.Status)
	}

	if err := f.cache.Evict(ctx, account.ID); err != nil {
		t.Fatalf("evict: %v", err)
	}
	fresh, err := f.profile.GetByID(ctx, account.ID)
	if err != nil {
		t.Fatalf("fresh get: %v", err)
	}
	if fresh.Status != domain.AccountStatusBanned {
		t.Fatalf("expected fresh status banned, got %q", fresh.Status)
	}
}

func TestUpdateNickname(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	account := f.registerAccount(t, testAddress, testPassword)
	if _, err := f.profile.GetByID(ctx, account.ID); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	updated, err := f.profile.UpdateNickname(ctx, account.ID, "new name")
	if err != nil {
		t.Fatalf("update nickname: %v", err)
	}
	if updated.Nickname != "new name" {
		t.Fatalf("nickname %q, want %q", updated.Nickname, "new name")
	}
	if len(f.cache.evicted) == 0 {
		t.Fatal("nickname change must evict the cached profile")
	}

	if _, err := f.profile.UpdateNickname(ctx, account.ID, "   "); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for blank nickname, got %v", err)
	}
}

func TestUpdatePassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	account := f.registerAccount(t, testAddress, testPassword)
	login, err := f.auth.Login(ctx, testAddress, testPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := f.profile.UpdatePassword(ctx, account.ID, "wrong-0ld", "next-passw0rd"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := f.profile.UpdatePassword(ctx, account.ID, testPassword, testPassword); !errors.Is(err, ErrPasswordPolicyViolation) {
		t.Fatalf("expected ErrPasswordPolicyViolation for unchanged password, got %v", err)
	}

	if err := f.profile.UpdatePassword(ctx, account.ID, testPassword, "next-passw0rd"); err != nil {
		t.Fatalf("update password: %v", err)
	}

	// The change ends the live session and retires the old password.
	if _, err := f.auth.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrRefreshTokenInvalid) {
		t.Fatalf("expected session revoked, got %v", err)
	}
	if _, err := f.auth.Login(ctx, testAddress, testPassword); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password rejected, got %v", err)
	}
	if _, err := f.auth.Login(ctx, testAddress, "next-passw0rd"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if len(f.publisher.pwChanged) != 1 {
		t.Fatalf("expected 1 password changed event, got %d", len(f.publisher.pwChanged))
	}
}

func TestDeactivate(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	account := f.registerAccount(t, testAddress, testPassword)
	login, err := f.auth.Login(ctx, testAddress, testPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := f.profile.Deactivate(ctx, account.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if len(f.publisher.deactivated) != 1 {
		t.Fatalf("expected 1 deactivated event, got %d", len(f.publisher.deactivated))
	}

	if _, err := f.auth.Login(ctx, testAddress, testPassword); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus after deactivation, got %v", err)
	}
	if _, err := f.auth.Refresh(ctx, login.RefreshToken); err == nil {
		t.Fatal("expected refresh to fail after deactivation")
	}

	// Deactivating twice is refused; the account is no longer in normal standing.
	if err := f.profile.Deactivate(ctx, account.ID); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus on second deactivate, got %v", err)
	}
}
