package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arkadem/campus-platform-iam/internal/core/domain"
)

const testPassword = "c0rrect-horse-battery9"

func TestRegisterCreatesAccount(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	account := f.registerAccount(t, testAddress, testPassword)
	if account.Status != domain.AccountStatusNormal {
		t.Fatalf("status %q, want normal", account.Status)
	}
	if account.Email != testAddress {
		t.Fatalf("email %q, want %q", account.Email, testAddress)
	}
	if len(f.publisher.registered) != 1 {
		t.Fatalf("expected 1 registered event, got %d", len(f.publisher.registered))
	}
	if f.publisher.registered[0].Reactivated {
		t.Fatal("fresh registration flagged as reactivation")
	}

	if _, err := f.auth.Login(ctx, testAddress, testPassword); err != nil {
		t.Fatalf("login after register: %v", err)
	}
}

func TestRegisterRejectsForeignAddress(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	err := f.auth.SendRegistrationCode(ctx, "someone@gmail.com")
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestRegisterRejectsPasswordMismatch(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	if err := f.auth.SendRegistrationCode(ctx, testAddress); err != nil {
		t.Fatalf("send code: %v", err)
	}
	_, err := f.auth.Register(ctx, RegisterInput{
		Email:           testAddress,
		Password:        testPassword,
		ConfirmPassword: "different-9password",
		Code:            f.issuedCode(t),
	})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestSendRegistrationCodeDuplicateBeatsRateLimit(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.registerAccount(t, testAddress, testPassword)

	// Even if a rate marker were armed, the duplicate check runs first.
	if err := f.auth.SendRegistrationCode(ctx, testAddress); !errors.Is(err, ErrDuplicateAccount) {
		t.Fatalf("expected ErrDuplicateAccount, got %v", err)
	}
}

func TestRegisterCodeIsSingleUse(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.registerAccount(t, testAddress, testPassword)

	other := "another@whut.edu.cn"
	if err := f.auth.SendRegistrationCode(ctx, other); err != nil {
		t.Fatalf("send code: %v", err)
	}
	code := f.issuedCode(t)
	if _, err := f.auth.Register(ctx, RegisterInput{Email: other, Password: testPassword, ConfirmPassword: testPassword, Code: code}); err != nil {
		t.Fatalf("register: %v", err)
	}

	// Consuming the code a second time must read as expired, regardless of
	// the account state checks tripping first for this address.
	if err := f.verification.Validate(ctx, PurposeRegister, other, code); !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("expected ErrCodeExpired, got %v", err)
	}
}

func TestLoginUnknownAddressCountsFailure(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := f.auth.Login(ctx, testAddress, "wrong-9password"); !errors.Is(err, ErrAccountNotFound) {
			t.Fatalf("attempt %d: expected ErrAccountNotFound, got %v", i+1, err)
		}
	}
	if _, err := f.auth.Login(ctx, testAddress, "wrong-9password"); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}
}

func TestLoginLockRejectsCorrectPassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.registerAccount(t, testAddress, testPassword)

	for i := 0; i < 5; i++ {
		if _, err := f.auth.Login(ctx, testAddress, "wrong-9password"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}

	// The sixth attempt is refused before the password is even checked.
	if _, err := f.auth.Login(ctx, testAddress, testPassword); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked with correct password, got %v", err)
	}

	f.clock.Advance(5*time.Minute + time.Second)
	if _, err := f.auth.Login(ctx, testAddress, testPassword); err != nil {
		t.Fatalf("login after lock expiry: %v", err)
	}
}

func TestLoginSuccessClearsFailureStreak(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.registerAccount(t, testAddress, testPassword)

	for i := 0; i < 4; i++ {
		if _, err := f.auth.Login(ctx, testAddress, "wrong-9password"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	}
	if _, err := f.auth.Login(ctx, testAddress, testPassword); err != nil {
		t.Fatalf("login: %v", err)
	}

	// The streak restarted; four more wrong attempts must not lock.
	for i := 0; i < 4; i++ {
		if _, err := f.auth.Login(ctx, testAddress, "wrong-9password"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	}
	if _, err := f.auth.Login(ctx, testAddress, testPassword); err != nil {
		t.Fatalf("login after restarted streak: %v", err)
	}
}

func TestLoginWrongStatusDoesNotCountFailure(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	account := f.registerAccount(t, testAddress, testPassword)
	if err := f.accounts.UpdateStatus(ctx, account.ID, domain.AccountStatusBanned, f.clock.Now()); err != nil {
		t.Fatalf("ban account: %v", err)
	}

	for i := 0; i < 10; i++ {
		if _, err := f.auth.Login(ctx, testAddress, testPassword); !errors.Is(err, ErrInvalidStatus) {
			t.Fatalf("expected ErrInvalidStatus, got %v", err)
		}
	}
	locked, err := f.guard.IsLocked(ctx, testAddress)
	if err != nil {
		t.Fatalf("is locked: %v", err)
	}
	if locked {
		t.Fatal("status refusals must not feed the lockout counter")
	}
}

func TestReactivationCooldown(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	account := f.registerAccount(t, testAddress, testPassword)
	if err := f.profile.Deactivate(ctx, account.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	createsBefore := f.accounts.creates

	// Five days in: still inside the ten-day cooldown.
	f.clock.Advance(5 * 24 * time.Hour)
	if err := f.auth.SendRegistrationCode(ctx, testAddress); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus inside cooldown, got %v", err)
	}

	// Eleven days total: allowed, and the flow reactivates in place.
	f.clock.Advance(6 * 24 * time.Hour)
	if err := f.auth.SendRegistrationCode(ctx, testAddress); err != nil {
		t.Fatalf("send code after cooldown: %v", err)
	}
	restored, err := f.auth.Register(ctx, RegisterInput{
		Email:           testAddress,
		Nickname:        "returning",
		Password:        testPassword,
		ConfirmPassword: testPassword,
		Code:            f.issuedCode(t),
	})
	if err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	if restored.ID != account.ID {
		t.Fatalf("reactivation created a new account: %s != %s", restored.ID, account.ID)
	}
	if restored.Status != domain.AccountStatusNormal {
		t.Fatalf("status %q, want normal", restored.Status)
	}
	if f.accounts.creates != createsBefore {
		t.Fatal("reactivation must not insert a new row")
	}

	last := f.publisher.registered[len(f.publisher.registered)-1]
	if !last.Reactivated {
		t.Fatal("reactivation event not flagged")
	}
}

func TestReactivationFailClosedWithoutTimestamp(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	account := f.registerAccount(t, testAddress, testPassword)
	stored, err := f.accounts.GetByID(ctx, account.ID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	stored.Status = domain.AccountStatusDeactivated
	stored.UpdatedAt = time.Time{}
	if err := f.accounts.Update(ctx, *stored); err != nil {
		t.Fatalf("update: %v", err)
	}

	f.clock.Advance(365 * 24 * time.Hour)
	if err := f.auth.SendRegistrationCode(ctx, testAddress); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus without status timestamp, got %v", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.registerAccount(t, testAddress, testPassword)
	login, err := f.auth.Login(ctx, testAddress, testPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	refreshed, err := f.auth.Refresh(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Fatal("refresh returned the same token")
	}

	// The consumed token is gone; replay fails.
	if _, err := f.auth.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrRefreshTokenInvalid) {
		t.Fatalf("expected ErrRefreshTokenInvalid on replay, got %v", err)
	}
	if _, err := f.auth.Refresh(ctx, refreshed.RefreshToken); err != nil {
		t.Fatalf("refresh with current token: %v", err)
	}
}

func TestLogoutInvalidatesRefreshToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.registerAccount(t, testAddress, testPassword)
	login, err := f.auth.Login(ctx, testAddress, testPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := f.auth.Logout(ctx, login.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := f.auth.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrRefreshTokenInvalid) {
		t.Fatalf("expected ErrRefreshTokenInvalid after logout, got %v", err)
	}
	if err := f.auth.Logout(ctx, login.RefreshToken); !errors.Is(err, ErrRefreshTokenInvalid) {
		t.Fatalf("expected ErrRefreshTokenInvalid on second logout, got %v", err)
	}
}

func TestSecondLoginInvalidatesFirstSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.registerAccount(t, testAddress, testPassword)
	first, err := f.auth.Login(ctx, testAddress, testPassword)
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	second, err := f.auth.Login(ctx, testAddress, testPassword)
	if err != nil {
		t.Fatalf("second login: %v", err)
	}

	if _, err := f.auth.Refresh(ctx, first.RefreshToken); !errors.Is(err, ErrRefreshTokenInvalid) {
		t.Fatalf("expected first session to be invalidated, got %v", err)
	}
	if _, err := f.auth.Refresh(ctx, second.RefreshToken); err != nil {
		t.Fatalf("refresh second session: %v", err)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.registerAccount(t, testAddress, testPassword)
	login, err := f.auth.Login(ctx, testAddress, testPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := f.auth.SendPasswordResetCode(ctx, testAddress); err != nil {
		t.Fatalf("send reset code: %v", err)
	}
	newPassword := "brand-new-passw0rd"
	if err := f.auth.ResetPasswordByCode(ctx, testAddress, f.issuedCode(t), newPassword, newPassword); err != nil {
		t.Fatalf("reset password: %v", err)
	}

	// The old session died with the old password.
	if _, err := f.auth.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrRefreshTokenInvalid) {
		t.Fatalf("expected session revoked after reset, got %v", err)
	}
	if _, err := f.auth.Login(ctx, testAddress, testPassword); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password rejected, got %v", err)
	}
	if _, err := f.auth.Login(ctx, testAddress, newPassword); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if len(f.publisher.pwChanged) != 1 {
		t.Fatalf("expected 1 password changed event, got %d", len(f.publisher.pwChanged))
	}
}

func TestPasswordResetRequiresAccount(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	if err := f.auth.SendPasswordResetCode(ctx, testAddress); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}
