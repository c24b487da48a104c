package usecase

import "errors"

var (
	// ErrInvalidArgument indicates a request that fails validation before any
	// state is touched. Wrapped variants carry the specific field complaint.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrRateLimited indicates a verification code was requested again before
	// the per-address send window elapsed.
	ErrRateLimited = errors.New("code requested too frequently")
	// ErrCodeExpired indicates no code is currently stored for the address.
	ErrCodeExpired = errors.New("verification code expired")
	// ErrCodeInvalid indicates a stored code exists but does not match.
	ErrCodeInvalid = errors.New("verification code invalid")
	// ErrAccountNotFound indicates no account exists for the address.
	ErrAccountNotFound = errors.New("account not found")
	// ErrDuplicateAccount indicates the address is already registered.
	ErrDuplicateAccount = errors.New("account already exists")
	// ErrInvalidStatus indicates the account lifecycle state forbids the
	// requested operation.
	ErrInvalidStatus = errors.New("account status does not permit this operation")
	// ErrAccountLocked indicates the address is under a brute-force lockout.
	ErrAccountLocked = errors.New("account temporarily locked")
	// ErrInvalidCredentials indicates the password did not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRefreshTokenInvalid indicates the refresh token is unknown, expired,
	// or already rotated away.
	ErrRefreshTokenInvalid = errors.New("refresh token invalid")
	// ErrDeliveryFailed indicates the mail relay refused the code mail. The
	// code remains stored; a later validation attempt may still succeed.
	ErrDeliveryFailed = errors.New("code delivery failed")
	// ErrPasswordPolicyViolation indicates the password does not satisfy
	// complexity requirements.
	ErrPasswordPolicyViolation = errors.New("password does not meet complexity requirements")
)
