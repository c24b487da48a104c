package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"

	"github.com/arkadem/campus-platform-iam/internal/core/port"
)

var (
	// ErrTokenInvalid indicates the access token is malformed or its signature failed validation.
	ErrTokenInvalid = errors.New("jwt: invalid token")
	// ErrTokenExpired indicates the access token has expired.
	ErrTokenExpired = errors.New("jwt: token expired")
)

// AccessTokenClaims augments registered claims with the bound account address.
type AccessTokenClaims struct {
	Address string `json:"addr"`
	jwt.RegisteredClaims
}

// JWTSigner issues and verifies HS256 access tokens bound to an address.
type JWTSigner struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTSigner constructs a signer with the shared secret, issuer, and token lifetime.
func NewJWTSigner(secret, issuer string, ttl time.Duration) (*JWTSigner, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("jwt: secret is required")
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	return &JWTSigner{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// WithClock overrides the internal clock, used in tests.
func (s *JWTSigner) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Sign mints a short-lived access token for the supplied address.
func (s *JWTSigner) Sign(address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", fmt.Errorf("jwt: address is required")
	}

	now := s.now().UTC()
	claims := AccessTokenClaims{
		Address: address,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   address,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.issuer},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}

	return signed, nil
}

// Verify validates the token and returns the address it is bound to.
func (s *JWTSigner) Verify(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrTokenInvalid
	}

	claims := &AccessTokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithAudience(s.issuer), jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}

	if parsed == nil || !parsed.Valid {
		return "", ErrTokenInvalid
	}

	address := strings.TrimSpace(claims.Address)
	if address == "" {
		return "", ErrTokenInvalid
	}

	return address, nil
}

var _ port.TokenSigner = (*JWTSigner)(nil)
