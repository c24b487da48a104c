package port

// TokenSigner issues and verifies the short-lived stateless access credential
// bound to an account address.
type TokenSigner interface {
	Sign(address string) (string, error)
	// Verify returns the address embedded in the token, or
	// security.ErrTokenExpired / security.ErrTokenInvalid.
	Verify(token string) (string, error)
}
