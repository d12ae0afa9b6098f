package auth

import (
	"context"
	"time"

	"inkwell/internal/models"
)

// Session is the identity attached to an authenticated request.
type Session struct {
	UserID    uint
	Email     string
	ExpiresAt time.Time
}

// TokenVerifier checks a session token. *TokenManager implements it.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) VerifyResult
}

// Guard resolves Authorization headers to sessions and checks ownership.
//
// A protected request either ends in one of these failures, or proceeds:
//
//	no bearer token          -> AuthenticationRequired (401)
//	token fails to verify    -> InvalidOrExpiredToken (401)
//	no signing secret        -> configuration error (500)
//	resource does not exist  -> NotFound (404), from the caller's lookup
//	session is not the owner -> Forbidden (403)
type Guard struct {
	tokens TokenVerifier
}

// NewGuard returns a Guard that verifies tokens with tokens.
func NewGuard(tokens TokenVerifier) *Guard {
	return &Guard{tokens: tokens}
}

// Authenticate turns an Authorization header value into a Session.
func (g *Guard) Authenticate(ctx context.Context, authorization string) (*Session, error) {
	token, ok := BearerToken(authorization)
	if !ok {
		return nil, models.NewAuthenticationRequiredError()
	}

	res := g.tokens.Verify(ctx, token)
	if res.Failure == FailureNoSecret {
		return nil, models.NewConfigurationError(ErrMissingSecret)
	}
	if !res.OK() {
		return nil, models.NewInvalidTokenError()
	}

	s := &Session{
		UserID: res.Claims.UserID,
		Email:  res.Claims.Email,
	}
	if res.Claims.ExpiresAt != nil {
		s.ExpiresAt = res.Claims.ExpiresAt.Time
	}
	return s, nil
}

// Authorize allows the mutation only when s belongs to ownerID. denied is the
// message of the Forbidden error returned otherwise.
func (g *Guard) Authorize(s *Session, ownerID uint, denied string) error {
	if s == nil {
		return models.NewAuthenticationRequiredError()
	}
	if s.UserID != ownerID {
		return models.NewForbiddenError(denied)
	}
	return nil
}

type sessionKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the session stored by WithSession, if any.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok && s != nil
}
