package auth

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"inkwell/internal/middleware"
	"inkwell/internal/observability"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL is how long a session token stays valid.
const DefaultTokenTTL = 7 * 24 * time.Hour

const bearerPrefix = "Bearer "

// ErrMissingSecret is returned by Generate when no signing secret is configured.
var ErrMissingSecret = errors.New("token signing secret is not configured")

// TokenClaims is the identity bound into a session token.
type TokenClaims struct {
	UserID uint
	Email  string
}

// Claims is the JWT payload of a session token.
type Claims struct {
	UserID uint   `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Failure classifies why a token was rejected.
type Failure int

const (
	FailureNone Failure = iota
	FailureMalformed
	FailureSignature
	FailureExpired
	FailureClaims
	FailureNoSecret
)

func (f Failure) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureMalformed:
		return "malformed"
	case FailureSignature:
		return "signature"
	case FailureExpired:
		return "expired"
	case FailureClaims:
		return "claims"
	case FailureNoSecret:
		return "no_secret"
	default:
		return "unknown"
	}
}

// VerifyResult is either decoded claims or the reason verification failed.
type VerifyResult struct {
	Claims  *Claims
	Failure Failure
}

// OK reports whether the token verified.
func (r VerifyResult) OK() bool {
	return r.Failure == FailureNone && r.Claims != nil
}

// TokenConfig configures a TokenManager.
type TokenConfig struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
}

// TokenManager signs and verifies HS256 session tokens.
type TokenManager struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// NewTokenManager returns a TokenManager. A zero TTL means DefaultTokenTTL.
// An empty secret is accepted here; Generate reports it per call.
func NewTokenManager(cfg TokenConfig) *TokenManager {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenManager{
		secret:   []byte(strings.TrimSpace(cfg.Secret)),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Configured reports whether a signing secret is present.
func (m *TokenManager) Configured() bool {
	return len(m.secret) > 0
}

// TTL returns the validity period of issued tokens.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Generate signs a token for c that expires TTL from now.
func (m *TokenManager) Generate(c TokenClaims) (string, error) {
	if !m.Configured() {
		return "", ErrMissingSecret
	}

	now := m.now()
	claims := Claims{
		UserID: c.UserID,
		Email:  c.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(c.UserID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			ID:        uuid.NewString(),
		},
	}
	if m.issuer != "" {
		claims.Issuer = m.issuer
	}
	if m.audience != "" {
		claims.Audience = jwt.ClaimStrings{m.audience}
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Verify checks the signature, expiry, issuer and audience of token. It never
// returns an error: failures are logged and reported through the result.
func (m *TokenManager) Verify(ctx context.Context, token string) VerifyResult {
	if !m.Configured() {
		return m.fail(ctx, FailureNoSecret, ErrMissingSecret)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	if m.audience != "" {
		opts = append(opts, jwt.WithAudience(m.audience))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return m.fail(ctx, classify(err), err)
	}
	if !parsed.Valid || claims.UserID == 0 {
		return m.fail(ctx, FailureClaims, errors.New("token carries no user id"))
	}
	if claims.Subject != strconv.FormatUint(uint64(claims.UserID), 10) {
		return m.fail(ctx, FailureClaims, errors.New("token subject does not match user id"))
	}

	return VerifyResult{Claims: claims}
}

func (m *TokenManager) fail(ctx context.Context, f Failure, err error) VerifyResult {
	observability.TokenVerifyFailures.WithLabelValues(f.String()).Inc()
	middleware.Logger.WarnContext(ctx, "session token rejected",
		"reason", f.String(), "error", err)
	return VerifyResult{Failure: f}
}

func classify(err error) Failure {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
		return FailureExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return FailureSignature
	case errors.Is(err, jwt.ErrTokenMalformed):
		return FailureMalformed
	default:
		return FailureClaims
	}
}

// BearerToken extracts the token from an Authorization header of the form
// "Bearer <token>". Any other shape yields false.
func BearerToken(header string) (string, bool) {
	token, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}
