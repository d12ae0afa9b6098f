package auth

import (
	"context"
	"testing"
	"time"

	"inkwell/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct {
	res      VerifyResult
	gotToken string
}

func (s *stubVerifier) Verify(_ context.Context, token string) VerifyResult {
	s.gotToken = token
	return s.res
}

func TestGuard_Authenticate(t *testing.T) {
	t.Parallel()
	exp := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	valid := VerifyResult{Claims: &Claims{
		UserID:           5,
		Email:            "owner@example.com",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)},
	}}

	tests := []struct {
		name     string
		header   string
		res      VerifyResult
		wantCode string
	}{
		{"No Header", "", valid, models.CodeAuthenticationRequired},
		{"Wrong Scheme", "Token abc", valid, models.CodeAuthenticationRequired},
		{"Bad Token", "Bearer abc", VerifyResult{Failure: FailureSignature}, models.CodeInvalidToken},
		{"Expired Token", "Bearer abc", VerifyResult{Failure: FailureExpired}, models.CodeInvalidToken},
		{"No Signing Secret", "Bearer abc", VerifyResult{Failure: FailureNoSecret}, models.CodeConfiguration},
		{"Valid", "Bearer abc", valid, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &stubVerifier{res: tt.res}
			s, err := NewGuard(v).Authenticate(context.Background(), tt.header)
			if tt.wantCode != "" {
				assert.Nil(t, s)
				assert.True(t, models.HasCode(err, tt.wantCode), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "abc", v.gotToken)
			assert.Equal(t, uint(5), s.UserID)
			assert.Equal(t, "owner@example.com", s.Email)
			assert.True(t, exp.Equal(s.ExpiresAt))
		})
	}
}

func TestGuard_AuthenticateWithRealTokens(t *testing.T) {
	t.Parallel()
	m := newTestTokenManager()
	g := NewGuard(m)

	token, err := m.Generate(TokenClaims{UserID: 3, Email: "jane@example.com"})
	require.NoError(t, err)

	s, err := g.Authenticate(context.Background(), "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, uint(3), s.UserID)

	_, err = g.Authenticate(context.Background(), "Bearer "+token+"x")
	assert.True(t, models.HasCode(err, models.CodeInvalidToken))
}

func TestGuard_Authorize(t *testing.T) {
	t.Parallel()
	g := NewGuard(&stubVerifier{})
	s := &Session{UserID: 1}

	assert.NoError(t, g.Authorize(s, 1, "Unauthorized to update this post"))

	err := g.Authorize(s, 2, "Unauthorized to update this post")
	assert.True(t, models.HasCode(err, models.CodeForbidden))
	assert.Equal(t, "Unauthorized to update this post", err.Error())

	err = g.Authorize(nil, 1, "Unauthorized to update this post")
	assert.True(t, models.HasCode(err, models.CodeAuthenticationRequired))
}

func TestSessionContext(t *testing.T) {
	t.Parallel()
	_, ok := SessionFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithSession(context.Background(), &Session{UserID: 8})
	s, ok := SessionFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, uint(8), s.UserID)
}

func TestCredentialMethods(t *testing.T) {
	t.Parallel()
	creds := []Credential{
		PasswordCredential{Email: "a@example.com", Password: "password123"},
		ExternalCredential{Provider: "google", Subject: "123", Email: "a@example.com"},
	}
	assert.Equal(t, "password", creds[0].Method())
	assert.Equal(t, "google", creds[1].Method())
}
