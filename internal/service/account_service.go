// Package service holds the business logic behind the HTTP handlers.
package service

import (
	"context"
	"errors"
	"strings"

	"inkwell/internal/auth"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/validation"
)

// AccountService registers users and turns credentials into session tokens.
type AccountService struct {
	users  repository.UserRepository
	hasher *auth.PasswordHasher
	tokens *auth.TokenManager
}

// RegisterInput is the body of a registration request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// LoginInput is the body of a password login request.
type LoginInput struct {
	Email    string
	Password string
}

// AuthResult is a signed-in user and the session token issued for them.
type AuthResult struct {
	User  *models.User
	Token string
}

func NewAccountService(users repository.UserRepository, hasher *auth.PasswordHasher, tokens *auth.TokenManager) *AccountService {
	return &AccountService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
	}
}

// Register creates a password account and signs it in. The insert and the
// token issuance share a transaction, so a failed issuance leaves no row.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	ctx, span := observability.StartServiceSpan(ctx, "AccountService", "Register")
	res, err := s.register(ctx, in)
	observability.EndSpan(span, err)
	recordAttempt("register", err)
	return res, err
}

func (s *AccountService) register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if err := validation.ValidateName(in.Name); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	name := validation.SanitizeInput(in.Name)
	email := normalizeEmail(in.Email)
	// Stripping a script block can leave too little behind.
	if err := validation.ValidateName(name); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	if err := s.requireSigningSecret(ctx); err != nil {
		return nil, err
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("User with this email already exists")
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		if auth.IsPasswordTooLong(err) {
			return nil, models.NewValidationError("Password must not exceed 72 bytes")
		}
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}
	return s.createAndSignIn(ctx, user)
}

// Login signs in with an email and password.
func (s *AccountService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	return s.Authenticate(ctx, auth.PasswordCredential(in))
}

// Authenticate resolves any credential kind to a stored user and issues a
// session token for it.
func (s *AccountService) Authenticate(ctx context.Context, cred auth.Credential) (*AuthResult, error) {
	ctx, span := observability.StartServiceSpan(ctx, "AccountService", "Authenticate")

	var (
		res *AuthResult
		err error
	)
	switch c := cred.(type) {
	case auth.PasswordCredential:
		res, err = s.loginWithPassword(ctx, c)
	case auth.ExternalCredential:
		res, err = s.signInExternal(ctx, c)
	default:
		err = models.NewValidationError("Unsupported credential")
	}

	observability.EndSpan(span, err)
	method := "unknown"
	if cred != nil {
		method = cred.Method()
	}
	recordAttempt(method, err)
	return res, err
}

func (s *AccountService) loginWithPassword(ctx context.Context, c auth.PasswordCredential) (*AuthResult, error) {
	if err := validation.ValidateEmail(c.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if c.Password == "" {
		return nil, models.NewValidationError("Password is required")
	}
	if err := s.requireSigningSecret(ctx); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, normalizeEmail(c.Email))
	if err != nil {
		return nil, err
	}
	// Unknown emails and accounts without a password cost the same bcrypt
	// work as a wrong password and fail with the same error.
	if user == nil || !user.HasPassword() {
		s.hasher.CompareDecoy(ctx, c.Password)
		return nil, models.NewInvalidCredentialsError()
	}
	if !s.hasher.Verify(ctx, c.Password, user.PasswordHash) {
		return nil, models.NewInvalidCredentialsError()
	}

	return s.signIn(ctx, user)
}

func (s *AccountService) signInExternal(ctx context.Context, c auth.ExternalCredential) (*AuthResult, error) {
	if !c.EmailVerified {
		return nil, models.NewExternalAuthError("Email address is not verified")
	}
	email := normalizeEmail(c.Email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewExternalAuthError("Provider did not return a usable email address")
	}
	if strings.TrimSpace(c.Subject) == "" {
		return nil, models.NewExternalAuthError("Provider did not return an account id")
	}
	if err := s.requireSigningSecret(ctx); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return s.signIn(ctx, user)
	}

	subject := c.Subject
	user = &models.User{
		Name:     externalDisplayName(c.Name, email),
		Email:    email,
		GoogleID: &subject,
	}
	res, err := s.createAndSignIn(ctx, user)
	if models.HasCode(err, models.CodeConflict) {
		// A concurrent first sign-in created the row; use it.
		existing, getErr := s.users.GetByEmail(ctx, email)
		if getErr != nil {
			return nil, getErr
		}
		if existing != nil {
			return s.signIn(ctx, existing)
		}
		// No row holds the email, so the provider subject is the taken key.
		middleware.Logger.WarnContext(ctx, "external account already linked to another user",
			"provider", c.Provider)
		return nil, models.NewExternalAuthError("This account is already linked to a different user")
	}
	return res, err
}

// Session re-reads the user behind an authenticated session and issues a
// fresh token for them.
func (s *AccountService) Session(ctx context.Context, session *auth.Session) (*AuthResult, error) {
	if session == nil {
		return nil, models.NewAuthenticationRequiredError()
	}
	if err := s.requireSigningSecret(ctx); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return nil, models.NewInvalidTokenError()
		}
		return nil, err
	}
	return s.signIn(ctx, user)
}

func (s *AccountService) createAndSignIn(ctx context.Context, user *models.User) (*AuthResult, error) {
	var token string
	err := s.users.CreateWithin(ctx, user, func(u *models.User) error {
		var genErr error
		token, genErr = s.issueToken(ctx, u)
		return genErr
	})
	if err != nil {
		return nil, err
	}

	middleware.Logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	return &AuthResult{User: user, Token: token}, nil
}

func (s *AccountService) signIn(ctx context.Context, user *models.User) (*AuthResult, error) {
	token, err := s.issueToken(ctx, user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token}, nil
}

func (s *AccountService) issueToken(ctx context.Context, user *models.User) (string, error) {
	token, err := s.tokens.Generate(auth.TokenClaims{UserID: user.ID, Email: user.Email})
	if err != nil {
		if errors.Is(err, auth.ErrMissingSecret) {
			middleware.Logger.ErrorContext(ctx, "cannot issue session token", "error", err)
			return "", models.NewConfigurationError(err)
		}
		middleware.Logger.ErrorContext(ctx, "token signing failed", "error", err)
		return "", models.NewInternalError(err)
	}
	return token, nil
}

func (s *AccountService) requireSigningSecret(ctx context.Context) error {
	if s.tokens.Configured() {
		return nil
	}
	middleware.Logger.ErrorContext(ctx, "JWT_SECRET is not set; refusing to sign in users")
	return models.NewConfigurationError(auth.ErrMissingSecret)
}

func normalizeEmail(email string) string {
	return strings.ToLower(validation.SanitizeInput(email))
}

// externalDisplayName sanitizes a provider-supplied name, falling back to the
// local part of email when too little of it is left.
func externalDisplayName(name, email string) string {
	name = validation.SanitizeInput(name)
	if validation.ValidateName(name) == nil {
		return name
	}
	local, _, _ := strings.Cut(email, "@")
	if validation.ValidateName(local) == nil {
		return local
	}
	return email
}

func recordAttempt(method string, err error) {
	outcome := "success"
	var appErr *models.AppError
	switch {
	case err == nil:
	case errors.As(err, &appErr):
		outcome = strings.ToLower(appErr.Code)
	default:
		outcome = "error"
	}
	observability.AuthAttempts.WithLabelValues(method, outcome).Inc()
}
