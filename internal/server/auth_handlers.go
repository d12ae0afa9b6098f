package server

import (
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/oauth"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

const oauthStateCookie = "inkwell_oauth_state"

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by every endpoint that signs a user in.
type AuthResponse struct {
	Message string       `json:"message,omitempty"`
	User    *models.User `json:"user"`
	Token   string       `json:"token"`
}

// Register handles POST /auth/register
// @Summary Register
// @Description Create a password account and sign it in
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration request"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /auth/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	res, err := s.accountService.Register(c.UserContext(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.JSON(AuthResponse{
		Message: "User registered successfully",
		User:    res.User,
		Token:   res.Token,
	})
}

// Login handles POST /auth/login
// @Summary Login
// @Description Authenticate with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	res, err := s.accountService.Login(c.UserContext(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.JSON(AuthResponse{
		Message: "Login successful",
		User:    res.User,
		Token:   res.Token,
	})
}

// GetSession handles GET /auth/session
// @Summary Current session
// @Description Return the signed-in user with a freshly issued token
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} AuthResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/session [get]
func (s *Server) GetSession(c *fiber.Ctx) error {
	res, err := s.accountService.Session(c.UserContext(), sessionFrom(c))
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(AuthResponse{User: res.User, Token: res.Token})
}

// GoogleRedirect handles GET /auth/google
// @Summary Start Google sign-in
// @Tags auth
// @Success 302
// @Router /auth/google [get]
func (s *Server) GoogleRedirect(c *fiber.Ctx) error {
	state := oauth.NewState()
	c.Cookie(&fiber.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.Redirect(s.oauthProvider.AuthCodeURL(state), fiber.StatusFound)
}

// GoogleCallback handles GET /auth/google/callback
// @Summary Finish Google sign-in
// @Tags auth
// @Produce json
// @Param code query string true "Authorization code"
// @Param state query string true "State issued by /auth/google"
// @Success 200 {object} AuthResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/google/callback [get]
func (s *Server) GoogleCallback(c *fiber.Ctx) error {
	ctx := c.UserContext()

	expected := c.Cookies(oauthStateCookie)
	c.ClearCookie(oauthStateCookie)

	if c.Query("error") != "" {
		return models.RespondWithError(c, models.NewExternalAuthError("Google sign-in was cancelled"))
	}
	if expected == "" || c.Query("state") != expected {
		return models.RespondWithError(c, models.NewExternalAuthError("Invalid OAuth state"))
	}
	code := c.Query("code")
	if code == "" {
		return models.RespondWithError(c, models.NewValidationError("Missing authorization code"))
	}

	cred, err := s.oauthProvider.Exchange(ctx, code)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "oauth exchange failed",
			"provider", s.oauthProvider.Name(), "error", err)
		return models.RespondWithError(c, models.NewExternalAuthError("Google sign-in failed"))
	}

	res, err := s.accountService.Authenticate(ctx, cred)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.JSON(AuthResponse{
		Message: "Login successful",
		User:    res.User,
		Token:   res.Token,
	})
}
