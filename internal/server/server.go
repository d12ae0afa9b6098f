// Package server contains the HTTP handlers and route table for the Inkwell API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	_ "inkwell/docs" // swagger docs
	"inkwell/internal/auth"
	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/oauth"
	"inkwell/internal/repository"
	"inkwell/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	rateLimiter    *middleware.RateLimiter
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	userRepo       repository.UserRepository
	postRepo       repository.PostRepository
	tokens         *auth.TokenManager
	guard          *auth.Guard
	accountService *service.AccountService
	postService    *service.PostService
	// oauthProvider is nil when Google sign-in is not configured.
	oauthProvider oauth.Provider
}

// NewServer connects to the database and Redis and builds a Server on them.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	redisClient := cache.Connect(context.Background(), cfg.RedisURL)

	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; rate limits then fail open.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("server requires a config and a database")
	}

	tokens := auth.NewTokenManager(auth.TokenConfig{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.TokenTTL(),
	})
	guard := auth.NewGuard(tokens)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		rateLimiter:    middleware.NewRateLimiter(redisClient, cfg.RateLimitsEnabled()),
		promMiddleware: middleware.InitMetrics("inkwell-api"),
		userRepo:       repository.NewUserRepository(db),
		postRepo:       repository.NewPostRepository(db),
		tokens:         tokens,
		guard:          guard,
	}
	s.accountService = service.NewAccountService(s.userRepo, auth.NewPasswordHasher(cfg.BcryptCost), tokens)
	s.postService = service.NewPostService(s.postRepo, guard)

	if cfg.GoogleEnabled() {
		s.oauthProvider = oauth.NewGoogleProvider(oauth.GoogleConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
		})
	}

	return s, nil
}

// WithOAuthProvider replaces the external sign-in provider.
func (s *Server) WithOAuthProvider(p oauth.Provider) *Server {
	s.oauthProvider = p
	return s
}

// App builds the Fiber application on first use.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}

	app := fiber.New(fiber.Config{
		AppName:      "Inkwell API",
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// errorHandler renders errors that escape handlers in the standard envelope.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := models.CodeInternal
		switch fe.Code {
		case fiber.StatusNotFound:
			code = models.CodeNotFound
		case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge, fiber.StatusUnprocessableEntity:
			code = models.CodeValidation
		case fiber.StatusMethodNotAllowed:
			code = "METHOD_NOT_ALLOWED"
		}
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message, Code: code})
	}

	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error",
		"path", c.Path(), "error", err)
	return models.RespondWithError(c, err)
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())

	app.Use(requestid.New())

	// Tracing sets the trace ID local that ContextMiddleware copies into the context.
	app.Use(middleware.TracingMiddleware())

	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000,http://127.0.0.1:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
				Code:  "RATE_LIMITED",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application. The API is served
// both at the root and under /api.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Inkwell API Metrics Dashboard",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	s.registerAPI(app)
	s.registerAPI(api)
}

func (s *Server) registerAPI(r fiber.Router) {
	authGroup := r.Group("/auth")
	authGroup.Post("/register", s.rateLimiter.Limit(5, 10*time.Minute, "register"), s.Register)
	authGroup.Post("/login", s.rateLimiter.Limit(10, 5*time.Minute, "login"), s.Login)
	authGroup.Get("/session", s.AuthRequired(), s.GetSession)
	if s.oauthProvider != nil {
		authGroup.Get("/google", s.GoogleRedirect)
		authGroup.Get("/google/callback", s.rateLimiter.Limit(10, 5*time.Minute, "oauth_callback"), s.GoogleCallback)
	}

	posts := r.Group("/posts")
	posts.Get("/", s.GetPosts)
	posts.Get("/:id", s.GetPost)
	posts.Post("/", s.AuthRequired(), s.CreatePost)
	posts.Put("/:id", s.AuthRequired(), s.UpdatePost)
	posts.Delete("/:id", s.AuthRequired(), s.DeletePost)
}

// AuthRequired resolves the bearer token to a session and attaches it to the
// request context. Only the Authorization header is consulted.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := s.guard.Authenticate(c.UserContext(), c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return models.RespondWithError(c, err)
		}

		ctx := auth.WithSession(c.UserContext(), session)
		ctx = middleware.WithUserID(ctx, session.UserID)
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// ShutdownTimeout bounds the graceful shutdown Run performs.
const ShutdownTimeout = 10 * time.Second

// Run serves on the configured port until ctx is done, then shuts the server
// down and calls onStop (may be nil) with the same deadline. It returns only
// after the listener, database, Redis and onStop are all finished.
func (s *Server) Run(ctx context.Context, onStop func(context.Context) error) error {
	ln, err := net.Listen("tcp", ":"+s.config.Port)
	if err != nil {
		return fmt.Errorf("listen on port %s: %w", s.config.Port, err)
	}
	app := s.App()
	middleware.Logger.Info("Server starting", "addr", ln.Addr().String())

	served := make(chan error, 1)
	go func() { served <- app.Listener(ln) }()

	var errs []error
	stopped := false
	select {
	case err := <-served:
		stopped = true
		if err != nil {
			errs = append(errs, fmt.Errorf("serve: %w", err))
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	errs = append(errs, s.Shutdown(shutdownCtx))
	if !stopped {
		// Unblocks Serve if shutdown ran before it started accepting.
		if cerr := ln.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			errs = append(errs, cerr)
		}
		if serr := <-served; serr != nil && !errors.Is(serr, net.ErrClosed) {
			errs = append(errs, fmt.Errorf("serve: %w", serr))
		}
	}
	if onStop != nil {
		errs = append(errs, onStop(shutdownCtx))
	}
	return errors.Join(errs...)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			errs = append(errs, fmt.Errorf("close database: %w", cerr))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", rerr))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return errors.Join(errs...)
}
