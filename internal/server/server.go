// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"amber/internal/auth"
	"amber/internal/cache"
	"amber/internal/config"
	"amber/internal/featureflags"
	"amber/internal/mailer"
	"amber/internal/middleware"
	"amber/internal/models"
	"amber/internal/notifications"
	"amber/internal/repository"
	"amber/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Locals keys set by the auth middleware.
const (
	localUserID   = "userID"
	localClaims   = "claims"
	localPostKind = "postKind"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	userRepo repository.UserRepository

	notifier     *notifications.Notifier
	hub          *notifications.Hub
	featureFlags *featureflags.Manager

	userService    *service.UserService
	postService    *service.PostService
	commentService *service.CommentService
	reviewService  *service.ReviewService
	adminService   *service.AdminService
	imageService   *service.ImageService
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; caching, rate limits, revocation and cross-instance events are
// then disabled.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	m, err := mailer.New(cfg)
	if err != nil {
		return nil, err
	}
	return newServer(cfg, db, redisClient, m, bcrypt.DefaultCost)
}

func newServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, m mailer.Mailer, hashCost int) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("server requires config and database")
	}

	store := cache.NewStore(redisClient)
	tokens := auth.NewTokenServiceFromConfig(cfg)

	userRepo := repository.NewUserRepository(db, store)
	postRepo := repository.NewPostRepository(db, store)
	commentRepo := repository.NewCommentRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("amber-api"),
		userRepo:       userRepo,
		notifier:       notifications.NewNotifier(redisClient),
		hub:            notifications.NewHub(),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		imageService:   service.NewImageService(cfg),
	}
	events := notifications.NewPublisher(server.hub, server.notifier)

	server.userService = service.NewUserService(userRepo, service.UserServiceOptions{
		Tokens:       tokens,
		Store:        store,
		Mailer:       m,
		ResetBaseURL: cfg.PublicBaseURL,
		HashCost:     hashCost,
	})
	server.postService = service.NewPostService(postRepo, userRepo, server.imageService, events)
	server.commentService = service.NewCommentService(commentRepo, postRepo, userRepo, events)
	server.reviewService = service.NewReviewService(reviewRepo, userRepo)
	server.adminService = service.NewAdminService(userRepo, postRepo, commentRepo, analyticsRepo, server.imageService, hashCost)

	return server, nil
}

// App builds the Fiber application with middleware and routes installed.
func (s *Server) App() *fiber.App {
	bodyLimit := 4 * 1024 * 1024
	if limit := int(s.imageService.MaxBytes()) + 1024*1024; limit > bodyLimit {
		bodyLimit = limit
	}

	app := fiber.New(fiber.Config{
		AppName:      "Amber API",
		BodyLimit:    bodyLimit,
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// errorHandler catches anything a handler returned instead of writing.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := models.CodeInternal
		switch fe.Code {
		case fiber.StatusNotFound:
			code = models.CodeNotFound
		case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge:
			code = models.CodeValidation
		}
		return c.Status(fe.Code).JSON(models.ErrorResponse{Message: fe.Message, Code: code})
	}
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
	return models.RespondWithAppError(c, err)
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || middleware.RateLimitBypassed()
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"message": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/uploads/:filename", s.ServeUpload)

	api := app.Group("/api")
	authed := s.AuthRequired()

	users := api.Group("/users")
	users.Post("/register", middleware.RateLimit(
		s.redis, middleware.RegisterLimit, middleware.RegisterWindow, "register"), s.Register)
	users.Post("/login", middleware.RateLimit(
		s.redis, middleware.LoginLimit, middleware.LoginWindow, "login"), s.Login)
	users.Post("/refresh", s.Refresh)
	users.Post("/logout", authed, s.Logout)
	users.Post("/reset_password", middleware.RateLimit(
		s.redis, middleware.ResetRequestLimit, middleware.ResetRequestWindow, "reset_password"), s.RequestPasswordReset)
	users.Post("/reset_password/:token", s.ResetPassword)
	users.Get("/me", authed, s.GetMyProfile)
	users.Put("/me", authed, s.UpdateMyProfile)
	// Legacy aliases of the admin user routes.
	users.Get("/users", s.AdminRequired(), s.AdminListUsers)
	users.Delete("/users/:id", s.AdminRequired(), s.AdminDeleteUser)
	users.Get("/:id/reviews", s.GetUserReviews)
	users.Post("/:id/reviews", authed, s.CreateReview)

	for _, kind := range models.PostKinds {
		posts := api.Group("/"+string(kind), withPostKind(kind))
		posts.Get("/", s.ListPosts)
		posts.Post("/", authed, s.CreatePost)
		// /search must be registered before /:id.
		posts.Get("/search", s.SearchPosts)
		posts.Get("/:id/comments", s.GetComments)
		posts.Post("/:id/comment", authed, s.CreateComment)
		posts.Get("/:id", s.GetPost)
		posts.Put("/:id", authed, s.UpdatePost)
		posts.Delete("/:id", authed, s.DeletePost)
	}

	admin := api.Group("/admin", s.AdminRequired())
	admin.Get("/analytics", s.AdminAnalytics)
	admin.Get("/feature-flags", s.GetFeatureFlags)
	admin.Get("/users", s.AdminListUsers)
	admin.Post("/users", middleware.RateLimit(
		s.redis, middleware.AdminCreateLimit, middleware.AdminCreateWindow, "admin_create_user"), s.AdminCreateUser)
	admin.Get("/users/:id/activity", s.AdminUserActivity)
	admin.Get("/users/:id", s.AdminGetUser)
	admin.Put("/users/:id", s.AdminUpdateUser)
	admin.Delete("/users/:id", s.AdminDeleteUser)

	api.Get("/ws", s.websocketAuth(), s.requireRealtime, requireUpgrade, s.WebsocketHandler())
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional: only a configured
// but failing Redis makes the instance unready.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AuthRequired accepts a valid, unrevoked access token from the Authorization header.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := s.verifyAccess(c, bearerToken(c)); err != nil {
			return respondError(c, err)
		}
		return c.Next()
	}
}

// websocketAuth is AuthRequired that also reads ?token=, since browsers cannot set headers
// on a WebSocket handshake.
func (s *Server) websocketAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			token = c.Query("token")
		}
		if err := s.verifyAccess(c, token); err != nil {
			return respondError(c, err)
		}
		return c.Next()
	}
}

// AdminRequired authenticates the caller and rejects everyone without the admin flag with
// 403, including callers whose account no longer exists.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := s.verifyAccess(c, bearerToken(c)); err != nil {
			return respondError(c, err)
		}

		user, err := s.userRepo.GetByID(c.UserContext(), currentUserID(c))
		if err != nil && models.AsAppError(err).Code != models.CodeNotFound {
			return respondError(c, err)
		}
		if user == nil || !user.IsAdmin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// verifyAccess checks token and stores the caller in locals and the user context.
func (s *Server) verifyAccess(c *fiber.Ctx, token string) error {
	if token == "" {
		return models.NewUnauthorizedError("Authorization required")
	}
	claims, err := s.userService.Authenticate(c.UserContext(), token, auth.AccessToken)
	if err != nil {
		return err
	}

	c.Locals(localUserID, claims.UserID)
	c.Locals(localClaims, claims)
	ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, claims.UserID)
	c.SetUserContext(ctx)
	return nil
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.App()

	if s.notifier.Enabled() {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start hub wiring",
					slog.String("hub", s.hub.Name()),
					slog.String("error", err.Error()),
				)
			}
		}()
	}

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down hub", slog.String("error", err.Error()))
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
