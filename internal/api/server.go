// Package api is the PlayCraft HTTP API.
package api

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/rs/zerolog"

	"github.com/p-blackswan/playcraft/internal/bucket"
	perrors "github.com/p-blackswan/playcraft/internal/errors"
	"github.com/p-blackswan/playcraft/internal/health"
	"github.com/p-blackswan/playcraft/internal/intelligence"
	"github.com/p-blackswan/playcraft/internal/kit"
	"github.com/p-blackswan/playcraft/internal/metrics"
	"github.com/p-blackswan/playcraft/internal/project"
	"github.com/p-blackswan/playcraft/internal/requestid"
	"github.com/p-blackswan/playcraft/internal/tracker"
)

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	ListenAddr   string
	Auth         AuthConfig
	RateLimit    RateLimitConfig
	CORSOrigins  string
	MaxBodyBytes int
}

// Deps are the services the API exposes. Nil Health, Metrics or Feedback
// disable the routes that need them.
type Deps struct {
	Projects     *project.Service
	Profiles     *project.ProfileService
	Publisher    *project.PublishService
	Assets       *project.AssetService
	Trackers     *tracker.Registry
	Intelligence *intelligence.Service
	Feedback     FeedbackRecorder
	Sessions     *kit.Registry
	Bucket       bucket.Bucket
	Health       *health.Checker
	Metrics      *metrics.Metrics
}

// Server is the API Fiber application.
type Server struct {
	app    *fiber.App
	logger zerolog.Logger
	config ServerConfig
}

// NewServer creates and configures the API server.
func NewServer(cfg ServerConfig, deps Deps, logger zerolog.Logger) *Server {
	logger = logger.With().Str("component", "api").Logger()
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		BodyLimit:             cfg.MaxBodyBytes,
		ReadBufferSize:        8192,
		WriteBufferSize:       8192,
	})

	s := &Server{app: app, logger: logger, config: cfg}
	s.setupMiddleware(cfg, deps.Metrics)
	s.setupRoutes(newHandlers(deps, logger), deps.Metrics)
	return s
}

func (s *Server) setupMiddleware(cfg ServerConfig, m *metrics.Metrics) {
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	s.app.Use(func(c *fiber.Ctx) error {
		id := requestid.Resolve(c.Get(requestid.Header))
		c.Set(requestid.Header, id)
		c.Locals("request_id", id)
		c.SetUserContext(requestid.WithRequestID(c.UserContext(), id))
		return c.Next()
	})

	if m != nil {
		s.app.Use(metricsMiddleware(m))
	}

	if cfg.CORSOrigins != "" {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins: cfg.CORSOrigins,
			AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID, X-User-ID",
			AllowMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		}))
	}

	if cfg.RateLimit.RPS > 0 {
		s.app.Use(NewRateLimitMiddleware(cfg.RateLimit))
	}

	s.app.Use(NewAuthMiddleware(cfg.Auth, s.logger))

	s.app.Use(func(c *fiber.Ctx) error {
		path := c.Path()
		if isPublicPath(path) {
			return c.Next()
		}
		s.logger.Info().
			Str("method", c.Method()).
			Str("path", path).
			Str("ip", c.IP()).
			Str("request_id", requestid.FromContext(c.UserContext())).
			Interface("user_id", c.Locals("user_id")).
			Msg("api request")
		return c.Next()
	})
}

func (s *Server) setupRoutes(h *Handlers, m *metrics.Metrics) {
	s.app.Get("/healthz", h.Liveness)
	s.app.Get("/readyz", h.Readiness)
	if m != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
	}
	s.app.Get("/published/:pid/*", h.ServePublished)
	s.app.Get("/assets/:pid/*", h.ServeAsset)

	v1 := s.app.Group("/api/v1")

	v1.Get("/profile", h.GetProfile)
	v1.Put("/profile", h.UpdateProfile)

	v1.Post("/projects", h.CreateProject)
	v1.Get("/projects", h.ListProjects)
	v1.Get("/projects/:id", h.GetProject)
	v1.Patch("/projects/:id", h.UpdateProject)
	v1.Delete("/projects/:id", h.DeleteProject)

	v1.Put("/projects/:id/files", h.SaveFiles)
	v1.Get("/projects/:id/files", h.ListFiles)
	v1.Get("/projects/:id/files/dependents", h.DependentFiles)
	v1.Get("/projects/:id/files/imports", h.FileImports)
	v1.Get("/projects/:id/files/info", h.FileInfo)

	v1.Post("/projects/:id/changes", h.TrackChanges)
	v1.Post("/projects/:id/changes/flush", h.FlushChanges)
	v1.Get("/projects/:id/changes/pending", h.PendingChanges)

	v1.Post("/projects/:id/suggestions", h.SuggestFiles)
	v1.Post("/projects/:id/suggestions/feedback", h.RecordFeedback)
	v1.Delete("/projects/:id/intelligence", h.ClearIntelligence)

	v1.Post("/projects/:id/publish", h.Publish)
	v1.Get("/projects/:id/versions", h.ListVersions)
	v1.Post("/projects/:id/versions/:vid/restore", h.RestoreVersion)
	v1.Get("/publish-jobs/:id", h.GetPublishJob)

	v1.Post("/projects/:id/assets/validate", h.ValidateAsset)
	v1.Post("/projects/:id/assets", h.UploadAsset)

	v1.Post("/sessions", h.CreateSession)
	v1.Get("/sessions/:id", h.GetSession)
	v1.Post("/sessions/:id/game", h.DispatchGame)
	v1.Post("/sessions/:id/navigation", h.DispatchNavigation)
	v1.Delete("/sessions/:id", h.DeleteSession)
}

// Start starts the server. Blocks until stopped.
func (s *Server) Start() error {
	addr := s.config.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	s.logger.Info().Str("addr", addr).Msg("api server starting")
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.logger.Info().Msg("api server shutting down")
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

// isPublicPath reports paths served without authentication.
func isPublicPath(path string) bool {
	switch path {
	case "/healthz", "/readyz", "/metrics":
		return true
	}
	return strings.HasPrefix(path, "/published/") || strings.HasPrefix(path, "/assets/")
}

func metricsMiddleware(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			status = statusOf(err)
		}
		m.RecordRequest(c.Method(), c.Route().Path, status, time.Since(start))
		return err
	}
}

func statusOf(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return perrors.HTTPStatus(err)
}

func errorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := statusOf(err)
		detail := err.Error()

		if code >= fiber.StatusInternalServerError {
			logger.Error().
				Err(err).
				Int("status", code).
				Str("path", c.Path()).
				Str("method", c.Method()).
				Msg("request failed")
			// Collaborator failures keep their message; anything else is
			// internal.
			var se *perrors.ServiceError
			if !errors.As(err, &se) && code == fiber.StatusInternalServerError {
				detail = "An internal error occurred"
			}
		}

		return problemResponse(c, code, problemType(code), utils.StatusMessage(code), detail)
	}
}
