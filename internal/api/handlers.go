package api

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	perrors "github.com/p-blackswan/playcraft/internal/errors"
	"github.com/p-blackswan/playcraft/internal/project"
	"github.com/p-blackswan/playcraft/internal/weights"
)

// FeedbackRecorder stores suggestion feedback.
type FeedbackRecorder interface {
	RecordFeedback(ctx context.Context, projectID string, suggestions []weights.Suggestion, editedPaths []string) error
}

// Handlers serves the API routes.
type Handlers struct {
	deps   Deps
	logger zerolog.Logger
}

func newHandlers(deps Deps, logger zerolog.Logger) *Handlers {
	return &Handlers{deps: deps, logger: logger}
}

// Liveness handles GET /healthz.
func (h *Handlers) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Readiness handles GET /readyz.
func (h *Handlers) Readiness(c *fiber.Ctx) error {
	if h.deps.Health == nil {
		return c.JSON(fiber.Map{"status": "ready"})
	}
	report := h.deps.Health.Evaluate(c.UserContext())
	if !report.Ready() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(report)
	}
	return c.JSON(report)
}

// GetProfile handles GET /api/v1/profile. A user without a profile gets a
// null profile.
func (h *Handlers) GetProfile(c *fiber.Ctx) error {
	p, err := h.deps.Profiles.GetCurrentProfile(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"profile": p})
}

// UpdateProfile handles PUT /api/v1/profile.
func (h *Handlers) UpdateProfile(c *fiber.Ctx) error {
	var in project.ProfileInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	p, err := h.deps.Profiles.UpdateProfile(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"profile": p})
}

// parseBody decodes a JSON body into v. An empty body leaves v unchanged.
func parseBody(c *fiber.Ctx, v any) error {
	body := c.Body()
	if len(body) == 0 {
		return nil
	}
	if err := c.App().Config().JSONDecoder(body, v); err != nil {
		return perrors.Invalid("invalid request body: %v", err)
	}
	return nil
}

func requiredQuery(c *fiber.Ctx, name string) (string, error) {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		return "", perrors.Invalid("query parameter %q is required", name)
	}
	return v, nil
}
