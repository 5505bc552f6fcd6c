package api

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	perrors "github.com/p-blackswan/playcraft/internal/errors"
	"github.com/p-blackswan/playcraft/internal/game"
	"github.com/p-blackswan/playcraft/internal/kit"
	"github.com/p-blackswan/playcraft/internal/navigation"
)

// CreateSession handles POST /api/v1/sessions.
func (h *Handlers) CreateSession(c *fiber.Ctx) error {
	s := h.deps.Sessions.Create()
	return c.Status(fiber.StatusCreated).JSON(s.Snapshot())
}

// GetSession handles GET /api/v1/sessions/:id.
func (h *Handlers) GetSession(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	return c.JSON(s.Snapshot())
}

// DispatchGame handles POST /api/v1/sessions/:id/game.
func (h *Handlers) DispatchGame(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var req ActionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	a, err := game.DecodeAction(req.Type, req.Payload)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"state": s.Game.Dispatch(a)})
}

// DispatchNavigation handles POST /api/v1/sessions/:id/navigation.
func (h *Handlers) DispatchNavigation(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var req ActionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	a, err := navigation.DecodeAction(req.Type, req.Payload)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"state": s.Navigation.Dispatch(a)})
}

// DeleteSession handles DELETE /api/v1/sessions/:id.
func (h *Handlers) DeleteSession(c *fiber.Ctx) error {
	id := c.Params("id")
	if !h.deps.Sessions.Delete(id) {
		return fmt.Errorf("session %s: %w", id, perrors.ErrNotFound)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handlers) session(c *fiber.Ctx) (*kit.Session, error) {
	id := c.Params("id")
	s, ok := h.deps.Sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, perrors.ErrNotFound)
	}
	return s, nil
}
