package api

import (
	"github.com/gofiber/fiber/v2"

	perrors "github.com/p-blackswan/playcraft/internal/errors"
	"github.com/p-blackswan/playcraft/internal/project"
	"github.com/p-blackswan/playcraft/internal/tracker"
)

// CreateProject handles POST /api/v1/projects.
func (h *Handlers) CreateProject(c *fiber.Ctx) error {
	var in project.CreateInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	p, err := h.deps.Projects.Create(c.UserContext(), in)
	if err != nil {
		return err
	}
	h.logger.Info().Str("project_id", p.ID).Str("template", p.Template).Msg("project created")
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"project": p})
}

// ListProjects handles GET /api/v1/projects.
func (h *Handlers) ListProjects(c *fiber.Ctx) error {
	list, err := h.deps.Projects.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"projects": list, "count": len(list)})
}

// GetProject handles GET /api/v1/projects/:id.
func (h *Handlers) GetProject(c *fiber.Ctx) error {
	p, err := h.deps.Projects.Owned(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"project": p})
}

// UpdateProject handles PATCH /api/v1/projects/:id.
func (h *Handlers) UpdateProject(c *fiber.Ctx) error {
	var in project.UpdateInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	p, err := h.deps.Projects.Update(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"project": p})
}

// DeleteProject handles DELETE /api/v1/projects/:id.
func (h *Handlers) DeleteProject(c *fiber.Ctx) error {
	if err := h.deps.Projects.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SaveFiles handles PUT /api/v1/projects/:id/files.
func (h *Handlers) SaveFiles(c *fiber.Ctx) error {
	var req SaveFilesRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	files, err := h.deps.Projects.SaveFiles(c.UserContext(), c.Params("id"), req.Files, req.Source)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"files": files, "count": len(files)})
}

// ListFiles handles GET /api/v1/projects/:id/files.
func (h *Handlers) ListFiles(c *fiber.Ctx) error {
	files, err := h.deps.Projects.ListFiles(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"files": files, "count": len(files)})
}

// TrackChanges handles POST /api/v1/projects/:id/changes. Changes are
// queued, not stored as project files.
func (h *Handlers) TrackChanges(c *fiber.Ctx) error {
	id := c.Params("id")
	var req TrackChangesRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if len(req.Changes) == 0 {
		return perrors.Invalid("at least one change is required")
	}
	if _, err := h.deps.Projects.Owned(c.UserContext(), id); err != nil {
		return err
	}
	t := h.deps.Trackers.Get(id)
	if err := t.TrackChanges(req.Changes); err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(pendingOf(t))
}

// FlushChanges handles POST /api/v1/projects/:id/changes/flush.
func (h *Handlers) FlushChanges(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := h.deps.Projects.Owned(c.UserContext(), id); err != nil {
		return err
	}
	t, ok := h.deps.Trackers.Lookup(id)
	if !ok {
		return c.JSON(PendingResponse{})
	}
	if err := t.Flush(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(pendingOf(t))
}

// PendingChanges handles GET /api/v1/projects/:id/changes/pending.
func (h *Handlers) PendingChanges(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := h.deps.Projects.Owned(c.UserContext(), id); err != nil {
		return err
	}
	if t, ok := h.deps.Trackers.Lookup(id); ok {
		return c.JSON(pendingOf(t))
	}
	return c.JSON(PendingResponse{})
}

func pendingOf(t *tracker.Tracker) PendingResponse {
	return PendingResponse{Pending: t.PendingCount(), Scheduled: t.Scheduled()}
}
