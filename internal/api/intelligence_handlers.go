package api

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	perrors "github.com/p-blackswan/playcraft/internal/errors"
	"github.com/p-blackswan/playcraft/internal/intelligence"
)

// intelligenceFor computes, or fetches from cache, the intelligence of the
// project's stored files.
func (h *Handlers) intelligenceFor(c *fiber.Ctx, projectID string) (*intelligence.Intelligence, error) {
	ctx := c.UserContext()
	stored, err := h.deps.Projects.ListFiles(ctx, projectID)
	if err != nil {
		return nil, err
	}
	files := make([]intelligence.File, len(stored))
	for i, f := range stored {
		files[i] = intelligence.File{Path: f.Path, Content: f.Content, ModifiedAt: f.UpdatedAt}
	}
	return h.deps.Intelligence.Get(ctx, projectID, files)
}

// SuggestFiles handles POST /api/v1/projects/:id/suggestions.
func (h *Handlers) SuggestFiles(c *fiber.Ctx) error {
	var req SuggestRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	in, err := h.intelligenceFor(c, c.Params("id"))
	if err != nil {
		return err
	}
	suggestions, err := in.SuggestFiles(c.UserContext(), req.Prompt, intelligence.SuggestOptions{Limit: req.Limit})
	if err != nil {
		return err
	}
	return c.JSON(SuggestResponse{
		Suggestions: suggestions,
		Changes:     in.Changes,
		Weights:     in.Weights,
	})
}

// RecordFeedback handles POST /api/v1/projects/:id/suggestions/feedback.
func (h *Handlers) RecordFeedback(c *fiber.Ctx) error {
	if h.deps.Feedback == nil {
		return fmt.Errorf("feedback: %w", perrors.ErrUnavailable)
	}
	id := c.Params("id")
	var req FeedbackRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if len(req.Suggestions) == 0 {
		return perrors.Invalid("at least one suggestion is required")
	}
	if _, err := h.deps.Projects.Owned(c.UserContext(), id); err != nil {
		return err
	}
	err := h.deps.Feedback.RecordFeedback(c.UserContext(), id, intelligence.Feedback(req.Suggestions), req.EditedPaths)
	if err != nil {
		return perrors.Wrap("database", "record feedback", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DependentFiles handles GET /api/v1/projects/:id/files/dependents?path=.
func (h *Handlers) DependentFiles(c *fiber.Ctx) error {
	id := c.Params("id")
	path, err := requiredQuery(c, "path")
	if err != nil {
		return err
	}
	if _, err := h.intelligenceFor(c, id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"path": path, "dependents": h.deps.Intelligence.GetDependentFiles(id, path)})
}

// FileImports handles GET /api/v1/projects/:id/files/imports?path=.
func (h *Handlers) FileImports(c *fiber.Ctx) error {
	id := c.Params("id")
	path, err := requiredQuery(c, "path")
	if err != nil {
		return err
	}
	if _, err := h.intelligenceFor(c, id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"path": path, "imports": h.deps.Intelligence.GetFileImports(id, path)})
}

// FileInfo handles GET /api/v1/projects/:id/files/info?path=.
func (h *Handlers) FileInfo(c *fiber.Ctx) error {
	path, err := requiredQuery(c, "path")
	if err != nil {
		return err
	}
	in, err := h.intelligenceFor(c, c.Params("id"))
	if err != nil {
		return err
	}
	info, ok := in.FileInfo(path)
	if !ok {
		return fmt.Errorf("file %s: %w", path, perrors.ErrNotFound)
	}
	return c.JSON(info)
}

// ClearIntelligence handles DELETE /api/v1/projects/:id/intelligence.
func (h *Handlers) ClearIntelligence(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := h.deps.Projects.Owned(c.UserContext(), id); err != nil {
		return err
	}
	n := h.deps.Intelligence.ClearCache(id)
	return c.JSON(fiber.Map{"cleared": n})
}
