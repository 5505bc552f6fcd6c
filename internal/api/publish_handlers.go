package api

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/p-blackswan/playcraft/internal/bucket"
	perrors "github.com/p-blackswan/playcraft/internal/errors"
)

// Publish handles POST /api/v1/projects/:id/publish. Publishing runs to
// completion within the request.
func (h *Handlers) Publish(c *fiber.Ctx) error {
	var req PublishRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	job, err := h.deps.Publisher.Publish(c.UserContext(), c.Params("id"), req.Label, req.Notes)
	if job != nil && h.deps.Metrics != nil {
		h.deps.Metrics.RecordPublish(string(job.Status))
		if err != nil {
			h.deps.Metrics.RecordError("publish", errorKind(err))
		}
	}
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"job": job})
}

// ListVersions handles GET /api/v1/projects/:id/versions.
func (h *Handlers) ListVersions(c *fiber.Ctx) error {
	versions, err := h.deps.Publisher.ListVersions(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"versions": versions, "count": len(versions)})
}

// RestoreVersion handles POST /api/v1/projects/:id/versions/:vid/restore.
func (h *Handlers) RestoreVersion(c *fiber.Ctx) error {
	files, err := h.deps.Publisher.RestoreVersion(c.UserContext(), c.Params("id"), c.Params("vid"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"files": files, "count": len(files)})
}

// GetPublishJob handles GET /api/v1/publish-jobs/:id.
func (h *Handlers) GetPublishJob(c *fiber.Ctx) error {
	id := c.Params("id")
	job, err := h.deps.Publisher.GetJob(c.UserContext(), id)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("publish job %s: %w", id, perrors.ErrNotFound)
	}
	return c.JSON(fiber.Map{"job": job})
}

// ServePublished handles GET /published/:pid/*, serving published files
// straight from the bucket.
func (h *Handlers) ServePublished(c *fiber.Ctx) error {
	file := c.Params("*")
	if file == "" {
		file = "index.html"
	}
	return h.serveObject(c, "published", c.Params("pid"), file)
}

// ServeAsset handles GET /assets/:pid/*.
func (h *Handlers) ServeAsset(c *fiber.Ctx) error {
	return h.serveObject(c, "assets", c.Params("pid"), c.Params("*"))
}

func (h *Handlers) serveObject(c *fiber.Ctx, prefix, projectID, file string) error {
	name, err := bucket.CleanKey(file)
	if err != nil || projectID == "" || strings.Contains(projectID, "/") {
		return fmt.Errorf("%s: %w", file, perrors.ErrNotFound)
	}
	obj, err := h.deps.Bucket.Get(c.UserContext(), bucket.Join(prefix, projectID, name))
	if errors.Is(err, bucket.ErrObjectNotFound) {
		return fmt.Errorf("%s: %w", file, perrors.ErrNotFound)
	}
	if err != nil {
		return perrors.Wrap("storage", "get object", err)
	}
	if obj.ContentType != "" {
		c.Set(fiber.HeaderContentType, obj.ContentType)
	}
	c.Set(fiber.HeaderCacheControl, "public, max-age=60")
	return c.Send(obj.Data)
}

// ValidateAsset handles POST /api/v1/projects/:id/assets/validate.
func (h *Handlers) ValidateAsset(c *fiber.Ctx) error {
	var req ValidateAssetRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	return c.JSON(h.deps.Assets.ValidateAsset(req.Name, req.ContentType, req.Size))
}

// UploadAsset handles POST /api/v1/projects/:id/assets as a multipart form
// with a "file" part. A rejected asset is reported in the body, not as an
// error status.
func (h *Handlers) UploadAsset(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return perrors.Invalid("multipart field %q is required", "file")
	}
	f, err := fh.Open()
	if err != nil {
		return perrors.Invalid("reading upload: %v", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return perrors.Invalid("reading upload: %v", err)
	}

	res, err := h.deps.Assets.UploadAsset(c.UserContext(), c.Params("id"), fh.Filename, fh.Header.Get(fiber.HeaderContentType), data)
	if err != nil {
		return err
	}
	if res.Asset == nil {
		return c.JSON(res)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

func errorKind(err error) string {
	var se *perrors.ServiceError
	if errors.As(err, &se) {
		return se.Service
	}
	return problemType(perrors.HTTPStatus(err))
}
