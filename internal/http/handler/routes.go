package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"docvault/internal/model"
	"docvault/internal/service"
)

// UserHeader carries the caller identity that becomes the permission
// context of every engine call.
const UserHeader = "X-User"

// RegisterRoutes attaches the REST adapter to the provided Fiber app. The
// handlers are thin: parameter parsing and error translation only, all
// semantics live in the engine.
func RegisterRoutes(app *fiber.App, db *sql.DB, engine *service.Engine) {
	// Health endpoint: checks metadata store connectivity only.
	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
			}
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	})

	// Simple liveness probe.
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	// Storage backend stats.
	app.Get("/stats", func(c *fiber.Ctx) error {
		st, err := engine.Stats(c.UserContext())
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(st)
	})

	// Create a folder.
	app.Post("/folders", func(c *fiber.Ctx) error {
		var req struct {
			ParentID   string         `json:"parent_id"`
			Properties map[string]any `json:"properties"`
		}
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		if req.ParentID == "" {
			req.ParentID = model.RootNodeID
		}
		id, err := engine.CreateFolder(c.UserContext(), user(c), req.Properties, req.ParentID)
		if err != nil {
			return engineError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
	})

	// Create a document (multipart/form-data, field name: file).
	app.Post("/documents", func(c *fiber.Ctx) error {
		parentID := c.FormValue("parent_id", model.RootNodeID)
		versioningState := c.FormValue("versioning_state")

		props := map[string]any{}
		if raw := c.FormValue("properties"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &props); err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_PROPERTIES", "properties must be a JSON object")
			}
		}
		if name := c.FormValue("name"); name != "" {
			props[model.PropertyName] = name
		}

		var upload *service.ContentUpload
		if fh, err := c.FormFile("file"); err == nil {
			f, err := fh.Open()
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
			}
			defer f.Close()
			if _, ok := props[model.PropertyName]; !ok {
				props[model.PropertyName] = fh.Filename
			}
			upload = &service.ContentUpload{
				Reader:   f,
				Size:     fh.Size,
				MIMEType: fh.Header.Get("Content-Type"),
			}
		}

		id, err := engine.CreateDocument(c.UserContext(), user(c), props, parentID, upload, versioningState)
		if err != nil {
			return engineError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
	})

	// Get an object's compiled properties.
	app.Get("/objects/:id", func(c *fiber.Ctx) error {
		obj, err := engine.GetObject(c.UserContext(), user(c), c.Params("id"), filter(c))
		if err != nil {
			return engineError(c, err)
		}
		return c.JSON(obj)
	})

	// List a folder's children with paging.
	app.Get("/objects/:id/children", func(c *fiber.Ctx) error {
		maxItems, err := strconv.Atoi(c.Query("max_items", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_MAX_ITEMS", "invalid max_items")
		}
		skipCount, err := strconv.Atoi(c.Query("skip_count", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_SKIP_COUNT", "invalid skip_count")
		}
		res, err := engine.GetChildren(c.UserContext(), user(c), c.Params("id"), filter(c), maxItems, skipCount)
		if err != nil {
			return engineError(c, err)
		}
		return c.JSON(res)
	})

	// Get an object's parents.
	app.Get("/objects/:id/parents", func(c *fiber.Ctx) error {
		parents, err := engine.GetObjectParents(c.UserContext(), user(c), c.Params("id"), filter(c))
		if err != nil {
			return engineError(c, err)
		}
		return c.JSON(parents)
	})

	// Download a document's content, optionally a byte range.
	app.Get("/objects/:id/content", func(c *fiber.Ctx) error {
		offset, err := optionalInt64(c.Query("offset"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}
		length, err := optionalInt64(c.Query("length"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LENGTH", "invalid length")
		}
		cs, err := engine.GetContentStream(c.UserContext(), user(c), c.Params("id"), offset, length)
		if err != nil {
			return engineError(c, err)
		}
		if cs.MIMEType != "" {
			c.Set(fiber.HeaderContentType, cs.MIMEType)
		}
		if cs.FileName != "" {
			c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", cs.FileName))
		}
		status := fiber.StatusOK
		if cs.Partial {
			status = fiber.StatusPartialContent
		}
		c.Status(status)
		return c.SendStream(cs.Reader, int(cs.Length))
	})

	// Delete an object.
	app.Delete("/objects/:id", func(c *fiber.Ctx) error {
		if err := engine.DeleteObject(c.UserContext(), user(c), c.Params("id")); err != nil {
			return engineError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	// Query pass-through (one literal statement only).
	app.Post("/query", func(c *fiber.Ctx) error {
		var req struct {
			Statement string `json:"statement"`
		}
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		objs, err := engine.Query(c.UserContext(), user(c), req.Statement)
		if err != nil {
			return engineError(c, err)
		}
		return c.JSON(fiber.Map{"items": objs})
	})
}

func user(c *fiber.Ctx) string {
	return c.Get(UserHeader)
}

func filter(c *fiber.Ctx) []string {
	raw := c.Query("filter")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func optionalInt64(raw string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return nil, fmt.Errorf("invalid value %q", raw)
	}
	return &v, nil
}

// engineError translates the engine's error taxonomy to HTTP statuses.
func engineError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		return writeError(c, fiber.StatusForbidden, "PERMISSION_DENIED", "permission denied")
	case errors.Is(err, service.ErrObjectNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "object not found")
	case errors.Is(err, service.ErrNameConstraint):
		return writeError(c, fiber.StatusConflict, "NAME_CONSTRAINT", "name constraint violation")
	case errors.Is(err, service.ErrConstraint):
		return writeError(c, fiber.StatusConflict, "CONSTRAINT", "constraint violation")
	case errors.Is(err, service.ErrInvalidArgument):
		return writeError(c, fiber.StatusBadRequest, "INVALID_ARGUMENT", "invalid argument")
	case errors.Is(err, service.ErrStorage):
		return writeError(c, fiber.StatusBadGateway, "STORAGE_ERROR", "storage failure")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
