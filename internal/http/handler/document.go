package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"docvault/internal/http/middleware"
	"docvault/internal/service"
)

// createRequest is the JSON body for a metadata-only create. Owner and
// uploaded_at are absent on purpose: they are read-only for clients and any
// supplied values are ignored.
type createRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Tags        string `json:"tags"`
}

// updateRequest carries partial metadata changes; nil means "leave as-is"
// for PATCH. PUT requires title and treats absent fields as empty.
type updateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Tags        *string `json:"tags"`
}

// ListDocuments returns the caller's documents with optional substring
// search and exact uploaded_at filtering.
func ListDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		f := service.ListFilter{
			Search: c.Query("search"),
			Limit:  limit,
			Offset: offset,
		}
		if v := c.Query("uploaded_at"); v != "" {
			ts, err := parseTimestamp(v)
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_UPLOADED_AT", "invalid uploaded_at value")
			}
			f.UploadedAt = &ts
		}

		res, err := svc.List(c.UserContext(), middleware.UserID(c), f)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// CreateDocument creates a document for the caller. A multipart request
// uploads file plus metadata; a JSON body creates a metadata-only record.
// The owner is always the authenticated caller, never a client-sent value.
func CreateDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ownerID := middleware.UserID(c)

		if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
			in := service.UploadInput{
				Title:       c.FormValue("title"),
				Description: c.FormValue("description"),
				Tags:        c.FormValue("tags"),
			}
			if fh, err := c.FormFile("file"); err == nil {
				f, err := fh.Open()
				if err != nil {
					return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
				}
				defer f.Close()
				in.Reader = f
				in.Filename = fh.Filename
				in.ContentType = fh.Header.Get("Content-Type")
				in.Size = fh.Size
			}

			doc, err := svc.Upload(c.UserContext(), ownerID, in)
			if err != nil {
				return writeServiceError(c, err)
			}
			return c.Status(fiber.StatusCreated).JSON(doc)
		}

		var body createRequest
		if err := c.BodyParser(&body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		doc, err := svc.Create(c.UserContext(), ownerID, service.CreateInput{
			Title:       body.Title,
			Description: body.Description,
			Tags:        body.Tags,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// GetDocument returns a single owned document by ID.
func GetDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := svc.Get(c.UserContext(), middleware.UserID(c), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// UpdateDocument handles PUT (full replace of mutable fields) and PATCH
// (partial update). Owner and uploaded_at are never client-writable.
func UpdateDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		var body updateRequest
		if err := c.BodyParser(&body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}

		in := service.UpdateInput{
			Title:       body.Title,
			Description: body.Description,
			Tags:        body.Tags,
		}
		if c.Method() == fiber.MethodPut {
			// PUT replaces: absent optional fields become empty
			if in.Title == nil {
				return writeValidationError(c, map[string]string{"title": "this field is required"})
			}
			empty := ""
			if in.Description == nil {
				in.Description = &empty
			}
			if in.Tags == nil {
				in.Tags = &empty
			}
		}

		doc, err := svc.Update(c.UserContext(), middleware.UserID(c), id, in)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// DeleteDocument removes an owned document and its stored file.
func DeleteDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.Delete(c.UserContext(), middleware.UserID(c), id); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// parseTimestamp accepts RFC3339 or a bare date.
func parseTimestamp(v string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, v); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", v)
}
