package web

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"docvault/internal/http/middleware"
	"docvault/internal/service"
)

// Home renders the public landing page.
func (h *PageHandler) Home(c *fiber.Ctx) error {
	return h.render(c, "home", nil)
}

// RegisterForm renders the empty registration form.
func (h *PageHandler) RegisterForm(c *fiber.Ctx) error {
	return h.render(c, "register", fiber.Map{"Errors": map[string]string{}})
}

// RegisterSubmit creates the account, logs the new user in and redirects home.
func (h *PageHandler) RegisterSubmit(c *fiber.Ctx) error {
	in := service.RegisterInput{
		Username:  c.FormValue("username"),
		Email:     c.FormValue("email"),
		Password:  c.FormValue("password1"),
		Password2: c.FormValue("password2"),
	}

	u, err := h.users.Register(c.UserContext(), in)
	if err != nil {
		var vErr *service.ValidationError
		if errors.As(err, &vErr) {
			return h.render(c, "register", fiber.Map{
				"Errors":   vErr.Fields,
				"Username": in.Username,
				"Email":    in.Email,
				"Flash":    &flashMessage{Level: "error", Message: "Please correct the errors below."},
			})
		}
		return err
	}

	if err := h.login(c, u.ID); err != nil {
		return err
	}
	h.flash(c, "success", "Registration successful! Welcome!")
	return c.Redirect("/", fiber.StatusFound)
}

// LoginForm renders the login form.
func (h *PageHandler) LoginForm(c *fiber.Ctx) error {
	return h.render(c, "login", fiber.Map{"Next": c.Query("next")})
}

// LoginSubmit checks credentials and opens a session.
func (h *PageHandler) LoginSubmit(c *fiber.Ctx) error {
	username := c.FormValue("username")
	u, err := h.users.Authenticate(c.UserContext(), username, c.FormValue("password"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return h.render(c, "login", fiber.Map{
				"Username": username,
				"Next":     c.FormValue("next"),
				"Flash":    &flashMessage{Level: "error", Message: "Invalid username or password."},
			})
		}
		return err
	}

	if err := h.login(c, u.ID); err != nil {
		return err
	}
	next := c.FormValue("next")
	if next == "" || next[0] != '/' {
		next = "/documents/"
	}
	return c.Redirect(next, fiber.StatusFound)
}

// Logout destroys the session and returns to the landing page.
func (h *PageHandler) Logout(c *fiber.Ctx) error {
	if sess, err := h.store.Get(c); err == nil {
		_ = sess.Destroy()
	}
	return c.Redirect("/", fiber.StatusFound)
}

// DocumentList shows all of the caller's documents, newest first.
func (h *PageHandler) DocumentList(c *fiber.Ctx) error {
	res, err := h.docs.List(c.UserContext(), middleware.UserID(c), service.ListFilter{Limit: 100})
	if err != nil {
		return err
	}
	return h.render(c, "document_list", fiber.Map{"Documents": res.Items, "Total": res.Total})
}

// UploadForm renders the empty upload form.
func (h *PageHandler) UploadForm(c *fiber.Ctx) error {
	return h.render(c, "document_upload", fiber.Map{"Errors": map[string]string{}})
}

// UploadSubmit validates and stores the upload, then redirects to the list.
// Validation failures re-render the form with field errors and persist nothing.
func (h *PageHandler) UploadSubmit(c *fiber.Ctx) error {
	in := service.UploadInput{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Tags:        c.FormValue("tags"),
	}
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return err
		}
		defer f.Close()
		in.Reader = f
		in.Filename = fh.Filename
		in.ContentType = fh.Header.Get("Content-Type")
		in.Size = fh.Size
	}

	doc, err := h.docs.Upload(c.UserContext(), middleware.UserID(c), in)
	if err != nil {
		var vErr *service.ValidationError
		if errors.As(err, &vErr) {
			return h.render(c, "document_upload", fiber.Map{
				"Errors":      vErr.Fields,
				"TitleValue":  in.Title,
				"Description": in.Description,
				"Tags":        in.Tags,
				"Flash":       &flashMessage{Level: "error", Message: "Please correct the errors below."},
			})
		}
		return err
	}

	h.flash(c, "success", fmt.Sprintf("Document %q uploaded successfully!", doc.Title))
	return c.Redirect("/documents/", fiber.StatusFound)
}

// DocumentDetail shows one owned document; absent or unowned IDs render
// the same 404 page.
func (h *PageHandler) DocumentDetail(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return h.notFound(c)
	}
	doc, err := h.docs.Get(c.UserContext(), middleware.UserID(c), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return h.notFound(c)
		}
		return err
	}
	return h.render(c, "document_detail", fiber.Map{"Doc": doc})
}

// Download streams the stored file back as an attachment. A document with
// no file, or one whose blob is gone from storage, redirects back to the
// detail page with a distinct warning; the metadata stays intact.
func (h *PageHandler) Download(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return h.notFound(c)
	}

	rc, doc, err := h.docs.Download(c.UserContext(), middleware.UserID(c), id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			return h.notFound(c)
		case errors.Is(err, service.ErrNoFile):
			h.flash(c, "error", "No file associated with this document.")
			return c.Redirect("/documents/"+id+"/", fiber.StatusFound)
		case errors.Is(err, service.ErrFileMissing):
			h.flash(c, "error", "File not found on server. It may have been moved or deleted.")
			return c.Redirect("/documents/"+id+"/", fiber.StatusFound)
		default:
			return err
		}
	}

	filename := doc.Filename
	if filename == "" {
		filename = doc.ID
	}
	c.Set(fiber.HeaderContentType, "application/octet-stream")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	// fasthttp closes the stream after the response is written
	if doc.Size > 0 {
		return c.SendStream(rc, int(doc.Size))
	}
	return c.SendStream(rc)
}

// Search renders the search form and, for a non-empty query, the matching
// documents. An empty query shows no results.
func (h *PageHandler) Search(c *fiber.Ctx) error {
	query := c.Query("q")
	results, err := h.docs.Search(c.UserContext(), middleware.UserID(c), query)
	if err != nil {
		return err
	}
	return h.render(c, "search", fiber.Map{
		"Query":   query,
		"Results": results,
		"Total":   len(results),
	})
}
