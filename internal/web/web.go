// Package web serves the session-authenticated, server-rendered pages:
// registration and login, the document list, upload and detail views,
// downloads and search. It shares the service layer with the REST API so
// both surfaces enforce the same owner scoping.
package web

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/template/html/v2"

	"docvault/internal/http/middleware"
	"docvault/internal/service"
)

//go:embed templates
var templatesFS embed.FS

// Engine builds the view engine over the embedded templates.
func Engine() *html.Engine {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		panic(err)
	}
	return html.NewFileSystem(http.FS(sub), ".html")
}

// PageHandler renders the HTML surface of the application.
type PageHandler struct {
	docs  service.DocumentService
	users service.UserService
	store *session.Store
}

// NewPageHandler constructs a PageHandler.
func NewPageHandler(docs service.DocumentService, users service.UserService, store *session.Store) *PageHandler {
	return &PageHandler{docs: docs, users: users, store: store}
}

// RegisterPages attaches the page routes. Document and search routes sit
// behind RequireSession, which redirects anonymous visitors to /login.
func (h *PageHandler) RegisterPages(app *fiber.App) {
	app.Get("/", h.Home)

	app.Get("/register", h.RegisterForm)
	app.Post("/register", h.RegisterSubmit)
	app.Get("/login", h.LoginForm)
	app.Post("/login", h.LoginSubmit)
	app.Post("/logout", h.Logout)

	authed := middleware.RequireSession(h.store)
	app.Get("/documents/", authed, h.DocumentList)
	app.Get("/documents/upload/", authed, h.UploadForm)
	app.Post("/documents/upload/", authed, h.UploadSubmit)
	app.Get("/documents/:id/", authed, h.DocumentDetail)
	app.Get("/documents/:id/download/", authed, h.Download)
	app.Get("/search/", authed, h.Search)
}

// render wraps c.Render with the shared layout and common view data.
func (h *PageHandler) render(c *fiber.Ctx, name string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	data["LoggedIn"] = h.sessionUserID(c) != ""
	if _, ok := data["Flash"]; !ok {
		data["Flash"] = h.popFlash(c)
	}
	return c.Render(name, data, "layouts/main")
}

func (h *PageHandler) sessionUserID(c *fiber.Ctx) string {
	sess, err := h.store.Get(c)
	if err != nil {
		return ""
	}
	uid, _ := sess.Get(middleware.SessionUserKey).(string)
	return uid
}

func (h *PageHandler) login(c *fiber.Ctx, userID string) error {
	sess, err := h.store.Get(c)
	if err != nil {
		return err
	}
	sess.Set(middleware.SessionUserKey, userID)
	return sess.Save()
}

// flash stores a one-shot message shown on the next rendered page.
func (h *PageHandler) flash(c *fiber.Ctx, level, msg string) {
	sess, err := h.store.Get(c)
	if err != nil {
		return
	}
	sess.Set("flash_level", level)
	sess.Set("flash_msg", msg)
	_ = sess.Save()
}

type flashMessage struct {
	Level   string
	Message string
}

func (h *PageHandler) popFlash(c *fiber.Ctx) *flashMessage {
	sess, err := h.store.Get(c)
	if err != nil {
		return nil
	}
	msg, _ := sess.Get("flash_msg").(string)
	if msg == "" {
		return nil
	}
	level, _ := sess.Get("flash_level").(string)
	sess.Delete("flash_msg")
	sess.Delete("flash_level")
	_ = sess.Save()
	if level == "" {
		level = "info"
	}
	return &flashMessage{Level: level, Message: msg}
}

// notFound renders the HTML 404 page.
func (h *PageHandler) notFound(c *fiber.Ctx) error {
	c.Status(fiber.StatusNotFound)
	return h.render(c, "error", fiber.Map{"Title": "Not Found", "Message": "The page or document you requested does not exist."})
}
