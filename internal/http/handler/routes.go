package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"docvault/internal/http/middleware"
	"docvault/internal/service"
)

// RegisterRoutes attaches health probes and the REST API to the Fiber app.
// Document routes sit behind RequireAuth; the handlers read the caller's ID
// from context locals and pass it explicitly into the service layer.
func RegisterRoutes(app *fiber.App, db *sql.DB, docSvc service.DocumentService, userSvc service.UserService, store *session.Store) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	api := app.Group("/api")

	api.Post("/auth/register", RegisterUser(userSvc))
	api.Post("/auth/login", LoginUser(userSvc))

	docs := api.Group("/documents", middleware.RequireAuth(userSvc.VerifyToken, store))
	docs.Get("/", ListDocuments(docSvc))
	docs.Post("/", CreateDocument(docSvc))
	docs.Get("/:id", GetDocument(docSvc))
	docs.Put("/:id", UpdateDocument(docSvc))
	docs.Patch("/:id", UpdateDocument(docSvc))
	docs.Delete("/:id", DeleteDocument(docSvc))
}
