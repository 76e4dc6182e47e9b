package handler

import (
	"github.com/gofiber/fiber/v2"

	"docvault/internal/service"
)

type registerRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// RegisterUser creates an account and returns a bearer token so the client
// is logged in immediately after registration.
func RegisterUser(svc service.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body registerRequest
		if err := c.BodyParser(&body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}

		u, err := svc.Register(c.UserContext(), service.RegisterInput{
			Username:  body.Username,
			Email:     body.Email,
			Password:  body.Password,
			Password2: body.Password2,
		})
		if err != nil {
			return writeServiceError(c, err)
		}

		token, err := svc.Token(u)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"user":  u,
			"token": token,
		})
	}
}

// LoginUser exchanges credentials for a bearer token.
func LoginUser(svc service.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body loginRequest
		if err := c.BodyParser(&body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}

		u, err := svc.Authenticate(c.UserContext(), body.Username, body.Password)
		if err != nil {
			if err == service.ErrInvalidCredentials {
				return writeError(c, fiber.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid username or password")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}

		token, err := svc.Token(u)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(tokenResponse{Token: token})
	}
}
