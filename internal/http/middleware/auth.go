package middleware

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

const (
	// UserIDLocalKey is where the authenticated caller's user ID is stored
	// in Fiber's context locals. Handlers pass it explicitly into services;
	// nothing below the HTTP boundary reads ambient auth state.
	UserIDLocalKey = "user_id"

	// SessionUserKey is the session key holding the logged-in user's ID.
	SessionUserKey = "user_id"
)

// TokenVerifier validates a bearer token and returns the user ID it carries.
type TokenVerifier func(token string) (string, error)

// UserID returns the authenticated caller's ID, or "" when unauthenticated.
func UserID(c *fiber.Ctx) string {
	if v, ok := c.Locals(UserIDLocalKey).(string); ok {
		return v
	}
	return ""
}

// RequireAuth authenticates API requests. A Bearer token is checked first;
// failing that, a session cookie is accepted. Unauthenticated requests get
// 401 before any document lookup happens.
func RequireAuth(verify TokenVerifier, store *session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		if header != "" {
			token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer"))
			if !strings.HasPrefix(header, "Bearer ") || token == "" {
				return fiber.NewError(fiber.StatusUnauthorized, "missing or invalid token")
			}
			uid, err := verify(token)
			if err != nil {
				return fiber.NewError(fiber.StatusUnauthorized, "missing or invalid token")
			}
			c.Locals(UserIDLocalKey, uid)
			return c.Next()
		}

		if uid := sessionUserID(c, store); uid != "" {
			c.Locals(UserIDLocalKey, uid)
			return c.Next()
		}

		return fiber.ErrUnauthorized
	}
}

// RequireSession authenticates page requests via the session cookie and
// redirects unauthenticated callers to the login page, preserving the
// requested path.
func RequireSession(store *session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if uid := sessionUserID(c, store); uid != "" {
			c.Locals(UserIDLocalKey, uid)
			return c.Next()
		}
		return c.Redirect("/login?next="+url.QueryEscape(c.OriginalURL()), fiber.StatusFound)
	}
}

func sessionUserID(c *fiber.Ctx, store *session.Store) string {
	if store == nil {
		return ""
	}
	sess, err := store.Get(c)
	if err != nil {
		return ""
	}
	uid, _ := sess.Get(SessionUserKey).(string)
	return uid
}
