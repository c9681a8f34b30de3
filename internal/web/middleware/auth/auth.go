// Package auth provides the session-resolution and authorization
// middleware for the web service.
package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/GoAuthCore/GoAuthCore/internal/apperr"
	"github.com/GoAuthCore/GoAuthCore/internal/perm"
	"github.com/GoAuthCore/GoAuthCore/internal/web/handler"
)

// New returns the session-resolution middleware. A valid session cookie
// resolves to an actor in fiber.Locals; a stale or invalid cookie leaves
// the request anonymous. Rejection is left to Required and RequireGuard so
// public routes stay reachable with a stale cookie. Resolution failures
// that are not authentication failures, a database outage for one, are
// surfaced rather than masked as an anonymous request.
func New(core *handler.Core, cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(cookieName)
		if token == "" {
			return c.Next()
		}

		actor, err := core.Auth.ResolveActor(c.Context(), token)
		if err != nil {
			if apperr.Is(err, apperr.CodeUnauthenticated) {
				return c.Next()
			}

			return err
		}

		c.Locals(handler.LocalActor, actor)

		return c.Next()
	}
}

// Required rejects anonymous requests.
func Required(c *fiber.Ctx) error {
	if handler.Actor(c) == nil {
		return apperr.Unauthenticated("authentication required")
	}

	return c.Next()
}

// RequireGuard rejects anonymous requests and requests whose actor does not
// satisfy the guard. The denial carries no detail about which permission
// was missing.
func RequireGuard(g perm.Guard) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := handler.Actor(c)
		if actor == nil {
			return apperr.Unauthenticated("authentication required")
		}

		if !g.Allows(actor.Permissions) {
			return apperr.Forbidden()
		}

		return c.Next()
	}
}
