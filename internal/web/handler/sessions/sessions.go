// Package sessions exposes the acting user's session list and revocation.
package sessions

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/GoAuthCore/GoAuthCore/internal/apperr"
	"github.com/GoAuthCore/GoAuthCore/internal/config"
	"github.com/GoAuthCore/GoAuthCore/internal/perm"
	"github.com/GoAuthCore/GoAuthCore/internal/web/handler"
	authmw "github.com/GoAuthCore/GoAuthCore/internal/web/middleware/auth"
)

// Path is the base path for session routes.
const Path = "/api/sessions"

// Service is the sessions handler service.
type Service struct {
	cfg  *config.Config
	core *handler.Core
}

// Handler is the sessions handler.
var Handler = Service{}

// Init initializes the sessions handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, core *handler.Core) error {
	if app == nil || cfg == nil || core == nil {
		return errors.New("app, cfg or core is nil")
	}

	s.cfg = cfg
	s.core = core

	app.Route(Path, func(router fiber.Router) {
		router.Get(handler.RouterRootPath, authmw.RequireGuard(perm.Require("sessions:read:self")), s.List)
		router.Delete("/:id", authmw.RequireGuard(perm.Require("sessions:delete:self")), s.Revoke)
	})

	return nil
}

// List returns the acting user's live sessions, most recently used first.
func (s *Service) List(c *fiber.Ctx) error {
	actor := handler.Actor(c)

	list, err := s.core.Auth.Sessions().List(c.Context(), actor.UserID)
	if err != nil {
		return err
	}

	views := make([]handler.SessionView, 0, len(list))
	for i := range list {
		views = append(views, handler.NewSessionView(&list[i], actor.SessionID))
	}

	return c.JSON(views)
}

// Revoke ends one of the acting user's sessions. Revoking the acting
// session also clears the cookie.
func (s *Service) Revoke(c *fiber.Ctx) error {
	actor := handler.Actor(c)
	id := c.Params("id")

	sess, err := s.core.Auth.Sessions().Get(c.Context(), id)
	if err != nil {
		return err
	}

	// foreign sessions are indistinguishable from missing ones
	if sess.UserID != actor.UserID {
		return apperr.NotFound("session %q not found", id)
	}

	if err := s.core.Auth.Sessions().Invalidate(c.Context(), id); err != nil {
		return err
	}

	if id == actor.SessionID {
		handler.ClearSessionCookie(c, s.cfg)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
