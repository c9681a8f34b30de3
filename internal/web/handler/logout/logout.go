// Package logout handles session termination for the acting user.
package logout

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/GoAuthCore/GoAuthCore/internal/config"
	"github.com/GoAuthCore/GoAuthCore/internal/web/handler"
	authmw "github.com/GoAuthCore/GoAuthCore/internal/web/middleware/auth"
)

// Path is the base path for logout routes.
const Path = "/api/auth/logout"

// Service is the logout handler service.
type Service struct {
	cfg  *config.Config
	core *handler.Core
}

// Handler is the logout handler.
var Handler = Service{}

// Init initializes the logout handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, core *handler.Core) error {
	if app == nil || cfg == nil || core == nil {
		return errors.New("app, cfg or core is nil")
	}

	s.cfg = cfg
	s.core = core

	app.Route(Path, func(router fiber.Router) {
		router.Post(handler.RouterRootPath, authmw.Required, s.Post)
		router.Post("/others", authmw.Required, s.PostOthers)
	})

	return nil
}

// Post ends the acting session.
func (s *Service) Post(c *fiber.Ctx) error {
	actor := handler.Actor(c)

	if err := s.core.Auth.Sessions().Invalidate(c.Context(), actor.SessionID); err != nil {
		return err
	}

	handler.ClearSessionCookie(c, s.cfg)

	return c.SendStatus(fiber.StatusNoContent)
}

// PostOthers ends every session of the acting user except the acting one.
func (s *Service) PostOthers(c *fiber.Ctx) error {
	actor := handler.Actor(c)

	err := s.core.Auth.Sessions().InvalidateAllOthers(c.Context(), actor.UserID, actor.SessionID)
	if err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}
