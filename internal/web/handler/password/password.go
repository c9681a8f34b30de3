// Package password handles the reset and change flows for the password
// credential.
package password

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/GoAuthCore/GoAuthCore/internal/config"
	"github.com/GoAuthCore/GoAuthCore/internal/web/handler"
	authmw "github.com/GoAuthCore/GoAuthCore/internal/web/middleware/auth"
)

// Path is the base path for password routes.
const Path = "/api/auth/password"

// Service is the password handler service.
type Service struct {
	cfg  *config.Config
	core *handler.Core
}

// Handler is the password handler.
var Handler = Service{}

// Init initializes the password handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, core *handler.Core) error {
	if app == nil || cfg == nil || core == nil {
		return errors.New("app, cfg or core is nil")
	}

	s.cfg = cfg
	s.core = core

	app.Route(Path, func(router fiber.Router) {
		router.Post("/reset-request", s.ResetRequest)
		router.Post("/reset", s.Reset)
		router.Post("/change", authmw.Required, s.Change)
	})

	return nil
}

type resetRequestRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetRequest sends a reset code. The response is identical whether or not
// the address belongs to an account.
func (s *Service) ResetRequest(c *fiber.Ctx) error {
	var req resetRequestRequest
	if err := handler.BindJSON(c, &req); err != nil {
		return err
	}

	if err := s.core.Auth.RequestPasswordReset(c.Context(), req.Email); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusAccepted)
}

type resetRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// Reset sets a new password using the emailed code. All sessions of the
// account are terminated.
func (s *Service) Reset(c *fiber.Ctx) error {
	var req resetRequest
	if err := handler.BindJSON(c, &req); err != nil {
		return err
	}

	if err := s.core.Auth.ResetPassword(c.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

type changeRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// Change rotates the password of the acting user. Every other session is
// terminated; the acting one stays alive.
func (s *Service) Change(c *fiber.Ctx) error {
	var req changeRequest
	if err := handler.BindJSON(c, &req); err != nil {
		return err
	}

	actor := handler.Actor(c)

	err := s.core.Auth.ChangePassword(c.Context(), actor.UserID, req.OldPassword, req.NewPassword, actor.SessionID)
	if err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}
