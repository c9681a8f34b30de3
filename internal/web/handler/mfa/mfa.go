// Package mfa exposes TOTP enrollment for the acting user.
package mfa

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/GoAuthCore/GoAuthCore/internal/config"
	"github.com/GoAuthCore/GoAuthCore/internal/web/handler"
	authmw "github.com/GoAuthCore/GoAuthCore/internal/web/middleware/auth"
)

// Path is the base path for MFA routes.
const Path = "/api/mfa/totp"

// Service is the MFA handler service.
type Service struct {
	cfg  *config.Config
	core *handler.Core
}

// Handler is the MFA handler.
var Handler = Service{}

// Init initializes the MFA handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, core *handler.Core) error {
	if app == nil || cfg == nil || core == nil {
		return errors.New("app, cfg or core is nil")
	}

	s.cfg = cfg
	s.core = core

	app.Route(Path, func(router fiber.Router) {
		router.Post("/enroll", authmw.Required, s.Enroll)
		router.Post("/confirm", authmw.Required, s.Confirm)
		router.Post("/disable", authmw.Required, s.Disable)
	})

	return nil
}

// Enroll generates a fresh TOTP secret. The factor stays disarmed until
// Confirm succeeds with a valid code.
func (s *Service) Enroll(c *fiber.Ctx) error {
	actor := handler.Actor(c)

	enrollment, err := s.core.MFA.Enroll(c.Context(), actor.UserID)
	if err != nil {
		return err
	}

	return c.JSON(enrollment)
}

type codeRequest struct {
	Code string `json:"code" validate:"required"`
}

// Confirm arms the TOTP factor after the user proves they hold the secret.
func (s *Service) Confirm(c *fiber.Ctx) error {
	var req codeRequest
	if err := handler.BindJSON(c, &req); err != nil {
		return err
	}

	actor := handler.Actor(c)

	if err := s.core.MFA.Confirm(c.Context(), actor.UserID, req.Code); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Disable turns the TOTP factor off. A valid current code is required.
func (s *Service) Disable(c *fiber.Ctx) error {
	var req codeRequest
	if err := handler.BindJSON(c, &req); err != nil {
		return err
	}

	actor := handler.Actor(c)

	if err := s.core.MFA.Disable(c.Context(), actor.UserID, req.Code); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}
