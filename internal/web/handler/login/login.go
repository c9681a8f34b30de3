// Package login handles password login.
package login

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/GoAuthCore/GoAuthCore/internal/config"
	"github.com/GoAuthCore/GoAuthCore/internal/web/handler"
)

// Path is the login route.
const Path = "/api/auth/login"

// Service is the login handler service.
type Service struct {
	cfg  *config.Config
	core *handler.Core
}

// Handler is the login handler.
var Handler = Service{}

// Init initializes the login handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, core *handler.Core) error {
	if app == nil || cfg == nil || core == nil {
		return errors.New("app, cfg or core is nil")
	}

	s.cfg = cfg
	s.core = core

	app.Post(Path, s.Post)

	return nil
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	// TOTPCode is required only for accounts with MFA enabled.
	TOTPCode string `json:"totp_code"`
}

// Post handles a password login and sets the session cookie.
func (s *Service) Post(c *fiber.Ctx) error {
	var req loginRequest
	if err := handler.BindJSON(c, &req); err != nil {
		return err
	}

	user, sess, err := s.core.Auth.Login(c.Context(), req.Email, req.Password, req.TOTPCode, handler.Device(c))
	if err != nil {
		return err
	}

	handler.SetSessionCookie(c, s.cfg, sess)

	return c.JSON(handler.NewUserView(user))
}
