// Package account handles registration, activation and the self view.
package account

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/GoAuthCore/GoAuthCore/internal/config"
	"github.com/GoAuthCore/GoAuthCore/internal/web/handler"
	authmw "github.com/GoAuthCore/GoAuthCore/internal/web/middleware/auth"
)

// Path is the base path for account routes.
const Path = "/api/account"

// Service is the account handler service.
type Service struct {
	cfg  *config.Config
	core *handler.Core
}

// Handler is the account handler.
var Handler = Service{}

// Init initializes the account handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, core *handler.Core) error {
	if app == nil || cfg == nil || core == nil {
		return errors.New("app, cfg or core is nil")
	}

	s.cfg = cfg
	s.core = core

	app.Route(Path, func(router fiber.Router) {
		router.Post("/register", s.Register)
		router.Post("/activate", s.Activate)
		router.Get("/me", authmw.Required, s.Me)
		router.Delete("/me", authmw.Required, s.Delete)
	})

	return nil
}

type registerRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required"`
	DisplayName string `json:"display_name"`
}

// Register creates an unverified account and sends the activation code.
func (s *Service) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := handler.BindJSON(c, &req); err != nil {
		return err
	}

	user, err := s.core.Auth.Register(c.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(handler.NewUserView(user))
}

type activateRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required"`
}

// Activate verifies the account with the emailed code and issues the first
// session.
func (s *Service) Activate(c *fiber.Ctx) error {
	var req activateRequest
	if err := handler.BindJSON(c, &req); err != nil {
		return err
	}

	user, sess, err := s.core.Auth.Activate(c.Context(), req.Email, req.Code, handler.Device(c))
	if err != nil {
		return err
	}

	handler.SetSessionCookie(c, s.cfg, sess)

	return c.JSON(handler.NewUserView(user))
}

// Me returns the acting user.
func (s *Service) Me(c *fiber.Ctx) error {
	actor := handler.Actor(c)

	user, err := s.core.Auth.GetUser(c.Context(), actor.UserID)
	if err != nil {
		return err
	}

	return c.JSON(handler.NewUserView(user))
}

// Delete soft-deletes the acting user's account and ends every session.
func (s *Service) Delete(c *fiber.Ctx) error {
	actor := handler.Actor(c)

	if err := s.core.Auth.SoftDelete(c.Context(), actor.UserID); err != nil {
		return err
	}

	handler.ClearSessionCookie(c, s.cfg)

	return c.SendStatus(fiber.StatusNoContent)
}
