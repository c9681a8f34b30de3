// Package permissions exposes per-user permission administration.
package permissions

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/GoAuthCore/GoAuthCore/internal/config"
	"github.com/GoAuthCore/GoAuthCore/internal/perm"
	"github.com/GoAuthCore/GoAuthCore/internal/web/handler"
	authmw "github.com/GoAuthCore/GoAuthCore/internal/web/middleware/auth"
)

// Path is the base path for user permission routes.
const Path = "/api/users/:id/permissions"

// Service is the permissions handler service.
type Service struct {
	cfg  *config.Config
	core *handler.Core
}

// Handler is the permissions handler.
var Handler = Service{}

// Init initializes the permissions handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, core *handler.Core) error {
	if app == nil || cfg == nil || core == nil {
		return errors.New("app, cfg or core is nil")
	}

	s.cfg = cfg
	s.core = core

	app.Route(Path, func(router fiber.Router) {
		router.Get(handler.RouterRootPath, authmw.RequireGuard(perm.Require("permissions:read:all")), s.Get)
		router.Put(handler.RouterRootPath, authmw.RequireGuard(perm.Require("permissions:update:all")), s.Replace)
		router.Post("/grant", authmw.RequireGuard(perm.Require("permissions:update:all")), s.Grant)
		router.Post("/revoke", authmw.RequireGuard(perm.Require("permissions:update:all")), s.Revoke)
	})

	return nil
}

// Get returns the user's effective permission list.
func (s *Service) Get(c *fiber.Ctx) error {
	list, err := s.core.Auth.GetPermissions(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"permissions": list})
}

type permissionsRequest struct {
	Permissions []string `json:"permissions" validate:"required"`
}

// Replace overwrites the user's permission list.
func (s *Service) Replace(c *fiber.Ctx) error {
	var req permissionsRequest
	if err := handler.BindJSON(c, &req); err != nil {
		return err
	}

	list, err := s.core.Auth.ReplacePermissions(c.Context(), c.Params("id"), req.Permissions)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"permissions": list})
}

// Grant adds permissions to the user's list.
func (s *Service) Grant(c *fiber.Ctx) error {
	var req permissionsRequest
	if err := handler.BindJSON(c, &req); err != nil {
		return err
	}

	list, err := s.core.Auth.GrantPermissions(c.Context(), c.Params("id"), req.Permissions)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"permissions": list})
}

// Revoke removes permissions from the user's list.
func (s *Service) Revoke(c *fiber.Ctx) error {
	var req permissionsRequest
	if err := handler.BindJSON(c, &req); err != nil {
		return err
	}

	list, err := s.core.Auth.RevokePermissions(c.Context(), c.Params("id"), req.Permissions)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"permissions": list})
}
