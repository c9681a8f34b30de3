// Package roles exposes role-template administration.
package roles

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/GoAuthCore/GoAuthCore/internal/config"
	"github.com/GoAuthCore/GoAuthCore/internal/perm"
	"github.com/GoAuthCore/GoAuthCore/internal/roles"
	"github.com/GoAuthCore/GoAuthCore/internal/web/handler"
	authmw "github.com/GoAuthCore/GoAuthCore/internal/web/middleware/auth"
)

// Path is the base path for role administration routes.
const Path = "/api/roles"

// Service is the roles handler service.
type Service struct {
	cfg  *config.Config
	core *handler.Core
}

// Handler is the roles handler.
var Handler = Service{}

// Init initializes the roles handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, core *handler.Core) error {
	if app == nil || cfg == nil || core == nil {
		return errors.New("app, cfg or core is nil")
	}

	s.cfg = cfg
	s.core = core

	app.Route(Path, func(router fiber.Router) {
		router.Get(handler.RouterRootPath, authmw.RequireGuard(perm.Require("roles:read:all")), s.List)
		router.Get("/:slug", authmw.RequireGuard(perm.Require("roles:read:all")), s.Get)
		router.Post(handler.RouterRootPath, authmw.RequireGuard(perm.Require("roles:create:all")), s.Create)
		router.Patch("/:slug", authmw.RequireGuard(perm.Require("roles:update:all")), s.Update)
		router.Delete("/:slug", authmw.RequireGuard(perm.Require("roles:delete:all")), s.Delete)
	})

	return nil
}

// List returns every role template.
func (s *Service) List(c *fiber.Ctx) error {
	list, err := s.core.Roles.List(c.Context())
	if err != nil {
		return err
	}

	views := make([]handler.RoleView, 0, len(list))
	for i := range list {
		views = append(views, handler.NewRoleView(&list[i]))
	}

	return c.JSON(views)
}

// Get returns one role by slug or ID.
func (s *Service) Get(c *fiber.Ctx) error {
	role, err := s.core.Roles.Get(c.Context(), c.Params("slug"))
	if err != nil {
		return err
	}

	return c.JSON(handler.NewRoleView(role))
}

type createRequest struct {
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

// Create stores a new role template.
func (s *Service) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := handler.BindJSON(c, &req); err != nil {
		return err
	}

	role, err := s.core.Roles.Create(c.Context(), req.Name, req.Description, req.Permissions)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(handler.NewRoleView(role))
}

type updateRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Permissions []string `json:"permissions"`
}

// Update partially updates a role template. Renaming a protected role is
// rejected.
func (s *Service) Update(c *fiber.Ctx) error {
	var req updateRequest
	if err := handler.BindJSON(c, &req); err != nil {
		return err
	}

	role, err := s.core.Roles.Update(c.Context(), c.Params("slug"), roles.Patch{
		Name:        req.Name,
		Description: req.Description,
		Permissions: req.Permissions,
	})
	if err != nil {
		return err
	}

	return c.JSON(handler.NewRoleView(role))
}

// Delete removes a role template. Users created from it keep their copied
// permissions; protected roles are undeletable.
func (s *Service) Delete(c *fiber.Ctx) error {
	if err := s.core.Roles.Delete(c.Context(), c.Params("slug")); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}
