package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/GoAuthCore/GoAuthCore/internal/apperr"
	"github.com/GoAuthCore/GoAuthCore/internal/auth"
	"github.com/GoAuthCore/GoAuthCore/internal/config"
	"github.com/GoAuthCore/GoAuthCore/internal/linking"
	"github.com/GoAuthCore/GoAuthCore/internal/mfa"
	"github.com/GoAuthCore/GoAuthCore/internal/roles"
)

const (
	// RouterRootPath is the root path of a route group.
	RouterRootPath = "/"

	// LocalActor is the fiber.Locals key holding the resolved actor.
	LocalActor = "actor"
)

// Core bundles the domain services handlers work against.
type Core struct {
	DB      *gorm.DB
	Auth    *auth.Service
	Roles   *roles.Registry
	Linking *linking.Service
	MFA     *mfa.Manager
}

// Service is the interface for a web handler service.
type Service interface {
	Init(app *fiber.App, cfg *config.Config, core *Core) error
}

var validate = validator.New()

// BindJSON parses and validates the request body into dst. Malformed bodies
// and failed field constraints both surface as validation errors.
func BindJSON(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperr.Validation("malformed request body").WithCause(err)
	}

	if err := validate.Struct(dst); err != nil {
		var fields validator.ValidationErrors
		if errors.As(err, &fields) && len(fields) > 0 {
			return apperr.Validation("field %q failed the %q constraint", fields[0].Field(), fields[0].Tag())
		}

		return apperr.Validation("invalid request body").WithCause(err)
	}

	return nil
}

// Actor returns the resolved actor for the request, or nil for anonymous
// requests.
func Actor(c *fiber.Ctx) *auth.Actor {
	actor, _ := c.Locals(LocalActor).(*auth.Actor)
	return actor
}

// Device extracts the client device attributes used at session issuance.
func Device(c *fiber.Ctx) auth.Device {
	return auth.Device{
		UserAgent: c.Get(fiber.HeaderUserAgent),
		IP:        c.IP(),
	}
}
