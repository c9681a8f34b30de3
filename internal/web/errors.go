package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/GoAuthCore/GoAuthCore/internal/apperr"
)

// statusOf maps an error code to its HTTP status.
func statusOf(code apperr.Code) int {
	switch code {
	case apperr.CodeValidation:
		return fiber.StatusBadRequest
	case apperr.CodeConflict:
		return fiber.StatusConflict
	case apperr.CodeNotFound:
		return fiber.StatusNotFound
	case apperr.CodeInvalidOperation:
		return fiber.StatusUnprocessableEntity
	case apperr.CodeUnauthenticated:
		return fiber.StatusUnauthorized
	case apperr.CodeForbidden:
		return fiber.StatusForbidden
	case apperr.CodeOAuth:
		return fiber.StatusBadGateway
	case apperr.CodeUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// errorHandler renders every error as the {"error":{"code","message"}}
// envelope. Unclassified errors are logged and collapse to a generic 500 so
// internal detail never reaches a client.
func errorHandler(c *fiber.Ctx, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return c.Status(statusOf(appErr.Code)).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    appErr.Code,
				"message": appErr.Message,
			},
		})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "http_error",
				"message": fiberErr.Message,
			},
		})
	}

	log.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "internal_error",
			"message": "internal server error",
		},
	})
}
