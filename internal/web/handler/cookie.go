package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/GoAuthCore/GoAuthCore/internal/config"
	"github.com/GoAuthCore/GoAuthCore/internal/db/models"
)

// SetSessionCookie writes the session cookie for a freshly issued session.
// The cookie carries the opaque token and nothing else.
func SetSessionCookie(c *fiber.Ctx, cfg *config.Config, sess *models.Session) {
	cookie := &fiber.Cookie{
		Name:     cfg.Webserver.Session.CookieName,
		Value:    sess.Token,
		MaxAge:   int(cfg.Webserver.Session.ExpiryTime.Std().Seconds()),
		Secure:   true,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
	}

	if cfg.DevMode {
		cookie.Secure = false
	}

	c.Cookie(cookie)
}

// ClearSessionCookie expires the session cookie on the client.
func ClearSessionCookie(c *fiber.Ctx, cfg *config.Config) {
	cookie := &fiber.Cookie{
		Name:     cfg.Webserver.Session.CookieName,
		Value:    "",
		MaxAge:   -1,
		Secure:   true,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
	}

	if cfg.DevMode {
		cookie.Secure = false
	}

	c.Cookie(cookie)
}
