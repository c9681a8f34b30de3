// Package oauth handles the provider authorization round trips: OAuth
// login, account linking, primary designation and profile sync.
package oauth

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/GoAuthCore/GoAuthCore/internal/apperr"
	"github.com/GoAuthCore/GoAuthCore/internal/config"
	"github.com/GoAuthCore/GoAuthCore/internal/oauth"
	"github.com/GoAuthCore/GoAuthCore/internal/web/handler"
	authmw "github.com/GoAuthCore/GoAuthCore/internal/web/middleware/auth"
)

// Path is the base path for OAuth routes.
const Path = "/api/oauth"

// Service is the OAuth handler service.
type Service struct {
	cfg  *config.Config
	core *handler.Core
}

// Handler is the OAuth handler.
var Handler = Service{}

// Init initializes the OAuth handler. Literal segments are registered
// before the :provider parameter so they are never captured by it.
func (s *Service) Init(app *fiber.App, cfg *config.Config, core *handler.Core) error {
	if app == nil || cfg == nil || core == nil {
		return errors.New("app, cfg or core is nil")
	}

	s.cfg = cfg
	s.core = core

	app.Route(Path, func(router fiber.Router) {
		router.Get("/providers", s.Providers)
		router.Get("/links", authmw.Required, s.Links)
		router.Post("/sync", authmw.Required, s.Sync)
		router.Get("/:provider/begin", s.Begin)
		router.Get("/:provider/callback", s.Callback)
		router.Post("/:provider/primary", authmw.Required, s.SetPrimary)
		router.Delete("/:provider", authmw.Required, s.Unlink)
	})

	return nil
}

// Providers lists the configured provider names.
func (s *Service) Providers(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"providers": s.core.Linking.Providers()})
}

// Begin starts an authorization round trip. Anonymous requests get login
// intent; authenticated requests may ask for link intent instead.
func (s *Service) Begin(c *fiber.Ctx) error {
	provider := c.Params("provider")
	actor := handler.Actor(c)

	intent := oauth.IntentLogin
	userID := ""

	if c.Query("intent") == string(oauth.IntentLink) {
		if actor == nil {
			return apperr.Unauthenticated("authentication required to link a provider")
		}

		intent = oauth.IntentLink
		userID = actor.UserID
	}

	url, err := s.core.Linking.BeginAuth(provider, intent, userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"authorization_url": url})
}

// Callback finishes an authorization round trip. The state decides whether
// this was a login, a link or a profile sync.
func (s *Service) Callback(c *fiber.Ctx) error {
	provider := c.Params("provider")
	code := c.Query("code")
	state := c.Query("state")

	if code == "" || state == "" {
		return apperr.Validation("code and state query parameters are required")
	}

	result, err := s.core.Linking.Complete(c.Context(), provider, code, state)
	if err != nil {
		return err
	}

	switch result.Intent {
	case oauth.IntentLogin:
		sess, err := s.core.Auth.Sessions().Issue(c.Context(), result.User.ID, c.Get(fiber.HeaderUserAgent), c.IP())
		if err != nil {
			return err
		}

		handler.SetSessionCookie(c, s.cfg, sess)

		return c.JSON(handler.NewUserView(result.User))
	case oauth.IntentLink:
		user, err := s.core.Auth.GetUser(c.Context(), result.Link.UserID)
		if err != nil {
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(handler.NewLinkView(result.Link, user.PrimaryProvider))
	default:
		return c.JSON(handler.NewUserView(result.User))
	}
}

// Links lists the acting user's linked providers.
func (s *Service) Links(c *fiber.Ctx) error {
	actor := handler.Actor(c)

	user, err := s.core.Auth.GetUser(c.Context(), actor.UserID)
	if err != nil {
		return err
	}

	links, err := s.core.Linking.ListLinked(c.Context(), actor.UserID)
	if err != nil {
		return err
	}

	views := make([]handler.LinkView, 0, len(links))
	for i := range links {
		views = append(views, handler.NewLinkView(&links[i], user.PrimaryProvider))
	}

	return c.JSON(views)
}

// Unlink detaches a provider from the acting user.
func (s *Service) Unlink(c *fiber.Ctx) error {
	actor := handler.Actor(c)

	if err := s.core.Linking.Unlink(c.Context(), actor.UserID, c.Params("provider")); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// SetPrimary designates a linked provider as the acting user's primary.
func (s *Service) SetPrimary(c *fiber.Ctx) error {
	actor := handler.Actor(c)

	if err := s.core.Linking.SetPrimary(c.Context(), actor.UserID, c.Params("provider")); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Sync answers whether the acting user can sync their profile and, when
// they can, where to send them for the fresh authorization.
func (s *Service) Sync(c *fiber.Ctx) error {
	actor := handler.Actor(c)

	plan, err := s.core.Linking.InitiateProfileSync(c.Context(), actor.UserID)
	if err != nil {
		return err
	}

	return c.JSON(plan)
}
