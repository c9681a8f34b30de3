// Package web exposes the JSON API over fiber: account lifecycle, sessions,
// role administration, permission management, OAuth linking and MFA.
package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/GoAuthCore/GoAuthCore/internal/config"
	loggermw "github.com/GoAuthCore/GoAuthCore/internal/logger/adapter/fiber"
	"github.com/GoAuthCore/GoAuthCore/internal/web/handler"
	"github.com/GoAuthCore/GoAuthCore/internal/web/handler/account"
	"github.com/GoAuthCore/GoAuthCore/internal/web/handler/login"
	"github.com/GoAuthCore/GoAuthCore/internal/web/handler/logout"
	mfahandler "github.com/GoAuthCore/GoAuthCore/internal/web/handler/mfa"
	oauthhandler "github.com/GoAuthCore/GoAuthCore/internal/web/handler/oauth"
	"github.com/GoAuthCore/GoAuthCore/internal/web/handler/password"
	"github.com/GoAuthCore/GoAuthCore/internal/web/handler/permissions"
	roleshandler "github.com/GoAuthCore/GoAuthCore/internal/web/handler/roles"
	"github.com/GoAuthCore/GoAuthCore/internal/web/handler/sessions"
	authmw "github.com/GoAuthCore/GoAuthCore/internal/web/middleware/auth"
)

// Service represents the web service.
type Service struct {
	App   *fiber.App
	cfg   *config.Config
	core  *handler.Core
	alive atomic.Bool
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown waits for a termination signal and shuts the server down.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	// Graceful shutdown for reverse proxies: fail /healthz first so load
	// balancers drain this instance before the listener closes.
	if s.cfg.Webserver.ShutDownTime > 0 {
		log.Info().Msgf(
			"graceful shutdown: failing health checks for %d seconds before closing",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	serverShutdown := make(chan struct{})

	go func() {
		log.Info().Msg("stopping http server ...")

		if err := s.App.Shutdown(); err != nil {
			log.Error().Err(err).Msg("")
		}

		serverShutdown <- struct{}{}
	}()

	<-serverShutdown
	log.Info().Msg("http server was stopped ... good bye...")
}

// New creates a new web service with the given configuration and domain
// services.
func New(cfg *config.Config, core *handler.Core) *Service {
	if cfg == nil {
		panic("config cannot be nil")
	}

	if core == nil || core.DB == nil {
		panic("core services cannot be nil")
	}

	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        cfg.Title,
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
			ErrorHandler:   errorHandler,
		},
	)

	service := &Service{
		cfg:  cfg,
		App:  app,
		core: core,
	}
	service.alive.Store(true)

	app.Use(loggermw.New(loggermw.Config{
		Config:     cfg.Log,
		HealthzURI: "/healthz",
	}))
	app.Use(authmw.New(core, cfg.Webserver.Session.CookieName))

	for _, h := range []handler.Service{
		&account.Handler,
		&login.Handler,
		&logout.Handler,
		&password.Handler,
		&sessions.Handler,
		&roleshandler.Handler,
		&permissions.Handler,
		&oauthhandler.Handler,
		&mfahandler.Handler,
	} {
		if err := h.Init(app, cfg, core); err != nil {
			log.Fatal().Err(err).Msg("handler init failed")
		}
	}

	app.Get("/healthz", func(c *fiber.Ctx) error {
		if !service.alive.Load() {
			return c.Status(fiber.StatusServiceUnavailable).SendString("draining")
		}

		return c.SendString("ok")
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	return service
}
