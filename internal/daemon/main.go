// Package daemon assembles the application: database, migrations, seeding,
// domain services, the session sweeper and the web service.
package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	gormmysql "gorm.io/driver/mysql"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/GoAuthCore/GoAuthCore/internal/auth"
	"github.com/GoAuthCore/GoAuthCore/internal/config"
	"github.com/GoAuthCore/GoAuthCore/internal/db/dsn"
	"github.com/GoAuthCore/GoAuthCore/internal/db/models"
	"github.com/GoAuthCore/GoAuthCore/internal/linking"
	"github.com/GoAuthCore/GoAuthCore/internal/mfa"
	"github.com/GoAuthCore/GoAuthCore/internal/notify"
	"github.com/GoAuthCore/GoAuthCore/internal/oauth"
	"github.com/GoAuthCore/GoAuthCore/internal/roles"
	"github.com/GoAuthCore/GoAuthCore/internal/session"
	"github.com/GoAuthCore/GoAuthCore/internal/web"
	"github.com/GoAuthCore/GoAuthCore/internal/web/handler"
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	webService *web.Service
	sessions   *session.Store

	// cancelSweeper stops the background session sweeper.
	cancelSweeper context.CancelFunc
}

// Start starts the session sweeper and the web service, then blocks until
// the service stops.
func (d *Daemon) Start() error {
	sweepCtx, cancel := context.WithCancel(context.Background())
	d.cancelSweeper = cancel

	go d.sessions.RunSweeper(sweepCtx, d.cfg.Webserver.Session.SweepInterval.Std())

	go func() {
		d.webService.WaitShutdown()
		cancel()
	}()

	return d.webService.Start(fmt.Sprintf(":%d", d.cfg.Webserver.Port))
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err = db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Session{},
		&models.LinkedProvider{},
	); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	registry := roles.NewRegistry(db)

	if err := seed(cfg, db, registry); err != nil {
		return nil, fmt.Errorf("seed database: %w", err)
	}

	exchanger, err := oauth.NewOIDCExchanger(context.Background(), cfg.OAuth)
	if err != nil {
		return nil, fmt.Errorf("configure oauth providers: %w", err)
	}

	sessions := session.NewStore(db, cfg.Webserver.Session.ExpiryTime.Std())
	authService := auth.NewService(db, sessions, registry, notify.LogSender{}, cfg.Auth)

	var exchangeTimeout time.Duration
	for _, p := range cfg.OAuth {
		if p.ExchangeTimeout > 0 {
			exchangeTimeout = p.ExchangeTimeout.Std()
			break
		}
	}

	core := &handler.Core{
		DB:      db,
		Auth:    authService,
		Roles:   registry,
		Linking: linking.NewService(db, exchanger, registry, exchangeTimeout),
		MFA:     mfa.NewManager(db, cfg.Auth.TOTPIssuer),
	}

	log.Info().
		Str("engine", cfg.DB.Engine).
		Int("providers", len(cfg.OAuth)).
		Msg("daemon assembled")

	return &Daemon{
		cfg:        cfg,
		webService: web.New(cfg, core),
		sessions:   sessions,
	}, nil
}

// openDatabase opens the configured engine with its gorm driver.
func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	connection := dsn.Create(cfg)

	switch cfg.DB.Engine {
	case "postgres":
		return gorm.Open(gormpostgres.Open(connection), &gorm.Config{})
	case "sqlite":
		return gorm.Open(sqlite.Open(connection), &gorm.Config{})
	case "mysql":
		return gorm.Open(gormmysql.Open(connection), &gorm.Config{})
	default:
		return nil, fmt.Errorf("unsupported database engine %q", cfg.DB.Engine)
	}
}
