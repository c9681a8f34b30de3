// Package dsn provides Data Source Name construction for the supported
// database engines.
package dsn

import (
	"fmt"

	"github.com/GoAuthCore/GoAuthCore/internal/config"
)

// Create builds the Data Source Name from the configuration, per engine.
func Create(cfg *config.Config) string {
	switch cfg.DB.Engine {
	case "postgres":
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d %s",
			cfg.DB.Host,
			cfg.DB.User,
			cfg.DB.Password,
			cfg.DB.Name,
			cfg.DB.Port,
			cfg.DB.Extras,
		)
	case "sqlite":
		return cfg.DB.Path
	default: // mysql
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
			cfg.DB.User,
			cfg.DB.Password,
			cfg.DB.Host,
			cfg.DB.Port,
			cfg.DB.Name,
			cfg.DB.Extras,
		)
	}
}
