package daemon

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoAuthCore/GoAuthCore/internal/config"
	"github.com/GoAuthCore/GoAuthCore/internal/db/models"
	"github.com/GoAuthCore/GoAuthCore/internal/perm"
	"github.com/GoAuthCore/GoAuthCore/internal/roles"
)

// seed creates the protected roles and, on an empty user table, the first
// administrator account. The bootstrap password must be changed after the
// first login.
func seed(_ *config.Config, db *gorm.DB, registry *roles.Registry) error {
	ctx := context.Background()

	if err := registry.Seed(ctx); err != nil {
		return err
	}

	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return nil
	}

	admin := models.User{
		ID:          uuid.NewString(),
		Email:       "admin@localhost",
		Password:    models.HashPassword("changeme"),
		DisplayName: "Administrator",
		Role:        roles.AdminRoleSlug,
		Permissions: models.StringList{perm.Wildcard},
		IsVerified:  true,
	}

	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	log.Warn().
		Str("email", admin.Email).
		Msg("bootstrap administrator created with the default password, change it now")

	return nil
}
