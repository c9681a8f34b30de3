// Package roles implements the role registry: named permission templates
// with protected-role invariants. A role's permission list is copied into a
// user once at creation time; deleting or editing a role never changes the
// authority of existing users.
package roles

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"github.com/GoAuthCore/GoAuthCore/internal/apperr"
	"github.com/GoAuthCore/GoAuthCore/internal/db/models"
	"github.com/GoAuthCore/GoAuthCore/internal/perm"
)

const (
	// DefaultRoleSlug is the canonical protected role granted to every
	// fresh registration.
	DefaultRoleSlug = "user"

	// AdminRoleSlug is the bootstrap administrator role.
	AdminRoleSlug = "admin"
)

// Registry manages role templates.
type Registry struct {
	db *gorm.DB
}

// NewRegistry creates a role registry backed by the given database.
func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// Slugify derives the role slug from its name: lowercase, punctuation and
// whitespace collapsed to hyphens. Idempotent.
func Slugify(name string) string {
	return slug.Make(name)
}

// Patch describes a partial role update. Nil fields are left unchanged.
type Patch struct {
	Name        *string
	Description *string
	Permissions []string
}

// Create validates and stores a new role template.
func (r *Registry) Create(ctx context.Context, name, description string, permissions []string) (*models.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("role name must not be empty")
	}

	roleSlug := Slugify(name)
	if roleSlug == "" {
		return nil, apperr.Validation("role name %q does not produce a usable slug", name)
	}

	if err := perm.ValidateAll(permissions); err != nil {
		return nil, err
	}

	role := models.Role{
		ID:          uuid.NewString(),
		Name:        name,
		Slug:        roleSlug,
		Description: description,
		Permissions: perm.NewSet(permissions...).Slice(),
	}

	var existing models.Role

	err := r.db.WithContext(ctx).Where("slug = ? OR name = ?", roleSlug, name).First(&existing).Error
	if err == nil {
		return nil, apperr.Conflict("role %q already exists", roleSlug)
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Create(&role).Error; err != nil {
		// the unique index is the source of truth for races
		return nil, apperr.Conflict("role %q already exists", roleSlug).WithCause(err)
	}

	return &role, nil
}

// Get retrieves a role by slug or ID.
func (r *Registry) Get(ctx context.Context, slugOrID string) (*models.Role, error) {
	var role models.Role

	err := r.db.WithContext(ctx).Where("slug = ? OR id = ?", slugOrID, slugOrID).First(&role).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("role %q not found", slugOrID)
	}

	if err != nil {
		return nil, err
	}

	return &role, nil
}

// List returns all roles ordered by slug.
func (r *Registry) List(ctx context.Context) ([]models.Role, error) {
	var out []models.Role

	if err := r.db.WithContext(ctx).Order("slug").Find(&out).Error; err != nil {
		return nil, err
	}

	return out, nil
}

// Update applies a patch to a role. Renaming (and therefore re-slugging) a
// protected role is rejected; description and permissions stay editable.
func (r *Registry) Update(ctx context.Context, slugOrID string, patch Patch) (*models.Role, error) {
	role, err := r.Get(ctx, slugOrID)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		if role.IsProtected {
			return nil, apperr.InvalidOperation("role %q is protected, name and slug are immutable", role.Slug)
		}

		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperr.Validation("role name must not be empty")
		}

		role.Name = name
		role.Slug = Slugify(name)
	}

	if patch.Description != nil {
		role.Description = *patch.Description
	}

	if patch.Permissions != nil {
		if err := perm.ValidateAll(patch.Permissions); err != nil {
			return nil, err
		}

		role.Permissions = perm.NewSet(patch.Permissions...).Slice()
	}

	if err := r.db.WithContext(ctx).Save(role).Error; err != nil {
		return nil, apperr.Conflict("role %q already exists", role.Slug).WithCause(err)
	}

	return role, nil
}

// Delete physically removes a role. Protected roles cannot be deleted.
// Deletion is safe for users referencing the role: their permission lists
// were copied at creation time and stay intact.
func (r *Registry) Delete(ctx context.Context, slugOrID string) error {
	role, err := r.Get(ctx, slugOrID)
	if err != nil {
		return err
	}

	if role.IsProtected {
		return apperr.InvalidOperation("role %q is protected and cannot be deleted", role.Slug)
	}

	return r.db.WithContext(ctx).Delete(&models.Role{}, "id = ?", role.ID).Error
}

// Seed ensures the system roles exist: the protected "user" role that every
// fresh registration copies its permissions from, and the "admin" role
// holding the wildcard. Idempotent.
func (r *Registry) Seed(ctx context.Context) error {
	seedRoles := []models.Role{
		{
			ID:          uuid.NewString(),
			Name:        "User",
			Slug:        DefaultRoleSlug,
			Description: "Default role for registered users",
			Permissions: models.StringList{
				"sessions:delete:self",
				"sessions:read:self",
				"users:read:self",
				"users:update:self",
			},
			IsSystem:    true,
			IsProtected: true,
		},
		{
			ID:          uuid.NewString(),
			Name:        "Admin",
			Slug:        AdminRoleSlug,
			Description: "Full access to everything",
			Permissions: models.StringList{perm.Wildcard},
			IsSystem:    true,
			IsProtected: true,
		},
	}

	for _, role := range seedRoles {
		var existing models.Role

		err := r.db.WithContext(ctx).Where("slug = ?", role.Slug).First(&existing).Error
		if err == nil {
			continue
		}

		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := r.db.WithContext(ctx).Create(&role).Error; err != nil {
			return err
		}
	}

	return nil
}
