package roles

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/GoAuthCore/GoAuthCore/internal/apperr"
	"github.com/GoAuthCore/GoAuthCore/internal/db/models"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite in-memory db: %v", err)
	}

	if err := db.AutoMigrate(&models.Role{}); err != nil {
		t.Fatalf("failed to migrate role model: %v", err)
	}

	return NewRegistry(db)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "content-editor", Slugify("Content Editor"))
	assert.Equal(t, "content-editor", Slugify(Slugify("Content Editor")), "slugify must be idempotent")
	assert.Equal(t, "a-b-c", Slugify("  A, b;  C "))
}

func TestCreateAndGet(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	role, err := r.Create(ctx, "Content Editor", "edits content", []string{"posts:update:all", "posts:read:all"})
	require.NoError(t, err)
	assert.Equal(t, "content-editor", role.Slug)
	assert.Equal(t, []string{"posts:read:all", "posts:update:all"}, []string(role.Permissions))

	bySlug, err := r.Get(ctx, "content-editor")
	require.NoError(t, err)
	assert.Equal(t, role.ID, bySlug.ID)

	byID, err := r.Get(ctx, role.ID)
	require.NoError(t, err)
	assert.Equal(t, role.Slug, byID.Slug)
}

func TestCreateValidation(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	_, err := r.Create(ctx, "", "", nil)
	assert.True(t, apperr.Is(err, apperr.CodeValidation), "empty name: got %v", err)

	_, err = r.Create(ctx, "Bad Perms", "", []string{"not a permission"})
	assert.True(t, apperr.Is(err, apperr.CodeValidation), "bad grammar: got %v", err)
}

func TestCreateDuplicateSlugConflicts(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	_, err := r.Create(ctx, "Content Editor", "", nil)
	require.NoError(t, err)

	_, err = r.Create(ctx, "content editor", "", nil)
	assert.True(t, apperr.Is(err, apperr.CodeConflict), "duplicate slug: got %v", err)
}

func TestProtectedRoleInvariants(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Seed(ctx))

	// renaming the protected role fails
	newName := "Renamed"
	_, err := r.Update(ctx, DefaultRoleSlug, Patch{Name: &newName})
	assert.True(t, apperr.Is(err, apperr.CodeInvalidOperation), "rename protected: got %v", err)

	// description stays editable
	desc := "x"
	updated, err := r.Update(ctx, DefaultRoleSlug, Patch{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "x", updated.Description)

	// permissions stay editable
	updated, err = r.Update(ctx, DefaultRoleSlug, Patch{Permissions: []string{"users:read:self"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"users:read:self"}, []string(updated.Permissions))

	// deleting the protected role fails
	err = r.Delete(ctx, DefaultRoleSlug)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidOperation), "delete protected: got %v", err)
}

func TestDeleteUnprotectedRole(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	_, err := r.Create(ctx, "Temporary", "", nil)
	require.NoError(t, err)

	require.NoError(t, r.Delete(ctx, "temporary"))

	_, err = r.Get(ctx, "temporary")
	assert.True(t, apperr.Is(err, apperr.CodeNotFound), "lookup after delete: got %v", err)

	err = r.Delete(ctx, "temporary")
	assert.True(t, apperr.Is(err, apperr.CodeNotFound), "second delete: got %v", err)
}

func TestSeedIsIdempotent(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Seed(ctx))
	require.NoError(t, r.Seed(ctx))

	userRole, err := r.Get(ctx, DefaultRoleSlug)
	require.NoError(t, err)
	assert.True(t, userRole.IsProtected)
	assert.True(t, userRole.IsSystem)
	assert.NotEmpty(t, userRole.Permissions)

	adminRole, err := r.Get(ctx, AdminRoleSlug)
	require.NoError(t, err)
	assert.Equal(t, []string{"*"}, []string(adminRole.Permissions))

	all, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
