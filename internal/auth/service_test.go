package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/GoAuthCore/GoAuthCore/internal/apperr"
	"github.com/GoAuthCore/GoAuthCore/internal/config"
	"github.com/GoAuthCore/GoAuthCore/internal/db/models"
	"github.com/GoAuthCore/GoAuthCore/internal/perm"
	"github.com/GoAuthCore/GoAuthCore/internal/roles"
	"github.com/GoAuthCore/GoAuthCore/internal/session"
)

const (
	testPassword = "correct horse battery"
	testDevice   = "Mozilla/5.0 (X11; Linux x86_64) Firefox/121.0"
)

// captureSender records notifications so tests can read emitted codes.
type captureSender struct {
	mu   sync.Mutex
	sent []capturedMessage
}

type capturedMessage struct {
	template string
	to       string
	data     map[string]any
}

func (c *captureSender) Send(template, to string, data map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, capturedMessage{template: template, to: to, data: data})
}

func (c *captureSender) last(t *testing.T) capturedMessage {
	t.Helper()

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.sent) == 0 {
		t.Fatal("no notification was sent")
	}

	return c.sent[len(c.sent)-1]
}

func newTestService(t *testing.T) (*Service, *captureSender) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite in-memory db: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Role{}, &models.Session{}); err != nil {
		t.Fatalf("failed to migrate models: %v", err)
	}

	registry := roles.NewRegistry(db)
	require.NoError(t, registry.Seed(context.Background()))

	sender := &captureSender{}
	svc := NewService(db, session.NewStore(db, time.Hour), registry, sender, config.Auth{
		ActivationCodeTTL: config.Duration(48 * time.Hour),
		ResetCodeTTL:      config.Duration(time.Hour),
		MinPasswordLength: 10,
	})

	return svc, sender
}

func registerActivated(t *testing.T, svc *Service, sender *captureSender, email string) (*models.User, *models.Session) {
	t.Helper()

	ctx := context.Background()

	_, err := svc.Register(ctx, email, testPassword, "Test User")
	require.NoError(t, err)

	code := sender.last(t).data["code"].(string)

	user, sess, err := svc.Activate(ctx, email, code, Device{UserAgent: testDevice, IP: "203.0.113.1"})
	require.NoError(t, err)

	return user, sess
}

func TestRegisterCopiesRoleTemplateOnce(t *testing.T) {
	svc, sender := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Alice@Example.COM", testPassword, "Alice")
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", user.Email, "emails are stored lowercase")
	assert.Equal(t, roles.DefaultRoleSlug, user.Role)
	assert.False(t, user.IsVerified)
	assert.Contains(t, user.Permissions, "users:read:self")

	msg := sender.last(t)
	assert.Equal(t, "account-activation", msg.template)
	assert.Equal(t, "alice@example.com", msg.to)

	// editing the role afterwards must not change the existing user
	_, err = svc.registry.Update(ctx, roles.DefaultRoleSlug, roles.Patch{Permissions: []string{"users:read:self"}})
	require.NoError(t, err)

	reloaded, err := svc.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Contains(t, reloaded.Permissions, "users:update:self",
		"role permissions are a one-time copy, not a live reference")
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "not-an-email", testPassword, "x")
	assert.True(t, apperr.Is(err, apperr.CodeValidation))

	_, err = svc.Register(ctx, "short@example.com", "short", "x")
	assert.True(t, apperr.Is(err, apperr.CodeValidation))

	_, err = svc.Register(ctx, "dup@example.com", testPassword, "x")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "DUP@example.com", testPassword, "x")
	assert.True(t, apperr.Is(err, apperr.CodeConflict), "emails are unique case-insensitively")
}

func TestActivateAndLogin(t *testing.T) {
	svc, sender := newTestService(t)
	ctx := context.Background()

	user, sess := registerActivated(t, svc, sender, "bob@example.com")
	assert.True(t, user.IsVerified)
	assert.NotEmpty(t, sess.Token)

	_, loginSess, err := svc.Login(ctx, "bob@example.com", testPassword, "", Device{UserAgent: testDevice})
	require.NoError(t, err)
	assert.NotEmpty(t, loginSess.Token)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, sender := newTestService(t)
	ctx := context.Background()

	registerActivated(t, svc, sender, "carol@example.com")

	device := Device{UserAgent: testDevice}

	_, _, errUnknown := svc.Login(ctx, "nobody@example.com", testPassword, "", device)
	_, _, errWrongPw := svc.Login(ctx, "carol@example.com", "wrong password!", "", device)

	require.Error(t, errUnknown)
	require.Error(t, errWrongPw)
	assert.Equal(t, errUnknown.Error(), errWrongPw.Error(),
		"unknown account and wrong password must be indistinguishable")
}

func TestLoginRejectsUnverified(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "dave@example.com", testPassword, "Dave")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "dave@example.com", testPassword, "", Device{UserAgent: testDevice})
	assert.True(t, apperr.Is(err, apperr.CodeUnauthenticated))
}

func TestLoginRejectsSoftDeleted(t *testing.T) {
	svc, sender := newTestService(t)
	ctx := context.Background()

	user, _ := registerActivated(t, svc, sender, "erin@example.com")

	require.NoError(t, svc.SoftDelete(ctx, user.ID))

	_, _, err := svc.Login(ctx, "erin@example.com", testPassword, "", Device{UserAgent: testDevice})
	assert.True(t, apperr.Is(err, apperr.CodeUnauthenticated),
		"soft-deleted users never get new sessions even with a verifying credential")
}

func TestResolveActorReadsPermissionsFresh(t *testing.T) {
	svc, sender := newTestService(t)
	ctx := context.Background()

	user, sess := registerActivated(t, svc, sender, "frank@example.com")

	sessRecord, err := svc.Sessions().Get(ctx, sess.ID)
	require.NoError(t, err)

	actor, err := svc.ResolveActor(ctx, sessRecord.Token)
	require.NoError(t, err)
	assert.True(t, actor.Permissions.Can("users:read:self"))
	assert.False(t, actor.Permissions.Can("roles:read:all"))

	_, err = svc.GrantPermissions(ctx, user.ID, []string{"roles:read:all"})
	require.NoError(t, err)

	actor, err = svc.ResolveActor(ctx, sessRecord.Token)
	require.NoError(t, err)
	assert.True(t, actor.Permissions.Can("roles:read:all"),
		"a grant takes effect on the very next validated request")
}

func TestResolveActorRejectsDeletedOwner(t *testing.T) {
	svc, sender := newTestService(t)
	ctx := context.Background()

	user, sess := registerActivated(t, svc, sender, "grace@example.com")

	require.NoError(t, svc.SoftDelete(ctx, user.ID))

	_, err := svc.ResolveActor(ctx, sess.Token)
	assert.True(t, apperr.Is(err, apperr.CodeUnauthenticated))
}

func TestChangePasswordInvalidatesOtherSessions(t *testing.T) {
	svc, sender := newTestService(t)
	ctx := context.Background()

	user, keep := registerActivated(t, svc, sender, "heidi@example.com")

	_, other, err := svc.Login(ctx, "heidi@example.com", testPassword, "", Device{UserAgent: "curl/8.0"})
	require.NoError(t, err)

	newPassword := "battery staple horse"
	require.NoError(t, svc.ChangePassword(ctx, user.ID, testPassword, newPassword, keep.ID))

	_, err = svc.Sessions().Validate(ctx, other.Token)
	assert.True(t, apperr.Is(err, apperr.CodeUnauthenticated), "other devices are logged out")

	keepReloaded, err := svc.Sessions().Get(ctx, keep.ID)
	require.NoError(t, err)
	_, err = svc.Sessions().Validate(ctx, keepReloaded.Token)
	assert.NoError(t, err, "the acting session survives")

	_, _, err = svc.Login(ctx, "heidi@example.com", newPassword, "", Device{UserAgent: testDevice})
	assert.NoError(t, err)
}

func TestPasswordResetFlow(t *testing.T) {
	svc, sender := newTestService(t)
	ctx := context.Background()

	_, sess := registerActivated(t, svc, sender, "ivan@example.com")

	// unknown email: same outcome, nothing sent for it
	require.NoError(t, svc.RequestPasswordReset(ctx, "nobody@example.com"))

	require.NoError(t, svc.RequestPasswordReset(ctx, "ivan@example.com"))

	msg := sender.last(t)
	require.Equal(t, "password-reset", msg.template)
	code := msg.data["code"].(string)

	_, err := svc.Sessions().Validate(ctx, sess.Token)
	require.NoError(t, err, "requesting a reset does not revoke sessions")

	err = svc.ResetPassword(ctx, "ivan@example.com", "wrong-code", "a whole new password")
	assert.True(t, apperr.Is(err, apperr.CodeValidation))

	require.NoError(t, svc.ResetPassword(ctx, "ivan@example.com", code, "a whole new password"))

	_, err = svc.Sessions().Validate(ctx, sess.Token)
	assert.True(t, apperr.Is(err, apperr.CodeUnauthenticated), "a completed reset revokes every session")

	_, _, err = svc.Login(ctx, "ivan@example.com", "a whole new password", "", Device{UserAgent: testDevice})
	assert.NoError(t, err)

	// the code is single use
	err = svc.ResetPassword(ctx, "ivan@example.com", code, "yet another password")
	assert.True(t, apperr.Is(err, apperr.CodeValidation))
}

func TestPermissionMutation(t *testing.T) {
	svc, sender := newTestService(t)
	ctx := context.Background()

	user, _ := registerActivated(t, svc, sender, "judy@example.com")

	_, err := svc.GrantPermissions(ctx, user.ID, []string{"not valid"})
	assert.True(t, apperr.Is(err, apperr.CodeValidation))

	set, err := svc.ReplacePermissions(ctx, user.ID, []string{"users:read:all"})
	require.NoError(t, err)
	assert.Equal(t, []string{"users:read:all"}, set)

	set, err = svc.GrantPermissions(ctx, user.ID, []string{"roles:read:all", "users:read:all"})
	require.NoError(t, err)
	assert.Equal(t, []string{"roles:read:all", "users:read:all"}, set)

	set, err = svc.RevokePermissions(ctx, user.ID, []string{"roles:read:all"})
	require.NoError(t, err)
	assert.Equal(t, []string{"users:read:all"}, set)
}

func TestRevokeWithWildcardPresentIsAuthorizationNoOp(t *testing.T) {
	svc, sender := newTestService(t)
	ctx := context.Background()

	user, _ := registerActivated(t, svc, sender, "mallory@example.com")

	_, err := svc.ReplacePermissions(ctx, user.ID, []string{"*", "users:read:all"})
	require.NoError(t, err)

	set, err := svc.RevokePermissions(ctx, user.ID, []string{"users:read:all"})
	require.NoError(t, err)

	// the concrete entry is gone but the wildcard still satisfies the check
	assert.Equal(t, []string{"*"}, set)

	perms, err := svc.GetPermissions(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, perm.NewSet(perms...).Can("users:read:all"),
		"the surviving wildcard still satisfies the revoked permission")
}
