package linking

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/GoAuthCore/GoAuthCore/internal/apperr"
	"github.com/GoAuthCore/GoAuthCore/internal/db/models"
	"github.com/GoAuthCore/GoAuthCore/internal/oauth"
	"github.com/GoAuthCore/GoAuthCore/internal/roles"
)

// fakeExchanger maps authorization codes to identities, per provider.
type fakeExchanger struct {
	identities map[string]*oauth.Identity // keyed provider "/" code
}

func (f *fakeExchanger) Providers() []string {
	return []string{"google", "github"}
}

func (f *fakeExchanger) AuthCodeURL(provider, state string) (string, error) {
	if provider != "google" && provider != "github" {
		return "", apperr.NotFound("oauth provider %q is not configured", provider)
	}

	return fmt.Sprintf("https://%s.example.com/authorize?state=%s", provider, url.QueryEscape(state)), nil
}

func (f *fakeExchanger) ExchangeCode(_ context.Context, provider, code string) (*oauth.Identity, error) {
	identity, ok := f.identities[provider+"/"+code]
	if !ok {
		return nil, apperr.OAuth("code exchange with %q failed", provider)
	}

	return identity, nil
}

func (f *fakeExchanger) stub(provider, code string, identity *oauth.Identity) {
	if f.identities == nil {
		f.identities = make(map[string]*oauth.Identity)
	}

	f.identities[provider+"/"+code] = identity
}

func newTestService(t *testing.T) (*Service, *fakeExchanger, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite in-memory db: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Role{}, &models.LinkedProvider{}); err != nil {
		t.Fatalf("failed to migrate models: %v", err)
	}

	registry := roles.NewRegistry(db)
	require.NoError(t, registry.Seed(context.Background()))

	exchanger := &fakeExchanger{}

	return NewService(db, exchanger, registry, time.Second), exchanger, db
}

// beginAndState starts a round trip and extracts the state token from the
// returned authorization URL.
func beginAndState(t *testing.T, svc *Service, provider string, intent oauth.Intent, userID string) string {
	t.Helper()

	authURL, err := svc.BeginAuth(provider, intent, userID)
	require.NoError(t, err)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)

	state := parsed.Query().Get("state")
	require.NotEmpty(t, state)

	return state
}

func createPasswordUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	user := models.User{
		ID:          uuid.NewString(),
		Email:       email,
		Password:    "argon2id-hash-placeholder",
		Role:        roles.DefaultRoleSlug,
		Permissions: models.StringList{"users:read:self"},
		IsVerified:  true,
	}
	require.NoError(t, db.Create(&user).Error)

	return &user
}

func linkProvider(t *testing.T, svc *Service, ex *fakeExchanger, userID, provider, subject string) {
	t.Helper()

	code := "code-" + provider + "-" + subject
	ex.stub(provider, code, &oauth.Identity{SubjectID: subject, Email: subject + "@" + provider + ".test"})

	state := beginAndState(t, svc, provider, oauth.IntentLink, userID)

	_, err := svc.Link(context.Background(), userID, provider, code, state)
	require.NoError(t, err)
}

func TestFirstLinkBecomesPrimary(t *testing.T) {
	svc, ex, db := newTestService(t)
	ctx := context.Background()

	user := createPasswordUser(t, db, "alice@example.com")

	linkProvider(t, svc, ex, user.ID, "google", "g-sub-1")

	reloaded, err := svc.userForUpdate(db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "google", reloaded.PrimaryProvider)

	linkProvider(t, svc, ex, user.ID, "github", "gh-sub-1")

	reloaded, err = svc.userForUpdate(db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "google", reloaded.PrimaryProvider, "a later link does not steal primary")

	links, err := svc.ListLinked(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, links, 2)
}

func TestLinkForeignSubjectConflicts(t *testing.T) {
	svc, ex, db := newTestService(t)
	ctx := context.Background()

	alice := createPasswordUser(t, db, "alice@example.com")
	bob := createPasswordUser(t, db, "bob@example.com")

	linkProvider(t, svc, ex, alice.ID, "google", "shared-subject")

	ex.stub("google", "bob-code", &oauth.Identity{SubjectID: "shared-subject", Email: "bob@gmail.test"})
	state := beginAndState(t, svc, "google", oauth.IntentLink, bob.ID)

	_, err := svc.Link(ctx, bob.ID, "google", "bob-code", state)
	assert.True(t, apperr.Is(err, apperr.CodeConflict),
		"one provider identity must never belong to two users: %v", err)
}

func TestLinkSameProviderTwiceConflicts(t *testing.T) {
	svc, ex, db := newTestService(t)
	ctx := context.Background()

	user := createPasswordUser(t, db, "alice@example.com")
	linkProvider(t, svc, ex, user.ID, "google", "g-sub-1")

	ex.stub("google", "again", &oauth.Identity{SubjectID: "g-sub-other"})
	state := beginAndState(t, svc, "google", oauth.IntentLink, user.ID)

	_, err := svc.Link(ctx, user.ID, "google", "again", state)
	assert.True(t, apperr.Is(err, apperr.CodeConflict))
}

func TestLinkStateMismatch(t *testing.T) {
	svc, ex, db := newTestService(t)
	ctx := context.Background()

	user := createPasswordUser(t, db, "alice@example.com")
	ex.stub("google", "a-code", &oauth.Identity{SubjectID: "g-sub-1"})

	_, err := svc.Link(ctx, user.ID, "google", "a-code", "forged-state")
	assert.True(t, apperr.Is(err, apperr.CodeOAuth))

	// a state issued for another user is just as invalid
	state := beginAndState(t, svc, "google", oauth.IntentLink, "someone-else")
	_, err = svc.Link(ctx, user.ID, "google", "a-code", state)
	assert.True(t, apperr.Is(err, apperr.CodeOAuth))
}

func TestUnlinkLastMethodWithoutPassword(t *testing.T) {
	svc, ex, _ := newTestService(t)
	ctx := context.Background()

	// OAuth-only user via first login
	ex.stub("google", "first-login", &oauth.Identity{
		SubjectID: "g-new", Email: "new@example.com", Name: "New User",
	})
	state := beginAndState(t, svc, "google", oauth.IntentLogin, "")

	user, err := svc.CompleteLogin(ctx, "google", "first-login", state)
	require.NoError(t, err)
	require.False(t, user.HasPassword())
	require.Equal(t, "google", user.PrimaryProvider)

	err = svc.Unlink(ctx, user.ID, "google")
	assert.True(t, apperr.Is(err, apperr.CodeInvalidOperation),
		"unlinking the only auth method must be rejected: %v", err)
}

func TestConcurrentUnlinksKeepOneMethod(t *testing.T) {
	svc, ex, _ := newTestService(t)
	ctx := context.Background()

	// OAuth-only user with two providers; either unlink alone is fine,
	// but both together would strand the account
	ex.stub("google", "first-login", &oauth.Identity{
		SubjectID: "g-race", Email: "race@example.com", Name: "Race User",
	})
	state := beginAndState(t, svc, "google", oauth.IntentLogin, "")

	user, err := svc.CompleteLogin(ctx, "google", "first-login", state)
	require.NoError(t, err)
	require.False(t, user.HasPassword())

	linkProvider(t, svc, ex, user.ID, "github", "gh-race")

	errs := make([]error, 2)

	var wg sync.WaitGroup
	for i, provider := range []string{"google", "github"} {
		wg.Add(1)

		go func(i int, provider string) {
			defer wg.Done()
			errs[i] = svc.Unlink(ctx, user.ID, provider)
		}(i, provider)
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			assert.True(t, apperr.Is(err, apperr.CodeInvalidOperation),
				"the losing unlink must be rejected as the last method: %v", err)
			failed++
		}
	}
	assert.Equal(t, 1, failed, "exactly one of the racing unlinks must lose")

	links, err := svc.ListLinked(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, links, 1, "one authentication method must survive")
}

func TestUnlinkReassignsPrimaryToEarliestLinked(t *testing.T) {
	svc, ex, db := newTestService(t)
	ctx := context.Background()

	user := createPasswordUser(t, db, "alice@example.com")

	svc.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	linkProvider(t, svc, ex, user.ID, "google", "g-sub-1")

	svc.now = func() time.Time { return time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC) }
	linkProvider(t, svc, ex, user.ID, "github", "gh-sub-1")

	require.NoError(t, svc.Unlink(ctx, user.ID, "google"))

	reloaded, err := svc.userForUpdate(db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "github", reloaded.PrimaryProvider,
		"primary moves to the earliest-linked survivor")

	links, err := svc.ListLinked(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, links, 1)
}

func TestUnlinkLastProviderWithPasswordClearsPrimary(t *testing.T) {
	svc, ex, db := newTestService(t)
	ctx := context.Background()

	user := createPasswordUser(t, db, "alice@example.com")
	linkProvider(t, svc, ex, user.ID, "google", "g-sub-1")

	require.NoError(t, svc.Unlink(ctx, user.ID, "google"))

	reloaded, err := svc.userForUpdate(db, user.ID)
	require.NoError(t, err)
	assert.Empty(t, reloaded.PrimaryProvider, "password-only is a valid end state")

	links, err := svc.ListLinked(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestUnlinkNotLinked(t *testing.T) {
	svc, _, db := newTestService(t)

	user := createPasswordUser(t, db, "alice@example.com")

	err := svc.Unlink(context.Background(), user.ID, "github")
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestSetPrimary(t *testing.T) {
	svc, ex, db := newTestService(t)
	ctx := context.Background()

	user := createPasswordUser(t, db, "alice@example.com")
	linkProvider(t, svc, ex, user.ID, "google", "g-sub-1")
	linkProvider(t, svc, ex, user.ID, "github", "gh-sub-1")

	require.NoError(t, svc.SetPrimary(ctx, user.ID, "github"))

	reloaded, err := svc.userForUpdate(db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "github", reloaded.PrimaryProvider)

	err = svc.SetPrimary(ctx, user.ID, "gitlab")
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestCompleteLoginExistingLink(t *testing.T) {
	svc, ex, db := newTestService(t)
	ctx := context.Background()

	user := createPasswordUser(t, db, "alice@example.com")
	linkProvider(t, svc, ex, user.ID, "google", "g-sub-1")

	ex.stub("google", "login-code", &oauth.Identity{SubjectID: "g-sub-1"})
	state := beginAndState(t, svc, "google", oauth.IntentLogin, "")

	got, err := svc.CompleteLogin(ctx, "google", "login-code", state)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestCompleteLoginEmailCollisionConflicts(t *testing.T) {
	svc, ex, db := newTestService(t)
	ctx := context.Background()

	createPasswordUser(t, db, "alice@example.com")

	ex.stub("google", "collide", &oauth.Identity{SubjectID: "g-unseen", Email: "alice@example.com"})
	state := beginAndState(t, svc, "google", oauth.IntentLogin, "")

	_, err := svc.CompleteLogin(ctx, "google", "collide", state)
	assert.True(t, apperr.Is(err, apperr.CodeConflict),
		"an unlinked subject must not hijack an existing email: %v", err)
}

func TestInitiateProfileSyncWithoutPrimaryIsAdvisory(t *testing.T) {
	svc, _, db := newTestService(t)

	user := createPasswordUser(t, db, "alice@example.com")

	plan, err := svc.InitiateProfileSync(context.Background(), user.ID)
	require.NoError(t, err, "no-primary is an advisory outcome, not an error")
	assert.False(t, plan.CanSync)
	assert.NotEmpty(t, plan.Reason)
	assert.Empty(t, plan.AuthorizationURL)
}

func TestProfileSyncRoundTrip(t *testing.T) {
	svc, ex, db := newTestService(t)
	ctx := context.Background()

	user := createPasswordUser(t, db, "alice@example.com")
	linkProvider(t, svc, ex, user.ID, "google", "g-sub-1")

	plan, err := svc.InitiateProfileSync(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, plan.CanSync)
	require.Equal(t, "google", plan.Provider)

	parsed, err := url.Parse(plan.AuthorizationURL)
	require.NoError(t, err)
	state := parsed.Query().Get("state")

	ex.stub("google", "sync-code", &oauth.Identity{
		SubjectID: "g-sub-1",
		Email:     "alice@gmail.test",
		Name:      "Alice Fresh",
		AvatarURL: "https://avatars.test/alice.png",
	})

	synced, err := svc.CompleteProfileSync(ctx, user.ID, "sync-code", state)
	require.NoError(t, err)
	assert.Equal(t, "Alice Fresh", synced.DisplayName)
	assert.Equal(t, "https://avatars.test/alice.png", synced.AvatarURL)
	assert.Equal(t, "google", synced.LastSyncedProvider)
	require.NotNil(t, synced.ProfileSyncedAt)
}

func TestProfileSyncRejectsDifferentSubject(t *testing.T) {
	svc, ex, db := newTestService(t)
	ctx := context.Background()

	user := createPasswordUser(t, db, "alice@example.com")
	linkProvider(t, svc, ex, user.ID, "google", "g-sub-1")

	plan, err := svc.InitiateProfileSync(ctx, user.ID)
	require.NoError(t, err)

	parsed, err := url.Parse(plan.AuthorizationURL)
	require.NoError(t, err)
	state := parsed.Query().Get("state")

	ex.stub("google", "other-account", &oauth.Identity{SubjectID: "g-someone-else"})

	_, err = svc.CompleteProfileSync(ctx, user.ID, "other-account", state)
	assert.True(t, apperr.Is(err, apperr.CodeOAuth))
}
