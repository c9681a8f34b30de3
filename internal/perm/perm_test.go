package perm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	valid := []string{
		"*",
		"users:read",
		"users:read:all",
		"users:read:self",
		"role-templates:create",
		"a:b:c",
	}

	for _, p := range valid {
		if err := Validate(p); err != nil {
			t.Errorf("Validate(%q) = %v, want nil", p, err)
		}
	}

	invalid := []string{
		"",
		"users",
		"users:",
		"Users:read",
		"users:read:all:extra",
		"users read",
		"users:read:ALL",
		"**",
		"users:*",
	}

	for _, p := range invalid {
		if err := Validate(p); err == nil {
			t.Errorf("Validate(%q) = nil, want error", p)
		}
	}
}

func TestCanWildcardSupersedesEverything(t *testing.T) {
	s := NewSet("users:read:all", Wildcard)

	for _, q := range []string{"users:read:all", "roles:delete:all", "anything:goes"} {
		assert.True(t, s.Can(q), "wildcard set must satisfy %q", q)
	}
}

func TestCanVerbatimOnly(t *testing.T) {
	s := NewSet("users:read:all")

	assert.True(t, s.Can("users:read:all"))
	assert.False(t, s.Can("users:read"))
	assert.False(t, s.Can("users:read:self"))
	assert.False(t, s.Can("roles:read:all"))
}

func TestVacuousCasesAreAsymmetric(t *testing.T) {
	s := NewSet("users:read:all")

	assert.True(t, s.CanAll(nil), "empty all-clause must pass")
	assert.False(t, s.CanAny(nil), "empty any-clause must fail")

	empty := NewSet()
	assert.True(t, empty.CanAll([]string{}))
	assert.False(t, empty.CanAny([]string{}))
}

func TestCanAllCanAny(t *testing.T) {
	s := NewSet("users:read:all", "roles:read:all")

	assert.True(t, s.CanAll([]string{"users:read:all", "roles:read:all"}))
	assert.False(t, s.CanAll([]string{"users:read:all", "roles:delete:all"}))
	assert.True(t, s.CanAny([]string{"roles:delete:all", "users:read:all"}))
	assert.False(t, s.CanAny([]string{"roles:delete:all", "users:delete:all"}))
}

func TestGuardComposition(t *testing.T) {
	held := NewSet("users:read:all")

	tests := []struct {
		name  string
		guard Guard
		want  bool
	}{
		{"single permission passes", Require("users:read:all"), true},
		{"single permission fails", Require("roles:read:all"), false},
		{"and clause fails on one missing", RequireAll("users:read:all", "roles:read:all"), false},
		{"or clause passes on one held", RequireAny("roles:read:all", "users:read:all"), true},
		{"both clauses must pass", Guard{All: []string{"users:read:all"}, Any: []string{"roles:read:all"}}, false},
		{"absent clauses allow", Guard{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.guard.Allows(held))
		})
	}
}

func TestSetSliceSortedAndDeduplicated(t *testing.T) {
	s := NewSet("users:read:all", "roles:read:all", "users:read:all")

	assert.Equal(t, []string{"roles:read:all", "users:read:all"}, s.Slice())
}
