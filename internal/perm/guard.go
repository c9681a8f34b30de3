package perm

// Guard is the single access rule shared by every call site that protects a
// route or an action: all permissions in All must be held, and at least one
// in Any must be held. An empty clause does not affect the result, so a zero
// Guard allows any authenticated actor.
type Guard struct {
	All []string
	Any []string
}

// Require builds a guard for a single permission.
func Require(permission string) Guard {
	return Guard{All: []string{permission}}
}

// RequireAll builds a guard that demands every given permission.
func RequireAll(permissions ...string) Guard {
	return Guard{All: permissions}
}

// RequireAny builds a guard that demands at least one of the given
// permissions.
func RequireAny(permissions ...string) Guard {
	return Guard{Any: permissions}
}

// Allows evaluates the guard against a resolved permission set. Each present
// clause must pass on its own.
func (g Guard) Allows(held Set) bool {
	if len(g.All) > 0 && !held.CanAll(g.All) {
		return false
	}

	if len(g.Any) > 0 && !held.CanAny(g.Any) {
		return false
	}

	return true
}
