// Package perm implements permission-string validation and the pure
// resolution rules used by every guard in the system. A permission is a
// "resource:action" or "resource:action:scope" token, or the wildcard "*"
// which satisfies every check. Nothing here touches storage or the network;
// callers pass the actor's resolved permission set in.
package perm

import (
	"regexp"
	"sort"

	"github.com/GoAuthCore/GoAuthCore/internal/apperr"
)

// Wildcard is the permission string that satisfies every check.
const Wildcard = "*"

// grammar accepts resource:action, resource:action:scope, or the wildcard.
var grammar = regexp.MustCompile(`^([a-z-]+:[a-z-]+(:[a-z-]+)?|\*)$`)

// Validate checks a single permission string against the grammar.
func Validate(permission string) error {
	if !grammar.MatchString(permission) {
		return apperr.Validation("invalid permission string %q", permission)
	}

	return nil
}

// ValidateAll checks every permission string in the list, failing on the
// first one that does not match the grammar.
func ValidateAll(permissions []string) error {
	for _, p := range permissions {
		if err := Validate(p); err != nil {
			return err
		}
	}

	return nil
}

// Set is an order-irrelevant collection of permission strings.
type Set map[string]struct{}

// NewSet builds a Set from the given permission strings, deduplicating.
func NewSet(permissions ...string) Set {
	s := make(Set, len(permissions))
	for _, p := range permissions {
		s[p] = struct{}{}
	}

	return s
}

// Slice returns the set's members sorted, for stable persistence and output.
func (s Set) Slice() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}

	sort.Strings(out)

	return out
}

// Has reports verbatim membership, without wildcard semantics.
func (s Set) Has(permission string) bool {
	_, ok := s[permission]
	return ok
}

// Can reports whether the set satisfies the required permission: verbatim
// membership or a held wildcard.
func (s Set) Can(required string) bool {
	if s.Has(Wildcard) {
		return true
	}

	return s.Has(required)
}

// CanAll reports whether every permission in the list is satisfied.
// An empty list trivially succeeds.
func (s Set) CanAll(required []string) bool {
	for _, p := range required {
		if !s.Can(p) {
			return false
		}
	}

	return true
}

// CanAny reports whether at least one permission in the list is satisfied.
// An empty list fails: a vacuous "any" is false, unlike the vacuous "all".
func (s Set) CanAny(required []string) bool {
	for _, p := range required {
		if s.Can(p) {
			return true
		}
	}

	return false
}
