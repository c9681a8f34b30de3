// Package oauth implements the external OAuth-exchange collaborator: it
// turns an authorization code from a configured provider into a verified
// external identity. No provider access tokens are retained; every profile
// sync is a fresh, user-consented authorization round trip.
package oauth

import "context"

// Identity is the verified result of one authorization-code exchange.
type Identity struct {
	// SubjectID is the provider's stable identifier for this user.
	SubjectID string
	// Email is the address asserted by the provider.
	Email string
	// Name is the display name asserted by the provider.
	Name string
	// AvatarURL is the profile picture asserted by the provider.
	AvatarURL string
}

// Exchanger exchanges authorization codes against configured providers.
// Callers bound every call with a timeout context; on timeout the operation
// fails visibly and is never retried here.
type Exchanger interface {
	// Providers lists the configured provider names.
	Providers() []string

	// AuthCodeURL returns the provider's authorization URL carrying the
	// given state token.
	AuthCodeURL(provider, state string) (string, error)

	// ExchangeCode redeems an authorization code for the identity it
	// asserts. Fails with an OAuth error on an invalid or expired code.
	ExchangeCode(ctx context.Context, provider, code string) (*Identity, error)
}
