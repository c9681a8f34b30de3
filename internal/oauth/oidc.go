package oauth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/GoAuthCore/GoAuthCore/internal/apperr"
	"github.com/GoAuthCore/GoAuthCore/internal/config"
)

// oidcProvider is one configured OIDC provider with its verifier.
type oidcProvider struct {
	name     string
	verifier *oidc.IDTokenVerifier
	oauth2   oauth2.Config
}

// OIDCExchanger implements Exchanger over OpenID Connect discovery for every
// configured provider.
type OIDCExchanger struct {
	providers map[string]*oidcProvider
	order     []string
}

// NewOIDCExchanger runs discovery for each configured provider. A provider
// that fails discovery fails construction; a half-configured identity
// surface should not boot.
func NewOIDCExchanger(ctx context.Context, configs []config.OAuthProvider) (*OIDCExchanger, error) {
	e := &OIDCExchanger{providers: make(map[string]*oidcProvider, len(configs))}

	for _, cfg := range configs {
		provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
		if err != nil {
			return nil, fmt.Errorf("oidc discovery for %q failed: %w", cfg.Name, err)
		}

		scopes := cfg.Scopes
		if len(scopes) == 0 {
			scopes = []string{oidc.ScopeOpenID, "profile", "email"}
		}

		e.providers[cfg.Name] = &oidcProvider{
			name:     cfg.Name,
			verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
			oauth2: oauth2.Config{
				ClientID:     cfg.ClientID,
				ClientSecret: cfg.ClientSecret,
				RedirectURL:  cfg.RedirectURL,
				Endpoint:     provider.Endpoint(),
				Scopes:       scopes,
			},
		}
		e.order = append(e.order, cfg.Name)
	}

	return e, nil
}

// Providers lists the configured provider names in config order.
func (e *OIDCExchanger) Providers() []string {
	out := make([]string, len(e.order))
	copy(out, e.order)

	return out
}

// AuthCodeURL returns the provider's authorization URL carrying the state.
func (e *OIDCExchanger) AuthCodeURL(provider, state string) (string, error) {
	p, ok := e.providers[provider]
	if !ok {
		return "", apperr.NotFound("oauth provider %q is not configured", provider)
	}

	return p.oauth2.AuthCodeURL(state), nil
}

// ExchangeCode redeems the code, verifies the ID token, and extracts the
// asserted identity.
func (e *OIDCExchanger) ExchangeCode(ctx context.Context, provider, code string) (*Identity, error) {
	p, ok := e.providers[provider]
	if !ok {
		return nil, apperr.NotFound("oauth provider %q is not configured", provider)
	}

	token, err := p.oauth2.Exchange(ctx, code)
	if err != nil {
		return nil, apperr.OAuth("code exchange with %q failed", provider).WithCause(err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, apperr.OAuth("no id_token in token response from %q", provider)
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, apperr.OAuth("id token from %q does not verify", provider).WithCause(err)
	}

	var claims struct {
		Sub     string `json:"sub"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}

	if err := idToken.Claims(&claims); err != nil {
		return nil, apperr.OAuth("claims from %q do not parse", provider).WithCause(err)
	}

	if claims.Sub == "" {
		return nil, apperr.OAuth("provider %q asserted no subject", provider)
	}

	return &Identity{
		SubjectID: claims.Sub,
		Email:     claims.Email,
		Name:      claims.Name,
		AvatarURL: claims.Picture,
	}, nil
}
