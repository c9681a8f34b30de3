package config

import (
	"time"

	"github.com/GoAuthCore/GoAuthCore/internal/logger"
)

// Duration is a time.Duration that reads from "24h" style strings in both
// the toml file and the JSON environment override.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}

	*d = Duration(parsed)

	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Session settings.
type Session struct {
	// ExpiryTime is the session TTL from issuance.
	ExpiryTime Duration
	// SweepInterval is how often expired session rows are reclaimed.
	SweepInterval Duration
	// CookieName is the session cookie name.
	CookieName string
}

// Auth holds credential and activation settings.
type Auth struct {
	// ActivationCodeTTL is how long an emailed activation code stays usable.
	ActivationCodeTTL Duration
	// ResetCodeTTL is how long an emailed password-reset code stays usable.
	ResetCodeTTL Duration
	// MinPasswordLength is the minimum accepted password length.
	MinPasswordLength int
	// TOTPIssuer is the issuer name shown in authenticator apps.
	TOTPIssuer string
}

// OAuthProvider configures one external identity provider.
type OAuthProvider struct {
	// Name is the provider identifier used in links and routes ("google").
	Name string
	// IssuerURL is the OIDC discovery URL.
	IssuerURL string
	// ClientID is the OAuth2 client identifier.
	ClientID string
	// ClientSecret is the OAuth2 client secret.
	ClientSecret string
	// RedirectURL is the callback URL registered with the provider.
	RedirectURL string
	// Scopes defaults to openid, profile, email when empty.
	Scopes []string
	// ExchangeTimeout bounds the code-exchange round trip.
	ExchangeTimeout Duration
}

// DB holds the database configuration settings.
type DB struct {
	// Engine selects the gorm driver: "mysql", "postgres" or "sqlite".
	Engine   string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	// Path is the database file for the sqlite engine.
	Path string
	// Extras is appended to the DSN query string.
	Extras string
}

// Webserver implements webserver settings.
type Webserver struct {
	Domain       string // domain name for the webserver
	Port         int    // listening port for the webserver
	ShutDownTime int    // wait time for shutdown in seconds
	URL          string // base url for the webserver
	Session      Session
}

// Config overall data structure.
type Config struct {
	DevMode   bool // dev mode relaxes the Secure cookie flag
	Title     string
	DB        DB
	Log       logger.Log
	Webserver Webserver
	Auth      Auth
	OAuth     []OAuthProvider
}
