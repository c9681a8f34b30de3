// Package config handles input from etc/*.toml files.
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// EnvConfigJSON is the environment variable holding a JSON config override,
// merged over the toml file. Useful for container deployments.
const EnvConfigJSON = "GO_AUTH_CORE_CONFIG_JSON"

// ReadConfig from config file.
func ReadConfig(path string) (Config, error) {
	var (
		c   Config
		err error
	)

	if path == "" {
		path = "./etc/"
	}

	if _, err = toml.DecodeFile(path+"main.toml", &c); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	// override it from env
	if jsonEnv := os.Getenv(EnvConfigJSON); jsonEnv != "" {
		c, err = decodeAndMergeConfig(c, jsonEnv)
		if err != nil {
			return c, err
		}
	}

	return c, validate(&c)
}

func decodeAndMergeConfig(c Config, configAsJSON string) (Config, error) {
	err := json.Unmarshal([]byte(configAsJSON), &c)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to merge json config override")
	}

	return c, nil
}

// DumpConfig config as TOML String.
func DumpConfig(c Config) (string, error) {
	var buffer bytes.Buffer
	t := toml.NewEncoder(&buffer)

	if err := t.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// validate the minimal config settings the daemon needs, filling defaults
// where a zero value has an obvious one.
func validate(c *Config) error {
	invalidErrMessage := "invalid config"

	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = 5 // set default of 5 seconds
	}

	if c.Webserver.Session.ExpiryTime == 0 {
		c.Webserver.Session.ExpiryTime = Duration(24 * time.Hour)
	}

	if c.Webserver.Session.SweepInterval == 0 {
		c.Webserver.Session.SweepInterval = Duration(time.Hour)
	}

	if c.Webserver.Session.CookieName == "" {
		c.Webserver.Session.CookieName = "session"
	}

	if c.Auth.ActivationCodeTTL == 0 {
		c.Auth.ActivationCodeTTL = Duration(48 * time.Hour)
	}

	if c.Auth.ResetCodeTTL == 0 {
		c.Auth.ResetCodeTTL = Duration(time.Hour)
	}

	if c.Auth.MinPasswordLength == 0 {
		c.Auth.MinPasswordLength = 10
	}

	if c.Auth.TOTPIssuer == "" {
		c.Auth.TOTPIssuer = c.Title
	}

	for i := range c.OAuth {
		p := &c.OAuth[i]
		if p.Name == "" || p.IssuerURL == "" || p.ClientID == "" {
			return errors.Wrap(ErrIncompleteOAuthProvider, invalidErrMessage)
		}

		if p.ExchangeTimeout == 0 {
			p.ExchangeTimeout = Duration(10 * time.Second)
		}
	}

	return nil
}
