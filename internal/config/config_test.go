package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestReadConfig(t *testing.T) {
	projectRoot, err := filepath.Abs("../../")
	if err != nil {
		t.Fatalf("failed to get project root: %v", err)
	}

	configPath := filepath.Join(projectRoot, "etc") + string(filepath.Separator)

	cfg, err := ReadConfig(configPath)
	if err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}

	if cfg.Title == "" {
		t.Error("Config.Title should not be empty")
	}

	if cfg.Webserver.Port == 0 {
		t.Error("Webserver.Port should not be 0")
	}

	if cfg.Webserver.URL == "" {
		t.Error("Webserver.URL should not be empty")
	}

	if cfg.DB.Engine == "" {
		t.Error("DB.Engine should not be empty")
	}

	if cfg.Webserver.Session.ExpiryTime.Std() != 24*time.Hour {
		t.Errorf("Session.ExpiryTime = %v, want 24h", cfg.Webserver.Session.ExpiryTime)
	}

	if cfg.Webserver.Session.CookieName != "session" {
		t.Errorf("Session.CookieName = %q, want session", cfg.Webserver.Session.CookieName)
	}
}

func TestReadConfigJSONOverride(t *testing.T) {
	projectRoot, err := filepath.Abs("../../")
	if err != nil {
		t.Fatalf("failed to get project root: %v", err)
	}

	configPath := filepath.Join(projectRoot, "etc") + string(filepath.Separator)

	os.Setenv(EnvConfigJSON, `{"Title":"Overridden"}`)
	defer os.Unsetenv(EnvConfigJSON)

	cfg, err := ReadConfig(configPath)
	if err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}

	if cfg.Title != "Overridden" {
		t.Errorf("Title = %q, want json override to win", cfg.Title)
	}
}

func TestValidateDefaults(t *testing.T) {
	c := Config{
		Webserver: Webserver{Port: 8080, URL: "http://localhost:8080"},
	}

	if err := validate(&c); err != nil {
		t.Fatalf("validate() error = %v", err)
	}

	if c.Webserver.ShutDownTime != 5 {
		t.Errorf("ShutDownTime default = %d, want 5", c.Webserver.ShutDownTime)
	}

	if c.Auth.MinPasswordLength != 10 {
		t.Errorf("MinPasswordLength default = %d, want 10", c.Auth.MinPasswordLength)
	}

	if c.Webserver.Session.SweepInterval.Std() != time.Hour {
		t.Errorf("SweepInterval default = %v, want 1h", c.Webserver.Session.SweepInterval)
	}
}

func TestValidateRejectsMissingPort(t *testing.T) {
	c := Config{Webserver: Webserver{URL: "http://localhost"}}

	if err := validate(&c); err == nil {
		t.Fatal("validate() should fail when webserver.port is 0")
	}
}

func TestValidateRejectsIncompleteOAuthProvider(t *testing.T) {
	c := Config{
		Webserver: Webserver{Port: 8080, URL: "http://localhost:8080"},
		OAuth:     []OAuthProvider{{Name: "google"}},
	}

	if err := validate(&c); err == nil {
		t.Fatal("validate() should fail for oauth provider without issuer/clientid")
	}
}
