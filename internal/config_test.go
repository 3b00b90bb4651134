package internal

import (
	"strings"
	"testing"
	"time"

	"github.com/starford/clubqa/internal/models"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestAuthConfig_JWTModeRequiresSecret(t *testing.T) {
	cfg := AuthConfig{Mode: "jwt"}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "jwt_secret is empty") {
		t.Fatalf("jwt mode without secret: err = %v", err)
	}
	cfg.JWTSecret = "s3cret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("jwt mode with secret should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("jwt mode does not use the shared token gate")
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if cfg.Redis.Enabled() {
		t.Error("redis should be off by default")
	}
	c, err := cfg.Catalog.Build()
	if err != nil {
		t.Fatal(err)
	}
	if len(c.List()) != 10 {
		t.Errorf("default catalog size = %d, want 10", len(c.List()))
	}
}

func TestSearchConfig_MaxBelowDefault(t *testing.T) {
	cfg := SearchConfig{DefaultPageSize: 20, MaxPageSize: 10}
	if err := cfg.Validate(); err == nil {
		t.Fatal("max below default should fail")
	}
}

func TestViewsConfig_FlushIntervalTooShort(t *testing.T) {
	cfg := ViewsConfig{FlushInterval: time.Millisecond}
	if err := cfg.Validate(); err == nil {
		t.Fatal("sub-second flush interval should fail")
	}
}

func TestCatalogConfig_DuplicateTags(t *testing.T) {
	cfg := CatalogConfig{Tags: []models.Tag{{ID: 1, Name: "Web"}, {ID: 1, Name: "Crypto"}}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("duplicate tag ids should fail")
	}
	cfg.Tags[1].ID = 2
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unique tags should pass: %v", err)
	}
}
