package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/clubqa/internal/models"
	"github.com/starford/clubqa/internal/tagcatalog"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
	AuthModeJWT      = "jwt"
)

// Config represents the application configuration.
type Config struct {
	App         ApplicationConfig `yaml:"app"`
	SQLite      SQLiteConfig      `yaml:"sqlite"`
	Auth        AuthConfig        `yaml:"auth"`
	Redis       RedisConfig       `yaml:"redis"`
	Views       ViewsConfig       `yaml:"views"`
	Idempotency IdempotencyConfig `yaml:"idempotency"`
	Search      SearchConfig      `yaml:"search"`
	SSE         SSEConfig         `yaml:"sse"`
	Catalog     CatalogConfig     `yaml:"catalog"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validators := []interface{ Validate() error }{
		&c.App, &c.SQLite, &c.Auth, &c.Redis, &c.Views,
		&c.Idempotency, &c.Search, &c.SSE, &c.Catalog,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how the caller is resolved:
//   - "disabled" (default): identity headers from a trusted gateway.
//   - "token": shared Bearer token gate, then identity headers; Token must be non-empty.
//   - "jwt": HS256 bearer tokens carrying sub and role; JWTSecret must be non-empty.
type AuthConfig struct {
	Mode      string `yaml:"mode"`
	Token     string `yaml:"token"`
	JWTSecret string `yaml:"jwt_secret"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken, AuthModeJWT)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	if c.Mode == AuthModeJWT && c.JWTSecret == "" {
		return fmt.Errorf("auth: mode is %q but jwt_secret is empty", AuthModeJWT)
	}
	return nil
}

// AuthEnabled returns true when the shared token gate is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// RedisConfig holds the optional Redis connection used for view counts.
// An empty URL keeps view counting in SQLite.
type RedisConfig struct {
	URL    string `yaml:"url"`
	Prefix string `yaml:"prefix"`
}

// Enabled reports whether a Redis URL is configured.
func (c *RedisConfig) Enabled() bool {
	return c.URL != ""
}

// Validate validates the Redis configuration.
func (c *RedisConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.URL, is.RequestURI),
		validation.Field(&c.Prefix, validation.Length(0, 64)),
	)
}

// ViewsConfig controls how often buffered view counts reach SQLite.
type ViewsConfig struct {
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// Validate validates the views configuration.
func (c *ViewsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.FlushInterval, validation.Required, validation.Min(time.Second)),
	)
}

// IdempotencyConfig controls how long toggle request keys are remembered.
type IdempotencyConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// Validate validates the idempotency configuration.
func (c *IdempotencyConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Minute)),
		validation.Field(&c.SweepInterval, validation.Required, validation.Min(time.Second)),
	)
}

// SearchConfig holds listing page sizes.
type SearchConfig struct {
	DefaultPageSize int `yaml:"default_page_size"`
	MaxPageSize     int `yaml:"max_page_size"`
}

// Validate validates the search configuration.
func (c *SearchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DefaultPageSize, validation.Required, validation.Min(1)),
		validation.Field(&c.MaxPageSize, validation.Required, validation.Min(c.DefaultPageSize)),
	)
}

// SSEConfig holds event stream timing.
type SSEConfig struct {
	BoardThrottle time.Duration `yaml:"board_throttle"`
	Heartbeat     time.Duration `yaml:"heartbeat"`
}

// Validate validates the SSE configuration.
func (c *SSEConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BoardThrottle, validation.Min(time.Duration(0))),
		validation.Field(&c.Heartbeat, validation.Required, validation.Min(time.Second)),
	)
}

// CatalogConfig lists the board's tags. An empty list uses the built-in set.
type CatalogConfig struct {
	Tags []models.Tag `yaml:"tags"`
}

// Validate validates the catalog by building it.
func (c *CatalogConfig) Validate() error {
	_, err := c.Build()
	return err
}

// Build returns the configured catalog.
func (c *CatalogConfig) Build() (*tagcatalog.Catalog, error) {
	if len(c.Tags) == 0 {
		return tagcatalog.New(tagcatalog.Defaults)
	}
	return tagcatalog.New(c.Tags)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./clubqa.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Redis: RedisConfig{
			Prefix: "clubqa",
		},
		Views: ViewsConfig{
			FlushInterval: 30 * time.Second,
		},
		Idempotency: IdempotencyConfig{
			TTL:           24 * time.Hour,
			SweepInterval: time.Hour,
		},
		Search: SearchConfig{
			DefaultPageSize: 10,
			MaxPageSize:     100,
		},
		SSE: SSEConfig{
			BoardThrottle: 2 * time.Second,
			Heartbeat:     30 * time.Second,
		},
	}
}
