// Package config provides configuration management for klkchan.
package config

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
)

var AppVersion = "-unset-" // will be set at build time

const (
	// Listing defaults
	DefaultPageLimit    = 50
	MaxPageLimit        = 200
	DefaultPopularLimit = 10

	// Token lifetimes
	DefaultAccessTokenTTL  = 30 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour

	// Web session lifetime (sliding)
	DefaultSessionTimeout = 3 * time.Hour
)

// MainConfig holds the main configuration for klkchan
type MainConfig struct {
	// Mutex for thread-safe access
	mux sync.Mutex `json:"-"`

	Web        WebConfig        `json:"web" envPrefix:"WEB_"`
	Database   DatabaseConfig   `json:"database" envPrefix:"DB_"`
	Auth       AuthConfig       `json:"auth" envPrefix:"AUTH_"`
	Moderation ModerationConfig `json:"moderation" envPrefix:"MOD_"`
	Cache      CacheConfig      `json:"cache" envPrefix:"CACHE_"`

	AppVersion string `json:"app_version"` // Application version, set at build time
}

// WebConfig holds web interface configuration
type WebConfig struct {
	ListenPort int    `json:"listen_port" env:"PORT"`
	SSL        bool   `json:"ssl" env:"SSL"`
	CertFile   string `json:"cert_file,omitempty" env:"CERT_FILE"`
	KeyFile    string `json:"key_file,omitempty" env:"KEY_FILE"`
	SiteName   string `json:"site_name" env:"SITE_NAME"`
	Debug      bool   `json:"debug" env:"DEBUG"` // Enable debug logging for sessions/auth
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	DataDir   string `json:"data_dir" env:"DATA_DIR"`     // Directory for klkchan.sq3
	BackupDir string `json:"backup_dir" env:"BACKUP_DIR"` // Directory for backups
}

// AuthConfig holds API token settings
type AuthConfig struct {
	Secret          string        `json:"-" env:"SECRET"`
	Issuer          string        `json:"issuer" env:"ISSUER"`
	AccessTokenTTL  time.Duration `json:"access_token_ttl" env:"ACCESS_TTL"`
	RefreshTokenTTL time.Duration `json:"refresh_token_ttl" env:"REFRESH_TTL"`
	SessionTimeout  time.Duration `json:"session_timeout" env:"SESSION_TIMEOUT"`
}

// ModerationConfig holds content filter settings
type ModerationConfig struct {
	WordListDir string   `json:"wordlist_dir" env:"WORDLIST_DIR"`
	Languages   []string `json:"languages" env:"LANGUAGES" envSeparator:","`
}

// CacheConfig holds page cache settings
type CacheConfig struct {
	MaxEntries int           `json:"max_entries" env:"MAX_ENTRIES"`
	MaxAge     time.Duration `json:"max_age" env:"MAX_AGE"`
}

// NewDefaultConfig returns a configuration with sensible defaults
func NewDefaultConfig() *MainConfig {
	maincfg := &MainConfig{
		AppVersion: AppVersion,
		Web: WebConfig{
			ListenPort: 11980,
			SSL:        false,
			SiteName:   "KLKCHAN",
		},
		Database: DatabaseConfig{
			DataDir:   "./data",
			BackupDir: "./backups",
		},
		Auth: AuthConfig{
			Secret:          "supersecretkey",
			Issuer:          "klkchan",
			AccessTokenTTL:  DefaultAccessTokenTTL,
			RefreshTokenTTL: DefaultRefreshTokenTTL,
			SessionTimeout:  DefaultSessionTimeout,
		},
		Moderation: ModerationConfig{
			WordListDir: "./data/ldnoobw",
			Languages:   []string{"es", "en"},
		},
		Cache: CacheConfig{
			MaxEntries: 256,
			MaxAge:     time.Minute,
		},
	}
	return maincfg
}

// LoadEnv overrides the config with KLK_* environment variables.
func (c *MainConfig) LoadEnv() error {
	c.mux.Lock()
	defer c.mux.Unlock()
	if err := env.ParseWithOptions(c, env.Options{Prefix: "KLK_"}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if c.Auth.Secret == "supersecretkey" {
		log.Printf("[CONFIG] WARNING: using the default token secret, set KLK_AUTH_SECRET")
	}
	return nil
}

// Validate checks values that would otherwise fail late at runtime.
func (c *MainConfig) Validate() error {
	c.mux.Lock()
	defer c.mux.Unlock()
	if c.Web.ListenPort < 1024 || c.Web.ListenPort > 65535 {
		return fmt.Errorf("invalid port number: %d (must be between 1024 and 65535)", c.Web.ListenPort)
	}
	if c.Web.SSL && (c.Web.CertFile == "" || c.Web.KeyFile == "") {
		return fmt.Errorf("SSL enabled but cert_file or key_file not specified")
	}
	if c.Auth.Secret == "" {
		return fmt.Errorf("auth secret must not be empty")
	}
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}
	if c.Database.DataDir == "" {
		return fmt.Errorf("data dir must be set")
	}
	return nil
}
