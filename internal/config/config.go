// Package config loads asset-fetch settings from config.yaml and the
// environment. Precedence, lowest first: built-in defaults, the YAML file,
// ASSETFETCH_* environment variables (a .env file is loaded into the
// environment first; see LoadEnvFile).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/snapetech/assetfetch/internal/materializer"
	"github.com/snapetech/assetfetch/internal/platform"
)

const (
	// EnvPrefix is prepended to every env tag below.
	EnvPrefix = "ASSETFETCH_"
	// DefaultPath is used when neither -config nor ASSETFETCH_CONFIG is set.
	DefaultPath = "config.yaml"
)

// Config holds platform credentials, bot settings and output options.
type Config struct {
	// Platform session cookie; required for the media-location lookup.
	RobloxCookie string `yaml:"roblox_cookie" env:"ROBLOX_COOKIE"`

	// Chat bot
	DiscordBot       bool   `yaml:"discord_bot" env:"DISCORD_BOT"`
	DiscordToken     string `yaml:"discord_token" env:"DISCORD_TOKEN"`
	DiscordChannelID string `yaml:"discord_channel_id" env:"DISCORD_CHANNEL_ID"` // empty = any channel

	// Output
	OutputDir string `yaml:"output_dir" env:"OUTPUT_DIR"`
	AssetType string `yaml:"asset_type" env:"ASSET_TYPE"` // batch asset type tag, e.g. Audio
	FileExt   string `yaml:"file_ext" env:"FILE_EXT"`

	// HTTP. 0 disables the client timeout; requests then end only on cancel.
	HTTPTimeout time.Duration `yaml:"http_timeout" env:"HTTP_TIMEOUT"`

	// Endpoint overrides (proxies, tests).
	DetailsBaseURL  string `yaml:"details_base_url,omitempty" env:"DETAILS_BASE_URL"`
	GamesBaseURL    string `yaml:"games_base_url,omitempty" env:"GAMES_BASE_URL"`
	DeliveryBaseURL string `yaml:"delivery_base_url,omitempty" env:"DELIVERY_BASE_URL"`

	// Optional extras; empty disables each.
	LedgerPath  string `yaml:"ledger_path,omitempty" env:"LEDGER_PATH"`
	MetricsAddr string `yaml:"metrics_addr,omitempty" env:"METRICS_ADDR"`

	S3Bucket    string `yaml:"s3_bucket,omitempty" env:"S3_BUCKET"`
	S3Region    string `yaml:"s3_region,omitempty" env:"S3_REGION"`
	S3Endpoint  string `yaml:"s3_endpoint,omitempty" env:"S3_ENDPOINT"`
	S3AccessKey string `yaml:"s3_access_key,omitempty" env:"S3_ACCESS_KEY"`
	S3SecretKey string `yaml:"s3_secret_key,omitempty" env:"S3_SECRET_KEY"`
	S3Prefix    string `yaml:"s3_prefix,omitempty" env:"S3_PREFIX"`

	path    string
	present map[string]bool // keys set by the file or the environment
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		OutputDir:   materializer.DefaultDir,
		AssetType:   platform.AssetTypeAudio,
		FileExt:     materializer.DefaultExt,
		HTTPTimeout: 30 * time.Second,
		present:     map[string]bool{},
	}
}

// PathFromEnv returns ASSETFETCH_CONFIG or DefaultPath.
func PathFromEnv() string {
	if p := os.Getenv(EnvPrefix + "CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

// Load applies the YAML file at path (a missing file is not an error) and then
// the environment on top of Default().
func Load(path string) (*Config, error) {
	c := Default()
	c.path = filepath.Clean(path)
	data, err := os.ReadFile(c.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", c.path, err)
	default:
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", c.path, err)
		}
		var keys map[string]any
		if err := yaml.Unmarshal(data, &keys); err == nil {
			for k := range keys {
				c.present[k] = true
			}
		}
	}
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	for _, k := range []string{"roblox_cookie", "discord_bot", "discord_token", "discord_channel_id"} {
		if _, ok := os.LookupEnv(EnvPrefix + strings.ToUpper(k)); ok {
			c.present[k] = true
		}
	}
	c.applyDefaults()
	return c, nil
}

// applyDefaults restores defaults for fields a file or env var blanked out.
func (c *Config) applyDefaults() {
	d := Default()
	if c.OutputDir == "" {
		c.OutputDir = d.OutputDir
	}
	if c.AssetType == "" {
		c.AssetType = d.AssetType
	}
	c.FileExt = strings.TrimPrefix(c.FileExt, ".")
	if c.FileExt == "" {
		c.FileExt = d.FileExt
	}
	if c.HTTPTimeout < 0 {
		c.HTTPTimeout = 0
	}
}

// Path is the file Load read (and Save writes).
func (c *Config) Path() string {
	if c.path == "" {
		return DefaultPath
	}
	return c.path
}

// Save writes the config back to Path() with owner-only permissions; it holds
// the session cookie and bot token.
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	p := c.Path()
	if dir := filepath.Dir(p); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	return os.WriteFile(p, data, 0o600)
}

// BotReady reports whether the chat bot is enabled and has a token.
func (c *Config) BotReady() bool {
	return c.DiscordBot && c.DiscordToken != ""
}

// MirrorEnabled reports whether downloaded files should be copied to S3.
func (c *Config) MirrorEnabled() bool { return c.S3Bucket != "" }
