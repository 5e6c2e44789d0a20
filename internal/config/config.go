// Package config provides configuration loading and validation for remedia.
package config

import (
	"context"
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/a11ykit/remedia/internal/models"
)

// Config is the complete worker configuration.
type Config struct {
	Database  DatabaseConfig        `yaml:"database"`
	Queue     QueueConfig           `yaml:"queue"`
	Code      CodeConfig            `yaml:"code,omitempty"`
	Sites     map[string]SiteConfig `yaml:"sites,omitempty"`
	UpdatedBy string                `yaml:"updated_by,omitempty"`
}

// DatabaseConfig locates the SQLite store.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// QueueConfig points at the remediation queue.
type QueueConfig struct {
	URL    string `yaml:"url"`
	Region string `yaml:"region"`
}

// CodeConfig locates code snapshots for auto-fix messages.
type CodeConfig struct {
	Bucket string `yaml:"bucket,omitempty"`
}

// SiteConfig carries per-site settings, including feature flags.
type SiteConfig struct {
	BaseURL      string          `yaml:"base_url,omitempty"`
	DeliveryType string          `yaml:"delivery_type,omitempty"`
	Flags        map[string]bool `yaml:"flags,omitempty"`
}

// Environment variable overrides. Deployment sets these instead of editing
// the config file.
const (
	envQueueURL   = "REMEDIA_QUEUE_URL"
	envRegion     = "REMEDIA_AWS_REGION"
	envDBPath     = "REMEDIA_DB_PATH"
	envCodeBucket = "REMEDIA_CODE_BUCKET"
)

// Load reads and parses a YAML configuration file, applying environment
// overrides afterwards.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is from trusted source (config file)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	config.applyEnvOverrides()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(envQueueURL); v != "" {
		c.Queue.URL = v
	}
	if v := os.Getenv(envRegion); v != "" {
		c.Queue.Region = v
	}
	if v := os.Getenv(envDBPath); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(envCodeBucket); v != "" {
		c.Code.Bucket = v
	}
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Queue.URL == "" {
		return fmt.Errorf("queue.url is required")
	}
	if _, err := url.ParseRequestURI(c.Queue.URL); err != nil {
		return fmt.Errorf("queue.url is not a valid URL: %w", err)
	}

	if c.Queue.Region == "" {
		return fmt.Errorf("queue.region is required")
	}

	if c.UpdatedBy == "" {
		c.UpdatedBy = "remedia"
	}

	return nil
}

// Site resolves a configured site by id. Unknown sites get zero-value
// settings so flag checks default to off.
func (c *Config) Site(id string) models.Site {
	site := models.Site{ID: id}
	if sc, ok := c.Sites[id]; ok {
		site.BaseURL = sc.BaseURL
		site.DeliveryType = sc.DeliveryType
	}
	return site
}

// Flags answers per-site feature-flag checks from the config file's site
// tables. Missing sites and missing flags are off.
type Flags struct {
	sites map[string]SiteConfig
}

// NewFlags creates a flag service over the loaded config.
func NewFlags(cfg *Config) *Flags {
	return &Flags{sites: cfg.Sites}
}

// IsAuditEnabledForSite reports whether the flag is enabled for the site.
func (f *Flags) IsAuditEnabledForSite(_ context.Context, flag string, site models.Site) bool {
	sc, ok := f.sites[site.ID]
	if !ok {
		return false
	}
	return sc.Flags[flag]
}
