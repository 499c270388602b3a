package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/tlsdeploy/tlsdeploy/internal/errors"
)

// Config represents the application configuration
type Config struct {
	ServerIP         string           `yaml:"server_ip"`
	Email            string           `yaml:"email,omitempty"`
	Resolver         string           `yaml:"resolver,omitempty"`
	CertValidityDays int              `yaml:"cert_validity_days"`
	AllowDNSMismatch bool             `yaml:"allow_dns_mismatch"`
	NginxConfDir     string           `yaml:"nginx_conf_dir,omitempty"`
	SelfSignedDir    string           `yaml:"self_signed_dir,omitempty"`
	Sites            map[string]*Site `yaml:"sites"`
}

const configDir = ".config/tlsdeploy"
const configFile = "config.yaml"

// Defaults applied when a field is absent from the config file.
const (
	DefaultValidityDays = 365
	DefaultResolver     = "8.8.8.8:53"
)

// New creates a new Config with default values
func New() *Config {
	return &Config{
		CertValidityDays: DefaultValidityDays,
		Resolver:         DefaultResolver,
		Sites:            make(map[string]*Site),
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, configDir), nil
}

// ConfigPath returns the config file path
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Load reads the config from disk
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the config from an explicit path. A missing file
// yields the default config rather than an error.
func LoadFrom(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return New(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := New()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Sites == nil {
		cfg.Sites = make(map[string]*Site)
	}
	if cfg.CertValidityDays <= 0 {
		cfg.CertValidityDays = DefaultValidityDays
	}
	if cfg.Resolver == "" {
		cfg.Resolver = DefaultResolver
	}

	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to an explicit path.
func (c *Config) SaveTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// AddSite adds a site to the config
func (c *Config) AddSite(site *Site) error {
	if _, exists := c.Sites[site.Domain]; exists {
		return fmt.Errorf("site %s already exists", site.Domain)
	}
	c.Sites[site.Domain] = site
	return nil
}

// GetSite returns a site by domain
func (c *Config) GetSite(domain string) (*Site, error) {
	site, exists := c.Sites[domain]
	if !exists {
		return nil, fmt.Errorf("site %s: %w", domain, errors.ErrSiteNotFound)
	}
	return site, nil
}

// RemoveSite removes a site from the config
func (c *Config) RemoveSite(domain string) error {
	if _, exists := c.Sites[domain]; !exists {
		return fmt.Errorf("site %s: %w", domain, errors.ErrSiteNotFound)
	}
	delete(c.Sites, domain)
	return nil
}

// ListSites returns all managed sites
func (c *Config) ListSites() []*Site {
	sites := make([]*Site, 0, len(c.Sites))
	for _, s := range c.Sites {
		sites = append(sites, s)
	}
	return sites
}
