// Package config handles loading and validation of service configuration.
// Supports both development (env vars / .env) and production (Secret
// Manager) modes, plus a CONFIG_FILE override in JSON or YAML.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all service configuration.
// Environment determines whether shop settings load from env vars
// (development) or Secret Manager (production).
type Config struct {
	// Server settings
	Port        string
	Environment string // "development" or "production"
	LogLevel    string // "debug", "info", "warn", "error"

	// GCP settings (required in production)
	GCPProject string
	ShopID     string

	// Shop-specific configuration (loaded from secrets in production)
	Shop ShopConfig
}

// ShopConfig contains shop-specific settings.
// In production, this is loaded from Secret Manager as JSON.
// In development, loaded from individual env vars or CONFIG_FILE.
type ShopConfig struct {
	StoreURL    string `json:"store_url" yaml:"store_url"`
	StoreDomain string `json:"store_domain,omitempty" yaml:"store_domain"` // Derived from StoreURL if not set
	Currency    string `json:"currency,omitempty" yaml:"currency"`
	CartAddPath string `json:"cart_add_path,omitempty" yaml:"cart_add_path"`

	// MaxQuantity caps the quantity a single pre-order submission may
	// carry. 0 means no cap.
	MaxQuantity int `json:"max_quantity,omitempty" yaml:"max_quantity"`

	// DefaultSections are the cart section IDs requested with add-to-cart
	// calls when a session does not announce its own.
	DefaultSections []string `json:"default_sections,omitempty" yaml:"default_sections"`
}

// Load reads configuration from file, environment, or Secret Manager.
// Priority: CONFIG_FILE (if set) → ENV vars / Secret Manager.
// Validates all required fields and returns an error if any are missing.
func Load(ctx context.Context) (*Config, error) {
	// If CONFIG_FILE is set, load everything from the file
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromFile(configPath)
	}

	// A local .env is a development convenience; missing files are fine.
	_ = godotenv.Load()

	cfg := &Config{
		Port:        envOrDefault("PORT", "8080"),
		Environment: envOrDefault("ENVIRONMENT", "development"),
		LogLevel:    envOrDefault("LOG_LEVEL", "info"),
		GCPProject:  os.Getenv("GCP_PROJECT"),
		ShopID:      os.Getenv("SHOP_ID"),
	}

	// Load shop config based on environment
	var err error
	if cfg.Environment == "production" {
		if cfg.GCPProject == "" {
			return nil, fmt.Errorf("GCP_PROJECT required in production environment")
		}
		if cfg.ShopID == "" {
			return nil, fmt.Errorf("SHOP_ID required in production environment")
		}
		err = cfg.loadFromSecretManager(ctx)
	} else {
		err = cfg.loadFromEnv()
	}
	if err != nil {
		return nil, fmt.Errorf("loading shop config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// fileConfig mirrors the CONFIG_FILE structure for both JSON and YAML.
type fileConfig struct {
	Port        string     `json:"port" yaml:"port"`
	Environment string     `json:"environment" yaml:"environment"`
	LogLevel    string     `json:"log_level" yaml:"log_level"`
	ShopID      string     `json:"shop_id" yaml:"shop_id"`
	Shop        ShopConfig `json:"shop" yaml:"shop"`
}

// loadFromFile reads all configuration from a JSON or YAML file.
// Used for local development to avoid multiple ENV vars.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var fc fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg := &Config{
		Port:        withDefault(fc.Port, "8080"),
		Environment: withDefault(fc.Environment, "development"),
		LogLevel:    withDefault(fc.LogLevel, "info"),
		ShopID:      fc.ShopID,
		Shop:        fc.Shop,
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// withDefault returns val if non-empty, otherwise defaultVal.
func withDefault(val, defaultVal string) string {
	if val != "" {
		return val
	}
	return defaultVal
}

// loadFromSecretManager fetches shop config from GCP Secret Manager.
// Secret name format: projects/{project}/secrets/{shop_id}/versions/latest
func (c *Config) loadFromSecretManager(ctx context.Context) error {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating secret manager client: %w", err)
	}
	defer client.Close()

	secretName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest",
		c.GCPProject, c.ShopID)

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName,
	})
	if err != nil {
		return fmt.Errorf("accessing secret %s: %w", secretName, err)
	}

	if err := json.Unmarshal(result.Payload.Data, &c.Shop); err != nil {
		return fmt.Errorf("parsing secret JSON: %w", err)
	}

	return nil
}

// loadFromEnv reads shop config from individual environment variables.
// Used in development mode for local testing.
func (c *Config) loadFromEnv() error {
	c.Shop = ShopConfig{
		StoreURL:    os.Getenv("SHOP_STORE_URL"),
		StoreDomain: os.Getenv("SHOP_STORE_DOMAIN"),
		Currency:    os.Getenv("SHOP_CURRENCY"),
		CartAddPath: os.Getenv("SHOP_CART_ADD_PATH"),
	}

	if raw := os.Getenv("SHOP_MAX_QUANTITY"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return fmt.Errorf("parsing SHOP_MAX_QUANTITY: %q is not a non-negative integer", raw)
		}
		c.Shop.MaxQuantity = n
	}

	// Comma-separated list, matching the sections form parameter
	if raw := os.Getenv("SHOP_DEFAULT_SECTIONS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				c.Shop.DefaultSections = append(c.Shop.DefaultSections, s)
			}
		}
	}

	return nil
}

// applyDefaults fills derived and defaulted shop fields.
func (c *Config) applyDefaults() {
	if c.Shop.StoreDomain == "" && c.Shop.StoreURL != "" {
		c.Shop.StoreDomain = extractDomain(c.Shop.StoreURL)
	}
	if c.Shop.Currency == "" {
		c.Shop.Currency = "USD"
	}
}

// validate checks that all required configuration fields are present.
func (c *Config) validate() error {
	if c.Shop.StoreURL == "" {
		return fmt.Errorf("store_url is required")
	}
	u, err := url.Parse(c.Shop.StoreURL)
	if err != nil {
		return fmt.Errorf("invalid store_url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid store_url: must be absolute, got %q", c.Shop.StoreURL)
	}
	if c.Shop.MaxQuantity < 0 {
		return fmt.Errorf("max_quantity must not be negative")
	}
	return nil
}

// extractDomain pulls the host out of a URL string.
func extractDomain(storeURL string) string {
	u, err := url.Parse(storeURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// envOrDefault returns the environment variable value or a default.
func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
