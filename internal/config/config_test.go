package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// clearEnv blanks every variable Load consults so tests are hermetic.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CONFIG_FILE", "PORT", "ENVIRONMENT", "LOG_LEVEL", "GCP_PROJECT",
		"SHOP_ID", "SHOP_STORE_URL", "SHOP_STORE_DOMAIN", "SHOP_CURRENCY",
		"SHOP_CART_ADD_PATH", "SHOP_MAX_QUANTITY", "SHOP_DEFAULT_SECTIONS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SHOP_STORE_URL", "https://shop.example.com")
	t.Setenv("SHOP_CURRENCY", "EUR")
	t.Setenv("SHOP_MAX_QUANTITY", "10")
	t.Setenv("SHOP_DEFAULT_SECTIONS", "cart-icon-bubble, cart-drawer")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Port = %s, want 9090", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, want debug", cfg.LogLevel)
	}
	if cfg.Shop.StoreURL != "https://shop.example.com" {
		t.Errorf("StoreURL = %s", cfg.Shop.StoreURL)
	}
	if cfg.Shop.StoreDomain != "shop.example.com" {
		t.Errorf("StoreDomain = %s, want derived shop.example.com", cfg.Shop.StoreDomain)
	}
	if cfg.Shop.Currency != "EUR" {
		t.Errorf("Currency = %s, want EUR", cfg.Shop.Currency)
	}
	if cfg.Shop.MaxQuantity != 10 {
		t.Errorf("MaxQuantity = %d, want 10", cfg.Shop.MaxQuantity)
	}
	want := []string{"cart-icon-bubble", "cart-drawer"}
	if len(cfg.Shop.DefaultSections) != 2 ||
		cfg.Shop.DefaultSections[0] != want[0] ||
		cfg.Shop.DefaultSections[1] != want[1] {
		t.Errorf("DefaultSections = %v, want %v", cfg.Shop.DefaultSections, want)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("SHOP_STORE_URL", "https://shop.example.com")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %s, want default 8080", cfg.Port)
	}
	if cfg.Environment != "development" {
		t.Errorf("Environment = %s, want development", cfg.Environment)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %s, want info", cfg.LogLevel)
	}
	if cfg.Shop.Currency != "USD" {
		t.Errorf("Currency = %s, want default USD", cfg.Shop.Currency)
	}
}

func TestLoad_MissingStoreURL(t *testing.T) {
	clearEnv(t)

	if _, err := Load(context.Background()); err == nil {
		t.Error("Load() without SHOP_STORE_URL should fail")
	}
}

func TestLoad_InvalidMaxQuantity(t *testing.T) {
	clearEnv(t)
	t.Setenv("SHOP_STORE_URL", "https://shop.example.com")
	t.Setenv("SHOP_MAX_QUANTITY", "lots")

	if _, err := Load(context.Background()); err == nil {
		t.Error("Load() with non-numeric SHOP_MAX_QUANTITY should fail")
	}
}

func TestLoad_ProductionRequiresGCP(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "production")

	_, err := Load(context.Background())
	if err == nil || !strings.Contains(err.Error(), "GCP_PROJECT") {
		t.Errorf("Load() error = %v, want GCP_PROJECT requirement", err)
	}

	t.Setenv("GCP_PROJECT", "proj")
	_, err = Load(context.Background())
	if err == nil || !strings.Contains(err.Error(), "SHOP_ID") {
		t.Errorf("Load() error = %v, want SHOP_ID requirement", err)
	}
}

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestLoadFromFile_JSON(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, "config.json", `{
		"port": "9999",
		"log_level": "warn",
		"shop_id": "dev-shop",
		"shop": {
			"store_url": "https://shop.example.com",
			"currency": "GBP",
			"cart_add_path": "/cart/add.js",
			"max_quantity": 5,
			"default_sections": ["cart-icon-bubble"]
		}
	}`)
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "9999" || cfg.LogLevel != "warn" {
		t.Errorf("server settings = %s/%s, want 9999/warn", cfg.Port, cfg.LogLevel)
	}
	if cfg.ShopID != "dev-shop" {
		t.Errorf("ShopID = %s, want dev-shop", cfg.ShopID)
	}
	if cfg.Shop.Currency != "GBP" || cfg.Shop.MaxQuantity != 5 {
		t.Errorf("shop = %+v", cfg.Shop)
	}
	if cfg.Shop.StoreDomain != "shop.example.com" {
		t.Errorf("StoreDomain = %s, want derived domain", cfg.Shop.StoreDomain)
	}
}

func TestLoadFromFile_YAML(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, "config.yaml", `
port: "7070"
shop_id: dev-shop
shop:
  store_url: https://shop.example.com
  currency: EUR
  default_sections:
    - cart-icon-bubble
    - cart-drawer
`)
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "7070" {
		t.Errorf("Port = %s, want 7070", cfg.Port)
	}
	if cfg.Shop.Currency != "EUR" {
		t.Errorf("Currency = %s, want EUR", cfg.Shop.Currency)
	}
	if len(cfg.Shop.DefaultSections) != 2 {
		t.Errorf("DefaultSections = %v, want 2 entries", cfg.Shop.DefaultSections)
	}
}

func TestLoadFromFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"bad json", "config.json", `{"shop": `},
		{"bad yaml", "config.yaml", "\tshop:\n  nope"},
		{"missing store url", "config.json", `{"shop": {}}`},
		{"relative store url", "config.json", `{"shop": {"store_url": "shop.example.com"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			path := writeConfigFile(t, tt.file, tt.content)
			t.Setenv("CONFIG_FILE", path)
			if _, err := Load(context.Background()); err == nil {
				t.Error("Load() should fail")
			}
		})
	}
}
