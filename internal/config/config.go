// Package config handles loading and validation of service configuration.
// Supports both development (env vars, optional .env) and production
// (Secret Manager) modes.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/joho/godotenv"
)

// Config holds all service configuration.
// Environment determines whether secrets load from env vars (development)
// or Secret Manager (production).
type Config struct {
	// Server settings
	Port        string
	Environment string // "development" or "production"
	LogLevel    string // "debug", "info", "warn", "error"

	// GCP settings (required in production)
	GCPProject string
	StoreID    string

	// Backend connection (loaded from secrets in production)
	Backend BackendConfig

	// Resources exposed on the admin surface.
	Resources []ResourceConfig
}

// BackendConfig contains backend connection settings.
// In production, this is loaded from Secret Manager as JSON.
// In development, loaded from individual env vars or CONFIG_FILE.
type BackendConfig struct {
	BaseURL string `json:"base_url"`
	// Token authenticates the gateway to the backend's admin API.
	Token string `json:"token"`
	// AdminJWTSecret signs and verifies the gateway's own admin tokens.
	AdminJWTSecret string `json:"admin_jwt_secret"`
	// MinVersion is the lowest backend version the gateway accepts at
	// startup. Empty disables the gate.
	MinVersion string `json:"min_version,omitempty"`
	// BrowserTLS enables the Chrome TLS fingerprint transport.
	BrowserTLS bool `json:"browser_tls,omitempty"`
}

// ResourceConfig declares one admin collection and which mutations it
// exposes. Listing is always available.
type ResourceConfig struct {
	Name   string `json:"name"`
	Create bool   `json:"create"`
	Update bool   `json:"update"`
	Delete bool   `json:"delete"`
}

// defaultResources is the admin surface when RESOURCES is not set.
// Orders are deliberately read-only: they are created by checkout, never
// by staff.
func defaultResources() []ResourceConfig {
	return []ResourceConfig{
		{Name: "products", Create: true, Update: true, Delete: true},
		{Name: "categories", Create: true, Update: true, Delete: true},
		{Name: "coupons", Create: true, Update: true, Delete: true},
		{Name: "orders"},
	}
}

// Load reads configuration from file, environment, or Secret Manager.
// Priority: CONFIG_FILE (if set) → ENV vars / Secret Manager.
// In development a .env file in the working directory is loaded first.
// Validates all required fields and returns an error if any are missing.
func Load(ctx context.Context) (*Config, error) {
	// If CONFIG_FILE is set, load everything from the JSON file
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromFile(configPath)
	}

	// Best effort; development convenience only.
	godotenv.Load()

	cfg := &Config{
		Port:        envOrDefault("PORT", "8080"),
		Environment: envOrDefault("ENVIRONMENT", "development"),
		LogLevel:    envOrDefault("LOG_LEVEL", "info"),
		GCPProject:  os.Getenv("GCP_PROJECT"),
		StoreID:     os.Getenv("STORE_ID"),
	}

	// Load backend config based on environment
	var err error
	if cfg.Environment == "production" {
		if cfg.GCPProject == "" {
			return nil, fmt.Errorf("GCP_PROJECT required in production environment")
		}
		if cfg.StoreID == "" {
			return nil, fmt.Errorf("STORE_ID required in production environment")
		}
		err = cfg.loadFromSecretManager(ctx)
	} else {
		err = cfg.loadFromEnv()
	}
	if err != nil {
		return nil, fmt.Errorf("loading backend config: %w", err)
	}

	if err := cfg.loadResources(os.Getenv("RESOURCES")); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile reads all configuration from a JSON file.
// Used for local development to avoid multiple ENV vars.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var fileConfig struct {
		Port        string           `json:"port"`
		Environment string           `json:"environment"`
		LogLevel    string           `json:"log_level"`
		Backend     BackendConfig    `json:"backend"`
		Resources   []ResourceConfig `json:"resources"`
	}

	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg := &Config{
		Port:        withDefault(fileConfig.Port, "8080"),
		Environment: withDefault(fileConfig.Environment, "development"),
		LogLevel:    withDefault(fileConfig.LogLevel, "info"),
		Backend:     fileConfig.Backend,
		Resources:   fileConfig.Resources,
	}
	if len(cfg.Resources) == 0 {
		cfg.Resources = defaultResources()
	}

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

// loadFromSecretManager fetches backend config from GCP Secret Manager.
// Secret name format: projects/{project}/secrets/{store_id}/versions/latest
func (c *Config) loadFromSecretManager(ctx context.Context) error {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating secret manager client: %w", err)
	}
	defer client.Close()

	secretName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest",
		c.GCPProject, c.StoreID)

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName,
	})
	if err != nil {
		return fmt.Errorf("accessing secret %s: %w", secretName, err)
	}

	if err := json.Unmarshal(result.Payload.Data, &c.Backend); err != nil {
		return fmt.Errorf("parsing secret JSON: %w", err)
	}

	return nil
}

// loadFromEnv reads backend config from individual environment variables.
// Used in development mode for local testing.
func (c *Config) loadFromEnv() error {
	c.Backend = BackendConfig{
		BaseURL:        os.Getenv("BACKEND_BASE_URL"),
		Token:          os.Getenv("BACKEND_TOKEN"),
		AdminJWTSecret: os.Getenv("ADMIN_JWT_SECRET"),
		MinVersion:     os.Getenv("BACKEND_MIN_VERSION"),
		BrowserTLS:     os.Getenv("BACKEND_BROWSER_TLS") == "true",
	}
	return nil
}

// loadResources parses the RESOURCES env var (JSON array) or falls back
// to the default admin surface.
func (c *Config) loadResources(raw string) error {
	if raw == "" {
		c.Resources = defaultResources()
		return nil
	}
	if err := json.Unmarshal([]byte(raw), &c.Resources); err != nil {
		return fmt.Errorf("parsing RESOURCES JSON: %w", err)
	}
	if len(c.Resources) == 0 {
		return fmt.Errorf("RESOURCES must name at least one resource")
	}
	return nil
}

// validate checks that all required configuration fields are present.
func (c *Config) validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend base_url is required")
	}
	if _, err := url.Parse(c.Backend.BaseURL); err != nil {
		return fmt.Errorf("invalid backend base_url: %w", err)
	}
	if c.Backend.AdminJWTSecret == "" {
		return fmt.Errorf("admin_jwt_secret is required")
	}
	for _, r := range c.Resources {
		if r.Name == "" {
			return fmt.Errorf("resource with empty name")
		}
	}
	return nil
}

// envOrDefault returns the environment variable value or the default if not set.
func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
