package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries every setting the service reads from the environment.
// It is built once at process start; missing required values fail startup
// instead of the first request that needs them.
type Config struct {
	Addr      string
	StaticDir string
	Env       string

	AuthPassword string

	Storage StorageConfig
	Fabric  FabricConfig

	DatabaseURL string

	DraftTTL time.Duration
}

// StorageConfig configures the S3-compatible blob store.
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Container string
}

// FabricConfig configures the notebook job API and its token exchange.
type FabricConfig struct {
	ClientID     string
	ClientSecret string
	TenantID     string
	WorkspaceID  string
	NotebookID   string

	// Overridable so tests can point at local servers.
	APIBaseURL   string
	LoginBaseURL string
}

// Load reads the environment into a Config and validates required fields.
func Load() (Config, error) {
	useSSL, err := envBool("MINIO_USE_SSL", false)
	if err != nil {
		return Config{}, err
	}
	draftTTL, err := envDuration("DRAFT_TTL", 30*time.Minute)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Addr:         envString("ADDR", ":8080"),
		StaticDir:    envString("STATIC_DIR", "./web"),
		Env:          envString("APP_ENV", "development"),
		AuthPassword: os.Getenv("AUTH_PASSWORD"),
		Storage: StorageConfig{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:    useSSL,
			Container: envString("STORAGE_CONTAINER_NAME", "input"),
		},
		Fabric: FabricConfig{
			ClientID:     os.Getenv("AZURE_CLIENT_ID"),
			ClientSecret: os.Getenv("AZURE_CLIENT_SECRET"),
			TenantID:     os.Getenv("AZURE_TENANT_ID"),
			WorkspaceID:  os.Getenv("FABRIC_WORKSPACE_ID"),
			NotebookID:   os.Getenv("FABRIC_NOTEBOOK_ID"),
			APIBaseURL:   envString("FABRIC_API_BASE_URL", "https://api.fabric.microsoft.com/v1"),
			LoginBaseURL: envString("FABRIC_LOGIN_BASE_URL", "https://login.microsoftonline.com"),
		},
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DraftTTL:    draftTTL,
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Production reports whether secure-cookie behavior should apply.
func (c Config) Production() bool {
	return strings.EqualFold(c.Env, "production")
}

func (c Config) validate() error {
	var missing []string
	require := func(key, val string) {
		if val == "" {
			missing = append(missing, key)
		}
	}

	require("AUTH_PASSWORD", c.AuthPassword)
	require("MINIO_ENDPOINT", c.Storage.Endpoint)
	require("MINIO_ACCESS_KEY", c.Storage.AccessKey)
	require("MINIO_SECRET_KEY", c.Storage.SecretKey)
	require("AZURE_CLIENT_ID", c.Fabric.ClientID)
	require("AZURE_CLIENT_SECRET", c.Fabric.ClientSecret)
	require("AZURE_TENANT_ID", c.Fabric.TenantID)
	require("FABRIC_WORKSPACE_ID", c.Fabric.WorkspaceID)
	require("FABRIC_NOTEBOOK_ID", c.Fabric.NotebookID)
	require("DATABASE_URL", c.DatabaseURL)

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envBool(key string, def bool) (bool, error) {
	if v, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("parse %s: %w", key, err)
		}
		return b, nil
	}
	return def, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("parse %s: %w", key, err)
		}
		return d, nil
	}
	return def, nil
}
