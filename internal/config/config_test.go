package config

import (
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("AUTH_PASSWORD", "hunter2")
	t.Setenv("MINIO_ENDPOINT", "localhost:9000")
	t.Setenv("MINIO_ACCESS_KEY", "minio")
	t.Setenv("MINIO_SECRET_KEY", "minio123")
	t.Setenv("AZURE_CLIENT_ID", "client")
	t.Setenv("AZURE_CLIENT_SECRET", "secret")
	t.Setenv("AZURE_TENANT_ID", "tenant")
	t.Setenv("FABRIC_WORKSPACE_ID", "ws-1")
	t.Setenv("FABRIC_NOTEBOOK_ID", "nb-1")
	t.Setenv("DATABASE_URL", "postgres://localhost/runs")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("default addr = %q", cfg.Addr)
	}
	if cfg.Storage.Container != "input" {
		t.Fatalf("default container = %q", cfg.Storage.Container)
	}
	if cfg.DraftTTL != 30*time.Minute {
		t.Fatalf("default draft TTL = %s", cfg.DraftTTL)
	}
	if cfg.Production() {
		t.Fatalf("development env must not report production")
	}
}

func TestLoadMissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("FABRIC_NOTEBOOK_ID", "")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error for missing notebook id")
	}
	if !strings.Contains(err.Error(), "FABRIC_NOTEBOOK_ID") {
		t.Fatalf("error should name the missing variable: %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORAGE_CONTAINER_NAME", "uploads")
	t.Setenv("DRAFT_TTL", "10m")
	t.Setenv("MINIO_USE_SSL", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Production() {
		t.Fatalf("expected production mode")
	}
	if cfg.Storage.Container != "uploads" || !cfg.Storage.UseSSL {
		t.Fatalf("storage overrides not applied: %+v", cfg.Storage)
	}
	if cfg.DraftTTL != 10*time.Minute {
		t.Fatalf("draft TTL override = %s", cfg.DraftTTL)
	}
}

func TestLoadBadBool(t *testing.T) {
	setRequired(t)
	t.Setenv("MINIO_USE_SSL", "maybe")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid MINIO_USE_SSL")
	}
}
