package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_FullFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
database:
  path: /data/delivery.db
artifacts:
  dir: /data/txt
auth:
  jwt_secret: test-secret
  token_expire_hours: 12
log:
  level: debug
  format: json
users:
  - id: 1
    name: Admin
    email: admin@example.com
    password: pw
    role: admin
  - id: 2
    name: Op
    email: op@example.com
    password: pw
    store: Store A
    role: operator
stores:
  - name: Store A
    code: A
  - name: Store B
    code: B
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Port: expected 9090, got %d", cfg.Server.Port)
	}
	if cfg.Database.Path != "/data/delivery.db" {
		t.Errorf("DB path: got %s", cfg.Database.Path)
	}
	if cfg.Auth.JWTSecret != "test-secret" || cfg.Auth.TokenExpireHours != 12 {
		t.Errorf("Auth: got %+v", cfg.Auth)
	}
	if len(cfg.Users) != 2 || cfg.Users[1].Store != "Store A" {
		t.Errorf("Users: got %+v", cfg.Users)
	}

	codes := cfg.StoreCodes()
	if codes["Store A"] != "A" || codes["Store B"] != "B" {
		t.Errorf("StoreCodes: got %v", codes)
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("auth:\n  jwt_secret: s\n"), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Default port: got %d", cfg.Server.Port)
	}
	if cfg.Database.Path != "delivery.db" {
		t.Errorf("Default db path: got %s", cfg.Database.Path)
	}
	if cfg.Artifacts.Dir != "generated_txt_files" {
		t.Errorf("Default artifacts dir: got %s", cfg.Artifacts.Dir)
	}
	if cfg.Auth.TokenExpireHours != 8 {
		t.Errorf("Default token TTL: got %d", cfg.Auth.TokenExpireHours)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("Default log config: got %+v", cfg.Log)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Expected error for missing file")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Server.Port != 8080 || cfg.Database.Path != "delivery.db" {
		t.Errorf("Default(): got %+v", cfg)
	}
}
