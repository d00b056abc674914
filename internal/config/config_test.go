package config

import (
	"os"
	"testing"
	"time"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(old) })
}

func TestDefaults(t *testing.T) {
	chdir(t, t.TempDir()) // no config.yml in sight

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("server.addr = %q", cfg.Server.Addr)
	}
	if cfg.Auth.TTL != 24*time.Hour {
		t.Errorf("auth.ttl = %v", cfg.Auth.TTL)
	}
	if len(cfg.Media.AllowedExtensions) != 3 {
		t.Errorf("allowed_extensions = %v", cfg.Media.AllowedExtensions)
	}
	if cfg.Danmu.HistoryLimit != 512 {
		t.Errorf("danmu.history_limit = %d", cfg.Danmu.HistoryLimit)
	}
}

func TestEnvOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("VIDHUB_SERVER_ADDR", ":9999")
	t.Setenv("VIDHUB_AUTH_SECRET", "from-env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("server.addr = %q, want env override", cfg.Server.Addr)
	}
	if cfg.Auth.Secret != "from-env" {
		t.Errorf("auth.secret = %q, want env override", cfg.Auth.Secret)
	}
}
