package config

import (
	"path/filepath"
	"testing"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()
	if cfg.APIURL != "http://localhost:8080" {
		t.Fatalf("unexpected default api url: %s", cfg.APIURL)
	}
	if cfg.ListPollSec != 60 {
		t.Fatalf("expected 60s list poll default, got %d", cfg.ListPollSec)
	}
	if cfg.HTTPTimeoutSec != 30 {
		t.Fatalf("expected 30s http timeout default, got %d", cfg.HTTPTimeoutSec)
	}
	if cfg.DBPath != filepath.Join(cfg.DataDir, "pushdash.sqlite") {
		t.Fatalf("expected db path under data dir, got %s", cfg.DBPath)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PUSHDASH_API_URL", "https://sensors.example.org/")
	t.Setenv("PUSHDASH_LIST_POLL_SECONDS", "15")
	t.Setenv("PUSHDASH_TLS_SKIP_VERIFY", "true")
	t.Setenv("PUSHDASH_HTTP_TIMEOUT_SECONDS", "not-a-number")

	cfg := FromEnv()
	if cfg.APIURL != "https://sensors.example.org/" {
		t.Fatalf("unexpected api url: %s", cfg.APIURL)
	}
	if cfg.ListPollSec != 15 {
		t.Fatalf("expected poll override 15, got %d", cfg.ListPollSec)
	}
	if !cfg.TLSSkipVerify {
		t.Fatal("expected tls skip verify override")
	}
	if cfg.HTTPTimeoutSec != 30 {
		t.Fatalf("expected invalid timeout to fall back to 30, got %d", cfg.HTTPTimeoutSec)
	}
}
