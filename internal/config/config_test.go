package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d", cfg.Port)
	}
	if cfg.API.BaseURL != "http://localhost:8080/api" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 10*time.Second {
		t.Errorf("API.Timeout = %v", cfg.API.Timeout)
	}
	if !cfg.IsDevelopment() {
		t.Error("expected development by default")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("API_BASE_URL", "http://backend:3000/")
	t.Setenv("API_TIMEOUT", "3s")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.BaseURL != "http://backend:3000" {
		t.Errorf("trailing slash not trimmed: %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 3*time.Second || cfg.Cache.TTL != 30*time.Second {
		t.Errorf("durations = %v, %v", cfg.API.Timeout, cfg.Cache.TTL)
	}
	if cfg.BaseURL != "http://localhost:9000" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
}

func TestLoad_BadTimezone(t *testing.T) {
	t.Setenv("TIMEZONE", "Mars/Olympus")
	if _, err := Load(); err == nil {
		t.Fatal("expected error")
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", User: "u", Password: "p@ss", Name: "events"}
	dsn := d.DSN()
	if !strings.Contains(dsn, "tcp(db:3306)/events") || !strings.Contains(dsn, "parseTime=true") ||
		!strings.Contains(dsn, "multiStatements=true") {
		t.Errorf("DSN = %q", dsn)
	}

	d.dsnOverride = "x:y@tcp(h:1)/z"
	if d.DSN() != "x:y@tcp(h:1)/z" {
		t.Errorf("override ignored: %q", d.DSN())
	}
}
