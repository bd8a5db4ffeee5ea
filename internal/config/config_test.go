package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("SALE_TX_TIMEOUT", "")
	t.Setenv("ALLOWED_ORIGINS", "")
	t.Setenv("ENABLE_BOOTSTRAP", "")

	cfg := Load()

	if cfg.Port != "8081" {
		t.Errorf("port: got %q, want 8081", cfg.Port)
	}
	if cfg.SaleTxTimeout != 30*time.Second {
		t.Errorf("sale tx timeout: got %s, want 30s", cfg.SaleTxTimeout)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Errorf("allowed origins: got %v", cfg.AllowedOrigins)
	}
	if cfg.EnableBootstrap {
		t.Error("bootstrap should be disabled by default")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("SALE_TX_TIMEOUT", "45s")
	t.Setenv("ALLOWED_ORIGINS", "https://admin.example.com, https://stg.example.com ,")
	t.Setenv("ANALYSIS_WORKERS", "4")
	t.Setenv("ENABLE_BOOTSTRAP", "true")

	cfg := Load()

	if cfg.Port != "9000" {
		t.Errorf("port: got %q, want 9000", cfg.Port)
	}
	if cfg.SaleTxTimeout != 45*time.Second {
		t.Errorf("sale tx timeout: got %s, want 45s", cfg.SaleTxTimeout)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://stg.example.com" {
		t.Errorf("allowed origins: got %v", cfg.AllowedOrigins)
	}
	if cfg.AnalysisWorkers != 4 {
		t.Errorf("analysis workers: got %d, want 4", cfg.AnalysisWorkers)
	}
	if !cfg.EnableBootstrap {
		t.Error("bootstrap should be enabled")
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SALE_TX_TIMEOUT", "soon")
	t.Setenv("ANALYSIS_WORKERS", "-1")
	t.Setenv("AUTO_MIGRATE", "maybe")

	cfg := Load()

	if cfg.SaleTxTimeout != 30*time.Second {
		t.Errorf("sale tx timeout: got %s, want fallback 30s", cfg.SaleTxTimeout)
	}
	if cfg.AnalysisWorkers != 2 {
		t.Errorf("analysis workers: got %d, want fallback 2", cfg.AnalysisWorkers)
	}
	if !cfg.AutoMigrate {
		t.Error("auto migrate should fall back to true")
	}
}
