package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"onboarding/api/internal/completion"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Backend != BackendPostgres {
		t.Fatalf("expected postgres backend, got %q", cfg.Backend)
	}
	if cfg.AccessTTL != 15*time.Minute {
		t.Fatalf("expected 15m access ttl, got %s", cfg.AccessTTL)
	}
	if cfg.Onboarding.Weights != completion.DefaultScoreWeights {
		t.Fatalf("unexpected weights %+v", cfg.Onboarding.Weights)
	}
	if len(cfg.Onboarding.RequiredDocuments) != len(completion.DefaultRequiredDocuments) {
		t.Fatalf("unexpected documents %v", cfg.Onboarding.RequiredDocuments)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PROFILE_BACKEND", "sqlite")
	t.Setenv("CATALOG_FALLBACK", "apqc, v2,,")
	t.Setenv("SCORE_WEIGHT_MANDATORY", "0.5")
	t.Setenv("SCORE_THRESHOLD", "not-a-number")
	t.Setenv("MINIO_SECURE", "true")

	cfg := Load()
	if cfg.Backend != BackendSQLite {
		t.Fatalf("expected sqlite backend, got %q", cfg.Backend)
	}
	if strings.Join(cfg.Catalog.Fallback, "|") != "apqc|v2" {
		t.Fatalf("unexpected fallback %v", cfg.Catalog.Fallback)
	}
	if cfg.Onboarding.Weights.Mandatory != 0.5 || cfg.Onboarding.Weights.Threshold != 80 {
		t.Fatalf("unexpected weights %+v", cfg.Onboarding.Weights)
	}
	if !cfg.Minio.Secure {
		t.Fatal("expected minio secure")
	}
}

func TestOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "onboarding.yaml")
	data := `
addr: ":9000"
accessTtl: 5m
catalog:
  fallback: [apqc]
onboarding:
  requiredDocuments: ["Trade License"]
  weights:
    mandatory: 0.6
    documents: 0.4
    threshold: 75
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	base := Load()
	cfg, err := Overlay(base, path)
	if err != nil {
		t.Fatalf("Overlay() error = %v", err)
	}
	if cfg.Addr != ":9000" || cfg.AccessTTL != 5*time.Minute {
		t.Fatalf("overlay not applied: %s %s", cfg.Addr, cfg.AccessTTL)
	}
	if cfg.JWTSecret != base.JWTSecret || cfg.RefreshTTL != base.RefreshTTL {
		t.Fatal("keys absent from the file must keep their base value")
	}
	if cfg.Catalog.QuestionTotal != base.Catalog.QuestionTotal || cfg.Catalog.Fallback[0] != "apqc" {
		t.Fatalf("unexpected catalog config %+v", cfg.Catalog)
	}
	want := completion.ScoreWeights{Mandatory: 0.6, Documents: 0.4, Threshold: 75}
	if cfg.Onboarding.Weights != want || cfg.Onboarding.RequiredDocuments[0] != "Trade License" {
		t.Fatalf("unexpected onboarding config %+v", cfg.Onboarding)
	}
}

func TestOverlayErrors(t *testing.T) {
	if _, err := Overlay(Load(), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	_ = os.WriteFile(path, []byte("addr: [unterminated"), 0o600)
	if _, err := Overlay(Load(), path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	cfg := Load()
	cfg.Backend = "mongo"
	cfg.JWTSecret = " "
	cfg.Onboarding.Weights = completion.ScoreWeights{}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"backend", "jwtSecret", "score weights"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
}
