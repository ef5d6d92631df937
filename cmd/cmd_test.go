package cmd

import (
	"path/filepath"
	"testing"

	"github.com/abhisek/brigade/internal/config"
	"github.com/abhisek/brigade/internal/questionbank"
)

func TestDecodeUnits(t *testing.T) {
	one, err := decodeUnits([]byte(`{"id":"allergens-101","title":"Allergens","content":"Nuts..."}`))
	if err != nil {
		t.Fatalf("single unit: %v", err)
	}
	if len(one) != 1 || one[0].ID != "allergens-101" {
		t.Fatalf("single unit = %+v", one)
	}

	many, err := decodeUnits([]byte(`
	[
		{"id":"wine-201","content":"Pairings","assessmentType":"conversation","topics":["pairing"]},
		{"id":"service-101","content":"Steps of service","passingThreshold":80}
	]`))
	if err != nil {
		t.Fatalf("unit array: %v", err)
	}
	if len(many) != 2 || many[0].AssessmentType != questionbank.AssessmentConversation || many[1].PassingThreshold != 80 {
		t.Fatalf("unit array = %+v, %+v", many[0], many[1])
	}

	if _, err := decodeUnits([]byte(`{"id":`)); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
}

func TestResolveDSN(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BRIGADE_DB", filepath.Join(dir, "default", "brigade.db"))

	cfg := config.Default()
	got, err := resolveDSN(cfg)
	if err != nil || got != filepath.Join(dir, "default", "brigade.db") {
		t.Fatalf("default sqlite path = %q, %v", got, err)
	}

	cfg.DBDSN = filepath.Join(dir, "nested", "x.db")
	if got, err = resolveDSN(cfg); err != nil || got != cfg.DBDSN {
		t.Fatalf("explicit sqlite path = %q, %v", got, err)
	}

	cfg.DBDriver, cfg.DBDSN = "postgres", "postgres://brigade@localhost/brigade"
	if got, err = resolveDSN(cfg); err != nil || got != cfg.DBDSN {
		t.Fatalf("postgres dsn = %q, %v", got, err)
	}
}

func TestTruncateAndCost(t *testing.T) {
	if truncate("claude-haiku-4-5", 6) != "claude" || truncate("mock", 6) != "mock" {
		t.Error("truncate")
	}
	if formatCost(0.0042) != "$0.0042" || formatCost(1.5) != "$1.50" {
		t.Errorf("formatCost = %s, %s", formatCost(0.0042), formatCost(1.5))
	}
}

func TestBuildVersionPrefersLinkerValue(t *testing.T) {
	old := version
	t.Cleanup(func() { version = old })

	version = "v1.4.0"
	if got := buildVersion(); got != "v1.4.0" {
		t.Errorf("buildVersion() = %q", got)
	}
	version = ""
	if got := buildVersion(); got == "" {
		t.Error("empty fallback version")
	}
}
