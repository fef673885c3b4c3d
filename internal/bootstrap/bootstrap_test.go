package bootstrap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kirillkom/document-triage/internal/config"
	"github.com/kirillkom/document-triage/internal/core/domain"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Load()
	cfg.ClassifierConfigDir = t.TempDir()
	cfg.FiletypesPath = ""
	cfg.ReviewStoragePath = filepath.Join(t.TempDir(), "review")
	cfg.FallbackModelPath = ""
	cfg.PostgresDSN = ""
	cfg.NATSURL = ""
	return cfg
}

func TestLoadEngineUsesBundledDefaults(t *testing.T) {
	engine, sources, err := LoadEngine(testConfig(t))
	if err != nil {
		t.Fatalf("LoadEngine() error = %v", err)
	}
	if sources.Rules != "bundled" || sources.Filetypes != "bundled" {
		t.Fatalf("expected bundled sources, got %+v", sources)
	}
	if len(engine.Rules) == 0 || !engine.Filetypes.Supports(".pdf") {
		t.Fatalf("expected default rules and filetypes, got %d rules", len(engine.Rules))
	}
}

func TestLoadEnginePrefersOverrideDir(t *testing.T) {
	cfg := testConfig(t)
	override := "- label: payslip\n  filename_regex: [payslip]\n"
	if err := os.WriteFile(filepath.Join(cfg.ClassifierConfigDir, "industry_rules.yaml"), []byte(override), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}

	engine, sources, err := LoadEngine(cfg)
	if err != nil {
		t.Fatalf("LoadEngine() error = %v", err)
	}
	if !strings.HasPrefix(sources.Rules, cfg.ClassifierConfigDir) {
		t.Fatalf("expected override source, got %q", sources.Rules)
	}
	if len(engine.Rules) != 1 || engine.Rules[0].Label != "payslip" {
		t.Fatalf("unexpected rules %+v", engine.Rules)
	}
}

func TestLoadEngineRejectsBrokenRules(t *testing.T) {
	cfg := testConfig(t)
	broken := "- label: invoice\n  filename_regex: ['(unclosed']\n"
	if err := os.WriteFile(filepath.Join(cfg.ClassifierConfigDir, "industry_rules.yaml"), []byte(broken), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}

	_, _, err := LoadEngine(cfg)
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestNewWiresStandaloneClassifier(t *testing.T) {
	app, err := New(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close()

	if app.Queue != nil || app.Reviews != nil {
		t.Fatalf("optional side channels must stay off without NATS_URL and POSTGRES_DSN")
	}

	body := strings.NewReader("%PDF-1.4")
	result, err := app.Classifier.Classify(context.Background(), domain.Upload{
		Filename: "my_invoice.pdf",
		Size:     body.Size(),
		Content:  body,
	})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if !result.OK() || result.Success.Label != "invoice" || result.Success.Step != domain.StepFilenameRegex {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.ReviewKeyStrategy = "random"
	if _, err := New(context.Background(), cfg); !errors.Is(err, domain.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestNewFailsOnMissingFallbackModel(t *testing.T) {
	cfg := testConfig(t)
	cfg.FallbackModelPath = filepath.Join(t.TempDir(), "missing.json")
	if _, err := New(context.Background(), cfg); err == nil {
		t.Fatalf("expected error for missing fallback model")
	}
}

func TestNewWorkerRequiresQueueAndDatabase(t *testing.T) {
	if _, err := NewWorker(context.Background(), testConfig(t)); err == nil {
		t.Fatalf("expected error without NATS_URL and POSTGRES_DSN")
	}
}
