package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"subextract/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("SUBEXTRACT_API_TOKEN", "")
	t.Setenv("NTFY_TOPIC", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantStaging := filepath.Join(tempHome, ".local", "share", "subextract", "staging")
	if cfg.Paths.StagingDir != wantStaging {
		t.Fatalf("unexpected staging dir: got %q want %q", cfg.Paths.StagingDir, wantStaging)
	}
	if cfg.Language.Policy != config.PolicyKeepOnly {
		t.Fatalf("expected keep-only policy, got %q", cfg.Language.Policy)
	}
	if cfg.Language.Target != "en" {
		t.Fatalf("expected en target, got %q", cfg.Language.Target)
	}
	if cfg.Language.MinConfidence != 0.7 {
		t.Fatalf("expected min confidence 0.7, got %v", cfg.Language.MinConfidence)
	}
	if cfg.Pipeline.IntervalSeconds != 1.0 {
		t.Fatalf("unexpected interval: %v", cfg.Pipeline.IntervalSeconds)
	}
	if cfg.DatabasePath() != filepath.Join(tempHome, ".local", "share", "subextract", "jobs.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.StagingDir, cfg.Paths.InboxDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPathNormalizesLanguage(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configPath := filepath.Join(t.TempDir(), "subextract.toml")

	type payload struct {
		Language struct {
			Policy     string   `toml:"policy"`
			Target     string   `toml:"target"`
			Candidates []string `toml:"candidates"`
		} `toml:"language"`
		Pipeline struct {
			IntervalSeconds float64 `toml:"interval_seconds"`
		} `toml:"pipeline"`
		Workflow struct {
			MaxWorkers int `toml:"max_workers"`
		} `toml:"workflow"`
	}
	custom := payload{}
	custom.Language.Policy = "Keep_Only"
	custom.Language.Target = "French"
	custom.Language.Candidates = []string{"eng", "deu"}
	custom.Pipeline.IntervalSeconds = 0.5
	custom.Workflow.MaxWorkers = 4
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Language.Policy != config.PolicyKeepOnly {
		t.Fatalf("expected normalized policy, got %q", cfg.Language.Policy)
	}
	if cfg.Language.Target != "fr" {
		t.Fatalf("expected fr target, got %q", cfg.Language.Target)
	}
	want := []string{"en", "de", "fr"}
	if strings.Join(cfg.Language.Candidates, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected candidates: %v", cfg.Language.Candidates)
	}
	if cfg.SampleInterval().Milliseconds() != 500 {
		t.Fatalf("unexpected sample interval: %s", cfg.SampleInterval())
	}
	if cfg.Workflow.MaxWorkers != 4 {
		t.Fatalf("expected 4 workers, got %d", cfg.Workflow.MaxWorkers)
	}
}

func TestEnvFallbacks(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SUBEXTRACT_API_TOKEN", " secret ")
	t.Setenv("NTFY_TOPIC", "https://ntfy.example/alerts")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Gateway.APIToken != "secret" {
		t.Fatalf("expected token from env, got %q", cfg.Gateway.APIToken)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.example/alerts" {
		t.Fatalf("expected topic from env, got %q", cfg.Notifications.NtfyTopic)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"interval", func(c *config.Config) { c.Pipeline.IntervalSeconds = 0 }, "pipeline.interval_seconds"},
		{"confidence", func(c *config.Config) { c.Language.MinConfidence = 1.5 }, "language.min_confidence"},
		{"policy", func(c *config.Config) { c.Language.Policy = "some" }, "language.policy"},
		{"threshold", func(c *config.Config) { c.OCR.Threshold = "mean" }, "ocr.threshold"},
		{"heartbeat", func(c *config.Config) { c.Workflow.HeartbeatTimeout = c.Workflow.HeartbeatInterval }, "heartbeat_timeout"},
		{"workers", func(c *config.Config) { c.Workflow.MaxWorkers = 0 }, "workflow.max_workers"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in error, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample failed: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Gateway.Listen != "127.0.0.1:7590" {
		t.Fatalf("unexpected gateway listen: %q", cfg.Gateway.Listen)
	}
}
