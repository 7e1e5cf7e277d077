package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"subextract/internal/config"
)

// ConfigOption adjusts a test config after the temp layout is in place.
type ConfigOption func(t testing.TB, base string, cfg *config.Config)

// NewConfig returns a default config whose directories and control socket
// all live under a fresh t.TempDir. Poll and heartbeat intervals are cut to
// one second so lane tests do not idle.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths = config.Paths{
		StateDir:   filepath.Join(base, "state"),
		StagingDir: filepath.Join(base, "staging"),
		InboxDir:   filepath.Join(base, "inbox"),
		LogDir:     filepath.Join(base, "logs"),
		SocketPath: filepath.Join(base, "subextract.sock"),
	}
	cfg.Gateway.Listen = "127.0.0.1:0"
	cfg.Workflow.QueuePollInterval = 1
	cfg.Workflow.HeartbeatInterval = 1

	for _, apply := range opts {
		apply(t, base, &cfg)
	}
	return &cfg
}

// WithWorkers sets workflow.max_workers.
func WithWorkers(n int) ConfigOption {
	return func(_ testing.TB, _ string, cfg *config.Config) {
		cfg.Workflow.MaxWorkers = n
	}
}

// WithLanguagePolicy sets the language filter mode and target.
func WithLanguagePolicy(policy, target string) ConfigOption {
	return func(_ testing.TB, _ string, cfg *config.Config) {
		cfg.Language.Policy = policy
		cfg.Language.Target = target
	}
}

// WithStubbedBinaries puts no-op shell scripts named after each tool first on
// PATH for the duration of the test. ffmpeg, ffprobe and tesseract are used
// when no names are given.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(t testing.TB, base string, _ *config.Config) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe", "tesseract"}
		}
		bin := filepath.Join(base, "bin")
		if err := os.MkdirAll(bin, 0o755); err != nil {
			t.Fatalf("create stub dir: %v", err)
		}
		for _, name := range names {
			if err := os.WriteFile(filepath.Join(bin, name), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
				t.Fatalf("stub %s: %v", name, err)
			}
		}
		t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the temp root a NewConfig result was built under.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StagingDir)
}
