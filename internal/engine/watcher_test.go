package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"

	"metacog/internal/config"
	"metacog/internal/intervention"
)

func TestConfigWatcher_StartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	ev := newTestEvaluator(t)
	path := filepath.Join(t.TempDir(), "metacog.yaml")
	if err := config.DefaultConfig().Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	w, err := NewConfigWatcher(path, ev, nil)
	if err != nil {
		t.Fatalf("NewConfigWatcher failed: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	// Idempotent start and stop.
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("second Start failed: %v", err)
	}
	w.Stop()
	w.Stop()
}

func TestConfigWatcher_ReloadsOnChange(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := config.DefaultConfig()
	ev, err := NewWithStore(cfg, intervention.NewMemoryStore(), nil)
	if err != nil {
		t.Fatalf("NewWithStore failed: %v", err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "metacog.yaml")
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	w, err := NewConfigWatcher(path, ev, nil)
	if err != nil {
		t.Fatalf("NewConfigWatcher failed: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	cfg.Suppression.DismissalThreshold = 5
	if err := cfg.Save(path); err != nil {
		t.Fatalf("rewrite failed: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for w.Stats().Reloads == 0 {
		select {
		case <-deadline:
			t.Fatal("config change never reloaded")
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func TestConfigWatcher_RejectsInvalidConfig(t *testing.T) {
	defer goleak.VerifyNone(t)

	ev := newTestEvaluator(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "metacog.yaml")
	if err := config.DefaultConfig().Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	w, err := NewConfigWatcher(path, ev, nil)
	if err != nil {
		t.Fatalf("NewConfigWatcher failed: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("patterns: {fallback: Z}\n"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for w.Stats().ReloadErrors == 0 {
		select {
		case <-deadline:
			t.Fatal("invalid config never observed")
		case <-time.After(50 * time.Millisecond):
		}
	}
	if w.Stats().Reloads != 0 {
		t.Error("invalid config must not count as a reload")
	}
}
