package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"ai-menu-builder/internal/config"
	"ai-menu-builder/internal/metrics"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		LLMProvider:  config.ProviderGroq,
		GroqAPIKey:   "test-key",
		GroqModel:    "test-model",
		DataDir:      dir,
		DatabasePath: filepath.Join(dir, "app.db"),
	}
	a, err := New(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestSeedProfile(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	t.Run("StoresAndLoads", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "profile.json")
		record := `{"calories_per_day": 1750, "macros": {"protein": 130, "fat": 55}}`
		if err := os.WriteFile(path, []byte(record), 0644); err != nil {
			t.Fatalf("failed to write profile file: %v", err)
		}

		if err := a.SeedProfile(ctx, "client-9", path); err != nil {
			t.Fatalf("SeedProfile failed: %v", err)
		}

		prefs, err := a.Loader.Load(ctx, "client-9")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if prefs.CaloriesPerDay != 1750 {
			t.Errorf("expected 1750 kcal, got %v", prefs.CaloriesPerDay)
		}
		if prefs.DailyProtein() != 130 {
			t.Errorf("expected 130g protein, got %v", prefs.DailyProtein())
		}
	})

	t.Run("RejectsInvalidJSON", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broken.json")
		if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
			t.Fatalf("failed to write profile file: %v", err)
		}

		err := a.SeedProfile(ctx, "client-9", path)
		if err == nil || !strings.Contains(err.Error(), "not valid JSON") {
			t.Errorf("expected invalid JSON error, got %v", err)
		}
	})
}

func TestCleanupMetrics(t *testing.T) {
	a := newTestApp(t)

	old := metrics.ExecutionMetric{
		AgentName:    "OptionBuilder",
		Model:        "test-model",
		PromptTokens: 10,
		Timestamp:    time.Now().UTC().AddDate(0, 0, -40),
	}
	if err := a.Metrics.Record(old); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	if err := a.CleanupMetrics(30); err != nil {
		t.Fatalf("CleanupMetrics failed: %v", err)
	}

	var count int
	if err := a.DB.SQL.QueryRow(`SELECT COUNT(*) FROM execution_metrics`).Scan(&count); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected old metrics removed, found %d rows", count)
	}
}
