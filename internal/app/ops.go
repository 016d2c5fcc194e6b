package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"ai-menu-builder/internal/shared"
)

// ImportDish fetches one recipe page into the dish library.
func (a *App) ImportDish(ctx context.Context, url string) error {
	fmt.Printf("Importing dish from %s...\n", url)

	result, err := a.Importer.ImportFromURL(ctx, url)
	if recErr := a.Metrics.RecordAll([]shared.AgentMeta{result.Meta}); recErr != nil {
		a.Logger.Warn("Failed to record execution metrics", zap.Error(recErr))
	}
	if err != nil {
		return fmt.Errorf("failed to import dish: %w", err)
	}
	if err := a.Library.Add(ctx, result.Dish); err != nil {
		return fmt.Errorf("failed to save dish: %w", err)
	}

	fmt.Printf("Imported %q (%d ingredients, %.0f kcal per serving)\n",
		result.Dish.Title, len(result.Dish.Ingredients), result.Dish.Nutrition.Calories)
	return nil
}

// SeedProfile stores a raw profile record read from a JSON file.
func (a *App) SeedProfile(ctx context.Context, userCode, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read profile file: %w", err)
	}
	if !json.Valid(raw) {
		return fmt.Errorf("profile file %s is not valid JSON", path)
	}
	if err := a.Profiles.SaveRecord(ctx, userCode, raw); err != nil {
		return err
	}
	fmt.Printf("Profile %s saved.\n", userCode)
	return nil
}

// CleanupMetrics removes metric rows older than the given number of
// days.
func (a *App) CleanupMetrics(days int) error {
	affected, err := a.Metrics.Cleanup(days)
	if err != nil {
		return err
	}
	fmt.Printf("Successfully removed %d old metric records.\n", affected)
	return nil
}
