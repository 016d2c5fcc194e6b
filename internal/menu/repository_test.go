package menu

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`
		CREATE TABLE menus (
			id          TEXT PRIMARY KEY,
			user_code   TEXT NOT NULL,
			menu_data   TEXT NOT NULL,
			totals_main TEXT NOT NULL,
			totals_alt  TEXT NOT NULL,
			created_at  DATETIME NOT NULL
		)`)
	if err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	return db
}

func sampleResult(title string) *BuildResult {
	return &BuildResult{
		Menu: Menu{{
			Meal: "Breakfast",
			Main: BuiltOption{
				MealName:  "Breakfast",
				MealTitle: title,
				Ingredients: []Ingredient{
					{Item: "Eggs", PortionGrams: 110, Calories: 160, Protein: 13, Fat: 11, Carbs: 1},
				},
				Nutrition: MacroTotals{Calories: 160, Protein: 13, Fat: 11, Carbs: 1},
			},
			Alternative: BuiltOption{
				MealName:  "Breakfast",
				MealTitle: "Cottage bowl",
				Nutrition: MacroTotals{Calories: 160, Protein: 13, Fat: 11, Carbs: 1},
			},
		}},
		TotalsMain: MacroTotals{Calories: 160, Protein: 13, Fat: 11, Carbs: 1},
		TotalsAlt:  MacroTotals{Calories: 160, Protein: 13, Fat: 11, Carbs: 1},
	}
}

func TestRepositorySaveAndList(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()

	id, err := repo.Save(ctx, "user-1", sampleResult("Shakshuka"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if id == "" {
		t.Fatal("Save must return an id")
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := repo.Save(ctx, "user-1", sampleResult("Omelette")); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := repo.Save(ctx, "user-2", sampleResult("Granola")); err != nil {
		t.Fatalf("third Save failed: %v", err)
	}

	t.Run("ByUser", func(t *testing.T) {
		records, err := repo.ListRecent(ctx, "user-1", 10)
		if err != nil {
			t.Fatalf("ListRecent failed: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 menus for user-1, got %d", len(records))
		}
		if records[0].Menu[0].Main.MealTitle != "Omelette" {
			t.Errorf("newest menu must come first, got %q", records[0].Menu[0].Main.MealTitle)
		}
		if records[0].TotalsMain.Calories != 160 {
			t.Errorf("totals not restored: %+v", records[0].TotalsMain)
		}
		if records[0].UserCode != "user-1" {
			t.Errorf("unexpected user code %q", records[0].UserCode)
		}
	})

	t.Run("AnyUser", func(t *testing.T) {
		records, err := repo.ListRecent(ctx, "", 10)
		if err != nil {
			t.Fatalf("ListRecent failed: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("expected all 3 menus, got %d", len(records))
		}
	})

	t.Run("Limit", func(t *testing.T) {
		records, err := repo.ListRecent(ctx, "", 1)
		if err != nil {
			t.Fatalf("ListRecent failed: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("expected 1 menu, got %d", len(records))
		}
		if records[0].Menu[0].Main.MealTitle != "Granola" {
			t.Errorf("expected the newest menu, got %q", records[0].Menu[0].Main.MealTitle)
		}
	})

	t.Run("NoRows", func(t *testing.T) {
		records, err := repo.ListRecent(ctx, "nobody", 10)
		if err != nil {
			t.Fatalf("ListRecent failed: %v", err)
		}
		if len(records) != 0 {
			t.Fatalf("expected no menus, got %d", len(records))
		}
	})
}
