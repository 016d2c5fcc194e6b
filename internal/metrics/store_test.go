package metrics

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"ai-menu-builder/internal/shared"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`
		CREATE TABLE execution_metrics (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			agent_name        TEXT NOT NULL,
			model             TEXT NOT NULL,
			prompt_tokens     INTEGER NOT NULL,
			completion_tokens INTEGER NOT NULL,
			latency_ms        INTEGER NOT NULL,
			timestamp         DATETIME NOT NULL
		)`)
	if err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	return NewStore(db)
}

func TestStoreRecordAndUsage(t *testing.T) {
	store := newTestStore(t)

	metas := []shared.AgentMeta{
		{
			AgentName: "TemplateGenerator",
			Usage:     shared.TokenUsage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150, Model: "gemini-2.0-flash"},
			Latency:   1200 * time.Millisecond,
		},
		{
			AgentName: "OptionBuilder",
			Usage:     shared.TokenUsage{PromptTokens: 200, CompletionTokens: 80, TotalTokens: 280, Model: "gemini-2.0-flash"},
			Latency:   900 * time.Millisecond,
		},
		// No usage, must be skipped.
		{AgentName: "OptionBuilder"},
	}
	if err := store.RecordAll(metas); err != nil {
		t.Fatalf("RecordAll failed: %v", err)
	}

	daily, err := store.GetDailyUsage(7)
	if err != nil {
		t.Fatalf("GetDailyUsage failed: %v", err)
	}
	if len(daily) != 1 {
		t.Fatalf("expected 1 day of usage, got %d", len(daily))
	}
	if daily[0].TotalPrompt != 300 || daily[0].TotalCompletion != 130 {
		t.Errorf("unexpected totals: %+v", daily[0])
	}
	if daily[0].TotalExecution != 2 {
		t.Errorf("expected 2 executions, the empty meta must be skipped, got %d", daily[0].TotalExecution)
	}

	agents, err := store.GetAgentUsage(7)
	if err != nil {
		t.Fatalf("GetAgentUsage failed: %v", err)
	}
	if len(agents) != 2 {
		t.Fatalf("expected 2 agent rows, got %d", len(agents))
	}
	if agents[0].AgentName != "OptionBuilder" || agents[0].Executions != 1 {
		t.Errorf("unexpected first agent row: %+v", agents[0])
	}
	if agents[1].AgentName != "TemplateGenerator" || agents[1].TotalPrompt != 100 {
		t.Errorf("unexpected second agent row: %+v", agents[1])
	}
}

func TestStoreCleanup(t *testing.T) {
	store := newTestStore(t)

	old := ExecutionMetric{
		AgentName:    "TemplateGenerator",
		Model:        "gemini-2.0-flash",
		PromptTokens: 10,
		Timestamp:    time.Now().UTC().AddDate(0, 0, -40),
	}
	fresh := ExecutionMetric{
		AgentName:    "TemplateGenerator",
		Model:        "gemini-2.0-flash",
		PromptTokens: 20,
	}
	if err := store.Record(old); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := store.Record(fresh); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	dropped, err := store.Cleanup(30)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if dropped != 1 {
		t.Errorf("expected 1 dropped record, got %d", dropped)
	}

	daily, err := store.GetDailyUsage(60)
	if err != nil {
		t.Fatalf("GetDailyUsage failed: %v", err)
	}
	if len(daily) != 1 || daily[0].TotalPrompt != 20 {
		t.Errorf("only the fresh record should remain, got %+v", daily)
	}
}
