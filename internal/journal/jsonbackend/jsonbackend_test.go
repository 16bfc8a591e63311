package jsonbackend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/FranksOps/satchel/internal/journal"
)

func TestJSONBackend(t *testing.T) {
	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "satchel.jsonl")

	b, err := New(filePath)
	if err != nil {
		t.Fatalf("Failed to create JSON backend: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	now := time.Now().Truncate(time.Millisecond).UTC() // JSON marshals with precision limits

	rec1 := &journal.SolutionRecord{
		ID:           "json1",
		TaskID:       1,
		TaskName:     "Problem Set 1",
		PromptPath:   "outputs/full_prompt_Problem_Set_1.txt",
		AnswerPath:   "outputs/Problem_Set_1_answer.md",
		PromptLength: 900,
		Fragments:    2,
		Duration:     10 * time.Millisecond,
		CreatedAt:    now.Add(-2 * time.Hour),
	}

	rec2 := &journal.SolutionRecord{
		ID:              "json2",
		TaskID:          2,
		TaskName:        "Lab Report",
		PromptPath:      "outputs/full_prompt_Lab_Report.txt",
		PromptLength:    400,
		Fragments:       1,
		FailedFragments: 1,
		Duration:        20 * time.Millisecond,
		CreatedAt:       now.Add(-1 * time.Hour),
		Error:           "generation failed: connection refused",
	}

	if err := b.Save(ctx, rec1); err != nil {
		t.Fatalf("Failed to save record 1: %v", err)
	}
	if err := b.Save(ctx, rec2); err != nil {
		t.Fatalf("Failed to save record 2: %v", err)
	}

	// Test TaskName filter
	byName, err := b.Query(ctx, journal.Filter{TaskName: "Lab Report"})
	if err != nil {
		t.Fatalf("Failed to query by task name: %v", err)
	}
	if len(byName) != 1 || byName[0].ID != "json2" {
		t.Fatalf("Expected json2 for task name filter, got %+v", byName)
	}

	// Test Failed filter
	boolTrue := true
	byFailed, err := b.Query(ctx, journal.Filter{Failed: &boolTrue})
	if err != nil {
		t.Fatalf("Failed to query by failed: %v", err)
	}
	if len(byFailed) != 1 || byFailed[0].ID != "json2" {
		t.Fatalf("Expected json2 for failed filter, got %+v", byFailed)
	}

	// Test Since filter
	past := now.Add(-90 * time.Minute)
	bySince, err := b.Query(ctx, journal.Filter{Since: &past})
	if err != nil {
		t.Fatalf("Failed to query by since: %v", err)
	}
	if len(bySince) != 1 || bySince[0].ID != "json2" {
		t.Fatalf("Expected json2 for since filter, got %+v", bySince)
	}

	// Test no filters, ordering (newest first)
	all, err := b.Query(ctx, journal.Filter{})
	if err != nil {
		t.Fatalf("Failed to query all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(all))
	}
	if all[0].ID != "json2" {
		t.Errorf("Expected json2 first, got %s", all[0].ID)
	}

	// Test limit
	limited, err := b.Query(ctx, journal.Filter{Limit: 1})
	if err != nil {
		t.Fatalf("Failed to query limit: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(limited))
	}

	// Test offset
	offset, err := b.Query(ctx, journal.Filter{Offset: 1})
	if err != nil {
		t.Fatalf("Failed to query offset: %v", err)
	}
	if len(offset) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(offset))
	}
	if offset[0].ID != "json1" {
		t.Errorf("Expected json1 for offset 1, got %s", offset[0].ID)
	}
}
