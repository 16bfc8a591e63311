package solver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/FranksOps/satchel/internal/aggregate"
	"github.com/FranksOps/satchel/internal/bundle"
	"github.com/FranksOps/satchel/internal/fetch"
	"github.com/FranksOps/satchel/internal/interpret"
	"github.com/FranksOps/satchel/internal/journal"
	"github.com/FranksOps/satchel/internal/llm"
	"github.com/FranksOps/satchel/internal/summarize"
	"github.com/FranksOps/satchel/internal/transcript"
)

type fakeLLM struct {
	reply string
	err   error
	last  llm.Request
}

func (f *fakeLLM) Chat(_ context.Context, req llm.Request) (string, error) {
	f.last = req
	return f.reply, f.err
}

type memJournal struct {
	mu      sync.Mutex
	records []*journal.SolutionRecord
}

func (m *memJournal) Save(_ context.Context, rec *journal.SolutionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *memJournal) Query(context.Context, journal.Filter) ([]*journal.SolutionRecord, error) {
	return nil, nil
}

func (m *memJournal) Close() error { return nil }

type noSource struct{}

func (noSource) Transcript(context.Context, string) ([]transcript.Caption, error) {
	return nil, transcript.ErrNotFound
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSolver(t *testing.T, client *fakeLLM, j journal.Backend) *Solver {
	t.Helper()
	logger := discardLogger()
	summarizer := summarize.New(summarize.Config{Client: client, MaxWords: 500}, nil, logger)

	fetcher, err := fetch.NewFetcher(fetch.Config{Dir: t.TempDir()}, nil, logger)
	if err != nil {
		t.Fatalf("failed to create fetcher: %v", err)
	}
	collector := aggregate.NewCollector(
		aggregate.Config{},
		fetcher,
		interpret.New(summarizer, nil, logger),
		transcript.NewRetriever(noSource{}, summarizer, nil, logger),
		nil,
		logger,
	)

	s, err := New(Config{Model: "hw-model", OutputDir: t.TempDir()}, collector, client, j, nil, logger)
	if err != nil {
		t.Fatalf("failed to create solver: %v", err)
	}
	return s
}

func TestSolve_EmptyTaskAssemblesAndPersists(t *testing.T) {
	client := &fakeLLM{reply: "The final answer."}
	j := &memJournal{}
	s := newSolver(t, client, j)

	task := &bundle.Task{ID: 11, Name: "Week 3: Essay!", Description: "Write about rivers."}
	artifact := s.Solve(context.Background(), task)

	if !strings.Contains(artifact.Prompt, "Assignment Name: Week 3: Essay!") {
		t.Error("prompt missing assignment name")
	}
	if !strings.Contains(artifact.Prompt, "Write about rivers.") {
		t.Error("prompt missing description")
	}
	if !strings.Contains(artifact.Prompt, bundle.NoSupplementaryContent) {
		t.Error("empty bundle must render the no-content marker")
	}
	if artifact.Answer != "The final answer." {
		t.Errorf("answer = %q", artifact.Answer)
	}
	if artifact.SupplementaryParts != 0 || artifact.FailedParts != 0 {
		t.Errorf("counters: %d/%d", artifact.SupplementaryParts, artifact.FailedParts)
	}
	if artifact.PromptLength != len(artifact.Prompt) {
		t.Errorf("prompt length %d != %d", artifact.PromptLength, len(artifact.Prompt))
	}

	if filepath.Base(artifact.PromptPath) != "full_prompt_Week_3__Essay_.txt" {
		t.Errorf("prompt path = %q", artifact.PromptPath)
	}
	if filepath.Base(artifact.AnswerPath) != "Week_3__Essay__answer.md" {
		t.Errorf("answer path = %q", artifact.AnswerPath)
	}
	for _, p := range []string{artifact.PromptPath, artifact.AnswerPath} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("artifact file %s not persisted: %v", p, err)
		}
	}

	if client.last.Temperature != 0.3 {
		t.Errorf("temperature = %v", client.last.Temperature)
	}
	if client.last.Model != "hw-model" {
		t.Errorf("model = %q", client.last.Model)
	}

	if len(j.records) != 1 {
		t.Fatalf("expected 1 journal record, got %d", len(j.records))
	}
	rec := j.records[0]
	if rec.TaskID != 11 || rec.TaskName != "Week 3: Essay!" || rec.Error != "" {
		t.Errorf("journal record: %+v", rec)
	}
	if rec.ID == "" {
		t.Error("journal record must carry an id")
	}
}

func TestSolve_GenerationFailureBecomesPlaceholder(t *testing.T) {
	client := &fakeLLM{err: errors.New("endpoint down")}
	j := &memJournal{}
	s := newSolver(t, client, j)

	artifact := s.Solve(context.Background(), &bundle.Task{Name: "Lab", Description: "Measure things."})

	want := "[Error generating solution via API: endpoint down]"
	if artifact.Answer != want {
		t.Errorf("answer = %q, want %q", artifact.Answer, want)
	}
	if artifact.AnswerPath != "" {
		t.Errorf("no answer file expected, got %q", artifact.AnswerPath)
	}
	if artifact.PromptPath == "" {
		t.Error("prompt must still be persisted on generation failure")
	}
	if len(j.records) != 1 || j.records[0].Error == "" {
		t.Errorf("journal must record the generation error: %+v", j.records)
	}
}

func TestSolve_FailedFragmentsCounted(t *testing.T) {
	client := &fakeLLM{reply: "done"}
	j := &memJournal{}
	s := newSolver(t, client, j)

	// noSource makes every transcript a not-found placeholder.
	task := &bundle.Task{Name: "Video Review", VideoIDs: []string{"aaaaaaaaaaa", "bbbbbbbbbbb"}}
	artifact := s.Solve(context.Background(), task)

	if artifact.SupplementaryParts != 2 || artifact.FailedParts != 2 {
		t.Errorf("counters: %d/%d, want 2/2", artifact.SupplementaryParts, artifact.FailedParts)
	}
	if !strings.Contains(artifact.Prompt, "[No transcript found for YouTube video ID: aaaaaaaaaaa]") {
		t.Error("prompt missing transcript placeholder")
	}
	if j.records[0].Fragments != 2 || j.records[0].FailedFragments != 2 {
		t.Errorf("journal counters: %+v", j.records[0])
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Week 3: Essay!", "Week_3__Essay_"},
		{"plain_name", "plain_name"},
		{strings.Repeat("a", 60), strings.Repeat("a", 50)},
		{"", ""},
	}
	for _, tc := range tests {
		if got := sanitizeName(tc.in); got != tc.want {
			t.Errorf("sanitizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
