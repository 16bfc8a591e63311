//go:build integration

package test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/FranksOps/satchel/internal/activity"
	"github.com/FranksOps/satchel/internal/aggregate"
	"github.com/FranksOps/satchel/internal/bundle"
	"github.com/FranksOps/satchel/internal/fetch"
	"github.com/FranksOps/satchel/internal/interpret"
	"github.com/FranksOps/satchel/internal/journal"
	"github.com/FranksOps/satchel/internal/llm"
	"github.com/FranksOps/satchel/internal/solver"
	"github.com/FranksOps/satchel/internal/summarize"
	"github.com/FranksOps/satchel/internal/transcript"
)

// mockJournal is an in-memory journal.Backend for verifying records
type mockJournal struct {
	mu      sync.Mutex
	records []*journal.SolutionRecord
}

func (m *mockJournal) Save(ctx context.Context, rec *journal.SolutionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}
func (m *mockJournal) Query(ctx context.Context, filter journal.Filter) ([]*journal.SolutionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records, nil
}
func (m *mockJournal) Close() error { return nil }

type scriptedLLM struct {
	mu      sync.Mutex
	replies map[string]string // keyed by purpose
	calls   []llm.Request
}

func (s *scriptedLLM) Chat(_ context.Context, req llm.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	if reply, ok := s.replies[req.Purpose]; ok {
		return reply, nil
	}
	return "generated text", nil
}

func newPipeline(t *testing.T, client llm.Client, src transcript.Source, j journal.Backend) *solver.Solver {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reporter := activity.NewReporter(nil, logger)
	summarizer := summarize.New(summarize.Config{Client: client, MaxWords: 500}, reporter, logger)

	fetcher, err := fetch.NewFetcher(fetch.Config{Dir: t.TempDir()}, reporter, logger)
	if err != nil {
		t.Fatalf("failed to create fetcher: %v", err)
	}
	collector := aggregate.NewCollector(
		aggregate.Config{},
		fetcher,
		interpret.New(summarizer, reporter, logger),
		transcript.NewRetriever(src, summarizer, reporter, logger),
		reporter,
		logger,
	)

	s, err := solver.New(solver.Config{Model: "hw-model", OutputDir: t.TempDir()}, collector, client, j, reporter, logger)
	if err != nil {
		t.Fatalf("failed to create solver: %v", err)
	}
	return s
}

type disabledSource struct{}

func (disabledSource) Transcript(context.Context, string) ([]transcript.Caption, error) {
	return nil, transcript.ErrDisabled
}

// Scenario: one dead link, one good link, one video with transcripts
// disabled. The bundle must contain all three fragments in input order, the
// failures isolated to their own fragments.
func TestEndToEnd_MixedBundle(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/notes.txt":
			fmt.Fprint(w, "chapter four covers thermodynamics")
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	client := &scriptedLLM{replies: map[string]string{"solution": "A full solution."}}
	j := &mockJournal{}
	s := newPipeline(t, client, disabledSource{}, j)

	deadLink := ts.URL + "/missing.pdf"
	task := &bundle.Task{
		ID:          5,
		Name:        "Thermo Homework",
		Description: "Answer the questions using the notes and lecture.",
		Links:       []string{deadLink, ts.URL + "/notes.txt"},
		VideoIDs:    []string{"dQw4w9WgXcQ"},
	}

	artifact := s.Solve(context.Background(), task)

	if artifact.SupplementaryParts != 3 {
		t.Fatalf("fragments = %d, want 3", artifact.SupplementaryParts)
	}
	if artifact.FailedParts != 2 {
		t.Errorf("failed fragments = %d, want 2 (dead link + disabled transcript)", artifact.FailedParts)
	}

	prompt := artifact.Prompt
	deadIdx := strings.Index(prompt, "[Download failed for: "+deadLink+"]")
	goodIdx := strings.Index(prompt, "chapter four covers thermodynamics")
	videoIdx := strings.Index(prompt, "[Transcripts disabled for YouTube video ID: dQw4w9WgXcQ]")
	if deadIdx < 0 || goodIdx < 0 || videoIdx < 0 {
		t.Fatalf("prompt missing fragments: %d %d %d\n%s", deadIdx, goodIdx, videoIdx, prompt)
	}
	if !(deadIdx < goodIdx && goodIdx < videoIdx) {
		t.Errorf("fragments out of input order: %d %d %d", deadIdx, goodIdx, videoIdx)
	}
	if !strings.Contains(prompt, "--- YouTube Transcript (Video ID: dQw4w9WgXcQ) ---") {
		t.Error("prompt missing transcript block markers")
	}

	if artifact.Answer != "A full solution." {
		t.Errorf("answer = %q", artifact.Answer)
	}
	if data, err := os.ReadFile(artifact.AnswerPath); err != nil || string(data) != "A full solution." {
		t.Errorf("answer file: %v %q", err, data)
	}

	if len(j.records) != 1 {
		t.Fatalf("journal records = %d", len(j.records))
	}
	if j.records[0].Fragments != 3 || j.records[0].FailedFragments != 2 {
		t.Errorf("journal counters: %+v", j.records[0])
	}
}

// Scenario: a task with no links or videos still produces a prompt carrying
// the task identity and the explicit no-content marker.
func TestEndToEnd_EmptyTask(t *testing.T) {
	client := &scriptedLLM{}
	s := newPipeline(t, client, disabledSource{}, &mockJournal{})

	task := &bundle.Task{Name: "Intro Survey", Description: "Tell us about yourself."}
	artifact := s.Solve(context.Background(), task)

	if artifact.SupplementaryParts != 0 {
		t.Errorf("fragments = %d, want 0", artifact.SupplementaryParts)
	}
	if !strings.Contains(artifact.Prompt, "Assignment Name: Intro Survey") {
		t.Error("prompt missing task name")
	}
	if !strings.Contains(artifact.Prompt, "Tell us about yourself.") {
		t.Error("prompt missing description")
	}
	if !strings.Contains(artifact.Prompt, bundle.NoSupplementaryContent) {
		t.Error("prompt missing no-content marker")
	}
}

// Scenario: reflective-question replies wrapped in reasoning tags still
// parse; the question set is recovered from the embedded JSON.
func TestEndToEnd_ReflectiveQuestionRecovery(t *testing.T) {
	client := &scriptedLLM{replies: map[string]string{
		"reflection": "<think>reasoning</think>{\"questions\":[\"Q1\",\"Q2\"]}",
	}}
	s := newPipeline(t, client, disabledSource{}, &mockJournal{})

	got := s.ReflectiveQuestions(context.Background(), "CHEM 1A", &bundle.Task{Name: "Lab 2", Description: "Titration."})
	if len(got) != 2 || got[0] != "Q1" || got[1] != "Q2" {
		t.Errorf("questions = %v", got)
	}
}
