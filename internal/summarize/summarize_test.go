package summarize

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/FranksOps/satchel/internal/llm"
)

type fakeClient struct {
	reply string
	err   error
	calls int
	last  llm.Request
}

func (f *fakeClient) Chat(_ context.Context, req llm.Request) (string, error) {
	f.calls++
	f.last = req
	return f.reply, f.err
}

func newSummarizer(c llm.Client, maxWords int) *Summarizer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(Config{Client: c, Model: "summary-model", MaxWords: maxWords}, nil, logger)
}

func TestSummarize_EmptyInput(t *testing.T) {
	fc := &fakeClient{}
	s := newSummarizer(fc, 10)

	for _, in := range []string{"", "   ", "\n\t"} {
		if got := s.Summarize(context.Background(), in); got != NoContent {
			t.Errorf("Summarize(%q) = %q, want %q", in, got, NoContent)
		}
	}
	if fc.calls != 0 {
		t.Errorf("collaborator must not be called for empty input, got %d calls", fc.calls)
	}
}

func TestSummarize_WithinBudgetPassthrough(t *testing.T) {
	fc := &fakeClient{}
	s := newSummarizer(fc, 10)

	in := "short text,  spacing   and\npunctuation preserved exactly"
	if got := s.Summarize(context.Background(), in); got != in {
		t.Errorf("within-budget text must be byte-identical: got %q", got)
	}
	if fc.calls != 0 {
		t.Errorf("collaborator must not be called under the budget, got %d calls", fc.calls)
	}
}

func TestSummarize_OverBudgetCallsCollaborator(t *testing.T) {
	fc := &fakeClient{reply: "a compact summary"}
	s := newSummarizer(fc, 5)

	in := strings.Repeat("word ", 50)
	got := s.Summarize(context.Background(), in)
	if got != "a compact summary" {
		t.Errorf("got %q, want collaborator reply", got)
	}
	if fc.calls != 1 {
		t.Fatalf("expected 1 collaborator call, got %d", fc.calls)
	}
	if fc.last.Model != "summary-model" {
		t.Errorf("model = %q", fc.last.Model)
	}
	if len(fc.last.Messages) != 2 || fc.last.Messages[0].Role != "system" {
		t.Errorf("unexpected messages: %+v", fc.last.Messages)
	}
	if fc.last.Temperature != 0.3 || fc.last.MaxTokens != 1000 {
		t.Errorf("unexpected request bounds: temp %v, max tokens %d", fc.last.Temperature, fc.last.MaxTokens)
	}
}

func TestSummarize_TruncationFallback(t *testing.T) {
	fc := &fakeClient{err: errors.New("collaborator down")}
	s := newSummarizer(fc, 4)

	in := "one two three four five six seven"
	got := s.Summarize(context.Background(), in)
	want := "one two three four... [truncated due to summarization error]"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSummarize_SourceCutOnRuneBoundary(t *testing.T) {
	fc := &fakeClient{reply: "ok"}
	s := newSummarizer(fc, 5)

	// 3 bytes per "é " pair leaves the character ceiling mid-rune.
	in := strings.Repeat("é ", 8000)
	_ = s.Summarize(context.Background(), in)

	user := fc.last.Messages[1].Content
	if !utf8.ValidString(user) {
		t.Error("prompt contains a split rune")
	}
}

func TestSummarize_SourceTruncatedInPrompt(t *testing.T) {
	fc := &fakeClient{reply: "ok"}
	s := newSummarizer(fc, 5)

	in := strings.Repeat("x ", 20000) // far beyond the character ceiling
	_ = s.Summarize(context.Background(), in)

	user := fc.last.Messages[1].Content
	if len(user) > 11000 {
		t.Errorf("prompt not bounded: %d chars", len(user))
	}
}
