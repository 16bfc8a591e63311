// Package summarize caps the volume of harvested text. Long material is
// compressed through the generation collaborator; when that fails, a
// deterministic truncation keeps the content from disappearing entirely.
package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/FranksOps/satchel/internal/activity"
	"github.com/FranksOps/satchel/internal/llm"
)

const (
	// DefaultMaxWords is the summary word ceiling.
	DefaultMaxWords = 500
	// maxSourceChars bounds the request size: source text beyond this is cut
	// before it reaches the prompt.
	maxSourceChars = 10000

	// NoContent marks empty or whitespace-only input.
	NoContent = "[No content to summarize]"
	// truncationMarker trails the deterministic fallback.
	truncationMarker = "... [truncated due to summarization error]"

	systemPrompt = "You are a helpful assistant that summarizes academic materials concisely and accurately."
)

// Config sets up a Summarizer.
type Config struct {
	Client llm.Client
	Model  string
	// MaxWords is the word ceiling; default DefaultMaxWords.
	MaxWords int
}

// Summarizer compresses text that exceeds its word budget.
type Summarizer struct {
	cfg    Config
	report *activity.Reporter
	logger *slog.Logger
}

// New builds a Summarizer.
func New(cfg Config, report *activity.Reporter, logger *slog.Logger) *Summarizer {
	if cfg.MaxWords <= 0 {
		cfg.MaxWords = DefaultMaxWords
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{cfg: cfg, report: report, logger: logger}
}

// MaxWords returns the configured word ceiling.
func (s *Summarizer) MaxWords() int { return s.cfg.MaxWords }

// Summarize returns text unchanged when it fits the word budget, an
// abstractive summary when it does not, and a deterministic truncation when
// the collaborator fails. Output is never empty for non-empty input.
func (s *Summarizer) Summarize(ctx context.Context, text string) string {
	s.report.Report(fmt.Sprintf("summarizing_text_length_%d", len(text)))

	if strings.TrimSpace(text) == "" {
		return NoContent
	}

	words := strings.Fields(text)
	if len(words) <= s.cfg.MaxWords {
		return text
	}

	source := text
	if len(source) > maxSourceChars {
		cut := maxSourceChars
		// Back up so the cut never splits a multi-byte rune.
		for cut > 0 && !utf8.RuneStart(source[cut]) {
			cut--
		}
		source = source[:cut]
	}

	prompt := fmt.Sprintf(
		"Please summarize the following text in no more than %d words, focusing on key points relevant to an academic assignment. "+
			"Only provide me the summary as a block of text, I do not want you to repeat your task or ask me any follow up questions:\n\n%s",
		s.cfg.MaxWords, source)

	summary, err := s.cfg.Client.Chat(ctx, llm.Request{
		Model: s.cfg.Model,
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.3,
		MaxTokens:   1000,
		Purpose:     "summary",
	})
	if err != nil {
		s.logger.Error("summarization failed, falling back to truncation", "length", len(text), "err", err)
		s.report.Report("summarization_failed_truncating")
		return strings.Join(words[:s.cfg.MaxWords], " ") + truncationMarker
	}

	s.report.Report(fmt.Sprintf("summarized_text_successfully_length_%d", len(summary)))
	return summary
}
