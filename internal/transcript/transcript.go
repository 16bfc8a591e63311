// Package transcript retrieves caption text for a video identifier from the
// transcript collaborator and classifies unavailability so that each
// condition surfaces as a distinct, diagnosable outcome.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/FranksOps/satchel/internal/activity"
	"github.com/FranksOps/satchel/internal/metrics"
	"github.com/FranksOps/satchel/internal/summarize"
)

// Recognized unavailability conditions. Anything else from the collaborator
// is treated as unclassified.
var (
	ErrDisabled    = errors.New("transcripts disabled")
	ErrNotFound    = errors.New("no transcript found")
	ErrUnavailable = errors.New("video unavailable")
)

// Caption is one timed fragment of a transcript.
type Caption struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// Source is the transcript collaborator boundary.
type Source interface {
	Transcript(ctx context.Context, videoID string) ([]Caption, error)
}

// Retriever turns a video identifier into bounded text: the summarized
// transcript on success, a condition-specific placeholder otherwise.
type Retriever struct {
	source     Source
	summarizer *summarize.Summarizer
	report     *activity.Reporter
	logger     *slog.Logger
}

// NewRetriever builds a Retriever.
func NewRetriever(source Source, summarizer *summarize.Summarizer, report *activity.Reporter, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{source: source, summarizer: summarizer, report: report, logger: logger}
}

// Fetch always returns text: the summarized transcript when ok is true, a
// placeholder naming the video identifier and the reason otherwise.
func (r *Retriever) Fetch(ctx context.Context, videoID string) (string, bool) {
	r.report.Report("fetching_transcript_" + videoID)

	captions, err := r.source.Transcript(ctx, videoID)
	if err != nil {
		if condition, ok := classify(err); ok {
			r.logger.Warn("transcript unavailable", "video_id", videoID, "condition", condition)
			r.report.Report(fmt.Sprintf("transcript_issue_%s_%s", videoID, condition))
			metrics.TranscriptRequestsTotal.WithLabelValues(condition).Inc()
			return fmt.Sprintf("[%s for YouTube video ID: %s]", condition, videoID), false
		}
		r.logger.Error("transcript fetch failed", "video_id", videoID, "err", err)
		r.report.Report(fmt.Sprintf("error_transcript_%s_%v", videoID, err))
		metrics.TranscriptRequestsTotal.WithLabelValues("error").Inc()
		return fmt.Sprintf("[Error fetching transcript for YouTube video ID: %s: %v]", videoID, err), false
	}

	parts := make([]string, 0, len(captions))
	for _, c := range captions {
		if c.Text != "" {
			parts = append(parts, c.Text)
		}
	}
	text := strings.Join(parts, " ")
	r.report.Report(fmt.Sprintf("fetched_transcript_%s_length_%d", videoID, len(text)))
	metrics.TranscriptRequestsTotal.WithLabelValues("ok").Inc()

	summary := r.summarizer.Summarize(ctx, text)
	r.report.Report(fmt.Sprintf("summarized_transcript_%s_length_%d", videoID, len(summary)))
	return summary, true
}

// classify maps recognized unavailability errors to their condition name.
func classify(err error) (string, bool) {
	switch {
	case errors.Is(err, ErrDisabled):
		return "Transcripts disabled", true
	case errors.Is(err, ErrNotFound):
		return "No transcript found", true
	case errors.Is(err, ErrUnavailable):
		return "Video unavailable", true
	default:
		return "", false
	}
}
