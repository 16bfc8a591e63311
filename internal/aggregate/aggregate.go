// Package aggregate fans out over a task's links and video references,
// harvesting one fragment per item. Item failures are absorbed into their
// fragment; the bundle always comes back complete and in input order.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/FranksOps/satchel/internal/activity"
	"github.com/FranksOps/satchel/internal/bundle"
	"github.com/FranksOps/satchel/internal/fetch"
	"github.com/FranksOps/satchel/internal/interpret"
	"github.com/FranksOps/satchel/internal/metrics"
	"github.com/FranksOps/satchel/internal/transcript"
)

// Config tunes the fan-out.
type Config struct {
	// MaxConcurrent caps in-flight items; 0 means unbounded.
	MaxConcurrent int
}

// Collector harvests the supplementary bundle for a task.
type Collector struct {
	cfg         Config
	fetcher     *fetch.Fetcher
	interpreter *interpret.Interpreter
	transcripts *transcript.Retriever
	report      *activity.Reporter
	logger      *slog.Logger
}

// NewCollector builds a Collector.
func NewCollector(cfg Config, fetcher *fetch.Fetcher, interpreter *interpret.Interpreter, transcripts *transcript.Retriever, report *activity.Reporter, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		cfg:         cfg,
		fetcher:     fetcher,
		interpreter: interpreter,
		transcripts: transcripts,
		report:      report,
		logger:      logger,
	}
}

// Collect processes every link and video reference of the task concurrently
// and returns one fragment per item, links first, in input order. A failed
// item yields a placeholder fragment; no item can abort its siblings, so the
// group error is always nil and the slice length always equals the item
// count.
func (c *Collector) Collect(ctx context.Context, task *bundle.Task) []bundle.Fragment {
	total := len(task.Links) + len(task.VideoIDs)
	if total == 0 {
		return nil
	}

	c.report.Report(fmt.Sprintf("aggregating_%d_links_%d_videos", len(task.Links), len(task.VideoIDs)))

	fragments := make([]bundle.Fragment, total)

	var g errgroup.Group
	if c.cfg.MaxConcurrent > 0 {
		g.SetLimit(c.cfg.MaxConcurrent)
	}

	for i, link := range task.Links {
		i, link := i, link
		g.Go(func() error {
			fragments[i] = c.linkFragment(ctx, link)
			return nil
		})
	}
	for i, id := range task.VideoIDs {
		i, id := i, id
		g.Go(func() error {
			fragments[len(task.Links)+i] = c.transcriptFragment(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	for _, f := range fragments {
		metrics.RecordFragment(string(f.Kind), f.Failed)
	}
	return fragments
}

func (c *Collector) linkFragment(ctx context.Context, link string) (frag bundle.Fragment) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("panic while processing link", "url", link, "panic", r)
			frag = bundle.Fragment{
				Kind:   bundle.KindLink,
				Label:  "URL: " + link,
				Body:   fmt.Sprintf("[Download failed for: %s]", link),
				Failed: true,
			}
		}
	}()

	res, err := c.fetcher.Fetch(ctx, link)
	if err != nil {
		c.logger.Warn("link yielded no resource", "url", link, "err", err)
		return bundle.Fragment{
			Kind:   bundle.KindLink,
			Label:  "URL: " + link,
			Body:   fmt.Sprintf("[Download failed for: %s]", link),
			Failed: true,
		}
	}

	text := c.interpreter.Interpret(ctx, res)
	return bundle.Fragment{
		Kind:  bundle.KindLink,
		Label: fmt.Sprintf("File: %s (from %s)", res.Name(), res.URL),
		Body:  text,
	}
}

func (c *Collector) transcriptFragment(ctx context.Context, videoID string) (frag bundle.Fragment) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("panic while processing transcript", "video_id", videoID, "panic", r)
			frag = bundle.Fragment{
				Kind:   bundle.KindTranscript,
				Label:  videoID,
				Body:   fmt.Sprintf("[Error fetching transcript for YouTube video ID: %s: internal error]", videoID),
				Failed: true,
			}
		}
	}()

	text, ok := c.transcripts.Fetch(ctx, videoID)
	return bundle.Fragment{
		Kind:   bundle.KindTranscript,
		Label:  videoID,
		Body:   text,
		Failed: !ok,
	}
}
