// Command satchel solves a student's LMS assignments: it lists courses and
// assignments, harvests each assignment's supplementary content, generates
// solutions, and prints a session report.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/FranksOps/satchel/internal/activity"
	"github.com/FranksOps/satchel/internal/aggregate"
	"github.com/FranksOps/satchel/internal/canvas"
	"github.com/FranksOps/satchel/internal/config"
	"github.com/FranksOps/satchel/internal/fetch"
	"github.com/FranksOps/satchel/internal/interpret"
	"github.com/FranksOps/satchel/internal/journal"
	"github.com/FranksOps/satchel/internal/journal/jsonbackend"
	"github.com/FranksOps/satchel/internal/journal/postgres"
	"github.com/FranksOps/satchel/internal/journal/sqlite"
	"github.com/FranksOps/satchel/internal/llm"
	"github.com/FranksOps/satchel/internal/metrics"
	"github.com/FranksOps/satchel/internal/report"
	"github.com/FranksOps/satchel/internal/solver"
	"github.com/FranksOps/satchel/internal/summarize"
	"github.com/FranksOps/satchel/internal/transcript"
	"github.com/FranksOps/satchel/pkg/httpclient"
)

func main() {
	var (
		configPath   = flag.String("config", "satchel.yaml", "path to the YAML configuration file")
		courseID     = flag.Int64("course", 0, "solve only this course id (0 = all active courses)")
		reportFormat = flag.String("report", "text", "session report format: text, json, or html")
		reportOut    = flag.String("report-out", "", "write the session report to this file instead of stdout")
		verbose      = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(*configPath, *courseID, *reportFormat, *reportOut, logger); err != nil {
		logger.Error("satchel failed", "err", err)
		os.Exit(1)
	}
}

func run(configPath string, courseID int64, reportFormat, reportOut string, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	reporter := activity.NewReporter(nil, logger)

	if cfg.Metrics.Port > 0 {
		srv := metrics.Start(cfg.Metrics.Port)
		defer func() {
			if err := srv.Stop(context.Background()); err != nil {
				logger.Warn("metrics server shutdown failed", "err", err)
			}
		}()
		logger.Info("metrics server listening", "port", cfg.Metrics.Port)
	}

	shared, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.DownloadTimeout(),
		MaxRedirects: httpclient.DefaultMaxRedirects,
	})
	if err != nil {
		return fmt.Errorf("failed to create shared client: %w", err)
	}

	backend, err := openJournal(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	llmClient, err := llm.NewHTTPClient(llm.Config{
		BaseURL:           cfg.LLM.BaseURL,
		APIKey:            cfg.LLM.APIKey,
		RequestsPerSecond: cfg.LLM.RequestsPerSecond,
	}, logger)
	if err != nil {
		return err
	}
	defer llmClient.Close()

	summarizer := summarize.New(summarize.Config{
		Client:   llmClient,
		Model:    cfg.LLM.SummaryModel,
		MaxWords: cfg.Summary.MaxWords,
	}, reporter, logger)

	fetcher, err := fetch.NewFetcher(fetch.Config{
		MaxBytes: cfg.Fetch.MaxBytes,
		Timeout:  cfg.DownloadTimeout(),
		Dir:      cfg.Fetch.Dir,
		Client:   shared,
	}, reporter, logger)
	if err != nil {
		return err
	}

	source, err := transcriptSource(cfg, shared)
	if err != nil {
		return err
	}
	retriever := transcript.NewRetriever(source, summarizer, reporter, logger)

	collector := aggregate.NewCollector(
		aggregate.Config{MaxConcurrent: cfg.Aggregate.MaxConcurrent},
		fetcher,
		interpret.New(summarizer, reporter, logger),
		retriever,
		reporter,
		logger,
	)

	s, err := solver.New(solver.Config{
		Model:     cfg.LLM.SolutionModel,
		OutputDir: cfg.Solver.OutputDir,
	}, collector, llmClient, backend, reporter, logger)
	if err != nil {
		return err
	}

	lms, err := canvas.New(canvas.Config{
		BaseURL: cfg.Canvas.BaseURL,
		APIKey:  cfg.Canvas.APIKey,
		Client:  shared,
	}, reporter, logger)
	if err != nil {
		return err
	}

	if !lms.CheckConnection(ctx) {
		return fmt.Errorf("LMS connection check failed for %s", cfg.Canvas.BaseURL)
	}

	solved := 0
	for _, course := range lms.Courses(ctx) {
		if courseID != 0 && course.ID != courseID {
			continue
		}
		logger.Info("solving course", "id", course.ID, "name", course.Name)

		for _, task := range lms.Assignments(ctx, course.ID) {
			if ctx.Err() != nil {
				logger.Warn("interrupted, stopping", "solved", solved)
				return writeReport(backend, reportFormat, reportOut)
			}
			artifact := s.Solve(ctx, task)
			logger.Info("task solved",
				"task", task.Name,
				"fragments", artifact.SupplementaryParts,
				"failed_fragments", artifact.FailedParts,
				"answer_path", artifact.AnswerPath,
			)
			solved++
		}
	}
	logger.Info("session complete", "tasks", solved)

	return writeReport(backend, reportFormat, reportOut)
}

func openJournal(ctx context.Context, cfg *config.Config) (journal.Backend, error) {
	switch cfg.Journal.Backend {
	case "json":
		return jsonbackend.New(cfg.Journal.DSN)
	case "sqlite":
		return sqlite.New(cfg.Journal.DSN)
	case "postgres":
		return postgres.New(ctx, cfg.Journal.DSN)
	default:
		return nil, fmt.Errorf("unknown journal backend %q", cfg.Journal.Backend)
	}
}

// noTranscripts stands in when no transcript collaborator is configured.
type noTranscripts struct{}

func (noTranscripts) Transcript(context.Context, string) ([]transcript.Caption, error) {
	return nil, transcript.ErrUnavailable
}

func transcriptSource(cfg *config.Config, shared *httpclient.Client) (transcript.Source, error) {
	if cfg.Transcript.BaseURL == "" {
		return noTranscripts{}, nil
	}
	return transcript.NewHTTPSource(cfg.Transcript.BaseURL, shared)
}

func writeReport(backend journal.Backend, format, out string) error {
	// A fresh context so an interrupt does not also cancel the report query.
	records, err := backend.Query(context.Background(), journal.Filter{})
	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}
	summary := report.GenerateSummary(records)

	var w io.Writer = os.Stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "text":
		return report.WriteText(w, summary)
	case "json":
		return report.WriteJSON(w, summary)
	case "html":
		return report.WriteHTML(w, summary)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}
