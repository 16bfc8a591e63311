// Package solver orchestrates one task end to end: harvest the
// supplementary bundle, assemble the prompt, generate the solution, persist
// both, and journal the outcome. Solve always produces an artifact;
// generation failures become placeholder answer text.
package solver

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/FranksOps/satchel/internal/activity"
	"github.com/FranksOps/satchel/internal/aggregate"
	"github.com/FranksOps/satchel/internal/bundle"
	"github.com/FranksOps/satchel/internal/journal"
	"github.com/FranksOps/satchel/internal/llm"
)

const answerSystemPrompt = "You are a helpful assistant that completes university homework concisely and accurately, adhering to specified formats like MLA."

const promptTemplate = `You are an expert academic assistant. Your task is to provide a comprehensive solution for the following university-level assignment.
Please analyze the assignment description and any supplementary content (files, transcripts) carefully and generate a complete response.
Only provide the answer to the question in an appropriate format.  That means a proper MLA essay format for a question that wants an essay response, simple python code if the result is for a python notebook, or others as appropriate to the assignment's requirements. Do not restate my question or offer a follow up question.

--- ASSIGNMENT DETAILS ---
Assignment Name: %s
Description (cleaned):
%s
--- END OF ASSIGNMENT DETAILS ---

--- SUPPLEMENTARY CONTENT (Files & Transcripts) ---
%s
--- END OF SUPPLEMENTARY CONTENT ---

Please provide your solution below:`

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// Config tunes a Solver.
type Config struct {
	Model string
	// OutputDir receives prompt and answer files; default "outputs".
	OutputDir string
}

// Solver solves tasks one at a time. Journal may be nil; journaling
// failures never fail a task.
type Solver struct {
	cfg       Config
	collector *aggregate.Collector
	client    llm.Client
	journal   journal.Backend
	report    *activity.Reporter
	logger    *slog.Logger
}

// New builds a Solver, creating the output directory.
func New(cfg Config, collector *aggregate.Collector, client llm.Client, journal journal.Backend, report *activity.Reporter, logger *slog.Logger) (*Solver, error) {
	if cfg.OutputDir == "" {
		cfg.OutputDir = "outputs"
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	return &Solver{
		cfg:       cfg,
		collector: collector,
		client:    client,
		journal:   journal,
		report:    report,
		logger:    logger,
	}, nil
}

// Solve runs the full pipeline for one task. It never returns an error; any
// failure along the way is reflected in the artifact instead.
func (s *Solver) Solve(ctx context.Context, task *bundle.Task) *bundle.SolutionArtifact {
	start := time.Now()
	s.report.Report(fmt.Sprintf("solving_%s_links_%d_videos_%d", task.Name, len(task.Links), len(task.VideoIDs)))

	fragments := s.collector.Collect(ctx, task)
	failed := 0
	for _, f := range fragments {
		if f.Failed {
			failed++
		}
	}

	prompt := fmt.Sprintf(promptTemplate, task.Name, task.Description, bundle.Render(fragments))
	s.report.Report(fmt.Sprintf("generated_prompt_length_%d_for_%s", len(prompt), task.Name))

	base := sanitizeName(task.Name)
	promptPath := filepath.Join(s.cfg.OutputDir, "full_prompt_"+base+".txt")
	if err := os.WriteFile(promptPath, []byte(prompt), 0o644); err != nil {
		s.logger.Error("could not save prompt", "path", promptPath, "err", err)
		promptPath = ""
	} else {
		s.report.Report("saved_prompt_to_" + promptPath)
	}

	artifact := &bundle.SolutionArtifact{
		TaskID:             task.ID,
		TaskName:           task.Name,
		Prompt:             prompt,
		PromptPath:         promptPath,
		SupplementaryParts: len(fragments),
		FailedParts:        failed,
		PromptLength:       len(prompt),
	}

	s.report.Report("generating_solution_for_" + task.Name)
	answer, genErr := s.client.Chat(ctx, llm.Request{
		Model: s.cfg.Model,
		Messages: []llm.Message{
			{Role: "system", Content: answerSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.3,
		Purpose:     "solution",
	})
	if genErr != nil {
		s.logger.Error("solution generation failed", "task", task.Name, "err", genErr)
		s.report.Report(fmt.Sprintf("failed_solution_%s_%v", task.Name, genErr))
		artifact.Answer = fmt.Sprintf("[Error generating solution via API: %v]", genErr)
	} else {
		artifact.Answer = answer
		s.report.Report(fmt.Sprintf("received_solution_length_%d_for_%s", len(answer), task.Name))

		answerPath := filepath.Join(s.cfg.OutputDir, base+"_answer.md")
		if err := os.WriteFile(answerPath, []byte(answer), 0o644); err != nil {
			s.logger.Error("could not save answer", "path", answerPath, "err", err)
		} else {
			artifact.AnswerPath = answerPath
			s.report.Report("saved_answer_to_" + answerPath)
		}
	}

	s.record(ctx, task, artifact, genErr, time.Since(start))
	return artifact
}

func (s *Solver) record(ctx context.Context, task *bundle.Task, artifact *bundle.SolutionArtifact, genErr error, elapsed time.Duration) {
	if s.journal == nil {
		return
	}

	rec := &journal.SolutionRecord{
		ID:              uuid.NewString(),
		TaskID:          task.ID,
		TaskName:        task.Name,
		PromptPath:      artifact.PromptPath,
		AnswerPath:      artifact.AnswerPath,
		PromptLength:    artifact.PromptLength,
		Fragments:       artifact.SupplementaryParts,
		FailedFragments: artifact.FailedParts,
		Duration:        elapsed,
		CreatedAt:       time.Now().UTC(),
	}
	if genErr != nil {
		rec.Error = genErr.Error()
	}

	if err := s.journal.Save(ctx, rec); err != nil {
		s.logger.Error("could not journal solution", "task", task.Name, "err", err)
	}
}

// sanitizeName derives a filesystem-safe base from a task name: at most 50
// characters, everything outside [a-zA-Z0-9_] replaced.
func sanitizeName(name string) string {
	runes := []rune(name)
	if len(runes) > 50 {
		runes = runes[:50]
	}
	return unsafeNameChars.ReplaceAllString(string(runes), "_")
}
