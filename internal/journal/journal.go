// Package journal persists one record per solved task so that a session's
// outcomes can be queried and reported after the fact.
package journal

import (
	"context"
	"time"
)

// SolutionRecord is the durable outcome of solving one task.
type SolutionRecord struct {
	ID              string
	TaskID          int64
	TaskName        string
	PromptPath      string
	AnswerPath      string
	PromptLength    int
	Fragments       int
	FailedFragments int
	Duration        time.Duration
	CreatedAt       time.Time
	// Error is non-empty when solution generation produced a placeholder
	// answer instead of model output.
	Error string
}

// Filter allows querying for specific SolutionRecords.
type Filter struct {
	TaskName string
	// Failed selects records with (true) or without (false) a generation
	// error; nil selects both.
	Failed *bool
	Since  *time.Time
	Limit  int
	Offset int
}

// Backend defines the interface for storing and querying solution records.
type Backend interface {
	Save(ctx context.Context, record *SolutionRecord) error
	Query(ctx context.Context, filter Filter) ([]*SolutionRecord, error)
	Close() error
}
