// Package activity delivers short machine-readable status notifications to
// an observer callback at every significant pipeline step. Notifications
// are purely observational: a nil, slow, or panicking callback never blocks
// or fails the pipeline.
package activity

import "log/slog"

// Func receives one status tag per notification.
type Func func(status string)

// Reporter fans a status tag out to the registered callback and mirrors it
// to the structured log. A nil *Reporter is valid and does nothing beyond
// being safe to call.
type Reporter struct {
	fn     Func
	logger *slog.Logger
}

// NewReporter builds a Reporter. fn may be nil; logger defaults to
// slog.Default when nil.
func NewReporter(fn Func, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{fn: fn, logger: logger}
}

// Report emits one status tag. Callback panics are swallowed: observation
// must never take the pipeline down.
func (r *Reporter) Report(status string) {
	if r == nil {
		return
	}
	r.logger.Info(status)
	if r.fn == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("activity callback panicked", "panic", rec)
		}
	}()
	r.fn(status)
}
