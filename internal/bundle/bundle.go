// Package bundle holds the data model shared across the aggregation
// pipeline: the Task being solved, the ContentFragments harvested for it,
// and the SolutionArtifact produced at the end.
package bundle

import (
	"fmt"
	"strings"
)

// Task is a unit of work requiring a generated solution plus supplementary
// context. It is immutable once built from the extracted task description.
type Task struct {
	ID          int64
	Name        string
	Description string
	// Links holds outbound URLs in document order.
	Links []string
	// VideoIDs holds resolved video identifiers in first-seen order.
	VideoIDs []string
}

// FragmentKind distinguishes where a fragment's text came from.
type FragmentKind string

const (
	KindLink       FragmentKind = "link"
	KindTranscript FragmentKind = "transcript"
)

// Fragment is one normalized, labeled text unit derived from a single link
// or video reference. Body is either extracted text or a diagnostic
// placeholder; Failed marks the latter.
type Fragment struct {
	Kind   FragmentKind
	Label  string
	Body   string
	Failed bool
}

// Render produces the labeled block for one fragment, with explicit
// begin/end markers so fragments remain distinguishable after joining.
func (f Fragment) Render() string {
	switch f.Kind {
	case KindTranscript:
		return fmt.Sprintf("--- YouTube Transcript (Video ID: %s) ---\n%s\n--- End Transcript (Video ID: %s) ---",
			f.Label, f.Body, f.Label)
	default:
		return fmt.Sprintf("--- Content from %s ---\n%s\n--- End Content from %s ---",
			f.Label, f.Body, f.Label)
	}
}

// NoSupplementaryContent is rendered in place of an empty bundle so the
// assembled prompt never contains a silent gap.
const NoSupplementaryContent = "[No supplementary content processed.]"

// Render joins all fragments into the final ordered bundle text.
func Render(fragments []Fragment) string {
	if len(fragments) == 0 {
		return NoSupplementaryContent
	}
	parts := make([]string, len(fragments))
	for i, f := range fragments {
		parts[i] = f.Render()
	}
	return strings.Join(parts, "\n\n")
}

// SolutionArtifact is the outcome of solving one Task. It is created once
// per task and not mutated afterwards. Callers always receive an artifact;
// generation failures surface as placeholder answer text, never as errors.
type SolutionArtifact struct {
	TaskID   int64
	TaskName string
	Prompt   string
	Answer   string

	PromptPath string
	AnswerPath string

	// Bookkeeping counters.
	SupplementaryParts int
	FailedParts        int
	PromptLength       int
}
