// Package report aggregates journaled solution records into a session
// summary and renders it as JSON, text, or HTML.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/template"
	"time"

	"github.com/FranksOps/satchel/internal/journal"
)

// Summary contains aggregated metrics about a solving session.
type Summary struct {
	TotalTasks       int
	TotalErrors      int
	TotalFragments   int
	FailedFragments  int
	TotalPromptChars int
	ErrorsByTask     map[string]string
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}

// GenerateSummary processes a slice of solution records to generate summary metrics.
func GenerateSummary(records []*journal.SolutionRecord) Summary {
	s := Summary{
		ErrorsByTask: make(map[string]string),
	}

	if len(records) == 0 {
		return s
	}

	s.StartTime = records[0].CreatedAt
	s.EndTime = records[0].CreatedAt

	for _, r := range records {
		s.TotalTasks++
		if r.Error != "" {
			s.TotalErrors++
			s.ErrorsByTask[r.TaskName] = r.Error
		}
		s.TotalFragments += r.Fragments
		s.FailedFragments += r.FailedFragments
		s.TotalPromptChars += r.PromptLength

		if r.CreatedAt.Before(s.StartTime) {
			s.StartTime = r.CreatedAt
		}
		if r.CreatedAt.After(s.EndTime) {
			s.EndTime = r.CreatedAt
		}
	}

	s.Duration = s.EndTime.Sub(s.StartTime)
	return s
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	return nil
}

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	const textTmpl = `Satchel Session Summary
-----------------------
Time:             {{.StartTime.Format "2006-01-02 15:04:05"}} - {{.EndTime.Format "2006-01-02 15:04:05"}}
Duration:         {{.Duration}}
Tasks Solved:     {{.TotalTasks}}
Prompt Chars:     {{.TotalPromptChars}}
Fragments:        {{.TotalFragments}} ({{.FailedFragments}} failed)
Generation Errors: {{.TotalErrors}}
{{- range $task, $err := .ErrorsByTask}}
  {{$task}}: {{$err}}
{{- else}}
  None
{{- end}}
`

	t, err := template.New("textReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("failed to render summary: %w", err)
	}

	return nil
}

// WriteHTML writes a basic HTML report to the provided writer.
func WriteHTML(w io.Writer, summary Summary) error {
	const htmlTmpl = `<!DOCTYPE html>
<html>
<head>
<title>Satchel Session Report</title>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  .stat-card { display: inline-block; padding: 20px; margin: 10px 10px 10px 0; background: #f4f4f4; border-radius: 5px; min-width: 150px; }
  .stat-val { font-size: 24px; font-weight: bold; }
  table { border-collapse: collapse; margin-top: 10px; }
  th, td { padding: 8px 12px; border: 1px solid #ccc; text-align: left; }
  th { background: #eaeaea; }
</style>
</head>
<body>
  <h1>Satchel Session Report</h1>
  <p><strong>Time:</strong> {{.StartTime.Format "2006-01-02 15:04:05"}} to {{.EndTime.Format "2006-01-02 15:04:05"}} ({{.Duration}})</p>

  <div class="stat-card">
    <div>Tasks Solved</div>
    <div class="stat-val">{{.TotalTasks}}</div>
  </div>
  <div class="stat-card">
    <div>Generation Errors</div>
    <div class="stat-val" style="color: {{if gt .TotalErrors 0}}red{{else}}green{{end}};">{{.TotalErrors}}</div>
  </div>
  <div class="stat-card">
    <div>Fragments</div>
    <div class="stat-val">{{.TotalFragments}}</div>
  </div>
  <div class="stat-card">
    <div>Failed Fragments</div>
    <div class="stat-val">{{.FailedFragments}}</div>
  </div>

  <h3>Generation Errors</h3>
  <table>
    <tr><th>Task</th><th>Error</th></tr>
    {{- range $task, $err := .ErrorsByTask}}
    <tr><td>{{$task}}</td><td>{{$err}}</td></tr>
    {{- else}}
    <tr><td colspan="2">None</td></tr>
    {{- end}}
  </table>
</body>
</html>
`
	t, err := template.New("htmlReport").Parse(htmlTmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("failed to render summary: %w", err)
	}

	return nil
}
