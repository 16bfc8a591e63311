// Package interpret turns a downloaded resource into text, dispatching on
// the file's inferred kind. Every outcome is text: extracted content, a
// summary, or a diagnostic placeholder naming the file and its origin.
package interpret

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/FranksOps/satchel/internal/activity"
	"github.com/FranksOps/satchel/internal/extract"
	"github.com/FranksOps/satchel/internal/fetch"
	"github.com/FranksOps/satchel/internal/summarize"
)

// Plain-text-like kinds are returned verbatim. Oversized plain text is
// deliberately not summarized here; that stays with the prompt-assembly
// model call.
var plainTextExts = map[string]bool{
	".txt":  true,
	".md":   true,
	".py":   true,
	".js":   true,
	".go":   true,
	".json": true,
	".xml":  true,
	".css":  true,
	".csv":  true,
	".rtf":  true,
}

// sampleSize bounds how much of an unrecognized file is quoted.
const sampleSize = 2048

// Interpreter extracts a text representation from fetched resources.
type Interpreter struct {
	summarizer *summarize.Summarizer
	report     *activity.Reporter
	logger     *slog.Logger
}

// New builds an Interpreter.
func New(summarizer *summarize.Summarizer, report *activity.Reporter, logger *slog.Logger) *Interpreter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Interpreter{summarizer: summarizer, report: report, logger: logger}
}

// Interpret consumes res and returns its text representation. The resource
// file is deleted after successful extraction and retained when the result
// is a diagnostic placeholder, so failures stay inspectable.
func (i *Interpreter) Interpret(ctx context.Context, res *fetch.Resource) string {
	text, ok := i.interpret(ctx, res)
	if ok {
		if err := res.Remove(); err != nil {
			i.logger.Warn("could not delete consumed download", "path", res.Path, "err", err)
		}
	}
	return text
}

func (i *Interpreter) interpret(ctx context.Context, res *fetch.Resource) (string, bool) {
	info, err := os.Stat(res.Path)
	if err != nil {
		return fmt.Sprintf("[File not found: %s]", res.Path), false
	}

	i.report.Report(fmt.Sprintf("reading_file_%s_url_%s", res.Name(), res.URL))

	if info.Size() == 0 {
		return fmt.Sprintf("[Empty file: %s from %s]", res.Name(), res.URL), true
	}

	ext := res.Ext()
	switch {
	case ext == ".html" || ext == ".htm":
		return i.interpretMarkup(ctx, res)

	case plainTextExts[ext]:
		data, err := os.ReadFile(res.Path)
		if err != nil {
			return i.readFailure(res, err), false
		}
		content := string(data)
		i.report.Report(fmt.Sprintf("read_text_file_%s_length_%d", res.Name(), len(content)))
		return content, true

	case ext == ".pdf":
		return fmt.Sprintf("[PDF File: %s from %s - PDF extraction not implemented]", res.Name(), res.URL), false

	case ext == ".doc" || ext == ".docx":
		return fmt.Sprintf("[Word Document: %s from %s - Word extraction not implemented]", res.Name(), res.URL), false

	default:
		f, err := os.Open(res.Path)
		if err != nil {
			return i.readFailure(res, err), false
		}
		defer f.Close()

		buf := make([]byte, sampleSize)
		n, _ := f.Read(buf)
		// Binary junk must not leak into the prompt verbatim.
		sample := strings.ToValidUTF8(string(buf[:n]), "�")
		return fmt.Sprintf("[Unknown file type content sample from %s]:\n%s", res.Name(), sample), false
	}
}

func (i *Interpreter) interpretMarkup(ctx context.Context, res *fetch.Resource) (string, bool) {
	data, err := os.ReadFile(res.Path)
	if err != nil {
		return i.readFailure(res, err), false
	}

	markup := string(data)
	if strings.TrimSpace(markup) == "" {
		return fmt.Sprintf("[Empty HTML file: %s]", res.Name()), true
	}

	i.report.Report(fmt.Sprintf("processing_html_file_%s_length_%d", res.Name(), len(markup)))

	extracted, err := extract.FromHTML(markup, res.URL)
	if err != nil {
		return i.readFailure(res, err), false
	}
	if strings.TrimSpace(extracted.Text) == "" {
		i.logger.Warn("no text extracted from markup", "file", res.Name(), "raw_length", len(markup))
		return fmt.Sprintf("[No text content extracted from HTML: %s. Raw HTML length: %d]", res.Name(), len(markup)), false
	}

	i.report.Report(fmt.Sprintf("extracted_text_from_html_%s_length_%d", res.Name(), len(extracted.Text)))
	summary := i.summarizer.Summarize(ctx, extracted.Text)
	i.report.Report(fmt.Sprintf("summarized_html_%s_length_%d", res.Name(), len(summary)))
	return summary, true
}

func (i *Interpreter) readFailure(res *fetch.Resource, err error) string {
	i.logger.Error("error reading file", "file", res.Name(), "err", err)
	i.report.Report(fmt.Sprintf("error_reading_file_%s_%v", res.Name(), err))
	return fmt.Sprintf("[Error reading/processing file: %s - %v]", res.Name(), err)
}
