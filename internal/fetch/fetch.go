// Package fetch retrieves remote resources under a hard size ceiling and a
// per-download time budget, streaming to local storage so that oversized
// bodies are cut off mid-flight rather than buffered.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/FranksOps/satchel/internal/activity"
	"github.com/FranksOps/satchel/internal/metrics"
	"github.com/FranksOps/satchel/pkg/httpclient"
	"github.com/FranksOps/satchel/pkg/useragent"
	"github.com/FranksOps/satchel/pkg/videoid"
)

// FailKind classifies why a download produced no resource.
type FailKind string

const (
	// FailUnfetchable marks URLs rejected before any request: video
	// references and non-fetchable schemes (data:, mailto:).
	FailUnfetchable FailKind = "unfetchable"
	FailOversize    FailKind = "oversize"
	FailTimeout     FailKind = "timeout"
	FailNetwork     FailKind = "network"
	FailBadStatus   FailKind = "bad_status"
)

// Error is a classified per-item download failure.
type Error struct {
	Kind   FailKind
	URL    string
	Status int
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case FailBadStatus:
		return fmt.Sprintf("download failed (%s, HTTP %d): %s", e.Kind, e.Status, e.URL)
	default:
		if e.Err != nil {
			return fmt.Sprintf("download failed (%s): %s: %v", e.Kind, e.URL, e.Err)
		}
		return fmt.Sprintf("download failed (%s): %s", e.Kind, e.URL)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Resource is a downloaded file on local storage. The interpretation step
// that consumes it owns it exclusively and removes it when done.
type Resource struct {
	Path string
	URL  string
	Size int64
}

// Name returns the local file name.
func (r *Resource) Name() string { return filepath.Base(r.Path) }

// Ext returns the lowercased file extension including the dot.
func (r *Resource) Ext() string { return strings.ToLower(filepath.Ext(r.Path)) }

// Remove deletes the local file.
func (r *Resource) Remove() error { return os.Remove(r.Path) }

// Config bounds every download performed by a Fetcher.
type Config struct {
	// MaxBytes is the hard size ceiling; default 50 MiB.
	MaxBytes int64
	// Timeout is the per-download time budget; default 30s.
	Timeout time.Duration
	// MaxRedirects bounds redirect chains on downloads; default 5.
	MaxRedirects int
	// Dir receives downloaded files; default "downloads".
	Dir    string
	Client *httpclient.Client
	UAPool *useragent.Pool
}

const (
	defaultMaxBytes = 50 << 20
	chunkSize       = 8192
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// Fetcher performs bounded single-URL downloads. It is safe for concurrent
// use; all mutable per-download state is local to Fetch.
type Fetcher struct {
	cfg    Config
	report *activity.Reporter
	logger *slog.Logger
	// seq disambiguates downloads landing on the same timestamp.
	seq atomic.Uint64
}

// NewFetcher initializes a Fetcher, applying defaults and creating the
// download directory.
func NewFetcher(cfg Config, report *activity.Reporter, logger *slog.Logger) (*Fetcher, error) {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultMaxBytes
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = httpclient.DefaultMaxRedirects
	}
	if cfg.Dir == "" {
		cfg.Dir = "downloads"
	}
	if cfg.Client == nil {
		c, err := httpclient.New(httpclient.Config{Timeout: cfg.Timeout, MaxRedirects: cfg.MaxRedirects})
		if err != nil {
			return nil, fmt.Errorf("failed to create client: %w", err)
		}
		cfg.Client = c
	}
	if cfg.UAPool == nil {
		cfg.UAPool = useragent.NewPool(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}

	return &Fetcher{cfg: cfg, report: report, logger: logger}, nil
}

// Fetch downloads rawURL to local storage. It returns a classified *Error
// for every failure; partial files never survive an abort.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Resource, error) {
	if videoid.IsVideo(rawURL) || strings.HasPrefix(rawURL, "data:") || strings.HasPrefix(rawURL, "mailto:") {
		f.report.Report("skipping_download_" + truncate(rawURL, 50))
		metrics.RecordFetch(string(FailUnfetchable), 0)
		return nil, &Error{Kind: FailUnfetchable, URL: rawURL}
	}

	f.report.Report("downloading_" + rawURL)

	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		metrics.RecordFetch(string(FailNetwork), 0)
		return nil, &Error{Kind: FailNetwork, URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", f.cfg.UAPool.GetSequential())
	req.Header.Set("Accept", "*/*")

	resp, err := f.cfg.Client.Do(ctx, req)
	if err != nil {
		kind := classify(err)
		f.logger.Error("download failed", "url", rawURL, "kind", kind, "err", err)
		f.report.Report(fmt.Sprintf("download_%s_%s", kind, rawURL))
		metrics.RecordFetch(string(kind), 0)
		return nil, &Error{Kind: kind, URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		f.logger.Error("bad status", "url", rawURL, "status", resp.StatusCode)
		f.report.Report(fmt.Sprintf("download_failed_http_%d_%s", resp.StatusCode, rawURL))
		metrics.RecordFetch(string(FailBadStatus), 0)
		return nil, &Error{Kind: FailBadStatus, URL: rawURL, Status: resp.StatusCode}
	}

	// A declared length over the ceiling aborts before any byte is written.
	// Declared lengths may be absent or wrong; the streaming loop below is
	// the authoritative check.
	if resp.ContentLength > 0 && resp.ContentLength > f.cfg.MaxBytes {
		f.report.Report("download_failed_too_large_" + rawURL)
		metrics.RecordFetch(string(FailOversize), 0)
		return nil, &Error{Kind: FailOversize, URL: rawURL}
	}

	name := deriveFilename(resp, rawURL)
	localPath := filepath.Join(f.cfg.Dir, fmt.Sprintf("%d_%d_%s", time.Now().Unix(), f.seq.Add(1), name))

	size, err := f.stream(resp.Body, localPath)
	if err != nil {
		var fe *Error
		if errors.As(err, &fe) {
			fe.URL = rawURL
			f.report.Report(fmt.Sprintf("download_%s_%s", fe.Kind, rawURL))
			metrics.RecordFetch(string(fe.Kind), 0)
			return nil, fe
		}
		kind := classify(err)
		f.logger.Error("download aborted", "url", rawURL, "kind", kind, "err", err)
		f.report.Report(fmt.Sprintf("download_%s_%s", kind, rawURL))
		metrics.RecordFetch(string(kind), 0)
		return nil, &Error{Kind: kind, URL: rawURL, Err: err}
	}

	f.report.Report(fmt.Sprintf("downloaded_file_%s_size_%d", filepath.Base(localPath), size))
	metrics.RecordFetch("ok", size)
	return &Resource{Path: localPath, URL: rawURL, Size: size}, nil
}

// stream copies body to localPath in fixed-size chunks, enforcing the size
// ceiling on cumulative bytes written. On any failure the partial file is
// removed before returning.
func (f *Fetcher) stream(body io.Reader, localPath string) (int64, error) {
	out, err := os.Create(localPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}

	abort := func(reason error) (int64, error) {
		_ = out.Close()
		if rmErr := os.Remove(localPath); rmErr != nil {
			f.logger.Warn("could not remove partial download", "path", localPath, "err", rmErr)
		}
		return 0, reason
	}

	var written int64
	buf := make([]byte, chunkSize)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			written += int64(n)
			if written > f.cfg.MaxBytes {
				return abort(&Error{Kind: FailOversize})
			}
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				return abort(fmt.Errorf("failed to write chunk: %w", writeErr))
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return abort(readErr)
		}
	}

	if err := out.Close(); err != nil {
		return 0, fmt.Errorf("failed to close file: %w", err)
	}
	return written, nil
}

// deriveFilename picks a safe local name: content-disposition hint, then
// URL path, then a fixed fallback, with an extension inferred from the
// declared content type when absent.
func deriveFilename(resp *http.Response, rawURL string) string {
	var name string
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			name = params["filename"]
		}
	}
	if name == "" {
		if u, err := url.Parse(rawURL); err == nil {
			name = path.Base(u.Path)
		}
	}
	if name == "" || name == "." || name == "/" {
		name = "downloaded_file"
	}

	name = unsafeChars.ReplaceAllString(name, "_")

	if filepath.Ext(name) == "" {
		contentType := strings.ToLower(resp.Header.Get("Content-Type"))
		switch {
		case strings.Contains(contentType, "html"):
			name += ".html"
		case strings.Contains(contentType, "json"):
			name += ".json"
		case strings.Contains(contentType, "text"):
			name += ".txt"
		default:
			name += ".dat"
		}
	}
	return name
}

func classify(err error) FailKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return FailTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return FailTimeout
	}
	return FailNetwork
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
