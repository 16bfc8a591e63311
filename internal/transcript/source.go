package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/FranksOps/satchel/pkg/httpclient"
)

// HTTPSource fetches captions from a transcript collaborator over HTTP.
// The collaborator answers GET <base>?video_id=<id> with a JSON array of
// caption fragments and reports unavailability through status codes:
// 403 disabled, 404 not found, 410 video unavailable.
type HTTPSource struct {
	baseURL string
	http    *httpclient.Client
}

var _ Source = (*HTTPSource)(nil)

// NewHTTPSource builds an HTTPSource against the given collaborator endpoint.
func NewHTTPSource(baseURL string, client *httpclient.Client) (*HTTPSource, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("transcript: base URL is required")
	}
	if client == nil {
		c, err := httpclient.New(httpclient.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to create client: %w", err)
		}
		client = c
	}
	return &HTTPSource{baseURL: baseURL, http: client}, nil
}

// Transcript fetches the caption sequence for videoID.
func (s *HTTPSource) Transcript(ctx context.Context, videoID string) ([]Caption, error) {
	endpoint := fmt.Sprintf("%s?video_id=%s", s.baseURL, url.QueryEscape(videoID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("transcript request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to decode
	case http.StatusForbidden:
		return nil, fmt.Errorf("video %s: %w", videoID, ErrDisabled)
	case http.StatusNotFound:
		return nil, fmt.Errorf("video %s: %w", videoID, ErrNotFound)
	case http.StatusGone:
		return nil, fmt.Errorf("video %s: %w", videoID, ErrUnavailable)
	default:
		return nil, fmt.Errorf("transcript endpoint returned HTTP %d for video %s", resp.StatusCode, videoID)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var captions []Caption
	if err := json.Unmarshal(body, &captions); err != nil {
		return nil, fmt.Errorf("failed to decode captions: %w", err)
	}
	return captions, nil
}
