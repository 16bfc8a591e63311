// Package canvas lists courses and assignments from a Canvas-style LMS over
// its REST API and turns assignment descriptions into solvable tasks.
package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/FranksOps/satchel/internal/activity"
	"github.com/FranksOps/satchel/internal/bundle"
	"github.com/FranksOps/satchel/internal/extract"
	"github.com/FranksOps/satchel/pkg/httpclient"
)

// maxResponseBytes caps how much of an API reply is read.
const maxResponseBytes = 10 << 20

// Course is one enrollment the student can solve tasks for.
type Course struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type assignment struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Config locates and authenticates the LMS.
type Config struct {
	// BaseURL is the instance root, e.g. https://canvas.example.edu.
	BaseURL string
	APIKey  string
	Client  *httpclient.Client
}

// Client talks to one LMS instance.
type Client struct {
	cfg    Config
	report *activity.Reporter
	logger *slog.Logger
}

// New builds a Client.
func New(cfg Config, report *activity.Reporter, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("canvas: base URL is required")
	}
	if cfg.Client == nil {
		c, err := httpclient.New(httpclient.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to create client: %w", err)
		}
		cfg.Client = c
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, report: report, logger: logger}, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.cfg.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.cfg.Client.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("LMS returned HTTP %d for %s", resp.StatusCode, path)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// CheckConnection verifies the API key against the current-user endpoint.
// It reports the outcome and never returns an error.
func (c *Client) CheckConnection(ctx context.Context) bool {
	c.report.Report("attempting_canvas_connection")

	var user struct {
		Name string `json:"name"`
	}
	if err := c.get(ctx, "/api/v1/users/self", nil, &user); err != nil {
		c.logger.Error("canvas connection failed", "err", err)
		c.report.Report(fmt.Sprintf("canvas_connection_failed_%v", err))
		return false
	}

	c.report.Report("canvas_connection_successful_user_" + user.Name)
	return true
}

// Courses lists the student's active enrollments. Courses without names
// (deleted or unavailable) are skipped. Failures yield an empty list.
func (c *Client) Courses(ctx context.Context) []Course {
	c.report.Report("fetching_classes")

	var raw []Course
	q := url.Values{"enrollment_state": {"active"}}
	if err := c.get(ctx, "/api/v1/courses", q, &raw); err != nil {
		c.logger.Error("failed to fetch courses", "err", err)
		c.report.Report(fmt.Sprintf("failed_fetch_classes_%v", err))
		return []Course{}
	}

	courses := make([]Course, 0, len(raw))
	for _, course := range raw {
		if course.Name == "" {
			continue
		}
		courses = append(courses, course)
	}

	c.report.Report(fmt.Sprintf("fetched_%d_classes", len(courses)))
	return courses
}

// Assignments lists a course's assignments as tasks, running each
// description through the extractor to split it into cleaned text, links,
// and video references. Failures yield an empty list.
func (c *Client) Assignments(ctx context.Context, courseID int64) []*bundle.Task {
	c.report.Report(fmt.Sprintf("fetching_assignments_course_%d", courseID))

	var raw []assignment
	if err := c.get(ctx, fmt.Sprintf("/api/v1/courses/%d/assignments", courseID), nil, &raw); err != nil {
		c.logger.Error("failed to fetch assignments", "course_id", courseID, "err", err)
		c.report.Report(fmt.Sprintf("failed_fetch_assignments_%v", err))
		return []*bundle.Task{}
	}

	tasks := make([]*bundle.Task, 0, len(raw))
	for _, a := range raw {
		task := &bundle.Task{ID: a.ID, Name: a.Name}
		if a.Description != "" {
			extracted, err := extract.FromHTML(a.Description, c.cfg.BaseURL)
			if err != nil {
				c.logger.Warn("could not extract assignment description", "assignment", a.Name, "err", err)
			} else {
				task.Description = extracted.Text
				task.Links = extracted.Links
				task.VideoIDs = extracted.VideoIDs
			}
		}
		tasks = append(tasks, task)
	}

	c.report.Report(fmt.Sprintf("fetched_%d_assignments", len(tasks)))
	return tasks
}
