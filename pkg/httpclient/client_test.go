package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNew_Defaults(t *testing.T) {
	c, err := New(Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Timeout != 30*time.Second {
		t.Errorf("expected default timeout 30s, got %v", c.Timeout)
	}
	if c.Jar != nil {
		t.Error("expected no cookie jar by default")
	}
}

func TestDo_RequiresContext(t *testing.T) {
	c, _ := New(Config{})
	req, _ := http.NewRequest(http.MethodGet, "http://127.0.0.1/", nil)

	//nolint:staticcheck // passing nil context is the behavior under test
	if _, err := c.Do(nil, req); err == nil {
		t.Fatal("expected error for nil context")
	}
}

func TestDo_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	c, _ := New(Config{Timeout: 2 * time.Second})
	req, _ := http.NewRequest(http.MethodGet, ts.URL, nil)

	resp, err := c.Do(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204, got %d", resp.StatusCode)
	}
}

func TestDo_FollowsRedirectsByDefault(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/go", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c, _ := New(Config{})
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/go", nil)

	resp, err := c.Do(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected the redirect to be followed, got %d", resp.StatusCode)
	}
}

func TestDo_MaxRedirects(t *testing.T) {
	var ts *httptest.Server
	ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, ts.URL, http.StatusFound)
	}))
	defer ts.Close()

	c, _ := New(Config{Timeout: 2 * time.Second, MaxRedirects: 2})
	req, _ := http.NewRequest(http.MethodGet, ts.URL, nil)

	if _, err := c.Do(context.Background(), req); err == nil {
		t.Fatal("expected redirect loop to fail after max redirects")
	}
}

func TestDo_NoRedirects(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	}))
	defer ts.Close()

	c, _ := New(Config{Timeout: 2 * time.Second, MaxRedirects: -1})
	req, _ := http.NewRequest(http.MethodGet, ts.URL, nil)

	resp, err := c.Do(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		t.Errorf("expected the redirect response itself, got %d", resp.StatusCode)
	}
}

func TestDo_ContextCancellation(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer ts.Close()

	c, _ := New(Config{Timeout: 5 * time.Second})
	req, _ := http.NewRequest(http.MethodGet, ts.URL, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := c.Do(ctx, req); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
