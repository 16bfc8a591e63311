// Package videoid resolves URLs that denote a hosted video into the
// canonical 11-character video identifier. Resolution is pure string
// matching: same input, same output, no network access.
package videoid

import (
	"regexp"
	"strings"
)

// Hosts that may carry a video reference. googleusercontent.com appears
// as a CDN alias that proxies youtube.com paths.
var knownHosts = []string{
	"youtube.com",
	"youtu.be",
	"googleusercontent.com",
}

// Ordered matchers; the first capture wins. Identifiers are always exactly
// 11 characters drawn from [A-Za-z0-9_-].
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`youtube\.com/(?:watch\?(?:[^&]*&)*v=|embed/|v/|shorts/|live/)([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`googleusercontent\.com/youtube\.com/(?:watch\?(?:[^&]*&)*v=|embed/|v/)([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/.*[?&]v=([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`googleusercontent\.com/youtube\.com/.*[?&]v=([A-Za-z0-9_-]{11})`),
}

// FromURL returns the video identifier denoted by rawURL, if any.
// Non-video URLs, unrecognized hosts, and non-HTTP schemes all yield ("", false).
func FromURL(rawURL string) (string, bool) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", false
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return "", false
	}

	lower := strings.ToLower(rawURL)
	recognized := false
	for _, host := range knownHosts {
		if strings.Contains(lower, host) {
			recognized = true
			break
		}
	}
	if !recognized {
		return "", false
	}

	for _, p := range patterns {
		if m := p.FindStringSubmatch(rawURL); len(m) == 2 && m[1] != "" {
			return m[1], true
		}
	}
	return "", false
}

// IsVideo reports whether rawURL denotes a recognized video reference.
func IsVideo(rawURL string) bool {
	_, ok := FromURL(rawURL)
	return ok
}
