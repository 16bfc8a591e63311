// Package extract isolates the main body text of raw markup and classifies
// its outbound references into plain links and video identifiers.
package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/FranksOps/satchel/pkg/videoid"
)

// Elements that never carry main content.
const noiseSelector = "script, style, nav, footer, header, aside, form, button, input, noscript"

// Main-content candidates, most specific first. Gist/code-hosting containers
// come before generic article containers so that a syllabus pointing at a
// code snippet page yields the code, not the page chrome.
var contentSelectors = []string{
	// code/gist containers
	".file-box .file-data",
	".highlight",
	".file .data",
	".blob-code-content",
	// generic content containers
	"article.user_content",
	"div.user_content",
	"div#content",
	"main",
	"div.content",
	"div.assignment-description",
	".markdown-body",
	".post-content",
	".entry-content",
}

// Result is what one markup document contributes to a Task.
type Result struct {
	// Text is the cleaned main-content text: line-trimmed, blank lines removed.
	Text string
	// Links are outbound URLs resolved to absolute form, in document order,
	// excluding anchors, script pseudo-URLs, and anything classified as a video.
	Links []string
	// VideoIDs are recognized video identifiers from anchors and iframes,
	// deduplicated, in first-seen order.
	VideoIDs []string
}

// FromHTML extracts cleaned text and classified references from raw markup.
// baseURL anchors relative link resolution. Empty markup yields an empty
// Result without error.
func FromHTML(markup, baseURL string) (*Result, error) {
	if strings.TrimSpace(markup) == "" {
		return &Result{}, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse markup: %w", err)
	}

	doc.Find(noiseSelector).Remove()

	res := &Result{
		Text: mainText(doc),
	}

	base, baseErr := url.Parse(baseURL)
	seen := make(map[string]struct{})

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" {
			return
		}
		if strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
			return
		}
		if id, ok := videoid.FromURL(href); ok {
			addVideoID(res, seen, id)
			return
		}
		u, err := url.Parse(href)
		if err != nil {
			return
		}
		if baseErr == nil {
			u = base.ResolveReference(u)
		}
		res.Links = append(res.Links, u.String())
	})

	doc.Find("iframe[src]").Each(func(_ int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		if !ok {
			return
		}
		if id, ok := videoid.FromURL(src); ok {
			addVideoID(res, seen, id)
		}
	})

	return res, nil
}

func addVideoID(res *Result, seen map[string]struct{}, id string) {
	if _, dup := seen[id]; dup {
		return
	}
	seen[id] = struct{}{}
	res.VideoIDs = append(res.VideoIDs, id)
}

// mainText selects the main-content region and flattens it to cleaned text.
// All matches of the first matching selector are used in document order;
// with no match at all, the document body is the region.
func mainText(doc *goquery.Document) string {
	var region *goquery.Selection
	for _, selector := range contentSelectors {
		if sel := doc.Find(selector); sel.Length() > 0 {
			region = sel
			break
		}
	}
	if region == nil {
		region = doc.Find("body")
		if region.Length() == 0 {
			region = doc.Selection
		}
	}

	var lines []string
	for _, n := range region.Nodes {
		collectText(n, &lines)
	}
	return strings.Join(lines, "\n")
}

// collectText appends every non-blank, trimmed text node under n.
func collectText(n *html.Node, lines *[]string) {
	if n.Type == html.TextNode {
		if s := strings.TrimSpace(n.Data); s != "" {
			*lines = append(*lines, s)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, lines)
	}
}
