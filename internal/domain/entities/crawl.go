package entities

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"
)

// CrawlOptions bounds a single crawl.
type CrawlOptions struct {
	SeedURL           string        `json:"seedUrl"`
	MaxPages          int           `json:"maxPages"`
	MaxDepth          int           `json:"maxDepth"`
	Concurrency       int           `json:"concurrency,omitempty"`
	NavigationTimeout time.Duration `json:"navigationTimeout,omitempty"`
	Browser           string        `json:"browser,omitempty"`
}

// CrawlOverrides replaces single crawler defaults. Zero fields keep the configured
// value, except MaxDepth which applies whenever it is set, so 0 crawls the seed only.
type CrawlOverrides struct {
	MaxPages          int           `json:"maxPages,omitempty"`
	MaxDepth          *int          `json:"maxDepth,omitempty"`
	Concurrency       int           `json:"concurrency,omitempty"`
	NavigationTimeout time.Duration `json:"navigationTimeout,omitempty"`
	Browser           string        `json:"browser,omitempty"`
}

// CrawlResult holds the page reports of one crawl in discovery order.
type CrawlResult struct {
	SeedURL    string       `json:"seedUrl"`
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt time.Time    `json:"finishedAt"`
	Pages      []PageReport `json:"pages"`
}

// FindPage returns the report for the given URL key, if any.
func (r *CrawlResult) FindPage(rawURL string) (PageReport, bool) {
	key, err := VisitKey(rawURL)
	if err != nil {
		return PageReport{}, false
	}
	for _, page := range r.Pages {
		if pageKey, keyErr := VisitKey(page.URL); keyErr == nil && pageKey == key {
			return page, true
		}
	}
	return PageReport{}, false
}

var errUnsupportedScheme = errors.New("only http and https URLs can be crawled")

// ParseCrawlURL parses an absolute http(s) URL.
func ParseCrawlURL(raw string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("%w: %q", errUnsupportedScheme, raw)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("invalid URL %q: missing host", raw)
	}
	parsed.Scheme = scheme
	parsed.Host = strings.ToLower(parsed.Host)
	return parsed, nil
}

// Origin returns scheme://host of a URL.
func Origin(u *url.URL) string {
	return u.Scheme + "://" + u.Host
}

// VisitKey is the de-duplication key of a URL: origin plus path, without query or
// fragment, with an empty path treated as "/".
func VisitKey(raw string) (string, error) {
	parsed, err := ParseCrawlURL(raw)
	if err != nil {
		return "", err
	}
	p := parsed.EscapedPath()
	if p == "" {
		p = "/"
	}
	return Origin(parsed) + p, nil
}

// DefaultDenyList holds path fragments of links that must never be followed.
func DefaultDenyList() []string {
	return []string{"logout", "log-out", "signout", "sign-out", "delete", "remove", "unsubscribe"}
}

// nonHTMLExtensions are file types that never yield an HTML page.
var nonHTMLExtensions = map[string]struct{}{
	".7z": {}, ".avi": {}, ".bmp": {}, ".css": {}, ".csv": {}, ".dmg": {}, ".doc": {},
	".docx": {}, ".eot": {}, ".exe": {}, ".gif": {}, ".gz": {}, ".ico": {}, ".jpeg": {},
	".jpg": {}, ".js": {}, ".json": {}, ".mov": {}, ".mp3": {}, ".mp4": {}, ".pdf": {},
	".png": {}, ".ppt": {}, ".pptx": {}, ".rar": {}, ".rss": {}, ".svg": {}, ".tar": {},
	".tgz": {}, ".ttf": {}, ".txt": {}, ".wav": {}, ".webm": {}, ".webp": {}, ".woff": {},
	".woff2": {}, ".xls": {}, ".xlsx": {}, ".xml": {}, ".zip": {},
}

// LinkFilter decides which discovered links a crawl may follow.
type LinkFilter struct {
	origin   string
	denyList []string
}

// NewLinkFilter creates a filter for links of the given origin.
func NewLinkFilter(origin string, denyList []string) *LinkFilter {
	lowered := make([]string, 0, len(denyList))
	for _, entry := range denyList {
		if entry = strings.ToLower(strings.TrimSpace(entry)); entry != "" {
			lowered = append(lowered, entry)
		}
	}
	return &LinkFilter{origin: strings.ToLower(origin), denyList: lowered}
}

// Accept returns the normalized form of link (query and fragment stripped) when it is a
// same-origin http(s) link to an HTML page that is not on the deny-list.
func (f *LinkFilter) Accept(link string) (string, bool) {
	parsed, err := ParseCrawlURL(link)
	if err != nil {
		return "", false
	}
	if Origin(parsed) != f.origin {
		return "", false
	}
	if _, skip := nonHTMLExtensions[strings.ToLower(path.Ext(parsed.Path))]; skip {
		return "", false
	}
	lowerPath := strings.ToLower(parsed.Path)
	for _, denied := range f.denyList {
		if strings.Contains(lowerPath, denied) {
			return "", false
		}
	}
	parsed.RawQuery = ""
	parsed.ForceQuery = false
	parsed.Fragment = ""
	parsed.RawFragment = ""
	return parsed.String(), true
}

// FilterLinks applies Accept to every link and drops duplicates, keeping first-seen order.
func (f *LinkFilter) FilterLinks(links []string) []string {
	seen := make(map[string]struct{}, len(links))
	accepted := make([]string, 0, len(links))
	for _, link := range links {
		normalized, ok := f.Accept(link)
		if !ok {
			continue
		}
		key, err := VisitKey(normalized)
		if err != nil {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		accepted = append(accepted, normalized)
	}
	return accepted
}
