package entities

import "time"

// Severity ranks an issue's impact.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Rank orders severities from most (0) to least severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityMajor:
		return 1
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 3
	}
	return 4
}

// Issue is one detected problem on a page.
type Issue struct {
	Code           string   `json:"code"`
	Type           Severity `json:"type"`
	Message        string   `json:"message"`
	Recommendation string   `json:"recommendation"`
	Penalty        int      `json:"penalty"`
}

// SEOAnalysis is the scored issue list derived from a page's signals.
type SEOAnalysis struct {
	Score  int     `json:"score"`
	Issues []Issue `json:"issues"`
}

// HasIssue reports whether an issue with the given code was found.
func (a SEOAnalysis) HasIssue(code string) bool {
	for _, issue := range a.Issues {
		if issue.Code == code {
			return true
		}
	}
	return false
}

// PageSignals are the SEO-relevant facts extracted from a rendered page.
type PageSignals struct {
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	Canonical        string            `json:"canonical"`
	Headings         map[string]int    `json:"headings"`
	StructuredData   []string          `json:"structuredData,omitempty"`
	MetaRobots       string            `json:"metaRobots,omitempty"`
	SocialTags       map[string]string `json:"socialTags,omitempty"`
	ImagesMissingAlt []string          `json:"imagesMissingAlt,omitempty"`
	LoadTime         time.Duration     `json:"loadTime"`
}

// H1Count returns the number of h1 elements.
func (s PageSignals) H1Count() int {
	return s.Headings["h1"]
}

// PageReport is the outcome of visiting one URL during a crawl.
type PageReport struct {
	URL        string      `json:"url"`
	Depth      int         `json:"depth"`
	Timestamp  time.Time   `json:"timestamp"`
	StatusCode int         `json:"statusCode,omitempty"`
	Signals    PageSignals `json:"signals"`
	Analysis   SEOAnalysis `json:"analysis"`
	Error      string      `json:"error,omitempty"`
}

// Failed reports whether the page could not be navigated.
func (r PageReport) Failed() bool {
	return r.Error != ""
}

// RenderedPage is what a browser session returns for one navigation.
type RenderedPage struct {
	URL        string
	FinalURL   string
	StatusCode int
	HTML       string
	LoadTime   time.Duration
}

// ParsedPage is the result of parsing a rendered page.
type ParsedPage struct {
	Signals PageSignals
	// Links are absolute URLs found in anchors, in document order, not yet filtered.
	Links []string
}
