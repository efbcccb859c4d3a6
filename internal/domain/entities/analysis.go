package entities

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	maxScore = 100

	titleMinLength       = 10
	titleMaxLength       = 60
	descriptionMinLength = 50
	descriptionMaxLength = 160
	maxAltPenalty        = 10
)

// Issue codes produced by Analyze and FailedAnalysis.
const (
	IssueTitleMissing       = "title_missing"
	IssueTitleLength        = "title_length"
	IssueDescriptionMissing = "description_missing"
	IssueDescriptionShort   = "description_short"
	IssueDescriptionLong    = "description_long"
	IssueH1Missing          = "h1_missing"
	IssueH1Multiple         = "h1_multiple"
	IssueCanonicalMissing   = "canonical_missing"
	IssueImagesMissingAlt   = "images_missing_alt"
	IssueNavigationFailed   = "navigation_failed"
)

// Analyze scores a page from its signals. It has no side effects: the same signals
// always produce the same analysis. The score starts at 100, each detected issue
// subtracts its penalty and the result never drops below 0.
func Analyze(signals PageSignals) SEOAnalysis {
	analysis := SEOAnalysis{Score: maxScore, Issues: []Issue{}}

	title := strings.TrimSpace(signals.Title)
	titleLength := utf8.RuneCountInString(title)
	switch {
	case title == "":
		analysis.deduct(Issue{
			Code:           IssueTitleMissing,
			Type:           SeverityCritical,
			Message:        "Page is missing a title tag",
			Recommendation: "Add a unique, descriptive <title> between 10 and 60 characters",
			Penalty:        15,
		})
	case titleLength < titleMinLength || titleLength > titleMaxLength:
		analysis.deduct(Issue{
			Code:           IssueTitleLength,
			Type:           SeverityWarning,
			Message:        fmt.Sprintf("Title length is %d characters", titleLength),
			Recommendation: "Keep the title between 10 and 60 characters",
			Penalty:        5,
		})
	}

	description := strings.TrimSpace(signals.Description)
	descriptionLength := utf8.RuneCountInString(description)
	switch {
	case description == "":
		analysis.deduct(Issue{
			Code:           IssueDescriptionMissing,
			Type:           SeverityMajor,
			Message:        "Page is missing a meta description",
			Recommendation: "Add a meta description summarising the page in 50 to 160 characters",
			Penalty:        10,
		})
	case descriptionLength < descriptionMinLength:
		analysis.deduct(Issue{
			Code:           IssueDescriptionShort,
			Type:           SeverityWarning,
			Message:        fmt.Sprintf("Meta description is only %d characters", descriptionLength),
			Recommendation: "Expand the meta description to at least 50 characters",
			Penalty:        5,
		})
	case descriptionLength > descriptionMaxLength:
		analysis.deduct(Issue{
			Code:           IssueDescriptionLong,
			Type:           SeverityInfo,
			Message:        fmt.Sprintf("Meta description is %d characters and may be truncated", descriptionLength),
			Recommendation: "Shorten the meta description to 160 characters or less",
			Penalty:        2,
		})
	}

	switch h1 := signals.H1Count(); {
	case h1 == 0:
		analysis.deduct(Issue{
			Code:           IssueH1Missing,
			Type:           SeverityMajor,
			Message:        "Page has no H1 heading",
			Recommendation: "Add a single H1 heading describing the page content",
			Penalty:        10,
		})
	case h1 > 1:
		analysis.deduct(Issue{
			Code:           IssueH1Multiple,
			Type:           SeverityWarning,
			Message:        fmt.Sprintf("Page has %d H1 headings", h1),
			Recommendation: "Use exactly one H1 and demote the others to H2 or lower",
			Penalty:        5,
		})
	}

	if strings.TrimSpace(signals.Canonical) == "" {
		analysis.deduct(Issue{
			Code:           IssueCanonicalMissing,
			Type:           SeverityInfo,
			Message:        "Page has no canonical link",
			Recommendation: `Add <link rel="canonical"> pointing at the preferred URL`,
			Penalty:        3,
		})
	}

	if missing := len(signals.ImagesMissingAlt); missing > 0 {
		analysis.deduct(Issue{
			Code:           IssueImagesMissingAlt,
			Type:           SeverityWarning,
			Message:        fmt.Sprintf("%d image(s) missing alt text", missing),
			Recommendation: "Describe every meaningful image with an alt attribute",
			Penalty:        min(maxAltPenalty, missing),
		})
	}

	return analysis
}

// FailedAnalysis is the analysis attached to a page that could not be navigated.
func FailedAnalysis(err error) SEOAnalysis {
	message := "Page could not be loaded"
	if err != nil {
		message = fmt.Sprintf("Page could not be loaded: %v", err)
	}
	return SEOAnalysis{
		Score: 0,
		Issues: []Issue{{
			Code:           IssueNavigationFailed,
			Type:           SeverityCritical,
			Message:        message,
			Recommendation: "Check that the page is reachable and responds within the timeout",
			Penalty:        maxScore,
		}},
	}
}

func (a *SEOAnalysis) deduct(issue Issue) {
	a.Issues = append(a.Issues, issue)
	a.Score = max(0, a.Score-issue.Penalty)
}

// SiteIssue is an issue located on a crawled page, as handed to fix generators.
type SiteIssue struct {
	ID      string `json:"id"`
	PageURL string `json:"pageUrl"`
	Issue   Issue  `json:"issue"`
}

// PrioritizeIssues flattens the issues of a crawl, most severe first. Ties keep the
// higher penalty first, then crawl order. IDs are "<pageIndex>-<code>".
func PrioritizeIssues(pages []PageReport) []SiteIssue {
	issues := make([]SiteIssue, 0)
	for pageIndex, page := range pages {
		for _, issue := range page.Analysis.Issues {
			issues = append(issues, SiteIssue{
				ID:      fmt.Sprintf("%d-%s", pageIndex, issue.Code),
				PageURL: page.URL,
				Issue:   issue,
			})
		}
	}
	sort.SliceStable(issues, func(i, j int) bool {
		left, right := issues[i].Issue, issues[j].Issue
		if left.Type.Rank() != right.Type.Rank() {
			return left.Type.Rank() < right.Type.Rank()
		}
		return left.Penalty > right.Penalty
	})
	return issues
}

// AverageScore returns the mean score of the given pages, or 0 when there are none.
func AverageScore(pages []PageReport) float64 {
	if len(pages) == 0 {
		return 0
	}
	total := 0
	for _, page := range pages {
		total += page.Analysis.Score
	}
	return float64(total) / float64(len(pages))
}
