package entities

// VerifiedIssue tells whether a fixed issue is gone after verification.
type VerifiedIssue struct {
	IssueID string `json:"issueId"`
	FixID   string `json:"fixId,omitempty"`
	Fixed   bool   `json:"fixed"`
}

// VerificationResult is returned by verifiers. Success=false is the only rollback trigger.
type VerificationResult struct {
	Success        bool               `json:"success"`
	Metrics        map[string]float64 `json:"metrics"`
	VerifiedIssues []VerifiedIssue    `json:"verifiedIssues"`
	Details        string             `json:"details"`
}

// VerificationRequest is the post-implementation input of a site verification.
type VerificationRequest struct {
	SiteID   string
	Site     Site
	Baseline *CrawlResult
	Fixes    []Fix
}
