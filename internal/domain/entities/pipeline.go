package entities

// PipelineOptions controls one pipeline run for a site.
type PipelineOptions struct {
	SiteID  string
	SeedURL string // Overrides the configured site URL when set
	DryRun  bool
	Crawl   CrawlOverrides
}

// PipelineReport collects what every stage of a pipeline run produced.
type PipelineReport struct {
	SiteID         string                `json:"siteId"`
	Crawl          *CrawlResult          `json:"crawl,omitempty"`
	Issues         []SiteIssue           `json:"issues"`
	Fixes          []Fix                 `json:"fixes"`
	Implementation *ImplementationResult `json:"implementation,omitempty"`
	Finalize       *FinalizeResult       `json:"finalize,omitempty"`
	Verification   *VerificationResult   `json:"verification,omitempty"`
	Rollback       *RollbackResult       `json:"rollback,omitempty"`
}
