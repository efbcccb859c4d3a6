package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/seoremedy/internal/domain/entities"
	"github.com/rios0rios0/seoremedy/internal/domain/repositories"
)

// Pipeline is the interface for the crawl, fix, commit, verify and rollback flow.
type Pipeline interface {
	ImplementFixes(ctx context.Context, siteID string, fixes []entities.Fix) (*entities.ImplementationResult, error)
	RollbackFixes(ctx context.Context, siteID string, fixes []entities.Fix) (*entities.RollbackResult, error)
	Execute(ctx context.Context, opts entities.PipelineOptions) (*entities.PipelineReport, error)
}

const (
	fixOutcomeApplied        = "applied"
	fixOutcomeFailed         = "failed"
	fixOutcomeSkipped        = "skipped"
	fixOutcomeRolledBack     = "rolled_back"
	fixOutcomeRollbackFailed = "rollback_failed"
)

var errFixWithoutBatch = errors.New("fix has a commit but no batch id")

// PipelineCommand drives one remediation run per site. Single fix failures never stop a
// run; a rollback happens only when verification reports failure.
type PipelineCommand struct {
	settings   *entities.Settings
	tracking   ChangeTracking
	crawl      Crawl
	generator  repositories.FixGeneratorRepository
	verifier   repositories.VerifierRepository
	metrics    repositories.MetricsRepository
	newBatchID func() string
}

// NewPipelineCommand creates a new PipelineCommand.
func NewPipelineCommand(
	settings *entities.Settings,
	tracking ChangeTracking,
	crawl Crawl,
	generator repositories.FixGeneratorRepository,
	verifier repositories.VerifierRepository,
	metrics repositories.MetricsRepository,
) *PipelineCommand {
	return &PipelineCommand{
		settings:   settings,
		tracking:   tracking,
		crawl:      crawl,
		generator:  generator,
		verifier:   verifier,
		metrics:    metrics,
		newBatchID: uuid.NewString,
	}
}

// ImplementFixes applies and records every fix in the open batch of the site, opening a
// new batch when there is none. Failed fixes are collected, never fatal.
func (it *PipelineCommand) ImplementFixes(
	ctx context.Context,
	siteID string,
	fixes []entities.Fix,
) (*entities.ImplementationResult, error) {
	result := entities.NewImplementationResult()
	if len(fixes) == 0 {
		return result, nil
	}

	open, err := it.tracking.OpenBatch(ctx, siteID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		result.BatchID = open.BatchID
		logger.Infof("Adding %d fix(es) to open batch %q of site %q", len(fixes), open.BatchID, siteID)
	} else {
		result.BatchID = it.newBatchID()
		description := fmt.Sprintf("Automated SEO fixes (%d)", len(fixes))
		if _, err = it.tracking.StartBatch(ctx, siteID, result.BatchID, description); err != nil {
			return nil, err
		}
	}

	for _, fix := range fixes {
		applied, applyErr := it.tracking.ApplyChange(ctx, siteID, fix)
		if applyErr != nil {
			logger.Warnf("Fix %q for issue %q on %s failed: %v", fix.ID, fix.IssueID, fix.Path, applyErr)
			result.FailedFixes = append(result.FailedFixes, entities.FailedFix{Fix: fix, Error: applyErr.Error()})
			it.metrics.FixOutcome(fixOutcomeFailed)
			continue
		}
		result.AppliedFixes = append(result.AppliedFixes, applied)
		it.metrics.FixOutcome(fixOutcomeApplied)
	}

	logger.Infof("Implemented %d/%d fix(es) for site %q in batch %q",
		len(result.AppliedFixes), len(fixes), siteID, result.BatchID)
	return result, nil
}

// RollbackFixes reverts the batches the given fixes were committed in. Rollback works per
// batch, so every fix of a reverted batch is undone. Fixes without a commit are skipped.
func (it *PipelineCommand) RollbackFixes(
	ctx context.Context,
	siteID string,
	fixes []entities.Fix,
) (*entities.RollbackResult, error) {
	result := entities.NewRollbackResult()

	var batchOrder []string
	byBatch := map[string][]entities.Fix{}
	for _, fix := range fixes {
		switch {
		case !fix.Applied():
			result.SkippedFixes = append(result.SkippedFixes, fix)
			it.metrics.FixOutcome(fixOutcomeSkipped)
		case fix.BatchID == "":
			result.FailedRollbacks = append(result.FailedRollbacks,
				entities.FailedFix{Fix: fix, Error: errFixWithoutBatch.Error()})
			result.Success = false
			it.metrics.FixOutcome(fixOutcomeRollbackFailed)
		default:
			if _, seen := byBatch[fix.BatchID]; !seen {
				batchOrder = append(batchOrder, fix.BatchID)
			}
			byBatch[fix.BatchID] = append(byBatch[fix.BatchID], fix)
		}
	}

	for _, batchID := range batchOrder {
		batchFixes := byBatch[batchID]
		rollback, err := it.tracking.RollbackBatch(ctx, siteID, batchID)
		if err != nil {
			logger.Errorf("Rollback of batch %q for site %q failed: %v", batchID, siteID, err)
			for _, fix := range batchFixes {
				result.FailedRollbacks = append(result.FailedRollbacks, entities.FailedFix{Fix: fix, Error: err.Error()})
				it.metrics.FixOutcome(fixOutcomeRollbackFailed)
			}
			result.Success = false
			continue
		}
		result.RolledBackFixes = append(result.RolledBackFixes, batchFixes...)
		for range batchFixes {
			it.metrics.FixOutcome(fixOutcomeRolledBack)
		}
		if rollback.RollbackTime.After(result.RollbackTime) {
			result.RollbackTime = rollback.RollbackTime
		}
	}

	return result, nil
}

// Execute runs crawl, prioritization, fix generation, implementation, finalization,
// verification and, when verification fails, rollback. The report holds whatever the
// completed stages produced, also when an error is returned.
func (it *PipelineCommand) Execute(
	ctx context.Context,
	opts entities.PipelineOptions,
) (*entities.PipelineReport, error) {
	report := &entities.PipelineReport{
		SiteID: opts.SiteID,
		Issues: []entities.SiteIssue{},
		Fixes:  []entities.Fix{},
	}
	site, err := it.settings.ResolveSite(opts.SiteID)
	if err != nil {
		return report, err
	}

	seed := opts.SeedURL
	if seed == "" {
		seed = site.URL
	}
	if seed == "" {
		return report, fmt.Errorf("site %q has no URL configured", site.ID)
	}
	crawlOpts := it.settings.ResolveCrawlOptions(seed, opts.Crawl)

	crawl, err := it.crawl.Execute(ctx, crawlOpts)
	if err != nil {
		return report, fmt.Errorf("crawl failed: %w", err)
	}
	report.Crawl = crawl
	report.Issues = entities.PrioritizeIssues(crawl.Pages)
	if len(report.Issues) == 0 {
		logger.Infof("No issues found on site %q", site.ID)
		return report, nil
	}

	fixes, err := it.generator.Generate(ctx, site, report.Issues)
	if err != nil {
		return report, fmt.Errorf("fix generation (%s) failed: %w", it.generator.Name(), err)
	}
	report.Fixes = fixes
	if opts.DryRun || len(fixes) == 0 {
		logger.Infof("Generated %d fix(es) for %d issue(s) on site %q, nothing applied",
			len(fixes), len(report.Issues), site.ID)
		return report, nil
	}

	implementation, err := it.ImplementFixes(ctx, site.ID, fixes)
	if err != nil {
		return report, err
	}
	report.Implementation = implementation

	approved := len(implementation.AppliedFixes) > 0
	finalize, err := it.tracking.FinalizeBatch(ctx, site.ID, implementation.BatchID, approved)
	if err != nil {
		return report, err
	}
	report.Finalize = finalize
	if !approved {
		logger.Warnf("No fix could be applied on site %q, batch %q rejected", site.ID, implementation.BatchID)
		return report, nil
	}

	verification, err := it.verifier.VerifySite(ctx, entities.VerificationRequest{
		SiteID:   site.ID,
		Site:     site,
		Baseline: crawl,
		Fixes:    implementation.AppliedFixes,
	})
	if err != nil {
		return report, fmt.Errorf("verification (%s) failed: %w", it.verifier.Name(), err)
	}
	report.Verification = verification
	if verification.Success {
		logger.Infof("Verification of batch %q on site %q passed", implementation.BatchID, site.ID)
		return report, nil
	}

	logger.Warnf("Verification of batch %q on site %q failed (%s), rolling back",
		implementation.BatchID, site.ID, verification.Details)
	rollback, err := it.RollbackFixes(ctx, site.ID, implementation.AppliedFixes)
	report.Rollback = rollback
	return report, err
}
