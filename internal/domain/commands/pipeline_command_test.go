//go:build unit

package commands_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/seoremedy/internal/domain/commands"
	"github.com/rios0rios0/seoremedy/internal/domain/entities"
	"github.com/rios0rios0/seoremedy/test/domain/commanddoubles"
	"github.com/rios0rios0/seoremedy/test/domain/entitybuilders"
	doubles "github.com/rios0rios0/seoremedy/test/infrastructure/repositorydoubles"
)

func newStubbedPipeline(tracking commands.ChangeTracking) (*commands.PipelineCommand, *doubles.DummyMetricsRepository) {
	settings := entities.DefaultSettings()
	settings.SitesRoot = "/sites"
	metrics := &doubles.DummyMetricsRepository{}
	pipeline := commands.NewPipelineCommand(
		settings, tracking, &commanddoubles.StubCrawlCommand{},
		&doubles.SpyFixGeneratorRepository{}, &doubles.StubVerifierRepository{}, metrics,
	)
	pipeline.SetBatchIDGenerator(func() string { return "batch-1" })
	return pipeline, metrics
}

func TestPipelineImplementFixes(t *testing.T) {
	t.Parallel()

	t.Run("should return empty lists without touching the engine for no fixes", func(t *testing.T) {
		t.Parallel()
		// given
		tracking := &commanddoubles.StubChangeTrackingCommand{}
		pipeline, _ := newStubbedPipeline(tracking)

		// when
		result, err := pipeline.ImplementFixes(context.Background(), testSiteID, nil)

		// then
		require.NoError(t, err)
		assert.Empty(t, result.AppliedFixes)
		assert.Empty(t, result.FailedFixes)
		assert.NotNil(t, result.AppliedFixes)
		assert.Empty(t, tracking.StartCalls)
		assert.Empty(t, tracking.ApplyCalls)
	})

	t.Run("should keep going after a single fix fails", func(t *testing.T) {
		t.Parallel()
		// given
		tracking := &commanddoubles.StubChangeTrackingCommand{
			ApplyErrs: map[string]error{"fix-2": entities.ErrOriginalNotFound},
		}
		pipeline, metrics := newStubbedPipeline(tracking)
		fixes := []entities.Fix{
			entitybuilders.NewFixBuilder().WithID("fix-1").BuildFix(),
			entitybuilders.NewFixBuilder().WithID("fix-2").BuildFix(),
			entitybuilders.NewFixBuilder().WithID("fix-3").BuildFix(),
		}

		// when
		result, err := pipeline.ImplementFixes(context.Background(), testSiteID, fixes)

		// then
		require.NoError(t, err)
		assert.Equal(t, "batch-1", result.BatchID)
		assert.Equal(t, []string{"batch-1"}, tracking.StartCalls)
		require.Len(t, result.AppliedFixes, 2)
		assert.Equal(t, "fix-1", result.AppliedFixes[0].ID)
		assert.Equal(t, "fix-3", result.AppliedFixes[1].ID)
		assert.Equal(t, "batch-1", result.AppliedFixes[0].BatchID)
		assert.True(t, result.AppliedFixes[0].Applied())
		require.Len(t, result.FailedFixes, 1)
		assert.Equal(t, "fix-2", result.FailedFixes[0].Fix.ID)
		assert.Contains(t, result.FailedFixes[0].Error, "original content not found")
		assert.Equal(t, []string{"applied", "failed", "applied"}, metrics.FixOutcomes)
	})

	t.Run("should reuse the batch that is already open", func(t *testing.T) {
		t.Parallel()
		// given
		tracking := &commanddoubles.StubChangeTrackingCommand{
			Open: &entities.ChangeBatch{BatchID: "manual", Status: entities.BatchStatusOpen},
		}
		pipeline, _ := newStubbedPipeline(tracking)

		// when
		result, err := pipeline.ImplementFixes(context.Background(), testSiteID,
			[]entities.Fix{entitybuilders.NewFixBuilder().BuildFix()})

		// then
		require.NoError(t, err)
		assert.Equal(t, "manual", result.BatchID)
		assert.Empty(t, tracking.StartCalls)
	})

	t.Run("should fail when no batch can be opened", func(t *testing.T) {
		t.Parallel()
		// given
		tracking := &commanddoubles.StubChangeTrackingCommand{StartErr: errors.New("git not installed")}
		pipeline, _ := newStubbedPipeline(tracking)

		// when
		_, err := pipeline.ImplementFixes(context.Background(), testSiteID,
			[]entities.Fix{entitybuilders.NewFixBuilder().BuildFix()})

		// then
		require.Error(t, err)
		assert.Empty(t, tracking.ApplyCalls)
	})
}

func TestPipelineRollbackFixes(t *testing.T) {
	t.Parallel()

	t.Run("should skip fixes without a commit and roll back each batch once", func(t *testing.T) {
		t.Parallel()
		// given
		tracking := &commanddoubles.StubChangeTrackingCommand{}
		pipeline, _ := newStubbedPipeline(tracking)
		fixes := []entities.Fix{
			entitybuilders.NewFixBuilder().WithID("never-applied").BuildFix(),
			entitybuilders.NewFixBuilder().WithID("a").WithCommit("b1", "c1").BuildFix(),
			entitybuilders.NewFixBuilder().WithID("b").WithCommit("b1", "c2").BuildFix(),
			entitybuilders.NewFixBuilder().WithID("c").WithCommit("b2", "c3").BuildFix(),
		}

		// when
		result, err := pipeline.RollbackFixes(context.Background(), testSiteID, fixes)

		// then
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, []string{"b1", "b2"}, tracking.RollbackCalls)
		require.Len(t, result.SkippedFixes, 1)
		assert.Equal(t, "never-applied", result.SkippedFixes[0].ID)
		assert.Len(t, result.RolledBackFixes, 3)
		assert.Empty(t, result.FailedRollbacks)
	})

	t.Run("should report a failed batch rollback without marking success", func(t *testing.T) {
		t.Parallel()
		// given
		tracking := &commanddoubles.StubChangeTrackingCommand{
			RollbackErrs: map[string]error{"b2": entities.ErrBatchNotCompleted},
		}
		pipeline, _ := newStubbedPipeline(tracking)
		fixes := []entities.Fix{
			entitybuilders.NewFixBuilder().WithID("a").WithCommit("b1", "c1").BuildFix(),
			entitybuilders.NewFixBuilder().WithID("c").WithCommit("b2", "c3").BuildFix(),
		}

		// when
		result, err := pipeline.RollbackFixes(context.Background(), testSiteID, fixes)

		// then
		require.NoError(t, err)
		assert.False(t, result.Success)
		require.Len(t, result.RolledBackFixes, 1)
		assert.Equal(t, "a", result.RolledBackFixes[0].ID)
		require.Len(t, result.FailedRollbacks, 1)
		assert.Equal(t, "c", result.FailedRollbacks[0].Fix.ID)
		assert.Contains(t, result.FailedRollbacks[0].Error, "no completion tag")
	})

	t.Run("should succeed trivially for an empty list", func(t *testing.T) {
		t.Parallel()
		// given
		tracking := &commanddoubles.StubChangeTrackingCommand{}
		pipeline, _ := newStubbedPipeline(tracking)

		// when
		result, err := pipeline.RollbackFixes(context.Background(), testSiteID, nil)

		// then
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Empty(t, tracking.RollbackCalls)
	})
}

type pipelineFixture struct {
	tracking  *trackingFixture
	crawl     *commanddoubles.StubCrawlCommand
	generator *doubles.SpyFixGeneratorRepository
	verifier  *doubles.StubVerifierRepository
	pipeline  *commands.PipelineCommand
}

// newPipelineFixture wires the real tracking engine over the in-memory repository and a
// crawl that reports one page with an empty title.
func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	tracking := newTrackingFixture(t)
	tracking.settings.Sites = []entities.SiteSettings{{ID: testSiteID, URL: shop + "/", Dir: testSiteDir}}

	crawl := &commanddoubles.StubCrawlCommand{Result: &entities.CrawlResult{
		SeedURL: shop + "/",
		Pages: []entities.PageReport{{
			URL:      shop + "/",
			Signals:  entitybuilders.NewPageSignalsBuilder().WithTitle("").BuildSignals(),
			Analysis: entities.Analyze(entitybuilders.NewPageSignalsBuilder().WithTitle("").BuildSignals()),
		}},
	}}
	generator := &doubles.SpyFixGeneratorRepository{
		Fixes: []entities.Fix{entitybuilders.NewFixBuilder().WithIssueID("0-title_missing").BuildFix()},
	}
	verifier := &doubles.StubVerifierRepository{}

	pipeline := commands.NewPipelineCommand(
		tracking.settings, tracking.cmd, crawl, generator, verifier, tracking.metrics,
	)
	pipeline.SetBatchIDGenerator(func() string { return "run-1" })
	return &pipelineFixture{
		tracking:  tracking,
		crawl:     crawl,
		generator: generator,
		verifier:  verifier,
		pipeline:  pipeline,
	}
}

func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("should keep the merged batch when verification passes", func(t *testing.T) {
		t.Parallel()
		// given
		f := newPipelineFixture(t)

		// when
		report, err := f.pipeline.Execute(context.Background(), entities.PipelineOptions{SiteID: testSiteID})

		// then
		require.NoError(t, err)
		require.NotEmpty(t, report.Issues)
		assert.Equal(t, "0-title_missing", report.Issues[0].ID)
		require.Len(t, report.Implementation.AppliedFixes, 1)
		assert.Equal(t, entities.BatchStatusCompleted, report.Finalize.Status)
		assert.True(t, report.Verification.Success)
		assert.Nil(t, report.Rollback)

		content, _ := f.tracking.repo.FileAt("seo-fixes", "index.html")
		assert.Equal(t, indexAfter, content)
		require.Len(t, f.verifier.SiteRequests, 1)
		assert.Same(t, f.crawl.Result, f.verifier.SiteRequests[0].Baseline)
		assert.Equal(t, shop+"/", f.crawl.Calls[0].SeedURL)
		assert.Equal(t, 50, f.crawl.Calls[0].MaxPages)
	})

	t.Run("should fill crawl options missing from partial overrides", func(t *testing.T) {
		t.Parallel()
		// given
		f := newPipelineFixture(t)
		depth := 0
		opts := entities.PipelineOptions{
			SiteID: testSiteID,
			DryRun: true,
			Crawl:  entities.CrawlOverrides{MaxPages: 5},
		}

		// when
		_, err := f.pipeline.Execute(context.Background(), opts)
		require.NoError(t, err)
		opts.Crawl.MaxDepth = &depth
		_, err = f.pipeline.Execute(context.Background(), opts)

		// then
		require.NoError(t, err)
		require.Len(t, f.crawl.Calls, 2)
		defaults := f.tracking.settings.Crawler
		assert.Equal(t, 5, f.crawl.Calls[0].MaxPages)
		assert.Equal(t, defaults.MaxDepth, f.crawl.Calls[0].MaxDepth)
		assert.Equal(t, defaults.Browser, f.crawl.Calls[0].Browser)
		assert.Equal(t, shop+"/", f.crawl.Calls[0].SeedURL)
		assert.Equal(t, 0, f.crawl.Calls[1].MaxDepth)
	})

	t.Run("should roll back when verification reports failure", func(t *testing.T) {
		t.Parallel()
		// given
		f := newPipelineFixture(t)
		f.verifier.Result = &entities.VerificationResult{Success: false, Details: "score dropped"}

		// when
		report, err := f.pipeline.Execute(context.Background(), entities.PipelineOptions{SiteID: testSiteID})

		// then
		require.NoError(t, err)
		require.NotNil(t, report.Rollback)
		assert.True(t, report.Rollback.Success)
		assert.Len(t, report.Rollback.RolledBackFixes, 1)

		content, _ := f.tracking.repo.FileAt("seo-fixes", "index.html")
		assert.Equal(t, indexBefore, content)
		batch, err := f.tracking.cmd.GetBatch(context.Background(), testSiteID, "run-1")
		require.NoError(t, err)
		assert.Equal(t, entities.BatchStatusRolledBack, batch.Status)
	})

	t.Run("should reject the batch and skip verification when no fix applies", func(t *testing.T) {
		t.Parallel()
		// given
		f := newPipelineFixture(t)
		f.generator.Fixes = []entities.Fix{
			entitybuilders.NewFixBuilder().WithChanges("<blink>", "<b>").BuildFix(),
		}

		// when
		report, err := f.pipeline.Execute(context.Background(), entities.PipelineOptions{SiteID: testSiteID})

		// then
		require.NoError(t, err)
		assert.Len(t, report.Implementation.FailedFixes, 1)
		assert.Equal(t, entities.BatchStatusRejected, report.Finalize.Status)
		assert.Nil(t, report.Verification)
		assert.Nil(t, report.Rollback)
		assert.Empty(t, f.verifier.SiteRequests)
	})

	t.Run("should stop after fix generation on a dry run", func(t *testing.T) {
		t.Parallel()
		// given
		f := newPipelineFixture(t)

		// when
		report, err := f.pipeline.Execute(context.Background(),
			entities.PipelineOptions{SiteID: testSiteID, DryRun: true})

		// then
		require.NoError(t, err)
		assert.Len(t, report.Fixes, 1)
		assert.Nil(t, report.Implementation)
		assert.False(t, f.tracking.repo.IsRepository(context.Background()))
	})

	t.Run("should not generate fixes for a clean site", func(t *testing.T) {
		t.Parallel()
		// given
		f := newPipelineFixture(t)
		f.crawl.Result.Pages[0].Analysis = entities.Analyze(entitybuilders.NewPageSignalsBuilder().BuildSignals())

		// when
		report, err := f.pipeline.Execute(context.Background(), entities.PipelineOptions{SiteID: testSiteID})

		// then
		require.NoError(t, err)
		assert.Empty(t, report.Issues)
		assert.Empty(t, f.generator.Issues)
	})

	t.Run("should surface verifier errors without rolling back", func(t *testing.T) {
		t.Parallel()
		// given
		f := newPipelineFixture(t)
		f.verifier.Err = errors.New("verifier crashed")

		// when
		report, err := f.pipeline.Execute(context.Background(), entities.PipelineOptions{SiteID: testSiteID})

		// then
		require.Error(t, err)
		assert.Nil(t, report.Rollback)
		assert.Equal(t, entities.BatchStatusCompleted, report.Finalize.Status)
	})

	t.Run("should fail for a site without URL", func(t *testing.T) {
		t.Parallel()
		// given
		f := newPipelineFixture(t)
		f.tracking.settings.Sites[0].URL = ""

		// when
		_, err := f.pipeline.Execute(context.Background(), entities.PipelineOptions{SiteID: testSiteID})

		// then
		require.Error(t, err)
		assert.Empty(t, f.crawl.Calls)
	})
}
