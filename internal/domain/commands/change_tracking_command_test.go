//go:build unit

package commands_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/seoremedy/internal/domain/commands"
	"github.com/rios0rios0/seoremedy/internal/domain/entities"
	"github.com/rios0rios0/seoremedy/test/domain/entitybuilders"
	doubles "github.com/rios0rios0/seoremedy/test/infrastructure/repositorydoubles"
)

const (
	testSiteID  = "acme"
	testSiteDir = "/sites/acme"
	indexBefore = "<html><head><title></title></head></html>"
	indexAfter  = "<html><head><title>Handmade Oak Furniture</title></head></html>"
)

type trackingFixture struct {
	cmd      *commands.ChangeTrackingCommand
	settings *entities.Settings
	vcs      *doubles.FakeVCSFactory
	repo     *doubles.FakeVCSRepository
	locks    *doubles.SpySiteLockRepository
	editor   *doubles.SpyFileEditorRepository
	metrics  *doubles.DummyMetricsRepository
}

func newTrackingFixture(t *testing.T) *trackingFixture {
	t.Helper()
	settings := entities.DefaultSettings()
	settings.SitesRoot = "/sites"
	vcs := doubles.NewFakeVCSFactory()
	repo := vcs.Repo(testSiteDir)
	require.NoError(t, repo.WriteFile(context.Background(), "index.html", []byte(indexBefore)))

	fixture := &trackingFixture{
		settings: settings,
		vcs:      vcs,
		repo:     repo,
		locks:    &doubles.SpySiteLockRepository{},
		editor:   &doubles.SpyFileEditorRepository{Repos: vcs},
		metrics:  &doubles.DummyMetricsRepository{},
	}
	fixture.cmd = commands.NewChangeTrackingCommand(
		settings, vcs, fixture.locks, fixture.editor, fixture.metrics,
	)
	return fixture
}

// edit writes content into the site working tree, standing in for a fix applier.
func (f *trackingFixture) edit(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, f.repo.WriteFile(context.Background(), path, []byte(content)))
}

func (f *trackingFixture) completeBatch(t *testing.T, batchID, path, content string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.cmd.StartBatch(ctx, testSiteID, batchID, "batch "+batchID)
	require.NoError(t, err)
	f.edit(t, path, content)
	_, err = f.cmd.RecordChange(ctx, testSiteID, path, entities.ChangeTypeMetaTag, nil)
	require.NoError(t, err)
	_, err = f.cmd.FinalizeBatch(ctx, testSiteID, batchID, true)
	require.NoError(t, err)
}

func TestChangeTrackingStartBatch(t *testing.T) {
	t.Parallel()

	t.Run("should initialise the repository and open the batch on its own branch", func(t *testing.T) {
		t.Parallel()
		// given
		f := newTrackingFixture(t)

		// when
		branch, err := f.cmd.StartBatch(context.Background(), testSiteID, "b1", "Fix titles")

		// then
		require.NoError(t, err)
		assert.Equal(t, "seo-batch/b1", branch)
		assert.True(t, f.repo.IsRepository(context.Background()))
		assert.NotEmpty(t, f.repo.BranchHead("seo-fixes"))

		current, _ := f.repo.CurrentBranch(context.Background())
		assert.Equal(t, branch, current)

		record, ok := f.repo.FileAt(branch, ".seoremedy/batch.json")
		require.True(t, ok)
		batch, err := entities.UnmarshalBatchRecord([]byte(record))
		require.NoError(t, err)
		assert.Equal(t, entities.BatchStatusOpen, batch.Status)
		assert.Equal(t, "Fix titles", batch.Description)
		assert.Empty(t, batch.Changes)
		assert.Equal(t, []entities.BatchStatus{entities.BatchStatusOpen}, f.metrics.Transitions)
	})

	t.Run("should refuse a second open batch for the same site", func(t *testing.T) {
		t.Parallel()
		// given
		f := newTrackingFixture(t)
		_, err := f.cmd.StartBatch(context.Background(), testSiteID, "b1", "first")
		require.NoError(t, err)

		// when
		_, err = f.cmd.StartBatch(context.Background(), testSiteID, "b2", "second")

		// then
		require.ErrorIs(t, err, entities.ErrBatchAlreadyOpen)
		assert.Equal(t, entities.KindInvalidState, entities.KindOf(err))
	})

	t.Run("should refuse to reuse a batch id", func(t *testing.T) {
		t.Parallel()
		// given
		f := newTrackingFixture(t)
		f.completeBatch(t, "b1", "index.html", indexAfter)

		// when
		_, err := f.cmd.StartBatch(context.Background(), testSiteID, "b1", "again")

		// then
		require.ErrorIs(t, err, entities.ErrBatchExists)
	})

	t.Run("should reject unsafe batch ids", func(t *testing.T) {
		t.Parallel()
		// given
		f := newTrackingFixture(t)

		// when
		_, err := f.cmd.StartBatch(context.Background(), testSiteID, "../escape", "bad")

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid batch id")
		assert.False(t, f.repo.IsRepository(context.Background()))
	})
}

func TestChangeTrackingRecordChange(t *testing.T) {
	t.Parallel()

	t.Run("should fail with NoOpenBatch before a batch is started", func(t *testing.T) {
		t.Parallel()
		// given
		f := newTrackingFixture(t)

		// when
		_, err := f.cmd.RecordChange(context.Background(), testSiteID, "index.html", entities.ChangeTypeMetaTag, nil)

		// then
		require.ErrorIs(t, err, entities.ErrNoOpenBatch)
		assert.Equal(t, entities.KindInvalidState, entities.KindOf(err))
		var tracking *entities.TrackingError
		require.ErrorAs(t, err, &tracking)
		assert.Equal(t, testSiteID, tracking.SiteID)
	})

	t.Run("should reject change types outside the closed set", func(t *testing.T) {
		t.Parallel()
		// given
		f := newTrackingFixture(t)

		// when
		_, err := f.cmd.RecordChange(context.Background(), testSiteID, "index.html", "font_size", nil)

		// then
		require.ErrorIs(t, err, entities.ErrUnsupportedChangeType)
		assert.Equal(t, entities.KindPolicyViolation, entities.KindOf(err))
	})

	t.Run("should commit one change per call with a templated message and envelope", func(t *testing.T) {
		t.Parallel()
		// given
		f := newTrackingFixture(t)
		ctx := context.Background()
		_, err := f.cmd.StartBatch(ctx, testSiteID, "b1", "Fix titles")
		require.NoError(t, err)
		f.edit(t, "index.html", indexAfter)

		// when
		ref, err := f.cmd.RecordChange(ctx, testSiteID, "index.html", entities.ChangeTypeMetaTag,
			map[string]any{"element": "title", "description": "Title was empty"})

		// then
		require.NoError(t, err)
		assert.Equal(t, ref, f.repo.BranchHead("seo-batch/b1"))

		summary, description, metadata := entities.ParseCommitMessage(f.repo.CommitMessage(ref))
		assert.Equal(t, "Updated meta tags in index.html (title)", summary)
		assert.Equal(t, "Title was empty", description)
		assert.Equal(t, "change", metadata["type"])
		assert.Equal(t, "b1", metadata["batchId"])
		assert.Equal(t, "meta_tag", metadata["changeType"])

		content, _ := f.repo.FileAt(string(ref), "index.html")
		assert.Equal(t, indexAfter, content)

		batch, err := f.cmd.OpenBatch(ctx, testSiteID)
		require.NoError(t, err)
		require.Len(t, batch.Changes, 1)
		assert.Equal(t, "index.html", batch.Changes[0].FilePath)
	})

	t.Run("should refuse paths that escape the site directory", func(t *testing.T) {
		t.Parallel()
		// given
		f := newTrackingFixture(t)
		_, err := f.cmd.StartBatch(context.Background(), testSiteID, "b1", "paths")
		require.NoError(t, err)

		// when
		_, err = f.cmd.RecordChange(context.Background(), testSiteID, "../other/index.html",
			entities.ChangeTypeMetaTag, nil)

		// then
		require.ErrorIs(t, err, entities.ErrPathOutsideSite)
	})

	t.Run("should leave the batch unchanged when the commit fails", func(t *testing.T) {
		t.Parallel()
		// given
		f := newTrackingFixture(t)
		ctx := context.Background()
		_, err := f.cmd.StartBatch(ctx, testSiteID, "b1", "failing")
		require.NoError(t, err)
		f.repo.Fail["Commit"] = doubles.ErrInjected

		// when
		_, err = f.cmd.RecordChange(ctx, testSiteID, "index.html", entities.ChangeTypeMetaTag, nil)

		// then
		require.ErrorIs(t, err, doubles.ErrInjected)
		delete(f.repo.Fail, "Commit")
		batch, getErr := f.cmd.GetBatch(ctx, testSiteID, "b1")
		require.NoError(t, getErr)
		assert.Empty(t, batch.Changes)
	})

	t.Run("should unstage a change that cannot be committed and keep the edit", func(t *testing.T) {
		t.Parallel()
		// given
		f := newTrackingFixture(t)
		ctx := context.Background()
		_, err := f.cmd.StartBatch(ctx, testSiteID, "b1", "failing")
		require.NoError(t, err)
		f.edit(t, "index.html", indexAfter)
		f.repo.Fail["Commit"] = doubles.ErrInjected

		// when
		_, err = f.cmd.RecordChange(ctx, testSiteID, "index.html", entities.ChangeTypeMetaTag, nil)

		// then
		require.ErrorIs(t, err, doubles.ErrInjected)
		staged, _ := f.repo.StagedFile("index.html")
		assert.Equal(t, indexBefore, staged)
		working, _ := f.repo.WorkingFile("index.html")
		assert.Equal(t, indexAfter, working)
	})

	t.Run("should refuse to record the batch record as a change", func(t *testing.T) {
		t.Parallel()
		// given
		f := newTrackingFixture(t)
		_, err := f.cmd.StartBatch(context.Background(), testSiteID, "b1", "paths")
		require.NoError(t, err)

		// when
		_, err = f.cmd.RecordChange(context.Background(), testSiteID, f.settings.Tracking.MetadataFile,
			entities.ChangeTypeOther, nil)

		// then
		require.ErrorIs(t, err, entities.ErrPathOutsideSite)
	})
}

func TestChangeTrackingApplyChange(t *testing.T) {
	t.Parallel()

	t.Run("should edit the file and return the fix with its commit", func(t *testing.T) {
		t.Parallel()
		// given
		f := newTrackingFixture(t)
		ctx := context.Background()
		_, err := f.cmd.StartBatch(ctx, testSiteID, "b1", "apply")
		require.NoError(t, err)
		fix := entitybuilders.NewFixBuilder().BuildFix()

		// when
		applied, err := f.cmd.ApplyChange(ctx, testSiteID, fix)

		// then
		require.NoError(t, err)
		assert.Equal(t, "b1", applied.BatchID)
		assert.True(t, applied.Applied())
		content, _ := f.repo.FileAt(string(applied.CommitRef), "index.html")
		assert.Equal(t, indexAfter, content)
		assert.Equal(t, []string{testSiteDir}, f.editor.Dirs)
	})

	t.Run("should not commit when the edit fails", func(t *testing.T) {
		t.Parallel()
		// given
		f := newTrackingFixture(t)
		ctx := context.Background()
		_, err := f.cmd.StartBatch(ctx, testSiteID, "b1", "apply")
		require.NoError(t, err)
		head := f.repo.BranchHead("seo-batch/b1")
		fix := entitybuilders.NewFixBuilder().
			WithChanges("<h1>missing</h1>", "<h1>Oak</h1>").
			BuildFix()

		// when
		_, err = f.cmd.ApplyChange(ctx, testSiteID, fix)

		// then
		require.ErrorIs(t, err, entities.ErrOriginalNotFound)
		assert.Equal(t, head, f.repo.BranchHead("seo-batch/b1"))
	})

	t.Run("should refuse fixes targeting repository metadata or the batch record", func(t *testing.T) {
		t.Parallel()
		// given
		f := newTrackingFixture(t)
		ctx := context.Background()
		_, err := f.cmd.StartBatch(ctx, testSiteID, "b1", "apply")
		require.NoError(t, err)
		head := f.repo.BranchHead("seo-batch/b1")
		paths := []string{".git/config", ".GIT/hooks/pre-commit", f.settings.Tracking.MetadataFile}

		for _, path := range paths {
			fix := entitybuilders.NewFixBuilder().
				WithPath(path).
				WithChanges("", "[core]\n\tfsmonitor = \"touch marker\"").
				BuildFix()

			// when
			_, err = f.cmd.ApplyChange(ctx, testSiteID, fix)

			// then
			require.ErrorIs(t, err, entities.ErrPathOutsideSite, path)
			assert.Equal(t, entities.KindPolicyViolation, entities.KindOf(err))
		}
		assert.Empty(t, f.editor.Applied)
		assert.Equal(t, head, f.repo.BranchHead("seo-batch/b1"))
	})

	t.Run("should restore the file when its change cannot be committed", func(t *testing.T) {
		t.Parallel()
		// given
		f := newTrackingFixture(t)
		ctx := context.Background()
		_, err := f.cmd.StartBatch(ctx, testSiteID, "b1", "apply")
		require.NoError(t, err)
		f.repo.Fail["Commit"] = doubles.ErrInjected
		failing := entitybuilders.NewFixBuilder().WithID("f1").BuildFix()

		// when
		_, err = f.cmd.ApplyChange(ctx, testSiteID, failing)
		delete(f.repo.Fail, "Commit")
		next := entitybuilders.NewFixBuilder().
			WithID("f2").
			WithPath("about.html").
			WithChanges("", "<h1>About</h1>").
			BuildFix()
		applied, nextErr := f.cmd.ApplyChange(ctx, testSiteID, next)

		// then
		require.ErrorIs(t, err, doubles.ErrInjected)
		require.NoError(t, nextErr)
		working, _ := f.repo.WorkingFile("index.html")
		assert.Equal(t, indexBefore, working)
		committed, _ := f.repo.FileAt(string(applied.CommitRef), "index.html")
		assert.Equal(t, indexBefore, committed)
		about, _ := f.repo.FileAt(string(applied.CommitRef), "about.html")
		assert.Equal(t, "<h1>About</h1>", about)
		batch, getErr := f.cmd.GetBatch(ctx, testSiteID, "b1")
		require.NoError(t, getErr)
		require.Len(t, batch.Changes, 1)
		assert.Equal(t, "about.html", batch.Changes[0].FilePath)
	})
}

func TestChangeTrackingFinalizeBatch(t *testing.T) {
	t.Parallel()

	t.Run("should merge N changes and expose a merge entry in history", func(t *testing.T) {
		t.Parallel()
		// given
		f := newTrackingFixture(t)
		ctx := context.Background()
		_, err := f.cmd.StartBatch(ctx, testSiteID, "b1", "Fix titles")
		require.NoError(t, err)
		for i, page := range []string{"index.html", "about.html", "contact.html"} {
			f.edit(t, page, strings.Repeat("x", i+1))
			_, err = f.cmd.RecordChange(ctx, testSiteID, page, entities.ChangeTypeHeaderStructure, nil)
			require.NoError(t, err)
		}

		// when
		result, err := f.cmd.FinalizeBatch(ctx, testSiteID, "b1", true)

		// then
		require.NoError(t, err)
		assert.Equal(t, 3, result.ChangeCount)
		assert.Equal(t, entities.BatchStatusCompleted, result.Status)
		assert.Equal(t, "seo-complete/b1", result.Tag)
		assert.False(t, result.EndTime.Before(result.StartTime))
		assert.Equal(t, result.MergeCommit, f.repo.BranchHead("seo-fixes"))
		assert.Len(t, f.repo.CommitParents(result.MergeCommit), 2)
		assert.True(t, f.repo.HasTag("seo-complete/b1"))

		history, err := f.cmd.GetChangeHistory(ctx, testSiteID, 10)
		require.NoError(t, err)
		require.NotEmpty(t, history)
		assert.Contains(t, history[0].Subject, "Merge")
		assert.True(t, history[0].IsMerge)
		assert.Equal(t, "batch_merge", history[0].Metadata["type"])
		assert.InDelta(t, 3, history[0].Metadata["changeCount"], 0)
	})

	t.Run("should keep a rejected batch on its branch without touching stable", func(t *testing.T) {
		t.Parallel()
		// given
		f := newTrackingFixture(t)
		ctx := context.Background()
		_, err := f.cmd.StartBatch(ctx, testSiteID, "b1", "to reject")
		require.NoError(t, err)
		stableBefore := f.repo.BranchHead("seo-fixes")
		f.edit(t, "index.html", indexAfter)
		_, err = f.cmd.RecordChange(ctx, testSiteID, "index.html", entities.ChangeTypeMetaTag, nil)
		require.NoError(t, err)

		// when
		result, err := f.cmd.FinalizeBatch(ctx, testSiteID, "b1", false)

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.BatchStatusRejected, result.Status)
		assert.Equal(t, 1, result.ChangeCount)
		assert.Empty(t, result.Tag)
		assert.Equal(t, stableBefore, f.repo.BranchHead("seo-fixes"))
		exists, _ := f.repo.BranchExists(ctx, "seo-batch/b1")
		assert.True(t, exists)
		assert.False(t, f.repo.HasTag("seo-complete/b1"))
		content, _ := f.repo.WorkingFile("index.html")
		assert.Equal(t, indexBefore, content)
	})

	t.Run("should fail with BatchNotFound for an unknown batch", func(t *testing.T) {
		t.Parallel()
		// given
		f := newTrackingFixture(t)
		_, err := f.cmd.StartBatch(context.Background(), testSiteID, "b1", "known")
		require.NoError(t, err)

		// when
		_, err = f.cmd.FinalizeBatch(context.Background(), testSiteID, "nope", true)

		// then
		require.ErrorIs(t, err, entities.ErrBatchNotFound)
		assert.Equal(t, entities.KindNotFound, entities.KindOf(err))
	})

	t.Run("should refuse to finalize a batch twice", func(t *testing.T) {
		t.Parallel()
		// given
		f := newTrackingFixture(t)
		f.completeBatch(t, "b1", "index.html", indexAfter)

		// when
		_, err := f.cmd.FinalizeBatch(context.Background(), testSiteID, "b1", true)

		// then
		require.ErrorIs(t, err, entities.ErrBatchNotOpen)
	})

	t.Run("should resume the merge after an interrupted finalize", func(t *testing.T) {
		t.Parallel()
		// given
		f := newTrackingFixture(t)
		ctx := context.Background()
		_, err := f.cmd.StartBatch(ctx, testSiteID, "b1", "flaky")
		require.NoError(t, err)
		f.edit(t, "index.html", indexAfter)
		_, err = f.cmd.RecordChange(ctx, testSiteID, "index.html", entities.ChangeTypeMetaTag, nil)
		require.NoError(t, err)
		f.repo.Fail["MergeNoFastForward"] = doubles.ErrInjected
		_, err = f.cmd.FinalizeBatch(ctx, testSiteID, "b1", true)
		require.ErrorIs(t, err, doubles.ErrInjected)
		assert.False(t, f.repo.HasTag("seo-complete/b1"))
		delete(f.repo.Fail, "MergeNoFastForward")

		// when
		result, err := f.cmd.FinalizeBatch(ctx, testSiteID, "b1", true)

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.BatchStatusCompleted, result.Status)
		assert.True(t, f.repo.HasTag("seo-complete/b1"))
		content, _ := f.repo.FileAt("seo-fixes", "index.html")
		assert.Equal(t, indexAfter, content)
	})
}

func TestChangeTrackingRollbackBatch(t *testing.T) {
	t.Parallel()

	t.Run("should fail with BatchNotFound for an unknown batch", func(t *testing.T) {
		t.Parallel()
		// given
		f := newTrackingFixture(t)

		// when
		_, err := f.cmd.RollbackBatch(context.Background(), testSiteID, "ghost")

		// then
		require.ErrorIs(t, err, entities.ErrBatchNotFound)
		assert.Equal(t, entities.KindNotFound, entities.KindOf(err))
	})

	t.Run("should fail for a batch that was never merged", func(t *testing.T) {
		t.Parallel()
		// given
		f := newTrackingFixture(t)
		ctx := context.Background()
		_, err := f.cmd.StartBatch(ctx, testSiteID, "b1", "rejected")
		require.NoError(t, err)
		_, err = f.cmd.FinalizeBatch(ctx, testSiteID, "b1", false)
		require.NoError(t, err)

		// when
		_, err = f.cmd.RollbackBatch(ctx, testSiteID, "b1")

		// then
		require.ErrorIs(t, err, entities.ErrBatchNotCompleted)
		assert.Equal(t, entities.KindNotFound, entities.KindOf(err))
	})

	t.Run("should revert the merge and mark the batch rolled back", func(t *testing.T) {
		t.Parallel()
		// given
		f := newTrackingFixture(t)
		ctx := context.Background()
		f.completeBatch(t, "b1", "index.html", indexAfter)

		// when
		result, err := f.cmd.RollbackBatch(ctx, testSiteID, "b1")

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.BatchStatusRolledBack, result.Status)
		assert.False(t, result.RollbackTime.IsZero())
		assert.True(t, f.repo.HasTag("seo-rolled-back/b1"))
		content, _ := f.repo.FileAt("seo-fixes", "index.html")
		assert.Equal(t, indexBefore, content)

		batch, err := f.cmd.GetBatch(ctx, testSiteID, "b1")
		require.NoError(t, err)
		assert.Equal(t, entities.BatchStatusRolledBack, batch.Status)
		require.NotNil(t, batch.RollbackTime)

		history, err := f.cmd.GetChangeHistory(ctx, testSiteID, 2)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, "Merge rollback of batch b1", history[0].Subject)
		assert.Equal(t, "Rollback batch b1", history[1].Subject)
	})

	t.Run("should refuse a second rollback", func(t *testing.T) {
		t.Parallel()
		// given
		f := newTrackingFixture(t)
		f.completeBatch(t, "b1", "index.html", indexAfter)
		_, err := f.cmd.RollbackBatch(context.Background(), testSiteID, "b1")
		require.NoError(t, err)

		// when
		_, err = f.cmd.RollbackBatch(context.Background(), testSiteID, "b1")

		// then
		require.ErrorIs(t, err, entities.ErrBatchAlreadyRolledBack)
	})

	t.Run("should only revert the targeted batch when later batches were merged", func(t *testing.T) {
		t.Parallel()
		// given
		f := newTrackingFixture(t)
		f.completeBatch(t, "b1", "index.html", indexAfter)
		f.completeBatch(t, "b2", "about.html", "<h1>About us</h1>")

		// when
		_, err := f.cmd.RollbackBatch(context.Background(), testSiteID, "b1")

		// then
		require.NoError(t, err)
		index, _ := f.repo.FileAt("seo-fixes", "index.html")
		assert.Equal(t, indexBefore, index)
		about, ok := f.repo.FileAt("seo-fixes", "about.html")
		require.True(t, ok)
		assert.Equal(t, "<h1>About us</h1>", about)
	})

	t.Run("should leave the batch completed and stable clean when the revert fails", func(t *testing.T) {
		t.Parallel()
		// given
		f := newTrackingFixture(t)
		ctx := context.Background()
		f.completeBatch(t, "b1", "index.html", indexAfter)
		stableBefore := f.repo.BranchHead("seo-fixes")
		f.repo.Fail["RevertCommit"] = doubles.ErrInjected

		// when
		_, err := f.cmd.RollbackBatch(ctx, testSiteID, "b1")

		// then
		require.ErrorIs(t, err, doubles.ErrInjected)
		var tracking *entities.TrackingError
		require.ErrorAs(t, err, &tracking)
		assert.Equal(t, "b1", tracking.BatchID)
		assert.Equal(t, stableBefore, f.repo.BranchHead("seo-fixes"))
		current, _ := f.repo.CurrentBranch(ctx)
		assert.Equal(t, "seo-fixes", current)
		batch, getErr := f.cmd.GetBatch(ctx, testSiteID, "b1")
		require.NoError(t, getErr)
		assert.Equal(t, entities.BatchStatusCompleted, batch.Status)
	})
}

func TestChangeTrackingRollbackRetry(t *testing.T) {
	t.Parallel()

	t.Run("should reuse the rollback branch left by a failed attempt", func(t *testing.T) {
		t.Parallel()
		// given
		f := newTrackingFixture(t)
		ctx := context.Background()
		f.completeBatch(t, "b1", "index.html", indexAfter)
		f.repo.Fail["RevertCommit"] = doubles.ErrInjected
		_, err := f.cmd.RollbackBatch(ctx, testSiteID, "b1")
		require.Error(t, err)
		delete(f.repo.Fail, "RevertCommit")

		// when
		result, err := f.cmd.RollbackBatch(ctx, testSiteID, "b1")

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.BatchStatusRolledBack, result.Status)
		content, _ := f.repo.FileAt("seo-fixes", "index.html")
		assert.Equal(t, indexBefore, content)
	})
}

func TestChangeTrackingGetChangeHistory(t *testing.T) {
	t.Parallel()

	t.Run("should return an empty history for a site without repository", func(t *testing.T) {
		t.Parallel()
		// given
		f := newTrackingFixture(t)

		// when
		history, err := f.cmd.GetChangeHistory(context.Background(), testSiteID, 10)

		// then
		require.NoError(t, err)
		assert.Empty(t, history)
	})

	t.Run("should restore the checked out batch branch", func(t *testing.T) {
		t.Parallel()
		// given
		f := newTrackingFixture(t)
		ctx := context.Background()
		_, err := f.cmd.StartBatch(ctx, testSiteID, "b1", "open")
		require.NoError(t, err)

		// when
		history, err := f.cmd.GetChangeHistory(ctx, testSiteID, 5)

		// then
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, "Initialize change tracking for site acme", history[0].Subject)
		current, _ := f.repo.CurrentBranch(ctx)
		assert.Equal(t, "seo-batch/b1", current)
		batch, err := f.cmd.OpenBatch(ctx, testSiteID)
		require.NoError(t, err)
		require.NotNil(t, batch)
		assert.Equal(t, "b1", batch.BatchID)
	})

	t.Run("should release the site lock on every path", func(t *testing.T) {
		t.Parallel()
		// given
		f := newTrackingFixture(t)
		ctx := context.Background()
		_, _ = f.cmd.RecordChange(ctx, testSiteID, "index.html", entities.ChangeTypeMetaTag, nil)
		f.completeBatch(t, "b1", "index.html", indexAfter)

		// when
		_, err := f.cmd.GetChangeHistory(ctx, testSiteID, 0)

		// then
		require.NoError(t, err)
		assert.True(t, f.locks.Balanced())
		assert.NotEmpty(t, f.locks.Acquired)
	})

	t.Run("should surface lock failures", func(t *testing.T) {
		t.Parallel()
		// given
		f := newTrackingFixture(t)
		f.locks.LockErr = errors.New("redis unavailable")

		// when
		_, err := f.cmd.GetChangeHistory(context.Background(), testSiteID, 1)

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis unavailable")
	})
}
