//go:build integration

package commands_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/seoremedy/internal/domain/commands"
	"github.com/rios0rios0/seoremedy/internal/domain/entities"
	"github.com/rios0rios0/seoremedy/internal/infrastructure/repositories/editor"
	"github.com/rios0rios0/seoremedy/internal/infrastructure/repositories/git"
	"github.com/rios0rios0/seoremedy/internal/infrastructure/repositories/locks"
	"github.com/rios0rios0/seoremedy/internal/infrastructure/repositories/metrics"
)

const (
	gitSiteID    = "shop"
	gitOldTitle  = "<title>Old Shop</title>"
	gitNewTitle  = "<title>Handmade Oak Furniture | Shop</title>"
	gitIndexPage = "<html><head>" + gitOldTitle + "</head><body><h1>Shop</h1></body></html>\n"
)

// newGitTracking builds the engine on a real git repository in a temporary site directory.
func newGitTracking(t *testing.T) (*commands.ChangeTrackingCommand, string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is not installed")
	}

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte(gitIndexPage), 0o600))

	settings := entities.DefaultSettings()
	settings.Sites = []entities.SiteSettings{{ID: gitSiteID, URL: "https://shop.example.com", Dir: dir}}
	metricsRepository := metrics.NewPrometheusMetricsRepository()

	tracking := commands.NewChangeTrackingCommand(
		settings,
		git.NewVCSFactory(git.NewExecRunner(), settings, metricsRepository),
		locks.NewMemorySiteLockRepository(),
		editor.NewFileEditorRepository(),
		metricsRepository,
	)
	return tracking, dir
}

func titleFix(id string) entities.Fix {
	return entities.Fix{
		ID:      id,
		IssueID: "0-title-missing",
		Type:    entities.ChangeTypeMetaTag,
		Path:    "index.html",
		Changes: entities.FixChanges{Original: gitOldTitle, Modified: gitNewTitle},
	}
}

// gitOutput runs git in dir and returns its trimmed output.
func gitOutput(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
	return strings.TrimSpace(string(out))
}

func readIndex(t *testing.T, dir string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "index.html"))
	require.NoError(t, err)
	return string(data)
}

func TestChangeTrackingCommand_Git(t *testing.T) {
	t.Parallel()

	t.Run("should merge, tag and roll back a batch on a real repository", func(t *testing.T) {
		t.Parallel()
		// given
		tracking, dir := newGitTracking(t)
		ctx := t.Context()

		// when
		branch, err := tracking.StartBatch(ctx, gitSiteID, "b1", "Fix page titles")
		require.NoError(t, err)
		applied, err := tracking.ApplyChange(ctx, gitSiteID, titleFix("f1"))
		require.NoError(t, err)
		finalized, err := tracking.FinalizeBatch(ctx, gitSiteID, "b1", true)
		require.NoError(t, err)
		history, err := tracking.GetChangeHistory(ctx, gitSiteID, 10)
		require.NoError(t, err)
		contentAfterMerge := readIndex(t, dir)
		rolledBack, err := tracking.RollbackBatch(ctx, gitSiteID, "b1")
		require.NoError(t, err)
		batch, err := tracking.GetBatch(ctx, gitSiteID, "b1")
		require.NoError(t, err)

		// then
		assert.Equal(t, "seo-batch/b1", branch)
		assert.Equal(t, "b1", applied.BatchID)
		assert.Len(t, string(applied.CommitRef), 40)

		assert.Equal(t, entities.BatchStatusCompleted, finalized.Status)
		assert.Equal(t, 1, finalized.ChangeCount)
		assert.Equal(t, "seo-complete/b1", finalized.Tag)
		assert.NotEmpty(t, finalized.MergeCommit)

		require.NotEmpty(t, history)
		assert.True(t, history[0].IsMerge)
		assert.True(t, strings.HasPrefix(history[0].Subject, "Merge batch b1"))
		assert.Contains(t, contentAfterMerge, gitNewTitle)

		assert.Equal(t, entities.BatchStatusRolledBack, rolledBack.Status)
		assert.Equal(t, "seo-rolled-back/b1", rolledBack.Tag)
		assert.Equal(t, gitIndexPage, readIndex(t, dir))
		assert.Equal(t, entities.BatchStatusRolledBack, batch.Status)
	})

	t.Run("should keep the stable branch untouched when a batch is rejected", func(t *testing.T) {
		t.Parallel()
		// given
		tracking, dir := newGitTracking(t)
		ctx := t.Context()
		_, err := tracking.StartBatch(ctx, gitSiteID, "b2", "Rejected titles")
		require.NoError(t, err)
		_, err = tracking.ApplyChange(ctx, gitSiteID, titleFix("f2"))
		require.NoError(t, err)

		// when
		finalized, err := tracking.FinalizeBatch(ctx, gitSiteID, "b2", false)

		// then
		require.NoError(t, err)
		assert.Equal(t, entities.BatchStatusRejected, finalized.Status)
		assert.Empty(t, finalized.Tag)
		assert.Equal(t, gitIndexPage, readIndex(t, dir))

		batch, err := tracking.GetBatch(ctx, gitSiteID, "b2")
		require.NoError(t, err)
		assert.Equal(t, entities.BatchStatusRejected, batch.Status)
		assert.Len(t, batch.Changes, 1)

		_, err = tracking.RollbackBatch(ctx, gitSiteID, "b2")
		require.ErrorIs(t, err, entities.ErrBatchNotCompleted)
		assert.Equal(t, entities.KindNotFound, entities.KindOf(err))
	})

	t.Run("should not let a rejected commit leak into the next change", func(t *testing.T) {
		t.Parallel()
		// given
		tracking, dir := newGitTracking(t)
		ctx := t.Context()
		_, err := tracking.StartBatch(ctx, gitSiteID, "b3", "Frozen index")
		require.NoError(t, err)
		hook := "#!/bin/sh\n" +
			"if git diff --cached --name-only | grep -qx index.html; then\n" +
			"  echo 'index.html is frozen' >&2\n  exit 1\nfi\n"
		hooks := filepath.Join(dir, ".git", "hooks")
		require.NoError(t, os.MkdirAll(hooks, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(hooks, "pre-commit"), []byte(hook), 0o700))
		about := entities.Fix{
			ID:      "f4",
			IssueID: "1-h1-missing",
			Type:    entities.ChangeTypeHeaderStructure,
			Path:    "about.html",
			Changes: entities.FixChanges{Modified: "<h1>About</h1>\n"},
		}

		// when
		_, rejectedErr := tracking.ApplyChange(ctx, gitSiteID, titleFix("f3"))
		applied, err := tracking.ApplyChange(ctx, gitSiteID, about)

		// then
		require.Error(t, rejectedErr)
		assert.Equal(t, entities.KindExternalToolFailure, entities.KindOf(rejectedErr))
		require.NoError(t, err)
		assert.Equal(t, gitIndexPage, readIndex(t, dir))
		assert.Empty(t, gitOutput(t, dir, "status", "--porcelain"))

		files := strings.Split(gitOutput(t, dir, "show", "--name-only", "--format=", string(applied.CommitRef)), "\n")
		assert.ElementsMatch(t, []string{"about.html", ".seoremedy/batch.json"}, files)

		batch, err := tracking.GetBatch(ctx, gitSiteID, "b3")
		require.NoError(t, err)
		require.Len(t, batch.Changes, 1)
		assert.Equal(t, "about.html", batch.Changes[0].FilePath)
	})

	t.Run("should refuse to edit the repository configuration", func(t *testing.T) {
		t.Parallel()
		// given
		tracking, dir := newGitTracking(t)
		ctx := t.Context()
		_, err := tracking.StartBatch(ctx, gitSiteID, "b4", "Hostile fix")
		require.NoError(t, err)
		configPath := filepath.Join(dir, ".git", "config")
		before, err := os.ReadFile(configPath)
		require.NoError(t, err)
		hostile := entities.Fix{
			ID:      "f5",
			Type:    entities.ChangeTypeOther,
			Path:    ".git/config",
			Changes: entities.FixChanges{Original: "[core]", Modified: "[core]\n\tfsmonitor = \"touch marker; false\""},
		}

		// when
		_, err = tracking.ApplyChange(ctx, gitSiteID, hostile)

		// then
		require.ErrorIs(t, err, entities.ErrPathOutsideSite)
		after, readErr := os.ReadFile(configPath)
		require.NoError(t, readErr)
		assert.Equal(t, string(before), string(after))
	})

	t.Run("should refuse to record a change without an open batch", func(t *testing.T) {
		t.Parallel()
		// given
		tracking, _ := newGitTracking(t)

		// when
		_, err := tracking.RecordChange(t.Context(), gitSiteID, "index.html", entities.ChangeTypeMetaTag, nil)

		// then
		require.ErrorIs(t, err, entities.ErrNoOpenBatch)
	})
}
