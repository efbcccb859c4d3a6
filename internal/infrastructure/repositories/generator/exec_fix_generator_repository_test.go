//go:build unit

package generator_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/seoremedy/internal/domain/entities"
	"github.com/rios0rios0/seoremedy/internal/infrastructure/repositories/generator"
)

func newGenerator(script string, timeout time.Duration) *generator.ExecFixGeneratorRepository {
	settings := entities.DefaultSettings()
	settings.FixGenerator.Command = []string{"sh", "-c", script}
	settings.FixGenerator.Timeout = timeout
	settings.FixGenerator.Env = []string{"GENERATOR_MODE=test"}
	return generator.NewExecFixGeneratorRepository(settings)
}

func titleIssue() []entities.SiteIssue {
	return []entities.SiteIssue{{
		ID:      "0-title_missing",
		PageURL: "https://acme.example/",
		Issue:   entities.Issue{Code: entities.IssueTitleMissing, Type: entities.SeverityCritical, Penalty: 15},
	}}
}

func TestExecFixGeneratorRepositoryGenerate(t *testing.T) {
	t.Parallel()

	t.Run("should exchange issues and fixes as JSON with the process", func(t *testing.T) {
		t.Parallel()
		// given
		dir := t.TempDir()
		script := `cat > request.json; printf '%s' "$SEOREMEDY_SITE_ID/$GENERATOR_MODE" > env.txt; ` +
			`echo '{"fixes":[{"id":"f1","issueId":"0-title_missing","type":"meta_tag","path":"index.html",` +
			`"changes":{"original":"<title></title>","modified":"<title>Acme</title>"}}]}'`
		repo := newGenerator(script, 5*time.Second)
		site := entities.Site{ID: "acme", URL: "https://acme.example", Dir: dir}

		// when
		fixes, err := repo.Generate(context.Background(), site, titleIssue())

		// then
		require.NoError(t, err)
		require.Len(t, fixes, 1)
		assert.Equal(t, "f1", fixes[0].ID)
		assert.Equal(t, entities.ChangeTypeMetaTag, fixes[0].Type)
		assert.Equal(t, "<title>Acme</title>", fixes[0].Changes.Modified)

		request, readErr := os.ReadFile(filepath.Join(dir, "request.json"))
		require.NoError(t, readErr)
		assert.Contains(t, string(request), `"id":"0-title_missing"`)
		env, readErr := os.ReadFile(filepath.Join(dir, "env.txt"))
		require.NoError(t, readErr)
		assert.Equal(t, "acme/test", string(env))
	})

	t.Run("should drop unusable fixes and number fixes without id", func(t *testing.T) {
		t.Parallel()
		// given
		script := `cat > /dev/null; echo '{"fixes":[` +
			`{"issueId":"0-title_missing","type":"meta_tag","path":"index.html"},` +
			`{"id":"bad-type","issueId":"0-title_missing","type":"rewrite","path":"index.html"},` +
			`{"id":"no-path","issueId":"0-title_missing","type":"meta_tag"}]}'`
		repo := newGenerator(script, 5*time.Second)

		// when
		fixes, err := repo.Generate(context.Background(), entities.Site{ID: "acme", Dir: t.TempDir()}, titleIssue())

		// then
		require.NoError(t, err)
		require.Len(t, fixes, 1)
		assert.Equal(t, "fix-1", fixes[0].ID)
	})

	t.Run("should surface a non-zero exit as a CommandFailedError", func(t *testing.T) {
		t.Parallel()
		// given
		repo := newGenerator(`cat > /dev/null; echo "model unavailable" >&2; exit 3`, 5*time.Second)

		// when
		_, err := repo.Generate(context.Background(), entities.Site{ID: "acme", Dir: t.TempDir()}, titleIssue())

		// then
		var failed *entities.CommandFailedError
		require.ErrorAs(t, err, &failed)
		assert.Equal(t, 3, failed.ExitCode)
		assert.Equal(t, "model unavailable", failed.Stderr)
	})

	t.Run("should time out a slow generator", func(t *testing.T) {
		t.Parallel()
		// given
		repo := newGenerator(`exec sleep 5`, 50*time.Millisecond)

		// when
		_, err := repo.Generate(context.Background(), entities.Site{ID: "acme", Dir: t.TempDir()}, titleIssue())

		// then
		var timeout *entities.TimeoutError
		require.ErrorAs(t, err, &timeout)
	})

	t.Run("should reject output that is not JSON", func(t *testing.T) {
		t.Parallel()
		// given
		repo := newGenerator(`cat > /dev/null; echo "sorry"`, 5*time.Second)

		// when
		_, err := repo.Generate(context.Background(), entities.Site{ID: "acme", Dir: t.TempDir()}, titleIssue())

		// then
		require.Error(t, err)
	})

	t.Run("should fail without a configured command", func(t *testing.T) {
		t.Parallel()
		// given
		repo := generator.NewExecFixGeneratorRepository(entities.DefaultSettings())

		// when
		_, err := repo.Generate(context.Background(), entities.Site{ID: "acme"}, titleIssue())

		// then
		require.Error(t, err)
	})
}
