//go:build unit

package entities_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/seoremedy/internal/domain/entities"
)

func TestChangeSummary(t *testing.T) {
	t.Parallel()

	t.Run("should template the summary per change type", func(t *testing.T) {
		t.Parallel()

		expected := map[entities.ChangeType]string{
			entities.ChangeTypeMetaTag:           "Updated meta tags in index.html",
			entities.ChangeTypeImageOptimization: "Optimized images in index.html",
			entities.ChangeTypeHeaderStructure:   "Fixed heading structure in index.html",
			entities.ChangeTypeSchemaMarkup:      "Added structured data to index.html",
			entities.ChangeTypeRobotsTxt:         "Updated robots.txt rules in index.html",
			entities.ChangeTypePerformance:       "Improved performance of index.html",
			entities.ChangeTypeSecurity:          "Applied security hardening to index.html",
			entities.ChangeTypeOther:             "Applied SEO change to index.html",
		}

		for changeType, summary := range expected {
			// when
			result := entities.ChangeSummary(changeType, "index.html", nil)

			// then
			assert.Equal(t, summary, result)
		}
	})

	t.Run("should append the element from metadata", func(t *testing.T) {
		t.Parallel()

		// given
		metadata := map[string]any{"element": "title"}

		// when
		result := entities.ChangeSummary(entities.ChangeTypeMetaTag, "index.html", metadata)

		// then
		assert.Equal(t, "Updated meta tags in index.html (title)", result)
	})

	t.Run("should join element lists", func(t *testing.T) {
		t.Parallel()

		// given
		metadata := map[string]any{"element": []any{"title", "description"}}

		// when
		result := entities.ChangeSummary(entities.ChangeTypeMetaTag, "about.html", metadata)

		// then
		assert.Equal(t, "Updated meta tags in about.html (title, description)", result)
	})
}

func TestFormatCommitMessage(t *testing.T) {
	t.Parallel()

	t.Run("should be byte-identical for equal inputs", func(t *testing.T) {
		t.Parallel()

		// given
		metadata := map[string]any{"zeta": 1, "alpha": "a", "nested": map[string]any{"b": 2, "a": 1}}

		// when
		first, err1 := entities.FormatCommitMessage("Updated meta tags in index.html", "", metadata)
		second, err2 := entities.FormatCommitMessage("Updated meta tags in index.html", "", metadata)

		// then
		require.NoError(t, err1)
		require.NoError(t, err2)
		assert.Equal(t, first, second)
		assert.Equal(t,
			"Updated meta tags in index.html\n\n"+
				`SEO-Metadata-v1: {"alpha":"a","nested":{"a":1,"b":2},"zeta":1}`,
			first,
		)
	})

	t.Run("should place the description between summary and envelope", func(t *testing.T) {
		t.Parallel()

		// when
		message, err := entities.FormatCommitMessage("Fixed heading structure in blog.html", "Demoted two H1s", nil)

		// then
		require.NoError(t, err)
		assert.Equal(t, "Fixed heading structure in blog.html\n\nDemoted two H1s\n\nSEO-Metadata-v1: {}", message)
	})
}

func TestParseCommitMessage(t *testing.T) {
	t.Parallel()

	t.Run("should round trip summary, description and metadata", func(t *testing.T) {
		t.Parallel()

		// given
		message, err := entities.FormatCommitMessage(
			"Updated meta tags in index.html (title)",
			"Shortened the title",
			map[string]any{"batchId": "b1", "changeType": "meta_tag"},
		)
		require.NoError(t, err)

		// when
		summary, description, metadata := entities.ParseCommitMessage(message)

		// then
		assert.Equal(t, "Updated meta tags in index.html (title)", summary)
		assert.Equal(t, "Shortened the title", description)
		assert.Equal(t, map[string]any{"batchId": "b1", "changeType": "meta_tag"}, metadata)
	})

	t.Run("should tolerate messages without metadata", func(t *testing.T) {
		t.Parallel()

		// when
		summary, description, metadata := entities.ParseCommitMessage("Initial commit\n")

		// then
		assert.Equal(t, "Initial commit", summary)
		assert.Empty(t, description)
		assert.NotNil(t, metadata)
		assert.Empty(t, metadata)
	})

	t.Run("should tolerate malformed metadata", func(t *testing.T) {
		t.Parallel()

		// when
		summary, _, metadata := entities.ParseCommitMessage("Fix\n\nSEO-Metadata-v1: {not json")

		// then
		assert.Equal(t, "Fix", summary)
		assert.Empty(t, metadata)
	})

	t.Run("should ignore envelopes of an unknown major version", func(t *testing.T) {
		t.Parallel()

		// when
		_, _, metadata := entities.ParseCommitMessage(`Fix` + "\n\n" + `SEO-Metadata-v2: {"a":1}`)

		// then
		assert.Empty(t, metadata)
	})

	t.Run("should accept minor versions of the current envelope", func(t *testing.T) {
		t.Parallel()

		// when
		_, _, metadata := entities.ParseCommitMessage(`Fix` + "\n\n" + `SEO-Metadata-v1.2: {"a":"b"}`)

		// then
		assert.Equal(t, map[string]any{"a": "b"}, metadata)
	})

	t.Run("should keep marker text inside the body as description", func(t *testing.T) {
		t.Parallel()

		// given
		body := "The old commit said SEO-Metadata-v1: {\"fake\":true} in its body"
		message, err := entities.FormatCommitMessage("Applied SEO change to a.html", body, map[string]any{"real": true})
		require.NoError(t, err)

		// when
		_, description, metadata := entities.ParseCommitMessage(message)

		// then
		assert.Equal(t, body, description)
		assert.Equal(t, map[string]any{"real": true}, metadata)
	})

	t.Run("should not treat a lone summary line as envelope", func(t *testing.T) {
		t.Parallel()

		// when
		summary, _, metadata := entities.ParseCommitMessage(`SEO-Metadata-v1: {"a":1}`)

		// then
		assert.Equal(t, `SEO-Metadata-v1: {"a":1}`, summary)
		assert.Empty(t, metadata)
	})
}
