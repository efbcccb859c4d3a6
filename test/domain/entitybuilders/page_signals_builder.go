//go:build integration || unit || test

package entitybuilders //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"strings"

	"github.com/rios0rios0/seoremedy/internal/domain/entities"
	testkit "github.com/rios0rios0/testkit/pkg/test"
)

const (
	defaultTitle       = "Handmade Oak Furniture | Example Shop"
	defaultDescription = "Browse handmade oak tables, chairs and shelves built to order in our workshop."
	defaultCanonical   = "https://example.com/"
)

// PageSignalsBuilder creates page signals that score 100 unless told otherwise.
type PageSignalsBuilder struct {
	*testkit.BaseBuilder
	title            string
	description      string
	canonical        string
	h1               int
	imagesMissingAlt []string
}

// NewPageSignalsBuilder creates a builder for a page without issues.
func NewPageSignalsBuilder() *PageSignalsBuilder {
	return &PageSignalsBuilder{
		BaseBuilder: testkit.NewBaseBuilder(),
		title:       defaultTitle,
		description: defaultDescription,
		canonical:   defaultCanonical,
		h1:          1,
	}
}

// WithTitle sets the title.
func (b *PageSignalsBuilder) WithTitle(title string) *PageSignalsBuilder {
	b.title = title
	return b
}

// WithTitleLength sets a title of exactly n characters.
func (b *PageSignalsBuilder) WithTitleLength(n int) *PageSignalsBuilder {
	b.title = strings.Repeat("t", n)
	return b
}

// WithDescription sets the meta description.
func (b *PageSignalsBuilder) WithDescription(description string) *PageSignalsBuilder {
	b.description = description
	return b
}

// WithDescriptionLength sets a description of exactly n characters.
func (b *PageSignalsBuilder) WithDescriptionLength(n int) *PageSignalsBuilder {
	b.description = strings.Repeat("d", n)
	return b
}

// WithCanonical sets the canonical URL.
func (b *PageSignalsBuilder) WithCanonical(canonical string) *PageSignalsBuilder {
	b.canonical = canonical
	return b
}

// WithH1Count sets the number of h1 headings.
func (b *PageSignalsBuilder) WithH1Count(count int) *PageSignalsBuilder {
	b.h1 = count
	return b
}

// WithImagesMissingAlt adds n images without alt text.
func (b *PageSignalsBuilder) WithImagesMissingAlt(n int) *PageSignalsBuilder {
	b.imagesMissingAlt = make([]string, 0, n)
	for i := range n {
		b.imagesMissingAlt = append(b.imagesMissingAlt, "/img/"+strings.Repeat("x", i+1)+".png")
	}
	return b
}

// Build creates the signals (satisfies testkit.Builder interface).
func (b *PageSignalsBuilder) Build() interface{} {
	return b.BuildSignals()
}

// BuildSignals creates the signals with a concrete return type.
func (b *PageSignalsBuilder) BuildSignals() entities.PageSignals {
	images := make([]string, len(b.imagesMissingAlt))
	copy(images, b.imagesMissingAlt)
	return entities.PageSignals{
		Title:            b.title,
		Description:      b.description,
		Canonical:        b.canonical,
		Headings:         map[string]int{"h1": b.h1},
		ImagesMissingAlt: images,
	}
}

// Reset clears the builder state, allowing it to be reused.
func (b *PageSignalsBuilder) Reset() testkit.Builder {
	b.BaseBuilder.Reset()
	b.title = defaultTitle
	b.description = defaultDescription
	b.canonical = defaultCanonical
	b.h1 = 1
	b.imagesMissingAlt = nil
	return b
}

// Clone creates a deep copy of the PageSignalsBuilder.
func (b *PageSignalsBuilder) Clone() testkit.Builder {
	images := make([]string, len(b.imagesMissingAlt))
	copy(images, b.imagesMissingAlt)
	return &PageSignalsBuilder{
		BaseBuilder:      b.BaseBuilder.Clone().(*testkit.BaseBuilder),
		title:            b.title,
		description:      b.description,
		canonical:        b.canonical,
		h1:               b.h1,
		imagesMissingAlt: images,
	}
}
