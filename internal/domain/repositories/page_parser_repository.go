package repositories

import "github.com/rios0rios0/seoremedy/internal/domain/entities"

// PageParserRepository extracts SEO signals and links from rendered HTML.
type PageParserRepository interface {
	Parse(pageURL, html string) (*entities.ParsedPage, error)
}
