package parser

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/rios0rios0/seoremedy/internal/domain/entities"
	"github.com/rios0rios0/seoremedy/internal/domain/repositories"
)

// PageParserRepository extracts SEO signals and links with goquery.
type PageParserRepository struct{}

var _ repositories.PageParserRepository = (*PageParserRepository)(nil)

// NewPageParserRepository creates a new PageParserRepository.
func NewPageParserRepository() *PageParserRepository {
	return &PageParserRepository{}
}

func (it *PageParserRepository) Parse(pageURL, html string) (*entities.ParsedPage, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL %q: %w", pageURL, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML of %s: %w", pageURL, err)
	}

	// <base href> changes how relative links resolve
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if resolved, resolveErr := base.Parse(strings.TrimSpace(href)); resolveErr == nil {
			base = resolved
		}
	}

	signals := entities.PageSignals{
		Title:      strings.TrimSpace(pageTitle(doc)),
		Headings:   map[string]int{},
		SocialTags: map[string]string{},
	}

	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		content := strings.TrimSpace(s.AttrOr("content", ""))
		name := strings.ToLower(strings.TrimSpace(s.AttrOr("name", "")))
		property := strings.ToLower(strings.TrimSpace(s.AttrOr("property", "")))
		switch {
		case name == "description" && signals.Description == "":
			signals.Description = content
		case name == "robots" && signals.MetaRobots == "":
			signals.MetaRobots = content
		case strings.HasPrefix(property, "og:"):
			signals.SocialTags[property] = content
		case strings.HasPrefix(name, "twitter:"):
			signals.SocialTags[name] = content
		}
	})

	doc.Find("link[rel]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !hasToken(s.AttrOr("rel", ""), "canonical") {
			return true
		}
		signals.Canonical = resolve(base, s.AttrOr("href", ""))
		return false
	})

	for level := 1; level <= 6; level++ {
		tag := fmt.Sprintf("h%d", level)
		signals.Headings[tag] = doc.Find(tag).Length()
	}

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		if block := strings.TrimSpace(s.Text()); block != "" {
			signals.StructuredData = append(signals.StructuredData, block)
		}
	})

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		if alt, ok := s.Attr("alt"); ok && strings.TrimSpace(alt) != "" {
			return
		}
		signals.ImagesMissingAlt = append(signals.ImagesMissingAlt, s.AttrOr("src", ""))
	})

	links := make([]string, 0)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if link := resolve(base, s.AttrOr("href", "")); link != "" {
			links = append(links, link)
		}
	})

	return &entities.ParsedPage{Signals: signals, Links: links}, nil
}

func pageTitle(doc *goquery.Document) string {
	if title := doc.Find("head title").First(); title.Length() > 0 {
		return title.Text()
	}
	return doc.Find("title").First().Text()
}

// resolve makes href absolute against base; javascript:, mailto: and fragment-only
// references yield "".
func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	switch strings.ToLower(ref.Scheme) {
	case "", "http", "https":
	default:
		return ""
	}
	return base.ResolveReference(ref).String()
}

func hasToken(list, token string) bool {
	for _, field := range strings.Fields(list) {
		if strings.EqualFold(field, token) {
			return true
		}
	}
	return false
}
