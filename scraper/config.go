package scraper

import (
	"fmt"
	"strings"
)

// Sentinel is stored in any field that extraction could not resolve.
const Sentinel = "N/A"

// SiteConfig defines where the listing pages live and how to pull articles
// out of them.
type SiteConfig struct {
	ListingURL    string        `yaml:"listing_url"` // fmt pattern, %d is the page number
	Origin        string        `yaml:"origin"`
	ListConfig    ListConfig    `yaml:"list_config"`
	ArticleConfig ArticleConfig `yaml:"article_config"`
}

// ListConfig defines how to discover articles on a listing page.
type ListConfig struct {
	CardSelector  string `yaml:"card_selector"`
	TitleSelector string `yaml:"title_selector"`
	ReadyClass    string `yaml:"ready_class"`
	Untitled      string `yaml:"untitled"`
}

// ArticleConfig defines how to recover date, author and body text from an
// article page.
type ArticleConfig struct {
	BylineSelector     string `yaml:"byline_selector"`
	AuthorMarker       string `yaml:"author_marker"`
	BodySelector       string `yaml:"body_selector"`
	StripSelector      string `yaml:"strip_selector"`
	ParagraphSelector  string `yaml:"paragraph_selector"`
	MinParagraphLength int    `yaml:"min_paragraph_length"`
	Separator          string `yaml:"separator"`
}

// DefaultSiteConfig returns the configuration for the CASSEMS news site.
func DefaultSiteConfig() SiteConfig {
	return SiteConfig{
		ListingURL: "https://www.cassems.com.br/noticias/%d",
		Origin:     "https://www.cassems.com.br",
		ListConfig: ListConfig{
			CardSelector:  "div.list-news",
			TitleSelector: "h5",
			ReadyClass:    "list-news",
			Untitled:      "Sem título",
		},
		ArticleConfig: DefaultArticleConfig(),
	}
}

// DefaultArticleConfig returns the article extraction settings. The body
// selector targets the element bound by the site's AngularJS template.
func DefaultArticleConfig() ArticleConfig {
	return ArticleConfig{
		BylineSelector:     "small",
		AuthorMarker:       "Por -",
		BodySelector:       `p[ng-bind-html="noticia.texto"]`,
		StripSelector:      "script, style",
		ParagraphSelector:  "p",
		MinParagraphLength: 50,
		Separator:          "\n\n",
	}
}

// PageURL returns the listing page URL for the given page number.
func (c SiteConfig) PageURL(page int) string {
	return fmt.Sprintf(c.ListingURL, page)
}

// ResolveURL turns a root-relative link into an absolute one by prefixing
// the site origin. Any other link is returned unchanged.
func (c SiteConfig) ResolveURL(link string) string {
	if strings.HasPrefix(link, "/") {
		return strings.TrimSuffix(c.Origin, "/") + link
	}
	return link
}
