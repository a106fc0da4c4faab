package discovery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/noticias/scraper"
)

// ExtractArticle recovers date, author and body text from an article page.
// It never fails: anything it cannot resolve is left as scraper.Sentinel.
func ExtractArticle(doc *goquery.Document, config scraper.ArticleConfig) scraper.ArticleContent {
	content := scraper.EmptyArticleContent()
	if doc == nil {
		return content
	}

	// Date and author share the byline; the marker separates them
	if byline, ok := FirstOf(doc, BylineStrategies(config)...); ok {
		date, author := SplitByline(byline, config.AuthorMarker)
		if date != "" {
			content.Date = date
		}
		if author != "" {
			content.Author = author
		}
	}

	if text, ok := FirstOf(doc, ContentStrategies(config)...); ok {
		content.Content = text
	}

	return content
}

// BylineStrategies returns the ordered strategies used to find the byline.
func BylineStrategies(config scraper.ArticleConfig) []Strategy {
	return []Strategy{
		SelectorText(config.BylineSelector),
		TextContaining(config.AuthorMarker),
	}
}

// ContentStrategies returns the ordered strategies used to find the body.
// Some pages render the body through the template binding and others as
// plain paragraphs, so the paragraph scan is the fallback.
func ContentStrategies(config scraper.ArticleConfig) []Strategy {
	return []Strategy{
		BoundText(config.BodySelector, config.StripSelector, config.Separator),
		ParagraphScan(config.ParagraphSelector, config.MinParagraphLength, config.AuthorMarker, config.Separator),
	}
}

// SplitByline splits byline text on the first occurrence of marker. The
// left side is the date and the right side the author, both trimmed. When
// marker is absent the whole trimmed text is the date and author is empty.
func SplitByline(text, marker string) (date, author string) {
	if marker == "" {
		return strings.TrimSpace(text), ""
	}
	before, after, found := strings.Cut(text, marker)
	if !found {
		return strings.TrimSpace(text), ""
	}
	return strings.TrimSpace(before), strings.TrimSpace(after)
}
