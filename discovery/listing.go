package discovery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/noticias/scraper"
)

// ParseListing extracts one ArticleReference per card that carries a link,
// in document order. Cards without a link are skipped.
func ParseListing(doc *goquery.Document, config scraper.ListConfig) []scraper.ArticleReference {
	refs := []scraper.ArticleReference{}
	if doc == nil {
		return refs
	}

	doc.Find(config.CardSelector).Each(func(i int, card *goquery.Selection) {
		href, ok := card.Find("a[href]").First().Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			return
		}

		title := strings.TrimSpace(VisibleText(card.Find(config.TitleSelector).First()))
		if title == "" {
			title = config.Untitled
		}

		refs = append(refs, scraper.ArticleReference{
			Title: title,
			Link:  href,
		})
	})

	return refs
}
