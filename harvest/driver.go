// Package harvest walks the paginated listing and collects one record per
// linked article.
package harvest

import (
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/pevans/noticias/browser"
	"github.com/pevans/noticias/discovery"
	"github.com/pevans/noticias/scraper"
	"go.uber.org/zap"
)

// DefaultArticleDelay is the pause between article fetches.
const DefaultArticleDelay = 300 * time.Millisecond

// PageFetcher loads a page as a document.
type PageFetcher interface {
	Fetch(ctx context.Context, url, readyClass string) (*goquery.Document, error)
}

// Summary counts what happened during a run.
type Summary struct {
	PagesProcessed int
	PagesFailed    int
	Articles       int
	ArticlesFailed int
	Interrupted    bool
	Fatal          error
}

// Driver runs the scrape over a range of listing pages.
type Driver struct {
	launcher browser.Launcher
	site     scraper.SiteConfig
	logger   *zap.Logger

	// ArticleDelay is applied after each article.
	ArticleDelay time.Duration

	// NewFetcher wraps a launched browser. Tests replace it.
	NewFetcher func(b browser.Browser) PageFetcher

	// Sleep implements the throttling delays. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error

	summary Summary
}

// NewDriver creates a driver. A nil logger discards events.
func NewDriver(launcher browser.Launcher, site scraper.SiteConfig, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		launcher:     launcher,
		site:         site,
		logger:       logger,
		ArticleDelay: DefaultArticleDelay,
		NewFetcher: func(b browser.Browser) PageFetcher {
			return browser.NewFetcher(b)
		},
		Sleep: browser.SleepContext,
	}
}

// Summary returns the counters of the last run.
func (d *Driver) Summary() Summary {
	return d.summary
}

// Run scrapes pages start through end, pausing pageDelay after each page.
// It never fails: fetch failures are logged and skipped, cancellation of
// ctx stops the run between pages and articles, and unexpected panics end
// the run. In every case the records of fully processed pages are
// returned and the browser is closed exactly once.
func (d *Driver) Run(ctx context.Context, start, end int, pageDelay time.Duration) (results scraper.ResultSet) {
	d.summary = Summary{}
	results = scraper.ResultSet{}
	log := d.logger.With(zap.String("run_id", uuid.NewString()))

	log.Info("starting run",
		zap.Int("start_page", start),
		zap.Int("end_page", end),
		zap.Duration("page_delay", pageDelay),
	)

	b, err := d.launcher.Launch(ctx)
	if err != nil {
		d.summary.Fatal = fmt.Errorf("failed to launch browser: %w", err)
		log.Error("fatal error", zap.Error(d.summary.Fatal))
		return results
	}

	defer func() {
		if r := recover(); r != nil {
			d.summary.Fatal = fmt.Errorf("panic: %v", r)
			log.Error("fatal error", zap.Error(d.summary.Fatal))
		}

		log.Info("closing browser")
		if err := b.Close(); err != nil {
			log.Warn("failed to close browser", zap.Error(err))
		}

		log.Info("run finished",
			zap.Int("records", len(results)),
			zap.Int("pages_processed", d.summary.PagesProcessed),
			zap.Int("pages_failed", d.summary.PagesFailed),
			zap.Int("articles", d.summary.Articles),
			zap.Int("articles_failed", d.summary.ArticlesFailed),
			zap.Bool("interrupted", d.summary.Interrupted),
		)
	}()

	fetcher := d.NewFetcher(b)

	for page := start; page <= end; page++ {
		if ctx.Err() != nil {
			d.interrupted(log)
			return results
		}

		pageLog := log.With(zap.Int("page", page), zap.Int("last_page", end))
		records, err := d.scrapePage(ctx, fetcher, page, pageLog)
		// Fetch errors may wrap context errors from page-load timeouts;
		// only the run context decides whether the run was interrupted
		if err != nil && ctx.Err() != nil {
			d.interrupted(log)
			return results
		}
		if err != nil {
			d.summary.PagesFailed++
			pageLog.Warn("failed to load page", zap.Error(err))
		} else {
			d.summary.PagesProcessed++
			results = append(results, records...)
			pageLog.Info("page collected", zap.Int("articles", len(records)))
		}

		if err := d.Sleep(ctx, pageDelay); err != nil {
			d.interrupted(log)
			return results
		}
	}

	return results
}

// scrapePage collects the records of one listing page. A non-nil error
// means either the listing could not be loaded or ctx was cancelled; in
// both cases no records of the page are kept. Callers tell the two apart
// with ctx.Err().
func (d *Driver) scrapePage(ctx context.Context, fetcher PageFetcher, page int, log *zap.Logger) ([]scraper.NewsRecord, error) {
	pageURL := d.site.PageURL(page)
	log.Info("loading page", zap.String("url", pageURL))

	// In-flight fetches finish even when ctx is cancelled
	doc, err := fetcher.Fetch(context.WithoutCancel(ctx), pageURL, d.site.ListConfig.ReadyClass)
	if err != nil {
		return nil, err
	}

	refs := discovery.ParseListing(doc, d.site.ListConfig)
	log.Info("cards found", zap.Int("cards", len(refs)))

	records := make([]scraper.NewsRecord, 0, len(refs))
	for i, ref := range refs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		log.Info("scraping article",
			zap.Int("position", i+1),
			zap.Int("total", len(refs)),
			zap.String("title", truncate(ref.Title, 50)),
		)

		content := d.scrapeArticle(ctx, fetcher, ref, log)
		records = append(records, scraper.MergeRecord(ref, content))
		d.summary.Articles++

		if err := d.Sleep(ctx, d.ArticleDelay); err != nil {
			return nil, err
		}
	}

	return records, nil
}

// scrapeArticle fetches and extracts one article. A failed fetch yields
// all-sentinel content.
func (d *Driver) scrapeArticle(ctx context.Context, fetcher PageFetcher, ref scraper.ArticleReference, log *zap.Logger) scraper.ArticleContent {
	articleURL := d.site.ResolveURL(ref.Link)

	doc, err := fetcher.Fetch(context.WithoutCancel(ctx), articleURL, "")
	if err != nil {
		d.summary.ArticlesFailed++
		log.Warn("failed to load article", zap.String("url", articleURL), zap.Error(err))
		return scraper.EmptyArticleContent()
	}

	return discovery.ExtractArticle(doc, d.site.ArticleConfig)
}

func (d *Driver) interrupted(log *zap.Logger) {
	d.summary.Interrupted = true
	log.Warn("interrupted, stopping run")
}

// truncate shortens s to at most n runes, adding an ellipsis when cut.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
