package harvest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/noticias/browser"
	"github.com/pevans/noticias/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// siteBrowser serves a fixed set of pages keyed by URL
type siteBrowser struct {
	pages   map[string]string
	errs    map[string]error
	current string
	visited []string
	closed  int
}

func (b *siteBrowser) Navigate(ctx context.Context, url string) error {
	b.visited = append(b.visited, url)
	if err, ok := b.errs[url]; ok {
		return err
	}
	markup, ok := b.pages[url]
	if !ok {
		return fmt.Errorf("net::ERR_CONNECTION_REFUSED %s", url)
	}
	b.current = markup
	return nil
}

func (b *siteBrowser) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(b.current))
	if err != nil {
		return err
	}
	if doc.Find(selector).Length() == 0 {
		return browser.ErrNotReady
	}
	return nil
}

func (b *siteBrowser) Markup(ctx context.Context) (string, error) {
	return b.current, nil
}

func (b *siteBrowser) Close() error {
	b.closed++
	return nil
}

func testSite() scraper.SiteConfig {
	site := scraper.DefaultSiteConfig()
	site.ListingURL = "https://news.test/noticias/%d"
	site.Origin = "https://news.test"
	return site
}

// listing builds a listing page with one card per link
func listing(links ...string) string {
	var sb strings.Builder
	sb.WriteString("<html><body>")
	for i, link := range links {
		fmt.Fprintf(&sb, `<div class="list-news"><a href="%s"><h5>Notícia %d</h5></a></div>`, link, i+1)
	}
	sb.WriteString("</body></html>")
	return sb.String()
}

// article builds an article page
func article(date, author, body string) string {
	return fmt.Sprintf(`<html><body><small>%s Por - %s</small><p ng-bind-html="noticia.texto">%s</p></body></html>`,
		date, author, body)
}

// Test helper: driver wired to a fake site with instant sleeps
type harness struct {
	driver   *Driver
	browser  *siteBrowser
	launches int
	sleeps   []time.Duration
	logs     *observer.ObservedLogs
	onSleep  func(n int, d time.Duration) error
}

func newHarness(t *testing.T, pages map[string]string) *harness {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	h := &harness{
		browser: &siteBrowser{pages: pages},
		logs:    logs,
	}

	launcher := browser.LauncherFunc(func(ctx context.Context) (browser.Browser, error) {
		h.launches++
		return h.browser, nil
	})

	h.driver = NewDriver(launcher, testSite(), zap.New(core))
	h.driver.NewFetcher = func(b browser.Browser) PageFetcher {
		f := browser.NewFetcher(b)
		f.Sleep = func(ctx context.Context, d time.Duration) error { return nil }
		return f
	}
	h.driver.Sleep = func(ctx context.Context, d time.Duration) error {
		h.sleeps = append(h.sleeps, d)
		if h.onSleep != nil {
			if err := h.onSleep(len(h.sleeps), d); err != nil {
				return err
			}
		}
		return ctx.Err()
	}
	return h
}

// TestNewDriver_Defaults verifies default options
func TestNewDriver_Defaults(t *testing.T) {
	d := NewDriver(browser.StaticLauncher{}, testSite(), nil)

	assert.Equal(t, 300*time.Millisecond, d.ArticleDelay)
	assert.NotNil(t, d.NewFetcher)
	assert.NotNil(t, d.Sleep)
}

// TestRun_EndToEnd verifies two cards yield two ordered records
func TestRun_EndToEnd(t *testing.T) {
	h := newHarness(t, map[string]string{
		"https://news.test/noticias/1": listing("/n/1", "https://news.test/n/2"),
		"https://news.test/n/1":        article("01/02/2024", "Ana", "Corpo um."),
		"https://news.test/n/2":        article("03/04/2024", "Beto", "Corpo dois."),
	})

	results := h.driver.Run(context.Background(), 1, 1, time.Second)

	require.Len(t, results, 2)
	assert.Equal(t, []string{"Notícia 1", "/n/1", "01/02/2024", "Corpo um.", "Ana"}, results[0].Fields())
	assert.Equal(t, []string{"Notícia 2", "https://news.test/n/2", "03/04/2024", "Corpo dois.", "Beto"}, results[1].Fields())
	assert.Equal(t, 1, h.browser.closed)
	assert.Equal(t, 1, h.launches)
	assert.Equal(t, []time.Duration{300 * time.Millisecond, 300 * time.Millisecond, time.Second}, h.sleeps)

	summary := h.driver.Summary()
	assert.Equal(t, 1, summary.PagesProcessed)
	assert.Equal(t, 2, summary.Articles)
	assert.False(t, summary.Interrupted)
	assert.NoError(t, summary.Fatal)

	finished := h.logs.FilterMessage("run finished").All()
	require.Len(t, finished, 1)
	fields := finished[0].ContextMap()
	assert.Equal(t, int64(2), fields["records"])
	assert.Equal(t, int64(2), fields["articles"])
	assert.Equal(t, int64(0), fields["articles_failed"])
}

// TestRun_PageOrder verifies page-then-card ordering across pages
func TestRun_PageOrder(t *testing.T) {
	h := newHarness(t, map[string]string{
		"https://news.test/noticias/1": listing("/a", "/b"),
		"https://news.test/noticias/2": listing("/c"),
		"https://news.test/a":          article("1", "A", "a"),
		"https://news.test/b":          article("2", "B", "b"),
		"https://news.test/c":          article("3", "C", "c"),
	})

	results := h.driver.Run(context.Background(), 1, 2, 0)

	require.Len(t, results, 3)
	assert.Equal(t, "/a", results[0].Link)
	assert.Equal(t, "/b", results[1].Link)
	assert.Equal(t, "/c", results[2].Link)
	assert.Equal(t, []string{
		"https://news.test/noticias/1",
		"https://news.test/a",
		"https://news.test/b",
		"https://news.test/noticias/2",
		"https://news.test/c",
	}, h.browser.visited)
}

// TestRun_FailedListingSkipsPage verifies a failed page contributes nothing
func TestRun_FailedListingSkipsPage(t *testing.T) {
	h := newHarness(t, map[string]string{
		"https://news.test/noticias/1": `<html><body><p>manutenção</p></body></html>`,
		"https://news.test/noticias/3": listing("/x"),
		"https://news.test/x":          article("1", "X", "x"),
	})

	results := h.driver.Run(context.Background(), 1, 3, time.Second)

	require.Len(t, results, 1)
	assert.Equal(t, "/x", results[0].Link)
	assert.Equal(t, 2, h.driver.Summary().PagesFailed)
	assert.Equal(t, 1, h.driver.Summary().PagesProcessed)
	assert.Equal(t, 2, h.logs.FilterMessage("failed to load page").Len())
	assert.Equal(t, 1, h.browser.closed)
}

// TestRun_ListingTimeoutContinues verifies a listing that times out while
// loading is a failed page, not an interruption
func TestRun_ListingTimeoutContinues(t *testing.T) {
	h := newHarness(t, map[string]string{
		"https://news.test/noticias/2": listing("/y"),
		"https://news.test/y":          article("1", "Y", "y"),
	})
	h.browser.errs = map[string]error{
		"https://news.test/noticias/1": fmt.Errorf("page load: %w", context.DeadlineExceeded),
	}

	results := h.driver.Run(context.Background(), 1, 2, time.Second)

	require.Len(t, results, 1)
	assert.Equal(t, "/y", results[0].Link)
	summary := h.driver.Summary()
	assert.Equal(t, 1, summary.PagesFailed)
	assert.Equal(t, 1, summary.PagesProcessed)
	assert.False(t, summary.Interrupted)
	assert.Equal(t, 0, h.logs.FilterMessage("interrupted, stopping run").Len())
	assert.Equal(t, 1, h.logs.FilterMessage("failed to load page").Len())
}

// TestRun_ArticleTimeoutKeepsSentinels verifies an article that times out
// while loading keeps its row and the page is still collected
func TestRun_ArticleTimeoutKeepsSentinels(t *testing.T) {
	h := newHarness(t, map[string]string{
		"https://news.test/noticias/1": listing("/lento", "/ok"),
		"https://news.test/ok":         article("1", "Ok", "ok"),
	})
	h.browser.errs = map[string]error{
		"https://news.test/lento": context.DeadlineExceeded,
	}

	results := h.driver.Run(context.Background(), 1, 1, 0)

	require.Len(t, results, 2)
	assert.Equal(t, scraper.Sentinel, results[0].Content)
	assert.Equal(t, "Ok", results[1].Author)
	assert.Equal(t, 1, h.driver.Summary().ArticlesFailed)
	assert.False(t, h.driver.Summary().Interrupted)
}

// TestRun_FailedArticleKeepsSentinels verifies article failures keep the row
func TestRun_FailedArticleKeepsSentinels(t *testing.T) {
	h := newHarness(t, map[string]string{
		"https://news.test/noticias/1": listing("/missing", "/ok"),
		"https://news.test/ok":         article("1", "Ok", "ok"),
	})

	results := h.driver.Run(context.Background(), 1, 1, 0)

	require.Len(t, results, 2)
	assert.Equal(t, scraper.NewsRecord{
		Title:   "Notícia 1",
		Link:    "/missing",
		Date:    scraper.Sentinel,
		Content: scraper.Sentinel,
		Author:  scraper.Sentinel,
	}, results[0])
	assert.Equal(t, "Ok", results[1].Author)
	assert.Equal(t, 1, h.driver.Summary().ArticlesFailed)
	assert.Equal(t, 1, h.logs.FilterMessage("failed to load article").Len())
}

// TestRun_InvalidArticleLink verifies relative links that cannot be
// resolved fail as fetches
func TestRun_InvalidArticleLink(t *testing.T) {
	h := newHarness(t, map[string]string{
		"https://news.test/noticias/1": listing("noticia-relativa"),
	})

	results := h.driver.Run(context.Background(), 1, 1, 0)

	require.Len(t, results, 1)
	assert.Equal(t, scraper.Sentinel, results[0].Content)
	assert.NotContains(t, h.browser.visited, "noticia-relativa")
}

// TestRun_InterruptBetweenPages verifies results through the last full page
func TestRun_InterruptBetweenPages(t *testing.T) {
	h := newHarness(t, map[string]string{
		"https://news.test/noticias/1": listing("/a"),
		"https://news.test/noticias/2": listing("/b"),
		"https://news.test/noticias/3": listing("/c"),
		"https://news.test/a":          article("1", "A", "a"),
		"https://news.test/b":          article("2", "B", "b"),
		"https://news.test/c":          article("3", "C", "c"),
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pages := 0
	h.onSleep = func(n int, d time.Duration) error {
		if d == time.Second {
			pages++
			if pages == 2 {
				cancel()
			}
		}
		return nil
	}

	results := h.driver.Run(ctx, 1, 3, time.Second)

	require.Len(t, results, 2)
	assert.Equal(t, "/a", results[0].Link)
	assert.Equal(t, "/b", results[1].Link)
	assert.NotContains(t, h.browser.visited, "https://news.test/noticias/3")
	assert.Equal(t, 1, h.browser.closed)
	assert.True(t, h.driver.Summary().Interrupted)
	assert.Equal(t, 1, h.logs.FilterMessage("interrupted, stopping run").Len())
}

// TestRun_InterruptMidPage verifies a partial page is discarded
func TestRun_InterruptMidPage(t *testing.T) {
	h := newHarness(t, map[string]string{
		"https://news.test/noticias/1": listing("/a"),
		"https://news.test/noticias/2": listing("/b", "/c"),
		"https://news.test/a":          article("1", "A", "a"),
		"https://news.test/b":          article("2", "B", "b"),
		"https://news.test/c":          article("3", "C", "c"),
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// sleeps: /a, page 1, /b
	h.onSleep = func(n int, d time.Duration) error {
		if n == 3 {
			cancel()
		}
		return nil
	}

	results := h.driver.Run(ctx, 1, 2, time.Second)

	require.Len(t, results, 1)
	assert.Equal(t, "/a", results[0].Link)
	assert.NotContains(t, h.browser.visited, "https://news.test/c")
	assert.Equal(t, 1, h.browser.closed)
}

// TestRun_CancelledBeforeStart verifies nothing is fetched
func TestRun_CancelledBeforeStart(t *testing.T) {
	h := newHarness(t, map[string]string{
		"https://news.test/noticias/1": listing("/a"),
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := h.driver.Run(ctx, 1, 5, 0)

	assert.Empty(t, results)
	assert.Empty(t, h.browser.visited)
	assert.Equal(t, 1, h.browser.closed)
}

// panicFetcher panics when asked for a given URL
type panicFetcher struct {
	next PageFetcher
	url  string
}

func (f panicFetcher) Fetch(ctx context.Context, url, readyClass string) (*goquery.Document, error) {
	if url == f.url {
		panic("renderer crashed")
	}
	return f.next.Fetch(ctx, url, readyClass)
}

// TestRun_PanicKeepsPartialResults verifies fatal errors end the run cleanly
func TestRun_PanicKeepsPartialResults(t *testing.T) {
	h := newHarness(t, map[string]string{
		"https://news.test/noticias/1": listing("/a"),
		"https://news.test/noticias/2": listing("/b"),
		"https://news.test/a":          article("1", "A", "a"),
	})
	wrapped := h.driver.NewFetcher
	h.driver.NewFetcher = func(b browser.Browser) PageFetcher {
		return panicFetcher{next: wrapped(b), url: "https://news.test/noticias/2"}
	}

	results := h.driver.Run(context.Background(), 1, 3, 0)

	require.Len(t, results, 1)
	assert.Equal(t, "/a", results[0].Link)
	assert.Equal(t, 1, h.browser.closed)
	require.Error(t, h.driver.Summary().Fatal)
	assert.Contains(t, h.driver.Summary().Fatal.Error(), "renderer crashed")
	assert.Equal(t, 1, h.logs.FilterMessage("fatal error").Len())
}

// TestRun_LaunchFailure verifies an empty result when no browser starts
func TestRun_LaunchFailure(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	launcher := browser.LauncherFunc(func(ctx context.Context) (browser.Browser, error) {
		return nil, errors.New("chrome not found")
	})
	d := NewDriver(launcher, testSite(), zap.New(core))

	results := d.Run(context.Background(), 1, 2, 0)

	assert.Empty(t, results)
	assert.NotNil(t, results)
	assert.ErrorContains(t, d.Summary().Fatal, "chrome not found")
	assert.Equal(t, 1, logs.FilterMessage("fatal error").Len())
}

// TestRun_EmptyRange verifies start after end does nothing
func TestRun_EmptyRange(t *testing.T) {
	h := newHarness(t, map[string]string{})

	results := h.driver.Run(context.Background(), 5, 4, 0)

	assert.Empty(t, results)
	assert.Empty(t, h.browser.visited)
	assert.Equal(t, 1, h.browser.closed)
}

// TestRun_LogsCarryRunID verifies every event is tagged with the run id
func TestRun_LogsCarryRunID(t *testing.T) {
	h := newHarness(t, map[string]string{
		"https://news.test/noticias/1": listing("/a"),
		"https://news.test/a":          article("1", "A", "a"),
	})

	h.driver.Run(context.Background(), 1, 1, 0)

	entries := h.logs.All()
	require.NotEmpty(t, entries)
	runID := entries[0].ContextMap()["run_id"]
	assert.NotEmpty(t, runID)
	for _, entry := range entries {
		assert.Equal(t, runID, entry.ContextMap()["run_id"], entry.Message)
	}
	assert.Equal(t, 1, h.logs.FilterMessage("cards found").Len())
}

// TestTruncate verifies rune-safe truncation
func TestTruncate(t *testing.T) {
	assert.Equal(t, "curto", truncate("curto", 50))
	assert.Equal(t, "ção...", truncate("çãoxyz", 3))
}
