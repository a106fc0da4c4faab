package scraper

// RecordHeader names the NewsRecord fields in output order.
var RecordHeader = []string{"title", "link", "date", "content", "author"}

// ArticleReference is a card found on a listing page.
type ArticleReference struct {
	Title string
	Link  string
}

// ArticleContent holds what was recovered from an article page. Fields that
// could not be resolved hold Sentinel.
type ArticleContent struct {
	Date    string
	Content string
	Author  string
}

// EmptyArticleContent returns content with every field set to Sentinel.
func EmptyArticleContent() ArticleContent {
	return ArticleContent{
		Date:    Sentinel,
		Content: Sentinel,
		Author:  Sentinel,
	}
}

// NewsRecord is one collected article.
type NewsRecord struct {
	Title   string
	Link    string
	Date    string
	Content string
	Author  string
}

// MergeRecord combines a listing reference with its article content.
func MergeRecord(ref ArticleReference, content ArticleContent) NewsRecord {
	return NewsRecord{
		Title:   ref.Title,
		Link:    ref.Link,
		Date:    content.Date,
		Content: content.Content,
		Author:  content.Author,
	}
}

// Fields returns the record values in RecordHeader order.
func (r NewsRecord) Fields() []string {
	return []string{r.Title, r.Link, r.Date, r.Content, r.Author}
}

// ResultSet is the ordered collection of records produced by a run, in
// page-then-card order.
type ResultSet []NewsRecord
