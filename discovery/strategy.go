package discovery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Strategy tries to resolve one value from a document. It reports false when
// it has nothing to offer, so the next strategy in line can be tried.
type Strategy func(doc *goquery.Document) (string, bool)

// FirstOf evaluates strategies in order and returns the first value
// resolved.
func FirstOf(doc *goquery.Document, strategies ...Strategy) (string, bool) {
	for _, strategy := range strategies {
		if value, ok := strategy(doc); ok {
			return value, true
		}
	}
	return "", false
}

// SelectorText resolves the trimmed text of the first node matching
// selector.
func SelectorText(selector string) Strategy {
	return func(doc *goquery.Document) (string, bool) {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			return "", false
		}
		text := strings.TrimSpace(VisibleText(sel))
		return text, text != ""
	}
}

// TextContaining resolves the first text node in the document that
// contains substr. Script and style contents are not searched.
func TextContaining(substr string) Strategy {
	return func(doc *goquery.Document) (string, bool) {
		for _, root := range doc.Nodes {
			if text, ok := findText(root, substr); ok {
				text = strings.TrimSpace(text)
				return text, text != ""
			}
		}
		return "", false
	}
}

func findText(n *html.Node, substr string) (string, bool) {
	if isRawText(n) {
		return "", false
	}
	if n.Type == html.TextNode && strings.Contains(n.Data, substr) {
		return n.Data, true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if text, ok := findText(c, substr); ok {
			return text, true
		}
	}
	return "", false
}

// BoundText resolves the text of the first node matching selector, with
// the nodes matching strip removed. Each text fragment is trimmed and
// non-empty fragments are joined with sep. The document is not modified.
func BoundText(selector, strip, sep string) Strategy {
	return func(doc *goquery.Document) (string, bool) {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			return "", false
		}

		body := sel.Clone()
		if strip != "" {
			body.Find(strip).Remove()
		}

		text := joinedText(body, sep)
		return text, text != ""
	}
}

// ParagraphScan resolves the trimmed text of every node matching selector
// that is longer than minLength runes and does not contain exclude, joined
// with sep in document order.
func ParagraphScan(selector string, minLength int, exclude, sep string) Strategy {
	return func(doc *goquery.Document) (string, bool) {
		var parts []string
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			text := strings.TrimSpace(VisibleText(s))
			if len([]rune(text)) <= minLength {
				return
			}
			if exclude != "" && strings.Contains(text, exclude) {
				return
			}
			parts = append(parts, text)
		})

		if len(parts) == 0 {
			return "", false
		}
		return strings.Join(parts, sep), true
	}
}

// VisibleText returns the concatenated text below sel, like
// Selection.Text, but without the contents of script and style elements.
func VisibleText(sel *goquery.Selection) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if isRawText(n) {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return sb.String()
}

// joinedText collects the trimmed, non-empty text fragments below sel.
func joinedText(sel *goquery.Selection, sep string) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				parts = append(parts, text)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(parts, sep)
}

func isRawText(n *html.Node) bool {
	return n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style")
}
