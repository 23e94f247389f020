// Package extract reads the latest user and assistant messages from a chat page.
package extract

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// SiteID identifies a supported chat site
type SiteID string

const (
	SiteUnsupported SiteID = ""
	SiteOpenAI      SiteID = "openai"
	SiteClaude      SiteID = "claude"
	SiteGemini      SiteID = "gemini"
	SiteXAI         SiteID = "xai"
	SiteDeepSeek    SiteID = "deepseek"
)

// Adapter extracts the most recent prompt and response from a parsed page
type Adapter struct {
	Site            SiteID
	ExtractPrompt   func(doc *goquery.Document) string
	ExtractResponse func(doc *goquery.Document) string
}

// Supported is false only for the Unsupported adapter
func (a Adapter) Supported() bool {
	return a.Site != SiteUnsupported
}

// Result is the text pulled from one page
type Result struct {
	Site     SiteID
	Prompt   string
	Response string
}

// Empty reports whether nothing was found
func (r Result) Empty() bool {
	return r.Prompt == "" && r.Response == ""
}

// Extract runs both extraction functions over doc
func (a Adapter) Extract(doc *goquery.Document) Result {
	res := Result{Site: a.Site}
	if a.ExtractPrompt != nil {
		res.Prompt = a.ExtractPrompt(doc)
	}
	if a.ExtractResponse != nil {
		res.Response = a.ExtractResponse(doc)
	}
	return res
}

// Unsupported returns empty text for both messages
var Unsupported = Adapter{Site: SiteUnsupported}

// SelectorAdapter builds an adapter that takes the last element matching each selector
func SelectorAdapter(site SiteID, promptSelector, responseSelector string) Adapter {
	return Adapter{
		Site:            site,
		ExtractPrompt:   func(doc *goquery.Document) string { return LastText(doc, promptSelector) },
		ExtractResponse: func(doc *goquery.Document) string { return LastText(doc, responseSelector) },
	}
}

// LastText returns the trimmed visible text of the last element matching
// selector in document order, or "" if nothing matches.
func LastText(doc *goquery.Document, selector string) string {
	sel := doc.Find(selector)
	if sel.Length() == 0 {
		return ""
	}
	return VisibleText(sel.Last().Get(0))
}

// Parse reads an HTML document
func Parse(r io.Reader) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(r)
}

// Tags to skip (non-content)
var skipTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
}

// VisibleText concatenates the text under n, skipping non-content elements
// and breaking lines after block elements. Whitespace runs inside a line
// collapse to one space and blank lines are dropped.
func VisibleText(n *html.Node) string {
	var sb strings.Builder
	var extract func(*html.Node)

	extract = func(n *html.Node) {
		if n.Type == html.ElementNode && skipTags[n.Data] {
			return
		}

		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}

		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "div", "h1", "h2", "h3", "h4", "h5", "h6", "li", "br", "pre", "tr":
				if s := sb.String(); s != "" && !strings.HasSuffix(s, "\n") {
					sb.WriteString("\n")
				}
			}
		}
	}

	extract(n)
	return collapseWhitespace(sb.String())
}

func collapseWhitespace(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if fields := strings.Fields(line); len(fields) > 0 {
			lines = append(lines, strings.Join(fields, " "))
		}
	}
	return strings.Join(lines, "\n")
}
