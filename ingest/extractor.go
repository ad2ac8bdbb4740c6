package ingest

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// excessiveLinesRe collapses runs of blank lines in converted markdown.
var excessiveLinesRe = regexp.MustCompile(`\n{4,}`)

// Extraction is the structured text pulled out of fetched content.
type Extraction struct {
	Title string
	// BodyText is the main content as markdown.
	BodyText string
	// Authors holds byline names when the page exposes them.
	Authors []string
}

// Extractor turns fetched content into structured text.
type Extractor interface {
	Extract(f *FetchResult) (*Extraction, error)
}

// ReadabilityExtractor isolates the main article content with
// readability, then converts it to GitHub-flavored markdown.
type ReadabilityExtractor struct {
	converter *md.Converter
}

// NewReadabilityExtractor creates an extractor.
func NewReadabilityExtractor() *ReadabilityExtractor {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &ReadabilityExtractor{converter: converter}
}

// Extract implements Extractor.
func (e *ReadabilityExtractor) Extract(f *FetchResult) (*Extraction, error) {
	pageURL, err := url.Parse(f.FinalURL)
	if err != nil {
		pageURL = &url.URL{}
	}

	article, err := readability.FromReader(bytes.NewReader(f.Body), pageURL)
	if err != nil {
		return nil, fmt.Errorf("extract readable content: %w", err)
	}

	content := article.Content
	if strings.TrimSpace(content) == "" {
		// Some pages defeat readability; fall back to the raw document.
		content = string(f.Body)
	}

	markdown, err := e.converter.ConvertString(content)
	if err != nil {
		return nil, fmt.Errorf("convert to markdown: %w", err)
	}
	markdown = cleanMarkdown(markdown)

	title := strings.TrimSpace(article.Title)
	if title == "" {
		title = extractHTMLTitle(f.Body)
	}
	if title == "" {
		title = extractMarkdownTitle(markdown)
	}

	var authors []string
	if byline := strings.TrimSpace(article.Byline); byline != "" {
		authors = splitByline(byline)
	}

	return &Extraction{
		Title:    title,
		BodyText: markdown,
		Authors:  authors,
	}, nil
}

// splitByline breaks a byline into individual author names.
func splitByline(byline string) []string {
	byline = strings.TrimPrefix(byline, "By ")
	byline = strings.TrimPrefix(byline, "by ")

	parts := strings.FieldsFunc(byline, func(r rune) bool {
		return r == ',' || r == ';' || r == '&'
	})

	var authors []string
	for _, p := range parts {
		p = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(p), "and "))
		if p != "" {
			authors = append(authors, p)
		}
	}
	return authors
}

// extractHTMLTitle extracts the <title> element text.
func extractHTMLTitle(content []byte) string {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return ""
	}

	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil && title == ""; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}

// extractMarkdownTitle extracts the first H1 heading from markdown.
func extractMarkdownTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

// cleanMarkdown trims trailing whitespace and collapses blank-line runs.
func cleanMarkdown(content string) string {
	content = excessiveLinesRe.ReplaceAllString(content, "\n\n\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
