package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title>Sample Page Title</title></head>
<body>
<article>
<h1>Understanding Event Buses</h1>
<p>An event bus decouples publishers from subscribers. This paragraph is
long enough that readability treats it as real article content rather
than boilerplate navigation or footer text.</p>
<p>Handlers subscribe by event name and receive immutable envelopes. A
second substantial paragraph keeps the content extractor convinced that
this is the main body of the page.</p>
<p>See <a href="https://example.org/related">the related article</a> for
more background on publish and subscribe systems.</p>
</article>
</body>
</html>`

func TestExtractProducesMarkdown(t *testing.T) {
	e := NewReadabilityExtractor()

	extraction, err := e.Extract(&FetchResult{
		FinalURL: "https://example.com/buses",
		Body:     []byte(samplePage),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, extraction.Title)
	assert.Contains(t, extraction.BodyText, "decouples publishers")
	assert.Contains(t, extraction.BodyText, "[the related article](https://example.org/related)")
}

func TestExtractTitleFallsBackToHTMLTitle(t *testing.T) {
	page := `<html><head><title>Only The Head Title</title></head>
<body><p>Short body with no headings, just a couple of sentences that
readability can still pick up as the page content.</p></body></html>`

	e := NewReadabilityExtractor()
	extraction, err := e.Extract(&FetchResult{
		FinalURL: "https://example.com/x",
		Body:     []byte(page),
	})
	require.NoError(t, err)
	assert.Equal(t, "Only The Head Title", extraction.Title)
}

func TestExtractHTMLTitle(t *testing.T) {
	assert.Equal(t, "Hello", extractHTMLTitle([]byte("<html><head><title> Hello </title></head></html>")))
	assert.Equal(t, "", extractHTMLTitle([]byte("<html><body>no title</body></html>")))
}

func TestExtractMarkdownTitle(t *testing.T) {
	assert.Equal(t, "Heading", extractMarkdownTitle("intro\n# Heading\nbody"))
	assert.Equal(t, "", extractMarkdownTitle("## only subheadings\ntext"))
}

func TestSplitByline(t *testing.T) {
	tests := []struct {
		byline string
		want   []string
	}{
		{"By Jane Roe", []string{"Jane Roe"}},
		{"Jane Roe, John Doe", []string{"Jane Roe", "John Doe"}},
		{"Jane Roe, and John Doe", []string{"Jane Roe", "John Doe"}},
		{"Jane Roe & John Doe", []string{"Jane Roe", "John Doe"}},
		{"by Jane Roe; John Doe", []string{"Jane Roe", "John Doe"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, splitByline(tt.byline), tt.byline)
	}
}

func TestCleanMarkdown(t *testing.T) {
	messy := "line one   \n\n\n\n\n\nline two\t\n"
	cleaned := cleanMarkdown(messy)
	assert.Equal(t, "line one\n\n\nline two", cleaned)
}
