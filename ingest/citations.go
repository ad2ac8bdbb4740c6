package ingest

import (
	"regexp"
	"strings"
)

// markdownLinkRe matches [text](https://target) links in markdown.
var markdownLinkRe = regexp.MustCompile(`\[[^\]]*\]\((https?://[^)\s]+)\)`)

// bareURLRe matches URLs outside of markdown link syntax.
var bareURLRe = regexp.MustCompile(`(?m)(?:^|[\s<])(https?://[^\s>)\]]+)`)

// extractCitations pulls outbound URLs from markdown body text,
// deduplicated in order of first appearance. The URL the resource was
// fetched from is excluded.
func extractCitations(bodyText, selfURL string) []string {
	seen := map[string]bool{normalizeCitation(selfURL): true}
	var citations []string

	add := func(raw string) {
		c := normalizeCitation(raw)
		if c == "" || seen[c] {
			return
		}
		seen[c] = true
		citations = append(citations, c)
	}

	for _, m := range markdownLinkRe.FindAllStringSubmatch(bodyText, -1) {
		add(m[1])
	}
	for _, m := range bareURLRe.FindAllStringSubmatch(bodyText, -1) {
		add(m[1])
	}
	return citations
}

// normalizeCitation strips trailing punctuation and fragments so the
// same target is not counted twice.
func normalizeCitation(raw string) string {
	s := strings.TrimRight(strings.TrimSpace(raw), ".,;:!?")
	if i := strings.Index(s, "#"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimRight(s, "/")
}
