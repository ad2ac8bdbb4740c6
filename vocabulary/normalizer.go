// Package vocabulary normalizes free-form tag terms into the controlled
// vocabulary used across the knowledge base, so AI-suggested tags and
// user-entered tags converge on the same canonical forms.
package vocabulary

import (
	"regexp"
	"sort"
	"strings"
)

// slugRe collapses anything that is not a letter or digit into a single
// hyphen when canonicalizing terms.
var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// defaultAliases folds common variant spellings into canonical terms.
var defaultAliases = map[string]string{
	"ml":                "machine-learning",
	"machinelearning":   "machine-learning",
	"ai":                "artificial-intelligence",
	"nlp":               "natural-language-processing",
	"golang":            "go",
	"js":                "javascript",
	"db":                "database",
	"databases":         "database",
	"distributed-sys":   "distributed-systems",
	"k8s":               "kubernetes",
	"infosec":           "security",
	"cybersecurity":     "security",
	"neural-networks":   "neural-network",
	"neural-nets":       "neural-network",
	"llms":              "large-language-models",
	"llm":               "large-language-models",
	"information-retr":  "information-retrieval",
	"search-engines":    "search",
	"search-engine":     "search",
	"recommender":       "recommendation",
	"recommenders":      "recommendation",
	"recommendations":   "recommendation",
	"knowledge-graphs":  "knowledge-graph",
	"vector-embeddings": "embeddings",
	"embedding":         "embeddings",
}

// Normalizer canonicalizes vocabulary terms.
type Normalizer struct {
	aliases map[string]string
}

// NewNormalizer creates a normalizer with the default alias table.
func NewNormalizer() *Normalizer {
	return &Normalizer{aliases: defaultAliases}
}

// NewNormalizerWithAliases creates a normalizer with extra aliases
// layered over the defaults.
func NewNormalizerWithAliases(extra map[string]string) *Normalizer {
	aliases := make(map[string]string, len(defaultAliases)+len(extra))
	for k, v := range defaultAliases {
		aliases[k] = v
	}
	for k, v := range extra {
		aliases[Canonicalize(k)] = Canonicalize(v)
	}
	return &Normalizer{aliases: aliases}
}

// Normalize canonicalizes each term, folds aliases, drops empties and
// duplicates, and returns the result sorted for deterministic output.
func (n *Normalizer) Normalize(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	var out []string
	for _, term := range terms {
		c := Canonicalize(term)
		if c == "" {
			continue
		}
		if alias, ok := n.aliases[c]; ok {
			c = alias
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Canonicalize lowercases a term and collapses separators and
// punctuation into single hyphens.
func Canonicalize(term string) string {
	s := strings.ToLower(strings.TrimSpace(term))
	s = slugRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
