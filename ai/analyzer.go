package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// maxAnalysisChars limits document content sent for analysis.
// ~4000 chars ≈ ~1000 tokens, enough for accurate summarization and
// classification while staying well within context windows.
const maxAnalysisChars = 4000

// Analysis holds the metadata extracted from a document.
type Analysis struct {
	// Summary is a short abstract of the document.
	Summary string `json:"summary"`
	// Tags are free-form topic terms; callers normalize them against
	// the controlled vocabulary.
	Tags []string `json:"tags"`
	// Classification is one of the closed set in validClassifications.
	Classification string `json:"classification"`
}

// validClassifications is the closed set of document classes.
var validClassifications = map[string]bool{
	"article":       true,
	"paper":         true,
	"documentation": true,
	"tutorial":      true,
	"news":          true,
	"discussion":    true,
	"other":         true,
}

// Analyze extracts summary, tags, and classification from document text.
func (c *Client) Analyze(ctx context.Context, text string) (*Analysis, error) {
	content := truncateForAnalysis(text, maxAnalysisChars)

	raw, err := c.complete(ctx, []chatMessage{
		{Role: "system", Content: analysisSystemPrompt},
		{Role: "user", Content: fmt.Sprintf(analysisUserPrompt, content)},
	}, 1024)
	if err != nil {
		return nil, fmt.Errorf("analysis request: %w", err)
	}

	result, err := parseAnalysisResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse analysis response: %w", err)
	}
	return result, nil
}

// truncateForAnalysis truncates content for the model, preferring a
// paragraph boundary.
func truncateForAnalysis(content string, maxChars int) string {
	if len(content) <= maxChars {
		return content
	}

	truncated := content[:maxChars]
	if lastPara := strings.LastIndex(truncated, "\n\n"); lastPara > maxChars/2 {
		return truncated[:lastPara] + "\n\n[Content truncated for analysis...]"
	}
	return truncated + "\n\n[Content truncated for analysis...]"
}

// parseAnalysisResponse extracts an Analysis from the model response.
func parseAnalysisResponse(content string) (*Analysis, error) {
	jsonStr := extractJSON(content)
	if jsonStr == "" {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var result Analysis
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return nil, fmt.Errorf("invalid JSON response: %w", err)
	}

	// Fold unknown classes into "other" rather than failing the run.
	result.Classification = strings.ToLower(strings.TrimSpace(result.Classification))
	if !validClassifications[result.Classification] {
		result.Classification = "other"
	}

	return &result, nil
}

// codeBlockPattern matches JSON inside markdown code fences.
var codeBlockPattern = regexp.MustCompile("```(?:json)?\\s*\\n?([\\s\\S]*?)\\n?```")

// extractJSON extracts JSON from a response that may include markdown
// formatting. Uses json.Decoder to find the object boundary so braces
// inside string values are handled correctly.
func extractJSON(content string) string {
	if matches := codeBlockPattern.FindStringSubmatch(content); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	start := strings.Index(content, "{")
	if start == -1 {
		return ""
	}

	decoder := json.NewDecoder(strings.NewReader(content[start:]))
	var raw json.RawMessage
	if err := decoder.Decode(&raw); err == nil {
		return string(raw)
	}
	return ""
}
