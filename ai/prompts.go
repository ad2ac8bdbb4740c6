package ai

// analysisSystemPrompt is the system prompt for document analysis.
const analysisSystemPrompt = `You are a document metadata extractor for a personal knowledge base. Analyze documents and extract structured metadata.

Always respond with valid JSON. Do not include any text outside the JSON object.`

// analysisUserPrompt is the user prompt template for document analysis.
// The %s placeholder is replaced with the document content.
const analysisUserPrompt = `Analyze this document and extract the following metadata:

1. **summary**: A concise abstract of the document, at most three sentences.

2. **tags**: Topic terms describing the document's subject matter.
   - Use short lowercase terms like "machine-learning", "databases", "go"
   - Maximum 8 tags
   - Leave empty array if no clear topics

3. **classification**: The document type. Choose exactly one:
   - "article" - long-form editorial or essay
   - "paper" - academic or research paper
   - "documentation" - product or API documentation
   - "tutorial" - step-by-step instructional material
   - "news" - news report or announcement
   - "discussion" - forum thread, Q&A, or mailing-list post
   - "other" - anything else

Document to analyze:
---
%s
---

Respond with JSON only:
{"summary":"...","tags":[...],"classification":"..."}`
