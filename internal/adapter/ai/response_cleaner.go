// Package ai implements the semantic extraction gateway over an
// OpenAI-compatible understanding backend, with defensive handling of
// malformed responses.
package ai

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ResponseCleaner handles cleaning and sanitizing LLM responses. Backends
// routinely wrap JSON in markdown fences or prepend prose; the gateway never
// trusts the raw payload.
type ResponseCleaner struct{}

// NewResponseCleaner creates a new response cleaner.
func NewResponseCleaner() *ResponseCleaner {
	return &ResponseCleaner{}
}

var trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)

// CleanJSONResponse strips markdown fences, extracts the first JSON object
// from mixed content, and fixes trailing commas.
func (rc *ResponseCleaner) CleanJSONResponse(response string) string {
	response = rc.removeMarkdownBlocks(response)
	response = rc.extractJSON(response)
	if !rc.IsValidJSON(response) {
		response = trailingCommaRe.ReplaceAllString(response, "$1")
	}
	return response
}

// removeMarkdownBlocks removes markdown code fences from the response.
func (rc *ResponseCleaner) removeMarkdownBlocks(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	return strings.TrimSpace(response)
}

// extractJSON extracts the first balanced JSON object from mixed content.
func (rc *ResponseCleaner) extractJSON(response string) string {
	start := strings.Index(response, "{")
	if start == -1 {
		return response
	}
	braceCount := 0
	end := start
	for i := start; i < len(response); i++ {
		switch response[i] {
		case '{':
			braceCount++
		case '}':
			braceCount--
			if braceCount == 0 {
				end = i
				return response[start : end+1]
			}
		}
	}
	return response
}

// IsValidJSON checks if a string is valid JSON.
func (rc *ResponseCleaner) IsValidJSON(response string) bool {
	var temp interface{}
	return json.Unmarshal([]byte(response), &temp) == nil
}
