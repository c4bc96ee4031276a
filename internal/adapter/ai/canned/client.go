// Package canned is a fast, deterministic understanding client for local
// development without an API key. It keys off the task wording in the system
// prompt and returns plausible canned answers.
package canned

import (
	"context"
	"strings"
	"time"
)

// Client satisfies ai.ChatClient deterministically.
type Client struct{}

// New returns a canned client.
func New() *Client { return &Client{} }

// Complete returns a canned answer for the task implied by the system prompt.
func (c *Client) Complete(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	// Simulate a tiny bit of processing latency to resemble real work
	time.Sleep(20 * time.Millisecond)
	switch {
	case strings.Contains(systemPrompt, "fixed list"):
		// Echo the first identifier in the list the gateway sent.
		for _, line := range strings.Split(userPrompt, "\n") {
			line = strings.TrimSpace(line)
			if line != "" && !strings.HasPrefix(line, "Valid identifiers") && !strings.HasPrefix(line, "Candidate said") {
				return line, nil
			}
		}
		return "NONE", nil
	case strings.Contains(systemPrompt, "person's name"):
		return "Alex Doe", nil
	case strings.Contains(systemPrompt, "JSON object only"):
		return `{"ClarityScore": 4, "RelevanceScore": 4, "Summary": "Concise answer with relevant experience.", ` +
			`"ExtractedEntities": [{"Type": "skill", "Value": "Go"}]}`, nil
	default:
		return "What accomplishment from your recent work are you most proud of, and why?", nil
	}
}
