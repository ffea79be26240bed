package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/citegap/citegap/internal/platform"
)

// AIWriter delegates article writing to an AI platform adapter and
// expects a JSON document back.
type AIWriter struct {
	adapter platform.Adapter
}

// NewAIWriter creates a writer over the given adapter.
func NewAIWriter(adapter platform.Adapter) *AIWriter {
	return &AIWriter{adapter: adapter}
}

// Write asks the adapter for a draft and parses the JSON reply.
func (w *AIWriter) Write(ctx context.Context, req WriteRequest) (*Draft, error) {
	if w.adapter == nil {
		return nil, fmt.Errorf("writing capability: no platform adapter configured")
	}

	prompt := buildPrompt(req)

	answer, askErr := w.adapter.Ask(ctx, prompt)
	if askErr != nil {
		return nil, fmt.Errorf("writing capability: %w", askErr)
	}

	var draft Draft
	if parseErr := json.Unmarshal([]byte(stripCodeFence(answer)), &draft); parseErr != nil {
		return nil, fmt.Errorf("parse draft: %w", parseErr)
	}

	if draft.Title == "" || draft.Body == "" {
		return nil, fmt.Errorf("parse draft: missing title or body")
	}

	return &draft, nil
}

func buildPrompt(req WriteRequest) string {
	var sb strings.Builder
	sb.WriteString("Write an in-depth article answering the question: ")
	sb.WriteString(req.Query)
	sb.WriteString("\nTarget keywords: ")
	sb.WriteString(strings.Join(req.Keywords, ", "))
	if req.CompetitorExcerpt != "" {
		sb.WriteString("\nA competing article covers: ")
		sb.WriteString(req.CompetitorExcerpt)
	}
	sb.WriteString("\nRespond with a JSON object: {\"title\", \"body\", \"metaDescription\"}.")
	return sb.String()
}

// stripCodeFence removes a surrounding markdown code fence if present.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
