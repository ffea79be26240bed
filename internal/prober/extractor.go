package prober

import (
	"strings"

	"github.com/citegap/citegap/internal/domain"
)

// contextRadius is how many characters of surrounding text are captured
// around a mention.
const contextRadius = 50

// Extractor scans free-text answers for tracked tool names.
type Extractor struct {
	product     string
	aliases     []string
	competitors []string
	// scanNames is the fixed tracked-name list: product, aliases, then
	// competitors. Scan order determines mention positions.
	scanNames []string
}

// NewExtractor builds an extractor for a product (with aliases) and its
// competitors.
func NewExtractor(product string, aliases, competitors []string) *Extractor {
	scanNames := make([]string, 0, 1+len(aliases)+len(competitors))
	scanNames = append(scanNames, product)
	scanNames = append(scanNames, aliases...)
	scanNames = append(scanNames, competitors...)

	return &Extractor{
		product:     product,
		aliases:     aliases,
		competitors: competitors,
		scanNames:   scanNames,
	}
}

// Extract fills the mention fields of a citation from the response text.
// A mention's position is the ordinal of distinct names found in scan
// order over the tracked-name list, not the textual offset of the match.
func (e *Extractor) Extract(response string) domain.Citation {
	lower := strings.ToLower(response)

	citation := domain.Citation{
		FullResponse:        response,
		ResponseLength:      len(response),
		MentionedTools:      []domain.ToolMention{},
		CompetitorMentioned: []string{},
	}

	productSide := make(map[string]bool, 1+len(e.aliases))
	productSide[strings.ToLower(e.product)] = true
	for _, alias := range e.aliases {
		productSide[strings.ToLower(alias)] = true
	}

	position := 0
	seen := make(map[string]bool, len(e.scanNames))
	for _, name := range e.scanNames {
		nameLower := strings.ToLower(name)
		if seen[nameLower] {
			continue
		}

		idx := strings.Index(lower, nameLower)
		if idx < 0 {
			continue
		}

		seen[nameLower] = true
		position++
		mentionContext := surrounding(response, idx, len(nameLower))

		citation.MentionedTools = append(citation.MentionedTools, domain.ToolMention{
			Tool:     name,
			Position: position,
			Context:  mentionContext,
		})

		if productSide[nameLower] {
			if !citation.ProductMentioned {
				citation.ProductMentioned = true
				pos := position
				citation.ProductPosition = &pos
				ctx := mentionContext
				citation.ProductContext = &ctx
			}
			continue
		}

		citation.CompetitorMentioned = append(citation.CompetitorMentioned, name)
	}

	return citation
}

// surrounding returns up to contextRadius characters either side of the
// match.
func surrounding(text string, idx, matchLen int) string {
	start := idx - contextRadius
	if start < 0 {
		start = 0
	}

	end := idx + matchLen + contextRadius
	if end > len(text) {
		end = len(text)
	}

	return text[start:end]
}
