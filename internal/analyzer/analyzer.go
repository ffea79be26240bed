// Package analyzer scans a trailing window of citations per distinct
// query and decides which queries are content gaps worth writing for.
package analyzer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/citegap/citegap/internal/domain"
	"github.com/citegap/citegap/internal/logger"
)

// Dominance thresholds for the gap decision.
const (
	// strongDominance is the mention rate above which the product is
	// considered to own the query.
	strongDominance = 0.7
	// strongPosition is the average position below which the product is
	// considered to rank well.
	strongPosition = 1.5
	// weakDominance is the mention rate below which mentioned-but-rare
	// queries classify as weak-content.
	weakDominance = 0.3
	// competitorSaturation is the share of citations with a competitor
	// present that earns a priority bump.
	competitorSaturation = 0.8
)

// Priority scoring weights, applied to a base of 5.
const (
	basePriority          = 5
	neverMentionedBonus   = 3
	saturationBonus       = 2
	competitorLeadsBonus  = 2
	competitorLeadsCutoff = 1.5
)

// DefaultWindowDays is the default trailing analysis window.
const DefaultWindowDays = 7

// CitationReader reads citations inside the analysis window.
type CitationReader interface {
	ListSince(ctx context.Context, since time.Time) ([]domain.Citation, error)
}

// Analyzer derives scored content gaps from citation history.
type Analyzer struct {
	citations CitationReader
	log       logger.Logger
}

// New creates an analyzer.
func New(citations CitationReader, log logger.Logger) *Analyzer {
	return &Analyzer{citations: citations, log: log}
}

// queryGroup is all citations for one distinct query, in fetch order.
type queryGroup struct {
	query     string
	citations []*domain.Citation
}

// Analyze scans the trailing window and returns scored gaps, highest
// priority first (stable on ties). The result feeds the gap repository's
// upsert merge rule.
func (a *Analyzer) Analyze(ctx context.Context, windowDays int) ([]domain.ContentGap, error) {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}

	since := time.Now().UTC().AddDate(0, 0, -windowDays)
	citations, listErr := a.citations.ListSince(ctx, since)
	if listErr != nil {
		return nil, fmt.Errorf("list citations: %w", listErr)
	}

	groups := groupByQuery(citations)

	gaps := make([]domain.ContentGap, 0, len(groups))
	for _, group := range groups {
		gap, isGap := scoreGroup(group)
		if !isGap {
			continue
		}
		gaps = append(gaps, gap)
	}

	sort.SliceStable(gaps, func(i, j int) bool {
		return gaps[i].Priority > gaps[j].Priority
	})

	a.log.Info("Gap analysis complete",
		logger.Int("queries", len(groups)),
		logger.Int("gaps", len(gaps)),
		logger.Int("window_days", windowDays),
	)

	return gaps, nil
}

// groupByQuery groups citations by exact query string, preserving
// first-seen order for deterministic results.
func groupByQuery(citations []domain.Citation) []queryGroup {
	index := map[string]int{}
	var groups []queryGroup

	for i := range citations {
		c := &citations[i]
		at, ok := index[c.Query]
		if !ok {
			at = len(groups)
			index[c.Query] = at
			groups = append(groups, queryGroup{query: c.Query})
		}
		groups[at].citations = append(groups[at].citations, c)
	}

	return groups
}

// scoreGroup applies the gap decision and scoring to one query's
// citations. Returns false when the query is not a gap.
func scoreGroup(group queryGroup) (domain.ContentGap, bool) {
	total := len(group.citations)
	if total == 0 {
		return domain.ContentGap{}, false
	}

	mentions := 0
	positionSum := 0
	positionCount := 0
	for _, c := range group.citations {
		if !c.ProductMentioned {
			continue
		}
		mentions++
		if c.ProductPosition != nil {
			positionSum += *c.ProductPosition
			positionCount++
		}
	}

	dominance := float64(mentions) / float64(total)

	var avgProductPosition *float64
	if positionCount > 0 {
		avg := float64(positionSum) / float64(positionCount)
		avgProductPosition = &avg
	}

	// The product already owns this query.
	if dominance > strongDominance && avgProductPosition != nil && *avgProductPosition < strongPosition {
		return domain.ContentGap{}, false
	}

	dominant, competitorCitations := dominantCompetitor(group.citations)
	if dominant == "" {
		if mentions > 0 {
			// Clean win: product mentioned, no competitor ever.
			return domain.ContentGap{}, false
		}
		dominant = domain.NoCompetitor
	}

	avgCompetitorPosition := averageCompetitorPosition(dominant, group.citations)

	gapType := domain.GapCompetitorStrength
	switch {
	case mentions == 0:
		gapType = domain.GapMissingContent
	case dominance < weakDominance:
		gapType = domain.GapWeakContent
	}

	priority := float64(basePriority)
	if mentions == 0 {
		priority += neverMentionedBonus
	}
	if float64(competitorCitations) > competitorSaturation*float64(total) {
		priority += saturationBonus
	}
	if avgCompetitorPosition < competitorLeadsCutoff {
		priority += competitorLeadsBonus
	}

	return domain.ContentGap{
		Query:                  group.query,
		Priority:               domain.ClampPriority(priority),
		CompetitorDominating:   dominant,
		CompetitorPosition:     avgCompetitorPosition,
		ProductCurrentPosition: avgProductPosition,
		Status:                 domain.GapIdentified,
		GapType:                gapType,
		TargetKeywords:         domain.TargetKeywords(group.query),
	}, true
}

// dominantCompetitor tallies competitor occurrences and returns the most
// frequent one (ties resolved by first-seen order) plus the number of
// citations mentioning any competitor. Returns "" when no competitor
// appears at all.
func dominantCompetitor(citations []*domain.Citation) (string, int) {
	counts := map[string]int{}
	var order []string
	withCompetitor := 0

	for _, c := range citations {
		if len(c.CompetitorMentioned) > 0 {
			withCompetitor++
		}
		for _, name := range c.CompetitorMentioned {
			if _, seen := counts[name]; !seen {
				order = append(order, name)
			}
			counts[name]++
		}
	}

	best := ""
	bestCount := 0
	for _, name := range order {
		if counts[name] > bestCount {
			best = name
			bestCount = counts[name]
		}
	}

	return best, withCompetitor
}

// averageCompetitorPosition averages the competitor's recorded position
// over citations that list it, defaulting to unranked when a citation
// lists the competitor without a position.
func averageCompetitorPosition(competitor string, citations []*domain.Citation) float64 {
	sum := 0
	count := 0

	for _, c := range citations {
		if !contains(c.CompetitorMentioned, competitor) {
			continue
		}

		position := domain.UnrankedPosition
		for _, mention := range c.MentionedTools {
			if mention.Tool == competitor {
				position = mention.Position
				break
			}
		}

		sum += position
		count++
	}

	if count == 0 {
		return domain.UnrankedPosition
	}

	return float64(sum) / float64(count)
}

func contains(names []string, target string) bool {
	for _, name := range names {
		if name == target {
			return true
		}
	}
	return false
}
