// Package aggregator rolls a day's citations up into share-of-voice
// statistics.
package aggregator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/citegap/citegap/internal/domain"
	"github.com/citegap/citegap/internal/logger"
)

// maxListedQueries bounds the top/losing query lists in a rollup.
const maxListedQueries = 10

// CitationReader reads a day's citation rows.
type CitationReader interface {
	ListForDate(ctx context.Context, date time.Time) ([]domain.Citation, error)
}

// MetricsWriter upserts daily rollups.
type MetricsWriter interface {
	UpsertDaily(ctx context.Context, m *domain.DailyMetrics) error
}

// Aggregator recomputes daily metrics from raw citations. The rollup is
// always a full recompute from that date's rows, never incremental, so
// rerunning it is idempotent.
type Aggregator struct {
	citations CitationReader
	metrics   MetricsWriter
	log       logger.Logger
}

// New creates an aggregator.
func New(citations CitationReader, metrics MetricsWriter, log logger.Logger) *Aggregator {
	return &Aggregator{citations: citations, metrics: metrics, log: log}
}

// RefreshDaily recomputes and upserts the rollup for a date.
func (a *Aggregator) RefreshDaily(ctx context.Context, date time.Time) (*domain.DailyMetrics, error) {
	citations, listErr := a.citations.ListForDate(ctx, date)
	if listErr != nil {
		return nil, fmt.Errorf("list citations: %w", listErr)
	}

	rollup := compute(date, citations)

	if upsertErr := a.metrics.UpsertDaily(ctx, rollup); upsertErr != nil {
		return nil, fmt.Errorf("upsert daily metrics: %w", upsertErr)
	}

	a.log.Info("Daily metrics refreshed",
		logger.Time("date", rollup.Date),
		logger.Int("citations", rollup.TotalQueriesTested),
		logger.Float64("share_of_voice", rollup.ShareOfVoice),
	)

	return rollup, nil
}

// queryTally accumulates per-query mention counts for the top/losing lists.
type queryTally struct {
	query      string
	total      int
	mentioned  int
	competitor bool
}

func compute(date time.Time, citations []domain.Citation) *domain.DailyMetrics {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	rollup := &domain.DailyMetrics{
		Date:                 day,
		PlatformShareOfVoice: map[string]float64{},
		TopQueries:           []string{},
		LosingQueries:        []string{},
		CompetitorMentions:   map[string]int{},
	}

	platformTotals := map[string]int{}
	platformMentions := map[string]int{}
	byQuery := map[string]*queryTally{}
	queryOrder := []string{}

	positionSum := 0
	positionCount := 0

	for i := range citations {
		c := &citations[i]
		rollup.TotalQueriesTested++
		platformTotals[c.Platform]++

		if c.ProductMentioned {
			rollup.ProductMentionedCount++
			platformMentions[c.Platform]++

			if c.ProductPosition != nil {
				positionSum += *c.ProductPosition
				positionCount++

				switch *c.ProductPosition {
				case 1:
					rollup.Position1Count++
				case 2:
					rollup.Position2Count++
				case 3:
					rollup.Position3Count++
				}
			}
		}

		for _, competitor := range c.CompetitorMentioned {
			rollup.CompetitorMentions[competitor]++
		}

		tally, ok := byQuery[c.Query]
		if !ok {
			tally = &queryTally{query: c.Query}
			byQuery[c.Query] = tally
			queryOrder = append(queryOrder, c.Query)
		}
		tally.total++
		if c.ProductMentioned {
			tally.mentioned++
		}
		if len(c.CompetitorMentioned) > 0 {
			tally.competitor = true
		}
	}

	if rollup.TotalQueriesTested > 0 {
		rollup.ShareOfVoice = float64(rollup.ProductMentionedCount) / float64(rollup.TotalQueriesTested)
	}

	if positionCount > 0 {
		avg := float64(positionSum) / float64(positionCount)
		rollup.AvgPosition = &avg
	}

	for platform, total := range platformTotals {
		rollup.PlatformShareOfVoice[platform] = float64(platformMentions[platform]) / float64(total)
	}

	rollup.TopQueries, rollup.LosingQueries = rankQueries(byQuery, queryOrder)

	return rollup
}

// rankQueries splits queries into winners (mentioned at least once, best
// mention rate first) and losers (never mentioned while a competitor was).
func rankQueries(byQuery map[string]*queryTally, order []string) ([]string, []string) {
	var winners []*queryTally
	losing := []string{}

	for _, query := range order {
		tally := byQuery[query]
		if tally.mentioned > 0 {
			winners = append(winners, tally)
			continue
		}
		if tally.competitor && len(losing) < maxListedQueries {
			losing = append(losing, query)
		}
	}

	sort.SliceStable(winners, func(i, j int) bool {
		ri := float64(winners[i].mentioned) / float64(winners[i].total)
		rj := float64(winners[j].mentioned) / float64(winners[j].total)
		return ri > rj
	})

	top := []string{}
	for _, tally := range winners {
		if len(top) >= maxListedQueries {
			break
		}
		top = append(top, tally.query)
	}

	return top, losing
}
