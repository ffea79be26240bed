// Package prober issues queries against AI answer engines and records
// what they said as citation rows.
package prober

import (
	"context"
	"time"

	"github.com/citegap/citegap/internal/domain"
	"github.com/citegap/citegap/internal/logger"
	"github.com/citegap/citegap/internal/platform"
	"golang.org/x/time/rate"
)

// CitationStore is the persistence interface the prober writes through.
type CitationStore interface {
	Insert(ctx context.Context, c *domain.Citation) error
}

// Options modifies a probing batch.
type Options struct {
	// TestMode skips pacing between external calls.
	TestMode bool
	// Category tags the stored citations with a query category.
	Category string
}

// Prober runs probe batches with fixed pacing between external calls.
type Prober struct {
	store     CitationStore
	extractor *Extractor
	limiter   *rate.Limiter
	log       logger.Logger
}

// New creates a prober. delay is the pause between consecutive external
// calls across a batch; pacing is deliberate backpressure against
// rate-limited platforms.
func New(store CitationStore, extractor *Extractor, delay time.Duration, log logger.Logger) *Prober {
	return &Prober{
		store:     store,
		extractor: extractor,
		limiter:   rate.NewLimiter(rate.Every(delay), 1),
		log:       log,
	}
}

// ProbeAll probes every (query, adapter) pair and stores one citation row
// per probe. A failed probe is recorded as an error-marked citation row;
// probe failure is data, never fatal. Returns the stored citations.
func (p *Prober) ProbeAll(ctx context.Context, queries []string, adapters []platform.Adapter, opts Options) ([]domain.Citation, error) {
	limiter := p.limiter
	if opts.TestMode {
		limiter = rate.NewLimiter(rate.Inf, 0)
	}

	var citations []domain.Citation
	for _, query := range queries {
		for _, adapter := range adapters {
			if waitErr := limiter.Wait(ctx); waitErr != nil {
				return citations, waitErr
			}

			citation := p.probeOne(ctx, query, adapter)
			citation.QueryCategory = opts.Category

			if insertErr := p.store.Insert(ctx, &citation); insertErr != nil {
				p.log.Error("Failed to store citation",
					logger.String("platform", adapter.Name()),
					logger.String("query", query),
					logger.Error(insertErr),
				)
				continue
			}

			citations = append(citations, citation)
		}
	}

	return citations, nil
}

// probeOne issues a single probe and extracts mentions from the answer.
func (p *Prober) probeOne(ctx context.Context, query string, adapter platform.Adapter) domain.Citation {
	answer, askErr := adapter.Ask(ctx, query)
	if askErr != nil {
		p.log.Warn("Probe failed",
			logger.String("platform", adapter.Name()),
			logger.String("query", query),
			logger.Error(askErr),
		)

		return domain.Citation{
			Platform:            adapter.Name(),
			Query:               query,
			MentionedTools:      []domain.ToolMention{},
			CompetitorMentioned: []string{},
			ProbeError:          askErr.Error(),
		}
	}

	citation := p.extractor.Extract(answer)
	citation.Platform = adapter.Name()
	citation.Query = query

	p.log.Debug("Probe completed",
		logger.String("platform", adapter.Name()),
		logger.String("query", query),
		logger.Bool("product_mentioned", citation.ProductMentioned),
		logger.Int("mentions", len(citation.MentionedTools)),
	)

	return citation
}
