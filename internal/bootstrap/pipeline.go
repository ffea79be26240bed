package bootstrap

import (
	"net/http"
	"time"

	"github.com/citegap/citegap/internal/aggregator"
	"github.com/citegap/citegap/internal/analyzer"
	"github.com/citegap/citegap/internal/config"
	"github.com/citegap/citegap/internal/crosspost"
	"github.com/citegap/citegap/internal/database"
	"github.com/citegap/citegap/internal/generator"
	"github.com/citegap/citegap/internal/logger"
	"github.com/citegap/citegap/internal/orchestrator"
	"github.com/citegap/citegap/internal/platform"
	"github.com/citegap/citegap/internal/prober"
	"github.com/citegap/citegap/internal/tracker"
)

// outboundTimeout bounds publish and crosspost HTTP calls.
const outboundTimeout = 30 * time.Second

// Pipeline holds the wired pipeline components the server and scheduler
// share.
type Pipeline struct {
	Orchestrator *orchestrator.Orchestrator
	Prober       *prober.Prober
	Adapters     []platform.Adapter
	Analyzer     *analyzer.Analyzer
	Generator    *generator.Generator
	Gaps         *database.GapRepository
	Content      *database.ContentRepository
}

// BuildPipeline wires repositories, platform adapters, and pipeline
// stages into a ready orchestrator.
func BuildPipeline(cfg *config.Config, db *database.Connection, log logger.Logger) *Pipeline {
	citations := database.NewCitationRepository(db.DB)
	metrics := database.NewMetricsRepository(db.DB)
	gaps := database.NewGapRepository(db.DB)
	content := database.NewContentRepository(db.DB)
	jobs := database.NewJobLogRepository(db.DB)
	settings := database.NewSettingsRepository(db.DB)
	queries := database.NewQueryRepository(db.DB)

	adapters := platform.NewRegistry(&cfg.Platforms, cfg.Probing.Timeout)

	extractor := prober.NewExtractor(cfg.Product.Name, cfg.Product.Aliases, cfg.Product.Competitors)
	probe := prober.New(citations, extractor, cfg.Probing.Delay, log)

	aggregate := aggregator.New(citations, metrics, log)
	analyze := analyzer.New(citations, log)

	outboundClient := &http.Client{Timeout: outboundTimeout}

	var publisher generator.SitePublisher
	if cfg.Generate.PublishURL != "" {
		publisher = generator.NewHTTPPublisher(cfg.Generate.PublishURL, cfg.Generate.PublishToken, outboundClient)
	}

	writer := generator.NewAIWriter(writerAdapter(adapters))
	generate := generator.New(
		writer,
		publisher,
		gaps,
		content,
		settings,
		outboundClient,
		cfg.Generate.CompetitorExcerptMax,
		log,
	)

	channels := []crosspost.Channel{
		crosspost.NewDevTo(cfg.Crosspost.DevTo.APIKey, outboundClient),
		crosspost.NewHashnode(cfg.Crosspost.Hashnode.Token, cfg.Crosspost.Hashnode.PublicationID, outboundClient),
	}
	dispatch := crosspost.New(content, channels, cfg.Crosspost.BatchSize, cfg.Crosspost.Delay, log)

	track := tracker.New(citations, content, log)

	orch := orchestrator.New(
		orchestrator.Config{
			WindowDays:      cfg.Analysis.WindowDays,
			MinPriority:     cfg.Analysis.MinPriority,
			DailyMax:        cfg.Generate.DailyMax,
			GenerationDelay: cfg.Generate.Delay,
			FallbackQueries: cfg.Probing.Queries,
		},
		gaps,
		content,
		queries,
		settings,
		adapters,
		probe,
		aggregate,
		analyze,
		generate,
		dispatch,
		track,
		jobs,
		log,
	)

	return &Pipeline{
		Orchestrator: orch,
		Prober:       probe,
		Adapters:     adapters,
		Analyzer:     analyze,
		Generator:    generate,
		Gaps:         gaps,
		Content:      content,
	}
}

// writerAdapter picks the adapter used for article generation. Anthropic
// produces the best long-form drafts, so it wins when configured.
func writerAdapter(adapters []platform.Adapter) platform.Adapter {
	for _, adapter := range adapters {
		if adapter.Name() == "anthropic" {
			return adapter
		}
	}

	if len(adapters) > 0 {
		return adapters[0]
	}

	return nil
}
