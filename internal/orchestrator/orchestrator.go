// Package orchestrator sequences one scheduled pipeline run: recovery,
// probing, analysis, quota-gated generation, crossposting, and
// performance tracking, with one job log row per run.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/citegap/citegap/internal/crosspost"
	"github.com/citegap/citegap/internal/database"
	"github.com/citegap/citegap/internal/domain"
	"github.com/citegap/citegap/internal/generator"
	"github.com/citegap/citegap/internal/logger"
	"github.com/citegap/citegap/internal/monitoring"
	"github.com/citegap/citegap/internal/platform"
	"github.com/citegap/citegap/internal/prober"
	"github.com/citegap/citegap/internal/tracker"
	"golang.org/x/time/rate"
)

// JobTypePipeline is the job_type recorded for scheduled runs.
const JobTypePipeline = "pipeline"

// GapBacklog is the gap repository surface the orchestrator drives.
type GapBacklog interface {
	ResetGenerating(ctx context.Context) (int64, error)
	UpsertBatch(ctx context.Context, gaps []domain.ContentGap) (int, []error)
	FetchEligible(ctx context.Context, minPriority float64, limit int) ([]domain.ContentGap, error)
}

// ContentCounter enforces the daily publish quota.
type ContentCounter interface {
	CountPublishedSince(ctx context.Context, since time.Time) (int, error)
}

// QuerySource provides the stored active query set.
type QuerySource interface {
	ListActive(ctx context.Context) ([]domain.TrackedQuery, error)
}

// SettingsReader reads global switches fresh from the datastore.
type SettingsReader interface {
	GetBool(ctx context.Context, key string) (bool, error)
}

// Prober runs a probing batch.
type Prober interface {
	ProbeAll(ctx context.Context, queries []string, adapters []platform.Adapter, opts prober.Options) ([]domain.Citation, error)
}

// MetricsRefresher recomputes a day's rollup.
type MetricsRefresher interface {
	RefreshDaily(ctx context.Context, date time.Time) (*domain.DailyMetrics, error)
}

// GapAnalyzer scans the citation window for gaps.
type GapAnalyzer interface {
	Analyze(ctx context.Context, windowDays int) ([]domain.ContentGap, error)
}

// ContentGenerator produces one article for a gap.
type ContentGenerator interface {
	Generate(ctx context.Context, req generator.Request) (*generator.Result, error)
}

// CrosspostDispatcher sweeps the crosspost backlog.
type CrosspostDispatcher interface {
	Sweep(ctx context.Context) []crosspost.ChannelResult
}

// PerformanceTracker fills improvement metrics.
type PerformanceTracker interface {
	Track(ctx context.Context, now time.Time) (tracker.Result, error)
}

// RunLogger persists the run audit record.
type RunLogger interface {
	Insert(ctx context.Context, log *domain.JobLog) error
}

// Config tunes one orchestrator.
type Config struct {
	// WindowDays is the analyzer's trailing window.
	WindowDays int
	// MinPriority is the generation eligibility threshold.
	MinPriority float64
	// DailyMax caps articles published per UTC day.
	DailyMax int
	// GenerationDelay paces consecutive generations.
	GenerationDelay time.Duration
	// FallbackQueries are probed when no stored queries are active.
	FallbackQueries []string
}

// Report is the structured run summary returned to the trigger caller.
type Report struct {
	Success    bool     `json:"success"`
	DurationMS int64    `json:"duration_ms"`
	Log        []string `json:"log"`
	Error      string   `json:"error,omitempty"`
}

// Orchestrator runs the pipeline as a single linear sequence of
// independently-failable steps. External calls within a step are paced,
// never fanned out.
type Orchestrator struct {
	cfg       Config
	gaps      GapBacklog
	content   ContentCounter
	queries   QuerySource
	settings  SettingsReader
	adapters  []platform.Adapter
	prober    Prober
	metrics   MetricsRefresher
	analyzer  GapAnalyzer
	generator ContentGenerator
	crosspost CrosspostDispatcher
	tracker   PerformanceTracker
	jobs      RunLogger
	log       logger.Logger
}

// New creates an orchestrator.
func New(
	cfg Config,
	gaps GapBacklog,
	content ContentCounter,
	queries QuerySource,
	settings SettingsReader,
	adapters []platform.Adapter,
	probe Prober,
	metrics MetricsRefresher,
	analyze GapAnalyzer,
	generate ContentGenerator,
	dispatch CrosspostDispatcher,
	track PerformanceTracker,
	jobs RunLogger,
	log logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		gaps:      gaps,
		content:   content,
		queries:   queries,
		settings:  settings,
		adapters:  adapters,
		prober:    probe,
		metrics:   metrics,
		analyzer:  analyze,
		generator: generate,
		crosspost: dispatch,
		tracker:   track,
		jobs:      jobs,
		log:       log,
	}
}

// run accumulates the step log and errors for one pipeline run.
type run struct {
	startedAt time.Time
	steps     []string
	errors    []string
}

func (r *run) step(format string, args ...any) {
	r.steps = append(r.steps, fmt.Sprintf(format, args...))
}

func (r *run) fail(format string, args ...any) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

// Run executes one pipeline run. Step failures are logged and the run
// continues; only a failed recovery sweep or an escaped panic marks the
// run failed. One job log row is always written, best-effort.
func (o *Orchestrator) Run(ctx context.Context) (report *Report, err error) {
	state := &run{startedAt: time.Now().UTC()}

	defer func() {
		if recovered := recover(); recovered != nil {
			state.fail("panic: %v", recovered)
			report = o.finish(ctx, state, domain.JobFailed)
			err = fmt.Errorf("pipeline run panicked: %v", recovered)
		}
	}()

	// Step 1: crash-recovery sweep. Every generating gap goes back to
	// identified, unconditionally. Without this the state machine is not
	// trustworthy, so a sweep failure aborts the run.
	reset, sweepErr := o.gaps.ResetGenerating(ctx)
	if sweepErr != nil {
		state.fail("recovery sweep: %v", sweepErr)
		return o.finish(ctx, state, domain.JobFailed), fmt.Errorf("recovery sweep: %w", sweepErr)
	}
	state.step("recovery: reset %d generating gaps", reset)

	// Step 2: read global switches and adapter availability.
	autoPublish, settingErr := o.settings.GetBool(ctx, database.SettingAutoPublish)
	if settingErr != nil {
		state.fail("read auto-publish flag: %v", settingErr)
		autoPublish = false
	}
	state.step("auto-publish %s, %d platform adapters available", onOff(autoPublish), len(o.adapters))

	// Step 3: probe and refresh daily metrics. Skipped when no adapter
	// has credentials.
	o.probeStep(ctx, state)

	// Step 4: gap analysis and backlog upsert.
	o.analyzeStep(ctx, state)

	// Step 5: quota-gated generation.
	o.generateStep(ctx, state)

	// Step 6: crosspost backlog sweep.
	o.crosspostStep(ctx, state)

	// Step 7: performance tracking.
	o.trackStep(ctx, state)

	return o.finish(ctx, state, domain.JobCompleted), nil
}

func (o *Orchestrator) probeStep(ctx context.Context, state *run) {
	if len(o.adapters) == 0 {
		state.step("probing skipped: no adapter credentials")
		return
	}

	queries, queryErr := o.activeQueries(ctx)
	if queryErr != nil {
		state.fail("load tracked queries: %v", queryErr)
		return
	}
	if len(queries) == 0 {
		state.step("probing skipped: no queries to test")
		return
	}

	citations, probeErr := o.prober.ProbeAll(ctx, queries, o.adapters, prober.Options{})
	if probeErr != nil {
		state.fail("probing: %v", probeErr)
	}

	failed := 0
	for i := range citations {
		outcome := "ok"
		if citations[i].ProbeError != "" {
			outcome = "error"
			failed++
		}
		monitoring.ProbesTotal.WithLabelValues(citations[i].Platform, outcome).Inc()
	}
	state.step("probed %d queries across %d platforms: %d citations, %d probe errors",
		len(queries), len(o.adapters), len(citations), failed)

	if _, refreshErr := o.metrics.RefreshDaily(ctx, time.Now().UTC()); refreshErr != nil {
		state.fail("refresh daily metrics: %v", refreshErr)
		return
	}
	state.step("daily metrics refreshed")
}

func (o *Orchestrator) activeQueries(ctx context.Context) ([]string, error) {
	tracked, listErr := o.queries.ListActive(ctx)
	if listErr != nil {
		return nil, listErr
	}

	if len(tracked) == 0 {
		return o.cfg.FallbackQueries, nil
	}

	queries := make([]string, 0, len(tracked))
	for _, q := range tracked {
		queries = append(queries, q.Query)
	}
	return queries, nil
}

func (o *Orchestrator) analyzeStep(ctx context.Context, state *run) {
	gaps, analyzeErr := o.analyzer.Analyze(ctx, o.cfg.WindowDays)
	if analyzeErr != nil {
		state.fail("gap analysis: %v", analyzeErr)
		return
	}

	upserted, upsertErrs := o.gaps.UpsertBatch(ctx, gaps)
	for _, upsertErr := range upsertErrs {
		state.fail("gap upsert: %v", upsertErr)
	}
	monitoring.GapsUpserted.Add(float64(upserted))
	state.step("analysis: %d gaps found, %d upserted, %d failed", len(gaps), upserted, len(upsertErrs))
}

func (o *Orchestrator) generateStep(ctx context.Context, state *run) {
	dayStart := dayStartUTC(time.Now().UTC())
	publishedToday, countErr := o.content.CountPublishedSince(ctx, dayStart)
	if countErr != nil {
		state.fail("count published today: %v", countErr)
		return
	}

	remaining := o.cfg.DailyMax - publishedToday
	if remaining <= 0 {
		state.step("generation skipped: daily quota reached (%d published)", publishedToday)
		return
	}

	limit := remaining
	if limit > o.cfg.DailyMax {
		limit = o.cfg.DailyMax
	}

	eligible, fetchErr := o.gaps.FetchEligible(ctx, o.cfg.MinPriority, limit)
	if fetchErr != nil {
		state.fail("fetch eligible gaps: %v", fetchErr)
		return
	}
	if len(eligible) == 0 {
		state.step("generation: no eligible gaps")
		return
	}

	limiter := rate.NewLimiter(rate.Every(o.cfg.GenerationDelay), 1)
	generated := 0
	for i := range eligible {
		gap := &eligible[i]

		if waitErr := limiter.Wait(ctx); waitErr != nil {
			state.fail("generation pacing interrupted: %v", waitErr)
			break
		}

		result, genErr := o.generator.Generate(ctx, generator.Request{
			Query:       gap.Query,
			Keywords:    gap.TargetKeywords,
			GapID:       &gap.ID,
			AutoPublish: true,
		})
		if genErr != nil {
			monitoring.ArticlesGenerated.WithLabelValues("error").Inc()
			state.fail("generate %q: %v", gap.Query, genErr)
			continue
		}

		generated++
		if result.Published {
			monitoring.ArticlesGenerated.WithLabelValues("published").Inc()
		} else {
			monitoring.ArticlesGenerated.WithLabelValues("draft").Inc()
		}
		if result.PublishErr != nil {
			state.fail("publish %q: %v", gap.Query, result.PublishErr)
		}
	}

	state.step("generation: %d of %d eligible gaps generated (quota remaining %d)",
		generated, len(eligible), remaining)
}

func (o *Orchestrator) crosspostStep(ctx context.Context, state *run) {
	results := o.crosspost.Sweep(ctx)
	if len(results) == 0 {
		state.step("crosspost skipped: no channel credentials")
		return
	}

	for _, result := range results {
		monitoring.CrosspostsTotal.WithLabelValues(result.Channel).Add(float64(result.Pushed))
		state.step("crosspost %s: %d pushed, %d errors", result.Channel, result.Pushed, len(result.Errors))
		for _, pushErr := range result.Errors {
			state.fail("crosspost %s: %s", result.Channel, pushErr)
		}
	}
}

func (o *Orchestrator) trackStep(ctx context.Context, state *run) {
	result, trackErr := o.tracker.Track(ctx, time.Now().UTC())
	if trackErr != nil {
		state.fail("performance tracking: %v", trackErr)
		return
	}

	state.step("performance: %d checked, %d updated, %d skipped",
		result.Checked, result.Updated, result.Skipped)
}

// finish writes the job log row, best-effort, and builds the report.
func (o *Orchestrator) finish(ctx context.Context, state *run, status domain.JobStatus) *Report {
	completedAt := time.Now().UTC()
	duration := completedAt.Sub(state.startedAt)

	jobLog := &domain.JobLog{
		JobType:     JobTypePipeline,
		Status:      status,
		StartedAt:   state.startedAt,
		CompletedAt: &completedAt,
		Summary:     state.steps,
		Errors:      state.errors,
	}

	if insertErr := o.jobs.Insert(ctx, jobLog); insertErr != nil {
		o.log.Error("Failed to write job log", logger.Error(insertErr))
	}

	monitoring.RunsTotal.WithLabelValues(string(status)).Inc()
	monitoring.RunDuration.Observe(duration.Seconds())

	report := &Report{
		Success:    status == domain.JobCompleted,
		DurationMS: duration.Milliseconds(),
		Log:        state.steps,
	}
	if len(state.errors) > 0 {
		report.Error = state.errors[len(state.errors)-1]
	}

	o.log.Info("Pipeline run finished",
		logger.String("status", string(status)),
		logger.Duration("duration", duration),
		logger.Int("steps", len(state.steps)),
		logger.Int("errors", len(state.errors)),
	)

	return report
}

// dayStartUTC truncates a time to the start of its UTC day.
func dayStartUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func onOff(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
