// Package domain contains the core domain models for the citegap
// content-operations pipeline.
package domain

import (
	"strings"
	"time"
)

// GapStatus represents the lifecycle state of a content gap.
type GapStatus string

const (
	// GapIdentified marks a gap eligible for content generation.
	GapIdentified GapStatus = "identified"
	// GapGenerating marks a gap claimed by an in-flight generation.
	GapGenerating GapStatus = "generating"
	// GapPublished marks a gap closed by a published article.
	GapPublished GapStatus = "published"
	// GapArchived marks a gap excluded from analysis and generation.
	GapArchived GapStatus = "archived"
)

// validGapStatuses maps every recognised GapStatus value to true for O(1) lookup.
var validGapStatuses = map[GapStatus]bool{
	GapIdentified: true,
	GapGenerating: true,
	GapPublished:  true,
	GapArchived:   true,
}

// IsValid reports whether s is a recognised gap status.
func (s GapStatus) IsValid() bool {
	return validGapStatuses[s]
}

// GapType classifies why a query is considered a content gap.
type GapType string

const (
	// GapMissingContent means the product is never mentioned for the query.
	GapMissingContent GapType = "missing-content"
	// GapWeakContent means the product is mentioned in under 30% of answers.
	GapWeakContent GapType = "weak-content"
	// GapCompetitorStrength means the product shows up but a competitor leads.
	GapCompetitorStrength GapType = "competitor-strength"
)

// JobStatus represents the state of a pipeline run.
type JobStatus string

const (
	// JobRunning marks a run in progress.
	JobRunning JobStatus = "running"
	// JobCompleted marks a run that finished, possibly with step-level errors.
	JobCompleted JobStatus = "completed"
	// JobFailed marks a run aborted by an unexpected error.
	JobFailed JobStatus = "failed"
)

// NoCompetitor is the sentinel dominant-competitor value when neither the
// product nor any tracked competitor appears for a query.
const NoCompetitor = "none"

// UnrankedPosition is the position assigned to a competitor listed in a
// citation without a recorded position, effectively unranked.
const UnrankedPosition = 999

// ToolMention is one tracked name found in an AI answer.
type ToolMention struct {
	Tool string `json:"tool"`
	// Position is the ordinal of distinct tracked names in scan order over
	// the tracked-name list, not the textual offset of the match.
	Position int    `json:"position"`
	Context  string `json:"context"`
}

// Citation records what one AI platform said in response to one query.
// Rows are immutable once written.
type Citation struct {
	ID                  int64         `json:"id"`
	Platform            string        `json:"platform"`
	Query               string        `json:"query"`
	MentionedTools      []ToolMention `json:"mentioned_tools"`
	ProductMentioned    bool          `json:"product_mentioned"`
	ProductPosition     *int          `json:"product_position,omitempty"`
	ProductContext      *string       `json:"product_context,omitempty"`
	CompetitorMentioned []string      `json:"competitor_mentioned"`
	FullResponse        string        `json:"full_response"`
	ResponseLength      int           `json:"response_length"`
	QueryCategory       string        `json:"query_category"`
	ProbeError          string        `json:"probe_error,omitempty"`
	CreatedAt           time.Time     `json:"created_at"`
}

// DailyMetrics is the share-of-voice rollup for one date. It is derived
// from that date's citations and safe to recompute at any time.
type DailyMetrics struct {
	Date                  time.Time          `json:"date"`
	TotalQueriesTested    int                `json:"total_queries_tested"`
	ProductMentionedCount int                `json:"product_mentioned_count"`
	ShareOfVoice          float64            `json:"share_of_voice"`
	AvgPosition           *float64           `json:"avg_position,omitempty"`
	Position1Count        int                `json:"position_1_count"`
	Position2Count        int                `json:"position_2_count"`
	Position3Count        int                `json:"position_3_count"`
	PlatformShareOfVoice  map[string]float64 `json:"platform_share_of_voice"`
	TopQueries            []string           `json:"top_queries"`
	LosingQueries         []string           `json:"losing_queries"`
	CompetitorMentions    map[string]int     `json:"competitor_mentions"`
}

// ContentGap is a tracked query where the product is under-represented.
// There is one logical row per distinct query among non-archived gaps.
type ContentGap struct {
	ID                     int64      `json:"id"`
	Query                  string     `json:"query"`
	Priority               float64    `json:"priority"`
	CompetitorDominating   string     `json:"competitor_dominating"`
	CompetitorPosition     float64    `json:"competitor_position"`
	ProductCurrentPosition *float64   `json:"product_current_position,omitempty"`
	Status                 GapStatus  `json:"status"`
	GapType                GapType    `json:"gap_type"`
	TargetKeywords         []string   `json:"target_keywords"`
	GenerationStartedAt    *time.Time `json:"generation_started_at,omitempty"`
	PublishedAt            *time.Time `json:"published_at,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// GeneratedContent is a draft or published article produced for a gap.
type GeneratedContent struct {
	ID                     int64      `json:"id"`
	GapID                  *int64     `json:"gap_id,omitempty"`
	Title                  string     `json:"title"`
	Slug                   string     `json:"slug"`
	Body                   string     `json:"body"`
	MetaDescription        string     `json:"meta_description"`
	Keywords               []string   `json:"keywords"`
	CompetitorSourceURL    string     `json:"competitor_source_url,omitempty"`
	Published              bool       `json:"published"`
	PublishedAt            *time.Time `json:"published_at,omitempty"`
	PublishedURL           string     `json:"published_url,omitempty"`
	DevToURL               *string    `json:"devto_url,omitempty"`
	HashnodeURL            *string    `json:"hashnode_url,omitempty"`
	CitationImprovement48h *float64   `json:"citation_improvement_48h,omitempty"`
	LastPerformanceCheck   *time.Time `json:"last_performance_check,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
}

// JobLog is the audit record of one pipeline run.
type JobLog struct {
	ID          string     `json:"id"`
	JobType     string     `json:"job_type"`
	Status      JobStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Summary     []string   `json:"summary"`
	Errors      []string   `json:"errors"`
}

// TrackedQuery is one entry in the stored active query set.
type TrackedQuery struct {
	ID       int64  `json:"id"`
	Query    string `json:"query"`
	Category string `json:"category"`
	Active   bool   `json:"active"`
}

// Priority bounds for content gaps.
const (
	MinPriority = 0
	MaxPriority = 10
)

// ClampPriority bounds a priority score to [MinPriority, MaxPriority].
func ClampPriority(p float64) float64 {
	if p < MinPriority {
		return MinPriority
	}
	if p > MaxPriority {
		return MaxPriority
	}
	return p
}

// keywordStopwords are interrogatives and generic terms dropped from
// derived target keywords.
var keywordStopwords = map[string]bool{
	"what":  true,
	"how":   true,
	"why":   true,
	"when":  true,
	"where": true,
	"best":  true,
	"tool":  true,
	"tools": true,
}

// minKeywordLen is the shortest word kept as a target keyword.
const minKeywordLen = 4

// TargetKeywords derives content keywords from a query: lowercase,
// whitespace split, short words and stopwords dropped.
func TargetKeywords(query string) []string {
	words := strings.Fields(strings.ToLower(query))
	keywords := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) < minKeywordLen || keywordStopwords[w] {
			continue
		}
		keywords = append(keywords, w)
	}
	return keywords
}

// maxSlugLen bounds generated URL slugs.
const maxSlugLen = 80

// Slugify derives a URL slug from a title: lowercase, stripped to
// [a-z0-9 -], whitespace collapsed to single hyphens, length bounded.
func Slugify(title string) string {
	lower := strings.ToLower(title)

	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '\t', r == '\n', r == '-':
			b.WriteByte(' ')
		}
	}

	slug := strings.Join(strings.Fields(b.String()), "-")
	if len(slug) > maxSlugLen {
		slug = slug[:maxSlugLen]
		slug = strings.TrimRight(slug, "-")
	}
	return slug
}
