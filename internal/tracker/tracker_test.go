package tracker_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/citegap/citegap/internal/database"
	"github.com/citegap/citegap/internal/domain"
	"github.com/citegap/citegap/internal/logger"
	"github.com/citegap/citegap/internal/tracker"
)

type mentionCall struct {
	from, to time.Time
}

type mockCitationStats struct {
	windows []database.MentionWindow
	calls   []mentionCall
	err     error
}

func (m *mockCitationStats) MentionRate(_ context.Context, _ string, from, to time.Time) (database.MentionWindow, error) {
	m.calls = append(m.calls, mentionCall{from: from, to: to})
	if m.err != nil {
		return database.MentionWindow{}, m.err
	}
	window := m.windows[0]
	if len(m.windows) > 1 {
		m.windows = m.windows[1:]
	}
	return window, nil
}

type mockContentStore struct {
	candidates   []database.PerformanceCandidate
	listErr      error
	improvements map[int64]float64
}

func (m *mockContentStore) ListForPerformanceCheck(_ context.Context, _, _ time.Time) ([]database.PerformanceCandidate, error) {
	return m.candidates, m.listErr
}

func (m *mockContentStore) SetImprovement(_ context.Context, id int64, improvement float64) error {
	if m.improvements == nil {
		m.improvements = map[int64]float64{}
	}
	m.improvements[id] = improvement
	return nil
}

func candidate(id int64, query string, publishedAt time.Time) database.PerformanceCandidate {
	return database.PerformanceCandidate{
		Content: domain.GeneratedContent{
			ID:          id,
			PublishedAt: &publishedAt,
		},
		GapQuery: query,
	}
}

func TestTracker_Track_ComputesImprovement(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	publishedAt := now.Add(-10 * time.Hour)

	// Before: 1 of 10 mentioned (10%). After: 3 of 10 (30%).
	// Improvement = (0.3 - 0.1) / 0.1 * 100 = 200%.
	stats := &mockCitationStats{windows: []database.MentionWindow{
		{Total: 10, Mentioned: 1},
		{Total: 10, Mentioned: 3},
	}}
	content := &mockContentStore{candidates: []database.PerformanceCandidate{
		candidate(7, "best error tracker", publishedAt),
	}}

	result, trackErr := tracker.New(stats, content, logger.NewNop()).Track(context.Background(), now)
	if trackErr != nil {
		t.Fatalf("Track() error = %v", trackErr)
	}

	if result.Checked != 1 || result.Updated != 1 || result.Skipped != 0 {
		t.Errorf("result = %+v, want checked 1, updated 1, skipped 0", result)
	}

	got := content.improvements[7]
	if math.Abs(got-200) > 1e-9 {
		t.Errorf("improvement = %v, want 200", got)
	}

	// The comparison windows are centered on the publish time.
	if len(stats.calls) != 2 {
		t.Fatalf("mention rate calls = %d, want 2", len(stats.calls))
	}
	if !stats.calls[0].to.Equal(publishedAt) || !stats.calls[0].from.Equal(publishedAt.Add(-tracker.Window)) {
		t.Errorf("before window = [%v, %v]", stats.calls[0].from, stats.calls[0].to)
	}
	if !stats.calls[1].from.Equal(publishedAt) || !stats.calls[1].to.Equal(publishedAt.Add(tracker.Window)) {
		t.Errorf("after window = [%v, %v]", stats.calls[1].from, stats.calls[1].to)
	}
}

func TestTracker_Track_SkipsEmptyWindows(t *testing.T) {
	now := time.Now().UTC()

	stats := &mockCitationStats{windows: []database.MentionWindow{
		{Total: 0, Mentioned: 0},
		{Total: 5, Mentioned: 2},
	}}
	content := &mockContentStore{candidates: []database.PerformanceCandidate{
		candidate(1, "q", now.Add(-time.Hour)),
	}}

	result, trackErr := tracker.New(stats, content, logger.NewNop()).Track(context.Background(), now)
	if trackErr != nil {
		t.Fatalf("Track() error = %v", trackErr)
	}

	if result.Skipped != 1 || result.Updated != 0 {
		t.Errorf("result = %+v, want skipped 1, updated 0", result)
	}
	if len(content.improvements) != 0 {
		t.Errorf("improvements stored = %v, want none", content.improvements)
	}
}

func TestTracker_Track_ListError(t *testing.T) {
	content := &mockContentStore{listErr: errors.New("db down")}

	_, trackErr := tracker.New(&mockCitationStats{}, content, logger.NewNop()).Track(context.Background(), time.Now().UTC())
	if trackErr == nil {
		t.Error("Track() error = nil, want error")
	}
}

func TestImprovement_ZeroBaseRateFloored(t *testing.T) {
	// Base floored to 0.01: (0.5 - 0) / 0.01 * 100 = 5000%.
	got := tracker.Improvement(0, 0.5)
	if math.Abs(got-5000) > 1e-9 {
		t.Errorf("Improvement(0, 0.5) = %v, want 5000", got)
	}
}

func TestImprovement_Negative(t *testing.T) {
	// Rate halved: (0.2 - 0.4) / 0.4 * 100 = -50%.
	got := tracker.Improvement(0.4, 0.2)
	if math.Abs(got+50) > 1e-9 {
		t.Errorf("Improvement(0.4, 0.2) = %v, want -50", got)
	}
}
