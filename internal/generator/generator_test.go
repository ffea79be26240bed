package generator_test

import (
	"context"
	"errors"
	"testing"

	"github.com/citegap/citegap/internal/domain"
	"github.com/citegap/citegap/internal/generator"
	"github.com/citegap/citegap/internal/logger"
)

type mockWriter struct {
	draft *generator.Draft
	err   error
}

func (m *mockWriter) Write(_ context.Context, _ generator.WriteRequest) (*generator.Draft, error) {
	return m.draft, m.err
}

type mockPublisher struct {
	url string
	err error
}

func (m *mockPublisher) Publish(_ context.Context, _ *domain.GeneratedContent) (string, error) {
	return m.url, m.err
}

type mockGapStore struct {
	generating []int64
	published  []int64
	identified []int64
}

func (m *mockGapStore) MarkGenerating(_ context.Context, id int64) error {
	m.generating = append(m.generating, id)
	return nil
}

func (m *mockGapStore) MarkPublished(_ context.Context, id int64) error {
	m.published = append(m.published, id)
	return nil
}

func (m *mockGapStore) MarkIdentified(_ context.Context, id int64) error {
	m.identified = append(m.identified, id)
	return nil
}

type mockContentStore struct {
	inserted     []*domain.GeneratedContent
	insertErrs   []error
	publishedIDs []int64
}

func (m *mockContentStore) Insert(_ context.Context, c *domain.GeneratedContent) error {
	if len(m.insertErrs) > 0 {
		err := m.insertErrs[0]
		m.insertErrs = m.insertErrs[1:]
		if err != nil {
			return err
		}
	}
	c.ID = int64(len(m.inserted) + 1)
	m.inserted = append(m.inserted, c)
	return nil
}

func (m *mockContentStore) MarkPublished(_ context.Context, id int64, _ string) error {
	m.publishedIDs = append(m.publishedIDs, id)
	return nil
}

type mockSettings struct {
	autoPublish bool
	err         error
}

func (m *mockSettings) GetBool(_ context.Context, _ string) (bool, error) {
	return m.autoPublish, m.err
}

func draft() *generator.Draft {
	return &generator.Draft{
		Title:           "Closing the Gap",
		Body:            "article body",
		MetaDescription: "meta",
	}
}

func newGenerator(writer generator.Writer, publisher generator.SitePublisher,
	gaps *mockGapStore, content *mockContentStore, settings *mockSettings) *generator.Generator {
	return generator.New(writer, publisher, gaps, content, settings, nil, 2000, logger.NewNop())
}

func TestGenerator_Generate_PublishesWhenAllowed(t *testing.T) {
	gaps := &mockGapStore{}
	content := &mockContentStore{}
	gapID := int64(3)

	g := newGenerator(
		&mockWriter{draft: draft()},
		&mockPublisher{url: "https://example.com/closing-the-gap"},
		gaps, content,
		&mockSettings{autoPublish: true},
	)

	result, genErr := g.Generate(context.Background(), generator.Request{
		Query:       "best error tracker",
		Keywords:    []string{"error", "tracker"},
		GapID:       &gapID,
		AutoPublish: true,
	})
	if genErr != nil {
		t.Fatalf("Generate() error = %v", genErr)
	}

	if !result.Published {
		t.Error("Published = false, want true")
	}
	if result.Content.Slug != "closing-the-gap" {
		t.Errorf("Slug = %q, want closing-the-gap", result.Content.Slug)
	}
	if result.Content.PublishedURL != "https://example.com/closing-the-gap" {
		t.Errorf("PublishedURL = %q", result.Content.PublishedURL)
	}
	if len(gaps.generating) != 1 || gaps.generating[0] != gapID {
		t.Errorf("MarkGenerating calls = %v, want [3]", gaps.generating)
	}
	if len(gaps.published) != 1 || gaps.published[0] != gapID {
		t.Errorf("MarkPublished calls = %v, want [3]", gaps.published)
	}
}

func TestGenerator_Generate_GlobalFlagOffLeavesDraft(t *testing.T) {
	gaps := &mockGapStore{}
	content := &mockContentStore{}
	gapID := int64(3)

	g := newGenerator(
		&mockWriter{draft: draft()},
		&mockPublisher{url: "https://example.com/x"},
		gaps, content,
		&mockSettings{autoPublish: false},
	)

	result, genErr := g.Generate(context.Background(), generator.Request{
		Query:       "q",
		GapID:       &gapID,
		AutoPublish: true,
	})
	if genErr != nil {
		t.Fatalf("Generate() error = %v", genErr)
	}

	if result.Published {
		t.Error("Published = true, want false when the global flag is off")
	}
	if len(content.publishedIDs) != 0 {
		t.Errorf("content marked published = %v, want none", content.publishedIDs)
	}
	if len(gaps.published) != 0 {
		t.Errorf("gap advanced = %v, want none", gaps.published)
	}
}

func TestGenerator_Generate_WriteFailureRevertsGap(t *testing.T) {
	gaps := &mockGapStore{}
	content := &mockContentStore{}
	gapID := int64(5)

	g := newGenerator(
		&mockWriter{err: errors.New("model unavailable")},
		nil,
		gaps, content,
		&mockSettings{},
	)

	_, genErr := g.Generate(context.Background(), generator.Request{
		Query: "q",
		GapID: &gapID,
	})
	if genErr == nil {
		t.Fatal("Generate() error = nil, want error")
	}

	if len(gaps.identified) != 1 || gaps.identified[0] != gapID {
		t.Errorf("MarkIdentified calls = %v, want [5]", gaps.identified)
	}
	if len(content.inserted) != 0 {
		t.Errorf("drafts stored = %d, want 0", len(content.inserted))
	}
}

func TestGenerator_Generate_PublishFailureLeavesGapClaimed(t *testing.T) {
	gaps := &mockGapStore{}
	content := &mockContentStore{}
	gapID := int64(5)

	g := newGenerator(
		&mockWriter{draft: draft()},
		&mockPublisher{err: errors.New("site down")},
		gaps, content,
		&mockSettings{autoPublish: true},
	)

	result, genErr := g.Generate(context.Background(), generator.Request{
		Query:       "q",
		GapID:       &gapID,
		AutoPublish: true,
	})
	if genErr != nil {
		t.Fatalf("Generate() error = %v, want nil (publish failure is non-fatal)", genErr)
	}

	if result.Published {
		t.Error("Published = true, want false")
	}
	if result.PublishErr == nil {
		t.Error("PublishErr = nil, want publish failure")
	}
	// The gap stays generating; only the next recovery sweep re-opens it.
	if len(gaps.identified) != 0 {
		t.Errorf("MarkIdentified calls = %v, want none", gaps.identified)
	}
	if len(gaps.published) != 0 {
		t.Errorf("MarkPublished calls = %v, want none", gaps.published)
	}
}

func TestGenerator_Generate_SlugCollisionRetries(t *testing.T) {
	gaps := &mockGapStore{}
	content := &mockContentStore{insertErrs: []error{errors.New("duplicate key")}}

	g := newGenerator(
		&mockWriter{draft: draft()},
		nil,
		gaps, content,
		&mockSettings{},
	)

	result, genErr := g.Generate(context.Background(), generator.Request{Query: "q"})
	if genErr != nil {
		t.Fatalf("Generate() error = %v", genErr)
	}

	slug := result.Content.Slug
	if slug == "closing-the-gap" {
		t.Error("slug unchanged after collision, want random suffix")
	}
	if len(slug) != len("closing-the-gap")+1+8 {
		t.Errorf("slug = %q, want base plus 8-char suffix", slug)
	}
}

func TestGenerator_Generate_NoPublisherConfigured(t *testing.T) {
	gaps := &mockGapStore{}
	content := &mockContentStore{}

	g := newGenerator(
		&mockWriter{draft: draft()},
		nil,
		gaps, content,
		&mockSettings{autoPublish: true},
	)

	result, genErr := g.Generate(context.Background(), generator.Request{
		Query:       "q",
		AutoPublish: true,
	})
	if genErr != nil {
		t.Fatalf("Generate() error = %v", genErr)
	}

	if result.Published {
		t.Error("Published = true, want false with no publisher")
	}
}
