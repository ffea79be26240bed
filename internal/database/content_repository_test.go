//nolint:testpackage // Testing internal repository requires same package access
package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/citegap/citegap/internal/domain"
)

func newContentRepo(t *testing.T) (*ContentRepository, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, setupErr := sqlmock.New()
	if setupErr != nil {
		t.Fatalf("failed to create sqlmock: %v", setupErr)
	}

	return NewContentRepository(db), mock, func() { db.Close() }
}

func TestContentRepository_Insert(t *testing.T) {
	repo, mock, cleanup := newContentRepo(t)
	defer cleanup()

	gapID := int64(4)
	content := &domain.GeneratedContent{
		GapID:           &gapID,
		Title:           "Fixing Error Tracking",
		Slug:            "fixing-error-tracking",
		Body:            "body text",
		MetaDescription: "meta",
		Keywords:        []string{"error", "tracking"},
	}

	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO generated_content").
		WithArgs(&gapID, content.Title, content.Slug, content.Body,
			content.MetaDescription, sqlmock.AnyArg(), nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(11, now))

	if insertErr := repo.Insert(context.Background(), content); insertErr != nil {
		t.Errorf("Insert() error = %v", insertErr)
	}
	if content.ID != 11 {
		t.Errorf("content.ID = %d, want 11", content.ID)
	}

	if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
		t.Errorf("unfulfilled expectations: %v", expectErr)
	}
}

func TestContentRepository_MarkPublished_NotFound(t *testing.T) {
	repo, mock, cleanup := newContentRepo(t)
	defer cleanup()

	mock.ExpectExec("UPDATE generated_content").
		WithArgs(int64(99), "https://example.com/post").
		WillReturnResult(sqlmock.NewResult(0, 0))

	markErr := repo.MarkPublished(context.Background(), 99, "https://example.com/post")
	if !errors.Is(markErr, ErrContentNotFound) {
		t.Errorf("MarkPublished() error = %v, want ErrContentNotFound", markErr)
	}
}

func TestContentRepository_CountPublishedSince(t *testing.T) {
	repo, mock, cleanup := newContentRepo(t)
	defer cleanup()

	since := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, countErr := repo.CountPublishedSince(context.Background(), since)
	if countErr != nil {
		t.Errorf("CountPublishedSince() error = %v", countErr)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

func TestContentRepository_ListMissingChannelURL_UnknownChannel(t *testing.T) {
	repo, _, cleanup := newContentRepo(t)
	defer cleanup()

	_, listErr := repo.ListMissingChannelURL(context.Background(), "medium", 10)
	if !errors.Is(listErr, ErrUnknownChannel) {
		t.Errorf("ListMissingChannelURL() error = %v, want ErrUnknownChannel", listErr)
	}
}

func TestContentRepository_ListMissingChannelURL(t *testing.T) {
	repo, mock, cleanup := newContentRepo(t)
	defer cleanup()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "gap_id", "title", "slug", "body", "meta_description", "keywords",
		"competitor_source_url", "published", "published_at", "published_url",
		"devto_url", "hashnode_url", "citation_improvement_48h",
		"last_performance_check", "created_at",
	}).AddRow(1, nil, "Title", "title", "body", "meta", []byte(`[]`),
		nil, true, now, "https://example.com/title", nil, nil, nil, nil, now)

	mock.ExpectQuery("SELECT(?s:.*)devto_url IS NULL").
		WithArgs(20).
		WillReturnRows(rows)

	items, listErr := repo.ListMissingChannelURL(context.Background(), "devto", 20)
	if listErr != nil {
		t.Fatalf("ListMissingChannelURL() error = %v", listErr)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	if items[0].PublishedURL != "https://example.com/title" {
		t.Errorf("PublishedURL = %q", items[0].PublishedURL)
	}

	if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
		t.Errorf("unfulfilled expectations: %v", expectErr)
	}
}

func TestContentRepository_SetChannelURL(t *testing.T) {
	repo, mock, cleanup := newContentRepo(t)
	defer cleanup()

	mock.ExpectExec("UPDATE generated_content SET hashnode_url").
		WithArgs(int64(5), "https://hashnode.example/post").
		WillReturnResult(sqlmock.NewResult(0, 1))

	setErr := repo.SetChannelURL(context.Background(), 5, "hashnode", "https://hashnode.example/post")
	if setErr != nil {
		t.Errorf("SetChannelURL() error = %v", setErr)
	}

	if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
		t.Errorf("unfulfilled expectations: %v", expectErr)
	}
}

func TestContentRepository_ListForPerformanceCheck(t *testing.T) {
	repo, mock, cleanup := newContentRepo(t)
	defer cleanup()

	from := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	to := from.Add(48 * time.Hour)
	publishedAt := from.Add(time.Hour)

	rows := sqlmock.NewRows([]string{"id", "published_at", "query"}).
		AddRow(7, publishedAt, "best error tracker")

	mock.ExpectQuery("JOIN content_gaps").
		WithArgs(from, to).
		WillReturnRows(rows)

	candidates, listErr := repo.ListForPerformanceCheck(context.Background(), from, to)
	if listErr != nil {
		t.Fatalf("ListForPerformanceCheck() error = %v", listErr)
	}
	if len(candidates) != 1 {
		t.Fatalf("candidates = %d, want 1", len(candidates))
	}
	if candidates[0].GapQuery != "best error tracker" {
		t.Errorf("GapQuery = %q", candidates[0].GapQuery)
	}
	if candidates[0].Content.PublishedAt == nil {
		t.Error("Content.PublishedAt = nil, want set")
	}
}
