package generator

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FetchCompetitorExcerpt downloads a competitor page and strips it to
// bounded plain text. Callers treat failures as best-effort: generation
// proceeds without the excerpt.
func FetchCompetitorExcerpt(ctx context.Context, client *http.Client, url string, maxLen int) (string, error) {
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if reqErr != nil {
		return "", fmt.Errorf("build request: %w", reqErr)
	}

	resp, doErr := client.Do(req)
	if doErr != nil {
		return "", fmt.Errorf("fetch competitor page: %w", doErr)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch competitor page: status %d", resp.StatusCode)
	}

	doc, parseErr := goquery.NewDocumentFromReader(resp.Body)
	if parseErr != nil {
		return "", fmt.Errorf("parse competitor page: %w", parseErr)
	}

	doc.Find("script, style, noscript, nav, footer").Remove()

	text := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	if len(text) > maxLen {
		text = text[:maxLen]
	}

	return text, nil
}
