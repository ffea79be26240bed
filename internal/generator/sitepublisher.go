package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/citegap/citegap/internal/domain"
)

// maxPublishErrorBody bounds how much of an error response body is kept.
const maxPublishErrorBody = 512

// HTTPPublisher posts finished articles to the site's publish endpoint.
type HTTPPublisher struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewHTTPPublisher creates a publisher for the given endpoint.
func NewHTTPPublisher(endpoint, token string, client *http.Client) *HTTPPublisher {
	return &HTTPPublisher{endpoint: endpoint, token: token, client: client}
}

type publishRequest struct {
	Title           string   `json:"title"`
	Slug            string   `json:"slug"`
	Body            string   `json:"body"`
	MetaDescription string   `json:"meta_description"`
	Keywords        []string `json:"keywords"`
}

type publishResponse struct {
	URL string `json:"url"`
}

// Publish sends the article and returns its public URL.
func (p *HTTPPublisher) Publish(ctx context.Context, content *domain.GeneratedContent) (string, error) {
	payload, marshalErr := json.Marshal(publishRequest{
		Title:           content.Title,
		Slug:            content.Slug,
		Body:            content.Body,
		MetaDescription: content.MetaDescription,
		Keywords:        content.Keywords,
	})
	if marshalErr != nil {
		return "", fmt.Errorf("marshal publish request: %w", marshalErr)
	}

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if reqErr != nil {
		return "", fmt.Errorf("build publish request: %w", reqErr)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, doErr := p.client.Do(req)
	if doErr != nil {
		return "", fmt.Errorf("publish request: %w", doErr)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxPublishErrorBody))
		return "", fmt.Errorf("publish request: status %d: %s", resp.StatusCode, string(body))
	}

	var parsed publishResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&parsed); decodeErr != nil {
		return "", fmt.Errorf("decode publish response: %w", decodeErr)
	}

	if parsed.URL == "" {
		return "", fmt.Errorf("publish response: missing url")
	}

	return parsed.URL, nil
}
