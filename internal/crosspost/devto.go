package crosspost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/citegap/citegap/internal/domain"
)

// defaultDevToEndpoint is the dev.to articles API.
const defaultDevToEndpoint = "https://dev.to/api/articles"

// maxChannelErrorBody bounds how much of an error response body is kept.
const maxChannelErrorBody = 512

// DevTo crossposts articles to dev.to.
type DevTo struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewDevTo creates the dev.to channel. An empty apiKey leaves the
// channel unavailable.
func NewDevTo(apiKey string, client *http.Client) *DevTo {
	return &DevTo{apiKey: apiKey, endpoint: defaultDevToEndpoint, client: client}
}

// Name matches the channel's URL column in the content store.
func (d *DevTo) Name() string { return "devto" }

// Available reports whether credentials are configured.
func (d *DevTo) Available() bool { return d.apiKey != "" }

type devToArticle struct {
	Title        string   `json:"title"`
	BodyMarkdown string   `json:"body_markdown"`
	Description  string   `json:"description"`
	CanonicalURL string   `json:"canonical_url,omitempty"`
	Published    bool     `json:"published"`
	Tags         []string `json:"tags,omitempty"`
}

type devToRequest struct {
	Article devToArticle `json:"article"`
}

type devToResponse struct {
	URL string `json:"url"`
}

// maxDevToTags is dev.to's tag limit per article.
const maxDevToTags = 4

// Push publishes one article to dev.to and returns its URL.
func (d *DevTo) Push(ctx context.Context, content *domain.GeneratedContent) (string, error) {
	tags := content.Keywords
	if len(tags) > maxDevToTags {
		tags = tags[:maxDevToTags]
	}

	payload, marshalErr := json.Marshal(devToRequest{Article: devToArticle{
		Title:        content.Title,
		BodyMarkdown: content.Body,
		Description:  content.MetaDescription,
		CanonicalURL: content.PublishedURL,
		Published:    true,
		Tags:         tags,
	}})
	if marshalErr != nil {
		return "", fmt.Errorf("marshal devto article: %w", marshalErr)
	}

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(payload))
	if reqErr != nil {
		return "", fmt.Errorf("build devto request: %w", reqErr)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", d.apiKey)

	resp, doErr := d.client.Do(req)
	if doErr != nil {
		return "", fmt.Errorf("devto request: %w", doErr)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxChannelErrorBody))
		return "", fmt.Errorf("devto request: status %d: %s", resp.StatusCode, string(body))
	}

	var parsed devToResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&parsed); decodeErr != nil {
		return "", fmt.Errorf("decode devto response: %w", decodeErr)
	}

	return parsed.URL, nil
}
