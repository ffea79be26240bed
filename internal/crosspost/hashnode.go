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

// defaultHashnodeEndpoint is the hashnode GraphQL API.
const defaultHashnodeEndpoint = "https://gql.hashnode.com"

// publishPostMutation publishes one article to a hashnode publication.
const publishPostMutation = `
mutation PublishPost($input: PublishPostInput!) {
  publishPost(input: $input) {
    post { url }
  }
}`

// Hashnode crossposts articles to a hashnode publication.
type Hashnode struct {
	token         string
	publicationID string
	endpoint      string
	client        *http.Client
}

// NewHashnode creates the hashnode channel. Empty credentials leave the
// channel unavailable.
func NewHashnode(token, publicationID string, client *http.Client) *Hashnode {
	return &Hashnode{
		token:         token,
		publicationID: publicationID,
		endpoint:      defaultHashnodeEndpoint,
		client:        client,
	}
}

// Name matches the channel's URL column in the content store.
func (h *Hashnode) Name() string { return "hashnode" }

// Available reports whether credentials are configured.
func (h *Hashnode) Available() bool { return h.token != "" && h.publicationID != "" }

type hashnodeRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type hashnodeResponse struct {
	Data struct {
		PublishPost struct {
			Post struct {
				URL string `json:"url"`
			} `json:"post"`
		} `json:"publishPost"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Push publishes one article to hashnode and returns its URL.
func (h *Hashnode) Push(ctx context.Context, content *domain.GeneratedContent) (string, error) {
	payload, marshalErr := json.Marshal(hashnodeRequest{
		Query: publishPostMutation,
		Variables: map[string]any{
			"input": map[string]any{
				"publicationId":      h.publicationID,
				"title":              content.Title,
				"contentMarkdown":    content.Body,
				"slug":               content.Slug,
				"originalArticleURL": content.PublishedURL,
			},
		},
	})
	if marshalErr != nil {
		return "", fmt.Errorf("marshal hashnode mutation: %w", marshalErr)
	}

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(payload))
	if reqErr != nil {
		return "", fmt.Errorf("build hashnode request: %w", reqErr)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", h.token)

	resp, doErr := h.client.Do(req)
	if doErr != nil {
		return "", fmt.Errorf("hashnode request: %w", doErr)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxChannelErrorBody))
		return "", fmt.Errorf("hashnode request: status %d: %s", resp.StatusCode, string(body))
	}

	var parsed hashnodeResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&parsed); decodeErr != nil {
		return "", fmt.Errorf("decode hashnode response: %w", decodeErr)
	}

	if len(parsed.Errors) > 0 {
		return "", fmt.Errorf("hashnode mutation: %s", parsed.Errors[0].Message)
	}

	url := parsed.Data.PublishPost.Post.URL
	if url == "" {
		return "", fmt.Errorf("hashnode response: missing url")
	}

	return url, nil
}
