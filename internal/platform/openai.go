package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/citegap/citegap/internal/config"
)

// Defaults for OpenAI-compatible chat completion endpoints.
const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4o-mini"
)

// maxErrorBody bounds how much of an error response body is kept.
const maxErrorBody = 512

// OpenAI talks to an OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	name    string
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewOpenAI creates the OpenAI adapter.
func NewOpenAI(cfg config.AdapterConfig, client *http.Client) *OpenAI {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	return &OpenAI{
		name:    "openai",
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: baseURL,
		client:  client,
	}
}

// Name identifies the platform in citation rows.
func (o *OpenAI) Name() string {
	return o.name
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Ask sends one prompt and returns the completion text.
func (o *OpenAI) Ask(ctx context.Context, prompt string) (string, error) {
	payload, marshalErr := json.Marshal(chatRequest{
		Model:    o.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if marshalErr != nil {
		return "", fmt.Errorf("marshal chat request: %w", marshalErr)
	}

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost,
		o.baseURL+"/chat/completions", bytes.NewReader(payload))
	if reqErr != nil {
		return "", fmt.Errorf("build chat request: %w", reqErr)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, doErr := o.client.Do(req)
	if doErr != nil {
		return "", fmt.Errorf("%s chat request: %w", o.name, doErr)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("%s chat request: status %d: %s", o.name, resp.StatusCode, string(body))
	}

	var parsed chatResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&parsed); decodeErr != nil {
		return "", fmt.Errorf("decode chat response: %w", decodeErr)
	}

	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%s chat response: no choices", o.name)
	}

	return parsed.Choices[0].Message.Content, nil
}
