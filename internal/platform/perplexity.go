package platform

import (
	"net/http"

	"github.com/citegap/citegap/internal/config"
)

// Defaults for the Perplexity API, which speaks the OpenAI chat protocol.
const (
	defaultPerplexityBaseURL = "https://api.perplexity.ai"
	defaultPerplexityModel   = "sonar"
)

// NewPerplexity creates the Perplexity adapter. The wire protocol is
// OpenAI-compatible, so it reuses the OpenAI client with its own endpoint.
func NewPerplexity(cfg config.AdapterConfig, client *http.Client) *OpenAI {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultPerplexityBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultPerplexityModel
	}

	adapter := NewOpenAI(cfg, client)
	adapter.name = "perplexity"
	return adapter
}
