// Package platform implements adapters for the external AI answer engines
// the prober queries. Each adapter wraps one platform's completion
// capability behind a common interface; adapters without credentials are
// simply absent from the registry.
package platform

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/citegap/citegap/internal/config"
)

// ErrNoAdapters is returned when no platform has credentials configured.
var ErrNoAdapters = errors.New("no AI platform adapters configured")

// Adapter is one AI answer engine.
type Adapter interface {
	// Name identifies the platform in citation rows.
	Name() string
	// Ask sends one prompt and returns the platform's free-text answer.
	Ask(ctx context.Context, prompt string) (string, error)
}

// Default HTTP transport settings for platform calls.
const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 90 * time.Second
)

// newHTTPClient builds the shared HTTP client for platform adapters.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        defaultMaxIdleConns,
			MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
			IdleConnTimeout:     defaultIdleConnTimeout,
		},
	}
}

// NewRegistry builds the available adapters from configuration. Only
// platforms with a non-empty API key are included.
func NewRegistry(cfg *config.PlatformsConfig, timeout time.Duration) []Adapter {
	httpClient := newHTTPClient(timeout)

	var adapters []Adapter
	if cfg.OpenAI.APIKey != "" {
		adapters = append(adapters, NewOpenAI(cfg.OpenAI, httpClient))
	}
	if cfg.Anthropic.APIKey != "" {
		adapters = append(adapters, NewAnthropic(cfg.Anthropic))
	}
	if cfg.Perplexity.APIKey != "" {
		adapters = append(adapters, NewPerplexity(cfg.Perplexity, httpClient))
	}
	return adapters
}
