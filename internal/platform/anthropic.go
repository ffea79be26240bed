package platform

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/citegap/citegap/internal/config"
)

// defaultAnthropicModel is used when no model is configured.
const defaultAnthropicModel = "claude-sonnet-4-5"

// defaultAnthropicMaxTokens bounds answer length for probes.
const defaultAnthropicMaxTokens = 1024

// Anthropic wraps the Anthropic Messages API.
type Anthropic struct {
	client anthropic.Client
	model  string
}

// NewAnthropic creates the Anthropic adapter.
func NewAnthropic(cfg config.AdapterConfig) *Anthropic {
	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}

	return &Anthropic{
		client: anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:  model,
	}
}

// Name identifies the platform in citation rows.
func (a *Anthropic) Name() string {
	return "anthropic"
}

// Ask sends one prompt and returns the concatenated text blocks.
func (a *Anthropic) Ask(ctx context.Context, prompt string) (string, error) {
	msg, askErr := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: defaultAnthropicMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if askErr != nil {
		return "", fmt.Errorf("anthropic message: %w", askErr)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	return sb.String(), nil
}
