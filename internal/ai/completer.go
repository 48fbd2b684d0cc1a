// Package ai implements text completion on top of the Anthropic Messages API.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	DefaultModel     = "claude-3-5-haiku-latest"
	DefaultMaxTokens = 512
	temperature      = 0.2

	// jsonPrefill is placed in the assistant turn so the reply continues a JSON object
	jsonPrefill = "{"
)

const systemPrompt = "You label study notes. You always reply with a single JSON object and nothing else."

// NewClient returns an Anthropic client that sends its requests through httpClient
func NewClient(apiKey string, httpClient *http.Client, opts ...option.RequestOption) anthropic.Client {
	opts = append([]option.RequestOption{
		option.WithHTTPClient(httpClient),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(5),
	}, opts...)
	return anthropic.NewClient(opts...)
}

// Completer sends single-turn prompts whose replies are expected to be a JSON object
type Completer struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

func NewCompleter(client anthropic.Client, model string, maxTokens int64) *Completer {
	if model == "" {
		model = DefaultModel
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Completer{
		client:    client,
		model:     anthropic.Model(model),
		maxTokens: maxTokens,
	}
}

// Complete returns the reply to prompt, including the prefilled opening brace
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: anthropic.Float(temperature),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			anthropic.NewAssistantMessage(anthropic.NewTextBlock(jsonPrefill)),
		},
	}

	response, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}
	if response.StopReason == "" {
		b, err := json.Marshal(response)
		if err != nil {
			return "", fmt.Errorf("malformed message, and failed to marshal it for inspection: %w", err)
		}
		return "", fmt.Errorf("malformed message: %v", string(b))
	}

	var text strings.Builder
	text.WriteString(jsonPrefill)
	for _, block := range response.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if response.StopReason == anthropic.StopReasonMaxTokens {
		return text.String(), fmt.Errorf("response truncated after %d tokens", c.maxTokens)
	}
	return text.String(), nil
}
