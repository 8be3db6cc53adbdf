package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/radiograb/internal/config"
	"github.com/radiograb/pkg/logger"
	"github.com/radiograb/pkg/ratelimit"
)

// Client wraps the Anthropic SDK client
type Client struct {
	client      anthropic.Client
	model       string
	maxTokens   int
	rateLimiter *ratelimit.MultiLimiter
	log         *logger.Logger
}

// NewClient creates a new Anthropic client
func NewClient(cfg config.AnthropicConfig, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Client {
	client := anthropic.NewClient(
		option.WithAPIKey(cfg.APIKey),
		// the pipeline never retries a translation; the operator resubmits
		option.WithMaxRetries(0),
	)

	return &Client{
		client:      client,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		rateLimiter: limiter,
		log:         log.WithComponent("ai"),
	}
}

// jsonOnly is appended to every system prompt sent through CompleteWithJSON
const jsonOnly = "\n\nRespond with a single JSON object and nothing else: no markdown fences, no prose."

// ErrTruncated is returned when the reply hit the token ceiling before it ended
var ErrTruncated = errors.New("claude reply truncated at max_tokens")

// Complete sends one system and user message pair and returns the concatenated text blocks.
// Temperature is pinned to zero so the same input yields the same answer.
func (c *Client) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	if err := c.rateLimiter.Wait(ctx, ratelimit.LimiterTranslator); err != nil {
		return "", fmt.Errorf("rate limit error: %w", err)
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   int64(c.maxTokens),
		Temperature: anthropic.Float(0),
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userMessage)),
		},
	}

	start := time.Now()
	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		c.log.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("Claude API error")
		return "", fmt.Errorf("claude API error: %w", err)
	}

	c.log.Debug().
		Str("model", c.model).
		Str("stop_reason", string(message.StopReason)).
		Int64("input_tokens", message.Usage.InputTokens).
		Int64("output_tokens", message.Usage.OutputTokens).
		Dur("elapsed", time.Since(start)).
		Msg("Claude replied")

	if message.StopReason == anthropic.StopReasonMaxTokens {
		return "", ErrTruncated
	}

	var text strings.Builder
	for _, block := range message.Content {
		text.WriteString(block.AsText().Text)
	}
	return text.String(), nil
}

// CompleteWithJSON is Complete with the reply constrained to bare JSON
func (c *Client) CompleteWithJSON(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	return c.Complete(ctx, systemPrompt+jsonOnly, userMessage)
}
