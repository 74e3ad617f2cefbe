package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Houeta/watchdog/internal/models"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ErrEmptyAPIKey is returned when no Anthropic API key is configured; the
// caller selects the rule-based fallback instead.
var ErrEmptyAPIKey = errors.New("anthropic API key is not configured")

const (
	defaultModel   = "claude-sonnet-4-5-20250929"
	defaultTimeout = 30 * time.Second

	maxRetries     = 3
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second

	responseTokens = 1024
)

// Client is the reasoning collaborator backed by the Anthropic API. It
// implements both the semantic-comparison and the classification
// capability interfaces.
type Client struct {
	client  *anthropic.Client
	log     *slog.Logger
	model   string
	timeout time.Duration
}

// NewClient creates a reasoning client. An empty API key returns
// ErrEmptyAPIKey so the pipeline can run in degraded mode.
func NewClient(log *slog.Logger, apiKey, model string, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, ErrEmptyAPIKey
	}
	if model == "" {
		model = defaultModel
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	return &Client{client: &client, log: log, model: model, timeout: timeout}, nil
}

// CompareSemantics asks whether an unstructured change is meaningful.
func (c *Client) CompareSemantics(
	ctx context.Context, before, after string, assetType models.AssetType,
) (models.SemanticJudgment, error) {
	prompt := buildSemanticPrompt(before, after, assetType)

	text, err := c.call(ctx, "semantic_compare", prompt)
	if err != nil {
		return models.SemanticJudgment{}, fmt.Errorf("semantic comparison failed: %w", err)
	}

	var judgment models.SemanticJudgment
	if err = parseJSON(text, &judgment); err != nil {
		return models.SemanticJudgment{}, fmt.Errorf("failed to parse semantic judgment: %w", err)
	}

	return judgment, nil
}

// ClassifyChange asks the collaborator for the fixed classification
// response: change type, priority, summary, rationale and confidence.
func (c *Client) ClassifyChange(
	ctx context.Context, req models.ClassifyRequest,
) (*models.Classification, error) {
	prompt := buildClassifyPrompt(req)

	text, err := c.call(ctx, "classify_change", prompt)
	if err != nil {
		return nil, fmt.Errorf("classification call failed: %w", err)
	}

	var cls models.Classification
	if err = parseJSON(text, &cls); err != nil {
		return nil, fmt.Errorf("failed to parse classification: %w", err)
	}
	cls.Priority = models.Priority(strings.ToLower(string(cls.Priority)))

	return &cls, nil
}

// call sends one prompt with bounded exponential backoff and a per-attempt
// timeout, returning the concatenated text blocks of the response.
func (c *Client) call(ctx context.Context, operation, prompt string) (string, error) {
	var response *anthropic.Message

	backoff := initialBackoff
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			c.log.WarnContext(ctx, "Retrying collaborator call",
				"op", operation, "attempt", attempt, "backoff", backoff, "error", lastErr)
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("collaborator call cancelled: %w", ctx.Err())
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.client.Messages.New(attemptCtx, anthropic.MessageNewParams{
			Model:     anthropic.Model(c.model),
			MaxTokens: responseTokens,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		cancel()
		if err != nil {
			lastErr = err
			continue
		}
		response = resp
		break
	}

	if response == nil {
		return "", fmt.Errorf("anthropic API call failed after %d attempts: %w", maxRetries+1, lastErr)
	}

	var text strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	c.log.DebugContext(ctx, "Collaborator call finished",
		"op", operation,
		"input_tokens", response.Usage.InputTokens,
		"output_tokens", response.Usage.OutputTokens)

	return text.String(), nil
}

// parseJSON decodes a JSON object, tolerating markdown code fences around it.
func parseJSON(text string, out any) error {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		if len(lines) > 2 {
			text = strings.Join(lines[1:len(lines)-1], "\n")
		}
	}

	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("invalid JSON response: %w", err)
	}

	return nil
}
