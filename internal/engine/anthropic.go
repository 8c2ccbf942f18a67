package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/planeat/planeat/internal/models"
)

// Model and budget defaults for the Anthropic Messages API backend.
const (
	DefaultModel     = "claude-sonnet-4-5-20250929"
	DefaultMaxTokens = 4096
)

// Opts holds configuration options for the Anthropic client.
type Opts struct {
	APIKey    string
	Model     string
	MaxTokens int64
}

// Option defines a configuration option for the Anthropic client.
type Option func(*Opts)

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel overrides the model identifier.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// WithMaxTokens overrides the per-turn output token budget.
func WithMaxTokens(n int64) Option {
	return func(o *Opts) { o.MaxTokens = n }
}

// AnthropicClient implements Client on the Anthropic Messages API.
type AnthropicClient struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewAnthropicClient creates an Anthropic-backed engine client, falling
// back to the ANTHROPIC_API_KEY environment variable for the key.
func NewAnthropicClient(opts ...Option) (*AnthropicClient, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key not set")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	slog.Debug("engine.NewAnthropicClient: client created", "model", cfg.Model, "max_tokens", cfg.MaxTokens)
	return &AnthropicClient{
		client:    anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:     anthropic.Model(cfg.Model),
		maxTokens: cfg.MaxTokens,
	}, nil
}

// CreateTurn sends the conversation to the Messages API and converts the
// reply into the engine's neutral response form.
func (c *AnthropicClient) CreateTurn(ctx context.Context, req Request) (*Response, error) {
	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  buildMessages(req.Messages),
	}
	if s := strings.TrimSpace(req.System); s != "" {
		params.System = []anthropic.TextBlockParam{{Text: s}}
	}
	if len(req.Tools) > 0 {
		params.Tools = buildTools(req.Tools)
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		var apierr *anthropic.Error
		if errors.As(err, &apierr) && apierr.StatusCode == http.StatusTooManyRequests {
			slog.Warn("AnthropicClient.CreateTurn: rate limited", "error", err)
			return nil, fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		slog.Error("AnthropicClient.CreateTurn: request failed", "error", err)
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}

	resp := &Response{StopReason: mapStopReason(msg.StopReason)}
	var texts []string
	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			texts = append(texts, b.Text)
			resp.Blocks = append(resp.Blocks, models.ContentBlock{Type: models.BlockText, Text: b.Text})
		case anthropic.ToolUseBlock:
			input := json.RawMessage(b.Input)
			resp.Blocks = append(resp.Blocks, models.ContentBlock{
				Type:  models.BlockToolUse,
				ID:    b.ID,
				Name:  b.Name,
				Input: input,
			})
			resp.ToolCalls = append(resp.ToolCalls, models.ToolCall{ID: b.ID, Name: b.Name, Input: input})
		}
	}
	resp.Text = strings.Join(texts, "\n")
	slog.Debug("AnthropicClient.CreateTurn: turn complete", "stop_reason", resp.StopReason, "tool_calls", len(resp.ToolCalls))
	return resp, nil
}

// buildMessages converts stored turns into Messages API parameters.
func buildMessages(turns []models.Turn) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(turns))
	for _, turn := range turns {
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(turn.Blocks)+1)
		if turn.Text != "" {
			blocks = append(blocks, anthropic.NewTextBlock(turn.Text))
		}
		for _, b := range turn.Blocks {
			switch b.Type {
			case models.BlockText:
				if b.Text != "" {
					blocks = append(blocks, anthropic.NewTextBlock(b.Text))
				}
			case models.BlockToolUse:
				blocks = append(blocks, anthropic.NewToolUseBlock(b.ID, json.RawMessage(b.Input), b.Name))
			case models.BlockToolResult:
				blocks = append(blocks, anthropic.NewToolResultBlock(b.ToolUseID, b.Content, b.IsError))
			case models.BlockImage:
				if b.ImageURL != "" {
					blocks = append(blocks, anthropic.NewImageBlock(anthropic.URLImageSourceParam{URL: b.ImageURL}))
				}
			}
		}
		if len(blocks) == 0 {
			continue
		}
		if turn.Role == models.RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		} else {
			out = append(out, anthropic.NewUserMessage(blocks...))
		}
	}
	return out
}

// buildTools converts tool schemas into Messages API tool parameters.
func buildTools(schemas []ToolSchema) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(schemas))
	for _, s := range schemas {
		param := anthropic.ToolParam{
			Name:        s.Name,
			Description: anthropic.String(s.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Type:       "object",
				Properties: s.Properties,
				Required:   s.Required,
			},
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &param})
	}
	return out
}

// mapStopReason converts the provider stop reason to the neutral form.
func mapStopReason(reason anthropic.StopReason) StopReason {
	switch strings.TrimSpace(strings.ToLower(string(reason))) {
	case "tool_use":
		return StopToolUse
	case "end_turn", "stop_sequence":
		return StopEndTurn
	case "refusal":
		return StopRefusal
	case "max_tokens":
		return StopMaxTokens
	default:
		return StopEndTurn
	}
}
