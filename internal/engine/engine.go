// Package engine abstracts the reasoning engine that drives PlanEat
// conversations.
//
// A Client takes a system prompt, replayed conversation turns, and tool
// schemas, and returns the model's next turn: either final text or a set
// of tool calls to execute.
package engine

import (
	"context"
	"errors"

	"github.com/planeat/planeat/internal/models"
)

// StopReason describes why the engine stopped producing output.
type StopReason string

const (
	// StopToolUse means the engine requested tool executions.
	StopToolUse StopReason = "tool_use"
	// StopEndTurn means the engine finished its reply.
	StopEndTurn StopReason = "end_turn"
	// StopRefusal means the engine declined to answer.
	StopRefusal StopReason = "refusal"
	// StopMaxTokens means the reply was truncated at the token budget.
	StopMaxTokens StopReason = "max_tokens"
)

// ErrRateLimited marks requests rejected by the engine's rate limiter.
// Implementations wrap their provider-specific error with this sentinel.
var ErrRateLimited = errors.New("reasoning engine rate limited")

// ToolSchema describes one tool offered to the engine. Properties follows
// JSON Schema conventions for an object's properties map.
type ToolSchema struct {
	Name        string
	Description string
	Properties  map[string]any
	Required    []string
}

// Request is one engine invocation.
type Request struct {
	System   string
	Messages []models.Turn
	Tools    []ToolSchema
}

// Response is the engine's next turn.
type Response struct {
	StopReason StopReason
	// Blocks is the full assistant content in history replay form.
	Blocks []models.ContentBlock
	// Text is the concatenation of all text blocks.
	Text string
	// ToolCalls lists requested tool executions when StopReason is
	// StopToolUse.
	ToolCalls []models.ToolCall
}

// Client is implemented by reasoning engine backends.
type Client interface {
	// CreateTurn sends the conversation and returns the engine's next turn.
	CreateTurn(ctx context.Context, req Request) (*Response, error)
}

// IsRateLimit reports whether the error is a rate limit rejection.
func IsRateLimit(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// AssistantTurn converts a response into a history turn for replay.
func (r *Response) AssistantTurn() models.Turn {
	return models.Turn{Role: models.RoleAssistant, Blocks: r.Blocks}
}
