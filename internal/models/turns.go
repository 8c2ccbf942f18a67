package models

import "encoding/json"

// Turn roles as persisted in conversation state.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Content block types as persisted in conversation state. The layout
// mirrors the reasoning engine's wire format so saved history replays
// without translation.
const (
	BlockText       = "text"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
	BlockImage      = "image"
)

// Turn is one entry in the stored conversation history. Text-only turns
// set Text; structured turns (tool calls, tool results, images) carry
// Blocks instead.
type Turn struct {
	Role   string         `json:"role"`
	Text   string         `json:"text,omitempty"`
	Blocks []ContentBlock `json:"blocks,omitempty"`
}

// ContentBlock is one typed block inside a structured turn.
type ContentBlock struct {
	Type string `json:"type"`

	// text blocks
	Text string `json:"text,omitempty"`

	// tool_use blocks (assistant)
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result blocks (user)
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`

	// image blocks (user)
	ImageURL string `json:"image_url,omitempty"`
}

// ConversationState is the JSON document stored in the conversations table.
type ConversationState struct {
	Messages []Turn `json:"messages"`
}

// TextTurn builds a plain text turn.
func TextTurn(role, text string) Turn {
	return Turn{Role: role, Text: text}
}

// ToolUseIDs returns the ids of all tool_use blocks in the turn.
func (t *Turn) ToolUseIDs() []string {
	var ids []string
	for _, b := range t.Blocks {
		if b.Type == BlockToolUse && b.ID != "" {
			ids = append(ids, b.ID)
		}
	}
	return ids
}

// Empty reports whether the turn carries no content at all.
func (t *Turn) Empty() bool {
	return t.Text == "" && len(t.Blocks) == 0
}
