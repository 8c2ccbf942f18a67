package flow

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/planeat/planeat/internal/models"
	"github.com/planeat/planeat/internal/store"
)

const (
	// SessionWindow is how long a conversation row stays resumable. Older
	// rows are bypassed, not deleted; the next save overwrites them.
	SessionWindow = 2 * time.Hour

	// HistoryLimit bounds how many turns are replayed into the engine.
	HistoryLimit = 10
)

// interruptedResult is the synthetic answer recorded for a tool_use whose
// real result was never saved (the budget fired mid-execution).
const interruptedResult = `{"success":false,"error":"Tool execution was interrupted before a result was recorded"}`

// Sanitize drops tool_result blocks whose tool_use invocation is absent from
// the turn list, then drops user turns emptied by that filtering. Assistant
// turns are never filtered; a tool_use left without any result (a cut-short
// pass persists the assistant turn before its results exist) is answered
// with a synthetic error tool_result instead, since the engine rejects a
// replay containing an unanswered tool_use. Sanitizing an already clean
// list is a no-op.
func Sanitize(turns []models.Turn) []models.Turn {
	known := make(map[string]bool)
	for _, t := range turns {
		for _, id := range t.ToolUseIDs() {
			known[id] = true
		}
	}

	out := make([]models.Turn, 0, len(turns))
	for _, t := range turns {
		if t.Role != models.RoleUser || len(t.Blocks) == 0 {
			out = append(out, t)
			continue
		}
		blocks := make([]models.ContentBlock, 0, len(t.Blocks))
		for _, b := range t.Blocks {
			if b.Type == models.BlockToolResult && !known[b.ToolUseID] {
				slog.Debug("flow.Sanitize: dropping orphaned tool result", "toolUseID", b.ToolUseID)
				continue
			}
			blocks = append(blocks, b)
		}
		t.Blocks = blocks
		if t.Empty() {
			continue
		}
		out = append(out, t)
	}
	return answerDanglingToolUse(out)
}

// answerDanglingToolUse inserts a synthetic error tool_result turn after any
// assistant turn whose tool_use invocations no user turn answers.
func answerDanglingToolUse(turns []models.Turn) []models.Turn {
	answered := make(map[string]bool)
	for _, t := range turns {
		if t.Role != models.RoleUser {
			continue
		}
		for _, b := range t.Blocks {
			if b.Type == models.BlockToolResult {
				answered[b.ToolUseID] = true
			}
		}
	}

	out := make([]models.Turn, 0, len(turns))
	for _, t := range turns {
		out = append(out, t)
		if t.Role != models.RoleAssistant {
			continue
		}
		var results []models.ContentBlock
		for _, id := range t.ToolUseIDs() {
			if answered[id] {
				continue
			}
			slog.Debug("flow.Sanitize: answering dangling tool use", "toolUseID", id)
			results = append(results, models.ContentBlock{
				Type:      models.BlockToolResult,
				ToolUseID: id,
				Content:   interruptedResult,
				IsError:   true,
			})
		}
		if len(results) > 0 {
			out = append(out, models.Turn{Role: models.RoleUser, Blocks: results})
		}
	}
	return out
}

// Truncate keeps the most recent max turns. The retained tail is sanitized
// again because cutting at an arbitrary boundary can strand a tool_result
// whose invocation fell outside the window.
func Truncate(turns []models.Turn, max int) []models.Turn {
	if max > 0 && len(turns) > max {
		turns = turns[len(turns)-max:]
	}
	return Sanitize(turns)
}

// History loads and persists the replayable turn list for a phone number.
type History struct {
	store store.Store

	// NowFunc is replaceable in tests to control the freshness window.
	NowFunc func() time.Time
}

// NewHistory creates a history adapter over the given store.
func NewHistory(s store.Store) *History {
	return &History{store: s, NowFunc: time.Now}
}

// Load returns the sanitized last max turns for phone, or nil when the
// conversation is absent, stale, or unreadable. Storage errors fail open.
func (h *History) Load(phone string, max int) []models.Turn {
	conv, err := h.store.GetConversation(phone)
	if err != nil {
		slog.Error("History.Load: failed to load conversation, starting empty", "phone", phone, "error", err)
		return nil
	}
	if conv == nil {
		return nil
	}
	if h.NowFunc().Sub(conv.LastMessageAt) > SessionWindow {
		slog.Debug("History.Load: conversation stale, discarding history", "phone", phone, "lastMessageAt", conv.LastMessageAt)
		return nil
	}
	if len(conv.State) == 0 {
		return nil
	}

	var state models.ConversationState
	if err := json.Unmarshal(conv.State, &state); err != nil {
		slog.Error("History.Load: failed to decode conversation state, starting empty", "phone", phone, "error", err)
		return nil
	}
	turns := Truncate(Sanitize(state.Messages), max)
	slog.Debug("History.Load: loaded history", "phone", phone, "turns", len(turns))
	return turns
}

// Save persists the sanitized last HistoryLimit turns and the current intent,
// upserting the user row first so the conversation row has a parent.
func (h *History) Save(phone string, intent models.Intent, turns []models.Turn) error {
	trimmed := Truncate(Sanitize(turns), HistoryLimit)
	blob, err := json.Marshal(models.ConversationState{Messages: trimmed})
	if err != nil {
		return fmt.Errorf("failed to encode conversation state: %w", err)
	}
	if err := h.store.EnsureUser(phone); err != nil {
		return fmt.Errorf("failed to ensure user before saving history: %w", err)
	}
	intentStr := string(intent)
	if err := h.store.SaveConversationState(phone, &intentStr, blob); err != nil {
		return fmt.Errorf("failed to save conversation state: %w", err)
	}
	slog.Debug("History.Save: persisted history", "phone", phone, "turns", len(trimmed), "intent", intent)
	return nil
}
