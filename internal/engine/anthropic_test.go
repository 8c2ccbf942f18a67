package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/planeat/planeat/internal/models"
)

func TestBuildMessagesRolesAndBlocks(t *testing.T) {
	turns := []models.Turn{
		{Role: models.RoleUser, Text: "hola"},
		{Role: models.RoleAssistant, Blocks: []models.ContentBlock{
			{Type: models.BlockText, Text: "un momento"},
			{Type: models.BlockToolUse, ID: "tu_1", Name: "get_user_context", Input: json.RawMessage(`{"phone_number":"56911111111"}`)},
		}},
		{Role: models.RoleUser, Blocks: []models.ContentBlock{
			{Type: models.BlockToolResult, ToolUseID: "tu_1", Content: `{"exists":false}`},
		}},
	}

	msgs := buildMessages(turns)
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Role != anthropic.MessageParamRoleUser {
		t.Errorf("expected first message role user, got %s", msgs[0].Role)
	}
	if msgs[1].Role != anthropic.MessageParamRoleAssistant {
		t.Errorf("expected second message role assistant, got %s", msgs[1].Role)
	}
	if len(msgs[1].Content) != 2 {
		t.Errorf("expected 2 blocks in assistant message, got %d", len(msgs[1].Content))
	}
}

func TestBuildMessagesSkipsEmptyTurns(t *testing.T) {
	turns := []models.Turn{
		{Role: models.RoleUser},
		{Role: models.RoleUser, Text: "hola"},
	}
	msgs := buildMessages(turns)
	if len(msgs) != 1 {
		t.Fatalf("expected empty turn to be skipped, got %d messages", len(msgs))
	}
}

func TestBuildMessagesImageBlock(t *testing.T) {
	turns := []models.Turn{
		{Role: models.RoleUser, Blocks: []models.ContentBlock{
			{Type: models.BlockImage, ImageURL: "https://example.com/lista.jpg"},
			{Type: models.BlockText, Text: "mi lista"},
		}},
	}
	msgs := buildMessages(turns)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if len(msgs[0].Content) != 2 {
		t.Errorf("expected image and text blocks, got %d blocks", len(msgs[0].Content))
	}
}

func TestBuildTools(t *testing.T) {
	tools := buildTools([]ToolSchema{{
		Name:        "send_whatsapp_message",
		Description: "Envía un mensaje",
		Properties: map[string]any{
			"to":      map[string]any{"type": "string"},
			"message": map[string]any{"type": "string"},
		},
		Required: []string{"to", "message"},
	}})
	if len(tools) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(tools))
	}
	if tools[0].OfTool == nil || tools[0].OfTool.Name != "send_whatsapp_message" {
		t.Errorf("unexpected tool param: %+v", tools[0])
	}
	if len(tools[0].OfTool.InputSchema.Required) != 2 {
		t.Errorf("expected 2 required fields, got %v", tools[0].OfTool.InputSchema.Required)
	}
}

func TestMapStopReason(t *testing.T) {
	cases := []struct {
		in   anthropic.StopReason
		want StopReason
	}{
		{anthropic.StopReason("tool_use"), StopToolUse},
		{anthropic.StopReason("end_turn"), StopEndTurn},
		{anthropic.StopReason("stop_sequence"), StopEndTurn},
		{anthropic.StopReason("refusal"), StopRefusal},
		{anthropic.StopReason("max_tokens"), StopMaxTokens},
		{anthropic.StopReason(""), StopEndTurn},
	}
	for _, tc := range cases {
		if got := mapStopReason(tc.in); got != tc.want {
			t.Errorf("mapStopReason(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestIsRateLimit(t *testing.T) {
	wrapped := fmt.Errorf("%w: status 429", ErrRateLimited)
	if !IsRateLimit(wrapped) {
		t.Error("expected wrapped sentinel to be detected")
	}
	if IsRateLimit(errors.New("boom")) {
		t.Error("expected unrelated error to not be a rate limit")
	}
}

func TestStubClientScript(t *testing.T) {
	stub := NewStubClient().
		Respond(&Response{StopReason: StopToolUse, ToolCalls: []models.ToolCall{{ID: "tu_1", Name: "get_user_context"}}}).
		Respond(&Response{StopReason: StopEndTurn, Text: "listo"})

	r1, err := stub.CreateTurn(t.Context(), Request{})
	if err != nil {
		t.Fatalf("CreateTurn failed: %v", err)
	}
	if r1.StopReason != StopToolUse {
		t.Errorf("expected tool_use, got %s", r1.StopReason)
	}
	r2, _ := stub.CreateTurn(t.Context(), Request{})
	if r2.StopReason != StopEndTurn {
		t.Errorf("expected end_turn, got %s", r2.StopReason)
	}
	// Script exhausted: last step repeats.
	r3, _ := stub.CreateTurn(t.Context(), Request{})
	if r3.StopReason != StopEndTurn {
		t.Errorf("expected end_turn on repeat, got %s", r3.StopReason)
	}
	if stub.CallCount() != 3 {
		t.Errorf("expected 3 calls, got %d", stub.CallCount())
	}
}
