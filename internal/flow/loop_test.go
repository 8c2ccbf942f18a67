package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/planeat/planeat/internal/engine"
	"github.com/planeat/planeat/internal/messaging"
	"github.com/planeat/planeat/internal/models"
)

// recordingExecutor returns a canned success payload for every tool call.
type recordingExecutor struct {
	mu    sync.Mutex
	calls []models.ToolCall
}

func (e *recordingExecutor) Execute(ctx context.Context, call models.ToolCall) models.ToolResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, call)
	return models.ToolResult{ToolCallID: call.ID, Content: `{"success":true}`}
}

func (e *recordingExecutor) Schemas() []engine.ToolSchema {
	return []engine.ToolSchema{{Name: "send_whatsapp_message"}}
}

func (e *recordingExecutor) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

func toolUseResponse(id, name string) *engine.Response {
	return &engine.Response{
		StopReason: engine.StopToolUse,
		Blocks: []models.ContentBlock{
			{Type: models.BlockToolUse, ID: id, Name: name, Input: json.RawMessage(`{}`)},
		},
		ToolCalls: []models.ToolCall{{ID: id, Name: name, Input: json.RawMessage(`{}`)}},
	}
}

func TestLoopCompletesOnEndTurn(t *testing.T) {
	stub := engine.NewStubClient().
		Respond(toolUseResponse("tu-1", "send_whatsapp_message")).
		Respond(&engine.Response{StopReason: engine.StopEndTurn, Text: "listo"})
	exec := &recordingExecutor{}
	loop := NewLoop(stub, exec, messaging.NewMockService())

	turns, state, err := loop.Run(context.Background(), "56911111111", "system", []models.Turn{
		models.TextTurn(models.RoleUser, "hola"),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if state != StateDone {
		t.Errorf("expected DONE, got %s", state)
	}
	if exec.callCount() != 1 {
		t.Errorf("expected 1 tool execution, got %d", exec.callCount())
	}
	// user, assistant tool_use, tool results, final assistant
	if len(turns) != 4 {
		t.Fatalf("expected 4 turns, got %d", len(turns))
	}
	if turns[2].Role != models.RoleUser || turns[2].Blocks[0].Type != models.BlockToolResult {
		t.Errorf("expected tool results as user turn, got %+v", turns[2])
	}
}

func TestLoopFailsAfterIterationBound(t *testing.T) {
	stub := engine.NewStubClient()
	for i := 0; i < MaxIterations; i++ {
		stub.Respond(toolUseResponse(fmt.Sprintf("tu-%d", i), "send_whatsapp_message"))
	}
	exec := &recordingExecutor{}
	loop := NewLoop(stub, exec, messaging.NewMockService())

	turns, state, err := loop.Run(context.Background(), "56911111111", "system", []models.Turn{
		models.TextTurn(models.RoleUser, "hola"),
	})
	if err == nil {
		t.Fatal("expected error after iteration bound")
	}
	if state != StateFailed {
		t.Errorf("expected FAILED, got %s", state)
	}
	if stub.CallCount() != MaxIterations {
		t.Errorf("expected exactly %d engine calls, got %d", MaxIterations, stub.CallCount())
	}
	if len(turns) == 0 {
		t.Error("expected partial turns returned for persistence")
	}
}

func TestLoopRateLimitNotifiesUser(t *testing.T) {
	stub := engine.NewStubClient().Fail(fmt.Errorf("%w: 429", engine.ErrRateLimited))
	msg := messaging.NewMockService()
	loop := NewLoop(stub, &recordingExecutor{}, msg)

	_, state, err := loop.Run(context.Background(), "56911111111", "system", []models.Turn{
		models.TextTurn(models.RoleUser, "hola"),
	})
	if state != StateFailed || !engine.IsRateLimit(err) {
		t.Fatalf("expected rate limit failure, got state %s err %v", state, err)
	}

	sent := msg.SentMessages()
	if len(sent) != 1 {
		t.Fatalf("expected exactly one busy notice, got %d", len(sent))
	}
	if sent[0].To != "56911111111" || !strings.Contains(sent[0].Body, "ocupado") {
		t.Errorf("unexpected busy notice: %+v", sent[0])
	}
}

func TestLoopOtherEngineErrorsSendNothing(t *testing.T) {
	stub := engine.NewStubClient().Fail(errors.New("boom"))
	msg := messaging.NewMockService()
	loop := NewLoop(stub, &recordingExecutor{}, msg)

	_, state, err := loop.Run(context.Background(), "56911111111", "system", nil)
	if state != StateFailed || err == nil {
		t.Fatalf("expected failure, got state %s err %v", state, err)
	}
	if len(msg.SentMessages()) != 0 {
		t.Errorf("expected no user notice on generic errors, got %d", len(msg.SentMessages()))
	}
}

func TestLoopStopsCleanlyOnRefusal(t *testing.T) {
	stub := engine.NewStubClient().Respond(&engine.Response{StopReason: engine.StopRefusal})
	loop := NewLoop(stub, &recordingExecutor{}, messaging.NewMockService())

	_, state, err := loop.Run(context.Background(), "56911111111", "system", nil)
	if err != nil {
		t.Fatalf("refusal should not error: %v", err)
	}
	if state != StateDone {
		t.Errorf("expected DONE on refusal, got %s", state)
	}
}
