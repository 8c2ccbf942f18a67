package flow

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/planeat/planeat/internal/engine"
	"github.com/planeat/planeat/internal/messaging"
	"github.com/planeat/planeat/internal/models"
	"github.com/planeat/planeat/internal/store"
)

func endTurnResponse(text string) *engine.Response {
	return &engine.Response{
		StopReason: engine.StopEndTurn,
		Blocks:     []models.ContentBlock{{Type: models.BlockText, Text: text}},
		Text:       text,
	}
}

func TestProcessMessageNewUserSavesSessionAndHistory(t *testing.T) {
	st := store.NewInMemoryStore()
	stub := engine.NewStubClient().Respond(endTurnResponse("¡Hola! 👋"))
	f := NewConversationFlow(st, stub, &recordingExecutor{}, messaging.NewMockService())

	if err := f.ProcessMessage(context.Background(), "56911111111", "hola", ""); err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}

	conv, err := st.GetConversation("56911111111")
	if err != nil || conv == nil {
		t.Fatalf("expected conversation row, got %v, %v", conv, err)
	}
	if conv.SessionID == nil || *conv.SessionID == "" {
		t.Error("expected fresh session id saved")
	}
	if conv.CurrentIntent == nil || *conv.CurrentIntent != string(models.IntentOnboarding) {
		t.Errorf("expected onboarding intent, got %v", conv.CurrentIntent)
	}

	var state models.ConversationState
	if err := json.Unmarshal(conv.State, &state); err != nil {
		t.Fatalf("failed to decode state: %v", err)
	}
	if len(state.Messages) != 2 {
		t.Fatalf("expected user and assistant turns persisted, got %d", len(state.Messages))
	}

	reqs := stub.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected one engine call, got %d", len(reqs))
	}
	if reqs[0].System == "" {
		t.Error("expected a system prompt on the engine request")
	}
}

func TestProcessMessageResumedFailureRetriesFresh(t *testing.T) {
	st := store.NewInMemoryStore()
	if err := st.EnsureUser("56911111111"); err != nil {
		t.Fatal(err)
	}
	old := "session-old"
	st.PutConversation(models.Conversation{
		PhoneNumber:   "56911111111",
		SessionID:     &old,
		LastMessageAt: time.Now(),
	})

	stub := engine.NewStubClient().
		Fail(errors.New("boom")).
		Respond(endTurnResponse("listo"))
	f := NewConversationFlow(st, stub, &recordingExecutor{}, messaging.NewMockService())

	if err := f.ProcessMessage(context.Background(), "56911111111", "hola", ""); err != nil {
		t.Fatalf("expected retry with fresh session to succeed, got %v", err)
	}
	if stub.CallCount() != 2 {
		t.Fatalf("expected 2 engine calls, got %d", stub.CallCount())
	}

	conv, _ := st.GetConversation("56911111111")
	if conv.SessionID == nil || *conv.SessionID == old {
		t.Errorf("expected a replaced session id, got %v", conv.SessionID)
	}
}

func TestProcessMessageResumedSuccessKeepsSession(t *testing.T) {
	st := store.NewInMemoryStore()
	if err := st.EnsureUser("56911111111"); err != nil {
		t.Fatal(err)
	}
	old := "session-old"
	st.PutConversation(models.Conversation{
		PhoneNumber:   "56911111111",
		SessionID:     &old,
		LastMessageAt: time.Now(),
	})

	stub := engine.NewStubClient().Respond(endTurnResponse("listo"))
	f := NewConversationFlow(st, stub, &recordingExecutor{}, messaging.NewMockService())

	if err := f.ProcessMessage(context.Background(), "56911111111", "hola", ""); err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}

	conv, _ := st.GetConversation("56911111111")
	if conv.SessionID == nil || *conv.SessionID != old {
		t.Errorf("expected resumed session id kept, got %v", conv.SessionID)
	}
}

func TestProcessMessagePersistsPartialProgressOnFailure(t *testing.T) {
	st := store.NewInMemoryStore()
	stub := engine.NewStubClient().Fail(errors.New("boom"))
	f := NewConversationFlow(st, stub, &recordingExecutor{}, messaging.NewMockService())

	if err := f.ProcessMessage(context.Background(), "56911111111", "hola", ""); err == nil {
		t.Fatal("expected error to surface")
	}

	conv, err := st.GetConversation("56911111111")
	if err != nil || conv == nil {
		t.Fatalf("expected conversation persisted despite failure, got %v, %v", conv, err)
	}
	var state models.ConversationState
	if err := json.Unmarshal(conv.State, &state); err != nil {
		t.Fatalf("failed to decode state: %v", err)
	}
	if len(state.Messages) != 1 {
		t.Errorf("expected the user turn persisted, got %d turns", len(state.Messages))
	}
}

func TestProcessMessageImageAddsImageBlock(t *testing.T) {
	st := store.NewInMemoryStore()
	stub := engine.NewStubClient().Respond(endTurnResponse("vi tu lista"))
	f := NewConversationFlow(st, stub, &recordingExecutor{}, messaging.NewMockService())

	err := f.ProcessMessage(context.Background(), "56911111111", "mi lista", "https://media.example.com/lista.jpg")
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}

	reqs := stub.Requests()
	userTurn := reqs[0].Messages[len(reqs[0].Messages)-1]
	if len(userTurn.Blocks) != 2 || userTurn.Blocks[0].Type != models.BlockImage {
		t.Errorf("expected image block leading the user turn, got %+v", userTurn.Blocks)
	}
}
