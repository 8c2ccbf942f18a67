package models

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestSendMessageParamsValidation(t *testing.T) {
	p := SendMessageParams{To: "56911111111", Message: "hola"}
	if err := p.Validate(); err != nil {
		t.Errorf("valid params rejected: %v", err)
	}

	p = SendMessageParams{Message: "hola"}
	if err := p.Validate(); !errors.Is(err, ErrEmptyPhoneNumber) {
		t.Errorf("expected ErrEmptyPhoneNumber, got %v", err)
	}

	p = SendMessageParams{To: "56911111111"}
	if err := p.Validate(); !errors.Is(err, ErrEmptyMessageBody) {
		t.Errorf("expected ErrEmptyMessageBody, got %v", err)
	}
}

func TestCreateHouseholdParamsValidation(t *testing.T) {
	p := CreateHouseholdParams{AdminPhone: "56911111111"}
	if err := p.Validate(); err != nil {
		t.Errorf("valid params rejected: %v", err)
	}

	p.AdminPhone = ""
	if err := p.Validate(); !errors.Is(err, ErrEmptyAdminPhone) {
		t.Errorf("expected ErrEmptyAdminPhone, got %v", err)
	}
}

func TestAddHouseholdMembersParamsValidation(t *testing.T) {
	p := AddHouseholdMembersParams{HouseholdID: 1}
	if err := p.Validate(); !errors.Is(err, ErrNoMembers) {
		t.Errorf("expected ErrNoMembers, got %v", err)
	}

	p.Members = []MemberParams{{Name: ""}}
	if err := p.Validate(); !errors.Is(err, ErrEmptyMemberName) {
		t.Errorf("expected ErrEmptyMemberName, got %v", err)
	}

	p.HouseholdID = 0
	p.Members = []MemberParams{{Name: "Luis"}}
	if err := p.Validate(); !errors.Is(err, ErrInvalidHouseholdID) {
		t.Errorf("expected ErrInvalidHouseholdID, got %v", err)
	}
}

func TestTurnToolUseIDs(t *testing.T) {
	turn := Turn{
		Role: RoleAssistant,
		Blocks: []ContentBlock{
			{Type: BlockText, Text: "listo"},
			{Type: BlockToolUse, ID: "tu-1", Name: ToolSendWhatsAppMessage},
			{Type: BlockToolUse, ID: "tu-2", Name: ToolGetUserContext},
		},
	}
	ids := turn.ToolUseIDs()
	if len(ids) != 2 || ids[0] != "tu-1" || ids[1] != "tu-2" {
		t.Errorf("unexpected tool use ids: %v", ids)
	}

	text := TextTurn(RoleUser, "hola")
	if got := text.ToolUseIDs(); len(got) != 0 {
		t.Errorf("text turn should have no tool use ids, got %v", got)
	}
}

func TestTurnEmpty(t *testing.T) {
	if !(&Turn{Role: RoleUser}).Empty() {
		t.Error("turn without content should be empty")
	}
	if (&Turn{Role: RoleUser, Text: "hola"}).Empty() {
		t.Error("text turn should not be empty")
	}
}

func TestConversationStateRoundTrip(t *testing.T) {
	state := ConversationState{Messages: []Turn{
		TextTurn(RoleUser, "hola"),
		{Role: RoleAssistant, Blocks: []ContentBlock{
			{Type: BlockToolUse, ID: "tu-1", Name: ToolGetUserContext, Input: json.RawMessage(`{"phone":"56911111111"}`)},
		}},
		{Role: RoleUser, Blocks: []ContentBlock{
			{Type: BlockToolResult, ToolUseID: "tu-1", Content: `{"exists":false}`},
		}},
	}}

	raw, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var decoded ConversationState
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(decoded.Messages) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(decoded.Messages))
	}
	if decoded.Messages[1].Blocks[0].ID != "tu-1" {
		t.Errorf("tool use id lost in round trip: %+v", decoded.Messages[1].Blocks[0])
	}
	if decoded.Messages[2].Blocks[0].ToolUseID != "tu-1" {
		t.Errorf("tool result linkage lost: %+v", decoded.Messages[2].Blocks[0])
	}
}

func TestWebhookMessageInbound(t *testing.T) {
	m := WebhookMessage{Kapso: &KapsoMetadata{Direction: DirectionInbound}}
	if !m.Inbound() {
		t.Error("inbound message not detected")
	}
	m.Kapso.Direction = "outbound"
	if m.Inbound() {
		t.Error("outbound message reported as inbound")
	}
	m.Kapso = nil
	if m.Inbound() {
		t.Error("message without metadata reported as inbound")
	}
}

func TestWebhookMessageMediaURLPrefersMediaData(t *testing.T) {
	m := WebhookMessage{Kapso: &KapsoMetadata{
		MediaURL:  "https://flat.example.com/a.jpg",
		MediaData: &MediaData{URL: "https://structured.example.com/a.jpg"},
	}}
	if got := m.MediaURL(); got != "https://structured.example.com/a.jpg" {
		t.Errorf("expected structured media URL preferred, got %q", got)
	}
	m.Kapso.MediaData = nil
	if got := m.MediaURL(); got != "https://flat.example.com/a.jpg" {
		t.Errorf("expected flat media URL fallback, got %q", got)
	}
}
