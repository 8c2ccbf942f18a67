package kapso

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(
		WithBaseURL(srv.URL),
		WithAPIKey("test-key"),
		WithPhoneNumberID("12345"),
		WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c, srv
}

func TestSendTextPayload(t *testing.T) {
	var got map[string]any
	var gotPath, gotKey string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-API-Key")
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))

	if err := c.SendText(context.Background(), "56911111111", "hola"); err != nil {
		t.Fatalf("SendText failed: %v", err)
	}
	if gotPath != "/12345/messages" {
		t.Errorf("expected path /12345/messages, got %s", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("expected API key header, got %q", gotKey)
	}
	if got["to"] != "56911111111" || got["type"] != "text" {
		t.Errorf("unexpected payload: %v", got)
	}
	text, _ := got["text"].(map[string]any)
	if text["body"] != "hola" {
		t.Errorf("expected body hola, got %v", text)
	}
}

func TestSendTextRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	if err := c.SendText(context.Background(), "56911111111", "hola"); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestSendTextNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))

	if err := c.SendText(context.Background(), "56911111111", "hola"); err == nil {
		t.Fatal("expected error for 422 response")
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 attempt for client error, got %d", calls.Load())
	}
}

func TestSendTextGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	if err := c.SendText(context.Background(), "56911111111", "hola"); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls.Load() != MaxRetries {
		t.Errorf("expected %d attempts, got %d", MaxRetries, calls.Load())
	}
}

func TestMarkReadSkipsSimulatedIDs(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))

	for _, id := range []string{"landing-1700000000", "test-42"} {
		if err := c.MarkRead(context.Background(), id, true); err != nil {
			t.Fatalf("MarkRead(%s) failed: %v", id, err)
		}
	}
	if calls.Load() != 0 {
		t.Errorf("expected no API calls for simulated ids, got %d", calls.Load())
	}

	if err := c.MarkRead(context.Background(), "wamid.real", true); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 API call for real id, got %d", calls.Load())
	}
}

func TestSendReactionSwallowsFailures(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	// Reactions are decorative; API failures must not propagate.
	if err := c.SendReaction(context.Background(), "56911111111", "wamid.real", "👍"); err != nil {
		t.Fatalf("expected reaction failure to be swallowed, got %v", err)
	}
}

func TestIsSimulatedMessageID(t *testing.T) {
	cases := []struct {
		id   string
		want bool
	}{
		{"landing-1700000000", true},
		{"test-1", true},
		{"wamid.HBgLNTY5", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsSimulatedMessageID(tc.id); got != tc.want {
			t.Errorf("IsSimulatedMessageID(%q) = %v, want %v", tc.id, got, tc.want)
		}
	}
}
