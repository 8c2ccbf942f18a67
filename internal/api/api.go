// Package api exposes the HTTP surface of PlanEat: the Kapso webhook
// endpoints, manual entry points for landing-page and local testing, a
// health check, and static serving of generated recipe images.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/planeat/planeat/internal/ingest"
	"github.com/planeat/planeat/internal/messaging"
	"github.com/planeat/planeat/internal/models"
)

// ShutdownTimeout bounds how long in-flight requests may run during shutdown.
const ShutdownTimeout = 10 * time.Second

// Server wires the HTTP endpoints to the ingestion pipeline.
type Server struct {
	pipeline *ingest.Pipeline
	imageDir string
	srv      *http.Server
}

// NewServer creates a server delegating webhook payloads to the pipeline.
// imageDir, when non-empty, is served read-only under /images/.
func NewServer(pipeline *ingest.Pipeline, imageDir string) *Server {
	return &Server{pipeline: pipeline, imageDir: imageDir}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhooks/whatsapp", s.webhookHandler)
	mux.HandleFunc("/start", s.startHandler)
	mux.HandleFunc("/test/webhook", s.testWebhookHandler)
	mux.HandleFunc("/health", s.healthHandler)
	if s.imageDir != "" {
		mux.Handle("/images/", http.StripPrefix("/images/", http.FileServer(http.Dir(s.imageDir))))
	}
	return mux
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.srv = &http.Server{Addr: addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: listening", "addr", addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to serve HTTP: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Server.Run: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	return nil
}

// webhookHandler serves the Kapso webhook endpoint. GET answers platform
// verification probes; POST acknowledges immediately and processes the
// payload in the background so Kapso never times out waiting on the model.
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	switch r.Method {
	case http.MethodGet:
		s.verifyHandler(w, r)
	case http.MethodPost:
		s.receiveHandler(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		slog.Warn("Server.webhookHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) verifyHandler(w http.ResponseWriter, r *http.Request) {
	challenge := r.URL.Query().Get("hub.challenge")
	if challenge == "" {
		challenge = r.URL.Query().Get("challenge")
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if challenge != "" {
		slog.Debug("Server.verifyHandler: echoing verification challenge")
		fmt.Fprint(w, challenge)
		return
	}
	fmt.Fprint(w, "Webhook endpoint is active")
}

func (s *Server) receiveHandler(w http.ResponseWriter, r *http.Request) {
	var env models.WebhookEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		slog.Warn("Server.receiveHandler: failed to decode webhook payload", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.NewErrorResponse("Invalid JSON format"))
		return
	}

	count := 1
	if env.Batch {
		count = len(env.Data)
	}
	slog.Info("Server.receiveHandler: webhook received", "batch", env.Batch, "payloads", count)

	s.pipeline.Dispatch(env)
	writeJSONResponse(w, http.StatusOK, models.APIResponse{Success: true})
}

// startRequest is the landing-page entry point body.
type startRequest struct {
	Phone string `json:"phone"`
}

// startHandler kicks off a conversation from the landing page by injecting
// a synthetic greeting as if the user had texted first.
func (s *Server) startHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.startHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.NewErrorResponse("Invalid JSON format"))
		return
	}
	phone, err := messaging.CanonicalizePhone(req.Phone)
	if err != nil {
		slog.Warn("Server.startHandler: invalid phone", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.NewErrorResponse(err.Error()))
		return
	}

	slog.Info("Server.startHandler: starting conversation", "phone", phone)
	s.pipeline.Dispatch(syntheticEnvelope("landing", phone, "Hola"))
	writeJSONResponse(w, http.StatusOK, models.NewSuccessResponse("Conversation started", nil))
}

// testWebhookRequest is the local-testing entry point body.
type testWebhookRequest struct {
	Message string `json:"message"`
	From    string `json:"from"`
}

// testWebhookHandler injects an arbitrary inbound message, bypassing Kapso.
// Meant for local development; do not expose in production deployments.
func (s *Server) testWebhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req testWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.testWebhookHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.NewErrorResponse("Invalid JSON format"))
		return
	}
	if req.Message == "" || req.From == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.NewErrorResponse("Missing required fields: message, from"))
		return
	}
	phone, err := messaging.CanonicalizePhone(req.From)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.NewErrorResponse(err.Error()))
		return
	}

	slog.Info("Server.testWebhookHandler: injecting test message", "phone", phone)
	s.pipeline.Dispatch(syntheticEnvelope("test", phone, req.Message))
	writeJSONResponse(w, http.StatusOK, models.NewSuccessResponse("Message queued", nil))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// syntheticEnvelope builds an inbound text payload with a generated message
// id so it flows through the same dedup and routing as real traffic.
func syntheticEnvelope(source, phone, text string) models.WebhookEnvelope {
	return models.WebhookEnvelope{
		WebhookPayload: models.WebhookPayload{
			Message: models.WebhookMessage{
				ID:    source + "-" + uuid.NewString(),
				Type:  models.MessageTypeText,
				Text:  &models.TextContent{Body: text},
				Kapso: &models.KapsoMetadata{Direction: models.DirectionInbound},
			},
			Conversation: models.WebhookConversation{PhoneNumber: phone},
		},
	}
}
