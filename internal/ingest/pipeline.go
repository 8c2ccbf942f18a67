package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/planeat/planeat/internal/messaging"
	"github.com/planeat/planeat/internal/models"
)

// transcriptionPrefix is prepended by the platform when it transcribes a
// voice note. It is not part of what the user said.
const transcriptionPrefix = "audio transcription:"

// imagePlaceholder stands in for the message text when an image arrives
// without a caption.
const imagePlaceholder = "[Imagen recibida]"

// Processor consumes one normalized inbound message.
type Processor interface {
	ProcessMessage(ctx context.Context, phone, text, mediaURL string) error
}

// Pipeline filters, deduplicates, and normalizes webhook payloads before
// handing them to the conversation flow.
type Pipeline struct {
	proc      Processor
	messenger messaging.Service
	dedup     *DedupCache
}

// NewPipeline creates a pipeline around the given processor. The dedup
// cache is owned by the pipeline; call Start/Stop around its lifetime.
func NewPipeline(proc Processor, messenger messaging.Service, dedup *DedupCache) *Pipeline {
	return &Pipeline{proc: proc, messenger: messenger, dedup: dedup}
}

// Start launches the dedup cache sweeper.
func (p *Pipeline) Start() { p.dedup.Start() }

// Stop halts the dedup cache sweeper.
func (p *Pipeline) Stop() { p.dedup.Stop() }

// Dispatch fans the envelope's payloads out to background goroutines and
// returns immediately. Webhook handlers must acknowledge fast; processing
// a message can take tens of seconds.
func (p *Pipeline) Dispatch(env models.WebhookEnvelope) {
	payloads := []models.WebhookPayload{env.WebhookPayload}
	if env.Batch {
		payloads = env.Data
	}
	for _, payload := range payloads {
		go p.handleSafe(payload)
	}
}

// handleSafe isolates a payload so a panic in one message cannot take
// down the process or sibling payloads.
func (p *Pipeline) handleSafe(payload models.WebhookPayload) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Pipeline.handleSafe: recovered from panic",
				"panic", fmt.Sprintf("%v", r),
				"messageID", payload.Message.ID,
				"phone", payload.Conversation.PhoneNumber)
		}
	}()
	if err := p.Handle(context.Background(), payload); err != nil {
		slog.Error("Pipeline.handleSafe: processing failed",
			"error", err,
			"messageID", payload.Message.ID,
			"phone", payload.Conversation.PhoneNumber)
	}
}

// Handle processes a single payload synchronously. Outbound echoes,
// duplicates, and messages with no usable content are dropped without error.
func (p *Pipeline) Handle(ctx context.Context, payload models.WebhookPayload) error {
	msg := payload.Message
	if !msg.Inbound() {
		slog.Debug("Pipeline.Handle: skipping non-inbound message", "messageID", msg.ID)
		return nil
	}
	phone := payload.Conversation.PhoneNumber
	if phone == "" {
		slog.Debug("Pipeline.Handle: skipping message without phone number", "messageID", msg.ID)
		return nil
	}

	text, mediaURL, ok := extractContent(&msg)
	if !ok {
		slog.Debug("Pipeline.Handle: skipping unsupported message type", "messageID", msg.ID, "type", msg.Type)
		return nil
	}
	if text == "" && mediaURL == "" {
		slog.Debug("Pipeline.Handle: skipping message without content", "messageID", msg.ID, "type", msg.Type)
		return nil
	}

	if msg.ID != "" {
		// Marked before processing so a redelivery racing a slow handler
		// cannot process the same message twice.
		if !p.dedup.MarkIfNew(msg.ID) {
			slog.Debug("Pipeline.Handle: skipping duplicate delivery", "messageID", msg.ID)
			return nil
		}

		if err := p.messenger.MarkRead(ctx, msg.ID); err != nil {
			slog.Warn("Pipeline.Handle: mark read failed", "error", err, "messageID", msg.ID)
		}
	}

	slog.Info("Pipeline.Handle: processing inbound message",
		"messageID", msg.ID, "phone", phone, "type", msg.Type, "hasMedia", mediaURL != "")
	if err := p.proc.ProcessMessage(ctx, phone, text, mediaURL); err != nil {
		return fmt.Errorf("failed to process message %s: %w", msg.ID, err)
	}
	return nil
}

// extractContent pulls the user-visible text and media URL out of the
// message. ok is false for message types the assistant does not handle.
func extractContent(msg *models.WebhookMessage) (text, mediaURL string, ok bool) {
	switch msg.Type {
	case models.MessageTypeText:
		if msg.Text != nil {
			text = msg.Text.Body
		}
		return text, "", true
	case models.MessageTypeAudio:
		if msg.Audio != nil {
			text = stripTranscriptionPrefix(msg.Audio.Transcription)
		}
		return text, "", true
	case models.MessageTypeImage:
		if msg.Image != nil && msg.Image.Caption != "" {
			text = msg.Image.Caption
		} else if msg.Caption != nil && msg.Caption.Body != "" {
			text = msg.Caption.Body
		} else {
			text = imagePlaceholder
		}
		return text, msg.MediaURL(), true
	default:
		return "", "", false
	}
}

// stripTranscriptionPrefix removes the platform's transcription label,
// matching case-insensitively, and trims surrounding whitespace.
func stripTranscriptionPrefix(s string) string {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) >= len(transcriptionPrefix) &&
		strings.EqualFold(trimmed[:len(transcriptionPrefix)], transcriptionPrefix) {
		trimmed = strings.TrimSpace(trimmed[len(transcriptionPrefix):])
	}
	return trimmed
}
