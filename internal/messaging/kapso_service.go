package messaging

import (
	"context"
	"log/slog"

	"github.com/planeat/planeat/internal/kapso"
)

// KapsoService adapts the Kapso client to the Service interface.
type KapsoService struct {
	client *kapso.Client
}

// NewKapsoService creates a messaging service backed by the Kapso client.
func NewKapsoService(client *kapso.Client) *KapsoService {
	return &KapsoService{client: client}
}

// ValidateAndCanonicalizeRecipient validates and canonicalizes a phone number.
func (s *KapsoService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return CanonicalizePhone(recipient)
}

// SendMessage sends a text message through Kapso.
func (s *KapsoService) SendMessage(ctx context.Context, to, body string) error {
	canonical, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("KapsoService.SendMessage: invalid recipient", "error", err, "to", to)
		return err
	}
	return s.client.SendText(ctx, canonical, body)
}

// SendImage sends an image by URL through Kapso.
func (s *KapsoService) SendImage(ctx context.Context, to, imageURL, caption string) error {
	canonical, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("KapsoService.SendImage: invalid recipient", "error", err, "to", to)
		return err
	}
	return s.client.SendImage(ctx, canonical, imageURL, caption)
}

// SendReaction reacts to an inbound message. Failures never propagate.
func (s *KapsoService) SendReaction(ctx context.Context, to, messageID, emoji string) error {
	canonical, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Warn("KapsoService.SendReaction: invalid recipient (non-blocking)", "error", err, "to", to)
		return nil
	}
	return s.client.SendReaction(ctx, canonical, messageID, emoji)
}

// MarkRead marks an inbound message as read with a typing indicator.
func (s *KapsoService) MarkRead(ctx context.Context, messageID string) error {
	return s.client.MarkRead(ctx, messageID, true)
}
