// Package messaging defines the outbound message delivery abstraction for
// PlanEat and its Kapso-backed implementation.
package messaging

import (
	"context"
	"fmt"
	"strings"
)

// Service defines a pluggable message delivery abstraction.
type Service interface {
	// ValidateAndCanonicalizeRecipient validates and canonicalizes a
	// recipient phone number.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendMessage sends a text message to a recipient.
	SendMessage(ctx context.Context, to string, body string) error

	// SendImage sends an image by public URL with an optional caption.
	SendImage(ctx context.Context, to string, imageURL string, caption string) error

	// SendReaction reacts to an inbound message with an emoji. Best-effort:
	// implementations log and swallow delivery failures.
	SendReaction(ctx context.Context, to string, messageID string, emoji string) error

	// MarkRead marks an inbound message as read with a typing indicator.
	// Best-effort like SendReaction.
	MarkRead(ctx context.Context, messageID string) error
}

// CanonicalizePhone strips formatting characters and a leading plus sign,
// returning digits only. WhatsApp ids are E.164 numbers without the plus.
func CanonicalizePhone(recipient string) (string, error) {
	s := strings.TrimSpace(recipient)
	s = strings.TrimPrefix(s, "+")
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, s)
	if cleaned == "" {
		return "", fmt.Errorf("recipient cannot be empty")
	}
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("invalid character %q in recipient %q", r, recipient)
		}
	}
	if len(cleaned) < 8 || len(cleaned) > 15 {
		return "", fmt.Errorf("recipient %q is not a valid phone number length", recipient)
	}
	return cleaned, nil
}
