package messaging

import (
	"context"
	"sync"
)

// SentMessage records one outbound text message captured by MockService.
type SentMessage struct {
	To   string
	Body string
}

// SentImage records one outbound image captured by MockService.
type SentImage struct {
	To      string
	URL     string
	Caption string
}

// SentReaction records one outbound reaction captured by MockService.
type SentReaction struct {
	To        string
	MessageID string
	Emoji     string
}

// MockService implements Service for tests, recording every call.
type MockService struct {
	mu        sync.Mutex
	Messages  []SentMessage
	Images    []SentImage
	Reactions []SentReaction
	ReadIDs   []string

	// SendErr, when set, is returned by SendMessage and SendImage.
	SendErr error
}

// NewMockService creates an empty recording mock.
func NewMockService() *MockService {
	return &MockService{}
}

// ValidateAndCanonicalizeRecipient applies the shared canonicalization.
func (m *MockService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return CanonicalizePhone(recipient)
}

// SendMessage records the message.
func (m *MockService) SendMessage(ctx context.Context, to, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendErr != nil {
		return m.SendErr
	}
	m.Messages = append(m.Messages, SentMessage{To: to, Body: body})
	return nil
}

// SendImage records the image send.
func (m *MockService) SendImage(ctx context.Context, to, imageURL, caption string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendErr != nil {
		return m.SendErr
	}
	m.Images = append(m.Images, SentImage{To: to, URL: imageURL, Caption: caption})
	return nil
}

// SendReaction records the reaction.
func (m *MockService) SendReaction(ctx context.Context, to, messageID, emoji string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reactions = append(m.Reactions, SentReaction{To: to, MessageID: messageID, Emoji: emoji})
	return nil
}

// MarkRead records the read receipt.
func (m *MockService) MarkRead(ctx context.Context, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadIDs = append(m.ReadIDs, messageID)
	return nil
}

// SentMessages returns a copy of the recorded text messages.
func (m *MockService) SentMessages() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMessage, len(m.Messages))
	copy(out, m.Messages)
	return out
}
