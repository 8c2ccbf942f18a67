// Package kapso wraps the Kapso WhatsApp Cloud API for PlanEat.
//
// Kapso fronts the Meta WhatsApp Cloud API; requests authenticate with an
// API key header and target a phone number id. Outbound requests retry on
// server and network errors with a fixed delay.
package kapso

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

// DefaultBaseURL is the hosted Kapso Cloud API endpoint.
const DefaultBaseURL = "https://app.kapso.ai/api/meta"

// Retry and timeout configuration for outbound requests.
const (
	MaxRetries     = 3
	RetryDelay     = time.Second
	RequestTimeout = 30 * time.Second
)

// Simulated message id prefixes. Messages synthesized by the landing page
// or test endpoints never exist on the WhatsApp side, so read receipts and
// reactions for them are skipped.
var simulatedPrefixes = []string{"landing-", "test-"}

// Opts holds configuration options for the Kapso client.
type Opts struct {
	BaseURL       string
	APIKey        string
	PhoneNumberID string
	HTTPClient    *http.Client
}

// Option defines a configuration option for the Kapso client.
type Option func(*Opts)

// WithBaseURL overrides the API base URL.
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithAPIKey sets the Kapso API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithPhoneNumberID sets the WhatsApp phone number id messages are sent from.
func WithPhoneNumberID(id string) Option {
	return func(o *Opts) { o.PhoneNumberID = id }
}

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = c }
}

// Client sends WhatsApp messages through Kapso.
type Client struct {
	baseURL       string
	apiKey        string
	phoneNumberID string
	http          *http.Client
}

// NewClient creates a Kapso client, falling back to environment variables
// KAPSO_API_KEY and KAPSO_PHONE_NUMBER_ID for unset options.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("KAPSO_API_KEY")
	}
	if cfg.PhoneNumberID == "" {
		cfg.PhoneNumberID = os.Getenv("KAPSO_PHONE_NUMBER_ID")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: RequestTimeout}
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("kapso API key not set")
	}
	if cfg.PhoneNumberID == "" {
		return nil, fmt.Errorf("kapso phone number id not set")
	}
	slog.Debug("kapso.NewClient: client created", "base_url", cfg.BaseURL, "phone_number_id", cfg.PhoneNumberID)
	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:        cfg.APIKey,
		phoneNumberID: cfg.PhoneNumberID,
		http:          cfg.HTTPClient,
	}, nil
}

// IsSimulatedMessageID reports whether the message id was synthesized by
// the landing or test endpoints rather than delivered by WhatsApp.
func IsSimulatedMessageID(id string) bool {
	for _, p := range simulatedPrefixes {
		if strings.HasPrefix(id, p) {
			return true
		}
	}
	return false
}

// apiError is a non-2xx response from the Kapso API.
type apiError struct {
	StatusCode int
	Body       string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("kapso API error: status %d: %s", e.StatusCode, e.Body)
}

// SendText sends a plain text message.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]string{"body": body},
	}
	if err := c.post(ctx, "/messages", payload); err != nil {
		slog.Error("Client.SendText: send failed", "error", err, "to", to)
		return fmt.Errorf("failed to send text to %s: %w", to, err)
	}
	slog.Debug("Client.SendText: message sent", "to", to, "length", len(body))
	return nil
}

// SendImage sends an image by public URL with an optional caption.
func (c *Client) SendImage(ctx context.Context, to, imageURL, caption string) error {
	image := map[string]string{"link": imageURL}
	if caption != "" {
		image["caption"] = caption
	}
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "image",
		"image":             image,
	}
	if err := c.post(ctx, "/messages", payload); err != nil {
		slog.Error("Client.SendImage: send failed", "error", err, "to", to)
		return fmt.Errorf("failed to send image to %s: %w", to, err)
	}
	slog.Debug("Client.SendImage: image sent", "to", to, "url", imageURL)
	return nil
}

// SendReaction reacts to a message with an emoji. Failures are logged and
// swallowed: reactions are decorative and must never block the flow.
func (c *Client) SendReaction(ctx context.Context, to, messageID, emoji string) error {
	if IsSimulatedMessageID(messageID) {
		slog.Debug("Client.SendReaction: skipping simulated message", "message_id", messageID)
		return nil
	}
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "reaction",
		"reaction": map[string]string{
			"message_id": messageID,
			"emoji":      emoji,
		},
	}
	if err := c.post(ctx, "/messages", payload); err != nil {
		slog.Warn("Client.SendReaction: send failed (non-blocking)", "error", err, "message_id", messageID)
	}
	return nil
}

// MarkRead marks an inbound message as read, optionally showing a typing
// indicator. Failures are logged and swallowed.
func (c *Client) MarkRead(ctx context.Context, messageID string, showTyping bool) error {
	if IsSimulatedMessageID(messageID) {
		slog.Debug("Client.MarkRead: skipping simulated message", "message_id", messageID)
		return nil
	}
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"status":            "read",
		"message_id":        messageID,
	}
	if showTyping {
		payload["typing_indicator"] = map[string]string{"type": "text"}
	}
	if err := c.post(ctx, "/messages", payload); err != nil {
		slog.Warn("Client.MarkRead: mark read failed (non-blocking)", "error", err, "message_id", messageID)
	}
	return nil
}

// post issues a JSON POST under the phone number id, retrying on network
// errors and 5xx responses.
func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	url := fmt.Sprintf("%s/%s%s", c.baseURL, c.phoneNumberID, path)

	var lastErr error
	for attempt := 1; attempt <= MaxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(RetryDelay):
			}
			slog.Debug("Client.post: retrying", "url", url, "attempt", attempt)
		}
		lastErr = c.doPost(ctx, url, body)
		if lastErr == nil {
			return nil
		}
		var ae *apiError
		if errors.As(lastErr, &ae) && ae.StatusCode < http.StatusInternalServerError {
			// Client errors are not retryable.
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) doPost(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &apiError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
}
