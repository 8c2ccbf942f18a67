package models

// Webhook payload structures for the Kapso WhatsApp platform.
// Kapso delivers events either as a single payload or wrapped in a
// batch envelope with a data array.

// MessageType enumerates the Kapso message media types.
type MessageType string

const (
	MessageTypeText        MessageType = "text"
	MessageTypeImage       MessageType = "image"
	MessageTypeAudio       MessageType = "audio"
	MessageTypeVideo       MessageType = "video"
	MessageTypeDocument    MessageType = "document"
	MessageTypeLocation    MessageType = "location"
	MessageTypeContacts    MessageType = "contacts"
	MessageTypeInteractive MessageType = "interactive"
)

// DirectionInbound marks messages sent by the end user; everything else
// is an echo of the bot's own sends and must be ignored.
const DirectionInbound = "inbound"

// WebhookEnvelope is the raw POST body. When Batch is set, Data holds
// the individual payloads; otherwise the envelope itself decodes as a
// single WebhookPayload.
type WebhookEnvelope struct {
	Batch bool             `json:"batch,omitempty"`
	Data  []WebhookPayload `json:"data,omitempty"`
	WebhookPayload
}

// WebhookPayload is a single Kapso message event.
type WebhookPayload struct {
	Message           WebhookMessage      `json:"message"`
	Conversation      WebhookConversation `json:"conversation"`
	IsNewConversation bool                `json:"is_new_conversation,omitempty"`
	PhoneNumberID     string              `json:"phone_number_id,omitempty"`
}

// WebhookMessage carries the message content plus Kapso metadata.
type WebhookMessage struct {
	ID        string         `json:"id"`
	Timestamp string         `json:"timestamp,omitempty"`
	Type      MessageType    `json:"type"`
	Text      *TextContent   `json:"text,omitempty"`
	Image     *ImageContent  `json:"image,omitempty"`
	Audio     *AudioContent  `json:"audio,omitempty"`
	Caption   *TextContent   `json:"caption,omitempty"`
	Kapso     *KapsoMetadata `json:"kapso,omitempty"`
}

// TextContent holds a plain text body.
type TextContent struct {
	Body string `json:"body"`
}

// ImageContent describes an inbound image attachment.
type ImageContent struct {
	Caption  string `json:"caption,omitempty"`
	ID       string `json:"id,omitempty"`
	Link     string `json:"link,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

// AudioContent describes an inbound voice note or audio file.
// Transcription is populated when the platform has transcription enabled.
type AudioContent struct {
	ID            string `json:"id,omitempty"`
	Voice         bool   `json:"voice,omitempty"`
	Link          string `json:"link,omitempty"`
	MimeType      string `json:"mime_type,omitempty"`
	Transcription string `json:"transcription,omitempty"`
}

// KapsoMetadata is platform-side delivery metadata attached to each message.
type KapsoMetadata struct {
	Direction        string     `json:"direction"`
	Status           string     `json:"status,omitempty"`
	ProcessingStatus string     `json:"processing_status,omitempty"`
	Origin           string     `json:"origin,omitempty"`
	HasMedia         bool       `json:"has_media,omitempty"`
	MediaURL         string     `json:"media_url,omitempty"`
	MediaData        *MediaData `json:"media_data,omitempty"`
}

// MediaData describes hosted media for messages with attachments.
type MediaData struct {
	URL         string `json:"url"`
	Filename    string `json:"filename,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	ByteSize    int64  `json:"byte_size,omitempty"`
}

// WebhookConversation identifies the WhatsApp conversation the message
// belongs to.
type WebhookConversation struct {
	ID            string `json:"id"`
	PhoneNumber   string `json:"phone_number"`
	Status        string `json:"status,omitempty"`
	PhoneNumberID string `json:"phone_number_id,omitempty"`
}

// Inbound reports whether the message was sent by the end user.
func (m *WebhookMessage) Inbound() bool {
	return m.Kapso != nil && m.Kapso.Direction == DirectionInbound
}

// MediaURL returns the hosted media URL for the message, preferring the
// structured media_data form over the flat field.
func (m *WebhookMessage) MediaURL() string {
	if m.Kapso == nil {
		return ""
	}
	if m.Kapso.MediaData != nil && m.Kapso.MediaData.URL != "" {
		return m.Kapso.MediaData.URL
	}
	return m.Kapso.MediaURL
}
