// Package imagegen generates dish photos with the Gemini image model and
// stores them on local disk for serving over HTTP.
package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	DefaultBaseURL   = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel     = "gemini-2.5-flash-image"
	DefaultOutputDir = "generated-images"
	RequestTimeout   = 30 * time.Second
)

// Opts holds configuration for the image generation client.
type Opts struct {
	BaseURL    string
	APIKey     string
	Model      string
	OutputDir  string
	PublicURL  string
	HTTPClient *http.Client
}

// Option configures the client.
type Option func(*Opts)

// WithBaseURL overrides the Gemini API base URL, mainly for tests.
func WithBaseURL(u string) Option { return func(o *Opts) { o.BaseURL = u } }

// WithAPIKey sets the Google API key.
func WithAPIKey(k string) Option { return func(o *Opts) { o.APIKey = k } }

// WithModel overrides the image generation model.
func WithModel(m string) Option { return func(o *Opts) { o.Model = m } }

// WithOutputDir sets the directory generated images are written to.
func WithOutputDir(d string) Option { return func(o *Opts) { o.OutputDir = d } }

// WithPublicURL sets the base URL images are served from.
func WithPublicURL(u string) Option { return func(o *Opts) { o.PublicURL = u } }

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) Option { return func(o *Opts) { o.HTTPClient = c } }

// Client generates dish images and persists them to disk.
type Client struct {
	baseURL   string
	apiKey    string
	model     string
	outputDir string
	publicURL string
	http      *http.Client
	nowFunc   func() time.Time
}

// NewClient creates an image generation client, falling back to the
// GOOGLE_API_KEY and PUBLIC_URL environment variables for unset options.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GOOGLE_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Google API key not set")
	}
	if cfg.PublicURL == "" {
		cfg.PublicURL = os.Getenv("PUBLIC_URL")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: RequestTimeout}
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image output dir: %w", err)
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		outputDir: cfg.OutputDir,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		http:      cfg.HTTPClient,
		nowFunc:   time.Now,
	}, nil
}

// OutputDir returns the directory generated images are written to. The HTTP
// layer serves this directory under /images/.
func (c *Client) OutputDir() string { return c.outputDir }

// GenerateDishImage renders a food photo for the named dish, writes it to the
// output directory, and returns the public URL it will be served from.
func (c *Client) GenerateDishImage(ctx context.Context, dishName, description string) (string, error) {
	prompt := buildPrompt(dishName, description)
	data, err := c.generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	filename := fmt.Sprintf("%d-%s.png", c.nowFunc().UnixMilli(), slugify(dishName))
	path := filepath.Join(c.outputDir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}
	slog.Info("imagegen.Client.GenerateDishImage: image saved", "dish", dishName, "path", path, "bytes", len(data))

	return c.publicURL + "/images/" + filename, nil
}

// generate calls the generateContent endpoint and returns decoded image bytes.
func (c *Client) generate(ctx context.Context, prompt string) ([]byte, error) {
	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image generation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		slog.Error("imagegen.Client.generate: API error", "status", resp.StatusCode, "body", string(b))
		return nil, fmt.Errorf("image generation failed: status %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	for _, cand := range out.Candidates {
		for _, p := range cand.Content.Parts {
			if p.InlineData == nil || p.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("failed to decode image data: %w", err)
			}
			return data, nil
		}
	}
	return nil, fmt.Errorf("no image data in response")
}

func buildPrompt(dishName, description string) string {
	prompt := fmt.Sprintf("Professional food photography of %s.", dishName)
	if description != "" {
		prompt += " " + description + "."
	}
	return prompt + " High quality, appetizing, well-lit, restaurant-style presentation on a white plate."
}

// slugify turns a dish name into a filesystem-safe lowercase token.
func slugify(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}
