// Package frest wraps the Frest grocery e-commerce bot API.
//
// Frest exposes a Spanish-language REST API for user lookup, registration,
// addresses, product queries, and order creation. Requests authenticate
// with a bot API key header, retry on server and network errors, and are
// throttled client-side to the documented per-minute quota.
package frest

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
	"sync"
	"time"
)

// Request configuration mirroring the Frest bot API documentation.
const (
	MaxRetries     = 3
	RetryDelay     = time.Second
	RequestTimeout = 30 * time.Second
	RateLimit      = 100 // requests per minute
)

// Opts holds configuration options for the Frest client.
type Opts struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// Option defines a configuration option for the Frest client.
type Option func(*Opts)

// WithBaseURL sets the Frest deployment base URL (without the /api/bot path).
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithAPIKey sets the bot API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = c }
}

// Client calls the Frest bot API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client

	mu         sync.Mutex
	requests   int
	windowFrom time.Time
}

// NewClient creates a Frest client, falling back to FREST_API_URL and
// FREST_API_KEY environment variables for unset options.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("FREST_API_URL")
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("FREST_API_KEY")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("frest API URL not set")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("frest API key not set")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: RequestTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/") + "/api/bot",
		apiKey:     cfg.APIKey,
		http:       cfg.HTTPClient,
		windowFrom: time.Now(),
	}, nil
}

// Error is a failure reported by the Frest API.
type Error struct {
	StatusCode int
	Errores    []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("frest API error: status %d: %s", e.StatusCode, strings.Join(e.Errores, ", "))
}

// checkRateLimit enforces the client-side per-minute quota.
func (c *Client) checkRateLimit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if now.Sub(c.windowFrom) >= time.Minute {
		c.requests = 0
		c.windowFrom = now
	}
	if c.requests >= RateLimit {
		return &Error{StatusCode: http.StatusTooManyRequests, Errores: []string{"Rate limit excedido. Máximo 100 requests por minuto."}}
	}
	c.requests++
	return nil
}

// BuscarUsuarioPorTelefono looks up a user by phone (digits only, no plus).
func (c *Client) BuscarUsuarioPorTelefono(ctx context.Context, telefono string) (*BuscarUsuarioResponse, error) {
	var out BuscarUsuarioResponse
	if err := c.call(ctx, http.MethodPost, "/usuarios/buscar-por-telefono", BuscarUsuarioRequest{Telefono: telefono}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RegistrarUsuario registers a new user without a password; the user gets
// an email verification code.
func (c *Client) RegistrarUsuario(ctx context.Context, req RegistrarUsuarioRequest) (*RegistrarUsuarioResponse, error) {
	var out RegistrarUsuarioResponse
	if err := c.call(ctx, http.MethodPost, "/usuarios/registrar", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CrearDireccion creates a delivery address for a user.
func (c *Client) CrearDireccion(ctx context.Context, userID int64, req CrearDireccionRequest) (*CrearDireccionResponse, error) {
	var out CrearDireccionResponse
	if err := c.call(ctx, http.MethodPost, fmt.Sprintf("/usuarios/%d/direcciones", userID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConsultarProductos queries products by name with live prices and stock,
// including alternatives for items that are unavailable.
func (c *Client) ConsultarProductos(ctx context.Context, req ConsultarProductosRequest) (*ConsultarProductosResponse, error) {
	if req.BodegaID == 0 {
		req.BodegaID = 1
	}
	var out ConsultarProductosResponse
	if err := c.call(ctx, http.MethodPost, "/productos/consultar", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CrearPedido creates a complete order and returns the payment link.
func (c *Client) CrearPedido(ctx context.Context, req CrearPedidoRequest) (*CrearPedidoResponse, error) {
	var out CrearPedidoResponse
	if err := c.call(ctx, http.MethodPost, "/pedidos/crear", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConsultarEstadoPedido returns the current state of an order.
func (c *Client) ConsultarEstadoPedido(ctx context.Context, pedidoID int64) (*EstadoPedidoResponse, error) {
	var out EstadoPedidoResponse
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/pedidos/%d/estado", pedidoID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// call issues one API request with retry and decodes the data envelope.
func (c *Client) call(ctx context.Context, method, path string, payload, out any) error {
	if err := c.checkRateLimit(); err != nil {
		return err
	}

	var body []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = b
	}
	url := c.baseURL + path

	var lastErr error
	for attempt := 1; attempt <= MaxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(RetryDelay):
			}
			slog.Debug("frest.Client.call: retrying", "url", url, "attempt", attempt)
		}
		lastErr = c.do(ctx, method, url, body, out)
		if lastErr == nil {
			return nil
		}
		var fe *Error
		if errors.As(lastErr, &fe) && fe.StatusCode > 0 && fe.StatusCode < http.StatusInternalServerError {
			// Client-side API errors are not retryable.
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Bot-Api-Key", c.apiKey)

	slog.Debug("frest.Client.do: request", "method", method, "url", url)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		if resp.StatusCode >= http.StatusInternalServerError {
			return &Error{StatusCode: resp.StatusCode, Errores: []string{"respuesta inválida del servidor"}}
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest || envelope.Estado == "error" {
		errores := envelope.Errores
		if len(errores) == 0 {
			if envelope.Mensaje != "" {
				errores = []string{envelope.Mensaje}
			} else {
				errores = []string{"Error desconocido"}
			}
		}
		return &Error{StatusCode: resp.StatusCode, Errores: errores}
	}
	if out != nil && envelope.Data != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}

// apiResponse is the common {estado, data, errores, mensaje} envelope.
type apiResponse struct {
	Estado  string          `json:"estado"`
	Data    json.RawMessage `json:"data,omitempty"`
	Errores []string        `json:"errores,omitempty"`
	Mensaje string          `json:"mensaje,omitempty"`
}
