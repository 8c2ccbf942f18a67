package frest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(WithBaseURL(srv.URL), WithAPIKey("bot-key"), WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func TestBuscarUsuarioPorTelefono(t *testing.T) {
	var gotPath, gotKey string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-Bot-Api-Key")
		json.NewEncoder(w).Encode(map[string]any{
			"estado": "ok",
			"data": map[string]any{
				"encontrado": true,
				"data": map[string]any{
					"user_id":         42,
					"nombre_completo": "Maria Perez",
					"celular":         "56911111111",
					"direcciones":     []any{},
				},
				"mensaje": "Usuario encontrado",
			},
		})
	}))

	resp, err := c.BuscarUsuarioPorTelefono(context.Background(), "56911111111")
	if err != nil {
		t.Fatalf("BuscarUsuarioPorTelefono failed: %v", err)
	}
	if gotPath != "/api/bot/usuarios/buscar-por-telefono" {
		t.Errorf("unexpected path %s", gotPath)
	}
	if gotKey != "bot-key" {
		t.Errorf("expected bot API key header, got %q", gotKey)
	}
	if !resp.Encontrado || resp.Data == nil || resp.Data.UserID != 42 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestCallSurfacesAPIErrors(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{
			"estado":  "error",
			"errores": []string{"email inválido"},
		})
	}))

	_, err := c.RegistrarUsuario(context.Background(), RegistrarUsuarioRequest{Nombre: "Maria"})
	if err == nil {
		t.Fatal("expected error")
	}
	var fe *Error
	if !errors.As(err, &fe) {
		t.Fatalf("expected *frest.Error, got %T", err)
	}
	if fe.StatusCode != http.StatusUnprocessableEntity || len(fe.Errores) != 1 {
		t.Errorf("unexpected error detail: %+v", fe)
	}
}

func TestCallRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"estado": "ok",
			"data":   map[string]any{"pedido_id": 7, "estado": "Pagado"},
		})
	}))

	resp, err := c.ConsultarEstadoPedido(context.Background(), 7)
	if err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if resp.PedidoID != 7 || resp.Estado != "Pagado" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestCallDoesNotRetryValidationErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"estado": "error", "errores": []string{"dirección inválida"}})
	}))

	_, err := c.CrearDireccion(context.Background(), 42, CrearDireccionRequest{Calle: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 attempt for validation error, got %d", calls.Load())
	}
}

func TestRateLimitExceeded(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"estado": "ok"})
	}))

	c.mu.Lock()
	c.requests = RateLimit
	c.mu.Unlock()

	_, err := c.BuscarUsuarioPorTelefono(context.Background(), "56911111111")
	var fe *Error
	if !errors.As(err, &fe) || fe.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 rate limit error, got %v", err)
	}
}

func TestConsultarProductosDefaultsBodega(t *testing.T) {
	var got ConsultarProductosRequest
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(map[string]any{"estado": "ok", "data": map[string]any{
			"productos": []any{}, "no_encontrados": []any{},
			"resumen": map[string]int{"total_buscados": 1},
		}})
	}))

	if _, err := c.ConsultarProductos(context.Background(), ConsultarProductosRequest{Productos: []string{"tomate"}}); err != nil {
		t.Fatalf("ConsultarProductos failed: %v", err)
	}
	if got.BodegaID != 1 {
		t.Errorf("expected default bodega_id 1, got %d", got.BodegaID)
	}
}
