package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/planeat/planeat/internal/frest"
	"github.com/planeat/planeat/internal/models"
)

func (g *Gateway) dispatchFrest(ctx context.Context, name string, input json.RawMessage) (string, error) {
	switch name {
	case models.ToolFrestBuscarUsuario:
		return g.frestBuscarUsuario(ctx, input)
	case models.ToolFrestRegistrarUsuario:
		return g.frestRegistrarUsuario(ctx, input)
	case models.ToolFrestCrearDireccion:
		return g.frestCrearDireccion(ctx, input)
	case models.ToolFrestConsultarProductos:
		return g.frestConsultarProductos(ctx, input)
	case models.ToolFrestCrearPedido:
		return g.frestCrearPedido(ctx, input)
	default:
		return g.frestConsultarEstado(ctx, input)
	}
}

func (g *Gateway) frestBuscarUsuario(ctx context.Context, input json.RawMessage) (string, error) {
	var p struct {
		Telefono string `json:"telefono"`
	}
	if err := json.Unmarshal(input, &p); err != nil {
		return "", fmt.Errorf("invalid tool input: %w", err)
	}
	if p.Telefono == "" {
		return "", models.ErrEmptyPhoneNumber
	}

	resp, err := g.frest.BuscarUsuarioPorTelefono(ctx, p.Telefono)
	if err != nil {
		return "", err
	}
	if !resp.Encontrado || resp.Data == nil {
		return marshalPayload(map[string]any{
			"success":    true,
			"encontrado": false,
			"mensaje":    "No hay un cliente registrado con ese número de teléfono en Frest.",
		})
	}
	return marshalPayload(map[string]any{
		"success":     true,
		"encontrado":  true,
		"usuario":     resp.Data,
		"direcciones": resp.Data.Direcciones,
		"mensaje":     fmt.Sprintf("Usuario encontrado: %s. Tiene %d dirección(es) guardada(s).", resp.Data.NombreCompleto, len(resp.Data.Direcciones)),
	})
}

func (g *Gateway) frestRegistrarUsuario(ctx context.Context, input json.RawMessage) (string, error) {
	var req frest.RegistrarUsuarioRequest
	if err := json.Unmarshal(input, &req); err != nil {
		return "", fmt.Errorf("invalid tool input: %w", err)
	}
	if req.Nombre == "" || req.Paterno == "" || req.Email == "" || req.Celular == "" {
		return "", fmt.Errorf("nombre, paterno, email y celular son requeridos")
	}
	req.AceptoTerminos = true

	resp, err := g.frest.RegistrarUsuario(ctx, req)
	if err != nil {
		return "", err
	}
	return marshalPayload(map[string]any{"success": true, "usuario": resp, "mensaje": resp.Mensaje})
}

func (g *Gateway) frestCrearDireccion(ctx context.Context, input json.RawMessage) (string, error) {
	var p struct {
		UserID int64 `json:"user_id"`
		frest.CrearDireccionRequest
	}
	if err := json.Unmarshal(input, &p); err != nil {
		return "", fmt.Errorf("invalid tool input: %w", err)
	}
	if p.UserID <= 0 {
		return "", fmt.Errorf("user_id es requerido")
	}
	if p.Calle == "" || p.Numero == "" || p.Comuna == "" || p.Region == "" {
		return "", fmt.Errorf("calle, numero, comuna y region son requeridos")
	}

	resp, err := g.frest.CrearDireccion(ctx, p.UserID, p.CrearDireccionRequest)
	if err != nil {
		return "", err
	}
	return marshalPayload(map[string]any{"success": true, "direccion": resp, "mensaje": resp.Mensaje})
}

func (g *Gateway) frestConsultarProductos(ctx context.Context, input json.RawMessage) (string, error) {
	var req frest.ConsultarProductosRequest
	if err := json.Unmarshal(input, &req); err != nil {
		return "", fmt.Errorf("invalid tool input: %w", err)
	}
	if len(req.Productos) == 0 {
		return "", models.ErrNoProducts
	}

	resp, err := g.frest.ConsultarProductos(ctx, req)
	if err != nil {
		return "", err
	}
	return marshalPayload(map[string]any{
		"success":        true,
		"productos":      resp.Productos,
		"no_encontrados": resp.NoEncontrados,
		"resumen":        resp.Resumen,
	})
}

func (g *Gateway) frestCrearPedido(ctx context.Context, input json.RawMessage) (string, error) {
	var req frest.CrearPedidoRequest
	if err := json.Unmarshal(input, &req); err != nil {
		return "", fmt.Errorf("invalid tool input: %w", err)
	}
	if req.UserID <= 0 || req.DireccionID <= 0 {
		return "", fmt.Errorf("user_id y direccion_id son requeridos")
	}
	if len(req.Items) == 0 {
		return "", models.ErrNoProducts
	}

	resp, err := g.frest.CrearPedido(ctx, req)
	if err != nil {
		return "", err
	}
	return marshalPayload(map[string]any{
		"success": true,
		"pedido":  resp,
		"mensaje": fmt.Sprintf("Pedido %s creado exitosamente. Total: $%.0f. Link de pago generado.", resp.CodigoPedido, resp.Total),
	})
}

func (g *Gateway) frestConsultarEstado(ctx context.Context, input json.RawMessage) (string, error) {
	var p struct {
		PedidoID int64 `json:"pedido_id"`
	}
	if err := json.Unmarshal(input, &p); err != nil {
		return "", fmt.Errorf("invalid tool input: %w", err)
	}
	if p.PedidoID <= 0 {
		return "", fmt.Errorf("pedido_id es requerido")
	}

	resp, err := g.frest.ConsultarEstadoPedido(ctx, p.PedidoID)
	if err != nil {
		return "", err
	}
	return marshalPayload(map[string]any{"success": true, "pedido": resp})
}
