package gateway

import (
	"github.com/planeat/planeat/internal/engine"
	"github.com/planeat/planeat/internal/models"
)

func prop(typ, description string) map[string]any {
	return map[string]any{"type": typ, "description": description}
}

// Schemas returns the tool set offered to the engine. Frest and image tools
// appear only when their clients are configured.
func (g *Gateway) Schemas() []engine.ToolSchema {
	schemas := []engine.ToolSchema{
		{
			Name:        models.ToolSendWhatsAppMessage,
			Description: "Envía un mensaje de WhatsApp al usuario. DEBES usar esta herramienta para responder.",
			Properties: map[string]any{
				"to":      prop("string", "Número de WhatsApp del destinatario"),
				"message": prop("string", "Contenido del mensaje a enviar"),
			},
			Required: []string{"to", "message"},
		},
		{
			Name:        models.ToolGetUserContext,
			Description: "Obtiene el contexto completo de un usuario (perfil + household + miembros)",
			Properties: map[string]any{
				"phone_number": prop("string", "Número de WhatsApp del usuario"),
			},
			Required: []string{"phone_number"},
		},
		{
			Name:        models.ToolCreateHousehold,
			Description: "Crea un nuevo hogar y registra al usuario como admin. IMPORTANTE: Siempre incluye display_name con el nombre del usuario.",
			Properties: map[string]any{
				"admin_phone":          prop("string", "Número de WhatsApp del admin"),
				"display_name":         prop("string", "Nombre del usuario (REQUERIDO para guardar en perfil)"),
				"household_size":       prop("number", "Número total de personas en el hogar"),
				"dietary_restrictions": prop("string", "Restricciones dietéticas (ej: vegetariano, sin gluten)"),
				"preferences":          prop("string", "Preferencias de comida (ej: italiana, mexicana)"),
				"goals":                prop("string", "Objetivos (ej: comer saludable, ahorrar tiempo)"),
			},
			Required: []string{"admin_phone"},
		},
		{
			Name:        models.ToolAddHouseholdMembers,
			Description: "Agrega miembros al hogar. Los niños pequeños NO tienen WhatsApp.",
			Properties: map[string]any{
				"household_id": prop("number", "ID del hogar"),
				"members": map[string]any{
					"type":        "array",
					"description": "Lista de miembros del hogar",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"name":         prop("string", "Nombre del miembro (requerido)"),
							"phone_number": prop("string", "WhatsApp (opcional)"),
							"age":          prop("number", "Edad del miembro"),
							"relationship": prop("string", "Relación familiar"),
							"role":         prop("string", `Rol: "admin" o "member"`),
						},
						"required": []string{"name"},
					},
				},
			},
			Required: []string{"household_id", "members"},
		},
		{
			Name:        models.ToolSaveConversationState,
			Description: "Guarda el estado actual de la conversación",
			Properties: map[string]any{
				"phone_number":       prop("string", "Número de WhatsApp del usuario"),
				"current_intent":     prop("string", "Intención actual de la conversación"),
				"conversation_state": map[string]any{"type": "object", "description": "Estado estructurado de la conversación"},
			},
			Required: []string{"phone_number"},
		},
		{
			Name:        models.ToolSendReaction,
			Description: "Envía una reacción emoji a un mensaje de WhatsApp",
			Properties: map[string]any{
				"to":         prop("string", "Número de WhatsApp del destinatario"),
				"message_id": prop("string", "ID del mensaje a reaccionar"),
				"emoji":      prop("string", "Emoji a enviar (ej: ❤️, 👍, 🎉)"),
			},
			Required: []string{"message_id", "emoji"},
		},
	}

	if g.imagegen != nil {
		schemas = append(schemas, engine.ToolSchema{
			Name:        models.ToolGenerateRecipeImage,
			Description: "Genera una imagen profesional del plato y la envía por WhatsApp junto con la receta.",
			Properties: map[string]any{
				"phone_number": prop("string", "Número de teléfono del usuario (formato: +56912345678)"),
				"recipe_name":  prop("string", "Nombre de la receta (ej: 'Pollo al Horno con Papas')"),
				"recipe_text":  prop("string", "Receta completa con ingredientes e instrucciones"),
				"context":      prop("string", "Descripción breve del plato para la imagen (opcional)"),
			},
			Required: []string{"phone_number", "recipe_name", "recipe_text"},
		})
	}

	if g.frest != nil {
		schemas = append(schemas, g.frestSchemas()...)
	}
	return schemas
}

func (g *Gateway) frestSchemas() []engine.ToolSchema {
	return []engine.ToolSchema{
		{
			Name: models.ToolFrestBuscarUsuario,
			Description: "Busca si existe un usuario registrado en Frest por su número de teléfono. " +
				"Retorna información completa del usuario incluyendo todas sus direcciones guardadas. " +
				"Este tool debe ser el PRIMERO en llamarse antes de intentar registrar un usuario.",
			Properties: map[string]any{
				"telefono": prop("string", "Número de teléfono en formato internacional SIN el símbolo +. Ejemplo: 56995545216"),
			},
			Required: []string{"telefono"},
		},
		{
			Name:        models.ToolFrestRegistrarUsuario,
			Description: "Registra un nuevo usuario en Frest. Úsalo solo después de que frest_buscar_usuario no lo encontró.",
			Properties: map[string]any{
				"nombre":  prop("string", "Nombre del usuario"),
				"paterno": prop("string", "Apellido paterno"),
				"materno": prop("string", "Apellido materno (opcional)"),
				"email":   prop("string", "Email del usuario"),
				"rut":     prop("string", "RUT del usuario en formato 12345678-9 (opcional)"),
				"celular": prop("string", "Número de celular con prefijo +56"),
			},
			Required: []string{"nombre", "paterno", "email", "celular"},
		},
		{
			Name:        models.ToolFrestCrearDireccion,
			Description: "Crea una dirección de despacho para un usuario de Frest.",
			Properties: map[string]any{
				"user_id":       prop("number", "ID del usuario en Frest"),
				"calle":         prop("string", "Nombre de la calle"),
				"numero":        prop("string", "Número de la dirección"),
				"depto":         prop("string", "Número de departamento u oficina (opcional)"),
				"comuna":        prop("string", "Comuna (ej: Providencia, Las Condes)"),
				"region":        prop("string", "Región (ej: Región Metropolitana)"),
				"coordenadas":   prop("string", `Coordenadas en formato "latitud,longitud" (opcional)`),
				"observaciones": prop("string", "Indicaciones para el despacho (opcional)"),
			},
			Required: []string{"user_id", "calle", "numero", "comuna", "region"},
		},
		{
			Name:        models.ToolFrestConsultarProductos,
			Description: "Consulta disponibilidad, precio y stock de productos en Frest. Sugiere alternativas para productos sin stock.",
			Properties: map[string]any{
				"productos": map[string]any{
					"type":        "array",
					"description": "Nombres de los productos a buscar",
					"items":       map[string]any{"type": "string"},
				},
				"bodega_id": prop("number", "ID de la bodega (default: 1 para Centro de Distribución)"),
			},
			Required: []string{"productos"},
		},
		{
			Name: models.ToolFrestCrearPedido,
			Description: "Crea un pedido completo en Frest y genera el link de pago. " +
				"Los precios se calculan automáticamente según las ofertas vigentes. " +
				"IMPORTANTE: Solo envía producto_id y cantidad en los items, NO incluyas el precio.",
			Properties: map[string]any{
				"user_id":        prop("number", "ID del usuario en Frest"),
				"direccion_id":   prop("number", "ID de la dirección de despacho"),
				"ventana_id":     prop("number", "ID de la ventana de despacho (pregunta al usuario cuándo quiere recibir)"),
				"bodega_id":      prop("number", "ID de la bodega (default: 1 para Centro de Distribución)"),
				"tipo_pedido_id": prop("number", "1=Despacho a domicilio, 2=Retiro en tienda, 3=Retiro express"),
				"forma_pago":     prop("string", "Método de pago: webpay, fpay, oneclick, efectivo"),
				"items": map[string]any{
					"type":        "array",
					"description": "Array de productos (solo producto_id y cantidad, NO incluir precio)",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"producto_id": prop("number", "ID del producto"),
							"cantidad":    prop("number", "Cantidad a ordenar"),
						},
						"required": []string{"producto_id", "cantidad"},
					},
				},
				"observaciones":    prop("string", "Instrucciones adicionales para el pedido (opcional)"),
				"codigo_descuento": prop("string", "Código de descuento (opcional)"),
			},
			Required: []string{"user_id", "direccion_id", "ventana_id", "bodega_id", "tipo_pedido_id", "forma_pago", "items"},
		},
		{
			Name:        models.ToolFrestConsultarEstado,
			Description: "Consulta el estado actual de un pedido en Frest, incluyendo pago y tracking del repartidor.",
			Properties: map[string]any{
				"pedido_id": prop("number", "ID del pedido en Frest"),
			},
			Required: []string{"pedido_id"},
		},
	}
}
