// Package gateway dispatches tool invocations requested by the reasoning
// engine to their concrete implementations. Execution never surfaces a Go
// error to the conversation loop; failures serialize back into the result
// payload so the engine can react in-band.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/planeat/planeat/internal/frest"
	"github.com/planeat/planeat/internal/imagegen"
	"github.com/planeat/planeat/internal/messaging"
	"github.com/planeat/planeat/internal/models"
	"github.com/planeat/planeat/internal/store"
)

// Gateway executes the tools PlanEat exposes to the reasoning engine.
// Frest and image generation are optional; their tools are registered only
// when the corresponding client is configured.
type Gateway struct {
	store     store.Store
	messenger messaging.Service
	frest     *frest.Client
	imagegen  *imagegen.Client
}

// Option configures optional gateway capabilities.
type Option func(*Gateway)

// WithFrest enables the Frest e-commerce tool suite.
func WithFrest(c *frest.Client) Option { return func(g *Gateway) { g.frest = c } }

// WithImageGen enables the generate_recipe_image tool.
func WithImageGen(c *imagegen.Client) Option { return func(g *Gateway) { g.imagegen = c } }

// New creates a gateway over the required collaborators.
func New(st store.Store, messenger messaging.Service, opts ...Option) *Gateway {
	g := &Gateway{store: st, messenger: messenger}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Execute runs one tool call. The result always carries the call id so the
// loop can pair it with its invocation.
func (g *Gateway) Execute(ctx context.Context, call models.ToolCall) models.ToolResult {
	slog.Debug("Gateway.Execute: dispatching tool", "tool", call.Name, "id", call.ID)

	content, err := g.dispatch(ctx, call.Name, call.Input)
	if err != nil {
		slog.Error("Gateway.Execute: tool failed", "tool", call.Name, "error", err)
		return models.ToolResult{
			ToolCallID: call.ID,
			Content:    errorPayload(err.Error()),
			IsError:    true,
		}
	}
	return models.ToolResult{ToolCallID: call.ID, Content: content}
}

func (g *Gateway) dispatch(ctx context.Context, name string, input json.RawMessage) (string, error) {
	switch name {
	case models.ToolSendWhatsAppMessage:
		return g.sendMessage(ctx, input)
	case models.ToolGetUserContext:
		return g.getUserContext(input)
	case models.ToolCreateHousehold:
		return g.createHousehold(input)
	case models.ToolAddHouseholdMembers:
		return g.addHouseholdMembers(input)
	case models.ToolSaveConversationState:
		return g.saveConversationState(input)
	case models.ToolSendReaction:
		return g.sendReaction(ctx, input)
	case models.ToolGenerateRecipeImage:
		if g.imagegen == nil {
			return "", fmt.Errorf("image generation is not configured")
		}
		return g.generateRecipeImage(ctx, input)
	case models.ToolFrestBuscarUsuario,
		models.ToolFrestRegistrarUsuario,
		models.ToolFrestCrearDireccion,
		models.ToolFrestConsultarProductos,
		models.ToolFrestCrearPedido,
		models.ToolFrestConsultarEstado:
		if g.frest == nil {
			return "", fmt.Errorf("Frest integration is not configured")
		}
		return g.dispatchFrest(ctx, name, input)
	default:
		return "", fmt.Errorf("Unknown tool: %s", name)
	}
}

func (g *Gateway) sendMessage(ctx context.Context, input json.RawMessage) (string, error) {
	var p models.SendMessageParams
	if err := decodeParams(input, &p); err != nil {
		return "", err
	}
	if err := g.messenger.SendMessage(ctx, p.To, p.Message); err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}
	return successPayload(fmt.Sprintf("Mensaje enviado a %s", p.To)), nil
}

func (g *Gateway) getUserContext(input json.RawMessage) (string, error) {
	var p models.GetUserContextParams
	if err := decodeParams(input, &p); err != nil {
		return "", err
	}
	userCtx, err := store.BuildUserContext(g.store, p.PhoneNumber)
	if err != nil {
		return "", err
	}
	return marshalPayload(userCtx)
}

func (g *Gateway) createHousehold(input json.RawMessage) (string, error) {
	var p models.CreateHouseholdParams
	if err := decodeParams(input, &p); err != nil {
		return "", err
	}
	household, err := g.store.CreateHousehold(p)
	if err != nil {
		return "", fmt.Errorf("failed to create household: %w", err)
	}
	return marshalPayload(map[string]any{"success": true, "household": household})
}

func (g *Gateway) addHouseholdMembers(input json.RawMessage) (string, error) {
	var p models.AddHouseholdMembersParams
	if err := decodeParams(input, &p); err != nil {
		return "", err
	}
	if err := g.store.AddHouseholdMembers(p.HouseholdID, p.Members); err != nil {
		return "", fmt.Errorf("failed to add household members: %w", err)
	}
	return successPayload(fmt.Sprintf("Se agregaron %d miembros al hogar", len(p.Members))), nil
}

func (g *Gateway) saveConversationState(input json.RawMessage) (string, error) {
	var p models.SaveConversationStateParams
	if err := decodeParams(input, &p); err != nil {
		return "", err
	}
	state := p.ConversationState
	if len(state) == 0 {
		state = json.RawMessage(`{}`)
	}
	if err := g.store.EnsureUser(p.PhoneNumber); err != nil {
		return "", fmt.Errorf("failed to ensure user: %w", err)
	}
	if err := g.store.SaveConversationState(p.PhoneNumber, p.CurrentIntent, state); err != nil {
		return "", fmt.Errorf("failed to save conversation state: %w", err)
	}
	return successPayload("Estado guardado"), nil
}

func (g *Gateway) sendReaction(ctx context.Context, input json.RawMessage) (string, error) {
	var p struct {
		models.SendReactionParams
		To string `json:"to,omitempty"`
	}
	if err := json.Unmarshal(input, &p); err != nil {
		return "", fmt.Errorf("invalid tool input: %w", err)
	}
	if err := p.Validate(); err != nil {
		return "", err
	}
	if err := g.messenger.SendReaction(ctx, p.To, p.MessageID, p.Emoji); err != nil {
		return "", fmt.Errorf("failed to send reaction: %w", err)
	}
	return successPayload("Reacción enviada"), nil
}

func (g *Gateway) generateRecipeImage(ctx context.Context, input json.RawMessage) (string, error) {
	var p models.GenerateRecipeImageParams
	if err := decodeParams(input, &p); err != nil {
		return "", err
	}
	description := p.Context
	if description == "" {
		description = p.RecipeText
	}
	imageURL, err := g.imagegen.GenerateDishImage(ctx, p.RecipeName, description)
	if err != nil {
		return "", fmt.Errorf("failed to generate recipe image: %w", err)
	}
	caption := fmt.Sprintf("📖 Receta: %s", p.RecipeName)
	if err := g.messenger.SendImage(ctx, p.PhoneNumber, imageURL, caption); err != nil {
		return "", fmt.Errorf("failed to send recipe image: %w", err)
	}
	return marshalPayload(map[string]any{"success": true, "image_url": imageURL})
}

// validator is implemented by all typed tool parameter structs.
type validator interface {
	Validate() error
}

// decodeParams unmarshals and schema-validates tool input before dispatch.
func decodeParams(input json.RawMessage, p validator) error {
	if err := json.Unmarshal(input, p); err != nil {
		return fmt.Errorf("invalid tool input: %w", err)
	}
	return p.Validate()
}

func marshalPayload(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode tool result: %w", err)
	}
	return string(b), nil
}

func successPayload(message string) string {
	b, _ := json.Marshal(map[string]any{"success": true, "message": message})
	return string(b)
}

func errorPayload(message string) string {
	b, _ := json.Marshal(map[string]any{"success": false, "error": message})
	return string(b)
}
