package flow

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/planeat/planeat/internal/models"
)

// Per-intent system prompts. Business copy lives in prompts/ so it can be
// edited without touching code.
var (
	//go:embed prompts/onboarding.md
	onboardingPrompt string

	//go:embed prompts/menu-planner.md
	menuPlannerPrompt string

	//go:embed prompts/shopping-list.md
	shoppingListPrompt string

	//go:embed prompts/ecommerce.md
	ecommercePrompt string
)

// AgentPrompt returns the system prompt for the routed intent.
func AgentPrompt(intent models.Intent) string {
	switch intent {
	case models.IntentMenuPlanner:
		return menuPlannerPrompt
	case models.IntentShoppingList:
		return shoppingListPrompt
	case models.IntentEcommerce:
		return ecommercePrompt
	default:
		return onboardingPrompt
	}
}

// BuildUserTurn wraps the inbound message and the user's stored context into
// the turn handed to the engine. A media URL adds an image block so the
// engine can read handwritten shopping lists.
func BuildUserTurn(phone, text, mediaURL string, userContext *models.UserContext) models.Turn {
	contextJSON, err := json.MarshalIndent(userContext, "", "  ")
	if err != nil {
		contextJSON = []byte("{}")
	}

	if mediaURL != "" {
		body := fmt.Sprintf(`Usuario %s envió una imagen con el texto: "%s"

CONTEXTO DEL USUARIO:
%s

IMPORTANTE:
- Analiza la imagen (puede ser una lista de compras escrita a mano)
- Extrae los items de la lista
- Responde usando send_whatsapp_message al número %s.`, phone, text, contextJSON, phone)
		return models.Turn{
			Role: models.RoleUser,
			Blocks: []models.ContentBlock{
				{Type: models.BlockImage, ImageURL: mediaURL},
				{Type: models.BlockText, Text: body},
			},
		}
	}

	body := fmt.Sprintf(`Usuario %s dice: "%s"

CONTEXTO DEL USUARIO:
%s

IMPORTANTE: Responde usando send_whatsapp_message al número %s.`, phone, text, contextJSON, phone)
	return models.TextTurn(models.RoleUser, body)
}
