// Package models defines tool structures for LLM function calling.
package models

import "encoding/json"

// Tool names exposed to the reasoning engine.
const (
	ToolSendWhatsAppMessage     = "send_whatsapp_message"
	ToolGetUserContext          = "get_user_context"
	ToolCreateHousehold         = "create_household"
	ToolAddHouseholdMembers     = "add_household_members"
	ToolSaveConversationState   = "save_conversation_state"
	ToolSendReaction            = "send_reaction"
	ToolGenerateRecipeImage     = "generate_recipe_image"
	ToolFrestBuscarUsuario      = "frest_buscar_usuario"
	ToolFrestRegistrarUsuario   = "frest_registrar_usuario"
	ToolFrestCrearDireccion     = "frest_crear_direccion"
	ToolFrestConsultarProductos = "frest_consultar_productos"
	ToolFrestCrearPedido        = "frest_crear_pedido"
	ToolFrestConsultarEstado    = "frest_consultar_estado_pedido"
)

// ToolCall is one tool invocation requested by the reasoning engine.
type ToolCall struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ToolResult is the outcome of executing a tool call. Content is always
// a JSON document; failures set IsError and encode a structured error
// payload rather than surfacing a Go error.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}

// SendMessageParams defines the parameters for send_whatsapp_message.
type SendMessageParams struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// Validate ensures the send_whatsapp_message parameters are valid.
func (p *SendMessageParams) Validate() error {
	if p.To == "" {
		return ErrEmptyPhoneNumber
	}
	if p.Message == "" {
		return ErrEmptyMessageBody
	}
	return nil
}

// GetUserContextParams defines the parameters for get_user_context.
type GetUserContextParams struct {
	PhoneNumber string `json:"phone_number"`
}

// Validate ensures the get_user_context parameters are valid.
func (p *GetUserContextParams) Validate() error {
	if p.PhoneNumber == "" {
		return ErrEmptyPhoneNumber
	}
	return nil
}

// CreateHouseholdParams defines the parameters for create_household.
type CreateHouseholdParams struct {
	AdminPhone          string  `json:"admin_phone"`
	DisplayName         *string `json:"display_name,omitempty"`
	HouseholdSize       int     `json:"household_size,omitempty"`
	DietaryRestrictions *string `json:"dietary_restrictions,omitempty"`
	Preferences         *string `json:"preferences,omitempty"`
	Goals               *string `json:"goals,omitempty"`
}

// Validate ensures the create_household parameters are valid.
func (p *CreateHouseholdParams) Validate() error {
	if p.AdminPhone == "" {
		return ErrEmptyAdminPhone
	}
	return nil
}

// MemberParams describes one member in add_household_members.
type MemberParams struct {
	Name         string  `json:"name"`
	PhoneNumber  *string `json:"phone_number,omitempty"`
	Age          *int    `json:"age,omitempty"`
	Relationship *string `json:"relationship,omitempty"`
	Role         string  `json:"role,omitempty"`
}

// AddHouseholdMembersParams defines the parameters for add_household_members.
type AddHouseholdMembersParams struct {
	HouseholdID int64          `json:"household_id"`
	Members     []MemberParams `json:"members"`
}

// Validate ensures the add_household_members parameters are valid.
func (p *AddHouseholdMembersParams) Validate() error {
	if p.HouseholdID <= 0 {
		return ErrInvalidHouseholdID
	}
	if len(p.Members) == 0 {
		return ErrNoMembers
	}
	for i := range p.Members {
		if p.Members[i].Name == "" {
			return ErrEmptyMemberName
		}
	}
	return nil
}

// SaveConversationStateParams defines the parameters for save_conversation_state.
type SaveConversationStateParams struct {
	PhoneNumber       string          `json:"phone_number"`
	CurrentIntent     *string         `json:"current_intent,omitempty"`
	ConversationState json.RawMessage `json:"conversation_state,omitempty"`
}

// Validate ensures the save_conversation_state parameters are valid.
func (p *SaveConversationStateParams) Validate() error {
	if p.PhoneNumber == "" {
		return ErrEmptyPhoneNumber
	}
	return nil
}

// SendReactionParams defines the parameters for send_reaction.
type SendReactionParams struct {
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
}

// Validate ensures the send_reaction parameters are valid.
func (p *SendReactionParams) Validate() error {
	if p.MessageID == "" {
		return ErrEmptyMessageID
	}
	if p.Emoji == "" {
		return ErrEmptyEmoji
	}
	return nil
}

// GenerateRecipeImageParams defines the parameters for generate_recipe_image.
type GenerateRecipeImageParams struct {
	PhoneNumber string `json:"phone_number"`
	RecipeName  string `json:"recipe_name"`
	RecipeText  string `json:"recipe_text"`
	Context     string `json:"context,omitempty"`
}

// Validate ensures the generate_recipe_image parameters are valid.
func (p *GenerateRecipeImageParams) Validate() error {
	if p.PhoneNumber == "" {
		return ErrEmptyPhoneNumber
	}
	if p.RecipeName == "" {
		return ErrEmptyRecipeName
	}
	if p.RecipeText == "" {
		return ErrEmptyRecipeText
	}
	return nil
}
