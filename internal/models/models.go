// Package models defines the core data structures for PlanEat.
//
// It includes user/household records, conversation state, webhook payloads,
// and tool parameter types shared across modules.
package models

import (
	"errors"
	"time"
)

// Intent identifies the specialist agent a message is routed to.
type Intent string

const (
	// IntentOnboarding handles new users and profile updates.
	IntentOnboarding Intent = "onboarding"
	// IntentMenuPlanner handles weekly menus and recipes.
	IntentMenuPlanner Intent = "menu-planner"
	// IntentShoppingList handles shopping list extraction and organization.
	IntentShoppingList Intent = "shopping-list"
	// IntentEcommerce handles online grocery orders.
	IntentEcommerce Intent = "ecommerce"
)

// IsValidIntent checks if the given intent is supported.
func IsValidIntent(i Intent) bool {
	switch i {
	case IntentOnboarding, IntentMenuPlanner, IntentShoppingList, IntentEcommerce:
		return true
	default:
		return false
	}
}

// Error variables for better error handling and testability
var (
	ErrEmptyPhoneNumber     = errors.New("phone number cannot be empty")
	ErrEmptyAdminPhone      = errors.New("admin phone cannot be empty")
	ErrEmptyMemberName      = errors.New("member name cannot be empty")
	ErrNoMembers            = errors.New("at least one member is required")
	ErrInvalidHouseholdID   = errors.New("household id must be positive")
	ErrEmptyMessageID       = errors.New("message id cannot be empty")
	ErrEmptyEmoji           = errors.New("emoji cannot be empty")
	ErrEmptyMessageBody     = errors.New("message body cannot be empty")
	ErrEmptyRecipeName      = errors.New("recipe name cannot be empty")
	ErrEmptyRecipeText      = errors.New("recipe text cannot be empty")
	ErrNoProducts           = errors.New("at least one product name is required")
	ErrUserNotFound         = errors.New("user not found")
	ErrConversationNotFound = errors.New("conversation not found")
)

// User represents a registered WhatsApp user.
type User struct {
	PhoneNumber string    `json:"phone_number"`
	DisplayName *string   `json:"display_name,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// Household groups members that plan meals together.
type Household struct {
	ID                  int64     `json:"id"`
	AdminPhone          string    `json:"admin_phone"`
	HouseholdSize       int       `json:"household_size"`
	DietaryRestrictions *string   `json:"dietary_restrictions,omitempty"`
	Preferences         *string   `json:"preferences,omitempty"`
	Goals               *string   `json:"goals,omitempty"`
	CreatedAt           time.Time `json:"created_at,omitempty"`
}

// HouseholdMember is a person belonging to a household. Members without
// WhatsApp (young children) have no phone number.
type HouseholdMember struct {
	ID           int64     `json:"id,omitempty"`
	HouseholdID  int64     `json:"household_id,omitempty"`
	PhoneNumber  *string   `json:"phone_number,omitempty"`
	Name         string    `json:"name"`
	Age          *int      `json:"age,omitempty"`
	Relationship *string   `json:"relationship,omitempty"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

// Conversation is the per-phone continuity record: engine session id,
// last routed intent, serialized history, and the freshness timestamp.
type Conversation struct {
	PhoneNumber   string    `json:"phone_number"`
	SessionID     *string   `json:"session_id,omitempty"`
	CurrentIntent *string   `json:"current_intent,omitempty"`
	State         []byte    `json:"conversation_state,omitempty"`
	LastMessageAt time.Time `json:"last_message_at"`
}

// UserContext is the profile snapshot handed to the reasoning engine.
type UserContext struct {
	Exists    bool              `json:"exists"`
	User      *User             `json:"user,omitempty"`
	Household *HouseholdContext `json:"household,omitempty"`
	Members   []HouseholdMember `json:"members,omitempty"`
}

// HouseholdContext is a household joined with the requesting user's role.
type HouseholdContext struct {
	Household
	Role string `json:"role"`
}

// APIResponse provides a consistent response structure for HTTP endpoints.
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// NewSuccessResponse creates a successful API response.
func NewSuccessResponse(message string, data any) APIResponse {
	return APIResponse{Success: true, Message: message, Data: data}
}

// NewErrorResponse creates an error API response.
func NewErrorResponse(errMsg string) APIResponse {
	return APIResponse{Success: false, Error: errMsg}
}
