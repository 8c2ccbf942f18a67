package flow

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/planeat/planeat/internal/models"
)

// Keyword patterns tested against the lowercased message text, in priority
// order. Shopping detection runs first so a new user who opens with a raw
// grocery list is not forced through profile setup.
var (
	shoppingKeywordsRe = regexp.MustCompile(`necesito|comprar|lista|ingrediente`)
	ingredientsRe      = regexp.MustCompile(`tomate|pollo|carne|pan|leche|arroz|verdura|fruta|queso|huevo|pescado|lechuga|zanahoria`)
	menuRe             = regexp.MustCompile(`menú|menu|receta|cocinar|preparar|comida|plato`)
	ecommerceRe        = regexp.MustCompile(`pedido|online|jumbo|lider|unimarc|santa isabel|pedir`)
	profileRe          = regexp.MustCompile(`familia|perfil|actualizar|cambiar|agregar miembro|household`)
	itemSeparatorRe    = regexp.MustCompile(`,|y`)
)

// Route maps a message to the intent that should handle it. First match wins.
func Route(text string, userExists bool) models.Intent {
	lower := strings.ToLower(text)

	hasShoppingKeywords := shoppingKeywordsRe.MatchString(lower)
	hasIngredients := ingredientsRe.MatchString(lower)

	if hasShoppingKeywords && hasIngredients {
		slog.Debug("flow.Route: shopping keywords and ingredients matched")
		return models.IntentShoppingList
	}
	if hasIngredients && countListItems(lower) >= 3 {
		slog.Debug("flow.Route: multiple food items matched")
		return models.IntentShoppingList
	}
	if menuRe.MatchString(lower) {
		return models.IntentMenuPlanner
	}
	if ecommerceRe.MatchString(lower) {
		return models.IntentEcommerce
	}
	if profileRe.MatchString(lower) {
		return models.IntentOnboarding
	}
	if !userExists {
		slog.Debug("flow.Route: new user without clear intent")
		return models.IntentOnboarding
	}
	return models.IntentOnboarding
}

// countListItems counts comma or "y" separated tokens longer than 3 runes.
func countListItems(lower string) int {
	count := 0
	for _, part := range itemSeparatorRe.Split(lower, -1) {
		if utf8.RuneCountInString(strings.TrimSpace(part)) > 3 {
			count++
		}
	}
	return count
}
