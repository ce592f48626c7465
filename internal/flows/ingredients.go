// internal/flows/ingredients.go
package flows

import "mcp-nutrisnap/internal/models"

// DefaultQuantity is the quantity given to ingredients derived from an
// identification, which carries no portion information.
const DefaultQuantity = "1 serving"

// DeriveIngredients turns identified ingredients into estimation entries.
func DeriveIngredients(identified []models.IdentifiedIngredient) []models.IngredientEntry {
	out := make([]models.IngredientEntry, 0, len(identified))
	for _, ing := range identified {
		out = append(out, models.IngredientEntry{Name: ing.Name, Quantity: DefaultQuantity})
	}
	return out
}

// SelectIngredients picks the list to estimate. A non-empty manual list wins
// outright and is never merged with the identified one; otherwise the list is
// derived from the identification.
func SelectIngredients(identified []models.IdentifiedIngredient, manual []models.IngredientEntry) []models.IngredientEntry {
	if len(manual) > 0 {
		out := make([]models.IngredientEntry, len(manual))
		copy(out, manual)
		return out
	}
	return DeriveIngredients(identified)
}
