// internal/models/ingredient.go
package models

// PhotoReference is an opaque image reference handed to the model client:
// either a data URI ("data:image/png;base64,...") or an http(s) URL.
type PhotoReference string

type IdentifiedIngredient struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

type IngredientEntry struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
}

type NutritionFact struct {
	Name          string  `json:"name"`
	Calories      float64 `json:"calories"`
	Protein       float64 `json:"protein"`
	Fat           float64 `json:"fat"`
	Carbohydrates float64 `json:"carbohydrates"`
}

type IdentifyIngredientsInput struct {
	PhotoURL PhotoReference `json:"photoUrl"`
}

type IdentifyIngredientsOutput struct {
	Ingredients []IdentifiedIngredient `json:"ingredients"`
}

type EstimateNutritionalValueInput struct {
	Ingredients []IngredientEntry `json:"ingredients"`
}

type EstimateNutritionalValueOutput struct {
	NutritionalValues []NutritionFact `json:"nutritionalValues"`
}
