// internal/flows/templates.go
package flows

import (
	"mcp-nutrisnap/internal/models"
	"mcp-nutrisnap/internal/prompt"
)

var identifyIngredientsPrompt = prompt.MustParse("identifyIngredientsPrompt", `You are an expert food identifier. Given a picture of food, you will identify the ingredients in the food.

Analyze the following food photo and identify the ingredients:

Photo: {{media .PhotoURL}}

List the ingredients you identify, along with a confidence level between 0 and 1 for each ingredient. If you cannot identify any ingredient, return an empty list.

Respond with a single JSON object and nothing else, using exactly these fields:
{{.Fields}}
`)

var estimateNutritionalValuePrompt = prompt.MustParse("estimateNutritionalValuePrompt", `You are an expert nutritionist. Given a list of ingredients and their quantities, you will estimate the nutritional value of each ingredient.

Ingredients:
{{range $i, $e := .Ingredients}}{{inc $i}}. {{$e.Name}}: {{if $e.Quantity}}{{$e.Quantity}}{{else}}unspecified quantity{{end}}
{{end}}
Return exactly one estimate per ingredient, in the same order as listed above, and repeat each ingredient name exactly as given. All values must be non-negative numbers: calories in kcal, protein, fat and carbohydrates in grams.

Respond with a single JSON object and nothing else, using exactly these fields:
{{.Fields}}
`)

type identifyPromptData struct {
	PhotoURL models.PhotoReference
	Fields   string
}

type estimatePromptData struct {
	Ingredients []models.IngredientEntry
	Fields      string
}

// RenderIdentifyIngredientsPrompt renders the identification prompt for in.
func RenderIdentifyIngredientsPrompt(in models.IdentifyIngredientsInput) (*prompt.Prompt, error) {
	return identifyIngredientsPrompt.Render(identifyPromptData{
		PhotoURL: in.PhotoURL,
		Fields:   IdentifyIngredientsOutputContract.Outline(),
	})
}

// RenderEstimateNutritionalValuePrompt renders the nutrition prompt for in.
func RenderEstimateNutritionalValuePrompt(in models.EstimateNutritionalValueInput) (*prompt.Prompt, error) {
	return estimateNutritionalValuePrompt.Render(estimatePromptData{
		Ingredients: in.Ingredients,
		Fields:      EstimateNutritionalValueOutputContract.Outline(),
	})
}
