// internal/flows/contracts.go
package flows

import "mcp-nutrisnap/internal/schema"

const (
	FlowIdentifyIngredients      = "identifyIngredients"
	FlowEstimateNutritionalValue = "estimateNutritionalValue"
)

var (
	IdentifyIngredientsInputContract = schema.New("identifyIngredientsInput", schema.Object(
		schema.Field("photoUrl", schema.String().NotEmpty().Doc("The URL of the food photo.")),
	))

	IdentifyIngredientsOutputContract = schema.New("identifyIngredientsOutput", schema.Object(
		schema.Field("ingredients", schema.Array(schema.Object(
			schema.Field("name", schema.String().NotEmpty().Doc("The name of the ingredient.")),
			schema.Field("confidence", schema.Number().Range(0, 1).Doc("The confidence level of the identification (0-1).")),
		)).Doc("A list of identified ingredients and their confidence levels.")),
	))

	EstimateNutritionalValueInputContract = schema.New("estimateNutritionalValueInput", schema.Object(
		schema.Field("ingredients", schema.Array(schema.Object(
			schema.Field("name", schema.String().NotEmpty().NoControl().Doc("The name of the ingredient.")),
			schema.Field("quantity", schema.String().NoControl().Doc("The quantity of the ingredient, e.g. \"2 cups\".")),
		)).NotEmpty().Doc("The ingredients to estimate.")),
	))

	EstimateNutritionalValueOutputContract = schema.New("estimateNutritionalValueOutput", schema.Object(
		schema.Field("nutritionalValues", schema.Array(schema.Object(
			schema.Field("name", schema.String().NotEmpty().Doc("The name of the ingredient, exactly as requested.")),
			schema.Field("calories", schema.Number().Min(0).Doc("Estimated energy in kilocalories.")),
			schema.Field("protein", schema.Number().Min(0).Doc("Estimated protein in grams.")),
			schema.Field("fat", schema.Number().Min(0).Doc("Estimated fat in grams.")),
			schema.Field("carbohydrates", schema.Number().Min(0).Doc("Estimated carbohydrates in grams.")),
		)).Doc("One nutrition estimate per requested ingredient, in request order.")),
	))
)
