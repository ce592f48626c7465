package flows

import (
	"reflect"
	"testing"

	"mcp-nutrisnap/internal/models"
)

func TestSelectIngredientsPrefersManualList(t *testing.T) {
	identified := []models.IdentifiedIngredient{{Name: "egg", Confidence: 0.9}, {Name: "flour", Confidence: 0.7}}
	manual := []models.IngredientEntry{{Name: "tofu", Quantity: "200 g"}}

	got := SelectIngredients(identified, manual)
	if !reflect.DeepEqual(got, manual) {
		t.Fatalf("expected exactly the manual list, got %#v", got)
	}

	got[0].Name = "changed"
	if manual[0].Name != "tofu" {
		t.Fatal("selected list must not alias the caller's manual list")
	}
}

func TestSelectIngredientsFallsBackToDerived(t *testing.T) {
	identified := []models.IdentifiedIngredient{{Name: "egg", Confidence: 0.9}, {Name: "flour", Confidence: 0.7}}

	for _, manual := range [][]models.IngredientEntry{nil, {}} {
		got := SelectIngredients(identified, manual)
		want := []models.IngredientEntry{{Name: "egg", Quantity: DefaultQuantity}, {Name: "flour", Quantity: DefaultQuantity}}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("expected derived list %#v, got %#v", want, got)
		}
	}
}

func TestDeriveIngredientsEmpty(t *testing.T) {
	got := DeriveIngredients(nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty list, got %#v", got)
	}
}

func TestCompareEstimates(t *testing.T) {
	requested := []models.IngredientEntry{{Name: "Egg"}, {Name: "flour"}}

	if got := CompareEstimates(requested, []models.NutritionFact{{Name: " egg "}, {Name: "FLOUR"}}); len(got) != 0 {
		t.Fatalf("expected no discrepancies, got %#v", got)
	}

	got := CompareEstimates(requested, []models.NutritionFact{{Name: "egg"}, {Name: "flour"}, {Name: "butter"}})
	want := []Discrepancy{{Index: 2, Kind: DiscrepancyUnexpected, Returned: "butter"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %#v, got %#v", want, got)
	}
}
