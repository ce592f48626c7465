// internal/flows/compare.go
package flows

import (
	"strings"

	"mcp-nutrisnap/internal/models"
)

const (
	DiscrepancyNameMismatch = "name_mismatch"
	DiscrepancyMissing      = "missing"
	DiscrepancyUnexpected   = "unexpected"
)

// Discrepancy is one position where an estimate does not line up with the
// ingredient it was requested for.
type Discrepancy struct {
	Index     int    `json:"index"`
	Kind      string `json:"kind"`
	Requested string `json:"requested,omitempty"`
	Returned  string `json:"returned,omitempty"`
}

// CompareEstimates reports where returned estimates diverge from the
// requested ingredients, assuming positional correspondence. Names are
// compared ignoring case and surrounding space. It only reports; callers
// decide whether to re-prompt or show the estimates anyway.
func CompareEstimates(requested []models.IngredientEntry, returned []models.NutritionFact) []Discrepancy {
	var out []Discrepancy
	for i := 0; i < max(len(requested), len(returned)); i++ {
		switch {
		case i >= len(returned):
			out = append(out, Discrepancy{Index: i, Kind: DiscrepancyMissing, Requested: requested[i].Name})
		case i >= len(requested):
			out = append(out, Discrepancy{Index: i, Kind: DiscrepancyUnexpected, Returned: returned[i].Name})
		case !sameName(requested[i].Name, returned[i].Name):
			out = append(out, Discrepancy{Index: i, Kind: DiscrepancyNameMismatch, Requested: requested[i].Name, Returned: returned[i].Name})
		}
	}
	return out
}

func sameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
