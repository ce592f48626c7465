package schema

import (
	"encoding/json"
	"math"
	"reflect"
	"strings"
	"testing"
)

type item struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

type payload struct {
	Items []item `json:"items"`
}

func testContract() Contract {
	return New("test", Object(
		Field("items", Array(Object(
			Field("name", String().NotEmpty().Doc("Item name.")),
			Field("score", Number().Range(0, 1)),
		)).Doc("Scored items.")),
	))
}

func decodeJSON(t *testing.T, text string) any {
	t.Helper()
	var out any
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return out
}

func TestDecodeAcceptsValidValue(t *testing.T) {
	raw := decodeJSON(t, `{"items":[{"name":"egg","score":0.92,"extra":true},{"name":"flour","score":1}]}`)

	got, err := Decode[payload](testContract(), raw)
	if err != nil {
		t.Fatalf("decode returned error: %v", err)
	}

	want := payload{Items: []item{{Name: "egg", Score: 0.92}, {Name: "flour", Score: 1}}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %#v, got %#v", want, got)
	}
}

func TestDecodeEmptyArrayStaysNonNil(t *testing.T) {
	got, err := Decode[payload](testContract(), map[string]any{"items": []any{}})
	if err != nil {
		t.Fatalf("decode returned error: %v", err)
	}
	if got.Items == nil || len(got.Items) != 0 {
		t.Fatalf("expected empty non-nil items, got %#v", got.Items)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name       string
		raw        any
		field      string
		constraint string
	}{
		{"root not object", "hello", "", "type object"},
		{"missing field", map[string]any{}, "items", "required"},
		{"null field", map[string]any{"items": nil}, "items", "required"},
		{"wrong array type", map[string]any{"items": "egg"}, "items", "type array"},
		{"score above range", decodeJSON(t, `{"items":[{"name":"egg","score":1.2}]}`), "items[0].score", "<= 1"},
		{"score below range", decodeJSON(t, `{"items":[{"name":"egg","score":-0.1}]}`), "items[0].score", ">= 0"},
		{"score as string", decodeJSON(t, `{"items":[{"name":"egg","score":"0.5"}]}`), "items[0].score", "type number"},
		{"score as bool", decodeJSON(t, `{"items":[{"name":"egg","score":true}]}`), "items[0].score", "type number"},
		{"blank name", decodeJSON(t, `{"items":[{"name":"  ","score":0.5}]}`), "items[0].name", "non-empty"},
		{"missing name", decodeJSON(t, `{"items":[{"name":"egg","score":0.5},{"score":0.5}]}`), "items[1].name", "required"},
		{"null element", decodeJSON(t, `{"items":[null]}`), "items[0]", "required"},
		{"nan score", map[string]any{"items": []any{map[string]any{"name": "egg", "score": math.NaN()}}}, "items[0].score", "finite"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := testContract().Validate(tt.raw)
			verr, ok := AsValidationError(err)
			if !ok {
				t.Fatalf("expected validation error, got %v", err)
			}
			if verr.Field != tt.field {
				t.Fatalf("expected field %q, got %q", tt.field, verr.Field)
			}
			if verr.Constraint != tt.constraint {
				t.Fatalf("expected constraint %q, got %q", tt.constraint, verr.Constraint)
			}
			if verr.Contract != "test" {
				t.Fatalf("expected contract name, got %q", verr.Contract)
			}
		})
	}
}

func TestValidateDoesNotClamp(t *testing.T) {
	raw := map[string]any{"items": []any{map[string]any{"name": "egg", "score": 1.0000001}}}
	if _, err := testContract().Validate(raw); err == nil {
		t.Fatal("expected out-of-range score to be rejected")
	}
}

func TestValidateAcceptsTypedValues(t *testing.T) {
	raw := map[string]any{"items": []map[string]any{{"name": "egg", "score": 1}}}
	got, err := Decode[payload](testContract(), raw)
	if err != nil {
		t.Fatalf("decode returned error: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].Score != 1 {
		t.Fatalf("unexpected result %#v", got)
	}

	got, err = Decode[payload](testContract(), payload{Items: []item{{Name: "rice", Score: 0.5}}})
	if err != nil {
		t.Fatalf("decode struct returned error: %v", err)
	}
	if got.Items[0].Name != "rice" {
		t.Fatalf("unexpected result %#v", got)
	}
}

func TestValidateAcceptsJSONNumber(t *testing.T) {
	dec := json.NewDecoder(strings.NewReader(`{"items":[{"name":"egg","score":0.25}]}`))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}

	got, err := Decode[payload](testContract(), raw)
	if err != nil {
		t.Fatalf("decode returned error: %v", err)
	}
	if got.Items[0].Score != 0.25 {
		t.Fatalf("unexpected score %v", got.Items[0].Score)
	}
}

func TestValidateIsIdempotent(t *testing.T) {
	c := testContract()
	raw := decodeJSON(t, `{"items":[{"name":"egg","score":0.92,"note":"x"},{"name":"Flour ","score":0}]}`)

	first, err := Decode[payload](c, raw)
	if err != nil {
		t.Fatalf("first decode: %v", err)
	}

	b, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	second, err := Decode[payload](c, decodeJSON(t, string(b)))
	if err != nil {
		t.Fatalf("second decode: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("revalidation altered value: %#v vs %#v", first, second)
	}
}

func TestJSONSchema(t *testing.T) {
	s := testContract().JSONSchema()

	if s["type"] != "object" || s["additionalProperties"] != false {
		t.Fatalf("unexpected root schema: %#v", s)
	}
	required, _ := s["required"].([]string)
	if !reflect.DeepEqual(required, []string{"items"}) {
		t.Fatalf("unexpected required list: %#v", s["required"])
	}

	items := s["properties"].(map[string]any)["items"].(map[string]any)
	if items["type"] != "array" || items["description"] != "Scored items." {
		t.Fatalf("unexpected items schema: %#v", items)
	}
	score := items["items"].(map[string]any)["properties"].(map[string]any)["score"].(map[string]any)
	if score["minimum"] != float64(0) || score["maximum"] != float64(1) {
		t.Fatalf("unexpected score schema: %#v", score)
	}

	if _, err := json.Marshal(s); err != nil {
		t.Fatalf("schema is not JSON encodable: %v", err)
	}
}

func TestOutline(t *testing.T) {
	want := strings.Join([]string{
		"- items (array): Scored items.",
		"- items[].name (string, non-empty): Item name.",
		"- items[].score (number, >= 0, <= 1)",
	}, "\n")

	if got := testContract().Outline(); got != want {
		t.Fatalf("unexpected outline:\n%s\nwant:\n%s", got, want)
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Contract: "test", Field: "items[0].score", Constraint: "<= 1", Value: 1.2}
	if got := err.Error(); got != `schema test: field items[0].score violates "<= 1" (got 1.2)` {
		t.Fatalf("unexpected message %q", got)
	}

	err = &ValidationError{Contract: "test", Field: "items", Constraint: "required"}
	if got := err.Error(); got != "schema test: field items is required" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestValidateRejectsControlCharacters(t *testing.T) {
	c := New("entry", Object(
		Field("name", String().NotEmpty().NoControl()),
		OptionalField("quantity", String().NoControl()),
	))

	tests := []struct {
		name  string
		raw   map[string]any
		field string
	}{
		{"nul in name", map[string]any{"name": "egg\x00media:http://10.0.0.1/\x00"}, "name"},
		{"newline in quantity", map[string]any{"name": "egg", "quantity": "2\nlarge"}, "quantity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Validate(tt.raw)
			verr, ok := AsValidationError(err)
			if !ok {
				t.Fatalf("expected validation error, got %v", err)
			}
			if verr.Field != tt.field || verr.Constraint != "no control characters" {
				t.Fatalf("unexpected error %+v", verr)
			}
		})
	}

	if _, err := c.Validate(map[string]any{"name": "crème fraîche", "quantity": "2 tbsp"}); err != nil {
		t.Fatalf("expected printable strings to pass, got %v", err)
	}
}

func TestValidateReportsFirstDeclaredField(t *testing.T) {
	raw := decodeJSON(t, `{"items":[{"name":"egg","score":0.5},{"name":"","score":7},{"score":-1}]}`)

	_, err := testContract().Validate(raw)
	verr, ok := AsValidationError(err)
	if !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
	if verr.Field != "items[1].name" || verr.Constraint != "non-empty" {
		t.Fatalf("unexpected error %+v", verr)
	}
}

func TestJSONSchemaOmitsPatterns(t *testing.T) {
	c := New("entry", Object(Field("name", String().NotEmpty().NoControl())))

	b, err := json.Marshal(c.JSONSchema())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(b), "pattern") {
		t.Fatalf("model-facing schema carries patterns: %s", b)
	}
	if !strings.Contains(string(b), `"minLength":1`) {
		t.Fatalf("expected minLength in schema: %s", b)
	}
}
