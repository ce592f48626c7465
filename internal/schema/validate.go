// internal/schema/validate.go
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const (
	constraintRequired  = "required"
	constraintFinite    = "finite"
	constraintNonEmpty  = "non-empty"
	constraintNoControl = "no control characters"
)

// ValidationError reports the first field that broke the contract.
type ValidationError struct {
	Contract   string
	Field      string
	Constraint string
	Value      any
}

func (e *ValidationError) Error() string {
	field := e.Field
	if field == "" {
		field = "(root)"
	}
	if e.Constraint == constraintRequired {
		return fmt.Sprintf("schema %s: field %s is required", e.Contract, field)
	}
	return fmt.Sprintf("schema %s: field %s violates %q (got %s)", e.Contract, field, e.Constraint, describeValue(e.Value))
}

// Validate checks raw against the contract and returns a normalized copy:
// objects keep only declared properties, null properties count as absent,
// numbers become float64, and nothing else is altered. Out-of-range values are
// rejected, never clamped.
func (c Contract) Validate(raw any) (any, error) {
	if c.Root == nil {
		return nil, fmt.Errorf("schema %s: contract has no root", c.Name)
	}

	tree, err := c.normalize(c.Root, raw, "")
	if err != nil {
		return nil, err
	}

	compiled, err := c.compiled()
	if err != nil {
		return nil, err
	}
	if err := compiled.Validate(tree); err != nil {
		var verr *jsonschema.ValidationError
		if !errors.As(err, &verr) {
			return nil, fmt.Errorf("schema %s: %w", c.Name, err)
		}
		return nil, c.describe(tree, verr)
	}
	return tree, nil
}

// Decode validates raw and converts the normalized value into T.
func Decode[T any](c Contract, raw any) (T, error) {
	var out T

	tree, err := c.Validate(raw)
	if err != nil {
		return out, err
	}

	b, err := json.Marshal(tree)
	if err != nil {
		return out, fmt.Errorf("schema %s: encode validated value: %w", c.Name, err)
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("schema %s: decode validated value: %w", c.Name, err)
	}
	return out, nil
}

// AsValidationError unwraps err into a *ValidationError, if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

func (c Contract) fail(path, constraint string, value any) error {
	return &ValidationError{Contract: c.Name, Field: path, Constraint: constraint, Value: value}
}

// Compiled schemas keyed by contract root.
var compiledSchemas sync.Map

func (c Contract) compiled() (*jsonschema.Schema, error) {
	if s, ok := compiledSchemas.Load(c.Root); ok {
		return s.(*jsonschema.Schema), nil
	}

	b, err := json.Marshal(c.Root.jsonSchema(true))
	if err != nil {
		return nil, fmt.Errorf("schema %s: encode: %w", c.Name, err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("schema %s: decode: %w", c.Name, err)
	}

	url := c.Name + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("schema %s: add resource: %w", c.Name, err)
	}
	s, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("schema %s: compile: %w", c.Name, err)
	}

	actual, _ := compiledSchemas.LoadOrStore(c.Root, s)
	return actual.(*jsonschema.Schema), nil
}

// normalize shapes v the way the validator and Decode expect it. Values of
// the wrong type are passed through so the validator reports them.
func (c Contract) normalize(n *Node, v any, path string) (any, error) {
	if !isTree(v) {
		converted, err := jsonTree(v)
		if err != nil {
			return nil, c.fail(path, "json value", fmt.Sprintf("%T", v))
		}
		v = converted
	}
	if n == nil {
		return v, nil
	}

	switch n.Type {
	case TypeObject:
		m, ok := v.(map[string]any)
		if !ok {
			return v, nil
		}
		out := make(map[string]any, len(n.Properties))
		for _, p := range n.Properties {
			val, present := m[p.Name]
			if !present || val == nil {
				continue
			}
			checked, err := c.normalize(p.Node, val, joinPath(path, p.Name))
			if err != nil {
				return nil, err
			}
			out[p.Name] = checked
		}
		return out, nil

	case TypeArray:
		items, ok := v.([]any)
		if !ok {
			return v, nil
		}
		out := make([]any, 0, len(items))
		for i, item := range items {
			if item == nil {
				out = append(out, nil)
				continue
			}
			checked, err := c.normalize(n.Items, item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out = append(out, checked)
		}
		return out, nil

	case TypeNumber:
		f, ok := toFloat(v)
		if !ok {
			return v, nil
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, c.fail(path, constraintFinite, f)
		}
		return f, nil
	}

	return v, nil
}

// violation is one leaf failure located within the contract.
type violation struct {
	n       *Node
	value   any
	field   string
	keyword string
	order   []int
}

// describe turns the validator's error tree into a ValidationError for the
// failure that comes first in declaration order.
func (c Contract) describe(tree any, verr *jsonschema.ValidationError) error {
	var leaves []*jsonschema.ValidationError
	collectLeaves(verr, &leaves)

	var found []violation
	for _, leaf := range leaves {
		keyword := ""
		if kp := leaf.ErrorKind.KeywordPath(); len(kp) > 0 {
			keyword = kp[len(kp)-1]
		}
		v, ok := c.locate(tree, leaf.InstanceLocation)
		if !ok {
			continue
		}
		v.keyword = keyword
		if keyword == "required" {
			v = c.missingProperty(v)
		}
		found = append(found, v)
	}
	if len(found) == 0 {
		return fmt.Errorf("schema %s: %w", c.Name, verr)
	}

	sort.SliceStable(found, func(i, j int) bool {
		return lessOrder(found[i].order, found[j].order)
	})
	first := found[0]
	return c.fail(first.field, first.constraint(), first.value)
}

func collectLeaves(verr *jsonschema.ValidationError, out *[]*jsonschema.ValidationError) {
	if len(verr.Causes) == 0 {
		*out = append(*out, verr)
		return
	}
	for _, cause := range verr.Causes {
		collectLeaves(cause, out)
	}
}

// locate walks an instance location through both the contract and the
// validated tree.
func (c Contract) locate(tree any, location []string) (violation, bool) {
	v := violation{n: c.Root, value: tree}
	for _, segment := range location {
		if v.n == nil {
			return v, false
		}
		switch v.n.Type {
		case TypeObject:
			idx := propertyIndex(v.n, segment)
			if idx == -1 {
				return v, false
			}
			m, _ := v.value.(map[string]any)
			v.value = m[segment]
			v.field = joinPath(v.field, segment)
			v.n = v.n.Properties[idx].Node
			v.order = append(v.order, idx)
		case TypeArray:
			i, err := strconv.Atoi(segment)
			items, _ := v.value.([]any)
			if err != nil || i < 0 || i >= len(items) {
				return v, false
			}
			v.value = items[i]
			v.field = fmt.Sprintf("%s[%d]", v.field, i)
			v.n = v.n.Items
			v.order = append(v.order, i)
		default:
			return v, false
		}
	}
	return v, true
}

// missingProperty moves a "required" failure from the object onto the first
// declared property it lacks.
func (c Contract) missingProperty(v violation) violation {
	if v.n == nil || v.n.Type != TypeObject {
		return v
	}
	m, _ := v.value.(map[string]any)
	for idx, p := range v.n.Properties {
		if _, present := m[p.Name]; p.Required && !present {
			return violation{
				n:       p.Node,
				field:   joinPath(v.field, p.Name),
				keyword: "required",
				order:   append(append([]int(nil), v.order...), idx),
			}
		}
	}
	return v
}

func (v violation) constraint() string {
	if v.value == nil && (v.keyword == "type" || v.keyword == "required") {
		return constraintRequired
	}
	switch v.keyword {
	case "type":
		if v.n != nil {
			return "type " + string(v.n.Type)
		}
	case "minItems":
		if v.n != nil {
			return fmt.Sprintf("at least %d item(s)", v.n.MinItems)
		}
	case "minLength":
		return constraintNonEmpty
	case "pattern":
		if s, ok := v.value.(string); ok && v.n != nil && v.n.NoControlChars && hasControl(s) {
			return constraintNoControl
		}
		return constraintNonEmpty
	case "minimum":
		if v.n != nil && v.n.Minimum != nil {
			return ">= " + formatNumber(*v.n.Minimum)
		}
	case "maximum":
		if v.n != nil && v.n.Maximum != nil {
			return "<= " + formatNumber(*v.n.Maximum)
		}
	}
	return v.keyword
}

func propertyIndex(n *Node, name string) int {
	for i, p := range n.Properties {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// lessOrder compares declaration paths; a parent sorts before its children.
func lessOrder(a, b []int) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

func hasControl(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		return r < 0x20 || r == 0x7f
	}) != -1
}

// isTree reports whether v is already one of the shapes encoding/json
// produces when decoding into any (plus Go numeric kinds).
func isTree(v any) bool {
	switch v.(type) {
	case nil, bool, string, json.Number, map[string]any, []any,
		float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

func jsonTree(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func describeValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", t)
	case map[string]any:
		return "object"
	case []any:
		return fmt.Sprintf("array of %d", len(t))
	}
	return fmt.Sprintf("%v", v)
}
