// internal/schema/schema.go

// Package schema declares the shape of flow inputs and outputs: field names,
// primitive types and numeric ranges. Contracts are plain values and carry no
// state, so one contract can be shared by any number of concurrent calls.
package schema

import (
	"fmt"
	"strings"
)

type Type string

const (
	TypeString Type = "string"
	TypeNumber Type = "number"
	TypeArray  Type = "array"
	TypeObject Type = "object"
)

// Node describes one value in a contract.
type Node struct {
	Type        Type
	Description string

	// objects
	Properties []Property
	// arrays
	Items    *Node
	MinItems int
	// strings
	NonEmpty       bool
	NoControlChars bool
	// numbers
	Minimum *float64
	Maximum *float64
}

type Property struct {
	Name     string
	Required bool
	Node     *Node
}

// Contract is a named root node.
type Contract struct {
	Name string
	Root *Node
}

func New(name string, root *Node) Contract {
	return Contract{Name: name, Root: root}
}

func String() *Node { return &Node{Type: TypeString} }

func Number() *Node { return &Node{Type: TypeNumber} }

func Array(items *Node) *Node { return &Node{Type: TypeArray, Items: items} }

func Object(props ...Property) *Node { return &Node{Type: TypeObject, Properties: props} }

// Field declares a required property.
func Field(name string, node *Node) Property {
	return Property{Name: name, Required: true, Node: node}
}

// OptionalField declares a property that may be absent or null.
func OptionalField(name string, node *Node) Property {
	return Property{Name: name, Node: node}
}

func (n *Node) Doc(description string) *Node {
	n.Description = description
	return n
}

// NotEmpty requires at least one non-blank character for strings and at
// least one element for arrays.
func (n *Node) NotEmpty() *Node {
	switch n.Type {
	case TypeString:
		n.NonEmpty = true
	case TypeArray:
		n.MinItems = 1
	}
	return n
}

// NoControl rejects strings containing ASCII control characters, including
// newlines and NUL.
func (n *Node) NoControl() *Node {
	n.NoControlChars = true
	return n
}

func (n *Node) Min(v float64) *Node {
	n.Minimum = &v
	return n
}

func (n *Node) Max(v float64) *Node {
	n.Maximum = &v
	return n
}

func (n *Node) Range(lo, hi float64) *Node {
	return n.Min(lo).Max(hi)
}

// JSONSchema renders the contract as a JSON Schema document for model
// clients that support structured output.
func (c Contract) JSONSchema() map[string]any {
	if c.Root == nil {
		return nil
	}
	return c.Root.jsonSchema(false)
}

// Patterns only used when validating. Providers support few regex features.
const (
	nonBlankPattern  = `\S`
	noControlPattern = `^[^\x00-\x1f\x7f]*$`
)

// jsonSchema renders n. The validating form also expresses the string rules
// minLength cannot, as patterns.
func (n *Node) jsonSchema(validating bool) map[string]any {
	out := map[string]any{"type": string(n.Type)}
	if n.Description != "" {
		out["description"] = n.Description
	}

	switch n.Type {
	case TypeObject:
		props := map[string]any{}
		required := make([]string, 0, len(n.Properties))
		for _, p := range n.Properties {
			props[p.Name] = p.Node.jsonSchema(validating)
			if p.Required {
				required = append(required, p.Name)
			}
		}
		out["properties"] = props
		out["additionalProperties"] = false
		if len(required) > 0 {
			out["required"] = required
		}
	case TypeArray:
		if n.Items != nil {
			out["items"] = n.Items.jsonSchema(validating)
		}
		if n.MinItems > 0 {
			out["minItems"] = n.MinItems
		}
	case TypeString:
		if n.NonEmpty {
			out["minLength"] = 1
		}
		if validating {
			switch {
			case n.NonEmpty && n.NoControlChars:
				out["allOf"] = []any{
					map[string]any{"pattern": nonBlankPattern},
					map[string]any{"pattern": noControlPattern},
				}
			case n.NonEmpty:
				out["pattern"] = nonBlankPattern
			case n.NoControlChars:
				out["pattern"] = noControlPattern
			}
		}
	case TypeNumber:
		if n.Minimum != nil {
			out["minimum"] = *n.Minimum
		}
		if n.Maximum != nil {
			out["maximum"] = *n.Maximum
		}
	}
	return out
}

// Outline lists every leaf field of the contract, one per line, in the form
// "- path (type, constraints): description". Prompt templates embed it so the
// model sees the exact field names it must produce.
func (c Contract) Outline() string {
	if c.Root == nil {
		return ""
	}
	var lines []string
	c.Root.outline("", &lines)
	return strings.Join(lines, "\n")
}

func (n *Node) outline(path string, lines *[]string) {
	switch n.Type {
	case TypeObject:
		for _, p := range n.Properties {
			p.Node.outline(joinPath(path, p.Name), lines)
		}
	case TypeArray:
		if n.Items == nil {
			*lines = append(*lines, n.outlineLine(path))
			return
		}
		if n.Items.Type == TypeObject {
			if n.Description != "" {
				*lines = append(*lines, n.outlineLine(path))
			}
			n.Items.outline(path+"[]", lines)
			return
		}
		*lines = append(*lines, n.outlineLine(path))
	default:
		*lines = append(*lines, n.outlineLine(path))
	}
}

func (n *Node) outlineLine(path string) string {
	line := fmt.Sprintf("- %s (%s)", path, strings.Join(n.constraints(), ", "))
	if n.Description != "" {
		line += ": " + n.Description
	}
	return line
}

func (n *Node) constraints() []string {
	parts := []string{string(n.Type)}
	switch n.Type {
	case TypeString:
		if n.NonEmpty {
			parts = append(parts, "non-empty")
		}
		if n.NoControlChars {
			parts = append(parts, constraintNoControl)
		}
	case TypeNumber:
		if n.Minimum != nil {
			parts = append(parts, ">= "+formatNumber(*n.Minimum))
		}
		if n.Maximum != nil {
			parts = append(parts, "<= "+formatNumber(*n.Maximum))
		}
	case TypeArray:
		if n.MinItems > 0 {
			parts = append(parts, fmt.Sprintf("at least %d item(s)", n.MinItems))
		}
	}
	return parts
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func formatNumber(v float64) string {
	return fmt.Sprintf("%g", v)
}
