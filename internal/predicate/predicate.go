// Package predicate evaluates the structured conditions carried by the rule
// catalog: fallback role rules, validation checks, classification flags and
// provider applicability.
//
// A predicate is either a leaf comparing one named field against a literal,
// or a composite of other predicates:
//
//	{"field": "country", "op": "in", "value": ["GB", "IE"]}
//	{"all": [{"field": "registrationNumber", "op": "exists"}, {"not": {"field": "sicCode", "op": "prefix", "value": "64"}}]}
//
// String comparisons ignore case and surrounding whitespace. A missing field
// makes every operator false except absent.
package predicate

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Operator names a leaf comparison.
type Operator string

const (
	OpEquals    Operator = "eq"
	OpNotEquals Operator = "neq"
	OpIn        Operator = "in"
	OpNotIn     Operator = "not_in"
	OpContains  Operator = "contains"
	OpPrefix    Operator = "prefix"
	OpSuffix    Operator = "suffix"
	OpExists    Operator = "exists"
	OpAbsent    Operator = "absent"
	OpMatches   Operator = "matches"
	OpGreater   Operator = "gt"
	OpGreaterEq Operator = "gte"
	OpLess      Operator = "lt"
	OpLessEq    Operator = "lte"
)

// Expr is the serialized form of a predicate as it appears in the catalog.
// Exactly one of Field, All, Any or Not is set.
type Expr struct {
	Field string   `json:"field,omitempty"`
	Op    Operator `json:"op,omitempty"`
	Value any      `json:"value,omitempty"`
	All   []Expr   `json:"all,omitempty"`
	Any   []Expr   `json:"any,omitempty"`
	Not   *Expr    `json:"not,omitempty"`
}

// Fields is the flat view of a subject that predicates read from.
// Absent keys and empty values both count as missing.
type Fields map[string]string

// Lookup returns the trimmed value of name and whether it is present.
func (f Fields) Lookup(name string) (string, bool) {
	v, ok := f[name]
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// String renders the expression for audit trails and error messages.
func (e Expr) String() string {
	switch {
	case len(e.All) > 0:
		return joinExprs("all", e.All)
	case len(e.Any) > 0:
		return joinExprs("any", e.Any)
	case e.Not != nil:
		return "not(" + e.Not.String() + ")"
	case e.Op == OpExists || e.Op == OpAbsent:
		return fmt.Sprintf("%s %s", e.Field, e.Op)
	default:
		raw, _ := json.Marshal(e.Value)
		return fmt.Sprintf("%s %s %s", e.Field, e.Op, raw)
	}
}

func joinExprs(kind string, exprs []Expr) string {
	parts := make([]string, len(exprs))
	for i, x := range exprs {
		parts[i] = x.String()
	}
	return kind + "(" + strings.Join(parts, ", ") + ")"
}
