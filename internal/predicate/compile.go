package predicate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Predicate is a compiled, immutable Expr. Safe for concurrent use.
type Predicate struct {
	expr Expr
	eval func(Fields) bool
}

// Compile validates e and prepares it for evaluation. Unknown operators,
// malformed literals and invalid regular expressions are rejected here so a
// catalog that loads never fails at evaluation time.
func Compile(e Expr) (*Predicate, error) {
	fn, err := compile(e, "$")
	if err != nil {
		return nil, err
	}
	return &Predicate{expr: e, eval: fn}, nil
}

// MustCompile is Compile for literals in tests and defaults.
func MustCompile(e Expr) *Predicate {
	p, err := Compile(e)
	if err != nil {
		panic(err)
	}
	return p
}

// Eval reports whether the predicate holds for f. A nil predicate holds.
func (p *Predicate) Eval(f Fields) bool {
	if p == nil {
		return true
	}
	return p.eval(f)
}

// Expr returns the source expression.
func (p *Predicate) Expr() Expr {
	return p.expr
}

func (p *Predicate) String() string {
	if p == nil {
		return "always"
	}
	return p.expr.String()
}

func compile(e Expr, path string) (func(Fields) bool, error) {
	shapes := 0
	if e.Field != "" {
		shapes++
	}
	if len(e.All) > 0 {
		shapes++
	}
	if len(e.Any) > 0 {
		shapes++
	}
	if e.Not != nil {
		shapes++
	}
	if shapes != 1 {
		return nil, fmt.Errorf("%s: expression must set exactly one of field, all, any, not", path)
	}

	switch {
	case len(e.All) > 0:
		parts, err := compileAll(e.All, path+".all")
		if err != nil {
			return nil, err
		}
		return func(f Fields) bool {
			for _, p := range parts {
				if !p(f) {
					return false
				}
			}
			return true
		}, nil
	case len(e.Any) > 0:
		parts, err := compileAll(e.Any, path+".any")
		if err != nil {
			return nil, err
		}
		return func(f Fields) bool {
			for _, p := range parts {
				if p(f) {
					return true
				}
			}
			return false
		}, nil
	case e.Not != nil:
		inner, err := compile(*e.Not, path+".not")
		if err != nil {
			return nil, err
		}
		return func(f Fields) bool { return !inner(f) }, nil
	default:
		return compileLeaf(e, path)
	}
}

func compileAll(exprs []Expr, path string) ([]func(Fields) bool, error) {
	out := make([]func(Fields) bool, len(exprs))
	for i, x := range exprs {
		fn, err := compile(x, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out[i] = fn
	}
	return out, nil
}

func compileLeaf(e Expr, path string) (func(Fields) bool, error) {
	field := e.Field
	switch e.Op {
	case OpExists:
		return func(f Fields) bool { _, ok := f.Lookup(field); return ok }, nil
	case OpAbsent:
		return func(f Fields) bool { _, ok := f.Lookup(field); return !ok }, nil
	case OpEquals, OpNotEquals, OpContains, OpPrefix, OpSuffix:
		want, err := scalar(e.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: %s %s: %w", path, field, e.Op, err)
		}
		want = fold(want)
		cmp := stringOps[e.Op]
		return present(field, func(v string) bool { return cmp(fold(v), want) }), nil
	case OpIn, OpNotIn:
		set, err := stringSet(e.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: %s %s: %w", path, field, e.Op, err)
		}
		negate := e.Op == OpNotIn
		return present(field, func(v string) bool {
			_, ok := set[fold(v)]
			return ok != negate
		}), nil
	case OpMatches:
		pattern, err := scalar(e.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: %s matches: %w", path, field, err)
		}
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("%s: %s matches: %w", path, field, err)
		}
		return present(field, re.MatchString), nil
	case OpGreater, OpGreaterEq, OpLess, OpLessEq:
		raw, err := scalar(e.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: %s %s: %w", path, field, e.Op, err)
		}
		want, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %s %s: value must be numeric", path, field, e.Op)
		}
		cmp := numericOps[e.Op]
		return present(field, func(v string) bool {
			got, err := strconv.ParseFloat(v, 64)
			return err == nil && cmp(got, want)
		}), nil
	case "":
		return nil, fmt.Errorf("%s: %s: operator is required", path, field)
	default:
		return nil, fmt.Errorf("%s: %s: unknown operator %q", path, field, e.Op)
	}
}

var stringOps = map[Operator]func(got, want string) bool{
	OpEquals:    func(got, want string) bool { return got == want },
	OpNotEquals: func(got, want string) bool { return got != want },
	OpContains:  strings.Contains,
	OpPrefix:    strings.HasPrefix,
	OpSuffix:    strings.HasSuffix,
}

var numericOps = map[Operator]func(got, want float64) bool{
	OpGreater:   func(got, want float64) bool { return got > want },
	OpGreaterEq: func(got, want float64) bool { return got >= want },
	OpLess:      func(got, want float64) bool { return got < want },
	OpLessEq:    func(got, want float64) bool { return got <= want },
}

func present(field string, test func(string) bool) func(Fields) bool {
	return func(f Fields) bool {
		v, ok := f.Lookup(field)
		return ok && test(v)
	}
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func scalar(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(x), nil
	case fmt.Stringer:
		return x.String(), nil
	case nil:
		return "", fmt.Errorf("value is required")
	default:
		return "", fmt.Errorf("value must be a scalar, got %T", v)
	}
}

func stringSet(v any) (map[string]struct{}, error) {
	var items []any
	switch x := v.(type) {
	case []any:
		items = x
	case []string:
		for _, s := range x {
			items = append(items, s)
		}
	default:
		return nil, fmt.Errorf("value must be a list")
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("value list must not be empty")
	}
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		s, err := scalar(it)
		if err != nil {
			return nil, err
		}
		set[fold(s)] = struct{}{}
	}
	return set, nil
}
