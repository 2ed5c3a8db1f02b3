// Package query implements a small predicate language over span attributes,
// used to filter layers from the CLI and from code:
//
//	lemma == "mis" and start >= 5
//	not (pos == "V") or len < 3
//
// The reserved operands start, end and len evaluate to span offsets; text
// evaluates to the covered text of a bound span; any other identifier reads
// an attribute declared by the layer. On ambiguous layers a comparison holds
// when any annotation at the location satisfies it.
package query

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/strata-nlp/strata/core/errors"
	"github.com/strata-nlp/strata/core/layer"
)

type grammar struct {
	Or []*andExpr `parser:"@@ ( \"or\" @@ )*"`
}

type andExpr struct {
	Terms []*term `parser:"@@ ( \"and\" @@ )*"`
}

type term struct {
	Not *term       `parser:"  \"not\" @@"`
	Sub *grammar    `parser:"| \"(\" @@ \")\""`
	Cmp *comparison `parser:"| @@"`
}

type comparison struct {
	Left  *operand `parser:"@@"`
	Op    string   `parser:"@Op"`
	Right *operand `parser:"@@"`
}

type operand struct {
	Number *float64 `parser:"  @Number"`
	Str    *string  `parser:"| @String"`
	Null   bool     `parser:"| @\"null\""`
	Ident  *string  `parser:"| @Ident"`
}

// queryLexer tokenizes filter expressions.
var queryLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Number", Pattern: `-?\d+(?:\.\d+)?`},
	{Name: "String", Pattern: `"[^"]*"`},
	{Name: "Op", Pattern: `==|!=|<=|>=|<|>`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Paren", Pattern: `[()]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// queryParser parses filter expressions.
var queryParser = participle.MustBuild[grammar](
	participle.Lexer(queryLexer),
	participle.Elide("Whitespace"),
)

// Query is a compiled filter expression.
type Query struct {
	source string
	root   *grammar
}

// Compile parses a filter expression. It fails with a ParseError on
// malformed input.
func Compile(source string) (*Query, error) {
	root, err := queryParser.ParseString("", source)
	if err != nil {
		return nil, errors.NewParse("query", "", err.Error())
	}
	return &Query{source: source, root: root}, nil
}

// MustCompile parses a filter expression and panics on malformed input.
func MustCompile(source string) *Query {
	q, err := Compile(source)
	if err != nil {
		panic(err)
	}
	return q
}

// Source returns the original expression text.
func (q *Query) Source() string { return q.source }

func (q *Query) String() string { return q.source }

// Eval evaluates the query against one span entry.
func (q *Query) Eval(s *layer.Span) (bool, error) {
	return q.root.eval(s)
}

// Filter returns a new layer holding the span entries matching the query.
func (q *Query) Filter(l *layer.Layer) (*layer.Layer, error) {
	var evalErr error
	out := l.Filter(func(s *layer.Span) bool {
		if evalErr != nil {
			return false
		}
		ok, err := q.root.eval(s)
		if err != nil {
			evalErr = err
			return false
		}
		return ok
	})
	if evalErr != nil {
		return nil, evalErr
	}
	return out, nil
}

func (g *grammar) eval(s *layer.Span) (bool, error) {
	for _, a := range g.Or {
		ok, err := a.eval(s)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (a *andExpr) eval(s *layer.Span) (bool, error) {
	for _, t := range a.Terms {
		ok, err := t.eval(s)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (t *term) eval(s *layer.Span) (bool, error) {
	switch {
	case t.Not != nil:
		ok, err := t.Not.eval(s)
		return !ok, err
	case t.Sub != nil:
		return t.Sub.eval(s)
	default:
		return t.Cmp.eval(s)
	}
}

// eval compares the operand value sets. Attribute operands contribute one
// value per annotation at the location; the comparison holds when any pair
// of left and right values satisfies the operator.
func (c *comparison) eval(s *layer.Span) (bool, error) {
	left, err := c.Left.values(s)
	if err != nil {
		return false, err
	}
	right, err := c.Right.values(s)
	if err != nil {
		return false, err
	}
	for _, lv := range left {
		for _, rv := range right {
			if compareValues(lv, rv, c.Op) {
				return true, nil
			}
		}
	}
	return false, nil
}

// values resolves an operand against a span entry.
func (o *operand) values(s *layer.Span) ([]interface{}, error) {
	switch {
	case o.Number != nil:
		return []interface{}{*o.Number}, nil
	case o.Str != nil:
		return []interface{}{strings.Trim(*o.Str, `"`)}, nil
	case o.Null:
		return []interface{}{nil}, nil
	}
	switch *o.Ident {
	case "start":
		return []interface{}{float64(s.Start())}, nil
	case "end":
		return []interface{}{float64(s.End())}, nil
	case "len":
		return []interface{}{float64(s.Len())}, nil
	case "text":
		txt, err := s.EnclosingText()
		if err != nil {
			return nil, err
		}
		return []interface{}{txt}, nil
	}
	return s.GetAll(*o.Ident)
}

// compareValues applies op to one pair of values. Numbers compare as
// float64, strings lexicographically; null supports equality only. Pairs of
// mismatched kinds are equal to nothing and unequal to everything.
func compareValues(a, b interface{}, op string) bool {
	if a == nil || b == nil {
		switch op {
		case "==":
			return a == nil && b == nil
		case "!=":
			return (a == nil) != (b == nil)
		}
		return false
	}
	if an, aok := asFloat(a); aok {
		bn, bok := asFloat(b)
		if !bok {
			return op == "!="
		}
		return compareOrdered(an, bn, op)
	}
	if as, aok := a.(string); aok {
		bs, bok := b.(string)
		if !bok {
			return op == "!="
		}
		return compareOrdered(as, bs, op)
	}
	// Fallback for bools and other scalars: equality only.
	switch op {
	case "==":
		return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
	case "!=":
		return fmt.Sprintf("%v", a) != fmt.Sprintf("%v", b)
	}
	return false
}

func compareOrdered[T float64 | string](a, b T, op string) bool {
	switch op {
	case "==":
		return a == b
	case "!=":
		return a != b
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	case ">=":
		return a >= b
	}
	return false
}

func asFloat(v interface{}) (float64, bool) {
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
	case uint64:
		return float64(n), true
	}
	return 0, false
}
