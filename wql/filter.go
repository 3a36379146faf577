// Package wql builds WQL query filters from typed expressions.
//
// Filters are composed as a small expression tree and rendered by a
// single serializer that escapes string values, so callers never
// interpolate raw input into query text.
package wql

import (
	"fmt"
	"strings"
)

// Expr is a filter expression node.
type Expr interface {
	// render appends the expression's WQL text to sb.
	render(sb *strings.Builder)
}

// String renders an expression to WQL text.
func String(e Expr) string {
	if e == nil {
		return ""
	}
	var sb strings.Builder
	e.render(&sb)
	return sb.String()
}

// escape makes a string value safe for single-quoted WQL literals.
func escape(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return v
}

type comparison struct {
	field string
	op    string
	value string
	quote bool
}

func (c comparison) render(sb *strings.Builder) {
	sb.WriteString("(")
	sb.WriteString(c.field)
	sb.WriteString(" ")
	sb.WriteString(c.op)
	sb.WriteString(" ")
	if c.quote {
		sb.WriteString("'")
		sb.WriteString(escape(c.value))
		sb.WriteString("'")
	} else {
		sb.WriteString(c.value)
	}
	sb.WriteString(")")
}

// Eq matches a string field exactly.
func Eq(field, value string) Expr {
	return comparison{field: field, op: "=", value: value, quote: true}
}

// Like matches a string field against a pattern (% and _ wildcards).
func Like(field, pattern string) Expr {
	return comparison{field: field, op: "LIKE", value: pattern, quote: true}
}

// EqInt matches an integer field exactly.
func EqInt(field string, value int) Expr {
	return comparison{field: field, op: "=", value: fmt.Sprintf("%d", value)}
}

// EqBool matches a boolean field exactly (WQL spells booleans TRUE/FALSE).
func EqBool(field string, value bool) Expr {
	v := "FALSE"
	if value {
		v = "TRUE"
	}
	return comparison{field: field, op: "=", value: v}
}

type junction struct {
	op    string
	exprs []Expr
}

func (j junction) render(sb *strings.Builder) {
	if len(j.exprs) == 0 {
		return
	}
	if len(j.exprs) == 1 {
		// A one-branch junction still adds its parenthesis layer so that
		// value-set predicates render uniformly.
		sb.WriteString("(")
		j.exprs[0].render(sb)
		sb.WriteString(")")
		return
	}
	sb.WriteString("(")
	for i, e := range j.exprs {
		if i > 0 {
			sb.WriteString(" ")
			sb.WriteString(j.op)
			sb.WriteString(" ")
		}
		e.render(sb)
	}
	sb.WriteString(")")
}

// And joins expressions with AND.
func And(exprs ...Expr) Expr {
	return junction{op: "AND", exprs: exprs}
}

// Or joins expressions with OR.
func Or(exprs ...Expr) Expr {
	return junction{op: "OR", exprs: exprs}
}

// Match builds the predicate for one string field against a value set:
// each value becomes an exact (=) or pattern (LIKE, when search is set)
// clause, OR-joined and wrapped in one more parenthesis layer.
func Match(field string, values []string, search bool) Expr {
	exprs := make([]Expr, 0, len(values))
	for _, v := range values {
		if search {
			exprs = append(exprs, Like(field, v))
		} else {
			exprs = append(exprs, Eq(field, v))
		}
	}
	return Or(exprs...)
}

// MatchInt builds the predicate for one integer field against a value set.
func MatchInt(field string, values []int) Expr {
	exprs := make([]Expr, 0, len(values))
	for _, v := range values {
		exprs = append(exprs, EqInt(field, v))
	}
	return Or(exprs...)
}

// SelectAll renders a full WQL statement selecting every property of
// className, with an optional WHERE expression. An expression that
// renders to nothing, such as a junction over an empty value set, is
// treated the same as no expression at all.
func SelectAll(className string, where Expr) string {
	var sb strings.Builder
	sb.WriteString("SELECT * FROM ")
	sb.WriteString(className)
	if predicate := String(where); predicate != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(predicate)
	}
	return sb.String()
}
