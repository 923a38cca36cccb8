// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

// Package exprfilter compiles restricted filter expressions of the form
// "column operator value" into typed predicates. The grammar is a
// single comparison; composition happens at a higher level by chaining
// filters.
package exprfilter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sentinel errors returned by Parse and Compile.
var (
	ErrMalformedExpression = errors.New("malformed filter expression")
	ErrUnsupportedOperator = errors.New("unsupported filter operator")
	ErrUnknownColumn       = errors.New("unknown column")
)

// Operator is a comparison operator of the filter grammar.
type Operator string

const (
	OpEqual          Operator = "=="
	OpGreater        Operator = ">"
	OpLess           Operator = "<"
	OpGreaterOrEqual Operator = ">="
	OpLessOrEqual    Operator = "<="
	OpLike           Operator = "like"
)

// parseOperator accepts the token spelling of an operator. Only "like"
// is case-insensitive.
func parseOperator(token string) (Operator, error) {
	switch token {
	case "==", ">", "<", ">=", "<=":
		return Operator(token), nil
	}
	if strings.EqualFold(token, "like") {
		return OpLike, nil
	}
	return "", fmt.Errorf("%w: %q (expected ==, >, <, >=, <= or like)", ErrUnsupportedOperator, token)
}

// Kind tags the Go type of a coerced literal.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	default:
		return "string"
	}
}

// Literal is a coerced comparison value. Value holds a string, int64
// or float64 depending on Kind.
type Literal struct {
	Kind  Kind
	Value any
}

// Expression is the parsed form of a filter string, before column
// resolution.
type Expression struct {
	Column   string
	Operator Operator
	Literal  Literal
}

// ColumnResolver resolves a column name against the schema of a data
// source. Implementations report whether the column exists; matching
// is expected to be case-insensitive, as feature names are.
type ColumnResolver interface {
	ResolveColumn(name string) bool
}

// ColumnResolverFunc adapts a function to the ColumnResolver interface.
type ColumnResolverFunc func(name string) bool

func (f ColumnResolverFunc) ResolveColumn(name string) bool { return f(name) }

// Filter is a compiled predicate: a resolved column compared against a
// literal.
type Filter struct {
	Column   string
	Operator Operator
	Literal  Literal
}

// Parse tokenizes and type-checks a filter expression without
// resolving the column. The expression must have at least three
// whitespace-separated tokens: column, operator, and the literal
// (which may itself contain spaces).
func Parse(expr string) (Expression, error) {
	tokens := strings.Fields(expr)
	if len(tokens) < 3 {
		return Expression{}, fmt.Errorf("%w: %q (expected \"column operator value\")", ErrMalformedExpression, expr)
	}

	op, err := parseOperator(tokens[1])
	if err != nil {
		return Expression{}, err
	}

	return Expression{
		Column:   tokens[0],
		Operator: op,
		Literal:  coerceLiteral(strings.Join(tokens[2:], " ")),
	}, nil
}

// Compile parses an expression and resolves its column through the
// caller's schema.
func Compile(expr string, resolver ColumnResolver) (Filter, error) {
	parsed, err := Parse(expr)
	if err != nil {
		return Filter{}, err
	}
	if resolver == nil || !resolver.ResolveColumn(parsed.Column) {
		return Filter{}, fmt.Errorf("%w: %q", ErrUnknownColumn, parsed.Column)
	}
	return Filter{
		Column:   parsed.Column,
		Operator: parsed.Operator,
		Literal:  parsed.Literal,
	}, nil
}

// coerceLiteral strips one matching outer quote pair and attempts
// numeric coercion. A quoted literal always stays a string. Unquoted
// literals parse as float when they contain a dot, as int otherwise,
// falling back to string either way.
func coerceLiteral(raw string) Literal {
	if stripped, quoted := stripQuotes(raw); quoted {
		return Literal{Kind: KindString, Value: stripped}
	}
	if strings.Contains(raw, ".") {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return Literal{Kind: KindFloat, Value: f}
		}
		return Literal{Kind: KindString, Value: raw}
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return Literal{Kind: KindInt, Value: n}
	}
	return Literal{Kind: KindString, Value: raw}
}

// stripQuotes removes a single matching pair of outer quotes.
func stripQuotes(s string) (string, bool) {
	if len(s) < 2 {
		return s, false
	}
	first, last := s[0], s[len(s)-1]
	if first != last || (first != '\'' && first != '"') {
		return s, false
	}
	return s[1 : len(s)-1], true
}
