// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package exprfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func anyColumn(string) bool { return true }

func TestCompileOperators(t *testing.T) {
	for _, op := range []string{"==", ">", "<", ">=", "<=", "like", "LIKE", "Like"} {
		f, err := Compile("age "+op+" 30", ColumnResolverFunc(anyColumn))
		require.NoError(t, err, op)
		assert.Equal(t, "age", f.Column)
		assert.Equal(t, Literal{Kind: KindInt, Value: int64(30)}, f.Literal)
		if op == "==" || op == ">" || op == "<" || op == ">=" || op == "<=" {
			assert.Equal(t, Operator(op), f.Operator)
		} else {
			assert.Equal(t, OpLike, f.Operator)
		}
	}
}

func TestLiteralCoercion(t *testing.T) {
	tests := []struct {
		expr string
		want Literal
	}{
		{"price > 19.99", Literal{Kind: KindFloat, Value: 19.99}},
		{"price > 20", Literal{Kind: KindInt, Value: int64(20)}},
		{"name == alice", Literal{Kind: KindString, Value: "alice"}},
		{"category == 'books'", Literal{Kind: KindString, Value: "books"}},
		{`category == "sci-fi"`, Literal{Kind: KindString, Value: "sci-fi"}},
		// Quoted numbers stay strings.
		{"version == '2'", Literal{Kind: KindString, Value: "2"}},
		// Multi-segment versions are not valid floats.
		{"version == 2.0.1", Literal{Kind: KindString, Value: "2.0.1"}},
		// Literal with spaces, rejoined from several tokens.
		{"title == 'war and peace'", Literal{Kind: KindString, Value: "war and peace"}},
		// Mismatched quotes are kept verbatim.
		{`note == 'half"`, Literal{Kind: KindString, Value: `'half"`}},
		{"temp <= -4", Literal{Kind: KindInt, Value: int64(-4)}},
		{"temp <= -4.5", Literal{Kind: KindFloat, Value: -4.5}},
	}
	for _, tt := range tests {
		f, err := Compile(tt.expr, ColumnResolverFunc(anyColumn))
		require.NoError(t, err, tt.expr)
		assert.Equal(t, tt.want, f.Literal, tt.expr)
	}
}

func TestMalformedExpressions(t *testing.T) {
	for _, expr := range []string{"", "age", "age 30", "  age  >  "} {
		_, err := Compile(expr, ColumnResolverFunc(anyColumn))
		assert.ErrorIs(t, err, ErrMalformedExpression, expr)
	}
}

func TestUnsupportedOperator(t *testing.T) {
	for _, expr := range []string{"age != 30", "age = 30", "age in (1,2)", "age >> 2"} {
		_, err := Compile(expr, ColumnResolverFunc(anyColumn))
		assert.ErrorIs(t, err, ErrUnsupportedOperator, expr)
	}
}

func TestUnknownColumn(t *testing.T) {
	schema := map[string]bool{"age": true, "name": true}
	resolver := ColumnResolverFunc(func(name string) bool { return schema[name] })

	_, err := Compile("height > 180", resolver)
	assert.ErrorIs(t, err, ErrUnknownColumn)

	_, err = Compile("age > 180", resolver)
	assert.NoError(t, err)

	_, err = Compile("age > 180", nil)
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestParseDoesNotResolve(t *testing.T) {
	expr, err := Parse("missing == 1")
	require.NoError(t, err)
	assert.Equal(t, "missing", expr.Column)
}

func TestCompileIsPure(t *testing.T) {
	a, err := Compile("score >= 0.5", ColumnResolverFunc(anyColumn))
	require.NoError(t, err)
	b, err := Compile("score >= 0.5", ColumnResolverFunc(anyColumn))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
