// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package udf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAndInvokeOneToOne(t *testing.T) {
	fn, err := NewLoader().Load("def double(x):\n    return x * 2\n")
	require.NoError(t, err)
	assert.Equal(t, "double", fn.Name)
	assert.Equal(t, []string{"x"}, fn.DataParameters())
	assert.Equal(t, OneToOne, fn.Shape(1))

	out, err := fn.Invoke(map[string]any{"x": 5}, InvokeOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(10), out)
}

func TestManyToOne(t *testing.T) {
	fn, err := NewLoader().Load("def total(a, b):\n    return a + b\n")
	require.NoError(t, err)
	assert.Equal(t, ManyToOne, fn.Shape(1))

	out, err := fn.Invoke(map[string]any{"a": 1.5, "b": 2}, InvokeOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3.5, out)

	_, err = fn.Invoke(map[string]any{"a": 1.5}, InvokeOptions{})
	assert.ErrorIs(t, err, ErrMissingParameter)
}

func TestShapeClassification(t *testing.T) {
	assert.Equal(t, OneToOne, classifyShape(1, 1))
	assert.Equal(t, OneToMany, classifyShape(1, 3))
	assert.Equal(t, ManyToOne, classifyShape(2, 1))
	assert.Equal(t, ManyToMany, classifyShape(2, 2))
}

func TestNoFunction(t *testing.T) {
	_, err := NewLoader().Load("x = 5\n")
	assert.ErrorIs(t, err, ErrNoFunction)
}

func TestAmbiguousFunction(t *testing.T) {
	src := "def f(x):\n    return x\n\ndef g(x):\n    return x\n"
	_, err := NewLoader().Load(src)
	assert.ErrorIs(t, err, ErrAmbiguousFunction)
}

func TestSyntaxErrorWrapped(t *testing.T) {
	_, err := NewLoader().Load("def broken(:\n")
	assert.ErrorIs(t, err, ErrCodeExecution)
}

func TestRuntimeErrorWrapped(t *testing.T) {
	fn, err := NewLoader().Load("def boom(x):\n    return x[10]\n")
	require.NoError(t, err)
	_, err = fn.Invoke(map[string]any{"x": []any{1}}, InvokeOptions{})
	assert.ErrorIs(t, err, ErrCodeExecution)
}

func TestStepBudget(t *testing.T) {
	fn, err := NewLoader(WithMaxSteps(1000)).Load("def spin(x):\n    for i in range(1000000):\n        x += 1\n    return x\n")
	require.NoError(t, err)
	_, err = fn.Invoke(map[string]any{"x": 0}, InvokeOptions{})
	assert.ErrorIs(t, err, ErrCodeExecution)
}

func TestTimeout(t *testing.T) {
	loader := NewLoader(WithMaxSteps(1<<40), WithTimeout(50*time.Millisecond))
	fn, err := loader.Load("def spin(x):\n    for i in range(100000000):\n        x += 1\n    return x\n")
	require.NoError(t, err)
	_, err = fn.Invoke(map[string]any{"x": 0}, InvokeOptions{})
	assert.ErrorIs(t, err, ErrCodeExecution)
}

func TestListAndDictResults(t *testing.T) {
	fn, err := NewLoader().Load("def expand(x):\n    return [x, x + 1, x + 2]\n")
	require.NoError(t, err)
	out, err := fn.Invoke(map[string]any{"x": 1}, InvokeOptions{})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, out)

	fn, err = NewLoader().Load("def name(x):\n    return {\"value\": x}\n")
	require.NoError(t, err)
	out, err = fn.Invoke(map[string]any{"x": "a"}, InvokeOptions{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"value": "a"}, out)
}

func TestTupleResultIsMultiOutput(t *testing.T) {
	fn, err := NewLoader().Load("def split(x):\n    return x, x * 2\n")
	require.NoError(t, err)
	out, err := fn.Invoke(map[string]any{"x": 3}, InvokeOptions{})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(3), int64(6)}, out)
}

func TestStatisticsParameter(t *testing.T) {
	src := "def scale(amount, statistics):\n    return (amount - statistics.amount.mean) / statistics.amount.stddev\n"
	fn, err := NewLoader().Load(src)
	require.NoError(t, err)
	assert.Equal(t, []string{"amount"}, fn.DataParameters())

	out, err := fn.Invoke(map[string]any{"amount": 12.0}, InvokeOptions{
		Statistics: TransformationStatistics{
			"amount": {Mean: 10, Stddev: 2, Count: 100},
		},
	})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, out.(float64), 1e-9)
}

func TestContextParameter(t *testing.T) {
	src := "def tag(x, context):\n    return str(x) + \"-\" + context[\"env\"]\n"
	fn, err := NewLoader().Load(src)
	require.NoError(t, err)

	out, err := fn.Invoke(map[string]any{"x": 7}, InvokeOptions{
		Context: map[string]any{"env": "prod"},
	})
	require.NoError(t, err)
	assert.Equal(t, "7-prod", out)
}

func TestImportsRejected(t *testing.T) {
	_, err := NewLoader().Load("import os\n\ndef f(x):\n    return x\n")
	assert.ErrorIs(t, err, ErrCodeExecution)
}
