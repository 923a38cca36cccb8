// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T, buf *bytes.Buffer) *Logger {
	t.Helper()
	l, err := NewLogger(Config{Enabled: true, BufferSize: 5}, nil)
	require.NoError(t, err)
	l.writer = buf
	return l
}

func TestLogAssignsIDAndTimestamp(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(t, &buf)

	l.LogCall(CategoryRead, "list_feature_groups", "sales", "fs", 10*time.Millisecond, nil)

	var e Event
	require.NoError(t, json.Unmarshal(buf.Bytes(), &e))
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Timestamp.IsZero())
	assert.Equal(t, "list_feature_groups", e.Tool)
	assert.True(t, e.Success)
	assert.Equal(t, LevelInfo, e.Level)
}

func TestLogCallError(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(t, &buf)

	l.LogCall(CategoryWrite, "delete_feature_group", "sales", "transactions_1", 0, errors.New("not found"))

	var e Event
	require.NoError(t, json.Unmarshal(buf.Bytes(), &e))
	assert.Equal(t, LevelError, e.Level)
	assert.False(t, e.Success)
	assert.Equal(t, "not found", e.Error)
}

func TestAdvisoryEvent(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(t, &buf)

	l.LogAdvisory("delete_job", "sales", "nightly_etl")

	assert.True(t, strings.Contains(buf.String(), "destructive operation requested"))
}

func TestBufferIsBounded(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(t, &buf)

	for i := 0; i < 10; i++ {
		l.LogCall(CategoryRead, "get_feature_group", "p", "r", 0, nil)
	}
	assert.Len(t, l.RecentEvents(100), 5)
	assert.Len(t, l.RecentEvents(2), 2)
}

func TestDisabledLoggerWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewLogger(Config{Enabled: false}, nil)
	require.NoError(t, err)
	l.writer = &buf

	l.LogCall(CategoryRead, "get_feature_group", "p", "r", 0, nil)
	assert.Zero(t, buf.Len())
}

func TestRateLimiterBurstAndRefill(t *testing.T) {
	r := NewRateLimiter(RateLimitConfig{Enabled: true, RequestsPerSec: 1000, BurstSize: 3})

	assert.True(t, r.Allow())
	assert.True(t, r.Allow())
	assert.True(t, r.Allow())
	assert.False(t, r.Allow())

	time.Sleep(5 * time.Millisecond)
	assert.True(t, r.Allow())
}

func TestRateLimiterDisabled(t *testing.T) {
	r := NewRateLimiter(RateLimitConfig{Enabled: false, RequestsPerSec: 1, BurstSize: 1})
	for i := 0; i < 10; i++ {
		assert.True(t, r.Allow())
	}
}
