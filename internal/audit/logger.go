// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

// Package audit provides structured audit logging for platform
// operations, with advisory events before destructive calls.
package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Level represents the severity level of an audit event.
type Level string

const (
	LevelInfo    Level = "INFO"
	LevelWarning Level = "WARNING"
	LevelError   Level = "ERROR"
	LevelAudit   Level = "AUDIT"
)

// Category represents the category of an audit event.
type Category string

const (
	CategoryRead   Category = "READ"
	CategoryWrite  Category = "WRITE"
	CategoryAdmin  Category = "ADMIN"
	CategoryAuth   Category = "AUTH"
	CategorySystem Category = "SYSTEM"
)

// Event is one audit log record.
type Event struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Level     Level          `json:"level"`
	Category  Category       `json:"category"`
	Tool      string         `json:"tool"`
	Project   string         `json:"project,omitempty"`
	Resource  string         `json:"resource,omitempty"`
	Duration  time.Duration  `json:"duration_ns,omitempty"`
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// Logger writes audit events as JSON lines and keeps a bounded ring of
// recent events for inspection.
type Logger struct {
	mu      sync.Mutex
	writer  io.Writer
	enabled bool
	buffer  []Event
	bufSize int
	log     *zap.Logger
}

// Config holds audit logger configuration.
type Config struct {
	Enabled    bool
	FilePath   string
	BufferSize int
}

// NewLogger creates an audit logger. With no file path events go to
// stderr, keeping stdout clean for the stdio transport.
func NewLogger(cfg Config, log *zap.Logger) (*Logger, error) {
	var writer io.Writer = os.Stderr
	if cfg.FilePath != "" {
		file, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening audit log file: %w", err)
		}
		writer = file
	}

	bufSize := cfg.BufferSize
	if bufSize <= 0 {
		bufSize = 100
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Logger{
		writer:  writer,
		enabled: cfg.Enabled,
		buffer:  make([]Event, 0, bufSize),
		bufSize: bufSize,
		log:     log,
	}, nil
}

// Log records an audit event, assigning an id and timestamp when
// absent.
func (l *Logger) Log(event Event) {
	if l == nil || !l.enabled {
		return
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		l.log.Warn("audit event marshal failed", zap.Error(err))
		return
	}
	if _, err := l.writer.Write(append(data, '\n')); err != nil {
		l.log.Warn("audit event write failed", zap.Error(err))
	}

	l.buffer = append(l.buffer, event)
	if len(l.buffer) > l.bufSize {
		l.buffer = l.buffer[1:]
	}
}

// LogCall records the outcome of one tool invocation.
func (l *Logger) LogCall(category Category, tool, project, resource string, duration time.Duration, err error) {
	event := Event{
		Level:    LevelInfo,
		Category: category,
		Tool:     tool,
		Project:  project,
		Resource: resource,
		Duration: duration,
		Success:  err == nil,
	}
	if category != CategoryRead {
		event.Level = LevelAudit
	}
	if err != nil {
		event.Error = err.Error()
		event.Level = LevelError
	}
	l.Log(event)
}

// LogAdvisory records the intent to run a destructive operation before
// it executes. It never blocks the operation.
func (l *Logger) LogAdvisory(tool, project, resource string) {
	l.Log(Event{
		Level:    LevelWarning,
		Category: CategoryAdmin,
		Tool:     tool,
		Project:  project,
		Resource: resource,
		Success:  true,
		Details:  map[string]any{"advisory": "destructive operation requested"},
	})
}

// LogAuth records a login attempt.
func (l *Logger) LogAuth(tool string, success bool, details map[string]any) {
	level := LevelAudit
	if !success {
		level = LevelWarning
	}
	l.Log(Event{
		Level:    level,
		Category: CategoryAuth,
		Tool:     tool,
		Success:  success,
		Details:  details,
	})
}

// RecentEvents returns up to count of the most recent buffered events.
func (l *Logger) RecentEvents(count int) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	if count > len(l.buffer) {
		count = len(l.buffer)
	}
	start := len(l.buffer) - count
	events := make([]Event, count)
	copy(events, l.buffer[start:])
	return events
}

// Close releases the underlying writer when it is a file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if closer, ok := l.writer.(io.Closer); ok && l.writer != os.Stderr && l.writer != os.Stdout {
		return closer.Close()
	}
	return nil
}
