// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package hopsworks

import (
	"errors"
	"fmt"
)

// Kind classifies an API error so callers can branch on failure class
// instead of matching message text.
type Kind string

const (
	KindInvalidArgument  Kind = "invalid_argument"
	KindUnauthenticated  Kind = "unauthenticated"
	KindPermissionDenied Kind = "permission_denied"
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict"
	KindUnavailable      Kind = "unavailable"
	KindBackend          Kind = "backend"
)

// Error is the error type returned by the Hopsworks client.
type Error struct {
	Kind    Kind
	Op      string // operation, e.g. "get feature group"
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op
	}
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a client error with an explicit kind.
func NewError(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the error kind, defaulting to KindBackend for
// errors that did not originate in this package.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindBackend
}

// IsNotFound reports whether err represents a missing entity.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// kindFromStatus maps an HTTP status code to an error kind.
func kindFromStatus(status int) Kind {
	switch {
	case status == 400:
		return KindInvalidArgument
	case status == 401:
		return KindUnauthenticated
	case status == 403:
		return KindPermissionDenied
	case status == 404:
		return KindNotFound
	case status == 409:
		return KindConflict
	case status == 429 || status == 502 || status == 503 || status == 504:
		return KindUnavailable
	default:
		return KindBackend
	}
}
