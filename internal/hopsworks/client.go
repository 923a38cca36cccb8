// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

// Package hopsworks provides a typed REST client for the Hopsworks platform
// API together with the session state shared by all MCP tools.
package hopsworks

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// Client is a thin typed client for the Hopsworks REST API. All entity
// mapping happens here once, so tool modules work with plain structs.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries int
	log        *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithMaxRetries sets the retry budget for idempotent requests.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) { c.maxRetries = n }
}

// WithLogger sets the client logger.
func WithLogger(log *zap.Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

// WithInsecureSkipVerify disables TLS hostname verification. Mirrors the
// hostname_verification=false connection option of the platform SDK.
func WithInsecureSkipVerify() ClientOption {
	return func(c *Client) {
		c.httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, // #nosec G402 -- opt-in, mirrors SDK behavior
		}
	}
}

// NewClient creates a Hopsworks API client. baseURL is the REST root,
// e.g. "https://demo.hops.works:443/hopsworks-api/api".
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: 2,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiErrorBody is the error envelope returned by the platform.
type apiErrorBody struct {
	ErrorCode int    `json:"errorCode"`
	ErrorMsg  string `json:"errorMsg"`
	UsrMsg    string `json:"usrMsg"`
	DevMsg    string `json:"devMsg"`
}

func (b apiErrorBody) message() string {
	switch {
	case b.UsrMsg != "":
		return b.UsrMsg
	case b.ErrorMsg != "":
		return b.ErrorMsg
	case b.DevMsg != "":
		return b.DevMsg
	default:
		return ""
	}
}

// get performs a GET with retry on transient failures.
func (c *Client) get(ctx context.Context, op, path string, query url.Values, out any) error {
	do := func() (struct{}, error) {
		err := c.do(ctx, op, http.MethodGet, path, query, nil, out)
		if err != nil && !retryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	_, err := backoff.Retry(ctx, do,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(c.maxRetries+1)),
	)
	return err
}

func (c *Client) post(ctx context.Context, op, path string, query url.Values, body, out any) error {
	return c.do(ctx, op, http.MethodPost, path, query, body, out)
}

func (c *Client) put(ctx context.Context, op, path string, query url.Values, body, out any) error {
	return c.do(ctx, op, http.MethodPut, path, query, body, out)
}

func (c *Client) delete(ctx context.Context, op, path string, query url.Values) error {
	return c.do(ctx, op, http.MethodDelete, path, query, nil, nil)
}

// retryable reports whether an error is worth retrying. Only transient
// transport and availability failures qualify.
func retryable(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind == KindUnavailable
	}
	// Transport-level failure without a response.
	return true
}

// do performs a single HTTP exchange against the platform API and
// decodes the response into out.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return c.exchange(ctx, op, method, u, "ApiKey "+c.apiKey, body, out)
}

// doRaw performs an exchange against an absolute URL with a caller-supplied
// Authorization header. Used for cluster side services such as OpenSearch
// that authenticate with their own tokens.
func (c *Client) doRaw(ctx context.Context, op, method, absoluteURL, authHeader string, body, out any) error {
	return c.exchange(ctx, op, method, absoluteURL, authHeader, body, out)
}

func (c *Client) exchange(ctx context.Context, op, method, u, authHeader string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindInvalidArgument, Op: op, Message: "encoding request body", Err: err}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return &Error{Kind: KindInvalidArgument, Op: op, Message: "building request", Err: err}
	}
	req.Header.Set("Authorization", authHeader)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Kind: KindUnavailable, Op: op, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	c.log.Debug("hopsworks api call",
		zap.String("method", method),
		zap.String("url", u),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return &Error{Kind: KindUnavailable, Op: op, Message: "reading response", Err: err}
	}

	if resp.StatusCode >= 400 {
		var eb apiErrorBody
		_ = json.Unmarshal(data, &eb)
		msg := eb.message()
		if msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		if msg == "" {
			msg = resp.Status
		}
		return &Error{
			Kind:    kindFromStatus(resp.StatusCode),
			Op:      op,
			Message: fmt.Sprintf("%s (HTTP %d)", msg, resp.StatusCode),
		}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Kind: KindBackend, Op: op, Message: "decoding response", Err: err}
	}
	return nil
}

// getBytes performs a GET and returns the raw response body. Used for
// file content endpoints that do not speak JSON.
func (c *Client) getBytes(ctx context.Context, op, path string, query url.Values) ([]byte, error) {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &Error{Kind: KindInvalidArgument, Op: op, Message: "building request", Err: err}
	}
	req.Header.Set("Authorization", "ApiKey "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindUnavailable, Op: op, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 256<<20))
	if err != nil {
		return nil, &Error{Kind: KindUnavailable, Op: op, Message: "reading response", Err: err}
	}
	if resp.StatusCode >= 400 {
		var eb apiErrorBody
		_ = json.Unmarshal(data, &eb)
		msg := eb.message()
		if msg == "" {
			msg = resp.Status
		}
		return nil, &Error{
			Kind:    kindFromStatus(resp.StatusCode),
			Op:      op,
			Message: fmt.Sprintf("%s (HTTP %d)", msg, resp.StatusCode),
		}
	}
	return data, nil
}

// postMultipart uploads one file as a multipart form with the extra
// fields the upload endpoint expects.
func (c *Client) postMultipart(ctx context.Context, op, path string, fields map[string]string, fileName string, content []byte) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return &Error{Kind: KindInvalidArgument, Op: op, Message: "encoding form field", Err: err}
		}
	}
	part, err := w.CreateFormFile("file", fileName)
	if err != nil {
		return &Error{Kind: KindInvalidArgument, Op: op, Message: "encoding form file", Err: err}
	}
	if _, err := part.Write(content); err != nil {
		return &Error{Kind: KindInvalidArgument, Op: op, Message: "encoding form file", Err: err}
	}
	if err := w.Close(); err != nil {
		return &Error{Kind: KindInvalidArgument, Op: op, Message: "encoding form", Err: err}
	}

	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &buf)
	if err != nil {
		return &Error{Kind: KindInvalidArgument, Op: op, Message: "building request", Err: err}
	}
	req.Header.Set("Authorization", "ApiKey "+c.apiKey)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Kind: KindUnavailable, Op: op, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		var eb apiErrorBody
		_ = json.Unmarshal(data, &eb)
		msg := eb.message()
		if msg == "" {
			msg = resp.Status
		}
		return &Error{
			Kind:    kindFromStatus(resp.StatusCode),
			Op:      op,
			Message: fmt.Sprintf("%s (HTTP %d)", msg, resp.StatusCode),
		}
	}
	return nil
}

// itemsEnvelope is the list envelope used by most collection endpoints.
type itemsEnvelope[T any] struct {
	Count int `json:"count"`
	Items []T `json:"items"`
}
