package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/joescharf/crev/internal/models"
)

// ErrRequestFailed marks every failure where the review request did not
// complete with a decodable payload: transport errors, non-2xx statuses and
// unparseable bodies.
var ErrRequestFailed = errors.New("review request failed")

// StatusError is returned when the endpoint answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e == nil {
		return ""
	}
	if e.Body != "" {
		return fmt.Sprintf("http %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("http %d", e.StatusCode)
}

// Unwrap lets errors.Is match ErrRequestFailed.
func (e *StatusError) Unwrap() error { return ErrRequestFailed }

// Client posts code to a review endpoint.
type Client struct {
	endpoint string
	http     *http.Client
}

// New creates a client for the given endpoint URL. A nil httpClient gets a
// client without a timeout; requests wait until the endpoint answers or the
// context is done.
func New(endpoint string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("endpoint must be an http(s) URL: %q", endpoint)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("endpoint has no host: %q", endpoint)
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{endpoint: u.String(), http: httpClient}, nil
}

// Endpoint returns the URL requests are posted to.
func (c *Client) Endpoint() string { return c.endpoint }

// Review posts {"code": code} and decodes the response payload. The payload
// shape is not validated; missing fields decode as absent.
func (c *Client) Review(ctx context.Context, code string) (*models.ReviewResponse, error) {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(models.ReviewRequest{Code: code}); err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, buf)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrRequestFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(payload)),
		}
	}

	var out models.ReviewResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrRequestFailed, err)
	}
	return &out, nil
}
