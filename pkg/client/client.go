package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Record mirrors a committed ledger record as returned by the registry API.
type Record struct {
	Hash      string `json:"hash"`
	Height    int    `json:"height"`
	Body      string `json:"body"`
	Timestamp int64  `json:"timestamp"`
	PrevHash  string `json:"previousHash,omitempty"`
	Owner     string `json:"owner,omitempty"`
}

// ChallengeResult holds the challenge message issued for an address.
type ChallengeResult struct {
	Address string `json:"address"`
	Message string `json:"message"`
}

// ValidationReport is the outcome of a full-chain validation pass.
type ValidationReport struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Overview holds the chain height and tip hash.
type Overview struct {
	Height int    `json:"height"`
	Tip    string `json:"tip"`
}

// APIError is a non-2xx response from the registry, preserving the status
// code so callers can distinguish not-found from rejection kinds.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("registry error %d: %s", e.StatusCode, e.Message)
}

// Client is the star registry SDK entry point.
type Client struct {
	base       string
	httpClient *http.Client
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the request timeout on the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// New creates a Client connected to the registry at base,
// e.g. "http://localhost:8080".
func New(base string, opts ...Option) *Client {
	c := &Client{
		base:       base,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// RecordByHeight fetches the record at the given chain height.
func (c *Client) RecordByHeight(ctx context.Context, height int) (*Record, error) {
	var rec Record
	if err := c.getJSON(ctx, fmt.Sprintf("/api/v1/records/height/%d", height), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// RecordByHash fetches the record sealed with the given hash.
func (c *Client) RecordByHash(ctx context.Context, hash string) (*Record, error) {
	var rec Record
	if err := c.getJSON(ctx, "/api/v1/records/hash/"+hash, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// RequestChallenge asks the registry for an ownership challenge message the
// wallet holder must sign before submitting a star.
func (c *Client) RequestChallenge(ctx context.Context, address string) (*ChallengeResult, error) {
	var result ChallengeResult
	err := c.postJSON(ctx, "/api/v1/challenges", map[string]string{"address": address}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// SubmitStar submits a signed star for the given address. message must be an
// unexpired challenge from RequestChallenge and signature the wallet's
// signature over it.
func (c *Client) SubmitStar(ctx context.Context, address, message, signature string, star any) (*Record, error) {
	payload := map[string]any{
		"address":   address,
		"message":   message,
		"signature": signature,
		"star":      star,
	}
	var rec Record
	if err := c.postJSON(ctx, "/api/v1/stars", payload, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// StarsByOwner fetches the decoded star payloads credited to address.
func (c *Client) StarsByOwner(ctx context.Context, address string) ([]json.RawMessage, error) {
	var result struct {
		Address string            `json:"address"`
		Stars   []json.RawMessage `json:"stars"`
	}
	if err := c.getJSON(ctx, "/api/v1/stars/"+address, &result); err != nil {
		return nil, err
	}
	return result.Stars, nil
}

// ValidateChain asks the registry for a full-chain integrity report.
func (c *Client) ValidateChain(ctx context.Context) (*ValidationReport, error) {
	var report ValidationReport
	if err := c.getJSON(ctx, "/api/v1/ledger/validate", &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// ChainOverview fetches the current chain height and tip hash.
func (c *Client) ChainOverview(ctx context.Context) (*Overview, error) {
	var ov Overview
	if err := c.getJSON(ctx, "/api/v1/ledger", &ov); err != nil {
		return nil, err
	}
	return &ov, nil
}

// getJSON performs a GET and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// postJSON performs a POST with a JSON body and decodes the response into out.
func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// do executes an HTTP request and maps non-2xx responses to *APIError,
// extracting the registry's {"error": "..."} message when present.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var payload struct {
			Error string `json:"error"`
		}
		message := string(body)
		if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
			message = payload.Error
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: message}
	}
	return body, nil
}
