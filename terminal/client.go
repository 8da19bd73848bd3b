package terminal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jaortiz16/terminal-pos/gateway/models"
)

// DefaultGatewayURL points at the local simulated gateway.
const DefaultGatewayURL = "http://localhost:8080"

// maxResponseBody caps how much of a gateway response is read.
const maxResponseBody = 1 << 20

// ErrKind classifies a failed authorization call so the store can map it to
// a user-facing message without inspecting strings.
type ErrKind int

const (
	ErrKindUnknown ErrKind = iota
	// ErrKindConnectivity means no response was received at all.
	ErrKindConnectivity
	// ErrKindInvalidData is an HTTP 400.
	ErrKindInvalidData
	// ErrKindNotFound is an HTTP 404.
	ErrKindNotFound
	// ErrKindGateway is an HTTP 500.
	ErrKindGateway
)

// GatewayError surfaces a failed authorization call. Message carries the
// textual message from the response body when the gateway provided one.
type GatewayError struct {
	Kind       ErrKind
	StatusCode int
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("gateway request failed: %v", e.Err)
	}
	return fmt.Sprintf("gateway returned status %d", e.StatusCode)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Client is the HTTP client for the authorization gateway.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, hc *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultGatewayURL
	}
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// Authorize posts the request to the gateway. Exactly one HTTP call is made;
// there is no retry. Every failure is reported as a *GatewayError so callers
// can switch on its Kind.
func (c *Client) Authorize(ctx context.Context, req models.AuthorizationRequest) (*models.AuthorizationResponse, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal authorization request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/transacciones", bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &GatewayError{Kind: ErrKindConnectivity, Err: err}
	}
	defer resp.Body.Close()

	// a response arrived, so a truncated body is not a connectivity failure
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, &GatewayError{Kind: ErrKindUnknown, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode/100 != 2 {
		gerr := &GatewayError{Kind: kindForStatus(resp.StatusCode), StatusCode: resp.StatusCode}
		var e models.ErrorResponse
		if json.Unmarshal(body, &e) == nil && e.Message != "" {
			gerr.Message = e.Message
		}
		return nil, gerr
	}

	var out models.AuthorizationResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode authorization response: %w", err)
	}

	return &out, nil
}

func kindForStatus(status int) ErrKind {
	switch status {
	case http.StatusBadRequest:
		return ErrKindInvalidData
	case http.StatusNotFound:
		return ErrKindNotFound
	case http.StatusInternalServerError:
		return ErrKindGateway
	}
	return ErrKindUnknown
}
