package sucursales

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alquiler-vehiculos/sucursales/internal/shared"
)

// CreatePath is the backend collection endpoint for sucursales.
const CreatePath = "/api/v1/viewset/sucursales/"

// APIError is a rejection from the backend. Body holds the JSON error
// document exactly as received.
type APIError struct {
	StatusCode int
	Body       json.RawMessage
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sucursales: backend rejected record with status %d", e.StatusCode)
}

// Client wraps interactions with the sucursales backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a new client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Create posts form as JSON. csrfToken is sent in the X-CSRFToken header
// (empty when the caller has none) and, when present, as the csrftoken cookie
// the backend pairs it with. The success body is returned undecoded.
func (c *Client) Create(ctx context.Context, form Form, csrfToken string) (json.RawMessage, error) {
	payload, err := json.Marshal(form)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+CreatePath, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(shared.BackendCSRFHeader, csrfToken)
	if csrfToken != "" {
		req.AddCookie(&http.Cookie{Name: shared.BackendCSRFCookie, Value: csrfToken})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sucursales: post: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("sucursales: read response: %w", err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("sucursales: status %d with non-JSON body", resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: json.RawMessage(body)}
	}
	return json.RawMessage(body), nil
}
