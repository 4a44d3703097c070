package georef

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the public georef API root.
	DefaultBaseURL = "https://apis.datos.gob.ar/georef/api"
	// MaxProvinces caps the provinces listing; Argentina has 24.
	MaxProvinces = 100
	// MaxDepartments caps department listings.
	MaxDepartments = 1000
	// MaxLocalities caps locality listings.
	MaxLocalities = 1000
)

// StatusError reports a non-2xx answer from the georef API.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("georef: %s returned status %d", e.Endpoint, e.StatusCode)
}

// Client wraps interactions with the georef API.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	maxDepartments int
	observe        Observer
}

// Observer is told the outcome and latency of every upstream request.
type Observer func(endpoint string, err error, elapsed time.Duration)

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithMaxDepartments overrides the department page size.
func WithMaxDepartments(max int) Option {
	return func(c *Client) {
		if max > 0 {
			c.maxDepartments = max
		}
	}
}

// WithObserver registers an Observer.
func WithObserver(fn Observer) Option {
	return func(c *Client) {
		c.observe = fn
	}
}

// NewClient constructs a new client.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		httpClient:     &http.Client{Timeout: timeout},
		maxDepartments: MaxDepartments,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Provinces lists every province.
func (c *Client) Provinces(ctx context.Context) ([]Location, error) {
	params := url.Values{}
	params.Set("campos", "nombre")
	params.Set("max", strconv.Itoa(MaxProvinces))
	var out provinciasResponse
	if err := c.get(ctx, "provincias", params, &out); err != nil {
		return nil, err
	}
	return out.Provincias, nil
}

// Departments lists the departments of provincia.
func (c *Client) Departments(ctx context.Context, provincia string) ([]Location, error) {
	params := url.Values{}
	params.Set("provincia", provincia)
	params.Set("campos", "nombre")
	params.Set("max", strconv.Itoa(c.maxDepartments))
	var out departamentosResponse
	if err := c.get(ctx, "departamentos", params, &out); err != nil {
		return nil, err
	}
	return out.Departamentos, nil
}

// Localities lists the localities of departamento within provincia.
func (c *Client) Localities(ctx context.Context, provincia, departamento string) ([]Location, error) {
	params := url.Values{}
	params.Set("provincia", provincia)
	params.Set("departamento", departamento)
	params.Set("campos", "nombre")
	params.Set("max", strconv.Itoa(MaxLocalities))
	var out localidadesResponse
	if err := c.get(ctx, "localidades", params, &out); err != nil {
		return nil, err
	}
	return out.Localidades, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, dest any) (err error) {
	if c.observe != nil {
		start := time.Now()
		defer func() { c.observe(endpoint, err, time.Since(start)) }()
	}
	target := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("georef: %s: %w", endpoint, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: string(body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("georef: decode %s: %w", endpoint, err)
	}
	return nil
}
