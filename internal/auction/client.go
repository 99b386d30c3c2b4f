// Package auction is the typed HTTP client for the auction service.
// The harness only ever talks to the service through this surface.
package auction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"bidstorm/internal/stats"
)

// Observer is notified synchronously with the outcome of every request
// the client makes. The stats collector implements it.
type Observer interface {
	Record(op string, latency time.Duration, outcome stats.Outcome)
}

// StatusError is a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Code, e.Body)
}

// IsValidation reports whether err is a 400 rejection, e.g. a bid not
// above the current highest price.
func IsValidation(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusBadRequest
}

type Client struct {
	base string
	http *http.Client
	obs  Observer
}

// NewClient builds a client for the given base URL. The transport is
// sized for thousands of concurrent virtual users sharing it.
func NewClient(base string, timeout time.Duration, obs Observer) *Client {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 2000
	t.MaxConnsPerHost = 2000
	t.MaxIdleConnsPerHost = 2000

	return &Client{
		base: base,
		http: &http.Client{Timeout: timeout, Transport: t},
		obs:  obs,
	}
}

func (c *Client) Register(ctx context.Context, creds Credentials) (AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, OpRegister, http.MethodPost, "/api/auth/register", "", creds, &out)
	return out, err
}

func (c *Client) Login(ctx context.Context, username, password string) (AuthResponse, error) {
	var out AuthResponse
	body := map[string]string{"username": username, "password": password}
	err := c.do(ctx, OpLogin, http.MethodPost, "/api/auth/login", "", body, &out)
	return out, err
}

func (c *Client) ListProducts(ctx context.Context, token string) ([]Product, error) {
	var out productList
	err := c.do(ctx, OpListProducts, http.MethodGet, "/api/products", token, nil, &out)
	return out.Products, err
}

func (c *Client) ProductDetail(ctx context.Context, token, productID string) (Product, error) {
	var out Product
	err := c.do(ctx, OpProductDetail, http.MethodGet, "/api/products/"+productID, token, nil, &out)
	return out, err
}

func (c *Client) Rankings(ctx context.Context, token, productID string) (Rankings, error) {
	var out Rankings
	err := c.do(ctx, OpRankings, http.MethodGet, "/api/products/"+productID+"/rankings", token, nil, &out)
	return out, err
}

// Results reads the post-close result page. The body is not used by
// the harness; the call only exists to exercise the endpoint.
func (c *Client) Results(ctx context.Context, token, productID string) error {
	var out json.RawMessage
	return c.do(ctx, OpResults, http.MethodGet, "/api/products/"+productID+"/results", token, nil, &out)
}

// PlaceBid submits a bid. op distinguishes first attempts, retries and
// the ramp-up variant in telemetry.
func (c *Client) PlaceBid(ctx context.Context, op, token, productID string, price float64) (BidResult, error) {
	var out BidResult
	err := c.do(ctx, op, http.MethodPost, "/api/products/"+productID+"/bids", token, bidRequest{Price: price}, &out)
	return out, err
}

func (c *Client) CreateProduct(ctx context.Context, adminToken string, p NewProduct) (string, error) {
	var out createdProduct
	err := c.do(ctx, OpCreateProduct, http.MethodPost, "/api/admin/products", adminToken, p, &out)
	return out.ID, err
}

// do runs one request, classifies the outcome and reports it to the
// observer before returning.
func (c *Client) do(ctx context.Context, op, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshal body: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	latency := time.Since(start)

	if err != nil {
		c.obs.Record(op, latency, classifyTransport(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.obs.Record(op, latency, stats.Exception)
		return fmt.Errorf("%s: read body: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		outcome := stats.HTTPError
		if resp.StatusCode == http.StatusBadRequest {
			outcome = stats.ValidationRejected
		}
		c.obs.Record(op, latency, outcome)
		return fmt.Errorf("%s: %w", op, &StatusError{Code: resp.StatusCode, Body: string(raw)})
	}

	if len(raw) == 0 {
		c.obs.Record(op, latency, stats.EmptyResponse)
		return fmt.Errorf("%s: empty response", op)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			c.obs.Record(op, latency, stats.Exception)
			return fmt.Errorf("%s: decode response: %w", op, err)
		}
	}

	c.obs.Record(op, latency, stats.Success)
	return nil
}

func classifyTransport(err error) stats.Outcome {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return stats.NetworkTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return stats.NetworkTimeout
	}
	return stats.Exception
}
