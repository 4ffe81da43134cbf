package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	pathLogin         = "/auth/login"
	pathMe            = "/me"
	pathPaymentMethod = "/me/payment-method"
	pathRestaurants   = "/restaurants"
	pathOrders        = "/orders"
	pathMyOrders      = "/orders/my"

	maxPayloadBytes = 1 << 20
)

// CallRecorder observes outbound API calls. Endpoint is the path template,
// status is zero when the request never produced a response.
type CallRecorder interface {
	ObserveAPICall(endpoint string, status int, elapsed time.Duration)
}

// Client talks to the Slooze REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	validate   *validator.Validate
	recorder   CallRecorder
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r CallRecorder) Option {
	return func(c *Client) {
		c.recorder = r
	}
}

// NewClient constructs a client for baseURL. A non-positive timeout falls back to 10s.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
		validate:   validator.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	status, payload, err := c.do(ctx, http.MethodPost, pathLogin, pathLogin, "", loginRequest{Email: email, Password: password})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}
	var res loginResponse
	if err := json.Unmarshal(payload, &res); err != nil || strings.TrimSpace(res.Token) == "" {
		return "", fmt.Errorf("%w: %w", ErrLoginFailed, shapeError(status, payload))
	}
	return res.Token, nil
}

// Me fetches the current user profile.
func (c *Client) Me(ctx context.Context, token string) (*User, error) {
	status, payload, err := c.do(ctx, http.MethodGet, pathMe, pathMe, token, nil)
	if err != nil {
		return nil, err
	}
	var user User
	if err := json.Unmarshal(payload, &user); err != nil {
		return nil, shapeError(status, payload)
	}
	if err := c.validate.Struct(&user); err != nil {
		return nil, shapeError(status, payload)
	}
	return &user, nil
}

// Restaurants fetches the restaurant catalog scoped to the current user.
func (c *Client) Restaurants(ctx context.Context, token string) ([]Restaurant, error) {
	status, payload, err := c.do(ctx, http.MethodGet, pathRestaurants, pathRestaurants, token, nil)
	if err != nil {
		return nil, err
	}
	var restaurants []Restaurant
	if err := json.Unmarshal(payload, &restaurants); err != nil || restaurants == nil {
		return nil, shapeError(status, payload)
	}
	for i := range restaurants {
		if err := c.validate.Struct(&restaurants[i]); err != nil {
			return nil, shapeError(status, payload)
		}
	}
	return restaurants, nil
}

// MyOrders fetches the orders of the current user.
func (c *Client) MyOrders(ctx context.Context, token string) ([]Order, error) {
	status, payload, err := c.do(ctx, http.MethodGet, pathMyOrders, pathMyOrders, token, nil)
	if err != nil {
		return nil, err
	}
	var orders []Order
	if err := json.Unmarshal(payload, &orders); err != nil || orders == nil {
		return nil, shapeError(status, payload)
	}
	for i := range orders {
		if err := c.validate.Struct(&orders[i]); err != nil {
			return nil, shapeError(status, payload)
		}
	}
	return orders, nil
}

// CreateOrder posts the cart lines. The response must carry an id.
func (c *Client) CreateOrder(ctx context.Context, token string, lines []CartLine) (*Order, error) {
	status, payload, err := c.do(ctx, http.MethodPost, pathOrders, pathOrders, token, createOrderRequest{Items: lines})
	if err != nil {
		return nil, err
	}
	var order Order
	if err := json.Unmarshal(payload, &order); err != nil || order.ID == 0 {
		return nil, shapeError(status, payload)
	}
	return &order, nil
}

// Checkout marks an order as paid. The response must carry a status.
func (c *Client) Checkout(ctx context.Context, token string, orderID int64) (*Order, error) {
	return c.transition(ctx, token, orderID, "checkout")
}

// CancelOrder cancels an order. The response must carry a status.
func (c *Client) CancelOrder(ctx context.Context, token string, orderID int64) (*Order, error) {
	return c.transition(ctx, token, orderID, "cancel")
}

// DeleteOrder removes an order. Any success status is accepted.
func (c *Client) DeleteOrder(ctx context.Context, token string, orderID int64) error {
	_, _, err := c.do(ctx, http.MethodDelete, orderPath(orderID), pathOrders+"/{id}", token, nil)
	return err
}

// UpdatePaymentMethod patches the payment method of the current user.
func (c *Client) UpdatePaymentMethod(ctx context.Context, token, method string) (string, error) {
	status, payload, err := c.do(ctx, http.MethodPatch, pathPaymentMethod, pathPaymentMethod, token, paymentMethodRequest{PaymentMethod: method})
	if err != nil {
		return "", err
	}
	var res paymentMethodResponse
	if err := json.Unmarshal(payload, &res); err != nil || res.PaymentMethod == "" {
		return "", shapeError(status, payload)
	}
	return res.PaymentMethod, nil
}

func (c *Client) transition(ctx context.Context, token string, orderID int64, action string) (*Order, error) {
	path := orderPath(orderID) + "/" + action
	status, payload, err := c.do(ctx, http.MethodPost, path, pathOrders+"/{id}/"+action, token, nil)
	if err != nil {
		return nil, err
	}
	var order Order
	if err := json.Unmarshal(payload, &order); err != nil || order.Status == "" {
		return nil, shapeError(status, payload)
	}
	return &order, nil
}

func (c *Client) do(ctx context.Context, method, path, endpoint, token string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("api: encode %s body: %w", endpoint, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+strings.TrimLeft(path, "/"), reader)
	if err != nil {
		return 0, nil, fmt.Errorf("api: build %s %s: %w", method, endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if trimmed := strings.TrimSpace(token); trimmed != "" {
		req.Header.Set("Authorization", "Bearer "+trimmed)
	}

	start := time.Now()
	res, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(endpoint, 0, start)
		return 0, nil, fmt.Errorf("api: %s %s: %w", method, endpoint, err)
	}
	defer func() {
		_ = res.Body.Close()
	}()
	c.observe(endpoint, res.StatusCode, start)

	payload, err := io.ReadAll(io.LimitReader(res.Body, maxPayloadBytes))
	if err != nil {
		return res.StatusCode, nil, fmt.Errorf("api: read %s response: %w", endpoint, err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return res.StatusCode, payload, &Error{Status: res.StatusCode, Payload: strings.TrimSpace(string(payload)), Err: ErrStatus}
	}
	return res.StatusCode, payload, nil
}

func (c *Client) observe(endpoint string, status int, start time.Time) {
	if c.recorder == nil {
		return
	}
	c.recorder.ObserveAPICall(endpoint, status, time.Since(start))
}

func shapeError(status int, payload []byte) error {
	return &Error{Status: status, Payload: strings.TrimSpace(string(payload)), Err: ErrUnexpectedShape}
}

func orderPath(orderID int64) string {
	return pathOrders + "/" + strconv.FormatInt(orderID, 10)
}
