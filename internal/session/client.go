package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/slooze/slooze-web/internal/api"
)

var (
	// ErrNoSession is returned by actions that need a token when none is active.
	ErrNoSession = errors.New("session: no active token")
	// ErrCartEmpty is returned by CreateOrder when there is nothing to order.
	ErrCartEmpty = errors.New("session: cart empty")
	// ErrEmptyPaymentMethod is returned by UpdatePayment for a blank value.
	ErrEmptyPaymentMethod = errors.New("session: payment method required")
)

// API is the part of the REST client the session depends on.
type API interface {
	Login(ctx context.Context, email, password string) (string, error)
	Me(ctx context.Context, token string) (*api.User, error)
	Restaurants(ctx context.Context, token string) ([]api.Restaurant, error)
	MyOrders(ctx context.Context, token string) ([]api.Order, error)
	CreateOrder(ctx context.Context, token string, lines []api.CartLine) (*api.Order, error)
	Checkout(ctx context.Context, token string, orderID int64) (*api.Order, error)
	CancelOrder(ctx context.Context, token string, orderID int64) (*api.Order, error)
	DeleteOrder(ctx context.Context, token string, orderID int64) error
	UpdatePaymentMethod(ctx context.Context, token, method string) (string, error)
}

// View is a copy of the presentation state used for rendering.
type View struct {
	LoggedIn    bool             `json:"loggedIn"`
	User        *api.User        `json:"user"`
	Restaurants []api.Restaurant `json:"restaurants"`
	Orders      []api.Order      `json:"orders"`
	Cart        []api.CartLine   `json:"cart"`
}

// Client owns one user's token, the three read views and the cart.
//
// Views are replaced wholesale after every fetch, never merged. Network
// calls run without holding the lock, and a result is only applied while
// the token it was fetched with is still the active one.
type Client struct {
	api    API
	store  TokenStore
	logger *slog.Logger

	mu          sync.Mutex
	token       string
	user        *api.User
	restaurants []api.Restaurant
	orders      []api.Order
	cart        Cart
}

// NewClient builds a logged-out client.
func NewClient(apiClient API, store TokenStore, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if store == nil {
		store = NewMemoryTokenStore("")
	}
	return &Client{api: apiClient, store: store, logger: logger}
}

// RestoreSession activates a persisted token, if any, and loads the views.
// A failed view refresh is logged and leaves the views reset; only storage
// errors are returned.
func (c *Client) RestoreSession(ctx context.Context) error {
	token, err := c.store.Load(ctx)
	if err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	c.activate(token)
	c.logger.Info("session restored", tokenAttrs(token)...)
	_ = c.RefreshAll(ctx, token)
	return nil
}

// Login exchanges credentials for a token, persists and activates it, then
// loads all three views before returning. On failure nothing changes.
func (c *Client) Login(ctx context.Context, email, password string) error {
	token, err := c.api.Login(ctx, email, password)
	if err != nil {
		c.logger.Warn("login failed", slog.String("email", email), slog.Any("error", err))
		return err
	}
	if err := c.store.Save(ctx, token); err != nil {
		c.logger.Warn("persist token", slog.Any("error", err))
	}
	c.activate(token)
	c.logger.Info("login succeeded", append([]any{slog.String("email", email)}, tokenAttrs(token)...)...)
	_ = c.RefreshAll(ctx, token)
	return nil
}

// Logout clears the persisted token and resets every view and the cart.
func (c *Client) Logout(ctx context.Context) error {
	err := c.store.Clear(ctx)

	c.mu.Lock()
	c.token = ""
	c.user = nil
	c.restaurants = nil
	c.orders = nil
	c.cart.Clear()
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("clear persisted token", slog.Any("error", err))
		return err
	}
	c.logger.Info("logged out")
	return nil
}

// RefreshAll fetches the current user, restaurants and orders concurrently.
// If any fetch fails, all three views are reset together.
func (c *Client) RefreshAll(ctx context.Context, token string) error {
	var (
		user        *api.User
		restaurants []api.Restaurant
		orders      []api.Order
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := c.api.Me(gctx, token)
		if err != nil {
			return fmt.Errorf("fetch current user: %w", err)
		}
		user = u
		return nil
	})
	g.Go(func() error {
		list, err := c.api.Restaurants(gctx, token)
		if err != nil {
			return fmt.Errorf("fetch restaurants: %w", err)
		}
		restaurants = list
		return nil
	})
	g.Go(func() error {
		list, err := c.api.MyOrders(gctx, token)
		if err != nil {
			return fmt.Errorf("fetch orders: %w", err)
		}
		orders = list
		return nil
	})
	err := g.Wait()

	c.mu.Lock()
	stale := c.token != token
	if !stale {
		if err != nil {
			c.user, c.restaurants, c.orders = nil, nil, nil
		} else {
			c.user, c.restaurants, c.orders = user, restaurants, orders
		}
	}
	c.mu.Unlock()

	if stale {
		c.logger.Debug("discard refresh for inactive token")
		return nil
	}
	if err != nil {
		c.logger.Warn("bootstrap refresh failed", slog.Any("error", err))
		return err
	}
	c.logger.Debug("bootstrap refresh done", slog.Int("restaurants", len(restaurants)), slog.Int("orders", len(orders)))
	return nil
}

// AddToCart increments the line for menuItemID or appends it with quantity 1.
func (c *Client) AddToCart(menuItemID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cart.Add(menuItemID)
}

// CreateOrder posts the cart. It sends nothing when the cart is empty or no
// token is active. On success the ordered lines leave the cart and orders
// are refetched.
func (c *Client) CreateOrder(ctx context.Context) (*api.Order, error) {
	c.mu.Lock()
	token := c.token
	lines := c.cart.Lines()
	c.mu.Unlock()

	if token == "" {
		return nil, ErrNoSession
	}
	if len(lines) == 0 {
		return nil, ErrCartEmpty
	}

	order, err := c.api.CreateOrder(ctx, token, lines)
	if err != nil {
		c.logger.Warn("create order failed", slog.Int("lines", len(lines)), slog.Any("error", err))
		return nil, err
	}

	c.mu.Lock()
	if c.token == token {
		c.cart.Subtract(lines)
	}
	c.mu.Unlock()

	c.logger.Info("order created", slog.Int64("order_id", order.ID))
	c.refreshOrders(ctx, token)
	return order, nil
}

// Checkout asks the API to mark an order paid. The client does not check
// the order status; the API rejects invalid transitions.
func (c *Client) Checkout(ctx context.Context, orderID int64) (*api.Order, error) {
	return c.transition(ctx, "checkout", orderID, c.api.Checkout)
}

// CancelOrder asks the API to cancel an order.
func (c *Client) CancelOrder(ctx context.Context, orderID int64) (*api.Order, error) {
	return c.transition(ctx, "cancel", orderID, c.api.CancelOrder)
}

// DeleteOrder asks the API to remove an order.
func (c *Client) DeleteOrder(ctx context.Context, orderID int64) error {
	token := c.Token()
	if token == "" {
		return ErrNoSession
	}
	if err := c.api.DeleteOrder(ctx, token, orderID); err != nil {
		c.logger.Warn("delete order failed", slog.Int64("order_id", orderID), slog.Any("error", err))
		return err
	}
	c.refreshOrders(ctx, token)
	return nil
}

// UpdatePayment changes the payment method and refetches the current user.
func (c *Client) UpdatePayment(ctx context.Context, method string) (string, error) {
	method = strings.TrimSpace(method)
	if method == "" {
		return "", ErrEmptyPaymentMethod
	}
	token := c.Token()
	if token == "" {
		return "", ErrNoSession
	}
	updated, err := c.api.UpdatePaymentMethod(ctx, token, method)
	if err != nil {
		c.logger.Warn("update payment method failed", slog.Any("error", err))
		return "", err
	}
	c.refreshUser(ctx, token)
	return updated, nil
}

// Token returns the active token or "".
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Snapshot copies the presentation state.
func (c *Client) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	view := View{
		LoggedIn:    c.token != "",
		Restaurants: make([]api.Restaurant, len(c.restaurants)),
		Orders:      make([]api.Order, len(c.orders)),
		Cart:        c.cart.Lines(),
	}
	copy(view.Restaurants, c.restaurants)
	copy(view.Orders, c.orders)
	if c.user != nil {
		user := *c.user
		view.User = &user
	}
	return view
}

func (c *Client) activate(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

type transitionFunc func(ctx context.Context, token string, orderID int64) (*api.Order, error)

func (c *Client) transition(ctx context.Context, action string, orderID int64, call transitionFunc) (*api.Order, error) {
	token := c.Token()
	if token == "" {
		return nil, ErrNoSession
	}
	order, err := call(ctx, token, orderID)
	if err != nil {
		c.logger.Warn("order "+action+" failed", slog.Int64("order_id", orderID), slog.Any("error", err))
		return nil, err
	}
	c.refreshOrders(ctx, token)
	return order, nil
}

// refreshOrders keeps the previous list when the fetch fails.
func (c *Client) refreshOrders(ctx context.Context, token string) {
	orders, err := c.api.MyOrders(ctx, token)
	if err != nil {
		c.logger.Warn("refresh orders", slog.Any("error", err))
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == token {
		c.orders = orders
	}
}

// refreshUser keeps the previous profile when the fetch fails.
func (c *Client) refreshUser(ctx context.Context, token string) {
	user, err := c.api.Me(ctx, token)
	if err != nil {
		c.logger.Warn("refresh current user", slog.Any("error", err))
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == token {
		c.user = user
	}
}
