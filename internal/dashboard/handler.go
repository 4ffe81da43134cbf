package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/slooze/slooze-web/internal/api"
	"github.com/slooze/slooze-web/internal/platform/httpx"
	"github.com/slooze/slooze-web/internal/rbac"
	"github.com/slooze/slooze-web/internal/session"
	"github.com/slooze/slooze-web/internal/shared"
	"github.com/slooze/slooze-web/internal/view"
)

const (
	pageTitle       = "Slooze"
	defaultPassword = "password123"
)

// Handler serves the login page, the dashboard and the action endpoints.
// Every action maps to one session client operation followed by a redirect.
type Handler struct {
	logger       *slog.Logger
	templates    *view.Engine
	sessions     *shared.SessionManager
	csrf         *shared.CSRFManager
	registry     *session.Registry
	validator    *validator.Validate
	loginLimiter func(http.Handler) http.Handler
}

// NewHandler constructs a Handler. loginLimiter may be nil.
func NewHandler(logger *slog.Logger, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager, registry *session.Registry, loginLimiter func(http.Handler) http.Handler) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if loginLimiter == nil {
		loginLimiter = func(next http.Handler) http.Handler { return next }
	}
	return &Handler{
		logger:       logger,
		templates:    templates,
		sessions:     sessions,
		csrf:         csrf,
		registry:     registry,
		validator:    validator.New(),
		loginLimiter: loginLimiter,
	}
}

// MountRoutes registers the dashboard routes on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.showIndex)
	r.Get("/state", h.showState)
	r.With(h.loginLimiter).Post("/auth/login", h.handleLogin)
	r.Post("/auth/logout", h.handleLogout)
	r.Post("/cart/items", h.handleAddToCart)
	r.Post("/orders", h.handleCreateOrder)
	r.Route("/orders/{id}", func(r chi.Router) {
		r.Post("/checkout", h.handleCheckout)
		r.Post("/cancel", h.handleCancel)
		r.Post("/delete", h.handleDelete)
	})
	r.Post("/me/payment-method", h.handleUpdatePayment)
}

type loginForm struct {
	Email    string `validate:"required"`
	Password string `validate:"required"`
}

type loginPage struct {
	Email    string
	Password string
	Errors   map[string]string
}

type orderRow struct {
	Order   api.Order
	Actions rbac.OrderActions
}

type cartRow struct {
	MenuItemID int64
	Name       string
	Quantity   int
}

type dashboardPage struct {
	User             *api.User
	Restaurants      []api.Restaurant
	Orders           []orderRow
	Cart             []cartRow
	CanUpdatePayment bool
}

func (h *Handler) showIndex(w http.ResponseWriter, r *http.Request) {
	client, sess, err := h.acquire(r)
	if err != nil {
		h.fail(w, "acquire session client", err)
		return
	}
	snapshot := client.Snapshot()
	if !snapshot.LoggedIn {
		h.renderLogin(w, r, sess, http.StatusOK, loginPage{Password: defaultPassword})
		return
	}
	h.render(w, r, sess, http.StatusOK, "pages/dashboard.html", buildDashboard(snapshot))
}

// showState reports 502 when the persisted token could not be read, since
// "logged out" would be wrong there.
func (h *Handler) showState(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("acquire session client", slog.Any("error", shared.ErrSessionMissing))
		httpx.RespondError(w, shared.ErrSessionMissing)
		return
	}
	client, err := h.registry.Acquire(r.Context(), sess.ID)
	if err != nil {
		h.logger.Warn("restore session", slog.Any("error", err))
		httpx.RespondError(w, fmt.Errorf("%w: restore session", httpx.ErrUpstream))
		return
	}
	snapshot := client.Snapshot()
	if !snapshot.LoggedIn {
		httpx.RespondError(w, fmt.Errorf("%w: %w", httpx.ErrUnauthorized, session.ErrNoSession))
		return
	}
	httpx.JSON(w, http.StatusOK, snapshot)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	client, sess, err := h.acquire(r)
	if err != nil {
		h.fail(w, "acquire session client", err)
		return
	}

	form := loginForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	if err := h.validator.Struct(form); err != nil {
		fieldErrors := make(map[string]string)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fieldErr := range verrs {
				fieldErrors[fieldErr.Field()] = fieldErr.Field() + " is required"
			}
		}
		h.renderLogin(w, r, sess, http.StatusBadRequest, loginPage{Email: form.Email, Password: form.Password, Errors: fieldErrors})
		return
	}

	// The token is saved under a browser session ID issued for this login,
	// so an ID chosen before authentication never keys a logged-in session.
	freshID := shared.NewSessionID()
	fresh, err := h.registry.Acquire(r.Context(), freshID)
	if err != nil {
		h.logger.Warn("prepare login client", slog.Any("error", err))
	}
	if err := fresh.Login(r.Context(), form.Email, form.Password); err != nil {
		h.registry.Release(freshID)
		addFlash(sess, shared.FlashError, "Login failed")
		redirectHome(w, r)
		return
	}
	if err := client.Logout(r.Context()); err != nil {
		h.logger.Warn("retire previous session client", slog.Any("error", err))
	}
	h.registry.Release(sess.ID)
	h.sessions.Renew(sess, freshID)
	redirectHome(w, r)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	client, sess, err := h.acquire(r)
	if err != nil {
		h.fail(w, "acquire session client", err)
		return
	}
	if err := client.Logout(r.Context()); err != nil {
		h.logger.Warn("logout", slog.Any("error", err))
	}
	h.registry.Release(sess.ID)
	h.sessions.Destroy(sess)
	redirectHome(w, r)
}

func (h *Handler) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	client, sess, err := h.acquire(r)
	if err != nil {
		h.fail(w, "acquire session client", err)
		return
	}
	id, err := strconv.ParseInt(r.PostFormValue("menu_item_id"), 10, 64)
	if err != nil || id <= 0 {
		addFlash(sess, shared.FlashError, "Invalid menu item")
		redirectHome(w, r)
		return
	}
	client.AddToCart(id)
	redirectHome(w, r)
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	client, sess, err := h.acquire(r)
	if err != nil {
		h.fail(w, "acquire session client", err)
		return
	}
	order, err := client.CreateOrder(r.Context())
	switch {
	case errors.Is(err, session.ErrCartEmpty):
		addFlash(sess, shared.FlashError, "Cart empty")
	case errors.Is(err, session.ErrNoSession):
		addFlash(sess, shared.FlashError, "Not logged in")
	case err != nil:
		addFlash(sess, shared.FlashError, "Failed: "+api.Payload(err))
	default:
		addFlash(sess, shared.FlashSuccess, "Order created #"+strconv.FormatInt(order.ID, 10))
	}
	redirectHome(w, r)
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	h.orderAction(w, r, func(ctx context.Context, c *session.Client, id int64) error {
		_, err := c.Checkout(ctx, id)
		return err
	})
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	h.orderAction(w, r, func(ctx context.Context, c *session.Client, id int64) error {
		_, err := c.CancelOrder(ctx, id)
		return err
	})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	h.orderAction(w, r, func(ctx context.Context, c *session.Client, id int64) error {
		return c.DeleteOrder(ctx, id)
	})
}

// orderAction runs an order-scoped call. Success is silent; failures flash
// the raw server payload.
func (h *Handler) orderAction(w http.ResponseWriter, r *http.Request, call func(context.Context, *session.Client, int64) error) {
	client, sess, err := h.acquire(r)
	if err != nil {
		h.fail(w, "acquire session client", err)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.NotFound(w, r)
		return
	}
	if err := call(r.Context(), client, id); err != nil {
		addFlash(sess, shared.FlashError, actionMessage(err))
	}
	redirectHome(w, r)
}

func (h *Handler) handleUpdatePayment(w http.ResponseWriter, r *http.Request) {
	client, sess, err := h.acquire(r)
	if err != nil {
		h.fail(w, "acquire session client", err)
		return
	}
	_, err = client.UpdatePayment(r.Context(), r.PostFormValue("payment_method"))
	switch {
	case errors.Is(err, session.ErrEmptyPaymentMethod):
	case err != nil:
		addFlash(sess, shared.FlashError, actionMessage(err))
	default:
		addFlash(sess, shared.FlashSuccess, "Updated.")
	}
	redirectHome(w, r)
}

func (h *Handler) acquire(r *http.Request) (*session.Client, *shared.Session, error) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return nil, nil, shared.ErrSessionMissing
	}
	client, err := h.registry.Acquire(r.Context(), sess.ID)
	if err != nil {
		// The client is still usable, it just starts logged out.
		h.logger.Warn("restore session", slog.String("browser_session", sess.ID[:min(8, len(sess.ID))]), slog.Any("error", err))
	}
	return client, sess, nil
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, sess *shared.Session, status int, page loginPage) {
	h.render(w, r, sess, status, "pages/login.html", page)
}

// render prepares everything that touches the browser session before the
// status line goes out, since the session is committed with the headers.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, sess *shared.Session, status int, name string, data any) {
	csrfToken, err := h.csrf.EnsureToken(r.Context(), sess)
	if err != nil {
		h.logger.Error("ensure csrf token", slog.Any("error", err))
	}
	viewData := view.TemplateData{
		Title:       pageTitle,
		CSRFToken:   csrfToken,
		Flash:       sess.PopFlash(),
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, name, viewData); err != nil {
		h.logger.Error("render page", slog.String("template", name), slog.Any("error", err))
	}
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, slog.Any("error", err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func buildDashboard(snapshot session.View) dashboardPage {
	page := dashboardPage{
		User:        snapshot.User,
		Restaurants: snapshot.Restaurants,
		Orders:      make([]orderRow, 0, len(snapshot.Orders)),
		Cart:        make([]cartRow, 0, len(snapshot.Cart)),
	}
	var role api.Role
	if snapshot.User != nil {
		role = snapshot.User.Role
	}
	page.CanUpdatePayment = rbac.Can(role, rbac.PermPaymentUpdate)
	for _, order := range snapshot.Orders {
		page.Orders = append(page.Orders, orderRow{Order: order, Actions: rbac.ActionsFor(role, order.Status)})
	}

	names := make(map[int64]string)
	for _, restaurant := range snapshot.Restaurants {
		for _, item := range restaurant.MenuItems {
			names[item.ID] = item.Name
		}
	}
	for _, line := range snapshot.Cart {
		name, ok := names[line.MenuItemID]
		if !ok {
			name = "Item " + strconv.FormatInt(line.MenuItemID, 10)
		}
		page.Cart = append(page.Cart, cartRow{MenuItemID: line.MenuItemID, Name: name, Quantity: line.Quantity})
	}
	return page
}

func actionMessage(err error) string {
	if errors.Is(err, session.ErrNoSession) {
		return "Not logged in"
	}
	return api.Payload(err)
}

func addFlash(sess *shared.Session, kind, message string) {
	sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
