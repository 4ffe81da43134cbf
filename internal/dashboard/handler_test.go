package dashboard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slooze/slooze-web/internal/api"
	"github.com/slooze/slooze-web/internal/rbac"
	"github.com/slooze/slooze-web/internal/session"
	"github.com/slooze/slooze-web/internal/shared"
	"github.com/slooze/slooze-web/internal/view"
	_ "github.com/slooze/slooze-web/testing"
)

func snapshotFor(role api.Role) session.View {
	return session.View{
		LoggedIn: true,
		User:     &api.User{ID: 2, Name: "Carol", Role: role, Country: "America"},
		Restaurants: []api.Restaurant{{
			ID: 1, Name: "Burger Barn", Country: "America",
			MenuItems: []api.MenuItem{{ID: 9, Name: "Cheeseburger", Price: 1299}},
		}},
		Orders: []api.Order{
			{ID: 10, Status: api.OrderStatusCreated},
			{ID: 11, Status: api.OrderStatusPaid},
		},
		Cart: []api.CartLine{{MenuItemID: 9, Quantity: 2}, {MenuItemID: 77, Quantity: 1}},
	}
}

func TestBuildDashboardGatesActionsByRole(t *testing.T) {
	tests := []struct {
		role       api.Role
		created    rbac.OrderActions
		paid       rbac.OrderActions
		canPayment bool
	}{
		{role: api.RoleAdmin, created: rbac.OrderActions{Checkout: true, Cancel: true, Delete: true}, paid: rbac.OrderActions{Delete: true}, canPayment: true},
		{role: api.RoleManager, created: rbac.OrderActions{Checkout: true, Cancel: true}},
		{role: api.RoleMember},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			page := buildDashboard(snapshotFor(tt.role))
			require.Len(t, page.Orders, 2)
			assert.Equal(t, tt.created, page.Orders[0].Actions)
			assert.Equal(t, tt.paid, page.Orders[1].Actions)
			assert.Equal(t, tt.canPayment, page.CanUpdatePayment)
		})
	}
}

func TestBuildDashboardNamesCartLines(t *testing.T) {
	page := buildDashboard(snapshotFor(api.RoleMember))
	assert.Equal(t, []cartRow{
		{MenuItemID: 9, Name: "Cheeseburger", Quantity: 2},
		{MenuItemID: 77, Name: "Item 77", Quantity: 1},
	}, page.Cart)
}

func TestBuildDashboardWithoutUserHidesEverything(t *testing.T) {
	snapshot := snapshotFor(api.RoleAdmin)
	snapshot.User = nil
	page := buildDashboard(snapshot)
	assert.False(t, page.CanUpdatePayment)
	assert.False(t, page.Orders[0].Actions.Any())
}

func TestActionMessage(t *testing.T) {
	assert.Equal(t, "Not logged in", actionMessage(session.ErrNoSession))
	assert.Equal(t, `{"message":"Forbidden"}`, actionMessage(&api.Error{Status: http.StatusForbidden, Payload: `{"message":"Forbidden"}`, Err: api.ErrStatus}))
	assert.Equal(t, "dial tcp: refused", actionMessage(errors.New("dial tcp: refused")))
}

type noopAPI struct{ session.API }

func TestOrderActionRejectsMalformedID(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	templates, err := view.NewEngine()
	require.NoError(t, err)
	sessions := shared.NewSessionManager(rdb, "secret", "test_session", time.Hour, false)
	registry := session.NewRegistry(func(string) *session.Client {
		return session.NewClient(noopAPI{}, nil, nil)
	}, 0)
	handler := NewHandler(nil, templates, sessions, shared.NewCSRFManager("secret"), registry, nil)

	req := httptest.NewRequest(http.MethodPost, "/orders/abc/checkout", nil)
	sess, err := sessions.Load(context.Background(), req)
	require.NoError(t, err)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	res := httptest.NewRecorder()
	handler.handleCheckout(res, req)
	assert.Equal(t, http.StatusNotFound, res.Code)
}

type unreachableStore struct{}

func (unreachableStore) Load(context.Context) (string, error) {
	return "", errors.New("redis: connection refused")
}
func (unreachableStore) Save(context.Context, string) error { return nil }
func (unreachableStore) Clear(context.Context) error        { return nil }

func TestStateReportsUnreadableToken(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	templates, err := view.NewEngine()
	require.NoError(t, err)
	sessions := shared.NewSessionManager(rdb, "secret", "test_session", time.Hour, false)
	registry := session.NewRegistry(func(string) *session.Client {
		return session.NewClient(noopAPI{}, unreachableStore{}, nil)
	}, 0)
	handler := NewHandler(nil, templates, sessions, shared.NewCSRFManager("secret"), registry, nil)

	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	sess, err := sessions.Load(context.Background(), req)
	require.NoError(t, err)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	res := httptest.NewRecorder()
	handler.showState(res, req)
	assert.Equal(t, http.StatusBadGateway, res.Code)
	assert.NotContains(t, res.Body.String(), "connection refused")
}
