package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slooze/slooze-web/internal/api"
)

func TestActionsFor(t *testing.T) {
	tests := []struct {
		name   string
		role   api.Role
		status api.OrderStatus
		want   OrderActions
	}{
		{name: "admin created", role: api.RoleAdmin, status: api.OrderStatusCreated, want: OrderActions{Checkout: true, Cancel: true, Delete: true}},
		{name: "admin paid", role: api.RoleAdmin, status: api.OrderStatusPaid, want: OrderActions{Delete: true}},
		{name: "manager created", role: api.RoleManager, status: api.OrderStatusCreated, want: OrderActions{Checkout: true, Cancel: true}},
		{name: "manager cancelled", role: api.RoleManager, status: api.OrderStatusCancelled, want: OrderActions{}},
		{name: "member created", role: api.RoleMember, status: api.OrderStatusCreated, want: OrderActions{}},
		{name: "lowercase role", role: "manager", status: api.OrderStatusCreated, want: OrderActions{Checkout: true, Cancel: true}},
		{name: "unknown role", role: "GUEST", status: api.OrderStatusCreated, want: OrderActions{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ActionsFor(tt.role, tt.status)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Checkout || tt.want.Cancel || tt.want.Delete, got.Any())
		})
	}
}

func TestPaymentUpdateIsAdminOnly(t *testing.T) {
	assert.True(t, Can(api.RoleAdmin, PermPaymentUpdate))
	assert.False(t, Can(api.RoleManager, PermPaymentUpdate))
	assert.False(t, Can(api.RoleMember, PermPaymentUpdate))
	assert.False(t, Can("", PermPaymentUpdate))
}
