package rbac

import "github.com/slooze/slooze-web/internal/api"

// Permission names an action the dashboard may offer to a role.
type Permission string

const (
	PermCatalogView   Permission = "catalog.view"
	PermOrderCreate   Permission = "orders.create"
	PermOrderCheckout Permission = "orders.checkout"
	PermOrderCancel   Permission = "orders.cancel"
	PermOrderDelete   Permission = "orders.delete"
	PermPaymentUpdate Permission = "payment.update"
)

// rolePermissions mirrors the grants enforced by the API. The API remains
// the authority; this table only decides which controls are rendered.
var rolePermissions = map[api.Role][]Permission{
	api.RoleAdmin: {
		PermCatalogView,
		PermOrderCreate,
		PermOrderCheckout,
		PermOrderCancel,
		PermOrderDelete,
		PermPaymentUpdate,
	},
	api.RoleManager: {
		PermCatalogView,
		PermOrderCreate,
		PermOrderCheckout,
		PermOrderCancel,
	},
	api.RoleMember: {
		PermCatalogView,
		PermOrderCreate,
	},
}

// OrderActions lists the controls rendered next to one order.
type OrderActions struct {
	Checkout bool
	Cancel   bool
	Delete   bool
}

// Any reports whether at least one control is shown.
func (a OrderActions) Any() bool {
	return a.Checkout || a.Cancel || a.Delete
}
