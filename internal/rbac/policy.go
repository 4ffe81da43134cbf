package rbac

import (
	"strings"

	"github.com/slooze/slooze-web/internal/api"
)

// Can reports whether role holds perm.
func Can(role api.Role, perm Permission) bool {
	return hasAnyPermission(rolePermissions[normalizeRole(role)], perm)
}

// ActionsFor decides which order controls to render for role. Checkout and
// cancel only apply to orders still in CREATED; delete applies to any status.
func ActionsFor(role api.Role, status api.OrderStatus) OrderActions {
	open := status == api.OrderStatusCreated
	return OrderActions{
		Checkout: open && Can(role, PermOrderCheckout),
		Cancel:   open && Can(role, PermOrderCancel),
		Delete:   Can(role, PermOrderDelete),
	}
}

func normalizeRole(role api.Role) api.Role {
	return api.Role(strings.ToUpper(strings.TrimSpace(string(role))))
}

func hasAnyPermission(granted []Permission, required ...Permission) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[Permission]struct{}, len(granted))
	for _, p := range granted {
		set[p] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}
