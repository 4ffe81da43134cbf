package api

// Role is the RBAC role reported by the API for the current user.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleMember  Role = "MEMBER"
)

// OrderStatus is the server-side lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "CREATED"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// User is the profile returned by GET /me.
type User struct {
	ID            int64  `json:"id" validate:"required"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Role          Role   `json:"role" validate:"required,oneof=ADMIN MANAGER MEMBER"`
	Country       string `json:"country"`
	PaymentMethod string `json:"paymentMethod,omitempty"`
}

// MenuItem is a dish offered by a restaurant. Price is in minor currency units.
type MenuItem struct {
	ID    int64  `json:"id" validate:"required"`
	Name  string `json:"name"`
	Price int64  `json:"price" validate:"gte=0"`
}

// Restaurant is one entry of the country-scoped catalog.
type Restaurant struct {
	ID        int64      `json:"id" validate:"required"`
	Name      string     `json:"name"`
	Country   string     `json:"country"`
	MenuItems []MenuItem `json:"menuItems" validate:"required,dive"`
}

// OrderItem is a single line of a placed order.
type OrderItem struct {
	ID       int64    `json:"id" validate:"required"`
	Quantity int      `json:"quantity" validate:"gte=1"`
	MenuItem MenuItem `json:"menuItem"`
}

// Order is an immutable snapshot of a server order.
type Order struct {
	ID         int64       `json:"id" validate:"required"`
	Status     OrderStatus `json:"status" validate:"required,oneof=CREATED PAID CANCELLED"`
	TotalCents int64       `json:"totalCents"`
	Items      []OrderItem `json:"items" validate:"required,dive"`
}

// CartLine is a pending order line. It only exists in client memory.
type CartLine struct {
	MenuItemID int64 `json:"menuItemId"`
	Quantity   int   `json:"quantity"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type createOrderRequest struct {
	Items []CartLine `json:"items"`
}

type paymentMethodRequest struct {
	PaymentMethod string `json:"paymentMethod"`
}

type paymentMethodResponse struct {
	PaymentMethod string `json:"paymentMethod"`
}
