// models.go
package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Estados de la orden (mismos nombres que expone la API)
const (
	StatusPending    = "Pending"
	StatusProcessing = "Processing"
	StatusShipped    = "Shipped"
	StatusDelivered  = "Delivered"
	StatusCancelled  = "Cancelled"
)

// Estados de pago
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentFailed  = "failed"
)

// Métodos de pago
const (
	MethodRazorpay = "razorpay"
	MethodCOD      = "cod"
)

type Order struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderID string             `bson:"order_id" json:"orderId"` // referencia externa (gateway o COD_*)
	UserID  string             `bson:"user_id" json:"userId"`

	OrderDate time.Time    `bson:"order_date" json:"orderDate"`
	Status    string       `bson:"status" json:"status"`
	Items     []OrderItem  `bson:"items" json:"items"`
	Shipping  ShippingInfo `bson:"shipping_info" json:"shippingInfo"`
	Pricing   Pricing      `bson:"pricing" json:"pricing"`

	PaymentMethod string     `bson:"payment_method" json:"paymentMethod"`
	PaymentStatus string     `bson:"payment_status" json:"paymentStatus"`
	PaymentID     string     `bson:"payment_id,omitempty" json:"paymentId,omitempty"`
	PaidAt        *time.Time `bson:"paid_at,omitempty" json:"paidAt,omitempty"`

	// Marca que los totales del usuario ya fueron acreditados por esta orden.
	// Se setea en el mismo update atómico que la transición a paid.
	Credited bool `bson:"credited" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// Snapshot del producto al momento de la compra, no referencia viva
type OrderItem struct {
	Title    string   `bson:"title" json:"title"`
	Price    float64  `bson:"price" json:"price"`
	Quantity int      `bson:"quantity" json:"quantity"`
	Images   []string `bson:"images" json:"images"`
}

type ShippingInfo struct {
	FullName string `bson:"full_name" json:"fullName"`
	Email    string `bson:"email" json:"email"`
	Phone    string `bson:"phone" json:"phone"`
	Address  string `bson:"address" json:"address"`
	City     string `bson:"city" json:"city"`
	State    string `bson:"state" json:"state"`
	ZipCode  string `bson:"zip_code" json:"zipCode"`
	Country  string `bson:"country" json:"country"`
}

type Pricing struct {
	Subtotal    float64 `bson:"subtotal" json:"subtotal"`
	DeliveryFee float64 `bson:"delivery_fee" json:"deliveryFee"`
	HandlingFee float64 `bson:"handling_fee" json:"handlingFee"`
	GrandTotal  float64 `bson:"grand_total" json:"grandTotal"`
}

type User struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name     string             `bson:"name" json:"name"`
	Email    string             `bson:"email" json:"email"`
	Password string             `bson:"password" json:"-"` // hash bcrypt, nunca se serializa
	Role     string             `bson:"role" json:"role"`  // user | admin
	IsActive bool               `bson:"is_active" json:"isActive"`

	// Totales denormalizados, mutados solo vía $inc desde el workflow de pago
	TotalOrders int     `bson:"total_orders" json:"totalOrders"`
	TotalSpent  float64 `bson:"total_spent" json:"totalSpent"`

	LastLogin time.Time `bson:"last_login" json:"lastLogin"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u.Role == "admin"
}
