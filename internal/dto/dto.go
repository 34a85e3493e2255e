// dto.go
package dto

import "time"

// PricingDTO desglose de precios que manda el checkout
type PricingDTO struct {
	Subtotal    float64 `json:"subtotal"`
	DeliveryFee float64 `json:"deliveryFee"`
	HandlingFee float64 `json:"handlingFee"`
	GrandTotal  float64 `json:"grandTotal"`
}

type OrderItemDTO struct {
	Title    string   `json:"title" binding:"required"`
	Price    float64  `json:"price"`
	Quantity int      `json:"quantity" binding:"required,gt=0"`
	Images   []string `json:"images"`
}

type ShippingInfoDTO struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state"`
	ZipCode  string `json:"zipCode"`
	Country  string `json:"country"`
}

// OrderDataDTO payload completo del checkout (items snapshoteados + envío + precios)
type OrderDataDTO struct {
	UserID       string          `json:"userId" binding:"required"`
	Items        []OrderItemDTO  `json:"items" binding:"required,dive"`
	ShippingInfo ShippingInfoDTO `json:"shippingInfo"`
	Pricing      PricingDTO      `json:"pricing"`
}

// CreatePaymentOrderRequest usado por POST /api/payment/create-order
type CreatePaymentOrderRequest struct {
	Amount    float64      `json:"amount"`
	Currency  string       `json:"currency"`
	Receipt   string       `json:"receipt"`
	OrderData OrderDataDTO `json:"orderData" binding:"required"`
}

type CreatePaymentOrderResponse struct {
	Success      bool    `json:"success"`
	IntentID     string  `json:"orderId"`
	Amount       int64   `json:"amount"` // en unidades menores, como lo devuelve el gateway
	Currency     string  `json:"currency"`
	LocalOrderID string  `json:"dbOrderId"`
}

// VerifyPaymentRequest nombres de campos tal como los manda el checkout del gateway
type VerifyPaymentRequest struct {
	IntentID     string `json:"razorpay_order_id" binding:"required"`
	PaymentRef   string `json:"razorpay_payment_id" binding:"required"`
	Signature    string `json:"razorpay_signature" binding:"required"`
	LocalOrderID string `json:"dbOrderId"`
}

type CreateCODOrderRequest struct {
	OrderData OrderDataDTO `json:"orderData" binding:"required"`
}

type OrderSummary struct {
	ID        string `json:"id"`
	OrderID   string `json:"orderId"`
	Status    string `json:"status"`
	PaymentID string `json:"paymentId,omitempty"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// Auth
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string      `json:"token"`
	User  UserProfile `json:"user"`
}

type UserProfile struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	TotalOrders int       `json:"totalOrders"`
	TotalSpent  float64   `json:"totalSpent"`
	LastLogin   time.Time `json:"lastLogin"`
}
