package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"ecommerce-api/internal/dto"
	"ecommerce-api/internal/gateway"
	"ecommerce-api/internal/model"
	"ecommerce-api/internal/signature"

	"github.com/google/uuid"
)

// Interfaces que deben implementar repository / gateway / rabbit
type OrderRepository interface {
	Insert(ctx context.Context, o *model.Order) error
	FindByOrderID(ctx context.Context, orderID string) (*model.Order, error)
	FindByUserID(ctx context.Context, userID string) ([]*model.Order, error)
	MarkPaid(ctx context.Context, orderID, paymentRef string) (*model.Order, error)
	MarkFailed(ctx context.Context, orderID string) error
	UpdateStatus(ctx context.Context, orderID, status string) error
	MarkCredited(ctx context.Context, orderID string) (bool, error)
	Delete(ctx context.Context, orderID string) error
}

type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	UpdateLastLogin(ctx context.Context, id string) error
	ApplyOrderCompletion(ctx context.Context, userID string, grandTotal float64) error
	RecomputeAggregates(ctx context.Context, userID string) (int, float64, error)
}

type GatewayClient interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*gateway.GatewayOrder, error)
}

type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, o *model.Order) error
	PublishPaymentVerified(ctx context.Context, o *model.Order) error
}

// Errores de negocio exportados (los usa el controller)
var (
	ErrAmountRequired     = errors.New("el monto es requerido y debe ser positivo")
	ErrPricingMismatch    = errors.New("el desglose de precios no coincide con el total")
	ErrVerificationFailed = errors.New("la verificación del pago falló")
)

// PersistError: el intent remoto ya existe pero la orden local no se pudo
// guardar. Lleva el id del intent para que el caller pueda reconciliar a mano.
type PersistError struct {
	IntentID string
	Err      error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("el intent %s fue creado pero la orden no se pudo persistir: %v", e.IntentID, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

type PaymentService struct {
	orders    OrderRepository
	users     UserRepository
	gateway   GatewayClient
	publisher EventPublisher
	secret    string // secreto compartido del gateway, firma los callbacks
}

func NewPaymentService(orders OrderRepository, users UserRepository, gw GatewayClient, pub EventPublisher, secret string) *PaymentService {
	return &PaymentService{
		orders:    orders,
		users:     users,
		gateway:   gw,
		publisher: pub,
		secret:    secret,
	}
}

func dtoToModelItems(in []dto.OrderItemDTO) []model.OrderItem {
	out := make([]model.OrderItem, 0, len(in))
	for _, it := range in {
		out = append(out, model.OrderItem{
			Title:    it.Title,
			Price:    it.Price,
			Quantity: it.Quantity,
			Images:   it.Images,
		})
	}
	return out
}

func dtoToModelShipping(in dto.ShippingInfoDTO) model.ShippingInfo {
	return model.ShippingInfo{
		FullName: in.FullName,
		Email:    in.Email,
		Phone:    in.Phone,
		Address:  in.Address,
		City:     in.City,
		State:    in.State,
		ZipCode:  in.ZipCode,
		Country:  in.Country,
	}
}

// toMinorUnits convierte un monto en unidades mayores a la unidad menor de la
// moneda (ej: 499.99 → 49999 paise). El redondeo absorbe el error binario del
// float para cualquier valor con dos decimales.
func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// CreateGatewayOrder crea el intent en el gateway y recién ahí persiste la
// orden local en Pending/pending. Si el gateway falla no se guarda nada.
func (s *PaymentService) CreateGatewayOrder(ctx context.Context, amount float64, currency, receipt string, data dto.OrderDataDTO) (*model.Order, *gateway.GatewayOrder, error) {
	if amount <= 0 {
		return nil, nil, ErrAmountRequired
	}
	if currency == "" {
		currency = "INR"
	}
	if receipt == "" {
		receipt = "receipt_" + uuid.NewString()
	}

	gwOrder, err := s.gateway.CreateOrder(ctx, toMinorUnits(amount), currency, receipt)
	if err != nil {
		return nil, nil, err
	}

	order := &model.Order{
		OrderID:       gwOrder.ID,
		UserID:        data.UserID,
		Status:        model.StatusPending,
		Items:         dtoToModelItems(data.Items),
		Shipping:      dtoToModelShipping(data.ShippingInfo),
		PaymentMethod: model.MethodRazorpay,
		PaymentStatus: model.PaymentPending,
		Pricing: model.Pricing{
			Subtotal:    data.Pricing.Subtotal,
			DeliveryFee: data.Pricing.DeliveryFee,
			HandlingFee: data.Pricing.HandlingFee,
			// El total NUNCA se toma del pricing del cliente: se rederiva
			// del monto que el gateway confirmó en el intent.
			GrandTotal: float64(gwOrder.Amount) / 100,
		},
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		return nil, nil, &PersistError{IntentID: gwOrder.ID, Err: err}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishOrderPlaced(ctx, order); err != nil {
			log.Println("Error publicando evento order_placed:", err)
		}
	}

	return order, gwOrder, nil
}

// VerifyPayment valida la firma del callback y aplica la transición de estado.
//
// Con firma válida la transición a Processing/paid + credited es un único
// update condicional sobre payment_status == pending. Un segundo webhook (o una
// verificación concurrente) no matchea el filtro y devuelve el éxito previo sin
// volver a acreditar los totales del usuario.
func (s *PaymentService) VerifyPayment(ctx context.Context, intentID, paymentRef, sig string) (*model.Order, error) {
	material := intentID + "|" + paymentRef

	if !signature.Verify(material, sig, s.secret) {
		// Resultado de negocio esperado, no una falla de transporte:
		// la orden queda Cancelled/failed y los totales no se tocan.
		if err := s.orders.MarkFailed(ctx, intentID); err != nil {
			return nil, err
		}
		return nil, ErrVerificationFailed
	}

	order, err := s.orders.MarkPaid(ctx, intentID, paymentRef)
	if err != nil {
		return nil, err
	}

	if order != nil {
		// Este caller ganó la transición: acredita exactamente una vez
		if err := s.users.ApplyOrderCompletion(ctx, order.UserID, order.Pricing.GrandTotal); err != nil {
			log.Println("Error acreditando totales del usuario:", err)
		}
		if s.publisher != nil {
			if err := s.publisher.PublishPaymentVerified(ctx, order); err != nil {
				log.Println("Error publicando evento payment_verified:", err)
			}
		}
		return order, nil
	}

	// No matcheó el update condicional: o no existe, o ya salió de pending
	existing, err := s.orders.FindByOrderID(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if existing.PaymentStatus == model.PaymentPaid {
		// Webhook duplicado: mismo resultado, sin segunda acreditación
		return existing, nil
	}
	return nil, ErrVerificationFailed
}

// CreateCODOrder persiste una orden contra entrega sin tocar el gateway.
// Los totales del usuario no se acreditan acá: el pago COD no se confirma
// sincrónicamente, la acreditación ocurre cuando un admin la marca Delivered.
func (s *PaymentService) CreateCODOrder(ctx context.Context, data dto.OrderDataDTO) (*model.Order, error) {
	p := data.Pricing
	// Para COD no hay monto confirmado por el gateway: el desglose tiene
	// que cerrar por sí solo contra el total declarado.
	if math.Abs(p.Subtotal+p.DeliveryFee+p.HandlingFee-p.GrandTotal) > 0.005 {
		return nil, ErrPricingMismatch
	}
	if p.GrandTotal <= 0 {
		return nil, ErrAmountRequired
	}

	ref := fmt.Sprintf("COD_%d_%s", time.Now().UnixMilli(), strings.Split(uuid.NewString(), "-")[0])

	order := &model.Order{
		OrderID:       ref,
		UserID:        data.UserID,
		Status:        model.StatusPending,
		Items:         dtoToModelItems(data.Items),
		Shipping:      dtoToModelShipping(data.ShippingInfo),
		PaymentMethod: model.MethodCOD,
		PaymentStatus: model.PaymentPending,
		Pricing: model.Pricing{
			Subtotal:    p.Subtotal,
			DeliveryFee: p.DeliveryFee,
			HandlingFee: p.HandlingFee,
			GrandTotal:  p.GrandTotal,
		},
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		return nil, err
	}

	if s.publisher != nil {
		if err := s.publisher.PublishOrderPlaced(ctx, order); err != nil {
			log.Println("Error publicando evento order_placed:", err)
		}
	}

	return order, nil
}

func (s *PaymentService) GetOrderByReference(ctx context.Context, orderID string) (*model.Order, error) {
	return s.orders.FindByOrderID(ctx, orderID)
}
