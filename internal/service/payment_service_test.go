package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ecommerce-api/internal/dto"
	"ecommerce-api/internal/gateway"
	"ecommerce-api/internal/model"
	"ecommerce-api/internal/repository"
	"ecommerce-api/internal/signature"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Insert(ctx context.Context, o *model.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) FindByOrderID(ctx context.Context, orderID string) (*model.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByUserID(ctx context.Context, userID string) ([]*model.Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Order), args.Error(1)
}

func (m *MockOrderRepository) MarkPaid(ctx context.Context, orderID, paymentRef string) (*model.Order, error) {
	args := m.Called(ctx, orderID, paymentRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) MarkFailed(ctx context.Context, orderID string) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, orderID, status string) error {
	args := m.Called(ctx, orderID, status)
	return args.Error(0)
}

func (m *MockOrderRepository) MarkCredited(ctx context.Context, orderID string) (bool, error) {
	args := m.Called(ctx, orderID)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) Delete(ctx context.Context, orderID string) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, u *model.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) UpdateLastLogin(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) ApplyOrderCompletion(ctx context.Context, userID string, grandTotal float64) error {
	args := m.Called(ctx, userID, grandTotal)
	return args.Error(0)
}

func (m *MockUserRepository) RecomputeAggregates(ctx context.Context, userID string) (int, float64, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Get(1).(float64), args.Error(2)
}

type MockGatewayClient struct {
	mock.Mock
}

func (m *MockGatewayClient) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*gateway.GatewayOrder, error) {
	args := m.Called(ctx, amount, currency, receipt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.GatewayOrder), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishOrderPlaced(ctx context.Context, o *model.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockPublisher) PublishPaymentVerified(ctx context.Context, o *model.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

const testSecret = "test_secret"

func newPaymentService(orders *MockOrderRepository, users *MockUserRepository, gw *MockGatewayClient, pub *MockPublisher) *PaymentService {
	return NewPaymentService(orders, users, gw, pub, testSecret)
}

func checkoutData() dto.OrderDataDTO {
	return dto.OrderDataDTO{
		UserID: "64f0c2a1b3d4e5f6a7b8c9d0",
		Items: []dto.OrderItemDTO{
			{Title: "Auriculares", Price: 459.99, Quantity: 1},
		},
		Pricing: dto.PricingDTO{
			Subtotal:    459.99,
			DeliveryFee: 30,
			HandlingFee: 10,
			GrandTotal:  499.99,
		},
	}
}

func TestCreateGatewayOrder_ConvertsToMinorUnits(t *testing.T) {
	orders := new(MockOrderRepository)
	users := new(MockUserRepository)
	gw := new(MockGatewayClient)
	pub := new(MockPublisher)
	svc := newPaymentService(orders, users, gw, pub)

	// 499.99 en unidades mayores → 49999 paise, conversión exacta
	gw.On("CreateOrder", mock.Anything, int64(49999), "INR", mock.Anything).
		Return(&gateway.GatewayOrder{ID: "order_A1", Amount: 49999, Currency: "INR"}, nil)
	orders.On("Insert", mock.Anything, mock.Anything).Return(nil)
	pub.On("PublishOrderPlaced", mock.Anything, mock.Anything).Return(nil)

	order, gwOrder, err := svc.CreateGatewayOrder(context.Background(), 499.99, "INR", "", checkoutData())

	assert.NoError(t, err)
	assert.Equal(t, "order_A1", gwOrder.ID)
	assert.Equal(t, "order_A1", order.OrderID)
	assert.Equal(t, 499.99, order.Pricing.GrandTotal)
	assert.Equal(t, model.StatusPending, order.Status)
	assert.Equal(t, model.PaymentPending, order.PaymentStatus)
	gw.AssertExpectations(t)
	orders.AssertExpectations(t)
}

func TestCreateGatewayOrder_GrandTotalFromGatewayNotClient(t *testing.T) {
	orders := new(MockOrderRepository)
	users := new(MockUserRepository)
	gw := new(MockGatewayClient)
	pub := new(MockPublisher)
	svc := newPaymentService(orders, users, gw, pub)

	// El pricing del cliente dice 450 pero el gateway confirmó 49999 paise:
	// gana el monto del gateway
	data := checkoutData()
	data.Pricing.GrandTotal = 450.00

	gw.On("CreateOrder", mock.Anything, int64(49999), "INR", mock.Anything).
		Return(&gateway.GatewayOrder{ID: "order_A2", Amount: 49999, Currency: "INR"}, nil)
	orders.On("Insert", mock.Anything, mock.MatchedBy(func(o *model.Order) bool {
		return o.Pricing.GrandTotal == 499.99
	})).Return(nil)
	pub.On("PublishOrderPlaced", mock.Anything, mock.Anything).Return(nil)

	order, _, err := svc.CreateGatewayOrder(context.Background(), 499.99, "INR", "", data)

	assert.NoError(t, err)
	assert.Equal(t, 499.99, order.Pricing.GrandTotal)
	orders.AssertExpectations(t)
}

func TestCreateGatewayOrder_MissingAmount(t *testing.T) {
	orders := new(MockOrderRepository)
	users := new(MockUserRepository)
	gw := new(MockGatewayClient)
	pub := new(MockPublisher)
	svc := newPaymentService(orders, users, gw, pub)

	_, _, err := svc.CreateGatewayOrder(context.Background(), 0, "INR", "", checkoutData())

	assert.ErrorIs(t, err, ErrAmountRequired)
	gw.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	orders.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestCreateGatewayOrder_GatewayFailure_NoLocalOrder(t *testing.T) {
	orders := new(MockOrderRepository)
	users := new(MockUserRepository)
	gw := new(MockGatewayClient)
	pub := new(MockPublisher)
	svc := newPaymentService(orders, users, gw, pub)

	gwErr := &gateway.GatewayError{Err: errors.New("timeout")}
	gw.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, gwErr)

	_, _, err := svc.CreateGatewayOrder(context.Background(), 100, "INR", "", checkoutData())

	var got *gateway.GatewayError
	assert.ErrorAs(t, err, &got)
	orders.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestCreateGatewayOrder_PersistFailureKeepsIntentID(t *testing.T) {
	orders := new(MockOrderRepository)
	users := new(MockUserRepository)
	gw := new(MockGatewayClient)
	pub := new(MockPublisher)
	svc := newPaymentService(orders, users, gw, pub)

	gw.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&gateway.GatewayOrder{ID: "order_A3", Amount: 10000, Currency: "INR"}, nil)
	orders.On("Insert", mock.Anything, mock.Anything).Return(errors.New("mongo caído"))

	_, _, err := svc.CreateGatewayOrder(context.Background(), 100, "INR", "", checkoutData())

	var persistErr *PersistError
	assert.ErrorAs(t, err, &persistErr)
	assert.Equal(t, "order_A3", persistErr.IntentID)
}

func paidOrder(orderID, paymentRef string) *model.Order {
	now := time.Now().UTC()
	return &model.Order{
		OrderID:       orderID,
		UserID:        "64f0c2a1b3d4e5f6a7b8c9d0",
		Status:        model.StatusProcessing,
		PaymentStatus: model.PaymentPaid,
		PaymentID:     paymentRef,
		PaidAt:        &now,
		Credited:      true,
		Pricing:       model.Pricing{GrandTotal: 499.99},
	}
}

func TestVerifyPayment_ValidSignature_CreditsOnce(t *testing.T) {
	orders := new(MockOrderRepository)
	users := new(MockUserRepository)
	gw := new(MockGatewayClient)
	pub := new(MockPublisher)
	svc := newPaymentService(orders, users, gw, pub)

	sig := signature.Sign("order_B1|pay_B1", testSecret)
	order := paidOrder("order_B1", "pay_B1")

	orders.On("MarkPaid", mock.Anything, "order_B1", "pay_B1").Return(order, nil)
	users.On("ApplyOrderCompletion", mock.Anything, order.UserID, 499.99).Return(nil)
	pub.On("PublishPaymentVerified", mock.Anything, order).Return(nil)

	got, err := svc.VerifyPayment(context.Background(), "order_B1", "pay_B1", sig)

	assert.NoError(t, err)
	assert.Equal(t, model.PaymentPaid, got.PaymentStatus)
	assert.Equal(t, "pay_B1", got.PaymentID)
	users.AssertNumberOfCalls(t, "ApplyOrderCompletion", 1)
}

func TestVerifyPayment_DuplicateWebhook_NoDoubleCredit(t *testing.T) {
	orders := new(MockOrderRepository)
	users := new(MockUserRepository)
	gw := new(MockGatewayClient)
	pub := new(MockPublisher)
	svc := newPaymentService(orders, users, gw, pub)

	sig := signature.Sign("order_B2|pay_B2", testSecret)
	order := paidOrder("order_B2", "pay_B2")

	// El update condicional ya no matchea: la orden salió de pending antes
	orders.On("MarkPaid", mock.Anything, "order_B2", "pay_B2").Return(nil, nil)
	orders.On("FindByOrderID", mock.Anything, "order_B2").Return(order, nil)

	got, err := svc.VerifyPayment(context.Background(), "order_B2", "pay_B2", sig)

	assert.NoError(t, err)
	assert.Equal(t, model.PaymentPaid, got.PaymentStatus)
	users.AssertNotCalled(t, "ApplyOrderCompletion", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyPayment_InvalidSignature_CancelsWithoutCredit(t *testing.T) {
	orders := new(MockOrderRepository)
	users := new(MockUserRepository)
	gw := new(MockGatewayClient)
	pub := new(MockPublisher)
	svc := newPaymentService(orders, users, gw, pub)

	orders.On("MarkFailed", mock.Anything, "order_B3").Return(nil)

	_, err := svc.VerifyPayment(context.Background(), "order_B3", "pay_B3", "firma-falsa")

	assert.ErrorIs(t, err, ErrVerificationFailed)
	orders.AssertCalled(t, "MarkFailed", mock.Anything, "order_B3")
	orders.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything)
	users.AssertNotCalled(t, "ApplyOrderCompletion", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyPayment_UnknownIntent_NotFoundNoWrites(t *testing.T) {
	orders := new(MockOrderRepository)
	users := new(MockUserRepository)
	gw := new(MockGatewayClient)
	pub := new(MockPublisher)
	svc := newPaymentService(orders, users, gw, pub)

	sig := signature.Sign("order_NADIE|pay_X", testSecret)

	orders.On("MarkPaid", mock.Anything, "order_NADIE", "pay_X").Return(nil, nil)
	orders.On("FindByOrderID", mock.Anything, "order_NADIE").Return(nil, repository.ErrNotFound)

	_, err := svc.VerifyPayment(context.Background(), "order_NADIE", "pay_X", sig)

	assert.ErrorIs(t, err, repository.ErrNotFound)
	users.AssertNotCalled(t, "ApplyOrderCompletion", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateCODOrder_NeverTouchesGateway(t *testing.T) {
	orders := new(MockOrderRepository)
	users := new(MockUserRepository)
	gw := new(MockGatewayClient)
	pub := new(MockPublisher)
	svc := newPaymentService(orders, users, gw, pub)

	orders.On("Insert", mock.Anything, mock.Anything).Return(nil)
	pub.On("PublishOrderPlaced", mock.Anything, mock.Anything).Return(nil)

	order, err := svc.CreateCODOrder(context.Background(), checkoutData())

	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(order.OrderID, "COD_"))
	assert.Equal(t, model.MethodCOD, order.PaymentMethod)
	assert.Equal(t, model.PaymentPending, order.PaymentStatus)
	gw.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	users.AssertNotCalled(t, "ApplyOrderCompletion", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateCODOrder_PricingMismatch(t *testing.T) {
	orders := new(MockOrderRepository)
	users := new(MockUserRepository)
	gw := new(MockGatewayClient)
	pub := new(MockPublisher)
	svc := newPaymentService(orders, users, gw, pub)

	data := checkoutData()
	data.Pricing.GrandTotal = 600.00 // no cierra con subtotal+fees

	_, err := svc.CreateCODOrder(context.Background(), data)

	assert.ErrorIs(t, err, ErrPricingMismatch)
	orders.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestCreateCODOrder_UniqueReferences(t *testing.T) {
	orders := new(MockOrderRepository)
	users := new(MockUserRepository)
	gw := new(MockGatewayClient)
	pub := new(MockPublisher)
	svc := newPaymentService(orders, users, gw, pub)

	orders.On("Insert", mock.Anything, mock.Anything).Return(nil)
	pub.On("PublishOrderPlaced", mock.Anything, mock.Anything).Return(nil)

	a, err := svc.CreateCODOrder(context.Background(), checkoutData())
	assert.NoError(t, err)
	b, err := svc.CreateCODOrder(context.Background(), checkoutData())
	assert.NoError(t, err)

	assert.NotEqual(t, a.OrderID, b.OrderID)
}
