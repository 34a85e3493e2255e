package controller

import (
	"errors"
	"net/http"

	"ecommerce-api/internal/dto"
	"ecommerce-api/internal/gateway"
	"ecommerce-api/internal/repository"
	"ecommerce-api/internal/service"

	"github.com/gin-gonic/gin"
)

type PaymentController struct {
	Service *service.PaymentService
}

func NewPaymentController(s *service.PaymentService) *PaymentController {
	return &PaymentController{Service: s}
}

// POST /api/payment/create-order — No requiere token, lo llama el checkout
func (ctl *PaymentController) CreateOrder(c *gin.Context) {
	var req dto.CreatePaymentOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	order, gwOrder, err := ctl.Service.CreateGatewayOrder(
		c.Request.Context(),
		req.Amount,
		req.Currency,
		req.Receipt,
		req.OrderData,
	)
	if err != nil {
		var gwErr *gateway.GatewayError
		var persistErr *service.PersistError

		switch {
		case errors.Is(err, service.ErrAmountRequired):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Amount is required"})
		case errors.As(err, &persistErr):
			// El intent remoto existe pero la orden local no: devolvemos el
			// id del intent para poder reconciliar a mano.
			c.JSON(http.StatusInternalServerError, gin.H{
				"success":  false,
				"message":  "Failed to save order",
				"intentId": persistErr.IntentID,
			})
		case errors.As(err, &gwErr):
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to create payment order"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to create payment order"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.CreatePaymentOrderResponse{
		Success:      true,
		IntentID:     gwOrder.ID,
		Amount:       gwOrder.Amount,
		Currency:     gwOrder.Currency,
		LocalOrderID: order.ID.Hex(),
	})
}

// POST /api/payment/verify
func (ctl *PaymentController) VerifyPayment(c *gin.Context) {
	var req dto.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"verified": false, "error": err.Error()})
		return
	}

	order, err := ctl.Service.VerifyPayment(
		c.Request.Context(),
		req.IntentID,
		req.PaymentRef,
		req.Signature,
	)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrVerificationFailed):
			// Resultado de negocio, no falla de transporte: el caller no
			// debe reintentar como si el request hubiera fallado
			c.JSON(http.StatusBadRequest, gin.H{"verified": false})
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"verified": false, "error": "order not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"verified": false, "error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"verified": true,
		"order": dto.OrderSummary{
			ID:        order.ID.Hex(),
			OrderID:   order.OrderID,
			Status:    order.Status,
			PaymentID: order.PaymentID,
		},
	})
}

// POST /api/orders/cod
func (ctl *PaymentController) CreateCODOrder(c *gin.Context) {
	var req dto.CreateCODOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	order, err := ctl.Service.CreateCODOrder(c.Request.Context(), req.OrderData)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPricingMismatch), errors.Is(err, service.ErrAmountRequired):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to create order"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"order": dto.OrderSummary{
			ID:      order.ID.Hex(),
			OrderID: order.OrderID,
			Status:  order.Status,
		},
	})
}

// GET /api/orders/by-reference/:orderId
func (ctl *PaymentController) GetOrderByReference(c *gin.Context) {
	order, err := ctl.Service.GetOrderByReference(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, order)
}
