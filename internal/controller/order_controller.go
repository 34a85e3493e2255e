package controller

import (
	"errors"
	"net/http"

	"ecommerce-api/internal/dto"
	"ecommerce-api/internal/repository"
	"ecommerce-api/internal/service"

	"github.com/gin-gonic/gin"
)

type OrderController struct {
	Service *service.OrderService
}

func NewOrderController(s *service.OrderService) *OrderController {
	return &OrderController{Service: s}
}

// GET /api/orders/mine - user (middleware debe poner userID)
func (ctl *OrderController) GetMyOrders(c *gin.Context) {
	userID := c.GetString("userID")
	orders, err := ctl.Service.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, orders)
}

// PATCH /api/admin/orders/:orderId/status - admin only (middleware AdminOnly)
func (ctl *OrderController) UpdateStatus(c *gin.Context) {
	orderID := c.Param("orderId")

	var req dto.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := ctl.Service.UpdateStatus(c.Request.Context(), orderID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		case errors.Is(err, service.ErrInvalidTransition), errors.Is(err, service.ErrFinalState):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "status updated"})
}

// DELETE /api/admin/orders/:orderId - admin only.
// Terminal e incondicional: no revierte totales ya acreditados.
func (ctl *OrderController) DeleteOrder(c *gin.Context) {
	err := ctl.Service.Delete(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "order deleted"})
}

// POST /api/admin/users/:userId/recompute-stats - admin only
func (ctl *OrderController) RecomputeUserStats(c *gin.Context) {
	totalOrders, totalSpent, err := ctl.Service.RecomputeUserStats(c.Request.Context(), c.Param("userId"))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"totalOrders": totalOrders,
		"totalSpent":  totalSpent,
	})
}
