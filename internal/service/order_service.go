package service

import (
	"context"
	"errors"
	"log"

	"ecommerce-api/internal/model"
)

// Errores de negocio del camino de estados
var (
	ErrInvalidTransition = errors.New("transición de estado inválida")
	ErrFinalState        = errors.New("no se puede cambiar el estado de una orden en estado final")
)

type OrderService struct {
	orders OrderRepository
	users  UserRepository
}

func NewOrderService(orders OrderRepository, users UserRepository) *OrderService {
	return &OrderService{orders: orders, users: users}
}

// Estados válidos (por nombre). No hay catálogo en BD.
var validStates = map[string]bool{
	model.StatusPending:    true,
	model.StatusProcessing: true,
	model.StatusShipped:    true,
	model.StatusDelivered:  true,
	model.StatusCancelled:  true,
}

func isValidState(s string) bool {
	return validStates[s]
}

// Transiciones permitidas para el camino admin (hardcodeadas por nombre)
var adminTransitions = map[string][]string{
	model.StatusPending:    {model.StatusProcessing, model.StatusCancelled},
	model.StatusProcessing: {model.StatusShipped, model.StatusCancelled},
	model.StatusShipped:    {model.StatusDelivered},
}

// Estados finales
var finalStates = map[string]bool{
	model.StatusDelivered: true,
	model.StatusCancelled: true,
}

// UpdateStatus valida y realiza la transición entre estados según las reglas
// de negocio. Solo lo invoca el camino admin.
//
// Caso especial COD: al marcar Delivered se acreditan los totales del usuario,
// protegido por el mismo flag credited por orden que usa el camino gateway,
// así una doble invocación no duplica la acreditación.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, newStatus string) error {
	ord, err := s.orders.FindByOrderID(ctx, orderID)
	if err != nil {
		return err
	}

	current := ord.Status

	// Si el estado nuevo es el mismo que ya está, no hacemos nada
	if current == newStatus {
		return nil
	}
	// Si el estado actual es final, no se puede cambiar
	if finalStates[current] {
		return ErrFinalState
	}
	// Si el nuevo estado no es válido, error
	if !isValidState(newStatus) {
		return ErrInvalidTransition
	}

	if !contains(adminTransitions[current], newStatus) {
		return ErrInvalidTransition
	}

	if err := s.orders.UpdateStatus(ctx, orderID, newStatus); err != nil {
		return err
	}

	// Entrega de una orden COD: único punto donde su pago queda confirmado
	if newStatus == model.StatusDelivered && ord.PaymentMethod == model.MethodCOD {
		won, err := s.orders.MarkCredited(ctx, orderID)
		if err != nil {
			return err
		}
		if won {
			if err := s.users.ApplyOrderCompletion(ctx, ord.UserID, ord.Pricing.GrandTotal); err != nil {
				log.Println("Error acreditando totales del usuario:", err)
			}
		}
	}

	return nil
}

func (s *OrderService) GetByUserID(ctx context.Context, userID string) ([]*model.Order, error) {
	return s.orders.FindByUserID(ctx, userID)
}

// Delete elimina la orden sin revertir totales ya acreditados.
// La reconciliación queda a cargo de RecomputeUserStats.
func (s *OrderService) Delete(ctx context.Context, orderID string) error {
	return s.orders.Delete(ctx, orderID)
}

// RecomputeUserStats reconstruye los totales del usuario desde sus órdenes
// acreditadas. Camino de auditoría, no se usa en requests normales.
func (s *OrderService) RecomputeUserStats(ctx context.Context, userID string) (int, float64, error) {
	return s.users.RecomputeAggregates(ctx, userID)
}

func contains(arr []string, s string) bool {
	for _, v := range arr {
		if v == s {
			return true
		}
	}
	return false
}
