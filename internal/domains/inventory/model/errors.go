package model

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrWarehouseNotFound is returned when a warehouse is missing or belongs
	// to another organization. Cross-tenant lookups are indistinguishable
	// from missing rows.
	ErrWarehouseNotFound = errors.New("warehouse not found")

	// ErrInventoryNotFound is returned when no stock row exists for the
	// warehouse/SKU pair.
	ErrInventoryNotFound = errors.New("inventory not found")

	// ErrMovementNotFound is returned when a movement is missing in tenant.
	ErrMovementNotFound = errors.New("movement not found")

	// ErrReservationNotFound is returned for missing or cross-tenant reservations.
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrInvalidQuantity is returned when a movement quantity is out of range.
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 10000000")

	// ErrReasonRequired is returned when the reason is empty after sanitization.
	ErrReasonRequired = errors.New("reason is required")

	// ErrInvalidMovementType is returned for an unknown movement type.
	ErrInvalidMovementType = errors.New("invalid movement type")

	// ErrInsufficientStock is returned when an outbound movement exceeds
	// available stock (quantity - reserved_quantity).
	ErrInsufficientStock = errors.New("INSUFFICIENT_STOCK")

	// ErrReservedExceedsQuantity is returned when an update would leave
	// quantity below reserved_quantity.
	ErrReservedExceedsQuantity = errors.New("quantity cannot drop below reserved quantity")

	// ErrMovementNotPending is returned when executing or cancelling a
	// movement that already left the pending state.
	ErrMovementNotPending = errors.New("movement is not pending")

	// ErrMovementTerminal is returned when mutating a completed or cancelled movement.
	ErrMovementTerminal = errors.New("movement is in a terminal state")

	// ErrSameWarehouse is returned when a transfer targets its own source.
	ErrSameWarehouse = errors.New("source and target warehouse must differ")

	// ErrItemLocked is returned when a movement touches a row locked by a
	// cycle count session.
	ErrItemLocked = errors.New("inventory item is locked by a cycle count session")

	// ErrReservationReleased is returned when mutating a reservation that has
	// already been released.
	ErrReservationReleased = errors.New("reservation has been released")

	// ErrMissingTenant is returned when no tenant context accompanies the call.
	ErrMissingTenant = errors.New("missing tenant context")
)

func NewInsufficientStockError(requested, available int) error {
	return fmt.Errorf("%w: requested=%d, available=%d", ErrInsufficientStock, requested, available)
}

func NewMovementNotFoundError(id uuid.UUID) error {
	return fmt.Errorf("%w: id=%s", ErrMovementNotFound, id)
}

func NewInventoryNotFoundError(warehouseID uuid.UUID, sku string) error {
	return fmt.Errorf("%w: warehouse=%s, sku=%s", ErrInventoryNotFound, warehouseID, sku)
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrWarehouseNotFound) ||
		errors.Is(err, ErrInventoryNotFound) ||
		errors.Is(err, ErrMovementNotFound) ||
		errors.Is(err, ErrReservationNotFound)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrReasonRequired) ||
		errors.Is(err, ErrInvalidMovementType) ||
		errors.Is(err, ErrSameWarehouse) ||
		errors.Is(err, ErrMissingTenant)
}

func IsStateError(err error) bool {
	return errors.Is(err, ErrMovementNotPending) ||
		errors.Is(err, ErrMovementTerminal) ||
		errors.Is(err, ErrItemLocked) ||
		errors.Is(err, ErrReservationReleased)
}
