package model

import (
	"time"

	"github.com/google/uuid"
)

type MovementType string

const (
	MovementReceive          MovementType = "RECEIVE"
	MovementShip             MovementType = "SHIP"
	MovementReturn           MovementType = "RETURN"
	MovementTransferOut      MovementType = "TRANSFER_OUT"
	MovementTransferIn       MovementType = "TRANSFER_IN"
	MovementAdjustmentAdd    MovementType = "ADJUSTMENT_ADD"
	MovementAdjustmentRemove MovementType = "ADJUSTMENT_REMOVE"
	MovementDamage           MovementType = "DAMAGE"
)

type MovementDirection string

const (
	DirectionInbound  MovementDirection = "inbound"
	DirectionOutbound MovementDirection = "outbound"
)

type MovementStatus string

const (
	MovementStatusPending   MovementStatus = "pending"
	MovementStatusCompleted MovementStatus = "completed"
	MovementStatusCancelled MovementStatus = "cancelled"
	MovementStatusFailed    MovementStatus = "failed"
)

// MaxMovementQuantity bounds a single movement.
const MaxMovementQuantity = 10_000_000

var movementDirections = map[MovementType]MovementDirection{
	MovementReceive:          DirectionInbound,
	MovementShip:             DirectionOutbound,
	MovementReturn:           DirectionInbound,
	MovementTransferOut:      DirectionOutbound,
	MovementTransferIn:       DirectionInbound,
	MovementAdjustmentAdd:    DirectionInbound,
	MovementAdjustmentRemove: DirectionOutbound,
	MovementDamage:           DirectionOutbound,
}

// DirectionFor derives the stock direction from the movement type.
func DirectionFor(t MovementType) (MovementDirection, bool) {
	d, ok := movementDirections[t]
	return d, ok
}

// SignedQuantity returns the quantity with the direction's sign applied.
func (m *StockMovement) SignedQuantity() int {
	if m.Direction == DirectionOutbound {
		return -m.Quantity
	}
	return m.Quantity
}

// IsTerminal reports whether the status admits no further transitions.
func (s MovementStatus) IsTerminal() bool {
	return s == MovementStatusCompleted || s == MovementStatusCancelled
}

// StockMovement is an atomic, audited change to stock in a single warehouse.
// Lifecycle: pending -> completed | cancelled | failed.
type StockMovement struct {
	ID               uuid.UUID         `json:"id"`
	OrganizationID   string            `json:"organization_id"`
	WarehouseID      uuid.UUID         `json:"warehouse_id"`
	SKU              string            `json:"sku"`
	Quantity         int               `json:"quantity"`
	Type             MovementType      `json:"type"`
	Direction        MovementDirection `json:"direction"`
	Status           MovementStatus    `json:"status"`
	ReferenceType    *string           `json:"reference_type,omitempty"`
	ReferenceID      *string           `json:"reference_id,omitempty"`
	Reason           string            `json:"reason"`
	LinkedMovementID *uuid.UUID        `json:"linked_movement_id,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	ExecutedAt       *time.Time        `json:"executed_at,omitempty"`
	ExecutedBy       *uuid.UUID        `json:"executed_by,omitempty"`
	CancelReason     *string           `json:"cancel_reason,omitempty"`
}
