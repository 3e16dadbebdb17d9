package model

import (
	"time"

	"github.com/google/uuid"
)

// Warehouse is a physical stock location owned by one organization.
type Warehouse struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID string     `json:"organization_id"`
	Name           string     `json:"name"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
}

// InventoryItem is the stock level for one SKU in one warehouse.
// Available stock is derived: quantity - reserved_quantity.
// Invariant: 0 <= reserved_quantity <= quantity. Rows are never hard-deleted.
type InventoryItem struct {
	ID               uuid.UUID `json:"id"`
	OrganizationID   string    `json:"organization_id"`
	WarehouseID      uuid.UUID `json:"warehouse_id"`
	SKU              string    `json:"sku"`
	Quantity         int       `json:"quantity"`
	ReservedQuantity int       `json:"reserved_quantity"`
	IsLocked         bool      `json:"is_locked"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (i InventoryItem) Available() int {
	return i.Quantity - i.ReservedQuantity
}

// Reservation promises stock to an order. It consumes reserved_quantity on
// the backing inventory row until released; once ReleasedAt is set the row is
// immutable.
type Reservation struct {
	ID               uuid.UUID  `json:"id"`
	OrganizationID   string     `json:"organization_id"`
	OrderID          uuid.UUID  `json:"order_id"`
	SKU              string     `json:"sku"`
	WarehouseID      uuid.UUID  `json:"warehouse_id"`
	QuantityReserved int        `json:"quantity_reserved"`
	ReleasedAt       *time.Time `json:"released_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func (r Reservation) Active() bool {
	return r.ReleasedAt == nil
}

// ReleaseMode distinguishes how a reservation leaves the ledger: shipment
// decrements physical stock, cancellation returns it to available.
type ReleaseMode string

const (
	ReleaseShipment ReleaseMode = "SHIPMENT"
	ReleaseCancel   ReleaseMode = "CANCEL"
)

// Audit actions recorded in the append-only inventory audit log.
const (
	AuditActionMovement   = "MOVEMENT"
	AuditActionTransfer   = "TRANSFER"
	AuditActionAdjustment = "ADJUSTMENT"
	AuditActionCycleCount = "CYCLE_COUNT"
)

// AuditLogEntry is append-only; writes are best-effort and never fail the
// primary operation.
type AuditLogEntry struct {
	ID               uuid.UUID              `json:"id"`
	OrganizationID   string                 `json:"organization_id"`
	WarehouseID      uuid.UUID              `json:"warehouse_id"`
	UserID           uuid.UUID              `json:"user_id"`
	SKU              string                 `json:"sku"`
	Action           string                 `json:"action"`
	PreviousQuantity *int                   `json:"previous_quantity,omitempty"`
	NewQuantity      *int                   `json:"new_quantity,omitempty"`
	Variance         *int                   `json:"variance,omitempty"`
	VariancePercent  *float64               `json:"variance_percent,omitempty"`
	ReasonCode       string                 `json:"reason_code"`
	Notes            string                 `json:"notes,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
}
