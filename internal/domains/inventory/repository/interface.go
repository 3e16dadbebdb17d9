package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/mahmoudtohamy2025/rappit-core/internal/domains/inventory/model"
)

// QuantityUpdate is one absolute quantity write inside a bulk operation.
type QuantityUpdate struct {
	WarehouseID uuid.UUID
	SKU         string
	NewQuantity int
}

// AppliedUpdate reports the before/after of an applied quantity write.
type AppliedUpdate struct {
	WarehouseID      uuid.UUID
	SKU              string
	PreviousQuantity int
	NewQuantity      int
}

// RepositoryInterface is the storage contract for the inventory ledger.
// Multi-statement operations (ExecuteMovement, ApplyQuantitiesAtomic) are
// atomic inside the implementation; every query filters by organization id.
type RepositoryInterface interface {
	// Warehouses
	GetWarehouse(ctx context.Context, orgID string, id uuid.UUID) (*model.Warehouse, error)

	// Inventory rows
	GetInventoryItem(ctx context.Context, orgID string, warehouseID uuid.UUID, sku string) (*model.InventoryItem, error)
	ListInventoryByWarehouse(ctx context.Context, orgID string, warehouseID uuid.UUID) ([]model.InventoryItem, error)
	GetInventoryItems(ctx context.Context, orgID string, warehouseID uuid.UUID, skus []string) ([]model.InventoryItem, error)
	SetItemsLocked(ctx context.Context, orgID string, warehouseID uuid.UUID, skus []string, locked bool) error

	// Movements
	CreateMovement(ctx context.Context, m *model.StockMovement) error
	CreateMovementPair(ctx context.Context, out, in *model.StockMovement) error
	GetMovement(ctx context.Context, orgID string, id uuid.UUID) (*model.StockMovement, error)
	ListMovements(ctx context.Context, orgID string, req model.ListMovementsRequest) ([]model.StockMovement, int, model.MovementStats, error)

	// CancelMovement transitions pending -> cancelled; any other current
	// status returns ErrMovementNotPending.
	CancelMovement(ctx context.Context, orgID string, id uuid.UUID, reason string) error

	// MarkMovementFailed is the best-effort secondary write after a failed
	// execution transaction.
	MarkMovementFailed(ctx context.Context, orgID string, id uuid.UUID) error

	// ExecuteMovement runs the execute transaction: row-lock the inventory
	// row (creating it for inbound first receipts), re-validate available
	// stock for outbound, apply the signed quantity, and mark the movement
	// completed. Returns the completed movement, the updated row, and the
	// pre-mutation quantity.
	ExecuteMovement(ctx context.Context, orgID string, id uuid.UUID, executedBy uuid.UUID) (*model.StockMovement, *model.InventoryItem, int, error)

	// ApplyQuantity sets an absolute quantity under a row lock, refusing
	// writes that would drop quantity below reserved_quantity.
	ApplyQuantity(ctx context.Context, orgID string, warehouseID uuid.UUID, sku string, newQuantity int) (*AppliedUpdate, error)

	// ApplyQuantitiesAtomic applies all updates in one transaction; the
	// first failure rolls back everything.
	ApplyQuantitiesAtomic(ctx context.Context, orgID string, updates []QuantityUpdate) ([]AppliedUpdate, error)

	// Reservations
	GetReservation(ctx context.Context, orgID string, id uuid.UUID) (*model.Reservation, error)
	ListActiveReservations(ctx context.Context, orgID string, warehouseID uuid.UUID, sku string) ([]model.Reservation, error)

	// CreateReservation consumes reserved_quantity on the backing row in one
	// transaction; insufficient available stock rejects the insert.
	CreateReservation(ctx context.Context, r *model.Reservation) error

	// ReleaseReservation closes an active reservation. Shipment releases
	// decrement quantity and reserved together; cancellation returns the
	// stock to available by decrementing reserved only. Released
	// reservations are immutable.
	ReleaseReservation(ctx context.Context, orgID string, id uuid.UUID, mode model.ReleaseMode) (*model.Reservation, error)

	// Audit (append-only)
	AppendAudit(ctx context.Context, entry *model.AuditLogEntry) error
	ListAudit(ctx context.Context, orgID string, req model.ListAuditRequest) ([]model.AuditLogEntry, int, model.AuditStats, error)
}
