package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/mahmoudtohamy2025/rappit-core/internal/domains/inventory/model"
	"github.com/mahmoudtohamy2025/rappit-core/internal/shared/tenant"
)

type ServiceInterface interface {
	// Movements
	CreateMovement(ctx context.Context, tc tenant.Context, req model.CreateMovementRequest) ([]model.StockMovement, error)
	ExecuteMovement(ctx context.Context, tc tenant.Context, id uuid.UUID) (*model.StockMovement, error)
	CancelMovement(ctx context.Context, tc tenant.Context, id uuid.UUID, reason string) (*model.StockMovement, error)
	GetMovement(ctx context.Context, tc tenant.Context, id uuid.UUID) (*model.StockMovement, error)
	ListMovements(ctx context.Context, tc tenant.Context, req model.ListMovementsRequest) (*model.ListMovementsResponse, error)

	// Absolute / delta updates (also the cycle-count completion path)
	UpdateStock(ctx context.Context, tc tenant.Context, req model.StockUpdateRequest) (*model.StockUpdateResult, error)
	BulkUpdateStock(ctx context.Context, tc tenant.Context, req model.BulkUpdateRequest) (*model.BulkUpdateResponse, error)

	// Reservation ledger
	ReserveStock(ctx context.Context, tc tenant.Context, req model.ReserveStockRequest) (*model.Reservation, error)
	ReleaseReservation(ctx context.Context, tc tenant.Context, id uuid.UUID, mode model.ReleaseMode) (*model.Reservation, error)

	// Audit
	GetAuditTrail(ctx context.Context, tc tenant.Context, req model.ListAuditRequest) (*model.ListAuditResponse, error)
}
