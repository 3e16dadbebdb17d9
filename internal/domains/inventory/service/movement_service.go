package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mahmoudtohamy2025/rappit-core/internal/domains/inventory/model"
	"github.com/mahmoudtohamy2025/rappit-core/internal/domains/inventory/repository"
	"github.com/mahmoudtohamy2025/rappit-core/internal/shared/events"
	"github.com/mahmoudtohamy2025/rappit-core/internal/shared/tenant"
	"github.com/mahmoudtohamy2025/rappit-core/pkg/logger"
)

type InventoryService struct {
	repo       repository.RepositoryInterface
	publisher  events.Publisher
	thresholds model.VarianceThresholds
}

func NewService(repo repository.RepositoryInterface, publisher events.Publisher) ServiceInterface {
	return &InventoryService{
		repo:       repo,
		publisher:  publisher,
		thresholds: model.DefaultVarianceThresholds(),
	}
}

// NewServiceWithThresholds builds a service that uses the given variance
// thresholds instead of DefaultVarianceThresholds.
func NewServiceWithThresholds(repo repository.RepositoryInterface, publisher events.Publisher, t model.VarianceThresholds) ServiceInterface {
	return &InventoryService{repo: repo, publisher: publisher, thresholds: t}
}

// ========================================
// MOVEMENT CREATION
// ========================================

// CreateMovement validates and persists a pending movement. TRANSFER_OUT with
// a target warehouse produces a linked TRANSFER_OUT/TRANSFER_IN pair.
func (s *InventoryService) CreateMovement(ctx context.Context, tc tenant.Context, req model.CreateMovementRequest) ([]model.StockMovement, error) {
	if !tc.Valid() {
		return nil, model.ErrMissingTenant
	}

	if req.Quantity < 1 || req.Quantity > model.MaxMovementQuantity {
		return nil, model.ErrInvalidQuantity
	}

	reason := model.SanitizeReason(req.Reason)
	if reason == "" {
		return nil, model.ErrReasonRequired
	}

	direction, ok := model.DirectionFor(req.Type)
	if !ok {
		return nil, model.ErrInvalidMovementType
	}

	if _, err := s.repo.GetWarehouse(ctx, tc.OrganizationID, req.WarehouseID); err != nil {
		return nil, err
	}

	if direction == model.DirectionOutbound {
		item, err := s.repo.GetInventoryItem(ctx, tc.OrganizationID, req.WarehouseID, req.SKU)
		if err != nil {
			return nil, err
		}
		if available := item.Available(); req.Quantity > available {
			return nil, model.NewInsufficientStockError(req.Quantity, available)
		}
	}

	if req.Type == model.MovementTransferOut && req.TargetWarehouseID != nil {
		return s.createTransferPair(ctx, tc, req, reason)
	}

	movement := &model.StockMovement{
		ID:             uuid.New(),
		OrganizationID: tc.OrganizationID,
		WarehouseID:    req.WarehouseID,
		SKU:            req.SKU,
		Quantity:       req.Quantity,
		Type:           req.Type,
		Direction:      direction,
		Status:         model.MovementStatusPending,
		ReferenceType:  req.ReferenceType,
		ReferenceID:    req.ReferenceID,
		Reason:         reason,
	}

	if err := s.repo.CreateMovement(ctx, movement); err != nil {
		return nil, fmt.Errorf("failed to create movement: %w", err)
	}

	return []model.StockMovement{*movement}, nil
}

func (s *InventoryService) createTransferPair(ctx context.Context, tc tenant.Context, req model.CreateMovementRequest, reason string) ([]model.StockMovement, error) {
	target := *req.TargetWarehouseID
	if target == req.WarehouseID {
		return nil, model.ErrSameWarehouse
	}

	if _, err := s.repo.GetWarehouse(ctx, tc.OrganizationID, target); err != nil {
		return nil, err
	}

	out := &model.StockMovement{
		ID:             uuid.New(),
		OrganizationID: tc.OrganizationID,
		WarehouseID:    req.WarehouseID,
		SKU:            req.SKU,
		Quantity:       req.Quantity,
		Type:           model.MovementTransferOut,
		Direction:      model.DirectionOutbound,
		Status:         model.MovementStatusPending,
		ReferenceType:  req.ReferenceType,
		ReferenceID:    req.ReferenceID,
		Reason:         reason,
	}
	in := &model.StockMovement{
		ID:             uuid.New(),
		OrganizationID: tc.OrganizationID,
		WarehouseID:    target,
		SKU:            req.SKU,
		Quantity:       req.Quantity,
		Type:           model.MovementTransferIn,
		Direction:      model.DirectionInbound,
		Status:         model.MovementStatusPending,
		ReferenceType:  req.ReferenceType,
		ReferenceID:    req.ReferenceID,
		Reason:         reason,
	}

	if err := s.repo.CreateMovementPair(ctx, out, in); err != nil {
		return nil, fmt.Errorf("failed to create transfer movements: %w", err)
	}

	return []model.StockMovement{*out, *in}, nil
}

// ========================================
// MOVEMENT EXECUTION
// ========================================

// ExecuteMovement applies a pending movement. The repository runs the
// mutation in one transaction; a storage failure marks the movement FAILED
// in a best-effort secondary write. Validation refusals (insufficient stock,
// locked row, wrong status) leave the movement pending so the caller can
// retry after the state changes.
func (s *InventoryService) ExecuteMovement(ctx context.Context, tc tenant.Context, id uuid.UUID) (*model.StockMovement, error) {
	if !tc.Valid() {
		return nil, model.ErrMissingTenant
	}

	movement, item, previous, err := s.repo.ExecuteMovement(ctx, tc.OrganizationID, id, tc.UserID)
	if err != nil {
		if isExecutionRefusal(err) {
			return nil, err
		}
		// Transaction failed mid-flight: record the failure, surface the error.
		if markErr := s.repo.MarkMovementFailed(ctx, tc.OrganizationID, id); markErr != nil {
			logger.Error("failed to mark movement failed", markErr)
		}
		return nil, fmt.Errorf("failed to execute movement: %w", err)
	}

	s.writeAudit(ctx, &model.AuditLogEntry{
		OrganizationID:   tc.OrganizationID,
		WarehouseID:      movement.WarehouseID,
		UserID:           tc.UserID,
		SKU:              movement.SKU,
		Action:           model.AuditActionMovement,
		PreviousQuantity: &previous,
		NewQuantity:      &item.Quantity,
		ReasonCode:       string(movement.Type),
		Notes:            movement.Reason,
		Metadata: map[string]interface{}{
			"movement_id": movement.ID.String(),
			"direction":   string(movement.Direction),
		},
	})

	s.publisher.Publish(events.TypeMovementCompleted, events.MovementCompletedPayload{
		OrganizationID: tc.OrganizationID,
		MovementID:     movement.ID.String(),
		WarehouseID:    movement.WarehouseID.String(),
		SKU:            movement.SKU,
		Quantity:       movement.Quantity,
		Type:           string(movement.Type),
	}, events.QueueInventory)

	return movement, nil
}

func isExecutionRefusal(err error) bool {
	return errors.Is(err, model.ErrMovementNotPending) ||
		errors.Is(err, model.ErrInsufficientStock) ||
		errors.Is(err, model.ErrReservedExceedsQuantity) ||
		errors.Is(err, model.ErrItemLocked) ||
		model.IsNotFoundError(err)
}

// CancelMovement moves pending -> cancelled with a non-empty reason.
func (s *InventoryService) CancelMovement(ctx context.Context, tc tenant.Context, id uuid.UUID, reason string) (*model.StockMovement, error) {
	if !tc.Valid() {
		return nil, model.ErrMissingTenant
	}

	reason = model.SanitizeReason(reason)
	if reason == "" {
		return nil, model.ErrReasonRequired
	}

	if err := s.repo.CancelMovement(ctx, tc.OrganizationID, id, reason); err != nil {
		return nil, err
	}

	return s.repo.GetMovement(ctx, tc.OrganizationID, id)
}

func (s *InventoryService) GetMovement(ctx context.Context, tc tenant.Context, id uuid.UUID) (*model.StockMovement, error) {
	if !tc.Valid() {
		return nil, model.ErrMissingTenant
	}
	return s.repo.GetMovement(ctx, tc.OrganizationID, id)
}

func (s *InventoryService) ListMovements(ctx context.Context, tc tenant.Context, req model.ListMovementsRequest) (*model.ListMovementsResponse, error) {
	if !tc.Valid() {
		return nil, model.ErrMissingTenant
	}

	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 || req.PageSize > 100 {
		req.PageSize = 20
	}

	items, total, stats, err := s.repo.ListMovements(ctx, tc.OrganizationID, req)
	if err != nil {
		return nil, fmt.Errorf("failed to list movements: %w", err)
	}

	totalPages := (total + req.PageSize - 1) / req.PageSize
	if totalPages == 0 {
		totalPages = 1
	}

	return &model.ListMovementsResponse{
		Items:      items,
		Stats:      stats,
		TotalItems: total,
		TotalPages: totalPages,
		Page:       req.Page,
		PageSize:   req.PageSize,
	}, nil
}

// ========================================
// ABSOLUTE / ADJUSTMENT UPDATES
// ========================================

// UpdateStock computes the target quantity (set or delta), tags the variance,
// and applies the write unless the variance exceeds the auto-approve
// threshold, in which case the result is returned unapplied with
// requires_approval set.
func (s *InventoryService) UpdateStock(ctx context.Context, tc tenant.Context, req model.StockUpdateRequest) (*model.StockUpdateResult, error) {
	if !tc.Valid() {
		return nil, model.ErrMissingTenant
	}

	if _, err := s.repo.GetWarehouse(ctx, tc.OrganizationID, req.WarehouseID); err != nil {
		return nil, err
	}

	current := 0
	if item, err := s.repo.GetInventoryItem(ctx, tc.OrganizationID, req.WarehouseID, req.SKU); err == nil {
		current = item.Quantity
	} else if !errors.Is(err, model.ErrInventoryNotFound) {
		return nil, err
	}

	newQuantity := req.Quantity
	if req.Mode == model.UpdateModeAdjustment {
		newQuantity = current + req.Quantity
	}
	if newQuantity < 0 {
		return nil, model.ErrInvalidQuantity
	}

	variance, percent := model.ComputeVariance(current, newQuantity)
	result := &model.StockUpdateResult{
		WarehouseID:      req.WarehouseID,
		SKU:              req.SKU,
		PreviousQuantity: current,
		NewQuantity:      newQuantity,
		Variance:         variance,
		VariancePercent:  percent,
		VarianceLevel:    s.thresholds.LevelFor(percent),
	}

	if s.thresholds.RequiresApproval(percent) {
		result.RequiresApproval = true
		return result, nil
	}

	applied, err := s.repo.ApplyQuantity(ctx, tc.OrganizationID, req.WarehouseID, req.SKU, newQuantity)
	if err != nil {
		return nil, err
	}
	result.PreviousQuantity = applied.PreviousQuantity
	result.Applied = true

	s.writeAudit(ctx, &model.AuditLogEntry{
		OrganizationID:   tc.OrganizationID,
		WarehouseID:      req.WarehouseID,
		UserID:           tc.UserID,
		SKU:              req.SKU,
		Action:           auditActionFor(req.ReasonCode),
		PreviousQuantity: &applied.PreviousQuantity,
		NewQuantity:      &applied.NewQuantity,
		Variance:         &variance,
		VariancePercent:  &percent,
		ReasonCode:       req.ReasonCode,
		Notes:            req.Notes,
	})

	return result, nil
}

func auditActionFor(reasonCode string) string {
	if reasonCode == model.AuditActionCycleCount {
		return model.AuditActionCycleCount
	}
	return model.AuditActionAdjustment
}

// BulkUpdateStock applies updates atomically (one transaction, first failure
// rolls back) or best-effort (continue past failures, per-item results).
func (s *InventoryService) BulkUpdateStock(ctx context.Context, tc tenant.Context, req model.BulkUpdateRequest) (*model.BulkUpdateResponse, error) {
	if !tc.Valid() {
		return nil, model.ErrMissingTenant
	}
	if len(req.Items) == 0 {
		return nil, model.ErrInvalidQuantity
	}

	resp := &model.BulkUpdateResponse{Mode: req.Mode}

	if req.Mode == model.BulkAtomic {
		updates := make([]repository.QuantityUpdate, 0, len(req.Items))
		for _, item := range req.Items {
			if item.Mode == model.UpdateModeAdjustment {
				return nil, fmt.Errorf("atomic bulk updates accept absolute quantities only")
			}
			updates = append(updates, repository.QuantityUpdate{
				WarehouseID: item.WarehouseID,
				SKU:         item.SKU,
				NewQuantity: item.Quantity,
			})
		}

		applied, err := s.repo.ApplyQuantitiesAtomic(ctx, tc.OrganizationID, updates)
		if err != nil {
			return nil, err
		}

		for i, a := range applied {
			variance, percent := model.ComputeVariance(a.PreviousQuantity, a.NewQuantity)
			resp.Results = append(resp.Results, model.StockUpdateResult{
				WarehouseID:      a.WarehouseID,
				SKU:              a.SKU,
				PreviousQuantity: a.PreviousQuantity,
				NewQuantity:      a.NewQuantity,
				Variance:         variance,
				VariancePercent:  percent,
				VarianceLevel:    s.thresholds.LevelFor(percent),
				Applied:          true,
			})
			s.writeAudit(ctx, &model.AuditLogEntry{
				OrganizationID:   tc.OrganizationID,
				WarehouseID:      a.WarehouseID,
				UserID:           tc.UserID,
				SKU:              a.SKU,
				Action:           model.AuditActionAdjustment,
				PreviousQuantity: &applied[i].PreviousQuantity,
				NewQuantity:      &applied[i].NewQuantity,
				Variance:         &variance,
				VariancePercent:  &percent,
				ReasonCode:       req.Items[i].ReasonCode,
				Notes:            req.Items[i].Notes,
			})
		}
		resp.Succeeded = len(applied)
		return resp, nil
	}

	// Best-effort mode: each item independent.
	for _, item := range req.Items {
		result, err := s.UpdateStock(ctx, tc, item)
		if err != nil {
			resp.Failed++
			resp.Results = append(resp.Results, model.StockUpdateResult{
				WarehouseID: item.WarehouseID,
				SKU:         item.SKU,
				Error:       err.Error(),
			})
			continue
		}
		resp.Succeeded++
		resp.Results = append(resp.Results, *result)
	}

	return resp, nil
}

// ========================================
// RESERVATION LEDGER
// ========================================

// ReserveStock promises stock to an order, consuming reserved_quantity on
// the backing row. The repository rejects reservations beyond available.
func (s *InventoryService) ReserveStock(ctx context.Context, tc tenant.Context, req model.ReserveStockRequest) (*model.Reservation, error) {
	if !tc.Valid() {
		return nil, model.ErrMissingTenant
	}
	if req.Quantity < 1 {
		return nil, model.ErrInvalidQuantity
	}

	if _, err := s.repo.GetWarehouse(ctx, tc.OrganizationID, req.WarehouseID); err != nil {
		return nil, err
	}

	reservation := &model.Reservation{
		ID:               uuid.New(),
		OrganizationID:   tc.OrganizationID,
		OrderID:          req.OrderID,
		SKU:              req.SKU,
		WarehouseID:      req.WarehouseID,
		QuantityReserved: req.Quantity,
	}

	if err := s.repo.CreateReservation(ctx, reservation); err != nil {
		return nil, err
	}

	return reservation, nil
}

// ReleaseReservation releases a promise of stock: shipment decrements the
// physical quantity with it, cancellation returns the stock to available.
func (s *InventoryService) ReleaseReservation(ctx context.Context, tc tenant.Context, id uuid.UUID, mode model.ReleaseMode) (*model.Reservation, error) {
	if !tc.Valid() {
		return nil, model.ErrMissingTenant
	}
	if mode != model.ReleaseShipment && mode != model.ReleaseCancel {
		return nil, fmt.Errorf("unknown release mode %q", mode)
	}

	reservation, err := s.repo.ReleaseReservation(ctx, tc.OrganizationID, id, mode)
	if err != nil {
		return nil, err
	}

	return reservation, nil
}

// ========================================
// AUDIT
// ========================================

func (s *InventoryService) GetAuditTrail(ctx context.Context, tc tenant.Context, req model.ListAuditRequest) (*model.ListAuditResponse, error) {
	if !tc.Valid() {
		return nil, model.ErrMissingTenant
	}

	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 || req.PageSize > 100 {
		req.PageSize = 20
	}

	items, total, stats, err := s.repo.ListAudit(ctx, tc.OrganizationID, req)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}

	totalPages := (total + req.PageSize - 1) / req.PageSize
	if totalPages == 0 {
		totalPages = 1
	}

	return &model.ListAuditResponse{
		Items:      items,
		Stats:      stats,
		TotalItems: total,
		TotalPages: totalPages,
		Page:       req.Page,
		PageSize:   req.PageSize,
	}, nil
}

// writeAudit is best-effort: a failed audit write is logged, never surfaced.
func (s *InventoryService) writeAudit(ctx context.Context, entry *model.AuditLogEntry) {
	if err := s.repo.AppendAudit(ctx, entry); err != nil {
		logger.Error("audit write failed", err)
	}
}
