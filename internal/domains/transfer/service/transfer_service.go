package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	invModel "github.com/mahmoudtohamy2025/rappit-core/internal/domains/inventory/model"
	invRepo "github.com/mahmoudtohamy2025/rappit-core/internal/domains/inventory/repository"
	"github.com/mahmoudtohamy2025/rappit-core/internal/domains/transfer/model"
	"github.com/mahmoudtohamy2025/rappit-core/internal/domains/transfer/repository"
	"github.com/mahmoudtohamy2025/rappit-core/internal/shared/events"
	"github.com/mahmoudtohamy2025/rappit-core/internal/shared/tenant"
	"github.com/mahmoudtohamy2025/rappit-core/pkg/logger"
)

type ServiceInterface interface {
	CreateTransferRequest(ctx context.Context, tc tenant.Context, req model.CreateTransferRequest) (*model.TransferRequest, error)
	ApproveTransfer(ctx context.Context, tc tenant.Context, id uuid.UUID) (*model.TransferRequest, error)
	RejectTransfer(ctx context.Context, tc tenant.Context, id uuid.UUID, reason string) (*model.TransferRequest, error)
	CancelTransfer(ctx context.Context, tc tenant.Context, id uuid.UUID) (*model.TransferRequest, error)
	RescheduleTransfer(ctx context.Context, tc tenant.Context, id uuid.UUID, scheduledAt time.Time) (*model.TransferRequest, error)
	ExecuteTransfer(ctx context.Context, tc tenant.Context, id uuid.UUID) (*model.TransferRequest, error)
	GetTransfer(ctx context.Context, tc tenant.Context, id uuid.UUID) (*model.TransferRequest, error)
	ListTransfers(ctx context.Context, tc tenant.Context, req model.ListTransfersRequest) ([]model.TransferRequest, int, error)

	// ExecuteDueTransfers runs due SCHEDULED transfers; used by the worker.
	ExecuteDueTransfers(ctx context.Context, limit int) (int, error)
}

type TransferService struct {
	repo      repository.RepositoryInterface
	inventory invRepo.RepositoryInterface
	publisher events.Publisher
}

func NewService(repo repository.RepositoryInterface, inventory invRepo.RepositoryInterface, publisher events.Publisher) ServiceInterface {
	return &TransferService{
		repo:      repo,
		inventory: inventory,
		publisher: publisher,
	}
}

// ========================================
// CREATION
// ========================================

// CreateTransferRequest validates the reservation linkage and persists the
// transfer. IMMEDIATE transfers skip the pending step and start APPROVED
// with the requester as approver.
func (s *TransferService) CreateTransferRequest(ctx context.Context, tc tenant.Context, req model.CreateTransferRequest) (*model.TransferRequest, error) {
	if !tc.Valid() {
		return nil, invModel.ErrMissingTenant
	}

	if req.SourceWarehouseID == req.TargetWarehouseID {
		return nil, model.ErrSameWarehouse
	}

	reservation, err := s.inventory.GetReservation(ctx, tc.OrganizationID, req.ReservationID)
	if err != nil {
		return nil, err
	}
	if !reservation.Active() {
		return nil, model.ErrReservationReleased
	}
	if reservation.WarehouseID != req.SourceWarehouseID {
		return nil, model.ErrSourceMismatch
	}
	if req.Quantity > reservation.QuantityReserved {
		return nil, model.ErrQuantityExceedsReservation
	}

	if _, err := s.inventory.GetWarehouse(ctx, tc.OrganizationID, req.TargetWarehouseID); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetActiveByReservation(ctx, tc.OrganizationID, req.ReservationID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, model.ErrDuplicateActiveTransfer
	}

	if req.TransferType == model.TransferScheduled {
		if req.ScheduledAt == nil {
			return nil, model.ErrScheduleRequired
		}
		if !req.ScheduledAt.After(time.Now()) {
			return nil, model.ErrScheduledInPast
		}
	}

	priority := req.Priority
	if priority == "" {
		priority = model.PriorityNormal
	}

	transfer := &model.TransferRequest{
		ID:                uuid.New(),
		OrganizationID:    tc.OrganizationID,
		ReservationID:     req.ReservationID,
		SourceWarehouseID: req.SourceWarehouseID,
		TargetWarehouseID: req.TargetWarehouseID,
		SKU:               reservation.SKU,
		Quantity:          req.Quantity,
		TransferType:      req.TransferType,
		Status:            model.StatusPending,
		Priority:          priority,
		ScheduledAt:       req.ScheduledAt,
		Reason:            req.Reason,
		RequestedBy:       tc.UserID,
		Notes:             req.Notes,
	}

	if req.TransferType == model.TransferImmediate {
		now := time.Now()
		transfer.Status = model.StatusApproved
		transfer.ApprovedBy = &tc.UserID
		transfer.ApprovedAt = &now
	}

	if err := s.repo.Create(ctx, transfer); err != nil {
		return nil, fmt.Errorf("failed to create transfer: %w", err)
	}

	s.emitTransferEvent(ctx, events.TypeTransferRequested, transfer)
	s.fanOutOnRequest(ctx, transfer)

	return transfer, nil
}

// ========================================
// APPROVAL WORKFLOW
// ========================================

func (s *TransferService) ApproveTransfer(ctx context.Context, tc tenant.Context, id uuid.UUID) (*model.TransferRequest, error) {
	if !tc.Valid() {
		return nil, invModel.ErrMissingTenant
	}
	if !tc.CanManageTransfers() {
		return nil, model.ErrRoleDenied
	}

	if err := s.repo.Approve(ctx, tc.OrganizationID, id, tc.UserID); err != nil {
		return nil, err
	}

	transfer, err := s.repo.GetByID(ctx, tc.OrganizationID, id)
	if err != nil {
		return nil, err
	}

	s.emitTransferEvent(ctx, events.TypeTransferApproved, transfer)
	return transfer, nil
}

func (s *TransferService) RejectTransfer(ctx context.Context, tc tenant.Context, id uuid.UUID, reason string) (*model.TransferRequest, error) {
	if !tc.Valid() {
		return nil, invModel.ErrMissingTenant
	}
	if !tc.CanManageTransfers() {
		return nil, model.ErrRoleDenied
	}
	if reason == "" {
		return nil, model.ErrReasonRequired
	}

	if err := s.repo.Reject(ctx, tc.OrganizationID, id, tc.UserID, reason); err != nil {
		return nil, err
	}

	transfer, err := s.repo.GetByID(ctx, tc.OrganizationID, id)
	if err != nil {
		return nil, err
	}

	s.emitTransferEvent(ctx, events.TypeTransferRejected, transfer)
	return transfer, nil
}

func (s *TransferService) CancelTransfer(ctx context.Context, tc tenant.Context, id uuid.UUID) (*model.TransferRequest, error) {
	if !tc.Valid() {
		return nil, invModel.ErrMissingTenant
	}

	if err := s.repo.Cancel(ctx, tc.OrganizationID, id); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, tc.OrganizationID, id)
}

func (s *TransferService) RescheduleTransfer(ctx context.Context, tc tenant.Context, id uuid.UUID, scheduledAt time.Time) (*model.TransferRequest, error) {
	if !tc.Valid() {
		return nil, invModel.ErrMissingTenant
	}
	if !scheduledAt.After(time.Now()) {
		return nil, model.ErrScheduledInPast
	}

	if err := s.repo.Reschedule(ctx, tc.OrganizationID, id, scheduledAt); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, tc.OrganizationID, id)
}

// ========================================
// EXECUTION
// ========================================

// ExecuteTransfer completes an approved transfer. The repository runs the
// whole mutation in one transaction; storage failures mark the transfer
// FAILED in a best-effort secondary write.
func (s *TransferService) ExecuteTransfer(ctx context.Context, tc tenant.Context, id uuid.UUID) (*model.TransferRequest, error) {
	if !tc.Valid() {
		return nil, invModel.ErrMissingTenant
	}
	return s.executeTransfer(ctx, tc.OrganizationID, tc.UserID, id)
}

func (s *TransferService) executeTransfer(ctx context.Context, orgID string, executedBy uuid.UUID, id uuid.UUID) (*model.TransferRequest, error) {
	result, err := s.repo.ExecuteTransfer(ctx, orgID, id)
	if err != nil {
		if model.IsStateError(err) || model.IsValidationError(err) || invModel.IsNotFoundError(err) {
			return nil, err
		}
		if markErr := s.repo.MarkFailed(ctx, orgID, id); markErr != nil {
			logger.Error("failed to mark transfer failed", markErr)
		}
		return nil, fmt.Errorf("failed to execute transfer: %w", err)
	}

	t := result.Transfer

	if err := s.inventory.AppendAudit(ctx, &invModel.AuditLogEntry{
		OrganizationID: orgID,
		WarehouseID:    t.SourceWarehouseID,
		UserID:         executedBy,
		SKU:            t.SKU,
		Action:         invModel.AuditActionTransfer,
		ReasonCode:     "TRANSFER",
		Notes:          t.Reason,
		Metadata: map[string]interface{}{
			"source":         t.SourceWarehouseID.String(),
			"target":         t.TargetWarehouseID.String(),
			"quantity":       t.Quantity,
			"reservation_id": t.ReservationID.String(),
		},
	}); err != nil {
		logger.Error("audit write failed", err)
	}

	s.emitTransferEvent(ctx, events.TypeTransferCompleted, t)
	s.fanOutOnCompletion(ctx, t)

	return t, nil
}

func (s *TransferService) GetTransfer(ctx context.Context, tc tenant.Context, id uuid.UUID) (*model.TransferRequest, error) {
	if !tc.Valid() {
		return nil, invModel.ErrMissingTenant
	}
	return s.repo.GetByID(ctx, tc.OrganizationID, id)
}

func (s *TransferService) ListTransfers(ctx context.Context, tc tenant.Context, req model.ListTransfersRequest) ([]model.TransferRequest, int, error) {
	if !tc.Valid() {
		return nil, 0, invModel.ErrMissingTenant
	}

	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 || req.PageSize > 100 {
		req.PageSize = 20
	}

	return s.repo.List(ctx, tc.OrganizationID, req)
}

// ExecuteDueTransfers picks up approved scheduled transfers whose time has
// come and executes each; one failure does not stop the batch.
func (s *TransferService) ExecuteDueTransfers(ctx context.Context, limit int) (int, error) {
	due, err := s.repo.ListDueScheduled(ctx, time.Now(), limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list due transfers: %w", err)
	}

	executed := 0
	for _, t := range due {
		if _, err := s.executeTransfer(ctx, t.OrganizationID, t.RequestedBy, t.ID); err != nil {
			logger.Error("scheduled transfer execution failed", err)
			continue
		}
		executed++
	}

	return executed, nil
}

// ========================================
// EVENTS & FAN-OUT
// ========================================

func (s *TransferService) emitTransferEvent(ctx context.Context, eventType string, t *model.TransferRequest) {
	s.publisher.Publish(eventType, events.TransferEventPayload{
		OrganizationID:    t.OrganizationID,
		TransferID:        t.ID.String(),
		ReservationID:     t.ReservationID.String(),
		SourceWarehouseID: t.SourceWarehouseID.String(),
		TargetWarehouseID: t.TargetWarehouseID.String(),
		SKU:               t.SKU,
		Quantity:          t.Quantity,
		Status:            string(t.Status),
	}, events.QueueInventory)
}

// fanOutOnRequest notifies warehouse managers when a transfer is requested,
// if the tenant's notification config allows it.
func (s *TransferService) fanOutOnRequest(ctx context.Context, t *model.TransferRequest) {
	cfg, err := s.repo.GetNotificationConfig(ctx, t.OrganizationID)
	if err != nil {
		logger.Error("failed to load notification config", err)
		return
	}
	if !cfg.NotifyOnRequest {
		return
	}

	s.publisher.Publish(events.TypeNotificationBatch, events.NotificationPayload{
		OrganizationID: t.OrganizationID,
		Recipients:     cfg.ManagerRecipients,
		Subject:        "Transfer requested",
		Body:           fmt.Sprintf("Transfer %s: %d x %s requested", t.ID, t.Quantity, t.SKU),
	}, events.QueueNotifications)
}

// fanOutOnCompletion notifies the order owner when a transfer completes.
func (s *TransferService) fanOutOnCompletion(ctx context.Context, t *model.TransferRequest) {
	cfg, err := s.repo.GetNotificationConfig(ctx, t.OrganizationID)
	if err != nil {
		logger.Error("failed to load notification config", err)
		return
	}
	if !cfg.NotifyOnCompletion {
		return
	}

	s.publisher.Publish(events.TypeNotificationSend, events.NotificationPayload{
		OrganizationID: t.OrganizationID,
		Subject:        "Transfer completed",
		Body:           fmt.Sprintf("Transfer %s completed: %d x %s now at warehouse %s", t.ID, t.Quantity, t.SKU, t.TargetWarehouseID),
	}, events.QueueNotifications)
}
