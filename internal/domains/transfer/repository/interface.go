package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mahmoudtohamy2025/rappit-core/internal/domains/transfer/model"
)

// ExecutedTransfer reports the state changes a completed transfer produced.
type ExecutedTransfer struct {
	Transfer       *model.TransferRequest
	SourceReserved int
	TargetReserved int
}

// RepositoryInterface is the storage contract for the transfer workflow.
// Status transitions are conditional updates so concurrent callers cannot
// double-apply; ExecuteTransfer is a single transaction spanning both
// inventory rows, the reservation and the transfer row.
type RepositoryInterface interface {
	Create(ctx context.Context, t *model.TransferRequest) error
	GetByID(ctx context.Context, orgID string, id uuid.UUID) (*model.TransferRequest, error)
	List(ctx context.Context, orgID string, req model.ListTransfersRequest) ([]model.TransferRequest, int, error)

	// GetActiveByReservation returns the transfer currently in PENDING,
	// APPROVED or IN_TRANSIT for the reservation, or nil.
	GetActiveByReservation(ctx context.Context, orgID string, reservationID uuid.UUID) (*model.TransferRequest, error)

	// Approve / Reject / Cancel / Reschedule transition from PENDING only.
	Approve(ctx context.Context, orgID string, id uuid.UUID, approvedBy uuid.UUID) error
	Reject(ctx context.Context, orgID string, id uuid.UUID, rejectedBy uuid.UUID, reason string) error
	Cancel(ctx context.Context, orgID string, id uuid.UUID) error
	Reschedule(ctx context.Context, orgID string, id uuid.UUID, scheduledAt time.Time) error

	// ExecuteTransfer runs the completion transaction: move reserved stock
	// from source to target, re-home the reservation, complete the transfer.
	ExecuteTransfer(ctx context.Context, orgID string, id uuid.UUID) (*ExecutedTransfer, error)

	// MarkFailed is the best-effort secondary write after a failed execution.
	MarkFailed(ctx context.Context, orgID string, id uuid.UUID) error

	// ListDueScheduled returns approved SCHEDULED transfers whose
	// scheduled_at has passed, sorted by (priority DESC, scheduled_at ASC).
	ListDueScheduled(ctx context.Context, now time.Time, limit int) ([]model.TransferRequest, error)

	// GetNotificationConfig returns the tenant's fan-out config, or the
	// default when none is stored.
	GetNotificationConfig(ctx context.Context, orgID string) (*model.NotificationConfig, error)
}
