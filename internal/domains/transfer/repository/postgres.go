package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	invModel "github.com/mahmoudtohamy2025/rappit-core/internal/domains/inventory/model"
	"github.com/mahmoudtohamy2025/rappit-core/internal/domains/transfer/model"
	"github.com/mahmoudtohamy2025/rappit-core/pkg/database"
)

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) RepositoryInterface {
	return &postgresRepository{pool: pool}
}

const transferColumns = `
	id, organization_id, reservation_id, source_warehouse_id, target_warehouse_id,
	sku, quantity, transfer_type, status, priority, scheduled_at, reason,
	requested_by, approved_by, approved_at, rejected_by, rejected_at,
	rejection_reason, notes, created_at, updated_at, completed_at`

func scanTransfer(row pgx.Row) (*model.TransferRequest, error) {
	var t model.TransferRequest
	err := row.Scan(
		&t.ID, &t.OrganizationID, &t.ReservationID, &t.SourceWarehouseID, &t.TargetWarehouseID,
		&t.SKU, &t.Quantity, &t.TransferType, &t.Status, &t.Priority, &t.ScheduledAt, &t.Reason,
		&t.RequestedBy, &t.ApprovedBy, &t.ApprovedAt, &t.RejectedBy, &t.RejectedAt,
		&t.RejectionReason, &t.Notes, &t.CreatedAt, &t.UpdatedAt, &t.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *postgresRepository) Create(ctx context.Context, t *model.TransferRequest) error {
	query := `
		INSERT INTO transfer_requests (
			id, organization_id, reservation_id, source_warehouse_id, target_warehouse_id,
			sku, quantity, transfer_type, status, priority, scheduled_at, reason,
			requested_by, approved_by, approved_at, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		t.ID, t.OrganizationID, t.ReservationID, t.SourceWarehouseID, t.TargetWarehouseID,
		t.SKU, t.Quantity, t.TransferType, t.Status, t.Priority, t.ScheduledAt, t.Reason,
		t.RequestedBy, t.ApprovedBy, t.ApprovedAt, t.Notes,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert transfer: %w", err)
	}

	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, orgID string, id uuid.UUID) (*model.TransferRequest, error) {
	query := `SELECT ` + transferColumns + ` FROM transfer_requests WHERE id = $1 AND organization_id = $2`

	t, err := scanTransfer(r.pool.QueryRow(ctx, query, id, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.NewTransferNotFoundError(id)
		}
		return nil, fmt.Errorf("failed to get transfer: %w", err)
	}
	return t, nil
}

func (r *postgresRepository) List(ctx context.Context, orgID string, req model.ListTransfersRequest) ([]model.TransferRequest, int, error) {
	queryBuilder := `SELECT ` + transferColumns + ` FROM transfer_requests WHERE organization_id = $1`
	countQuery := `SELECT COUNT(*) FROM transfer_requests WHERE organization_id = $1`

	args := []interface{}{orgID}
	argCount := 2

	if req.Status != nil {
		queryBuilder += fmt.Sprintf(" AND status = $%d", argCount)
		countQuery += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, *req.Status)
		argCount++
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transfers: %w", err)
	}

	queryBuilder += " ORDER BY created_at DESC"
	queryBuilder += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, req.PageSize, (req.Page-1)*req.PageSize)

	rows, err := r.pool.Query(ctx, queryBuilder, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transfers: %w", err)
	}
	defer rows.Close()

	transfers := make([]model.TransferRequest, 0, req.PageSize)
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan transfer: %w", err)
		}
		transfers = append(transfers, *t)
	}

	return transfers, total, rows.Err()
}

func (r *postgresRepository) GetActiveByReservation(ctx context.Context, orgID string, reservationID uuid.UUID) (*model.TransferRequest, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM transfer_requests
		WHERE organization_id = $1 AND reservation_id = $2
		  AND status IN ('PENDING', 'APPROVED', 'IN_TRANSIT')
		LIMIT 1
	`

	t, err := scanTransfer(r.pool.QueryRow(ctx, query, orgID, reservationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query active transfer: %w", err)
	}
	return t, nil
}

// transitionFromPending applies a conditional update and distinguishes
// not-found from wrong-state on zero rows affected.
func (r *postgresRepository) transitionFromPending(ctx context.Context, orgID string, id uuid.UUID, set string, args ...interface{}) error {
	query := fmt.Sprintf(`
		UPDATE transfer_requests
		SET %s, updated_at = NOW()
		WHERE id = $1 AND organization_id = $2 AND status = 'PENDING'
	`, set)

	allArgs := append([]interface{}{id, orgID}, args...)
	result, err := r.pool.Exec(ctx, query, allArgs...)
	if err != nil {
		return fmt.Errorf("failed to update transfer: %w", err)
	}

	if result.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, orgID, id); err != nil {
			return err
		}
		return model.ErrTransferNotPending
	}

	return nil
}

func (r *postgresRepository) Approve(ctx context.Context, orgID string, id uuid.UUID, approvedBy uuid.UUID) error {
	return r.transitionFromPending(ctx, orgID, id,
		"status = 'APPROVED', approved_by = $3, approved_at = NOW()", approvedBy)
}

func (r *postgresRepository) Reject(ctx context.Context, orgID string, id uuid.UUID, rejectedBy uuid.UUID, reason string) error {
	return r.transitionFromPending(ctx, orgID, id,
		"status = 'REJECTED', rejected_by = $3, rejected_at = NOW(), rejection_reason = $4", rejectedBy, reason)
}

func (r *postgresRepository) Cancel(ctx context.Context, orgID string, id uuid.UUID) error {
	return r.transitionFromPending(ctx, orgID, id, "status = 'CANCELLED'")
}

func (r *postgresRepository) Reschedule(ctx context.Context, orgID string, id uuid.UUID, scheduledAt time.Time) error {
	return r.transitionFromPending(ctx, orgID, id, "scheduled_at = $3", scheduledAt)
}

// ExecuteTransfer completes an approved transfer in one transaction: reserved
// stock moves from the source row to the target row (created on demand), the
// reservation is re-homed to the target warehouse with its order linkage
// untouched, and the transfer is marked completed.
func (r *postgresRepository) ExecuteTransfer(ctx context.Context, orgID string, id uuid.UUID) (*ExecutedTransfer, error) {
	return database.WithTransactionResult(ctx, r.pool, func(tx pgx.Tx) (*ExecutedTransfer, error) {
		t, err := scanTransfer(tx.QueryRow(ctx,
			`SELECT `+transferColumns+` FROM transfer_requests WHERE id = $1 AND organization_id = $2 FOR UPDATE`,
			id, orgID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, model.NewTransferNotFoundError(id)
			}
			return nil, fmt.Errorf("failed to load transfer: %w", err)
		}

		if t.Status != model.StatusApproved {
			return nil, model.ErrTransferNotApproved
		}

		// Lock rows in a stable order to avoid deadlocks between transfers.
		first, second := t.SourceWarehouseID, t.TargetWarehouseID
		if second.String() < first.String() {
			first, second = second, first
		}
		rowsByWarehouse := make(map[uuid.UUID]*lockedRow, 2)
		for _, wh := range []uuid.UUID{first, second} {
			row, err := lockOrCreateRow(ctx, tx, orgID, wh, t.SKU)
			if err != nil {
				return nil, err
			}
			rowsByWarehouse[wh] = row
		}

		source := rowsByWarehouse[t.SourceWarehouseID]
		target := rowsByWarehouse[t.TargetWarehouseID]

		sourceReserved := source.reserved - t.Quantity
		if sourceReserved < 0 {
			sourceReserved = 0
		}
		targetReserved := target.reserved + t.Quantity
		if targetReserved > target.quantity {
			return nil, invModel.NewInsufficientStockError(t.Quantity, target.quantity-target.reserved)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE inventory_items SET reserved_quantity = $2, updated_at = NOW() WHERE id = $1`,
			source.id, sourceReserved); err != nil {
			return nil, fmt.Errorf("failed to update source row: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE inventory_items SET reserved_quantity = $2, updated_at = NOW() WHERE id = $1`,
			target.id, targetReserved); err != nil {
			return nil, fmt.Errorf("failed to update target row: %w", err)
		}

		// Re-home the reservation; order_id is preserved.
		result, err := tx.Exec(ctx,
			`UPDATE reservations SET warehouse_id = $3 WHERE id = $1 AND organization_id = $2 AND released_at IS NULL`,
			t.ReservationID, orgID, t.TargetWarehouseID)
		if err != nil {
			return nil, fmt.Errorf("failed to re-home reservation: %w", err)
		}
		if result.RowsAffected() == 0 {
			return nil, model.ErrReservationReleased
		}

		now := time.Now()
		t.Status = model.StatusCompleted
		t.CompletedAt = &now
		if _, err := tx.Exec(ctx,
			`UPDATE transfer_requests SET status = 'COMPLETED', completed_at = $2, updated_at = NOW() WHERE id = $1`,
			t.ID, now); err != nil {
			return nil, fmt.Errorf("failed to complete transfer: %w", err)
		}

		return &ExecutedTransfer{
			Transfer:       t,
			SourceReserved: sourceReserved,
			TargetReserved: targetReserved,
		}, nil
	})
}

type lockedRow struct {
	id       uuid.UUID
	quantity int
	reserved int
}

func lockOrCreateRow(ctx context.Context, tx pgx.Tx, orgID string, warehouseID uuid.UUID, sku string) (*lockedRow, error) {
	query := `
		SELECT id, quantity, reserved_quantity
		FROM inventory_items
		WHERE organization_id = $1 AND warehouse_id = $2 AND sku = $3
		FOR UPDATE
	`

	var row lockedRow
	err := tx.QueryRow(ctx, query, orgID, warehouseID, sku).Scan(&row.id, &row.quantity, &row.reserved)
	if err == nil {
		return &row, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to lock inventory row: %w", err)
	}

	insert := `
		INSERT INTO inventory_items (id, organization_id, warehouse_id, sku, quantity, reserved_quantity, is_locked)
		VALUES ($1, $2, $3, $4, 0, 0, false)
		ON CONFLICT (organization_id, warehouse_id, sku) DO NOTHING
	`
	if _, err := tx.Exec(ctx, insert, uuid.New(), orgID, warehouseID, sku); err != nil {
		return nil, fmt.Errorf("failed to create inventory row: %w", err)
	}

	if err := tx.QueryRow(ctx, query, orgID, warehouseID, sku).Scan(&row.id, &row.quantity, &row.reserved); err != nil {
		return nil, fmt.Errorf("failed to lock created inventory row: %w", err)
	}
	return &row, nil
}

func (r *postgresRepository) MarkFailed(ctx context.Context, orgID string, id uuid.UUID) error {
	query := `
		UPDATE transfer_requests
		SET status = 'FAILED', updated_at = NOW()
		WHERE id = $1 AND organization_id = $2 AND status = 'APPROVED'
	`

	if _, err := r.pool.Exec(ctx, query, id, orgID); err != nil {
		return fmt.Errorf("failed to mark transfer failed: %w", err)
	}
	return nil
}

func (r *postgresRepository) ListDueScheduled(ctx context.Context, now time.Time, limit int) ([]model.TransferRequest, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM transfer_requests
		WHERE transfer_type = 'SCHEDULED'
		  AND status = 'APPROVED'
		  AND scheduled_at <= $1
		ORDER BY
			CASE priority
				WHEN 'URGENT' THEN 3
				WHEN 'HIGH' THEN 2
				WHEN 'NORMAL' THEN 1
				ELSE 0
			END DESC,
			scheduled_at ASC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due transfers: %w", err)
	}
	defer rows.Close()

	transfers := make([]model.TransferRequest, 0, limit)
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		transfers = append(transfers, *t)
	}

	return transfers, rows.Err()
}

func (r *postgresRepository) GetNotificationConfig(ctx context.Context, orgID string) (*model.NotificationConfig, error) {
	query := `
		SELECT organization_id, notify_on_request, notify_on_completion, manager_recipients
		FROM notification_configs
		WHERE organization_id = $1
	`

	var cfg model.NotificationConfig
	err := r.pool.QueryRow(ctx, query, orgID).Scan(
		&cfg.OrganizationID, &cfg.NotifyOnRequest, &cfg.NotifyOnCompletion, &cfg.ManagerRecipients,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.DefaultNotificationConfig(orgID), nil
		}
		return nil, fmt.Errorf("failed to get notification config: %w", err)
	}

	return &cfg, nil
}
