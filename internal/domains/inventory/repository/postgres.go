package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mahmoudtohamy2025/rappit-core/internal/domains/inventory/model"
	"github.com/mahmoudtohamy2025/rappit-core/pkg/database"
)

type postgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(pool *pgxpool.Pool) RepositoryInterface {
	return &postgresRepository{pool: pool}
}

// ========================================
// WAREHOUSES
// ========================================

func (r *postgresRepository) GetWarehouse(ctx context.Context, orgID string, id uuid.UUID) (*model.Warehouse, error) {
	query := `
		SELECT id, organization_id, name, created_at, updated_at, deleted_at
		FROM warehouses
		WHERE id = $1 AND organization_id = $2 AND deleted_at IS NULL
	`

	var wh model.Warehouse
	err := r.pool.QueryRow(ctx, query, id, orgID).Scan(
		&wh.ID, &wh.OrganizationID, &wh.Name,
		&wh.CreatedAt, &wh.UpdatedAt, &wh.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrWarehouseNotFound
		}
		return nil, fmt.Errorf("failed to get warehouse: %w", err)
	}

	return &wh, nil
}

// ========================================
// INVENTORY ROWS
// ========================================

const inventoryColumns = `id, organization_id, warehouse_id, sku, quantity, reserved_quantity, is_locked, updated_at`

func scanInventoryItem(row pgx.Row) (*model.InventoryItem, error) {
	var item model.InventoryItem
	err := row.Scan(
		&item.ID, &item.OrganizationID, &item.WarehouseID, &item.SKU,
		&item.Quantity, &item.ReservedQuantity, &item.IsLocked, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *postgresRepository) GetInventoryItem(ctx context.Context, orgID string, warehouseID uuid.UUID, sku string) (*model.InventoryItem, error) {
	query := `
		SELECT ` + inventoryColumns + `
		FROM inventory_items
		WHERE organization_id = $1 AND warehouse_id = $2 AND sku = $3
	`

	item, err := scanInventoryItem(r.pool.QueryRow(ctx, query, orgID, warehouseID, sku))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.NewInventoryNotFoundError(warehouseID, sku)
		}
		return nil, fmt.Errorf("failed to get inventory item: %w", err)
	}

	return item, nil
}

func (r *postgresRepository) ListInventoryByWarehouse(ctx context.Context, orgID string, warehouseID uuid.UUID) ([]model.InventoryItem, error) {
	query := `
		SELECT ` + inventoryColumns + `
		FROM inventory_items
		WHERE organization_id = $1 AND warehouse_id = $2
		ORDER BY sku ASC
	`

	rows, err := r.pool.Query(ctx, query, orgID, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	defer rows.Close()

	items := make([]model.InventoryItem, 0)
	for rows.Next() {
		item, err := scanInventoryItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inventory row: %w", err)
		}
		items = append(items, *item)
	}

	return items, rows.Err()
}

func (r *postgresRepository) GetInventoryItems(ctx context.Context, orgID string, warehouseID uuid.UUID, skus []string) ([]model.InventoryItem, error) {
	query := `
		SELECT ` + inventoryColumns + `
		FROM inventory_items
		WHERE organization_id = $1 AND warehouse_id = $2 AND sku = ANY($3)
		ORDER BY sku ASC
	`

	rows, err := r.pool.Query(ctx, query, orgID, warehouseID, skus)
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory items: %w", err)
	}
	defer rows.Close()

	items := make([]model.InventoryItem, 0, len(skus))
	for rows.Next() {
		item, err := scanInventoryItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inventory row: %w", err)
		}
		items = append(items, *item)
	}

	return items, rows.Err()
}

func (r *postgresRepository) SetItemsLocked(ctx context.Context, orgID string, warehouseID uuid.UUID, skus []string, locked bool) error {
	query := `
		UPDATE inventory_items
		SET is_locked = $4, updated_at = NOW()
		WHERE organization_id = $1 AND warehouse_id = $2 AND sku = ANY($3)
	`

	if _, err := r.pool.Exec(ctx, query, orgID, warehouseID, skus, locked); err != nil {
		return fmt.Errorf("failed to set item locks: %w", err)
	}
	return nil
}

// ========================================
// MOVEMENTS
// ========================================

const movementColumns = `
	id, organization_id, warehouse_id, sku, quantity, type, direction, status,
	reference_type, reference_id, reason, linked_movement_id,
	created_at, executed_at, executed_by, cancel_reason`

func scanMovement(row pgx.Row) (*model.StockMovement, error) {
	var m model.StockMovement
	err := row.Scan(
		&m.ID, &m.OrganizationID, &m.WarehouseID, &m.SKU, &m.Quantity,
		&m.Type, &m.Direction, &m.Status,
		&m.ReferenceType, &m.ReferenceID, &m.Reason, &m.LinkedMovementID,
		&m.CreatedAt, &m.ExecutedAt, &m.ExecutedBy, &m.CancelReason,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func insertMovement(ctx context.Context, tx pgx.Tx, m *model.StockMovement) error {
	query := `
		INSERT INTO stock_movements (
			id, organization_id, warehouse_id, sku, quantity, type, direction,
			status, reference_type, reference_id, reason, linked_movement_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at
	`

	return tx.QueryRow(ctx, query,
		m.ID, m.OrganizationID, m.WarehouseID, m.SKU, m.Quantity,
		m.Type, m.Direction, m.Status,
		m.ReferenceType, m.ReferenceID, m.Reason, m.LinkedMovementID,
	).Scan(&m.CreatedAt)
}

func (r *postgresRepository) CreateMovement(ctx context.Context, m *model.StockMovement) error {
	err := database.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		return insertMovement(ctx, tx, m)
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return model.ErrWarehouseNotFound
		}
		return fmt.Errorf("failed to insert movement: %w", err)
	}
	return nil
}

// CreateMovementPair inserts a TRANSFER_OUT / TRANSFER_IN pair and
// cross-links them in one transaction.
func (r *postgresRepository) CreateMovementPair(ctx context.Context, out, in *model.StockMovement) error {
	err := database.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		out.LinkedMovementID = &in.ID
		in.LinkedMovementID = &out.ID

		if err := insertMovement(ctx, tx, out); err != nil {
			return err
		}
		return insertMovement(ctx, tx, in)
	})
	if err != nil {
		return fmt.Errorf("failed to insert movement pair: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetMovement(ctx context.Context, orgID string, id uuid.UUID) (*model.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE id = $1 AND organization_id = $2`

	m, err := scanMovement(r.pool.QueryRow(ctx, query, id, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.NewMovementNotFoundError(id)
		}
		return nil, fmt.Errorf("failed to get movement: %w", err)
	}
	return m, nil
}

func (r *postgresRepository) ListMovements(ctx context.Context, orgID string, req model.ListMovementsRequest) ([]model.StockMovement, int, model.MovementStats, error) {
	queryBuilder := `SELECT ` + movementColumns + ` FROM stock_movements WHERE organization_id = $1`
	countQuery := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE direction = 'inbound'),
			COUNT(*) FILTER (WHERE direction = 'outbound'),
			COUNT(*) FILTER (WHERE status = 'pending')
		FROM stock_movements WHERE organization_id = $1
	`

	args := []interface{}{orgID}
	argCount := 2

	addFilter := func(clause string, value interface{}) {
		queryBuilder += fmt.Sprintf(" AND %s = $%d", clause, argCount)
		countQuery += fmt.Sprintf(" AND %s = $%d", clause, argCount)
		args = append(args, value)
		argCount++
	}

	if req.Type != nil {
		addFilter("type", *req.Type)
	}
	if req.Status != nil {
		addFilter("status", *req.Status)
	}
	if req.WarehouseID != nil {
		addFilter("warehouse_id", *req.WarehouseID)
	}
	if req.SKU != nil {
		addFilter("sku", *req.SKU)
	}
	if req.StartDate != nil {
		queryBuilder += fmt.Sprintf(" AND created_at >= $%d", argCount)
		countQuery += fmt.Sprintf(" AND created_at >= $%d", argCount)
		args = append(args, *req.StartDate)
		argCount++
	}
	if req.EndDate != nil {
		queryBuilder += fmt.Sprintf(" AND created_at <= $%d", argCount)
		countQuery += fmt.Sprintf(" AND created_at <= $%d", argCount)
		args = append(args, *req.EndDate)
		argCount++
	}

	var stats model.MovementStats
	err := r.pool.QueryRow(ctx, countQuery, args...).Scan(
		&stats.TotalMovements, &stats.TotalInbound, &stats.TotalOutbound, &stats.PendingCount,
	)
	if err != nil {
		return nil, 0, stats, fmt.Errorf("failed to count movements: %w", err)
	}

	queryBuilder += " ORDER BY created_at DESC"
	queryBuilder += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, req.PageSize, (req.Page-1)*req.PageSize)

	rows, err := r.pool.Query(ctx, queryBuilder, args...)
	if err != nil {
		return nil, 0, stats, fmt.Errorf("failed to list movements: %w", err)
	}
	defer rows.Close()

	movements := make([]model.StockMovement, 0, req.PageSize)
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, 0, stats, fmt.Errorf("failed to scan movement: %w", err)
		}
		movements = append(movements, *m)
	}

	return movements, stats.TotalMovements, stats, rows.Err()
}

func (r *postgresRepository) CancelMovement(ctx context.Context, orgID string, id uuid.UUID, reason string) error {
	// Conditional update so a concurrent execute cannot race the cancel.
	query := `
		UPDATE stock_movements
		SET status = $3, cancel_reason = $4
		WHERE id = $1 AND organization_id = $2 AND status = $5
	`

	result, err := r.pool.Exec(ctx, query, id, orgID,
		model.MovementStatusCancelled, reason, model.MovementStatusPending)
	if err != nil {
		return fmt.Errorf("failed to cancel movement: %w", err)
	}

	if result.RowsAffected() == 0 {
		if _, err := r.GetMovement(ctx, orgID, id); err != nil {
			return err
		}
		return model.ErrMovementNotPending
	}

	return nil
}

func (r *postgresRepository) MarkMovementFailed(ctx context.Context, orgID string, id uuid.UUID) error {
	query := `
		UPDATE stock_movements
		SET status = $3
		WHERE id = $1 AND organization_id = $2 AND status = $4
	`

	if _, err := r.pool.Exec(ctx, query, id, orgID,
		model.MovementStatusFailed, model.MovementStatusPending); err != nil {
		return fmt.Errorf("failed to mark movement failed: %w", err)
	}
	return nil
}

// ExecuteMovement applies a pending movement inside one transaction:
// the movement row is locked first, then the inventory row, stock is
// re-validated for outbound, mutated, and the movement is completed.
func (r *postgresRepository) ExecuteMovement(ctx context.Context, orgID string, id uuid.UUID, executedBy uuid.UUID) (*model.StockMovement, *model.InventoryItem, int, error) {
	type executed struct {
		movement *model.StockMovement
		item     *model.InventoryItem
		previous int
	}

	result, err := database.WithTransactionResult(ctx, r.pool, func(tx pgx.Tx) (executed, error) {
		var out executed

		m, err := scanMovement(tx.QueryRow(ctx,
			`SELECT `+movementColumns+` FROM stock_movements WHERE id = $1 AND organization_id = $2 FOR UPDATE`,
			id, orgID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return out, model.NewMovementNotFoundError(id)
			}
			return out, fmt.Errorf("failed to load movement: %w", err)
		}

		if m.Status != model.MovementStatusPending {
			return out, model.ErrMovementNotPending
		}

		item, err := lockInventoryRow(ctx, tx, orgID, m.WarehouseID, m.SKU, m.Direction == model.DirectionInbound)
		if err != nil {
			return out, err
		}

		if item.IsLocked {
			return out, model.ErrItemLocked
		}

		previous := item.Quantity
		newQuantity := item.Quantity + m.SignedQuantity()

		if m.Direction == model.DirectionOutbound {
			available := item.Quantity - item.ReservedQuantity
			if m.Quantity > available {
				return out, model.NewInsufficientStockError(m.Quantity, available)
			}
		}
		if newQuantity < item.ReservedQuantity {
			return out, model.ErrReservedExceedsQuantity
		}

		if err := tx.QueryRow(ctx,
			`UPDATE inventory_items SET quantity = $2, updated_at = NOW() WHERE id = $1 RETURNING updated_at`,
			item.ID, newQuantity,
		).Scan(&item.UpdatedAt); err != nil {
			return out, fmt.Errorf("failed to update inventory row: %w", err)
		}
		item.Quantity = newQuantity

		now := time.Now()
		m.Status = model.MovementStatusCompleted
		m.ExecutedAt = &now
		m.ExecutedBy = &executedBy
		if _, err := tx.Exec(ctx,
			`UPDATE stock_movements SET status = $2, executed_at = $3, executed_by = $4 WHERE id = $1`,
			m.ID, m.Status, m.ExecutedAt, m.ExecutedBy,
		); err != nil {
			return out, fmt.Errorf("failed to complete movement: %w", err)
		}

		out.movement = m
		out.item = item
		out.previous = previous
		return out, nil
	})
	if err != nil {
		return nil, nil, 0, err
	}

	return result.movement, result.item, result.previous, nil
}

// lockInventoryRow selects the inventory row FOR UPDATE, creating a zero row
// for inbound first receipts.
func lockInventoryRow(ctx context.Context, tx pgx.Tx, orgID string, warehouseID uuid.UUID, sku string, createIfMissing bool) (*model.InventoryItem, error) {
	query := `
		SELECT ` + inventoryColumns + `
		FROM inventory_items
		WHERE organization_id = $1 AND warehouse_id = $2 AND sku = $3
		FOR UPDATE
	`

	item, err := scanInventoryItem(tx.QueryRow(ctx, query, orgID, warehouseID, sku))
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to lock inventory row: %w", err)
	}
	if !createIfMissing {
		return nil, model.NewInventoryNotFoundError(warehouseID, sku)
	}

	insert := `
		INSERT INTO inventory_items (id, organization_id, warehouse_id, sku, quantity, reserved_quantity, is_locked)
		VALUES ($1, $2, $3, $4, 0, 0, false)
		ON CONFLICT (organization_id, warehouse_id, sku) DO NOTHING
	`
	if _, err := tx.Exec(ctx, insert, uuid.New(), orgID, warehouseID, sku); err != nil {
		return nil, fmt.Errorf("failed to create inventory row: %w", err)
	}

	item, err = scanInventoryItem(tx.QueryRow(ctx, query, orgID, warehouseID, sku))
	if err != nil {
		return nil, fmt.Errorf("failed to lock created inventory row: %w", err)
	}
	return item, nil
}

// ========================================
// ABSOLUTE QUANTITY UPDATES
// ========================================

func applyQuantityTx(ctx context.Context, tx pgx.Tx, orgID string, warehouseID uuid.UUID, sku string, newQuantity int) (*AppliedUpdate, error) {
	item, err := lockInventoryRow(ctx, tx, orgID, warehouseID, sku, true)
	if err != nil {
		return nil, err
	}

	if item.IsLocked {
		return nil, model.ErrItemLocked
	}
	if newQuantity < item.ReservedQuantity {
		return nil, model.ErrReservedExceedsQuantity
	}

	if _, err := tx.Exec(ctx,
		`UPDATE inventory_items SET quantity = $2, updated_at = NOW() WHERE id = $1`,
		item.ID, newQuantity,
	); err != nil {
		return nil, fmt.Errorf("failed to apply quantity: %w", err)
	}

	return &AppliedUpdate{
		WarehouseID:      warehouseID,
		SKU:              sku,
		PreviousQuantity: item.Quantity,
		NewQuantity:      newQuantity,
	}, nil
}

func (r *postgresRepository) ApplyQuantity(ctx context.Context, orgID string, warehouseID uuid.UUID, sku string, newQuantity int) (*AppliedUpdate, error) {
	return database.WithTransactionResult(ctx, r.pool, func(tx pgx.Tx) (*AppliedUpdate, error) {
		return applyQuantityTx(ctx, tx, orgID, warehouseID, sku, newQuantity)
	})
}

func (r *postgresRepository) ApplyQuantitiesAtomic(ctx context.Context, orgID string, updates []QuantityUpdate) ([]AppliedUpdate, error) {
	return database.WithTransactionResult(ctx, r.pool, func(tx pgx.Tx) ([]AppliedUpdate, error) {
		applied := make([]AppliedUpdate, 0, len(updates))
		for _, u := range updates {
			result, err := applyQuantityTx(ctx, tx, orgID, u.WarehouseID, u.SKU, u.NewQuantity)
			if err != nil {
				return nil, fmt.Errorf("update for sku %s failed: %w", u.SKU, err)
			}
			applied = append(applied, *result)
		}
		return applied, nil
	})
}

// ========================================
// RESERVATIONS
// ========================================

func (r *postgresRepository) GetReservation(ctx context.Context, orgID string, id uuid.UUID) (*model.Reservation, error) {
	query := `
		SELECT id, organization_id, order_id, sku, warehouse_id, quantity_reserved, released_at, created_at
		FROM reservations
		WHERE id = $1 AND organization_id = $2
	`

	var res model.Reservation
	err := r.pool.QueryRow(ctx, query, id, orgID).Scan(
		&res.ID, &res.OrganizationID, &res.OrderID, &res.SKU,
		&res.WarehouseID, &res.QuantityReserved, &res.ReleasedAt, &res.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrReservationNotFound
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}

	return &res, nil
}

func (r *postgresRepository) ListActiveReservations(ctx context.Context, orgID string, warehouseID uuid.UUID, sku string) ([]model.Reservation, error) {
	query := `
		SELECT id, organization_id, order_id, sku, warehouse_id, quantity_reserved, released_at, created_at
		FROM reservations
		WHERE organization_id = $1 AND warehouse_id = $2 AND sku = $3 AND released_at IS NULL
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, orgID, warehouseID, sku)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer rows.Close()

	reservations := make([]model.Reservation, 0)
	for rows.Next() {
		var res model.Reservation
		if err := rows.Scan(
			&res.ID, &res.OrganizationID, &res.OrderID, &res.SKU,
			&res.WarehouseID, &res.QuantityReserved, &res.ReleasedAt, &res.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		reservations = append(reservations, res)
	}

	return reservations, rows.Err()
}

// CreateReservation consumes reserved_quantity on the backing inventory row
// and inserts the reservation in one transaction.
func (r *postgresRepository) CreateReservation(ctx context.Context, res *model.Reservation) error {
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}

	return database.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		item, err := lockInventoryRow(ctx, tx, res.OrganizationID, res.WarehouseID, res.SKU, false)
		if err != nil {
			return err
		}

		if available := item.Quantity - item.ReservedQuantity; res.QuantityReserved > available {
			return model.NewInsufficientStockError(res.QuantityReserved, available)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE inventory_items SET reserved_quantity = reserved_quantity + $2, updated_at = NOW() WHERE id = $1`,
			item.ID, res.QuantityReserved); err != nil {
			return fmt.Errorf("failed to consume reserved quantity: %w", err)
		}

		return tx.QueryRow(ctx, `
			INSERT INTO reservations (id, organization_id, order_id, sku, warehouse_id, quantity_reserved)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at
		`, res.ID, res.OrganizationID, res.OrderID, res.SKU, res.WarehouseID, res.QuantityReserved,
		).Scan(&res.CreatedAt)
	})
}

// ReleaseReservation closes an active reservation and adjusts the backing
// row per the release mode.
func (r *postgresRepository) ReleaseReservation(ctx context.Context, orgID string, id uuid.UUID, mode model.ReleaseMode) (*model.Reservation, error) {
	return database.WithTransactionResult(ctx, r.pool, func(tx pgx.Tx) (*model.Reservation, error) {
		var res model.Reservation
		err := tx.QueryRow(ctx, `
			SELECT id, organization_id, order_id, sku, warehouse_id, quantity_reserved, released_at, created_at
			FROM reservations
			WHERE id = $1 AND organization_id = $2
			FOR UPDATE
		`, id, orgID).Scan(
			&res.ID, &res.OrganizationID, &res.OrderID, &res.SKU,
			&res.WarehouseID, &res.QuantityReserved, &res.ReleasedAt, &res.CreatedAt,
		)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, model.ErrReservationNotFound
			}
			return nil, fmt.Errorf("failed to lock reservation: %w", err)
		}

		if res.ReleasedAt != nil {
			return nil, model.ErrReservationReleased
		}

		item, err := lockInventoryRow(ctx, tx, orgID, res.WarehouseID, res.SKU, false)
		if err != nil {
			return nil, err
		}

		reserved := item.ReservedQuantity - res.QuantityReserved
		if reserved < 0 {
			reserved = 0
		}
		quantity := item.Quantity
		if mode == model.ReleaseShipment {
			quantity -= res.QuantityReserved
			if quantity < 0 {
				quantity = 0
			}
		}

		if _, err := tx.Exec(ctx,
			`UPDATE inventory_items SET quantity = $2, reserved_quantity = $3, updated_at = NOW() WHERE id = $1`,
			item.ID, quantity, reserved); err != nil {
			return nil, fmt.Errorf("failed to release reserved quantity: %w", err)
		}

		now := time.Now()
		res.ReleasedAt = &now
		if _, err := tx.Exec(ctx,
			`UPDATE reservations SET released_at = $2 WHERE id = $1`,
			res.ID, now); err != nil {
			return nil, fmt.Errorf("failed to close reservation: %w", err)
		}

		return &res, nil
	})
}

// ========================================
// AUDIT LOG
// ========================================

func (r *postgresRepository) AppendAudit(ctx context.Context, entry *model.AuditLogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal audit metadata: %w", err)
	}

	query := `
		INSERT INTO inventory_audit_log (
			id, organization_id, warehouse_id, user_id, sku, action,
			previous_quantity, new_quantity, variance, variance_percent,
			reason_code, notes, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at
	`

	err = r.pool.QueryRow(ctx, query,
		entry.ID, entry.OrganizationID, entry.WarehouseID, entry.UserID,
		entry.SKU, entry.Action,
		entry.PreviousQuantity, entry.NewQuantity, entry.Variance, entry.VariancePercent,
		entry.ReasonCode, entry.Notes, metadata,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	return nil
}

func (r *postgresRepository) ListAudit(ctx context.Context, orgID string, req model.ListAuditRequest) ([]model.AuditLogEntry, int, model.AuditStats, error) {
	queryBuilder := `
		SELECT
			id, organization_id, warehouse_id, user_id, sku, action,
			previous_quantity, new_quantity, variance, variance_percent,
			reason_code, notes, metadata, created_at
		FROM inventory_audit_log
		WHERE organization_id = $1
	`
	countQuery := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE action IN ('ADJUSTMENT', 'CYCLE_COUNT')),
			COUNT(*) FILTER (WHERE action = 'TRANSFER')
		FROM inventory_audit_log
		WHERE organization_id = $1
	`

	args := []interface{}{orgID}
	argCount := 2

	if req.WarehouseID != nil {
		queryBuilder += fmt.Sprintf(" AND warehouse_id = $%d", argCount)
		countQuery += fmt.Sprintf(" AND warehouse_id = $%d", argCount)
		args = append(args, *req.WarehouseID)
		argCount++
	}
	if req.SKU != nil {
		queryBuilder += fmt.Sprintf(" AND sku = $%d", argCount)
		countQuery += fmt.Sprintf(" AND sku = $%d", argCount)
		args = append(args, *req.SKU)
		argCount++
	}
	if req.StartDate != nil {
		queryBuilder += fmt.Sprintf(" AND created_at >= $%d", argCount)
		countQuery += fmt.Sprintf(" AND created_at >= $%d", argCount)
		args = append(args, *req.StartDate)
		argCount++
	}
	if req.EndDate != nil {
		queryBuilder += fmt.Sprintf(" AND created_at <= $%d", argCount)
		countQuery += fmt.Sprintf(" AND created_at <= $%d", argCount)
		args = append(args, *req.EndDate)
		argCount++
	}

	var stats model.AuditStats
	err := r.pool.QueryRow(ctx, countQuery, args...).Scan(
		&stats.TotalEntries, &stats.AdjustedCount, &stats.TransferCount,
	)
	if err != nil {
		return nil, 0, stats, fmt.Errorf("failed to count audit entries: %w", err)
	}

	queryBuilder += " ORDER BY created_at DESC"
	queryBuilder += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, req.PageSize, (req.Page-1)*req.PageSize)

	rows, err := r.pool.Query(ctx, queryBuilder, args...)
	if err != nil {
		return nil, 0, stats, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]model.AuditLogEntry, 0, req.PageSize)
	for rows.Next() {
		var entry model.AuditLogEntry
		var metadata []byte
		if err := rows.Scan(
			&entry.ID, &entry.OrganizationID, &entry.WarehouseID, &entry.UserID,
			&entry.SKU, &entry.Action,
			&entry.PreviousQuantity, &entry.NewQuantity, &entry.Variance, &entry.VariancePercent,
			&entry.ReasonCode, &entry.Notes, &metadata, &entry.CreatedAt,
		); err != nil {
			return nil, 0, stats, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if len(metadata) > 0 {
			_ = json.Unmarshal(metadata, &entry.Metadata)
		}
		entries = append(entries, entry)
	}

	return entries, stats.TotalEntries, stats, rows.Err()
}
