package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mahmoudtohamy2025/rappit-core/internal/domains/cyclecount/model"
)

// RepositoryInterface persists cycle count sessions. Sessions are durable
// rows; counts live in a JSONB column merged on submission.
type RepositoryInterface interface {
	Create(ctx context.Context, s *model.Session) error
	GetByID(ctx context.Context, orgID string, id uuid.UUID) (*model.Session, error)
	MergeCounts(ctx context.Context, orgID string, id uuid.UUID, counts map[string]int) error
	Complete(ctx context.Context, orgID string, id uuid.UUID) error
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) RepositoryInterface {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) Create(ctx context.Context, s *model.Session) error {
	counts, err := json.Marshal(s.Counts)
	if err != nil {
		return fmt.Errorf("failed to marshal counts: %w", err)
	}

	query := `
		INSERT INTO cycle_count_sessions (
			id, organization_id, warehouse_id, type, is_blind, lock_items,
			status, item_skus, counts, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`

	err = r.pool.QueryRow(ctx, query,
		s.ID, s.OrganizationID, s.WarehouseID, s.Type, s.IsBlind, s.LockItems,
		s.Status, s.ItemSKUs, counts, s.CreatedBy,
	).Scan(&s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, orgID string, id uuid.UUID) (*model.Session, error) {
	query := `
		SELECT id, organization_id, warehouse_id, type, is_blind, lock_items,
		       status, item_skus, counts, created_by, created_at, completed_at
		FROM cycle_count_sessions
		WHERE id = $1 AND organization_id = $2
	`

	var s model.Session
	var counts []byte
	err := r.pool.QueryRow(ctx, query, id, orgID).Scan(
		&s.ID, &s.OrganizationID, &s.WarehouseID, &s.Type, &s.IsBlind, &s.LockItems,
		&s.Status, &s.ItemSKUs, &counts, &s.CreatedBy, &s.CreatedAt, &s.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	s.Counts = make(map[string]int)
	if len(counts) > 0 {
		if err := json.Unmarshal(counts, &s.Counts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal counts: %w", err)
		}
	}

	return &s, nil
}

// MergeCounts overlays the incoming counts onto the stored JSONB map; last
// write wins per SKU.
func (r *postgresRepository) MergeCounts(ctx context.Context, orgID string, id uuid.UUID, counts map[string]int) error {
	incoming, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("failed to marshal counts: %w", err)
	}

	query := `
		UPDATE cycle_count_sessions
		SET counts = counts || $3::jsonb
		WHERE id = $1 AND organization_id = $2 AND status = 'IN_PROGRESS'
	`

	result, err := r.pool.Exec(ctx, query, id, orgID, incoming)
	if err != nil {
		return fmt.Errorf("failed to merge counts: %w", err)
	}

	if result.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, orgID, id); err != nil {
			return err
		}
		return model.ErrSessionCompleted
	}

	return nil
}

func (r *postgresRepository) Complete(ctx context.Context, orgID string, id uuid.UUID) error {
	query := `
		UPDATE cycle_count_sessions
		SET status = 'COMPLETED', completed_at = NOW()
		WHERE id = $1 AND organization_id = $2 AND status = 'IN_PROGRESS'
	`

	result, err := r.pool.Exec(ctx, query, id, orgID)
	if err != nil {
		return fmt.Errorf("failed to complete session: %w", err)
	}

	if result.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, orgID, id); err != nil {
			return err
		}
		return model.ErrSessionCompleted
	}

	return nil
}
