package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mahmoudtohamy2025/rappit-core/internal/domains/channel/model"
)

// RepositoryInterface loads channels for webhook verification. Webhook
// endpoints are unauthenticated, so GetByID carries no tenant filter; the
// verifier derives the tenant from the channel row itself.
type RepositoryInterface interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Channel, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) RepositoryInterface {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Channel, error) {
	query := `
		SELECT id, organization_id, type, status, webhook_secret, created_at, updated_at
		FROM channels
		WHERE id = $1
	`

	var ch model.Channel
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&ch.ID, &ch.OrganizationID, &ch.Type, &ch.Status, &ch.WebhookSecret,
		&ch.CreatedAt, &ch.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrChannelNotFound
		}
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}

	return &ch, nil
}
