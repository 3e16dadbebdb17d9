package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mahmoudtohamy2025/rappit-core/internal/domains/shipping/model"
	"github.com/mahmoudtohamy2025/rappit-core/pkg/crypto"
)

// RepositoryInterface loads shipping accounts with their credentials
// transparently decrypted, and records re-auth flags on credential failures.
type RepositoryInterface interface {
	GetByID(ctx context.Context, orgID string, id uuid.UUID) (*model.ShippingAccount, error)
	MarkNeedsReauth(ctx context.Context, orgID string, id uuid.UUID) error
}

type postgresRepository struct {
	pool      *pgxpool.Pool
	encryptor *crypto.Encryptor
}

func NewRepository(pool *pgxpool.Pool, encryptor *crypto.Encryptor) RepositoryInterface {
	return &postgresRepository{pool: pool, encryptor: encryptor}
}

func (r *postgresRepository) GetByID(ctx context.Context, orgID string, id uuid.UUID) (*model.ShippingAccount, error) {
	query := `
		SELECT id, organization_id, carrier, account_number, test_mode,
		       credentials, status, created_at, updated_at
		FROM shipping_accounts
		WHERE id = $1 AND organization_id = $2
	`

	var account model.ShippingAccount
	var encrypted string
	err := r.pool.QueryRow(ctx, query, id, orgID).Scan(
		&account.ID, &account.OrganizationID, &account.Carrier,
		&account.AccountNumber, &account.TestMode,
		&encrypted, &account.Status, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get shipping account: %w", err)
	}

	plaintext, err := r.encryptor.DecryptFromString(encrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credentials: %w", err)
	}
	if err := json.Unmarshal(plaintext, &account.Credentials); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}

	return &account, nil
}

func (r *postgresRepository) MarkNeedsReauth(ctx context.Context, orgID string, id uuid.UUID) error {
	query := `
		UPDATE shipping_accounts
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND organization_id = $2
	`

	if _, err := r.pool.Exec(ctx, query, id, orgID, model.AccountNeedsReauth); err != nil {
		return fmt.Errorf("failed to mark account for re-auth: %w", err)
	}
	return nil
}
