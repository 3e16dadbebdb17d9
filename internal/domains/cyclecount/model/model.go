package model

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	invModel "github.com/mahmoudtohamy2025/rappit-core/internal/domains/inventory/model"
)

type SessionType string

const (
	SessionFull    SessionType = "FULL"
	SessionPartial SessionType = "PARTIAL"
)

type SessionStatus string

const (
	SessionInProgress SessionStatus = "IN_PROGRESS"
	SessionCompleted  SessionStatus = "COMPLETED"
)

var (
	ErrSessionNotFound  = errors.New("cycle count session not found")
	ErrSessionCompleted = errors.New("cycle count session is already completed")
	ErrSKUListRequired  = errors.New("partial sessions require a non-empty SKU list")
	ErrNoItemsInSession = errors.New("no inventory items in session scope")
	ErrSKUNotInSession  = errors.New("sku is not part of this session")
)

// Session is a durable cycle count. Counts accumulate by SKU (last write
// wins); completion applies every count as an absolute stock update.
type Session struct {
	ID             uuid.UUID      `json:"id"`
	OrganizationID string         `json:"organization_id"`
	WarehouseID    uuid.UUID      `json:"warehouse_id"`
	Type           SessionType    `json:"type"`
	IsBlind        bool           `json:"is_blind"`
	LockItems      bool           `json:"lock_items"`
	Status         SessionStatus  `json:"status"`
	ItemSKUs       []string       `json:"item_skus"`
	Counts         map[string]int `json:"counts"`
	CreatedBy      uuid.UUID      `json:"created_by"`
	CreatedAt      time.Time      `json:"created_at"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
}

func (s *Session) InScope(sku string) bool {
	for _, item := range s.ItemSKUs {
		if item == sku {
			return true
		}
	}
	return false
}

// =====================================================
// REQUESTS / RESPONSES
// =====================================================

type CreateSessionRequest struct {
	WarehouseID uuid.UUID   `json:"warehouse_id" binding:"required"`
	Type        SessionType `json:"type" binding:"required"`
	IsBlind     bool        `json:"is_blind"`
	LockItems   bool        `json:"lock_items"`
	SKUs        []string    `json:"skus,omitempty"`
}

func (req CreateSessionRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Type, validation.Required, validation.In(SessionFull, SessionPartial)),
	)
}

type CountEntry struct {
	SKU             string `json:"sku" binding:"required"`
	CountedQuantity int    `json:"counted_quantity"`
}

type SubmitCountsRequest struct {
	Counts []CountEntry `json:"counts" binding:"required,min=1"`
}

// SessionItem is a counting line. Expected quantity is withheld in blind mode.
type SessionItem struct {
	SKU      string `json:"sku"`
	Expected *int   `json:"expected,omitempty"`
}

type SessionResponse struct {
	Session *Session      `json:"session"`
	Items   []SessionItem `json:"items"`
}

type VarianceReportItem struct {
	SKU             string                 `json:"sku"`
	Expected        int                    `json:"expected"`
	Counted         int                    `json:"counted"`
	Variance        int                    `json:"variance"`
	VariancePercent float64                `json:"variance_percent"`
	VarianceLevel   invModel.VarianceLevel `json:"variance_level"`
}

type VarianceReport struct {
	SessionID         uuid.UUID            `json:"session_id"`
	TotalItems        int                  `json:"total_items"`
	ItemsWithVariance int                  `json:"items_with_variance"`
	TotalVariance     int                  `json:"total_variance"`
	AbsoluteVariance  int                  `json:"absolute_variance"`
	PerItem           []VarianceReportItem `json:"per_item"`
}

type CompletionResult struct {
	Session *Session                     `json:"session"`
	Applied []invModel.StockUpdateResult `json:"applied"`
}
