package model

import (
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// =====================================================
// MOVEMENT REQUESTS
// =====================================================

type CreateMovementRequest struct {
	WarehouseID       uuid.UUID    `json:"warehouse_id" binding:"required"`
	SKU               string       `json:"sku" binding:"required"`
	Quantity          int          `json:"quantity" binding:"required"`
	Type              MovementType `json:"type" binding:"required"`
	Reason            string       `json:"reason" binding:"required"`
	ReferenceType     *string      `json:"reference_type,omitempty"`
	ReferenceID       *string      `json:"reference_id,omitempty"`
	TargetWarehouseID *uuid.UUID   `json:"target_warehouse_id,omitempty"`
}

func (req CreateMovementRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.SKU, validation.Required, validation.Length(1, 128)),
		validation.Field(&req.Quantity, validation.Required, validation.Min(1), validation.Max(MaxMovementQuantity)),
		validation.Field(&req.Type, validation.Required, validation.In(
			MovementReceive, MovementShip, MovementReturn,
			MovementTransferOut, MovementTransferIn,
			MovementAdjustmentAdd, MovementAdjustmentRemove, MovementDamage,
		)),
		validation.Field(&req.Reason, validation.Required),
	)
}

type CancelMovementRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (req CancelMovementRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Reason, validation.Required),
	)
}

type ListMovementsRequest struct {
	Type        *MovementType   `form:"type"`
	Status      *MovementStatus `form:"status"`
	WarehouseID *uuid.UUID      `form:"warehouseId"`
	SKU         *string         `form:"skuId"`
	StartDate   *time.Time      `form:"startDate" time_format:"2006-01-02"`
	EndDate     *time.Time      `form:"endDate" time_format:"2006-01-02"`
	Page        int             `form:"page,default=1"`
	PageSize    int             `form:"pageSize,default=20"`
}

type MovementStats struct {
	TotalMovements int `json:"total_movements"`
	TotalInbound   int `json:"total_inbound"`
	TotalOutbound  int `json:"total_outbound"`
	PendingCount   int `json:"pending_count"`
}

type ListMovementsResponse struct {
	Items      []StockMovement `json:"items"`
	Stats      MovementStats   `json:"stats"`
	TotalItems int             `json:"total_items"`
	TotalPages int             `json:"total_pages"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
}

// =====================================================
// STOCK UPDATES (absolute / adjustment)
// =====================================================

type UpdateMode string

const (
	UpdateModeAbsolute   UpdateMode = "ABSOLUTE"
	UpdateModeAdjustment UpdateMode = "ADJUSTMENT"
)

type VarianceLevel string

const (
	VarianceOK      VarianceLevel = "OK"
	VarianceWarning VarianceLevel = "WARNING"
	VarianceError   VarianceLevel = "ERROR"
)

// VarianceThresholds controls variance tagging and auto-approval.
type VarianceThresholds struct {
	WarningPercent     float64
	ErrorPercent       float64
	AutoApprovePercent float64
}

func DefaultVarianceThresholds() VarianceThresholds {
	return VarianceThresholds{
		WarningPercent:     10,
		ErrorPercent:       25,
		AutoApprovePercent: 100,
	}
}

// ComputeVariance derives variance and percent against the previous quantity.
// The divisor floors at 1 so a zero baseline still yields a finite percent.
func ComputeVariance(previous, next int) (variance int, percent float64) {
	variance = next - previous
	base := previous
	if base < 1 {
		base = 1
	}
	percent = 100 * float64(variance) / float64(base)
	return variance, percent
}

// LevelFor tags a variance percent against the thresholds.
func (t VarianceThresholds) LevelFor(percent float64) VarianceLevel {
	abs := percent
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs < t.WarningPercent:
		return VarianceOK
	case abs < t.ErrorPercent:
		return VarianceWarning
	default:
		return VarianceError
	}
}

// RequiresApproval reports whether the variance exceeds the auto-approve
// threshold and must be held for manual review.
func (t VarianceThresholds) RequiresApproval(percent float64) bool {
	abs := percent
	if abs < 0 {
		abs = -abs
	}
	return abs > t.AutoApprovePercent
}

type StockUpdateRequest struct {
	WarehouseID uuid.UUID  `json:"warehouse_id" binding:"required"`
	SKU         string     `json:"sku" binding:"required"`
	Mode        UpdateMode `json:"mode" binding:"required"`
	Quantity    int        `json:"quantity"`
	ReasonCode  string     `json:"reason_code" binding:"required"`
	Notes       string     `json:"notes,omitempty"`
}

func (req StockUpdateRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.SKU, validation.Required),
		validation.Field(&req.Mode, validation.Required, validation.In(UpdateModeAbsolute, UpdateModeAdjustment)),
		validation.Field(&req.ReasonCode, validation.Required),
	)
}

type StockUpdateResult struct {
	WarehouseID      uuid.UUID     `json:"warehouse_id"`
	SKU              string        `json:"sku"`
	PreviousQuantity int           `json:"previous_quantity"`
	NewQuantity      int           `json:"new_quantity"`
	Variance         int           `json:"variance"`
	VariancePercent  float64       `json:"variance_percent"`
	VarianceLevel    VarianceLevel `json:"variance_level"`
	RequiresApproval bool          `json:"requires_approval"`
	Applied          bool          `json:"applied"`
	Error            string        `json:"error,omitempty"`
}

type BulkUpdateMode string

const (
	BulkAtomic     BulkUpdateMode = "ATOMIC"
	BulkBestEffort BulkUpdateMode = "BEST_EFFORT"
)

type BulkUpdateRequest struct {
	Mode  BulkUpdateMode       `json:"mode" binding:"required"`
	Items []StockUpdateRequest `json:"items" binding:"required,min=1"`
}

type BulkUpdateResponse struct {
	Mode      BulkUpdateMode      `json:"mode"`
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
	Results   []StockUpdateResult `json:"results"`
}

// =====================================================
// RESERVATIONS
// =====================================================

type ReserveStockRequest struct {
	OrderID     uuid.UUID `json:"order_id" binding:"required"`
	WarehouseID uuid.UUID `json:"warehouse_id" binding:"required"`
	SKU         string    `json:"sku" binding:"required"`
	Quantity    int       `json:"quantity" binding:"required"`
}

func (req ReserveStockRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.SKU, validation.Required),
		validation.Field(&req.Quantity, validation.Required, validation.Min(1)),
	)
}

// =====================================================
// AUDIT
// =====================================================

type ListAuditRequest struct {
	WarehouseID *uuid.UUID `form:"warehouseId"`
	SKU         *string    `form:"skuId"`
	StartDate   *time.Time `form:"startDate" time_format:"2006-01-02"`
	EndDate     *time.Time `form:"endDate" time_format:"2006-01-02"`
	Page        int        `form:"page,default=1"`
	PageSize    int        `form:"pageSize,default=20"`
}

type AuditStats struct {
	TotalEntries  int `json:"total_entries"`
	AdjustedCount int `json:"adjusted_count"`
	TransferCount int `json:"transfer_count"`
}

type ListAuditResponse struct {
	Items      []AuditLogEntry `json:"items"`
	Stats      AuditStats      `json:"stats"`
	TotalItems int             `json:"total_items"`
	TotalPages int             `json:"total_pages"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
}

// =====================================================
// SANITIZATION
// =====================================================

var (
	scriptBlockPattern = regexp.MustCompile(`(?is)<script.*?>.*?</script>`)
	htmlTagPattern     = regexp.MustCompile(`<[^>]*>`)
)

// SanitizeReason strips script blocks first, then any remaining HTML tags,
// and trims whitespace.
func SanitizeReason(reason string) string {
	cleaned := scriptBlockPattern.ReplaceAllString(reason, "")
	cleaned = htmlTagPattern.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}
