package model

import (
	"time"

	"github.com/google/uuid"
)

type TransferType string

const (
	TransferImmediate TransferType = "IMMEDIATE"
	TransferPending   TransferType = "PENDING"
	TransferScheduled TransferType = "SCHEDULED"
)

type TransferStatus string

const (
	StatusPending   TransferStatus = "PENDING"
	StatusApproved  TransferStatus = "APPROVED"
	StatusInTransit TransferStatus = "IN_TRANSIT"
	StatusCompleted TransferStatus = "COMPLETED"
	StatusRejected  TransferStatus = "REJECTED"
	StatusCancelled TransferStatus = "CANCELLED"
	StatusFailed    TransferStatus = "FAILED"
)

// Active statuses block a second transfer on the same reservation.
func (s TransferStatus) Active() bool {
	return s == StatusPending || s == StatusApproved || s == StatusInTransit
}

type TransferPriority string

const (
	PriorityLow    TransferPriority = "LOW"
	PriorityNormal TransferPriority = "NORMAL"
	PriorityHigh   TransferPriority = "HIGH"
	PriorityUrgent TransferPriority = "URGENT"
)

// PriorityRank orders priorities for due-transfer scheduling.
func PriorityRank(p TransferPriority) int {
	switch p {
	case PriorityUrgent:
		return 3
	case PriorityHigh:
		return 2
	case PriorityNormal:
		return 1
	default:
		return 0
	}
}

// TransferRequest moves a reservation's stock between two warehouses of the
// same organization. At most one active transfer exists per reservation.
type TransferRequest struct {
	ID                uuid.UUID        `json:"id"`
	OrganizationID    string           `json:"organization_id"`
	ReservationID     uuid.UUID        `json:"reservation_id"`
	SourceWarehouseID uuid.UUID        `json:"source_warehouse_id"`
	TargetWarehouseID uuid.UUID        `json:"target_warehouse_id"`
	SKU               string           `json:"sku"`
	Quantity          int              `json:"quantity"`
	TransferType      TransferType     `json:"transfer_type"`
	Status            TransferStatus   `json:"status"`
	Priority          TransferPriority `json:"priority"`
	ScheduledAt       *time.Time       `json:"scheduled_at,omitempty"`
	Reason            string           `json:"reason"`
	RequestedBy       uuid.UUID        `json:"requested_by"`
	ApprovedBy        *uuid.UUID       `json:"approved_by,omitempty"`
	ApprovedAt        *time.Time       `json:"approved_at,omitempty"`
	RejectedBy        *uuid.UUID       `json:"rejected_by,omitempty"`
	RejectedAt        *time.Time       `json:"rejected_at,omitempty"`
	RejectionReason   *string          `json:"rejection_reason,omitempty"`
	Notes             *string          `json:"notes,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
	CompletedAt       *time.Time       `json:"completed_at,omitempty"`
}

// NotificationConfig controls per-tenant fan-out at event emission time.
type NotificationConfig struct {
	OrganizationID     string   `json:"organization_id"`
	NotifyOnRequest    bool     `json:"notify_on_request"`
	NotifyOnCompletion bool     `json:"notify_on_completion"`
	ManagerRecipients  []string `json:"manager_recipients"`
}

// DefaultNotificationConfig applies when a tenant has no stored record.
func DefaultNotificationConfig(orgID string) *NotificationConfig {
	return &NotificationConfig{
		OrganizationID:     orgID,
		NotifyOnRequest:    true,
		NotifyOnCompletion: true,
	}
}
