package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

type CreateTransferRequest struct {
	ReservationID     uuid.UUID        `json:"reservationId" binding:"required"`
	SourceWarehouseID uuid.UUID        `json:"sourceWarehouseId" binding:"required"`
	TargetWarehouseID uuid.UUID        `json:"targetWarehouseId" binding:"required"`
	Quantity          int              `json:"quantity" binding:"required"`
	TransferType      TransferType     `json:"transferType" binding:"required"`
	Priority          TransferPriority `json:"priority,omitempty"`
	ScheduledAt       *time.Time       `json:"scheduledAt,omitempty"`
	Reason            string           `json:"reason" binding:"required"`
	Notes             *string          `json:"notes,omitempty"`
}

func (req CreateTransferRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Quantity, validation.Required, validation.Min(1)),
		validation.Field(&req.TransferType, validation.Required, validation.In(
			TransferImmediate, TransferPending, TransferScheduled,
		)),
		validation.Field(&req.Priority, validation.In(
			PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent,
		)),
		validation.Field(&req.Reason, validation.Required),
	)
}

type RejectTransferRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type RescheduleTransferRequest struct {
	ScheduledAt time.Time `json:"scheduledAt" binding:"required"`
}

type ListTransfersRequest struct {
	Status   *TransferStatus `form:"status"`
	Page     int             `form:"page,default=1"`
	PageSize int             `form:"pageSize,default=20"`
}
