package model

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrTransferNotFound covers missing and cross-tenant transfers alike.
	ErrTransferNotFound = errors.New("transfer not found")

	// ErrDuplicateActiveTransfer is returned when the reservation already has
	// a transfer in PENDING, APPROVED or IN_TRANSIT.
	ErrDuplicateActiveTransfer = errors.New("reservation already has an active transfer")

	// ErrTransferNotPending is returned when approving, rejecting,
	// rescheduling or cancelling a transfer that left PENDING.
	ErrTransferNotPending = errors.New("transfer is not pending")

	// ErrTransferNotApproved is returned when executing a transfer that is
	// not approved.
	ErrTransferNotApproved = errors.New("transfer is not approved")

	// ErrQuantityExceedsReservation is returned when the transfer quantity is
	// larger than the backing reservation.
	ErrQuantityExceedsReservation = errors.New("quantity exceeds reservation")

	// ErrSourceMismatch is returned when the source warehouse differs from
	// the reservation's warehouse.
	ErrSourceMismatch = errors.New("source warehouse does not match reservation")

	// ErrSameWarehouse is returned when source equals target.
	ErrSameWarehouse = errors.New("source and target warehouse must differ")

	// ErrScheduledInPast is returned when a SCHEDULED transfer is not dated
	// strictly in the future.
	ErrScheduledInPast = errors.New("scheduled_at must be in the future")

	// ErrScheduleRequired is returned when a SCHEDULED transfer omits scheduled_at.
	ErrScheduleRequired = errors.New("scheduled_at is required for scheduled transfers")

	// ErrRoleDenied is returned when the caller's role may not approve or reject.
	ErrRoleDenied = errors.New("role not permitted to approve or reject transfers")

	// ErrReasonRequired is returned when a reject omits the reason.
	ErrReasonRequired = errors.New("reason is required")

	// ErrReservationReleased is returned when creating a transfer for a
	// reservation that has already been released.
	ErrReservationReleased = errors.New("reservation has been released")
)

func NewTransferNotFoundError(id uuid.UUID) error {
	return fmt.Errorf("%w: id=%s", ErrTransferNotFound, id)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrQuantityExceedsReservation) ||
		errors.Is(err, ErrSourceMismatch) ||
		errors.Is(err, ErrSameWarehouse) ||
		errors.Is(err, ErrScheduledInPast) ||
		errors.Is(err, ErrScheduleRequired) ||
		errors.Is(err, ErrReasonRequired)
}

func IsStateError(err error) bool {
	return errors.Is(err, ErrTransferNotPending) ||
		errors.Is(err, ErrTransferNotApproved) ||
		errors.Is(err, ErrDuplicateActiveTransfer) ||
		errors.Is(err, ErrReservationReleased)
}
