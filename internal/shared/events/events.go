package events

// Task type names routed through the asynq queues. Consumers live in
// cmd/worker.
const (
	TypeMovementCompleted = "movement.completed"
	TypeTransferRequested = "transfer.requested"
	TypeTransferApproved  = "transfer.approved"
	TypeTransferRejected  = "transfer.rejected"
	TypeTransferCompleted = "transfer.completed"
	TypeNotificationSend  = "notification.send"
	TypeNotificationBatch = "notification.batch"
)

// Queue names.
const (
	QueueInventory     = "inventory"
	QueueNotifications = "notifications"
)

type MovementCompletedPayload struct {
	OrganizationID string `json:"organization_id"`
	MovementID     string `json:"movement_id"`
	WarehouseID    string `json:"warehouse_id"`
	SKU            string `json:"sku"`
	Quantity       int    `json:"quantity"`
	Type           string `json:"type"`
}

type TransferEventPayload struct {
	OrganizationID    string `json:"organization_id"`
	TransferID        string `json:"transfer_id"`
	ReservationID     string `json:"reservation_id"`
	SourceWarehouseID string `json:"source_warehouse_id"`
	TargetWarehouseID string `json:"target_warehouse_id"`
	SKU               string `json:"sku"`
	Quantity          int    `json:"quantity"`
	Status            string `json:"status"`
}

type NotificationPayload struct {
	OrganizationID string   `json:"organization_id"`
	Recipients     []string `json:"recipients,omitempty"`
	Subject        string   `json:"subject"`
	Body           string   `json:"body"`
}
