package main

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/mahmoudtohamy2025/rappit-core/internal/shared/events"
	"github.com/mahmoudtohamy2025/rappit-core/pkg/container"
	"github.com/mahmoudtohamy2025/rappit-core/pkg/logger"
)

func registerHandlers(mux *asynq.ServeMux, c *container.Container) {
	mux.HandleFunc(taskExecuteDueTransfers, func(ctx context.Context, t *asynq.Task) error {
		executed, err := c.TransferService.ExecuteDueTransfers(ctx, 50)
		if err != nil {
			return err
		}
		if executed > 0 {
			logger.Info("executed due scheduled transfers", map[string]interface{}{
				"count": executed,
			})
		}
		return nil
	})

	mux.HandleFunc(events.TypeMovementCompleted, func(ctx context.Context, t *asynq.Task) error {
		var payload events.MovementCompletedPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return err
		}
		logger.Info("movement completed", map[string]interface{}{
			"organization_id": payload.OrganizationID,
			"movement_id":     payload.MovementID,
			"sku":             payload.SKU,
			"type":            payload.Type,
		})
		return nil
	})

	transferEvent := func(ctx context.Context, t *asynq.Task) error {
		var payload events.TransferEventPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return err
		}
		logger.Info(t.Type(), map[string]interface{}{
			"organization_id": payload.OrganizationID,
			"transfer_id":     payload.TransferID,
			"status":          payload.Status,
		})
		return nil
	}
	mux.HandleFunc(events.TypeTransferRequested, transferEvent)
	mux.HandleFunc(events.TypeTransferApproved, transferEvent)
	mux.HandleFunc(events.TypeTransferRejected, transferEvent)
	mux.HandleFunc(events.TypeTransferCompleted, transferEvent)

	// Notification delivery goes through the external mailer surface; the
	// worker only records the fan-out here.
	notification := func(ctx context.Context, t *asynq.Task) error {
		var payload events.NotificationPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return err
		}
		logger.Info(t.Type(), map[string]interface{}{
			"organization_id": payload.OrganizationID,
			"recipients":      len(payload.Recipients),
			"subject":         payload.Subject,
		})
		return nil
	}
	mux.HandleFunc(events.TypeNotificationSend, notification)
	mux.HandleFunc(events.TypeNotificationBatch, notification)
}
