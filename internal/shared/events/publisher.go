package events

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/mahmoudtohamy2025/rappit-core/pkg/logger"
)

// Publisher enqueues domain events after the owning transaction has
// committed. Publish failures are logged, never propagated: consumers are
// eventually-consistent and the primary write has already succeeded.
type Publisher interface {
	Publish(taskType string, payload interface{}, queue string)
}

type asynqPublisher struct {
	client *asynq.Client
}

func NewPublisher(client *asynq.Client) Publisher {
	return &asynqPublisher{client: client}
}

func (p *asynqPublisher) Publish(taskType string, payload interface{}, queue string) {
	b, err := json.Marshal(payload)
	if err != nil {
		logger.Error("events: payload marshal failed for "+taskType, err)
		return
	}

	task := asynq.NewTask(taskType, b)
	if _, err := p.client.Enqueue(task, asynq.Queue(queue)); err != nil {
		logger.Error("events: enqueue failed for "+taskType, err)
	}
}

// NopPublisher discards events; used in tests.
type NopPublisher struct{}

func (NopPublisher) Publish(string, interface{}, string) {}
