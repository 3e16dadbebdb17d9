package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/mahmoudtohamy2025/rappit-core/internal/shared/events"
	"github.com/mahmoudtohamy2025/rappit-core/pkg/container"
	"github.com/mahmoudtohamy2025/rappit-core/pkg/logger"
)

// taskExecuteDueTransfers is enqueued by the scheduler on a fixed cadence.
const taskExecuteDueTransfers = "transfer.execute_due"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	env := os.Getenv("NODE_ENV")
	if env == "" {
		env = "development"
	}
	logger.Init(env)

	appContainer, err := container.NewContainer()
	if err != nil {
		log.Fatalf("failed to initialize container: %v", err)
	}
	defer appContainer.Cleanup()

	redisOpt := asynq.RedisClientOpt{
		Addr:     appContainer.Config.Redis.Host,
		Password: appContainer.Config.Redis.Password,
		DB:       appContainer.Config.Redis.DB,
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			events.QueueInventory:     6,
			events.QueueNotifications: 3,
			"default":                 1,
		},
	})

	mux := asynq.NewServeMux()
	registerHandlers(mux, appContainer)

	scheduler := asynq.NewScheduler(redisOpt, nil)
	if _, err := scheduler.Register("@every 1m",
		asynq.NewTask(taskExecuteDueTransfers, nil),
		asynq.Queue(events.QueueInventory)); err != nil {
		log.Fatalf("failed to register due-transfer schedule: %v", err)
	}

	go func() {
		if err := scheduler.Run(); err != nil {
			log.Fatalf("scheduler failed: %v", err)
		}
	}()

	go func() {
		if err := srv.Run(mux); err != nil {
			log.Fatalf("worker failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down worker...")
	scheduler.Shutdown()
	srv.Shutdown()
	log.Println("worker exited")
}
