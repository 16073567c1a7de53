package main

import (
	"context"
	"log"

	"github.com/databayt/mkan-sub001/internal/activities"
	"github.com/databayt/mkan-sub001/internal/config"
	"github.com/databayt/mkan-sub001/internal/database"
	"github.com/databayt/mkan-sub001/internal/events"
	"github.com/databayt/mkan-sub001/internal/logger"
	"github.com/databayt/mkan-sub001/internal/models"
	"github.com/databayt/mkan-sub001/internal/workflows"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.App.Environment, cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	// Connect to database
	zlog.Info("Connecting to database...")
	pool, err := database.Connect(ctx, cfg.Database.URL)
	if err != nil {
		zlog.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()
	zlog.Info("Connected to database")

	repo := database.NewRepository(pool)

	// Connect to Temporal
	zlog.Info("Connecting to Temporal...", zap.String("host", cfg.Temporal.Host))
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		zlog.Fatal("Failed to connect to Temporal", zap.Error(err))
	}
	defer c.Close()
	zlog.Info("Connected to Temporal")

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Kafka.Enabled() {
		kp, err := events.NewKafkaPublisher(events.KafkaConfig{
			Brokers:  cfg.Kafka.Brokers,
			Topic:    cfg.Kafka.Topic,
			ClientID: cfg.Kafka.ClientID + "-worker",
		}, zlog)
		if err != nil {
			zlog.Warn("Failed to create Kafka publisher, expiry events are dropped", zap.Error(err))
		} else {
			publisher = kp
		}
	}
	defer publisher.Close()

	// Create worker
	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflows
	w.RegisterWorkflowWithOptions(workflows.PaymentWindowWorkflow, workflow.RegisterOptions{Name: models.WorkflowPaymentWindow})

	// Seat watchers live in the API process; the released seats show up on
	// their next seat refresh.
	acts := activities.NewActivities(repo, publisher, nil)
	w.RegisterActivityWithOptions(acts.ExpireBooking, activity.RegisterOptions{Name: workflows.ExpireBookingActivity})

	// Start worker
	zlog.Info("Starting Temporal worker...", zap.String("taskQueue", cfg.Temporal.TaskQueue))
	if err := w.Run(worker.InterruptCh()); err != nil {
		zlog.Fatal("Worker failed", zap.Error(err))
	}
}
