package service

import (
	"context"
	"fmt"
	"time"

	"github.com/databayt/mkan-sub001/internal/models"
	"go.temporal.io/sdk/client"
)

const (
	TaskQueue = "bus-booking-queue"

	// PaymentWindowWorkflow is the registered name of the workflow
	PaymentWindowWorkflow = models.WorkflowPaymentWindow

	DefaultPaymentWindow = 15 * time.Minute
)

// TemporalScheduler runs payment windows as Temporal workflows
type TemporalScheduler struct {
	client    client.Client
	taskQueue string
	window    time.Duration
}

// NewTemporalScheduler creates a scheduler on the given task queue
func NewTemporalScheduler(c client.Client, taskQueue string, window time.Duration) *TemporalScheduler {
	if taskQueue == "" {
		taskQueue = TaskQueue
	}
	if window <= 0 {
		window = DefaultPaymentWindow
	}
	return &TemporalScheduler{client: c, taskQueue: taskQueue, window: window}
}

// StartPaymentWindow starts the workflow that expires the booking if it is
// not paid in time
func (s *TemporalScheduler) StartPaymentWindow(ctx context.Context, bookingID int64) error {
	workflowOptions := client.StartWorkflowOptions{
		ID:        models.PaymentWindowWorkflowID(bookingID),
		TaskQueue: s.taskQueue,
	}
	input := models.PaymentWindowInput{
		BookingID:     bookingID,
		PaymentWindow: s.window,
	}

	if _, err := s.client.ExecuteWorkflow(ctx, workflowOptions, PaymentWindowWorkflow, input); err != nil {
		return fmt.Errorf("failed to start workflow: %w", err)
	}
	return nil
}

// PaymentProcessed closes the payment window of a booking
func (s *TemporalScheduler) PaymentProcessed(ctx context.Context, bookingID int64, signal models.PaymentProcessedSignal) error {
	workflowID := models.PaymentWindowWorkflowID(bookingID)
	return s.client.SignalWorkflow(ctx, workflowID, "", models.SignalPaymentProcessed, signal)
}

// PaymentWindowState queries the workflow for the current window state
func (s *TemporalScheduler) PaymentWindowState(ctx context.Context, bookingID int64) (*models.PaymentWindowState, error) {
	workflowID := models.PaymentWindowWorkflowID(bookingID)

	response, err := s.client.QueryWorkflow(ctx, workflowID, "", models.QueryGetState)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoPaymentWindow, err)
	}

	var state models.PaymentWindowState
	if err := response.Get(&state); err != nil {
		return nil, fmt.Errorf("failed to decode workflow state: %w", err)
	}
	return &state, nil
}

// CancelPaymentWindow stops the payment window of a booking released before
// its timer fired
func (s *TemporalScheduler) CancelPaymentWindow(ctx context.Context, bookingID int64) error {
	workflowID := models.PaymentWindowWorkflowID(bookingID)
	if err := s.client.CancelWorkflow(ctx, workflowID, ""); err != nil {
		return fmt.Errorf("failed to cancel workflow %s: %w", workflowID, err)
	}
	return nil
}
