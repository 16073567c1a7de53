package workflows

import (
	"time"

	"github.com/databayt/mkan-sub001/internal/models"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	// DefaultPaymentWindow is how long an unpaid booking holds its seats
	DefaultPaymentWindow = 15 * time.Minute

	// ExpireBookingActivity is the registered name of the expiry activity
	ExpireBookingActivity = "ExpireBooking"

	expireReason = "payment window expired"
)

// PaymentWindowWorkflow holds the seats of a new booking until it is paid.
// A payment-processed signal with a settled status closes the window. A
// failed payment keeps it open. When the timer fires first the booking is
// expired and its seats are released.
func PaymentWindowWorkflow(ctx workflow.Context, input models.PaymentWindowInput) (*models.PaymentWindowResult, error) {
	logger := workflow.GetLogger(ctx)

	window := input.PaymentWindow
	if window <= 0 {
		window = DefaultPaymentWindow
	}

	state := models.PaymentWindowState{
		BookingID:     input.BookingID,
		ExpiresAt:     workflow.Now(ctx).Add(window),
		PaymentStatus: models.PaymentStatusUnpaid,
	}
	err := workflow.SetQueryHandler(ctx, models.QueryGetState, func() (models.PaymentWindowState, error) {
		return state, nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Payment window opened", "bookingId", input.BookingID, "window", window)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        time.Minute,
			MaximumAttempts:        5,
			NonRetryableErrorTypes: []string{"NotFound"},
		},
	})

	paymentCh := workflow.GetSignalChannel(ctx, models.SignalPaymentProcessed)
	timerCtx, cancelTimer := workflow.WithCancel(ctx)
	timer := workflow.NewTimer(timerCtx, window)

	for {
		var fired bool
		var timerErr error

		selector := workflow.NewSelector(ctx)
		selector.AddReceive(paymentCh, func(c workflow.ReceiveChannel, more bool) {
			var signal models.PaymentProcessedSignal
			c.Receive(ctx, &signal)
			state.PaymentStatus = signal.Status
			logger.Info("Payment processed", "bookingId", input.BookingID, "status", signal.Status)
		})
		selector.AddFuture(timer, func(f workflow.Future) {
			fired = true
			timerErr = f.Get(ctx, nil)
		})
		selector.Select(ctx)

		if state.PaymentStatus == models.PaymentStatusPaid || state.PaymentStatus == models.PaymentStatusDueOnBoarding {
			cancelTimer()
			state.Closed = true
			return &models.PaymentWindowResult{BookingID: input.BookingID}, nil
		}

		if !fired {
			continue
		}
		if timerErr != nil {
			// workflow cancelled
			return nil, timerErr
		}

		logger.Info("Payment window expired", "bookingId", input.BookingID)

		var result models.ExpireBookingResult
		err := workflow.ExecuteActivity(ctx, ExpireBookingActivity, models.ExpireBookingInput{
			BookingID: input.BookingID,
			Reason:    expireReason,
		}).Get(ctx, &result)
		if err != nil {
			logger.Error("Failed to expire booking", "bookingId", input.BookingID, "error", err)
			return nil, err
		}

		state.Closed = true
		out := &models.PaymentWindowResult{
			BookingID: input.BookingID,
			Expired:   result.Expired,
			Reason:    expireReason,
		}
		if !result.Expired {
			// paid, cancelled or confirmed elsewhere in the meantime
			out.Reason = "booking is " + string(result.Status)
		}
		return out, nil
	}
}
