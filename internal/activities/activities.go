package activities

import (
	"context"
	"errors"
	"fmt"

	"github.com/databayt/mkan-sub001/internal/database"
	"github.com/databayt/mkan-sub001/internal/events"
	"github.com/databayt/mkan-sub001/internal/models"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
)

// BookingStore is the persistence the payment window activities need
type BookingStore interface {
	ExpireBooking(ctx context.Context, id int64, reason string) (bool, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
}

// SeatNotifier is told when expired seats become available again
type SeatNotifier interface {
	BroadcastBookingReleased(tripID int64, reference string, seatNumbers []string, expired bool)
}

// Activities holds the dependencies of the payment window activities
type Activities struct {
	store     BookingStore
	publisher events.Publisher
	notifier  SeatNotifier
}

// NewActivities creates a new Activities instance. A nil publisher drops
// events and a nil notifier skips live updates.
func NewActivities(store BookingStore, publisher events.Publisher, notifier SeatNotifier) *Activities {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Activities{store: store, publisher: publisher, notifier: notifier}
}

// ExpireBooking releases the seats of a booking whose payment window ran out.
// Bookings that were paid, confirmed or cancelled in the meantime are left
// alone.
func (a *Activities) ExpireBooking(ctx context.Context, input models.ExpireBookingInput) (*models.ExpireBookingResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Expiring booking", "bookingId", input.BookingID, "reason", input.Reason)

	expired, err := a.store.ExpireBooking(ctx, input.BookingID, input.Reason)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, temporal.NewNonRetryableApplicationError(
				fmt.Sprintf("booking %d not found", input.BookingID), "NotFound", err)
		}
		return nil, fmt.Errorf("failed to expire booking: %w", err)
	}

	b, err := a.store.GetBooking(ctx, input.BookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}

	if !expired {
		logger.Info("Booking no longer expirable", "bookingId", b.ID, "status", b.Status, "paymentStatus", b.PaymentStatus)
		return &models.ExpireBookingResult{Status: b.Status}, nil
	}

	if err := a.publisher.Publish(ctx, events.NewEvent(events.TypeBookingExpired, b)); err != nil {
		logger.Warn("Failed to publish event", "bookingId", b.ID, "error", err)
	}
	if a.notifier != nil {
		a.notifier.BroadcastBookingReleased(b.TripID, b.BookingReference, b.SeatNumbers, true)
	}

	logger.Info("Booking expired, seats released", "bookingId", b.ID, "seats", b.SeatNumbers)
	return &models.ExpireBookingResult{Expired: true, Status: b.Status}, nil
}
