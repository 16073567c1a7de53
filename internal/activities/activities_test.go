package activities

import (
	"context"
	"errors"
	"testing"

	"github.com/databayt/mkan-sub001/internal/database"
	"github.com/databayt/mkan-sub001/internal/events"
	"github.com/databayt/mkan-sub001/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
)

type fakeStore struct {
	bookings  map[int64]*models.Booking
	expireErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{bookings: map[int64]*models.Booking{
		42: {
			ID:               42,
			BookingReference: "BK-042",
			TripID:           7,
			SeatNumbers:      []string{"A1", "A2"},
			Status:           models.BookingStatusPending,
			PaymentStatus:    models.PaymentStatusUnpaid,
		},
	}}
}

func (f *fakeStore) ExpireBooking(_ context.Context, id int64, reason string) (bool, error) {
	if f.expireErr != nil {
		return false, f.expireErr
	}
	b, ok := f.bookings[id]
	if !ok {
		return false, database.ErrNotFound
	}
	state := database.BookingState{Status: b.Status, PaymentStatus: b.PaymentStatus}
	if !state.Releasable() {
		return false, nil
	}
	b.Status = models.BookingStatusExpired
	b.FailureReason = reason
	return true, nil
}

func (f *fakeStore) GetBooking(_ context.Context, id int64) (*models.Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	c := *b
	return &c, nil
}

type recordingPublisher struct {
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() {}

type recordingNotifier struct {
	released []string
	expired  bool
}

func (n *recordingNotifier) BroadcastBookingReleased(_ int64, _ string, seats []string, expired bool) {
	n.released = append(n.released, seats...)
	n.expired = expired
}

func runExpire(t *testing.T, a *Activities, input models.ExpireBookingInput) (*models.ExpireBookingResult, error) {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestActivityEnvironment()
	env.RegisterActivity(a.ExpireBooking)

	val, err := env.ExecuteActivity(a.ExpireBooking, input)
	if err != nil {
		return nil, err
	}
	var result models.ExpireBookingResult
	require.NoError(t, val.Get(&result))
	return &result, nil
}

func TestExpireBooking_ReleasesUnpaidBooking(t *testing.T) {
	store := newFakeStore()
	pub := &recordingPublisher{}
	notifier := &recordingNotifier{}
	a := NewActivities(store, pub, notifier)

	result, err := runExpire(t, a, models.ExpireBookingInput{BookingID: 42, Reason: "payment window expired"})

	require.NoError(t, err)
	assert.True(t, result.Expired)
	assert.Equal(t, models.BookingStatusExpired, result.Status)
	assert.Equal(t, "payment window expired", store.bookings[42].FailureReason)
	require.Len(t, pub.events, 1)
	assert.Equal(t, events.TypeBookingExpired, pub.events[0].Type)
	assert.Equal(t, []string{"A1", "A2"}, notifier.released)
	assert.True(t, notifier.expired)
}

func TestExpireBooking_LeavesSettledBookings(t *testing.T) {
	tests := []struct {
		name          string
		status        models.BookingStatus
		paymentStatus models.PaymentStatus
	}{
		{"paid", models.BookingStatusPending, models.PaymentStatusPaid},
		{"cash due on boarding", models.BookingStatusPending, models.PaymentStatusDueOnBoarding},
		{"confirmed", models.BookingStatusConfirmed, models.PaymentStatusPaid},
		{"cancelled", models.BookingStatusCancelled, models.PaymentStatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			store.bookings[42].Status = tt.status
			store.bookings[42].PaymentStatus = tt.paymentStatus
			pub := &recordingPublisher{}

			result, err := runExpire(t, NewActivities(store, pub, nil), models.ExpireBookingInput{BookingID: 42})

			require.NoError(t, err)
			assert.False(t, result.Expired)
			assert.Equal(t, tt.status, result.Status)
			assert.Empty(t, pub.events)
		})
	}
}

func TestExpireBooking_FailedPaymentIsReleased(t *testing.T) {
	store := newFakeStore()
	store.bookings[42].PaymentStatus = models.PaymentStatusFailed

	result, err := runExpire(t, NewActivities(store, nil, nil), models.ExpireBookingInput{BookingID: 42})

	require.NoError(t, err)
	assert.True(t, result.Expired)
}

func TestExpireBooking_NotFoundIsNonRetryable(t *testing.T) {
	_, err := runExpire(t, NewActivities(newFakeStore(), nil, nil), models.ExpireBookingInput{BookingID: 99})

	require.Error(t, err)
	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.True(t, appErr.NonRetryable())
	assert.Equal(t, "NotFound", appErr.Type())
}

func TestExpireBooking_StoreError(t *testing.T) {
	store := newFakeStore()
	store.expireErr = errors.New("connection reset")

	_, err := runExpire(t, NewActivities(store, nil, nil), models.ExpireBookingInput{BookingID: 42})

	assert.ErrorContains(t, err, "connection reset")
}
