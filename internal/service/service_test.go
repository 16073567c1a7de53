package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/databayt/mkan-sub001/internal/database"
	"github.com/databayt/mkan-sub001/internal/events"
	"github.com/databayt/mkan-sub001/internal/models"
	"github.com/databayt/mkan-sub001/internal/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeStore keeps bookings in memory with the repository's transition rules
type fakeStore struct {
	mu       sync.Mutex
	trip     models.Trip
	taken    map[string]bool
	bookings map[int64]*models.Booking
	payments []database.Payment
	nextID   int64

	createErr  error
	recordErr  error
	confirmErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		trip:     models.Trip{ID: 7, Origin: "Khartoum", Destination: "Port Sudan", Price: 1500, Currency: "SDG"},
		taken:    map[string]bool{"B2": true},
		bookings: make(map[int64]*models.Booking),
		nextID:   42,
	}
}

func (f *fakeStore) ListTrips(context.Context) ([]models.Trip, error) {
	return []models.Trip{f.trip}, nil
}

func (f *fakeStore) GetTrip(_ context.Context, id int64) (*models.Trip, error) {
	if id != f.trip.ID {
		return nil, database.ErrNotFound
	}
	t := f.trip
	return &t, nil
}

func (f *fakeStore) GetTripSeats(context.Context, int64) ([]models.Seat, error) {
	return []models.Seat{
		{SeatNumber: "A1", Status: models.SeatStatusAvailable},
		{SeatNumber: "B2", Status: models.SeatStatusBooked},
	}, nil
}

func (f *fakeStore) CreateBooking(_ context.Context, req models.CreateBookingRequest) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	if req.TripID != f.trip.ID {
		return nil, database.ErrNotFound
	}
	for _, n := range req.SeatNumbers {
		if f.taken[n] {
			return nil, &database.SeatUnavailableError{SeatNumber: n}
		}
	}
	for _, n := range req.SeatNumbers {
		f.taken[n] = true
	}
	b := &models.Booking{
		ID:               f.nextID,
		BookingReference: models.FormatBookingReference(f.nextID),
		TripID:           req.TripID,
		SeatNumbers:      req.SeatNumbers,
		PassengerName:    req.PassengerName,
		PassengerPhone:   req.PassengerPhone,
		Status:           models.BookingStatusPending,
		PaymentStatus:    models.PaymentStatusUnpaid,
		TotalAmount:      f.trip.Price * float64(len(req.SeatNumbers)),
	}
	f.bookings[b.ID] = b
	f.nextID++
	return copyBooking(b), nil
}

func (f *fakeStore) RecordPayment(_ context.Context, p *database.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return f.recordErr
	}
	b, ok := f.bookings[p.BookingID]
	if !ok {
		return database.ErrNotFound
	}
	state := database.BookingState{BookingID: b.ID, Status: b.Status, PaymentStatus: b.PaymentStatus}
	if !state.AcceptsPayment() {
		return database.ErrInvalidTransition
	}
	f.payments = append(f.payments, *p)
	b.PaymentMethod = p.Method
	b.PaymentStatus = p.Status
	return nil
}

func (f *fakeStore) ConfirmBooking(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.confirmErr != nil {
		return f.confirmErr
	}
	b, ok := f.bookings[id]
	switch {
	case !ok:
		return database.ErrNotFound
	case b.Status == models.BookingStatusConfirmed:
		return nil
	case b.Status != models.BookingStatusPending || b.PaymentStatus != models.PaymentStatusPaid:
		return database.ErrInvalidTransition
	}
	b.Status = models.BookingStatusConfirmed
	return nil
}

func (f *fakeStore) CancelBooking(_ context.Context, id int64, status models.BookingStatus, reason string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return false, database.ErrNotFound
	}
	if b.Status != models.BookingStatusPending {
		return false, nil
	}
	b.Status = status
	b.FailureReason = reason
	for _, n := range b.SeatNumbers {
		delete(f.taken, n)
	}
	return true, nil
}

func (f *fakeStore) MarkFollowUp(_ context.Context, id int64, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return database.ErrNotFound
	}
	b.Status = models.BookingStatusNeedsFollowUp
	b.FailureReason = reason
	return nil
}

func (f *fakeStore) GetBooking(_ context.Context, id int64) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return copyBooking(b), nil
}

func copyBooking(b *models.Booking) *models.Booking {
	c := *b
	c.SeatNumbers = append([]string(nil), b.SeatNumbers...)
	return &c
}

type mockScheduler struct {
	mock.Mock
}

func (m *mockScheduler) StartPaymentWindow(ctx context.Context, bookingID int64) error {
	return m.Called(ctx, bookingID).Error(0)
}

func (m *mockScheduler) PaymentProcessed(ctx context.Context, bookingID int64, signal models.PaymentProcessedSignal) error {
	return m.Called(ctx, bookingID, signal).Error(0)
}

func (m *mockScheduler) PaymentWindowState(ctx context.Context, bookingID int64) (*models.PaymentWindowState, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentWindowState), args.Error(1)
}

func (m *mockScheduler) CancelPaymentWindow(ctx context.Context, bookingID int64) error {
	return m.Called(ctx, bookingID).Error(0)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() {}

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type recordingNotifier struct {
	mu        sync.Mutex
	reserved  []string
	conflicts []string
	confirmed []string
	released  []string
}

func (n *recordingNotifier) BroadcastSeatsReserved(_ int64, seats []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reserved = append(n.reserved, seats...)
}

func (n *recordingNotifier) BroadcastSeatConflict(_ int64, seat string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.conflicts = append(n.conflicts, seat)
}

func (n *recordingNotifier) BroadcastBookingConfirmed(_ int64, ref string, _ []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmed = append(n.confirmed, ref)
}

func (n *recordingNotifier) BroadcastBookingReleased(_ int64, ref string, _ []string, _ bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.released = append(n.released, ref)
}

type failingProcessor struct {
	err error
}

func (p failingProcessor) Charge(context.Context, *payment.ChargeRequest) (*payment.ChargeResponse, error) {
	return nil, p.err
}

func (failingProcessor) Name() string { return "failing" }

type fixture struct {
	store     *fakeStore
	scheduler *mockScheduler
	publisher *recordingPublisher
	notifier  *recordingNotifier
	svc       *BookingService
}

func newFixture(t *testing.T, mobile payment.Processor) *fixture {
	t.Helper()
	registry := payment.NewRegistry()
	registry.Register(models.PaymentMethodCashOnArrival, payment.NewCashProcessor())
	if mobile != nil {
		registry.Register(models.PaymentMethodMobileMoney, mobile)
	}

	f := &fixture{
		store:     newFakeStore(),
		scheduler: new(mockScheduler),
		publisher: &recordingPublisher{},
		notifier:  &recordingNotifier{},
	}
	f.svc = NewBookingService(f.store, registry,
		WithScheduler(f.scheduler),
		WithPublisher(f.publisher),
		WithNotifier(f.notifier),
	)
	return f
}

func validRequest(seats ...string) models.CreateBookingRequest {
	return models.CreateBookingRequest{
		TripID:         7,
		SeatNumbers:    seats,
		PassengerName:  "Amna Osman",
		PassengerPhone: "+249912345678",
	}
}

func TestCreateBooking_Success(t *testing.T) {
	f := newFixture(t, nil)
	f.scheduler.On("StartPaymentWindow", mock.Anything, int64(42)).Return(nil)

	result, err := f.svc.CreateBooking(context.Background(), validRequest("A1", "A2"))

	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, int64(42), result.Booking.ID)
	assert.Equal(t, "BK-042", result.Booking.BookingReference)
	assert.Equal(t, 3000.0, result.Booking.TotalAmount)
	assert.Equal(t, []events.Type{events.TypeBookingCreated}, f.publisher.types())
	assert.Equal(t, []string{"A1", "A2"}, f.notifier.reserved)
	f.scheduler.AssertExpectations(t)
}

func TestCreateBooking_SchedulerFailureKeepsBooking(t *testing.T) {
	f := newFixture(t, nil)
	f.scheduler.On("StartPaymentWindow", mock.Anything, int64(42)).Return(errors.New("temporal down"))

	result, err := f.svc.CreateBooking(context.Background(), validRequest("A1"))

	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestCreateBooking_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		req     models.CreateBookingRequest
		wantErr string
	}{
		{"no seats", validRequest(), "At least one seat is required"},
		{"too many seats", validRequest("A1", "A2", "A3", "A4", "A5", "A6"), "At most 5 seats can be booked at once"},
		{"duplicate seat", validRequest("A1", "A1"), "Seat A1 was requested twice"},
		{"missing passenger", models.CreateBookingRequest{TripID: 7, SeatNumbers: []string{"A1"}}, "Passenger name and phone are required"},
		{"unknown trip", func() models.CreateBookingRequest { r := validRequest("A1"); r.TripID = 99; return r }(), "Trip not found"},
		{"seat taken", validRequest("A1", "B2"), "Seat B2 is no longer available"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)

			result, err := f.svc.CreateBooking(context.Background(), tt.req)

			require.NoError(t, err)
			assert.False(t, result.Success)
			assert.Equal(t, tt.wantErr, result.Error)
			assert.Empty(t, f.publisher.types())
			f.scheduler.AssertNotCalled(t, "StartPaymentWindow", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateBooking_SeatConflictIsBroadcast(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.CreateBooking(context.Background(), validRequest("B2"))

	require.NoError(t, err)
	assert.Equal(t, []string{"B2"}, f.notifier.conflicts)
}

func TestCreateBooking_StoreErrorIsNotExposed(t *testing.T) {
	f := newFixture(t, nil)
	f.store.createErr = errors.New("connection reset by peer")

	result, err := f.svc.CreateBooking(context.Background(), validRequest("A1"))

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Empty(t, result.Error)
}

func createBooking(t *testing.T, f *fixture, seats ...string) *models.Booking {
	t.Helper()
	f.scheduler.On("StartPaymentWindow", mock.Anything, mock.Anything).Return(nil).Maybe()
	result, err := f.svc.CreateBooking(context.Background(), validRequest(seats...))
	require.NoError(t, err)
	require.True(t, result.Success, result.Error)
	return result.Booking
}

func TestProcessPayment_CashIsDueOnBoarding(t *testing.T) {
	f := newFixture(t, nil)
	b := createBooking(t, f, "A1", "A2")
	f.scheduler.On("PaymentProcessed", mock.Anything, b.ID, models.PaymentProcessedSignal{
		Status:        models.PaymentStatusDueOnBoarding,
		TransactionID: "cash_42",
	}).Return(nil)

	result, err := f.svc.ProcessPayment(context.Background(), models.ProcessPaymentRequest{BookingID: b.ID}, models.PaymentMethodCashOnArrival)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, models.PaymentStatusDueOnBoarding, result.Status)
	require.Len(t, f.store.payments, 1)
	assert.Equal(t, 3000.0, f.store.payments[0].Amount)
	assert.Equal(t, "SDG", f.store.payments[0].Currency)
	assert.Contains(t, f.publisher.types(), events.TypeBookingPaid)
	f.scheduler.AssertExpectations(t)
}

func TestProcessPayment_IsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	b := createBooking(t, f, "A1")
	f.scheduler.On("PaymentProcessed", mock.Anything, b.ID, mock.Anything).Return(nil).Once()

	req := models.ProcessPaymentRequest{BookingID: b.ID}
	_, err := f.svc.ProcessPayment(context.Background(), req, models.PaymentMethodCashOnArrival)
	require.NoError(t, err)

	result, err := f.svc.ProcessPayment(context.Background(), req, models.PaymentMethodCashOnArrival)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Len(t, f.store.payments, 1, "second call must not charge again")
	f.scheduler.AssertExpectations(t)
}

func TestProcessPayment_Declined(t *testing.T) {
	declining := payment.NewMockProcessor("mobile", &payment.MockConfig{
		SuccessRate:    0,
		FailureReasons: []string{"insufficient_funds"},
	}, nil)
	f := newFixture(t, declining)
	b := createBooking(t, f, "A1")

	result, err := f.svc.ProcessPayment(context.Background(), models.ProcessPaymentRequest{BookingID: b.ID}, models.PaymentMethodMobileMoney)

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "Payment declined: insufficient_funds", result.Error)
	require.Len(t, f.store.payments, 1)
	assert.Equal(t, models.PaymentStatusFailed, f.store.payments[0].Status)
	f.scheduler.AssertNotCalled(t, "PaymentProcessed", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessPayment_ChargeErrorRecordsFailure(t *testing.T) {
	f := newFixture(t, failingProcessor{err: errors.New("gateway timeout")})
	b := createBooking(t, f, "A1")

	result, err := f.svc.ProcessPayment(context.Background(), models.ProcessPaymentRequest{BookingID: b.ID}, models.PaymentMethodMobileMoney)

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, models.PaymentStatusFailed, result.Status)
	require.Len(t, f.store.payments, 1)
	assert.Equal(t, "gateway timeout", f.store.payments[0].FailureReason)
}

func TestProcessPayment_RecordFailureRefunds(t *testing.T) {
	mobile := payment.NewMockProcessor("mobile", &payment.MockConfig{SuccessRate: 1}, nil)
	f := newFixture(t, mobile)
	b := createBooking(t, f, "A1")
	f.store.recordErr = errors.New("disk full")

	result, err := f.svc.ProcessPayment(context.Background(), models.ProcessPaymentRequest{BookingID: b.ID}, models.PaymentMethodMobileMoney)

	require.NoError(t, err)
	assert.False(t, result.Success)
	f.scheduler.AssertNotCalled(t, "PaymentProcessed", mock.Anything, mock.Anything, mock.Anything)
}

// expiringProcessor charges successfully while the payment window expires
// the booking underneath the charge
type expiringProcessor struct {
	store    *fakeStore
	refunded []string
}

func (p *expiringProcessor) Charge(_ context.Context, req *payment.ChargeRequest) (*payment.ChargeResponse, error) {
	p.store.mu.Lock()
	p.store.bookings[req.BookingID].Status = models.BookingStatusExpired
	p.store.mu.Unlock()
	return &payment.ChargeResponse{Success: true, Status: models.PaymentStatusPaid, TransactionID: "txn_late"}, nil
}

func (p *expiringProcessor) Refund(_ context.Context, transactionID string, _ float64) error {
	p.refunded = append(p.refunded, transactionID)
	return nil
}

func (*expiringProcessor) Name() string { return "expiring" }

func TestProcessPayment_ChargeAfterExpiryIsRefunded(t *testing.T) {
	proc := &expiringProcessor{}
	f := newFixture(t, proc)
	proc.store = f.store
	b := createBooking(t, f, "A1")

	result, err := f.svc.ProcessPayment(context.Background(), models.ProcessPaymentRequest{BookingID: b.ID}, models.PaymentMethodMobileMoney)

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, models.PaymentStatusFailed, result.Status)
	assert.Equal(t, []string{"txn_late"}, proc.refunded)

	stored, err := f.store.GetBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusExpired, stored.Status)
	assert.Equal(t, models.PaymentStatusUnpaid, stored.PaymentStatus)
	assert.Empty(t, f.store.payments)
	assert.NotContains(t, f.publisher.types(), events.TypeBookingPaid)
	f.scheduler.AssertNotCalled(t, "PaymentProcessed", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessPayment_Rejected(t *testing.T) {
	f := newFixture(t, nil)
	b := createBooking(t, f, "A1")

	result, err := f.svc.ProcessPayment(context.Background(), models.ProcessPaymentRequest{BookingID: 999}, models.PaymentMethodCashOnArrival)
	require.NoError(t, err)
	assert.Equal(t, "Booking not found", result.Error)

	result, err = f.svc.ProcessPayment(context.Background(), models.ProcessPaymentRequest{BookingID: b.ID}, models.PaymentMethodCard)
	require.NoError(t, err)
	assert.Equal(t, "Payment method is not supported", result.Error)

	f.scheduler.On("CancelPaymentWindow", mock.Anything, b.ID).Return(nil).Once()
	require.NoError(t, f.svc.CancelBooking(context.Background(), b.ID, "payment failed"))
	result, err = f.svc.ProcessPayment(context.Background(), models.ProcessPaymentRequest{BookingID: b.ID}, models.PaymentMethodCashOnArrival)
	require.NoError(t, err)
	assert.Equal(t, "Booking is no longer awaiting payment", result.Error)
}

func TestConfirmBooking(t *testing.T) {
	mobile := payment.NewMockProcessor("mobile", &payment.MockConfig{SuccessRate: 1}, nil)
	f := newFixture(t, mobile)
	b := createBooking(t, f, "A1", "A2")
	f.scheduler.On("PaymentProcessed", mock.Anything, b.ID, mock.Anything).Return(nil)

	paid, err := f.svc.ProcessPayment(context.Background(), models.ProcessPaymentRequest{BookingID: b.ID}, models.PaymentMethodMobileMoney)
	require.NoError(t, err)
	require.True(t, paid.Success)

	result, err := f.svc.ConfirmBooking(context.Background(), b.ID)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, []string{"BK-042"}, f.notifier.confirmed)
	assert.Equal(t, []events.Type{
		events.TypeBookingCreated,
		events.TypeBookingPaid,
		events.TypeBookingConfirmed,
	}, f.publisher.types())

	got, err := f.svc.GetBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, got.Status)
}

func TestConfirmBooking_Failures(t *testing.T) {
	f := newFixture(t, nil)
	b := createBooking(t, f, "A1")

	result, err := f.svc.ConfirmBooking(context.Background(), 999)
	require.NoError(t, err)
	assert.Equal(t, "Booking not found", result.Error)

	result, err = f.svc.ConfirmBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "Booking cannot be confirmed", result.Error, "unpaid booking")

	f.store.confirmErr = errors.New("deadlock detected")
	result, err = f.svc.ConfirmBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Empty(t, result.Error)
}

func TestConfirmCashBooking(t *testing.T) {
	f := newFixture(t, nil)
	b := createBooking(t, f, "A1")
	f.scheduler.On("PaymentProcessed", mock.Anything, b.ID, mock.Anything).Return(nil)

	_, err := f.svc.ConfirmCashBooking(context.Background(), b.ID)
	assert.ErrorIs(t, err, ErrNotCashBooking, "nothing is due yet")

	_, err = f.svc.ProcessPayment(context.Background(), models.ProcessPaymentRequest{BookingID: b.ID}, models.PaymentMethodCashOnArrival)
	require.NoError(t, err)

	got, err := f.svc.ConfirmCashBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, got.Status)
	assert.Equal(t, models.PaymentStatusPaid, got.PaymentStatus)

	again, err := f.svc.ConfirmCashBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, again.Status)

	_, err = f.svc.ConfirmCashBooking(context.Background(), 999)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestCancelBooking_ReleasesSeats(t *testing.T) {
	f := newFixture(t, nil)
	b := createBooking(t, f, "A1")
	f.scheduler.On("CancelPaymentWindow", mock.Anything, b.ID).Return(nil).Once()

	require.NoError(t, f.svc.CancelBooking(context.Background(), b.ID, "payment failed"))
	require.NoError(t, f.svc.CancelBooking(context.Background(), b.ID, "payment failed"))

	assert.Equal(t, []string{"BK-042"}, f.notifier.released, "second cancel is a no-op")
	assert.Equal(t, []events.Type{events.TypeBookingCreated, events.TypeBookingCancelled}, f.publisher.types())
	f.scheduler.AssertNumberOfCalls(t, "CancelPaymentWindow", 1)

	again := createBooking(t, f, "A1")
	assert.Equal(t, int64(43), again.ID, "seat is bookable again")
}

func TestCancelBooking_WindowCancelFailureIsLogged(t *testing.T) {
	f := newFixture(t, nil)
	b := createBooking(t, f, "A1")
	f.scheduler.On("CancelPaymentWindow", mock.Anything, b.ID).Return(errors.New("workflow not found"))

	require.NoError(t, f.svc.CancelBooking(context.Background(), b.ID, "payment failed"))

	stored, err := f.store.GetBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, stored.Status)
	assert.Equal(t, []string{"BK-042"}, f.notifier.released)
}

func TestCancelBooking_UnknownBooking(t *testing.T) {
	f := newFixture(t, nil)

	err := f.svc.CancelBooking(context.Background(), 999, "payment failed")

	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestFlagForFollowUp(t *testing.T) {
	f := newFixture(t, nil)
	b := createBooking(t, f, "A1")

	require.NoError(t, f.svc.FlagForFollowUp(context.Background(), b.ID, "confirmation failed"))

	got, err := f.svc.GetBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusNeedsFollowUp, got.Status)
	assert.Equal(t, "confirmation failed", got.FailureReason)
	assert.Contains(t, f.publisher.types(), events.TypeBookingFollowUp)

	assert.ErrorIs(t, f.svc.FlagForFollowUp(context.Background(), 999, "x"), database.ErrNotFound)
}

func TestGetTripSeats_UnknownTrip(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.GetTripSeats(context.Background(), 99)
	assert.ErrorIs(t, err, database.ErrNotFound)

	seats, err := f.svc.GetTripSeats(context.Background(), 7)
	require.NoError(t, err)
	assert.Len(t, seats, 2)
}

func TestGetPaymentWindow_WithoutScheduler(t *testing.T) {
	svc := NewBookingService(newFakeStore(), payment.NewRegistry())

	_, err := svc.GetPaymentWindow(context.Background(), 42)

	assert.ErrorIs(t, err, ErrNoPaymentWindow)
}
