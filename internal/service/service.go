package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/databayt/mkan-sub001/internal/database"
	"github.com/databayt/mkan-sub001/internal/events"
	"github.com/databayt/mkan-sub001/internal/models"
	"github.com/databayt/mkan-sub001/internal/payment"
	"github.com/databayt/mkan-sub001/internal/seating"
	"go.uber.org/zap"
)

var (
	ErrNotCashBooking  = errors.New("booking is not awaiting cash payment")
	ErrNoPaymentWindow = errors.New("no payment window for booking")
)

// Store is the persistence the booking service runs on
type Store interface {
	ListTrips(ctx context.Context) ([]models.Trip, error)
	GetTrip(ctx context.Context, id int64) (*models.Trip, error)
	GetTripSeats(ctx context.Context, tripID int64) ([]models.Seat, error)
	CreateBooking(ctx context.Context, req models.CreateBookingRequest) (*models.Booking, error)
	RecordPayment(ctx context.Context, p *database.Payment) error
	ConfirmBooking(ctx context.Context, id int64) error
	CancelBooking(ctx context.Context, id int64, status models.BookingStatus, reason string) (bool, error)
	MarkFollowUp(ctx context.Context, id int64, reason string) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
}

// Scheduler manages the server-side payment window of a booking
type Scheduler interface {
	StartPaymentWindow(ctx context.Context, bookingID int64) error
	PaymentProcessed(ctx context.Context, bookingID int64, signal models.PaymentProcessedSignal) error
	PaymentWindowState(ctx context.Context, bookingID int64) (*models.PaymentWindowState, error)
	CancelPaymentWindow(ctx context.Context, bookingID int64) error
}

// Notifier pushes seat changes to live trip watchers
type Notifier interface {
	BroadcastSeatsReserved(tripID int64, seatNumbers []string)
	BroadcastSeatConflict(tripID int64, seatNumber string)
	BroadcastBookingConfirmed(tripID int64, reference string, seatNumbers []string)
	BroadcastBookingReleased(tripID int64, reference string, seatNumbers []string, expired bool)
}

type nopScheduler struct{}

func (nopScheduler) StartPaymentWindow(context.Context, int64) error { return nil }

func (nopScheduler) PaymentProcessed(context.Context, int64, models.PaymentProcessedSignal) error {
	return nil
}

func (nopScheduler) PaymentWindowState(context.Context, int64) (*models.PaymentWindowState, error) {
	return nil, ErrNoPaymentWindow
}

func (nopScheduler) CancelPaymentWindow(context.Context, int64) error { return nil }

type nopNotifier struct{}

func (nopNotifier) BroadcastSeatsReserved(int64, []string) {}
func (nopNotifier) BroadcastSeatConflict(int64, string) {}
func (nopNotifier) BroadcastBookingConfirmed(int64, string, []string) {}
func (nopNotifier) BroadcastBookingReleased(int64, string, []string, bool) {}

// Option configures a BookingService
type Option func(*BookingService)

func WithScheduler(s Scheduler) Option {
	return func(svc *BookingService) { svc.scheduler = s }
}

func WithPublisher(p events.Publisher) Option {
	return func(svc *BookingService) { svc.publisher = p }
}

func WithNotifier(n Notifier) Option {
	return func(svc *BookingService) { svc.notifier = n }
}

func WithLogger(l *zap.Logger) Option {
	return func(svc *BookingService) { svc.logger = l }
}

// WithCurrency sets the ISO currency code charges are made in
func WithCurrency(c string) Option {
	return func(svc *BookingService) { svc.currency = strings.ToUpper(c) }
}

// BookingService executes the remote steps of a booking submission and
// serves the read side of the API
type BookingService struct {
	store     Store
	payments  *payment.Registry
	scheduler Scheduler
	publisher events.Publisher
	notifier  Notifier
	currency  string
	logger    *zap.Logger
}

// NewBookingService creates a new BookingService
func NewBookingService(store Store, payments *payment.Registry, opts ...Option) *BookingService {
	svc := &BookingService{
		store:     store,
		payments:  payments,
		scheduler: nopScheduler{},
		publisher: events.NopPublisher{},
		notifier:  nopNotifier{},
		currency:  "SDG",
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	svc.logger = svc.logger.Named("service")
	return svc
}

func (s *BookingService) ListTrips(ctx context.Context) ([]models.Trip, error) {
	return s.store.ListTrips(ctx)
}

func (s *BookingService) GetTrip(ctx context.Context, id int64) (*models.Trip, error) {
	return s.store.GetTrip(ctx, id)
}

func (s *BookingService) GetTripSeats(ctx context.Context, tripID int64) ([]models.Seat, error) {
	if _, err := s.store.GetTrip(ctx, tripID); err != nil {
		return nil, err
	}
	return s.store.GetTripSeats(ctx, tripID)
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return s.store.GetBooking(ctx, id)
}

// GetPaymentWindow returns the live payment window of a booking
func (s *BookingService) GetPaymentWindow(ctx context.Context, bookingID int64) (*models.PaymentWindowState, error) {
	return s.scheduler.PaymentWindowState(ctx, bookingID)
}

func validateCreate(req models.CreateBookingRequest) string {
	if req.TripID <= 0 {
		return "Trip is required"
	}
	if len(req.SeatNumbers) == 0 {
		return "At least one seat is required"
	}
	if len(req.SeatNumbers) > seating.MaxSeats {
		return fmt.Sprintf("At most %d seats can be booked at once", seating.MaxSeats)
	}
	seen := make(map[string]struct{}, len(req.SeatNumbers))
	for _, n := range req.SeatNumbers {
		if _, dup := seen[n]; dup {
			return "Seat " + n + " was requested twice"
		}
		seen[n] = struct{}{}
	}
	p := models.PassengerInfo{Name: req.PassengerName, Phone: req.PassengerPhone}
	if !p.Complete() {
		return "Passenger name and phone are required"
	}
	return ""
}

// CreateBooking reserves the requested seats and opens the payment window
func (s *BookingService) CreateBooking(ctx context.Context, req models.CreateBookingRequest) (*models.CreateBookingResult, error) {
	if msg := validateCreate(req); msg != "" {
		return &models.CreateBookingResult{Error: msg}, nil
	}

	b, err := s.store.CreateBooking(ctx, req)
	if err != nil {
		var taken *database.SeatUnavailableError
		switch {
		case errors.As(err, &taken):
			s.notifier.BroadcastSeatConflict(req.TripID, taken.SeatNumber)
			return &models.CreateBookingResult{Error: "Seat " + taken.SeatNumber + " is no longer available"}, nil
		case errors.Is(err, database.ErrNotFound):
			return &models.CreateBookingResult{Error: "Trip not found"}, nil
		}
		s.logger.Error("Failed to create booking", zap.Int64("trip_id", req.TripID), zap.Error(err))
		return &models.CreateBookingResult{}, nil
	}

	log := s.logger.With(zap.Int64("booking_id", b.ID), zap.String("reference", b.BookingReference))
	log.Info("Booking created", zap.Strings("seats", b.SeatNumbers), zap.Float64("total", b.TotalAmount))

	if err := s.scheduler.StartPaymentWindow(ctx, b.ID); err != nil {
		log.Warn("Failed to start payment window", zap.Error(err))
	}
	s.publish(ctx, events.TypeBookingCreated, b)
	s.notifier.BroadcastSeatsReserved(b.TripID, b.SeatNumbers)

	return &models.CreateBookingResult{Success: true, Booking: b}, nil
}

// ProcessPayment charges a pending booking through the processor of the
// chosen method. Repeating it for a booking that is already settled returns
// the recorded outcome without charging again.
func (s *BookingService) ProcessPayment(ctx context.Context, req models.ProcessPaymentRequest, method models.PaymentMethod) (*models.PaymentResult, error) {
	b, err := s.store.GetBooking(ctx, req.BookingID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return &models.PaymentResult{Error: "Booking not found"}, nil
		}
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}

	switch {
	case b.PaymentStatus == models.PaymentStatusPaid || b.PaymentStatus == models.PaymentStatusDueOnBoarding:
		return &models.PaymentResult{Success: true, Status: b.PaymentStatus}, nil
	case b.Status != models.BookingStatusPending:
		return &models.PaymentResult{Status: b.PaymentStatus, Error: "Booking is no longer awaiting payment"}, nil
	}

	proc, err := s.payments.Get(method)
	if err != nil {
		return &models.PaymentResult{Error: "Payment method is not supported"}, nil
	}

	log := s.logger.With(zap.Int64("booking_id", b.ID), zap.String("method", string(method)))

	resp, err := proc.Charge(ctx, &payment.ChargeRequest{
		BookingID:   b.ID,
		Reference:   b.BookingReference,
		Amount:      b.TotalAmount,
		Currency:    s.currency,
		Method:      method,
		Description: "Bus booking " + b.BookingReference,
		Metadata:    map[string]string{"trip_id": fmt.Sprint(b.TripID)},
	})
	if err != nil {
		log.Error("Charge attempt failed", zap.String("processor", proc.Name()), zap.Error(err))
		s.recordPayment(ctx, &database.Payment{
			BookingID:     b.ID,
			Method:        method,
			Amount:        b.TotalAmount,
			Currency:      s.currency,
			Status:        models.PaymentStatusFailed,
			FailureReason: err.Error(),
		})
		return &models.PaymentResult{Status: models.PaymentStatusFailed}, nil
	}

	rec := &database.Payment{
		BookingID:     b.ID,
		Method:        method,
		Amount:        b.TotalAmount,
		Currency:      s.currency,
		Status:        resp.Status,
		TransactionID: resp.TransactionID,
		FailureReason: resp.FailureReason,
	}
	if !resp.Success {
		rec.Status = models.PaymentStatusFailed
		s.recordPayment(ctx, rec)
		log.Info("Payment declined", zap.String("reason", resp.FailureReason))
		return &models.PaymentResult{
			Status: models.PaymentStatusFailed,
			Error:  declineMessage(resp),
		}, nil
	}

	if err := s.store.RecordPayment(ctx, rec); err != nil {
		log.Error("Failed to record payment, refunding", zap.String("transaction_id", resp.TransactionID), zap.Error(err))
		s.refund(ctx, proc, resp.TransactionID, b.TotalAmount)
		return &models.PaymentResult{Status: models.PaymentStatusFailed}, nil
	}

	sig := models.PaymentProcessedSignal{Status: resp.Status, TransactionID: resp.TransactionID}
	if err := s.scheduler.PaymentProcessed(ctx, b.ID, sig); err != nil {
		log.Warn("Failed to signal payment window", zap.Error(err))
	}

	b.PaymentMethod = method
	b.PaymentStatus = resp.Status
	s.publish(ctx, events.TypeBookingPaid, b)
	log.Info("Payment processed", zap.String("status", string(resp.Status)), zap.String("transaction_id", resp.TransactionID))

	return &models.PaymentResult{
		Success:       true,
		Status:        resp.Status,
		TransactionID: resp.TransactionID,
	}, nil
}

func declineMessage(resp *payment.ChargeResponse) string {
	if resp.FailureReason == "" {
		return "Payment declined"
	}
	return "Payment declined: " + resp.FailureReason
}

// ConfirmBooking finalizes a paid booking and marks its seats booked
func (s *BookingService) ConfirmBooking(ctx context.Context, bookingID int64) (*models.ConfirmBookingResult, error) {
	if err := s.store.ConfirmBooking(ctx, bookingID); err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			return &models.ConfirmBookingResult{Error: "Booking not found"}, nil
		case errors.Is(err, database.ErrInvalidTransition):
			return &models.ConfirmBookingResult{Error: "Booking cannot be confirmed"}, nil
		}
		s.logger.Error("Failed to confirm booking", zap.Int64("booking_id", bookingID), zap.Error(err))
		return &models.ConfirmBookingResult{}, nil
	}

	s.afterConfirm(ctx, bookingID)
	return &models.ConfirmBookingResult{Success: true}, nil
}

func (s *BookingService) afterConfirm(ctx context.Context, bookingID int64) {
	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		s.logger.Warn("Failed to reload confirmed booking", zap.Int64("booking_id", bookingID), zap.Error(err))
		return
	}
	s.logger.Info("Booking confirmed", zap.Int64("booking_id", b.ID), zap.String("reference", b.BookingReference))
	s.publish(ctx, events.TypeBookingConfirmed, b)
	s.notifier.BroadcastBookingConfirmed(b.TripID, b.BookingReference, b.SeatNumbers)
}

// ConfirmCashBooking settles a cash-on-arrival booking at boarding
func (s *BookingService) ConfirmCashBooking(ctx context.Context, bookingID int64) (*models.Booking, error) {
	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.PaymentMethod == models.PaymentMethodCashOnArrival && b.Status == models.BookingStatusConfirmed {
		return b, nil
	}
	if b.PaymentMethod != models.PaymentMethodCashOnArrival ||
		b.PaymentStatus != models.PaymentStatusDueOnBoarding ||
		b.Status != models.BookingStatusPending {
		return nil, ErrNotCashBooking
	}

	err = s.store.RecordPayment(ctx, &database.Payment{
		BookingID:     b.ID,
		Method:        models.PaymentMethodCashOnArrival,
		Amount:        b.TotalAmount,
		Currency:      s.currency,
		Status:        models.PaymentStatusPaid,
		TransactionID: fmt.Sprintf("cash_%d", b.ID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record cash payment: %w", err)
	}
	if err := s.store.ConfirmBooking(ctx, b.ID); err != nil {
		return nil, fmt.Errorf("failed to confirm booking: %w", err)
	}

	s.afterConfirm(ctx, b.ID)
	return s.store.GetBooking(ctx, b.ID)
}

// CancelBooking releases the seats of a booking that will not be paid for
func (s *BookingService) CancelBooking(ctx context.Context, bookingID int64, reason string) error {
	changed, err := s.store.CancelBooking(ctx, bookingID, models.BookingStatusCancelled, reason)
	if err != nil {
		return fmt.Errorf("failed to cancel booking %d: %w", bookingID, err)
	}
	if !changed {
		return nil
	}

	if err := s.scheduler.CancelPaymentWindow(ctx, bookingID); err != nil {
		s.logger.Warn("Failed to cancel payment window", zap.Int64("booking_id", bookingID), zap.Error(err))
	}

	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		s.logger.Warn("Failed to reload cancelled booking", zap.Int64("booking_id", bookingID), zap.Error(err))
		return nil
	}
	s.logger.Info("Booking cancelled", zap.Int64("booking_id", bookingID), zap.String("reason", reason))
	s.publish(ctx, events.TypeBookingCancelled, b)
	s.notifier.BroadcastBookingReleased(b.TripID, b.BookingReference, b.SeatNumbers, false)
	return nil
}

// FlagForFollowUp marks a paid booking whose confirmation failed
func (s *BookingService) FlagForFollowUp(ctx context.Context, bookingID int64, reason string) error {
	if err := s.store.MarkFollowUp(ctx, bookingID, reason); err != nil {
		return fmt.Errorf("failed to flag booking %d: %w", bookingID, err)
	}

	s.logger.Warn("Booking needs follow-up", zap.Int64("booking_id", bookingID), zap.String("reason", reason))
	if b, err := s.store.GetBooking(ctx, bookingID); err == nil {
		s.publish(ctx, events.TypeBookingFollowUp, b)
	}
	return nil
}

func (s *BookingService) recordPayment(ctx context.Context, p *database.Payment) {
	if err := s.store.RecordPayment(ctx, p); err != nil {
		s.logger.Error("Failed to record payment", zap.Int64("booking_id", p.BookingID), zap.Error(err))
	}
}

func (s *BookingService) refund(ctx context.Context, proc payment.Processor, transactionID string, amount float64) {
	r, ok := proc.(payment.Refunder)
	if !ok || transactionID == "" {
		return
	}
	if err := r.Refund(context.WithoutCancel(ctx), transactionID, amount); err != nil {
		s.logger.Error("Refund failed", zap.String("transaction_id", transactionID), zap.Error(err))
	}
}

func (s *BookingService) publish(ctx context.Context, t events.Type, b *models.Booking) {
	if err := s.publisher.Publish(ctx, events.NewEvent(t, b)); err != nil {
		s.logger.Warn("Failed to publish event", zap.String("type", string(t)), zap.Int64("booking_id", b.ID), zap.Error(err))
	}
}
