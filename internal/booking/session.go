package booking

import (
	"context"
	"sync"
	"time"

	"github.com/databayt/mkan-sub001/internal/models"
	"github.com/databayt/mkan-sub001/internal/saga"
	"github.com/databayt/mkan-sub001/internal/seating"
	"go.uber.org/zap"
)

// Gateway is the remote side of a booking submission
type Gateway interface {
	CreateBooking(ctx context.Context, req models.CreateBookingRequest) (*models.CreateBookingResult, error)
	ProcessPayment(ctx context.Context, req models.ProcessPaymentRequest, method models.PaymentMethod) (*models.PaymentResult, error)
	ConfirmBooking(ctx context.Context, bookingID int64) (*models.ConfirmBookingResult, error)
}

// Compensator undoes or flags bookings left behind by a failed submission
type Compensator interface {
	CancelBooking(ctx context.Context, bookingID int64, reason string) error
	FlagForFollowUp(ctx context.Context, bookingID int64, reason string) error
}

type nopCompensator struct{}

func (nopCompensator) CancelBooking(context.Context, int64, string) error   { return nil }
func (nopCompensator) FlagForFollowUp(context.Context, int64, string) error { return nil }

// State of a session
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// Saga step names
const (
	StepCreateBooking  = "create-booking"
	StepProcessPayment = "process-payment"
	StepConfirmBooking = "confirm-booking"
)

// Result is returned by Submit
type Result struct {
	Success          bool   `json:"success"`
	BookingID        int64  `json:"bookingId,omitempty"`
	BookingReference string `json:"bookingReference,omitempty"`
	Error            string `json:"error,omitempty"`
}

// Option configures a Session
type Option func(*Session)

// WithCompensator sets the compensator used after a partial failure.
// Defaults to one that does nothing.
func WithCompensator(c Compensator) Option {
	return func(s *Session) {
		if c != nil {
			s.compensator = c
		}
	}
}

// WithLogger sets the session logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStepTimeout bounds every remote call of a submission. Zero, the
// default, waits for as long as the gateway takes.
func WithStepTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.stepTimeout = d
	}
}

// WithClock overrides the time source used for activity tracking
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// Session holds one passenger's booking attempt across the booking steps:
// the trip, its seat selection, passenger details and payment method. Submit
// turns it into a booking through the gateway.
//
// Session is safe for concurrent use. The lock is released while remote
// calls run so state stays readable during a submission.
type Session struct {
	gateway     Gateway
	compensator Compensator
	logger      *zap.Logger
	stepTimeout time.Duration
	now         func() time.Time

	mu               sync.Mutex
	trip             *models.Trip
	selection        *seating.Selection
	passenger        *models.PassengerInfo
	paymentMethod    models.PaymentMethod
	bookingID        int64
	bookingReference string
	err              string
	state            State
	steps            []saga.StepResult
	lastActive       time.Time
}

// NewSession creates an idle session backed by gateway
func NewSession(gateway Gateway, opts ...Option) *Session {
	s := &Session{
		gateway:     gateway,
		compensator: nopCompensator{},
		logger:      zap.NewNop(),
		now:         time.Now,
		state:       StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastActive = s.now()
	return s
}

// SelectTrip starts a fresh attempt on trip, replacing everything the session
// held before
func (s *Session) SelectTrip(trip models.Trip, seats []models.Seat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateSubmitting {
		return ErrSubmissionInProgress
	}
	s.loadTripLocked(trip, seats)
	return nil
}

// startTrip loads the first trip of a session that has never submitted
func (s *Session) startTrip(trip models.Trip, seats []models.Seat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadTripLocked(trip, seats)
}

func (s *Session) loadTripLocked(trip models.Trip, seats []models.Seat) {
	s.resetLocked()
	s.trip = &trip
	s.selection = seating.New(seats)
	s.touchLocked()
}

// RefreshSeats swaps in a newer seat snapshot for the current trip. Selected
// seats that are no longer available are dropped and returned.
func (s *Session) RefreshSeats(seats []models.Seat) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.beginEditLocked(); err != nil {
		return nil, err
	}
	return s.selection.Refresh(seats), nil
}

// SelectSeat adds a seat to the selection. It reports whether the selection
// changed; full selections and unavailable seats are ignored.
func (s *Session) SelectSeat(seatNumber string) (bool, error) {
	return s.editSelection(func(sel *seating.Selection) bool { return sel.Select(seatNumber) })
}

// DeselectSeat removes a seat from the selection
func (s *Session) DeselectSeat(seatNumber string) (bool, error) {
	return s.editSelection(func(sel *seating.Selection) bool { return sel.Deselect(seatNumber) })
}

// ToggleSeat flips the selection of a seat
func (s *Session) ToggleSeat(seatNumber string) (bool, error) {
	return s.editSelection(func(sel *seating.Selection) bool { return sel.Toggle(seatNumber) })
}

// ClearSeats empties the selection
func (s *Session) ClearSeats() error {
	_, err := s.editSelection(func(sel *seating.Selection) bool {
		sel.Clear()
		return true
	})
	return err
}

func (s *Session) editSelection(fn func(*seating.Selection) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.beginEditLocked(); err != nil {
		return false, err
	}
	return fn(s.selection), nil
}

// SetPassenger stores the passenger's contact details
func (s *Session) SetPassenger(info models.PassengerInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.beginFieldEditLocked(); err != nil {
		return err
	}
	s.passenger = &info
	return nil
}

// SetPaymentMethod stores how the passenger is going to pay
func (s *Session) SetPaymentMethod(method models.PaymentMethod) error {
	parsed, err := models.ParsePaymentMethod(string(method))
	if err != nil {
		return ErrInvalidPaymentMethod
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.beginFieldEditLocked(); err != nil {
		return err
	}
	s.paymentMethod = parsed
	return nil
}

// beginEditLocked prepares an edit of the seat selection
func (s *Session) beginEditLocked() error {
	if s.state != StateSubmitting && s.selection == nil {
		return ErrNoTrip
	}
	return s.beginFieldEditLocked()
}

// beginFieldEditLocked rejects edits during a submission and returns a
// finished session to idle
func (s *Session) beginFieldEditLocked() error {
	if s.state == StateSubmitting {
		return ErrSubmissionInProgress
	}
	if s.state == StateSucceeded || s.state == StateFailed {
		s.state = StateIdle
		s.err = ""
	}
	s.touchLocked()
	return nil
}

// Reset returns every field to its initial value
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateSubmitting {
		return ErrSubmissionInProgress
	}
	s.resetLocked()
	s.touchLocked()
	return nil
}

func (s *Session) resetLocked() {
	s.trip = nil
	s.selection = nil
	s.passenger = nil
	s.paymentMethod = ""
	s.bookingID = 0
	s.bookingReference = ""
	s.err = ""
	s.state = StateIdle
	s.steps = nil
}

func (s *Session) touchLocked() {
	s.lastActive = s.now()
}

func (s *Session) readyLocked() bool {
	return s.trip != nil &&
		s.selection != nil && s.selection.Len() > 0 &&
		s.passenger.Complete() &&
		s.paymentMethod != ""
}

// Submit creates the booking, takes payment and, unless the passenger pays
// cash on boarding, confirms it. The remote calls run strictly in sequence
// and each one needs the previous to succeed.
//
// A second Submit while one is running is rejected without touching the
// session. A finished submission that left a booking behind is not run
// again: its outcome is returned until a field edit or Reset. When payment
// fails the created booking is cancelled through the
// compensator. When confirmation fails after payment the booking is kept,
// the session fails and the booking is flagged for follow-up.
func (s *Session) Submit(ctx context.Context) Result {
	s.mu.Lock()
	if s.state == StateSubmitting {
		s.mu.Unlock()
		return Result{Error: MsgSubmissionInProgress}
	}
	s.touchLocked()
	if s.bookingID != 0 && (s.state == StateSucceeded || s.state == StateFailed) {
		res := Result{
			Success:          s.state == StateSucceeded,
			BookingID:        s.bookingID,
			BookingReference: s.bookingReference,
			Error:            s.err,
		}
		s.mu.Unlock()
		return res
	}
	if !s.readyLocked() {
		s.state = StateIdle
		s.err = MsgMissingInformation
		s.mu.Unlock()
		return Result{Error: MsgMissingInformation}
	}

	req := models.CreateBookingRequest{
		TripID:         s.trip.ID,
		SeatNumbers:    s.selection.Selected(),
		PassengerName:  s.passenger.Name,
		PassengerPhone: s.passenger.Phone,
		PassengerEmail: s.passenger.Email,
	}
	method := s.paymentMethod
	s.state = StateSubmitting
	s.err = ""
	s.bookingID = 0
	s.bookingReference = ""
	s.steps = nil
	s.mu.Unlock()

	log := s.logger.With(
		zap.Int64("trip_id", req.TripID),
		zap.Strings("seats", req.SeatNumbers),
		zap.String("payment_method", string(method)),
	)

	var created *models.Booking
	def := saga.NewDefinition("create-booking-and-pay").
		AddStep(&saga.Step{
			Name:    StepCreateBooking,
			Timeout: s.stepTimeout,
			Execute: func(ctx context.Context) error {
				res, err := s.gateway.CreateBooking(ctx, req)
				if err != nil {
					return callFailed(err, MsgCreateFailed)
				}
				if res == nil || !res.Success || res.Booking == nil {
					return resultFailed(reportedCreate(res), MsgCreateFailed)
				}
				created = res.Booking
				return nil
			},
			Compensate: func(ctx context.Context) error {
				return s.compensator.CancelBooking(ctx, created.ID, "payment failed")
			},
		}).
		AddStep(&saga.Step{
			Name:    StepProcessPayment,
			Timeout: s.stepTimeout,
			Pivot:   true,
			Execute: func(ctx context.Context) error {
				res, err := s.gateway.ProcessPayment(ctx, models.ProcessPaymentRequest{BookingID: created.ID}, method)
				if err != nil {
					return callFailed(err, MsgPaymentFailed)
				}
				if res == nil || !res.Success {
					return resultFailed(reportedPayment(res), MsgPaymentFailed)
				}
				return nil
			},
		}).
		AddStep(&saga.Step{
			Name:    StepConfirmBooking,
			Timeout: s.stepTimeout,
			Skip:    method.SettlesOnBoarding,
			Execute: func(ctx context.Context) error {
				res, err := s.gateway.ConfirmBooking(ctx, created.ID)
				if err != nil {
					return callFailed(err, MsgConfirmFailed)
				}
				if res == nil || !res.Success {
					return resultFailed(reportedConfirm(res), MsgConfirmFailed)
				}
				return nil
			},
		})

	exec := saga.Run(ctx, def, log)

	if exec.FailedStep == StepConfirmBooking {
		msg := failureMessage(exec.Err)
		if err := s.compensator.FlagForFollowUp(context.WithoutCancel(ctx), created.ID, msg); err != nil {
			log.Error("Failed to flag booking for follow-up", zap.Int64("booking_id", created.ID), zap.Error(err))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.steps = copySteps(exec.Results)
	s.touchLocked()
	if created != nil && (exec.Succeeded() || exec.FailedStep == StepConfirmBooking) {
		s.bookingID = created.ID
		s.bookingReference = created.BookingReference
		if s.bookingReference == "" {
			s.bookingReference = models.FormatBookingReference(created.ID)
		}
	}

	if !exec.Succeeded() {
		s.state = StateFailed
		s.err = failureMessage(exec.Err)
		log.Warn("Booking submission failed",
			zap.String("step", exec.FailedStep),
			zap.String("error", s.err),
			zap.Bool("compensated", exec.Compensated),
		)
		return Result{
			BookingID:        s.bookingID,
			BookingReference: s.bookingReference,
			Error:            s.err,
		}
	}

	s.state = StateSucceeded
	log.Info("Booking submitted",
		zap.Int64("booking_id", s.bookingID),
		zap.String("booking_reference", s.bookingReference),
	)
	return Result{
		Success:          true,
		BookingID:        s.bookingID,
		BookingReference: s.bookingReference,
	}
}

func reportedCreate(res *models.CreateBookingResult) string {
	if res == nil {
		return ""
	}
	return res.Error
}

func reportedPayment(res *models.PaymentResult) string {
	if res == nil {
		return ""
	}
	return res.Error
}

func reportedConfirm(res *models.ConfirmBookingResult) string {
	if res == nil {
		return ""
	}
	return res.Error
}

func copySteps(results []*saga.StepResult) []saga.StepResult {
	out := make([]saga.StepResult, 0, len(results))
	for _, r := range results {
		out = append(out, *r)
	}
	return out
}

// TotalAmount is the trip price times the number of selected seats
func (s *Session) TotalAmount() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalAmountLocked()
}

func (s *Session) totalAmountLocked() float64 {
	if s.trip == nil || s.selection == nil {
		return 0
	}
	return s.trip.Price * float64(s.selection.Len())
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Loading reports whether a submission is running
func (s *Session) Loading() bool {
	return s.State() == StateSubmitting
}

func (s *Session) Trip() *models.Trip {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.trip == nil {
		return nil
	}
	trip := *s.trip
	return &trip
}

func (s *Session) SelectedSeats() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selection == nil {
		return nil
	}
	return s.selection.Selected()
}

func (s *Session) Passenger() *models.PassengerInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.passenger == nil {
		return nil
	}
	p := *s.passenger
	return &p
}

func (s *Session) PaymentMethod() models.PaymentMethod {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paymentMethod
}

func (s *Session) BookingID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookingID
}

func (s *Session) BookingReference() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookingReference
}

// Error returns the message of the last failed submission, if any
func (s *Session) Error() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// LastActive is the last time the session was read for submission or edited
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Snapshot is a point-in-time copy of a session
type Snapshot struct {
	State            State                 `json:"state"`
	Loading          bool                  `json:"loading"`
	Trip             *models.Trip          `json:"trip,omitempty"`
	SelectedSeats    []string              `json:"selectedSeats"`
	MaxSeats         int                   `json:"maxSeats"`
	Seats            [][]seating.SeatView  `json:"seats,omitempty"`
	Passenger        *models.PassengerInfo `json:"passenger,omitempty"`
	PaymentMethod    models.PaymentMethod  `json:"paymentMethod,omitempty"`
	TotalAmount      float64               `json:"totalAmount"`
	BookingID        int64                 `json:"bookingId,omitempty"`
	BookingReference string                `json:"bookingReference,omitempty"`
	Error            string                `json:"error,omitempty"`
	Steps            []saga.StepResult     `json:"steps,omitempty"`
}

// Snapshot copies the session state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		State:            s.state,
		Loading:          s.state == StateSubmitting,
		SelectedSeats:    []string{},
		MaxSeats:         seating.MaxSeats,
		PaymentMethod:    s.paymentMethod,
		TotalAmount:      s.totalAmountLocked(),
		BookingID:        s.bookingID,
		BookingReference: s.bookingReference,
		Error:            s.err,
		Steps:            append([]saga.StepResult(nil), s.steps...),
	}
	if s.trip != nil {
		trip := *s.trip
		snap.Trip = &trip
	}
	if s.selection != nil {
		snap.SelectedSeats = s.selection.Selected()
		snap.Seats = s.selection.Grid()
	}
	if s.passenger != nil {
		p := *s.passenger
		snap.Passenger = &p
	}
	return snap
}
