package database

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/databayt/mkan-sub001/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrSeatNotAvailable  = errors.New("seat not available")
	ErrInvalidTransition = errors.New("invalid booking status transition")
)

//go:embed migrations/001_init.sql
var schema string

// Repository handles all database operations
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Connect opens a connection pool and checks it is reachable
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// Migrate creates the schema if it does not exist yet
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Ping checks the database connection
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// --- Trip Operations ---

const tripColumns = `
	id, route_name, origin, destination, departure_time, arrival_time,
	bus_plate, total_seats, available_seats, price, currency`

func scanTrip(row pgx.Row) (*models.Trip, error) {
	var t models.Trip
	err := row.Scan(
		&t.ID, &t.RouteName, &t.Origin, &t.Destination, &t.DepartureTime, &t.ArrivalTime,
		&t.BusPlate, &t.TotalSeats, &t.AvailableSeats, &t.Price, &t.Currency,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTrips returns upcoming trips ordered by departure
func (r *Repository) ListTrips(ctx context.Context) ([]models.Trip, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+tripColumns+`
		FROM trips
		WHERE departure_time > NOW()
		ORDER BY departure_time ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query trips: %w", err)
	}
	defer rows.Close()

	trips := []models.Trip{}
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trips: %w", err)
	}

	return trips, nil
}

// GetTrip returns a trip by ID
func (r *Repository) GetTrip(ctx context.Context, id int64) (*models.Trip, error) {
	t, err := scanTrip(r.pool.QueryRow(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return t, nil
}

// --- Seat Operations ---

// GetTripSeats returns every seat of a trip ordered by row and column
func (r *Repository) GetTripSeats(ctx context.Context, tripID int64) ([]models.Seat, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, trip_id, seat_number, row_index, column_index, seat_class, status
		FROM seats
		WHERE trip_id = $1
		ORDER BY row_index, column_index
	`, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to query seats: %w", err)
	}
	defer rows.Close()

	seats := []models.Seat{}
	for rows.Next() {
		var s models.Seat
		err := rows.Scan(&s.ID, &s.TripID, &s.SeatNumber, &s.Row, &s.Column, &s.Class, &s.Status)
		if err != nil {
			return nil, fmt.Errorf("failed to scan seat: %w", err)
		}
		seats = append(seats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate seats: %w", err)
	}

	return seats, nil
}

// refreshAvailableSeats recounts the available seats of a trip
func refreshAvailableSeats(ctx context.Context, tx pgx.Tx, tripID int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE trips t
		SET available_seats = (
			SELECT COUNT(*) FROM seats s
			WHERE s.trip_id = t.id AND s.status = 'available'
		), updated_at = NOW()
		WHERE id = $1
	`, tripID)
	if err != nil {
		return fmt.Errorf("failed to update available seats: %w", err)
	}
	return nil
}

// --- Booking Operations ---

// CreateBooking reserves the requested seats and creates a pending booking in
// one transaction. A seat that is no longer available aborts the whole
// booking with a *SeatUnavailableError.
func (r *Repository) CreateBooking(ctx context.Context, req models.CreateBookingRequest) (*models.Booking, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var price float64
	err = tx.QueryRow(ctx, `SELECT price FROM trips WHERE id = $1`, req.TripID).Scan(&price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get trip price: %w", err)
	}

	b := &models.Booking{
		TripID:         req.TripID,
		SeatNumbers:    req.SeatNumbers,
		PassengerName:  req.PassengerName,
		PassengerPhone: req.PassengerPhone,
		PassengerEmail: req.PassengerEmail,
		Status:         models.BookingStatusPending,
		PaymentStatus:  models.PaymentStatusUnpaid,
		TotalAmount:    price * float64(len(req.SeatNumbers)),
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO bookings (trip_id, passenger_name, passenger_phone, passenger_email,
		                      status, payment_status, total_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, b.TripID, b.PassengerName, b.PassengerPhone, b.PassengerEmail,
		b.Status, b.PaymentStatus, b.TotalAmount,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	b.BookingReference = models.FormatBookingReference(b.ID)
	_, err = tx.Exec(ctx, `UPDATE bookings SET booking_reference = $1 WHERE id = $2`, b.BookingReference, b.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to set booking reference: %w", err)
	}

	// Reserve seats; the status guard is what prevents double booking
	for i, seatNumber := range req.SeatNumbers {
		var seatID int64
		err := tx.QueryRow(ctx, `
			UPDATE seats
			SET status = 'reserved', booking_id = $1, updated_at = NOW()
			WHERE trip_id = $2 AND seat_number = $3 AND status = 'available'
			RETURNING id
		`, b.ID, req.TripID, seatNumber).Scan(&seatID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, &SeatUnavailableError{SeatNumber: seatNumber}
			}
			return nil, fmt.Errorf("failed to reserve seat: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO booking_seats (booking_id, seat_id, seat_number, position)
			VALUES ($1, $2, $3, $4)
		`, b.ID, seatID, seatNumber, i)
		if err != nil {
			return nil, fmt.Errorf("failed to add booking seat: %w", err)
		}
	}

	if err := refreshAvailableSeats(ctx, tx, req.TripID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit booking: %w", err)
	}
	return b, nil
}

// RecordPayment stores the outcome of a payment attempt and mirrors it onto
// the booking. Recording again for the same booking overwrites the attempt.
// Bookings that were closed or already paid in the meantime are left alone
// and ErrInvalidTransition is returned.
func (r *Repository) RecordPayment(ctx context.Context, p *Payment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	state, err := lockBooking(ctx, tx, p.BookingID)
	if err != nil {
		return err
	}
	if !state.AcceptsPayment() {
		return fmt.Errorf("%w: %s booking with %s payment cannot take a payment",
			ErrInvalidTransition, state.Status, state.PaymentStatus)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO payments (booking_id, method, amount, currency, status, transaction_id, failure_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (booking_id) DO UPDATE
		SET method = EXCLUDED.method, amount = EXCLUDED.amount, currency = EXCLUDED.currency,
		    status = EXCLUDED.status, transaction_id = EXCLUDED.transaction_id,
		    failure_reason = EXCLUDED.failure_reason, updated_at = NOW()
		RETURNING id, created_at, updated_at
	`, p.BookingID, p.Method, p.Amount, p.Currency, p.Status, p.TransactionID, p.FailureReason,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to record payment: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE bookings
		SET payment_method = $1, payment_status = $2, updated_at = NOW()
		WHERE id = $3
	`, p.Method, p.Status, p.BookingID)
	if err != nil {
		return fmt.Errorf("failed to update booking payment: %w", err)
	}

	return tx.Commit(ctx)
}

// lockBooking reads the state of a booking and holds its row until tx ends
func lockBooking(ctx context.Context, tx pgx.Tx, id int64) (*BookingState, error) {
	s := BookingState{BookingID: id}
	err := tx.QueryRow(ctx, `
		SELECT trip_id, status, payment_method, payment_status, total_amount
		FROM bookings
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&s.TripID, &s.Status, &s.PaymentMethod, &s.PaymentStatus, &s.TotalAmount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock booking: %w", err)
	}
	return &s, nil
}

// ConfirmBooking books the reserved seats of a paid booking. Confirming an
// already confirmed booking is a no-op.
func (r *Repository) ConfirmBooking(ctx context.Context, id int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	state, err := lockBooking(ctx, tx, id)
	if err != nil {
		return err
	}
	if state.Status == models.BookingStatusConfirmed {
		return nil
	}
	if state.Status != models.BookingStatusPending || state.PaymentStatus != models.PaymentStatusPaid {
		return fmt.Errorf("%w: %s booking with %s payment cannot be confirmed",
			ErrInvalidTransition, state.Status, state.PaymentStatus)
	}

	_, err = tx.Exec(ctx, `
		UPDATE seats
		SET status = 'booked', updated_at = NOW()
		WHERE booking_id = $1 AND status = 'reserved'
	`, id)
	if err != nil {
		return fmt.Errorf("failed to book seats: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE bookings
		SET status = 'confirmed', confirmed_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to confirm booking: %w", err)
	}

	return tx.Commit(ctx)
}

// CancelBooking releases the seats of a booking and moves it to status,
// which must be cancelled or expired. It reports whether anything changed;
// bookings that are already closed are left alone.
func (r *Repository) CancelBooking(ctx context.Context, id int64, status models.BookingStatus, reason string) (bool, error) {
	return r.release(ctx, id, status, reason, func(s *BookingState) bool {
		return s.Status == models.BookingStatusPending || s.Status == models.BookingStatusNeedsFollowUp
	})
}

// ExpireBooking releases a booking only while it is still pending and unpaid
func (r *Repository) ExpireBooking(ctx context.Context, id int64, reason string) (bool, error) {
	return r.release(ctx, id, models.BookingStatusExpired, reason, (*BookingState).Releasable)
}

func (r *Repository) release(ctx context.Context, id int64, status models.BookingStatus, reason string, allowed func(*BookingState) bool) (bool, error) {
	if status != models.BookingStatusCancelled && status != models.BookingStatusExpired {
		return false, fmt.Errorf("%w: cannot release into %s", ErrInvalidTransition, status)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	state, err := lockBooking(ctx, tx, id)
	if err != nil {
		return false, err
	}
	if !allowed(state) {
		return false, nil
	}

	_, err = tx.Exec(ctx, `
		UPDATE seats
		SET status = 'available', booking_id = NULL, updated_at = NOW()
		WHERE booking_id = $1 AND status IN ('reserved', 'booked')
	`, id)
	if err != nil {
		return false, fmt.Errorf("failed to release seats: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE bookings
		SET status = $1, failure_reason = $2, updated_at = NOW()
		WHERE id = $3
	`, status, reason, id)
	if err != nil {
		return false, fmt.Errorf("failed to update booking status: %w", err)
	}

	if err := refreshAvailableSeats(ctx, tx, state.TripID); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit release: %w", err)
	}
	return true, nil
}

// MarkFollowUp flags a pending booking for manual follow-up
func (r *Repository) MarkFollowUp(ctx context.Context, id int64, reason string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE bookings
		SET status = 'needs_follow_up', failure_reason = $1, updated_at = NOW()
		WHERE id = $2 AND status IN ('pending', 'needs_follow_up')
	`, reason, id)
	if err != nil {
		return fmt.Errorf("failed to flag booking: %w", err)
	}
	if result.RowsAffected() > 0 {
		return nil
	}

	if _, err := r.GetBookingStatus(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("%w: only pending bookings can be flagged", ErrInvalidTransition)
}

// GetBooking returns a booking with its seat numbers in booking order
func (r *Repository) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	var b models.Booking
	var reference *string
	err := r.pool.QueryRow(ctx, `
		SELECT id, booking_reference, trip_id, passenger_name, passenger_phone, passenger_email,
		       status, payment_method, payment_status, total_amount, failure_reason,
		       created_at, updated_at, confirmed_at
		FROM bookings
		WHERE id = $1
	`, id).Scan(
		&b.ID, &reference, &b.TripID, &b.PassengerName, &b.PassengerPhone, &b.PassengerEmail,
		&b.Status, &b.PaymentMethod, &b.PaymentStatus, &b.TotalAmount, &b.FailureReason,
		&b.CreatedAt, &b.UpdatedAt, &b.ConfirmedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if reference != nil {
		b.BookingReference = *reference
	}

	rows, err := r.pool.Query(ctx, `
		SELECT seat_number FROM booking_seats WHERE booking_id = $1 ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query booking seats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var seatNumber string
		if err := rows.Scan(&seatNumber); err != nil {
			return nil, fmt.Errorf("failed to scan seat number: %w", err)
		}
		b.SeatNumbers = append(b.SeatNumbers, seatNumber)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate booking seats: %w", err)
	}

	return &b, nil
}

// GetBookingStatus returns the lifecycle state of a booking
func (r *Repository) GetBookingStatus(ctx context.Context, id int64) (*BookingState, error) {
	s := BookingState{BookingID: id}
	err := r.pool.QueryRow(ctx, `
		SELECT trip_id, status, payment_method, payment_status, total_amount
		FROM bookings
		WHERE id = $1
	`, id).Scan(&s.TripID, &s.Status, &s.PaymentMethod, &s.PaymentStatus, &s.TotalAmount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get booking status: %w", err)
	}
	return &s, nil
}
