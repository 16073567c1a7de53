package database

import (
	"time"

	"github.com/databayt/mkan-sub001/internal/models"
)

// Payment represents a payment attempt recorded against a booking
type Payment struct {
	ID            int64                `json:"id"`
	BookingID     int64                `json:"bookingId"`
	Method        models.PaymentMethod `json:"method"`
	Amount        float64              `json:"amount"`
	Currency      string               `json:"currency"`
	Status        models.PaymentStatus `json:"status"`
	TransactionID string               `json:"transactionId,omitempty"`
	FailureReason string               `json:"failureReason,omitempty"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}

// BookingState is the lifecycle part of a booking row
type BookingState struct {
	BookingID     int64                `json:"bookingId"`
	TripID        int64                `json:"tripId"`
	Status        models.BookingStatus `json:"status"`
	PaymentMethod models.PaymentMethod `json:"paymentMethod,omitempty"`
	PaymentStatus models.PaymentStatus `json:"paymentStatus"`
	TotalAmount   float64              `json:"totalAmount"`
}

// Releasable reports whether an unpaid booking may still be expired
func (s *BookingState) Releasable() bool {
	return s.Status == models.BookingStatusPending &&
		(s.PaymentStatus == models.PaymentStatusUnpaid || s.PaymentStatus == models.PaymentStatusFailed)
}

// AcceptsPayment reports whether a payment attempt may still be recorded.
// Only pending bookings that are not yet paid qualify; a charge landing
// after the booking expired or was cancelled is rejected.
func (s *BookingState) AcceptsPayment() bool {
	return s.Status == models.BookingStatusPending && s.PaymentStatus != models.PaymentStatusPaid
}

// SeatUnavailableError reports a seat that was taken between the seat
// snapshot and the booking
type SeatUnavailableError struct {
	SeatNumber string
}

func (e *SeatUnavailableError) Error() string {
	return "seat " + e.SeatNumber + " is not available"
}

func (e *SeatUnavailableError) Is(target error) bool {
	return target == ErrSeatNotAvailable
}
