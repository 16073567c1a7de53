package models

import (
	"fmt"
	"strings"
	"time"
)

// Booking represents a passenger's reservation of seats on one trip
type Booking struct {
	ID               int64         `json:"id"`
	BookingReference string        `json:"bookingReference"`
	TripID           int64         `json:"tripId"`
	SeatNumbers      []string      `json:"seatNumbers"`
	PassengerName    string        `json:"passengerName"`
	PassengerPhone   string        `json:"passengerPhone"`
	PassengerEmail   string        `json:"passengerEmail,omitempty"`
	Status           BookingStatus `json:"status"`
	PaymentMethod    PaymentMethod `json:"paymentMethod,omitempty"`
	PaymentStatus    PaymentStatus `json:"paymentStatus"`
	TotalAmount      float64       `json:"totalAmount"`
	FailureReason    string        `json:"failureReason,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
	ConfirmedAt      *time.Time    `json:"confirmedAt,omitempty"`
}

type BookingStatus string

const (
	BookingStatusPending       BookingStatus = "pending"
	BookingStatusConfirmed     BookingStatus = "confirmed"
	BookingStatusCancelled     BookingStatus = "cancelled"
	BookingStatusExpired       BookingStatus = "expired"
	BookingStatusNeedsFollowUp BookingStatus = "needs_follow_up"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid        PaymentStatus = "unpaid"
	PaymentStatusPaid          PaymentStatus = "paid"
	PaymentStatusDueOnBoarding PaymentStatus = "due_on_boarding"
	PaymentStatusFailed        PaymentStatus = "failed"
)

// PaymentMethod is the closed set of ways a passenger can pay
type PaymentMethod string

const (
	PaymentMethodCashOnArrival PaymentMethod = "cash_on_arrival"
	PaymentMethodCard          PaymentMethod = "card"
	PaymentMethodMobileMoney   PaymentMethod = "mobile_money"
)

// PaymentMethods lists every supported payment method
var PaymentMethods = []PaymentMethod{
	PaymentMethodCashOnArrival,
	PaymentMethodCard,
	PaymentMethodMobileMoney,
}

// ParsePaymentMethod validates a raw payment method value
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range PaymentMethods {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown payment method: %q", s)
}

// SettlesOnBoarding reports whether payment happens physically at the boarding point
func (m PaymentMethod) SettlesOnBoarding() bool {
	return m == PaymentMethodCashOnArrival
}

// PassengerInfo holds the contact details collected before submission
type PassengerInfo struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

// Complete reports whether the required passenger fields are present
func (p *PassengerInfo) Complete() bool {
	return p != nil && strings.TrimSpace(p.Name) != "" && strings.TrimSpace(p.Phone) != ""
}

// FormatBookingReference builds the human-facing reference for a booking id
func FormatBookingReference(id int64) string {
	return fmt.Sprintf("BK-%03d", id)
}

// CreateBookingRequest is the input of the create-booking call
type CreateBookingRequest struct {
	TripID         int64    `json:"tripId"`
	SeatNumbers    []string `json:"seatNumbers"`
	PassengerName  string   `json:"passengerName"`
	PassengerPhone string   `json:"passengerPhone"`
	PassengerEmail string   `json:"passengerEmail,omitempty"`
}

// ProcessPaymentRequest is the input of the process-payment call
type ProcessPaymentRequest struct {
	BookingID int64 `json:"bookingId"`
}

// CreateBookingResult is returned by the create-booking call
type CreateBookingResult struct {
	Success bool     `json:"success"`
	Booking *Booking `json:"booking,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// PaymentResult is returned by the process-payment call
type PaymentResult struct {
	Success       bool          `json:"success"`
	Status        PaymentStatus `json:"status,omitempty"`
	TransactionID string        `json:"transactionId,omitempty"`
	Error         string        `json:"error,omitempty"`
}

// ConfirmBookingResult is returned by the confirm-booking call
type ConfirmBookingResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
