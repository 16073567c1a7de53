package models

import (
	"strconv"
	"time"
)

// PaymentWindowInput is the input of the payment window workflow
type PaymentWindowInput struct {
	BookingID     int64         `json:"bookingId"`
	PaymentWindow time.Duration `json:"paymentWindow"`
}

// PaymentWindowResult is the outcome of the payment window workflow
type PaymentWindowResult struct {
	BookingID int64  `json:"bookingId"`
	Expired   bool   `json:"expired"`
	Reason    string `json:"reason,omitempty"`
}

// PaymentWindowState is returned by the state query
type PaymentWindowState struct {
	BookingID     int64         `json:"bookingId"`
	ExpiresAt     time.Time     `json:"expiresAt"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	Closed        bool          `json:"closed"`
}

// WorkflowPaymentWindow is the registered name of the payment window workflow
const WorkflowPaymentWindow = "PaymentWindowWorkflow"

// Signals for workflow communication
const (
	SignalPaymentProcessed = "payment-processed"
)

// PaymentProcessedSignal is sent once a payment has been recorded for a booking
type PaymentProcessedSignal struct {
	Status        PaymentStatus `json:"status"`
	TransactionID string        `json:"transactionId,omitempty"`
}

// Queries for workflow state
const (
	QueryGetState = "get_state"
)

// ExpireBookingInput is the input of the ExpireBooking activity
type ExpireBookingInput struct {
	BookingID int64  `json:"bookingId"`
	Reason    string `json:"reason"`
}

// ExpireBookingResult reports whether the activity released anything
type ExpireBookingResult struct {
	Expired bool          `json:"expired"`
	Status  BookingStatus `json:"status"`
}

// PaymentWindowWorkflowID returns the workflow id used for a booking
func PaymentWindowWorkflowID(bookingID int64) string {
	return "payment-window-" + strconv.FormatInt(bookingID, 10)
}
