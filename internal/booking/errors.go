package booking

import "errors"

var (
	ErrSubmissionInProgress = errors.New("booking submission already in progress")
	ErrNoTrip               = errors.New("no trip selected")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrSessionNotFound      = errors.New("booking session not found")
)

// Messages surfaced on the session when a submission fails
const (
	MsgMissingInformation   = "Missing booking information"
	MsgCreateFailed         = "Failed to create booking"
	MsgPaymentFailed        = "Payment failed"
	MsgConfirmFailed        = "Failed to confirm booking"
	MsgBookingFailed        = "Booking failed"
	MsgSubmissionInProgress = "Booking submission already in progress"
)

// stepError carries the message a failed remote step surfaces on the session
type stepError struct {
	msg   string
	cause error
}

func (e *stepError) Error() string { return e.msg }

func (e *stepError) Unwrap() error { return e.cause }

// callFailed builds the error for a remote call that returned an error. The
// call's own message wins over the generic fallback.
func callFailed(err error, fallback string) error {
	msg := err.Error()
	if msg == "" {
		msg = fallback
	}
	return &stepError{msg: msg, cause: err}
}

// resultFailed builds the error for a remote call that reported failure
func resultFailed(reported, fallback string) error {
	if reported == "" {
		reported = fallback
	}
	return &stepError{msg: reported}
}

// failureMessage maps a saga failure to the message stored on the session
func failureMessage(err error) string {
	var se *stepError
	if errors.As(err, &se) {
		return se.msg
	}
	return MsgBookingFailed
}
