package database

import (
	"testing"

	"github.com/databayt/mkan-sub001/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestBookingState_AcceptsPayment(t *testing.T) {
	tests := []struct {
		name    string
		status  models.BookingStatus
		payment models.PaymentStatus
		want    bool
	}{
		{"pending unpaid", models.BookingStatusPending, models.PaymentStatusUnpaid, true},
		{"pending after decline", models.BookingStatusPending, models.PaymentStatusFailed, true},
		{"pending cash", models.BookingStatusPending, models.PaymentStatusDueOnBoarding, true},
		{"pending paid", models.BookingStatusPending, models.PaymentStatusPaid, false},
		{"expired", models.BookingStatusExpired, models.PaymentStatusUnpaid, false},
		{"cancelled", models.BookingStatusCancelled, models.PaymentStatusFailed, false},
		{"confirmed", models.BookingStatusConfirmed, models.PaymentStatusPaid, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := BookingState{Status: tt.status, PaymentStatus: tt.payment}
			assert.Equal(t, tt.want, s.AcceptsPayment())
		})
	}
}

func TestBookingState_Releasable(t *testing.T) {
	tests := []struct {
		name    string
		status  models.BookingStatus
		payment models.PaymentStatus
		want    bool
	}{
		{"pending unpaid", models.BookingStatusPending, models.PaymentStatusUnpaid, true},
		{"pending after decline", models.BookingStatusPending, models.PaymentStatusFailed, true},
		{"pending paid", models.BookingStatusPending, models.PaymentStatusPaid, false},
		{"pending cash", models.BookingStatusPending, models.PaymentStatusDueOnBoarding, false},
		{"cancelled", models.BookingStatusCancelled, models.PaymentStatusUnpaid, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := BookingState{Status: tt.status, PaymentStatus: tt.payment}
			assert.Equal(t, tt.want, s.Releasable())
		})
	}
}
