// Package events publishes booking lifecycle events for downstream consumers
// such as notifications and reporting.
package events

import (
	"context"
	"strconv"
	"time"

	"github.com/databayt/mkan-sub001/internal/models"
	"github.com/google/uuid"
)

// Type identifies a booking event
type Type string

const (
	TypeBookingCreated   Type = "booking.created"
	TypeBookingPaid      Type = "booking.paid"
	TypeBookingConfirmed Type = "booking.confirmed"
	TypeBookingCancelled Type = "booking.cancelled"
	TypeBookingExpired   Type = "booking.expired"
	TypeBookingFollowUp  Type = "booking.follow_up"
)

// Event is the payload published for every booking state change
type Event struct {
	ID               string               `json:"id"`
	Type             Type                 `json:"type"`
	BookingID        int64                `json:"bookingId"`
	BookingReference string               `json:"bookingReference,omitempty"`
	TripID           int64                `json:"tripId,omitempty"`
	SeatNumbers      []string             `json:"seatNumbers,omitempty"`
	Status           models.BookingStatus `json:"status,omitempty"`
	PaymentMethod    models.PaymentMethod `json:"paymentMethod,omitempty"`
	PaymentStatus    models.PaymentStatus `json:"paymentStatus,omitempty"`
	TotalAmount      float64              `json:"totalAmount,omitempty"`
	Reason           string               `json:"reason,omitempty"`
	OccurredAt       time.Time            `json:"occurredAt"`
}

// NewEvent builds an event from the current state of a booking
func NewEvent(t Type, b *models.Booking) Event {
	return Event{
		ID:               uuid.New().String(),
		Type:             t,
		BookingID:        b.ID,
		BookingReference: b.BookingReference,
		TripID:           b.TripID,
		SeatNumbers:      b.SeatNumbers,
		Status:           b.Status,
		PaymentMethod:    b.PaymentMethod,
		PaymentStatus:    b.PaymentStatus,
		TotalAmount:      b.TotalAmount,
		Reason:           b.FailureReason,
		OccurredAt:       time.Now().UTC(),
	}
}

// Key partitions events by booking so one booking's events stay ordered
func (e Event) Key() string {
	return strconv.FormatInt(e.BookingID, 10)
}

// Publisher publishes booking events
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close()
}

// NopPublisher drops every event. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func (NopPublisher) Close() {}
