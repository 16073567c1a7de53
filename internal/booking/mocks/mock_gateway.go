package mocks

import (
	"context"

	"github.com/databayt/mkan-sub001/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockGateway is a mock implementation of booking.Gateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateBooking(ctx context.Context, req models.CreateBookingRequest) (*models.CreateBookingResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CreateBookingResult), args.Error(1)
}

func (m *MockGateway) ProcessPayment(ctx context.Context, req models.ProcessPaymentRequest, method models.PaymentMethod) (*models.PaymentResult, error) {
	args := m.Called(ctx, req, method)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentResult), args.Error(1)
}

func (m *MockGateway) ConfirmBooking(ctx context.Context, bookingID int64) (*models.ConfirmBookingResult, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ConfirmBookingResult), args.Error(1)
}

// MockCompensator is a mock implementation of booking.Compensator
type MockCompensator struct {
	mock.Mock
}

func (m *MockCompensator) CancelBooking(ctx context.Context, bookingID int64, reason string) error {
	args := m.Called(ctx, bookingID, reason)
	return args.Error(0)
}

func (m *MockCompensator) FlagForFollowUp(ctx context.Context, bookingID int64, reason string) error {
	args := m.Called(ctx, bookingID, reason)
	return args.Error(0)
}
