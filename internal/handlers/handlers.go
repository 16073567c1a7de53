package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/databayt/mkan-sub001/internal/booking"
	"github.com/databayt/mkan-sub001/internal/database"
	"github.com/databayt/mkan-sub001/internal/models"
	"github.com/databayt/mkan-sub001/internal/service"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// BookingService is the read side of the booking API
type BookingService interface {
	ListTrips(ctx context.Context) ([]models.Trip, error)
	GetTrip(ctx context.Context, id int64) (*models.Trip, error)
	GetTripSeats(ctx context.Context, tripID int64) ([]models.Seat, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	GetPaymentWindow(ctx context.Context, bookingID int64) (*models.PaymentWindowState, error)
	ConfirmCashBooking(ctx context.Context, bookingID int64) (*models.Booking, error)
}

// SeatWatchers serves live seat updates for a trip
type SeatWatchers interface {
	ServeWS(w http.ResponseWriter, r *http.Request, tripID int64)
}

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers for the API
type Handler struct {
	bookingService BookingService
	sessions       *booking.Manager
	watchers       SeatWatchers
	pinger         Pinger
	logger         *zap.Logger
}

// Option configures a Handler
type Option func(*Handler)

func WithSeatWatchers(w SeatWatchers) Option {
	return func(h *Handler) { h.watchers = w }
}

func WithPinger(p Pinger) Option {
	return func(h *Handler) { h.pinger = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// NewHandler creates a new Handler instance
func NewHandler(bookingService BookingService, sessions *booking.Manager, opts ...Option) *Handler {
	h := &Handler{
		bookingService: bookingService,
		sessions:       sessions,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.Named("http")
	return h
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps errors of the booking service and the session
// layer to status codes
func (h *Handler) respondServiceError(w http.ResponseWriter, err error, notFound string) {
	switch {
	case errors.Is(err, database.ErrNotFound), errors.Is(err, service.ErrNoPaymentWindow):
		respondError(w, http.StatusNotFound, notFound)
	case errors.Is(err, booking.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "Session not found")
	case errors.Is(err, booking.ErrSubmissionInProgress):
		respondError(w, http.StatusConflict, booking.MsgSubmissionInProgress)
	case errors.Is(err, booking.ErrNoTrip):
		respondError(w, http.StatusConflict, "No trip selected")
	case errors.Is(err, booking.ErrInvalidPaymentMethod):
		respondError(w, http.StatusBadRequest, "Invalid payment method")
	case errors.Is(err, service.ErrNotCashBooking), errors.Is(err, database.ErrInvalidTransition):
		respondError(w, http.StatusConflict, "Booking cannot be confirmed")
	default:
		h.logger.Error("Request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	return id, err == nil && id > 0
}

// GetTrips handles GET /api/trips
func (h *Handler) GetTrips(w http.ResponseWriter, r *http.Request) {
	trips, err := h.bookingService.ListTrips(r.Context())
	if err != nil {
		h.respondServiceError(w, err, "")
		return
	}
	if trips == nil {
		trips = []models.Trip{}
	}
	respondJSON(w, http.StatusOK, trips)
}

// GetTrip handles GET /api/trips/{id}
func (h *Handler) GetTrip(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid trip ID")
		return
	}
	trip, err := h.bookingService.GetTrip(r.Context(), tripID)
	if err != nil {
		h.respondServiceError(w, err, "Trip not found")
		return
	}
	respondJSON(w, http.StatusOK, trip)
}

// GetTripSeats handles GET /api/trips/{id}/seats
func (h *Handler) GetTripSeats(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid trip ID")
		return
	}
	seats, err := h.bookingService.GetTripSeats(r.Context(), tripID)
	if err != nil {
		h.respondServiceError(w, err, "Trip not found")
		return
	}
	respondJSON(w, http.StatusOK, seats)
}

// WatchTrip handles GET /api/trips/{id}/ws
func (h *Handler) WatchTrip(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid trip ID")
		return
	}
	if h.watchers == nil {
		respondError(w, http.StatusServiceUnavailable, "Live seat updates are not available")
		return
	}
	h.watchers.ServeWS(w, r, tripID)
}

// GetBooking handles GET /api/bookings/{id}
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid booking ID")
		return
	}
	b, err := h.bookingService.GetBooking(r.Context(), bookingID)
	if err != nil {
		h.respondServiceError(w, err, "Booking not found")
		return
	}
	respondJSON(w, http.StatusOK, b)
}

// GetPaymentWindow handles GET /api/bookings/{id}/payment-window
func (h *Handler) GetPaymentWindow(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid booking ID")
		return
	}
	state, err := h.bookingService.GetPaymentWindow(r.Context(), bookingID)
	if err != nil {
		h.respondServiceError(w, err, "Payment window not found")
		return
	}

	var remainingSeconds int
	if !state.Closed {
		if remaining := time.Until(state.ExpiresAt); remaining > 0 {
			remainingSeconds = int(remaining.Seconds())
		}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"window":           state,
		"remainingSeconds": remainingSeconds,
	})
}

// ConfirmBooking handles POST /api/bookings/{id}/confirm, the boarding
// confirmation of a cash-on-arrival booking
func (h *Handler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid booking ID")
		return
	}
	b, err := h.bookingService.ConfirmCashBooking(r.Context(), bookingID)
	if err != nil {
		h.respondServiceError(w, err, "Booking not found")
		return
	}
	respondJSON(w, http.StatusOK, b)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.pinger.Ping(ctx); err != nil {
			h.logger.Warn("Health check failed", zap.Error(err))
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"time":   time.Now().Format(time.RFC3339),
			})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
