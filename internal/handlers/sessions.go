package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/databayt/mkan-sub001/internal/booking"
	"github.com/databayt/mkan-sub001/internal/models"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// SessionResponse is a booking session together with its id
type SessionResponse struct {
	ID string `json:"id"`
	booking.Snapshot
}

// SelectTripRequest picks the trip a session books on
type SelectTripRequest struct {
	TripID int64 `json:"tripId"`
}

// PaymentMethodRequest sets how the passenger pays
type PaymentMethodRequest struct {
	PaymentMethod string `json:"paymentMethod"`
}

// RefreshSeatsResponse lists the selected seats dropped by a refresh
type RefreshSeatsResponse struct {
	SessionResponse
	Dropped []string `json:"dropped"`
}

func respondSession(w http.ResponseWriter, status int, id string, s *booking.Session) {
	respondJSON(w, status, SessionResponse{ID: id, Snapshot: s.Snapshot()})
}

// loadTrip fetches a trip together with its current seats
func (h *Handler) loadTrip(ctx context.Context, tripID int64) (*models.Trip, []models.Seat, error) {
	trip, err := h.bookingService.GetTrip(ctx, tripID)
	if err != nil {
		return nil, nil, err
	}
	seats, err := h.bookingService.GetTripSeats(ctx, tripID)
	if err != nil {
		return nil, nil, err
	}
	return trip, seats, nil
}

// session resolves the {id} path variable to a live session
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (string, *booking.Session, bool) {
	id := mux.Vars(r)["id"]
	s, err := h.sessions.Get(id)
	if err != nil {
		h.respondServiceError(w, err, "")
		return "", nil, false
	}
	return id, s, true
}

// CreateSession handles POST /api/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req SelectTripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.TripID <= 0 {
		respondError(w, http.StatusBadRequest, "Trip ID is required")
		return
	}

	trip, seats, err := h.loadTrip(r.Context(), req.TripID)
	if err != nil {
		h.respondServiceError(w, err, "Trip not found")
		return
	}

	id, s := h.sessions.Create(*trip, seats)
	h.logger.Debug("Session created", zap.String("session_id", id), zap.Int64("trip_id", trip.ID))
	respondSession(w, http.StatusCreated, id, s)
}

// GetSession handles GET /api/sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, s, ok := h.session(w, r)
	if !ok {
		return
	}
	respondSession(w, http.StatusOK, id, s)
}

// DeleteSession handles DELETE /api/sessions/{id}
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(mux.Vars(r)["id"]); err != nil {
		h.respondServiceError(w, err, "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SelectTrip handles PUT /api/sessions/{id}/trip. Picking a trip clears the
// rest of the session.
func (h *Handler) SelectTrip(w http.ResponseWriter, r *http.Request) {
	id, s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req SelectTripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TripID <= 0 {
		respondError(w, http.StatusBadRequest, "Trip ID is required")
		return
	}

	trip, seats, err := h.loadTrip(r.Context(), req.TripID)
	if err != nil {
		h.respondServiceError(w, err, "Trip not found")
		return
	}
	if err := s.SelectTrip(*trip, seats); err != nil {
		h.respondServiceError(w, err, "")
		return
	}
	respondSession(w, http.StatusOK, id, s)
}

// SelectSeat handles POST /api/sessions/{id}/seats/{seat}
func (h *Handler) SelectSeat(w http.ResponseWriter, r *http.Request) {
	id, s, ok := h.session(w, r)
	if !ok {
		return
	}
	seat := mux.Vars(r)["seat"]

	if _, err := s.SelectSeat(seat); err != nil {
		h.respondServiceError(w, err, "")
		return
	}

	snap := s.Snapshot()
	for _, n := range snap.SelectedSeats {
		if n == seat {
			respondJSON(w, http.StatusOK, SessionResponse{ID: id, Snapshot: snap})
			return
		}
	}
	respondError(w, http.StatusConflict, "Seat "+seat+" cannot be selected")
}

// DeselectSeat handles DELETE /api/sessions/{id}/seats/{seat}
func (h *Handler) DeselectSeat(w http.ResponseWriter, r *http.Request) {
	id, s, ok := h.session(w, r)
	if !ok {
		return
	}
	if _, err := s.DeselectSeat(mux.Vars(r)["seat"]); err != nil {
		h.respondServiceError(w, err, "")
		return
	}
	respondSession(w, http.StatusOK, id, s)
}

// ClearSeats handles DELETE /api/sessions/{id}/seats
func (h *Handler) ClearSeats(w http.ResponseWriter, r *http.Request) {
	id, s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.ClearSeats(); err != nil {
		h.respondServiceError(w, err, "")
		return
	}
	respondSession(w, http.StatusOK, id, s)
}

// RefreshSeats handles POST /api/sessions/{id}/refresh. The session's seat
// map is reloaded and selected seats taken by others are dropped.
func (h *Handler) RefreshSeats(w http.ResponseWriter, r *http.Request) {
	id, s, ok := h.session(w, r)
	if !ok {
		return
	}
	trip := s.Trip()
	if trip == nil {
		respondError(w, http.StatusConflict, "No trip selected")
		return
	}

	seats, err := h.bookingService.GetTripSeats(r.Context(), trip.ID)
	if err != nil {
		h.respondServiceError(w, err, "Trip not found")
		return
	}
	dropped, err := s.RefreshSeats(seats)
	if err != nil {
		h.respondServiceError(w, err, "")
		return
	}
	if dropped == nil {
		dropped = []string{}
	}
	respondJSON(w, http.StatusOK, RefreshSeatsResponse{
		SessionResponse: SessionResponse{ID: id, Snapshot: s.Snapshot()},
		Dropped:         dropped,
	})
}

// SetPassenger handles PUT /api/sessions/{id}/passenger
func (h *Handler) SetPassenger(w http.ResponseWriter, r *http.Request) {
	id, s, ok := h.session(w, r)
	if !ok {
		return
	}

	var info models.PassengerInfo
	if err := json.NewDecoder(r.Body).Decode(&info); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.SetPassenger(info); err != nil {
		h.respondServiceError(w, err, "")
		return
	}
	respondSession(w, http.StatusOK, id, s)
}

// SetPaymentMethod handles PUT /api/sessions/{id}/payment-method
func (h *Handler) SetPaymentMethod(w http.ResponseWriter, r *http.Request) {
	id, s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req PaymentMethodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.SetPaymentMethod(models.PaymentMethod(req.PaymentMethod)); err != nil {
		h.respondServiceError(w, err, "")
		return
	}
	respondSession(w, http.StatusOK, id, s)
}

// Submit handles POST /api/sessions/{id}/submit
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	id, s, ok := h.session(w, r)
	if !ok {
		return
	}

	// the submission outlives a dropped connection
	res := s.Submit(context.WithoutCancel(r.Context()))

	switch {
	case res.Success:
		h.logger.Info("Booking submitted",
			zap.String("session_id", id),
			zap.Int64("booking_id", res.BookingID),
			zap.String("reference", res.BookingReference),
		)
		respondJSON(w, http.StatusOK, res)
	case res.Error == booking.MsgSubmissionInProgress:
		respondJSON(w, http.StatusConflict, res)
	default:
		respondJSON(w, http.StatusUnprocessableEntity, res)
	}
}

// Reset handles POST /api/sessions/{id}/reset
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	id, s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Reset(); err != nil {
		h.respondServiceError(w, err, "")
		return
	}
	respondSession(w, http.StatusOK, id, s)
}
