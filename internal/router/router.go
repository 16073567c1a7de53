package router

import (
	"net/http"

	"github.com/databayt/mkan-sub001/internal/handlers"
	"github.com/gorilla/mux"
)

// SetupRouter creates and configures the HTTP router. Middleware runs in the
// order given, outermost first, on every route.
func SetupRouter(h *handlers.Handler, middleware ...mux.MiddlewareFunc) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware...)

	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	// API routes
	api := r.PathPrefix("/api").Subrouter()
	api.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	// Trips
	api.HandleFunc("/trips", h.GetTrips).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/trips/{id:[0-9]+}", h.GetTrip).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/trips/{id:[0-9]+}/seats", h.GetTripSeats).Methods(http.MethodGet, http.MethodOptions)

	// WebSocket for live seat updates
	api.HandleFunc("/trips/{id:[0-9]+}/ws", h.WatchTrip).Methods(http.MethodGet)

	// Booking sessions
	api.HandleFunc("/sessions", h.CreateSession).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/sessions/{id}", h.GetSession).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/sessions/{id}", h.DeleteSession).Methods(http.MethodDelete, http.MethodOptions)
	api.HandleFunc("/sessions/{id}/trip", h.SelectTrip).Methods(http.MethodPut, http.MethodOptions)
	api.HandleFunc("/sessions/{id}/seats", h.ClearSeats).Methods(http.MethodDelete, http.MethodOptions)
	api.HandleFunc("/sessions/{id}/seats/{seat}", h.SelectSeat).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/sessions/{id}/seats/{seat}", h.DeselectSeat).Methods(http.MethodDelete, http.MethodOptions)
	api.HandleFunc("/sessions/{id}/refresh", h.RefreshSeats).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/sessions/{id}/passenger", h.SetPassenger).Methods(http.MethodPut, http.MethodOptions)
	api.HandleFunc("/sessions/{id}/payment-method", h.SetPaymentMethod).Methods(http.MethodPut, http.MethodOptions)
	api.HandleFunc("/sessions/{id}/submit", h.Submit).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/sessions/{id}/reset", h.Reset).Methods(http.MethodPost, http.MethodOptions)

	// Bookings
	api.HandleFunc("/bookings/{id:[0-9]+}", h.GetBooking).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/bookings/{id:[0-9]+}/payment-window", h.GetPaymentWindow).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/bookings/{id:[0-9]+}/confirm", h.ConfirmBooking).Methods(http.MethodPost, http.MethodOptions)

	// Health check
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	return r
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, `{"error":"Not found"}`)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, `{"error":"Method not allowed"}`)
}

func writeError(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}
