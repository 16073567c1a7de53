package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/databayt/mkan-sub001/internal/models"
	"go.uber.org/zap"
)

// MessageType represents the type of WebSocket message
type MessageType string

const (
	MessageTypeSeatsUpdated     MessageType = "seats_updated"
	MessageTypeSeatConflict     MessageType = "seat_conflict"
	MessageTypeBookingConfirmed MessageType = "booking_confirmed"
	MessageTypeBookingExpired   MessageType = "booking_expired"
	MessageTypeBookingCancelled MessageType = "booking_cancelled"
)

// SeatUpdate represents a seat status change
type SeatUpdate struct {
	SeatNumber string            `json:"seatNumber"`
	Status     models.SeatStatus `json:"status"`
}

// Message represents a WebSocket message
type Message struct {
	Type             MessageType  `json:"type"`
	TripID           int64        `json:"tripId"`
	Seats            []SeatUpdate `json:"seats,omitempty"`
	BookingReference string       `json:"bookingReference,omitempty"`
	Message          string       `json:"message,omitempty"`
	Timestamp        int64        `json:"timestamp"`
}

// Hub fans seat changes out to the clients watching each trip
type Hub struct {
	clients    map[int64]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	done       chan struct{}
	origins    []string
	logger     *zap.Logger
	mu         sync.RWMutex
}

// NewHub creates a new Hub. An empty origin list accepts any origin.
func NewHub(logger *zap.Logger, allowedOrigins ...string) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[int64]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 256),
		done:       make(chan struct{}),
		origins:    allowedOrigins,
		logger:     logger.Named("websocket"),
	}
}

// Run starts the hub's main loop and blocks until ctx is done. All client
// connections are closed on return.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for tripID, clients := range h.clients {
				for client := range clients {
					close(client.send)
				}
				delete(h.clients, tripID)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.tripID] == nil {
				h.clients[client.tripID] = make(map[*Client]bool)
			}
			h.clients[client.tripID][client] = true
			h.logger.Debug("Client registered",
				zap.Int64("trip_id", client.tripID),
				zap.Int("total", len(h.clients[client.tripID])),
			)
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()

		case message := <-h.broadcast:
			data, err := json.Marshal(message)
			if err != nil {
				h.logger.Error("Failed to marshal message", zap.Error(err))
				continue
			}

			h.mu.Lock()
			clients := h.clients[message.TripID]
			h.logger.Debug("Broadcasting",
				zap.String("type", string(message.Type)),
				zap.Int64("trip_id", message.TripID),
				zap.Int("clients", len(clients)),
			)
			for client := range clients {
				select {
				case client.send <- data:
				default:
					// slow client
					h.removeLocked(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.clients[client.tripID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	h.logger.Debug("Client unregistered",
		zap.Int64("trip_id", client.tripID),
		zap.Int("remaining", len(clients)),
	)
	if len(clients) == 0 {
		delete(h.clients, client.tripID)
	}
}

// publish queues a message without blocking the caller. Messages are dropped
// when the queue is full.
func (h *Hub) publish(msg *Message) {
	msg.Timestamp = time.Now().UnixMilli()
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("Broadcast queue full, dropping message",
			zap.String("type", string(msg.Type)),
			zap.Int64("trip_id", msg.TripID),
		)
	}
}

func seatUpdates(seatNumbers []string, status models.SeatStatus) []SeatUpdate {
	seats := make([]SeatUpdate, len(seatNumbers))
	for i, n := range seatNumbers {
		seats[i] = SeatUpdate{SeatNumber: n, Status: status}
	}
	return seats
}

// BroadcastSeatsReserved tells watchers that seats were taken by a new booking
func (h *Hub) BroadcastSeatsReserved(tripID int64, seatNumbers []string) {
	h.publish(&Message{
		Type:   MessageTypeSeatsUpdated,
		TripID: tripID,
		Seats:  seatUpdates(seatNumbers, models.SeatStatusReserved),
	})
}

// BroadcastSeatConflict tells watchers that a seat they may hold in a local
// selection has just been taken
func (h *Hub) BroadcastSeatConflict(tripID int64, seatNumber string) {
	h.publish(&Message{
		Type:    MessageTypeSeatConflict,
		TripID:  tripID,
		Seats:   seatUpdates([]string{seatNumber}, models.SeatStatusReserved),
		Message: "Seat " + seatNumber + " is no longer available",
	})
}

// BroadcastBookingConfirmed tells watchers that reserved seats are now booked
func (h *Hub) BroadcastBookingConfirmed(tripID int64, reference string, seatNumbers []string) {
	h.publish(&Message{
		Type:             MessageTypeBookingConfirmed,
		TripID:           tripID,
		Seats:            seatUpdates(seatNumbers, models.SeatStatusBooked),
		BookingReference: reference,
		Message:          "Seats have been booked",
	})
}

// BroadcastBookingReleased tells watchers that seats are available again
// because a booking was cancelled or expired
func (h *Hub) BroadcastBookingReleased(tripID int64, reference string, seatNumbers []string, expired bool) {
	msg := &Message{
		Type:             MessageTypeBookingCancelled,
		TripID:           tripID,
		Seats:            seatUpdates(seatNumbers, models.SeatStatusAvailable),
		BookingReference: reference,
		Message:          "Booking cancelled - seats are now available",
	}
	if expired {
		msg.Type = MessageTypeBookingExpired
		msg.Message = "Reservation expired - seats are now available"
	}
	h.publish(msg)
}

// ClientCount returns the number of clients watching a trip
func (h *Hub) ClientCount(tripID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[tripID])
}
