package models

import "time"

// Trip represents a scheduled departure of a bus on a route
type Trip struct {
	ID             int64     `json:"id"`
	RouteName      string    `json:"routeName"`
	Origin         string    `json:"origin"`
	Destination    string    `json:"destination"`
	DepartureTime  time.Time `json:"departureTime"`
	ArrivalTime    time.Time `json:"arrivalTime"`
	BusPlate       string    `json:"busPlate"`
	TotalSeats     int       `json:"totalSeats"`
	AvailableSeats int       `json:"availableSeats"`
	Price          float64   `json:"price"`
	Currency       string    `json:"currency"`
}

// Seat represents one physical seat on one trip
type Seat struct {
	ID         int64      `json:"id"`
	TripID     int64      `json:"tripId"`
	SeatNumber string     `json:"seatNumber"`
	Row        int        `json:"row"`
	Column     int        `json:"column"`
	Class      *string    `json:"class,omitempty"`
	Status     SeatStatus `json:"status"`
}

type SeatStatus string

const (
	SeatStatusAvailable SeatStatus = "available"
	SeatStatusReserved  SeatStatus = "reserved"
	SeatStatusBooked    SeatStatus = "booked"
	SeatStatusBlocked   SeatStatus = "blocked"
)

// Selectable reports whether a seat can be picked by a passenger
func (s SeatStatus) Selectable() bool {
	return s == SeatStatusAvailable
}
