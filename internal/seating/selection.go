package seating

import (
	"sort"

	"github.com/databayt/mkan-sub001/internal/models"
)

// MaxSeats is the largest number of seats a passenger can pick in one booking
const MaxSeats = 5

// Selection tracks the seats picked on a single trip against a point-in-time
// snapshot of that trip's seat list. Seat statuses come from the snapshot and
// are never changed here.
//
// Selection is not safe for concurrent use; the booking session serialises
// access to it.
type Selection struct {
	seats    map[string]models.Seat
	order    []string
	selected []string
}

// SeatView is a seat annotated with its derived selection state
type SeatView struct {
	models.Seat
	Selected  bool `json:"selected"`
	Clickable bool `json:"clickable"`
}

// New creates an empty selection over a seat snapshot
func New(seats []models.Seat) *Selection {
	s := &Selection{}
	s.setSeats(seats)
	return s
}

func (s *Selection) setSeats(seats []models.Seat) {
	s.seats = make(map[string]models.Seat, len(seats))
	s.order = make([]string, 0, len(seats))
	for _, seat := range seats {
		if _, dup := s.seats[seat.SeatNumber]; !dup {
			s.order = append(s.order, seat.SeatNumber)
		}
		s.seats[seat.SeatNumber] = seat
	}
}

// Select appends a seat to the selection. It is a no-op when the seat is
// already selected, the selection is full, or the seat is unknown or not
// available in the snapshot. It reports whether the selection changed.
func (s *Selection) Select(seatNumber string) bool {
	if s.IsSelected(seatNumber) || s.Full() {
		return false
	}
	seat, ok := s.seats[seatNumber]
	if !ok || !seat.Status.Selectable() {
		return false
	}
	s.selected = append(s.selected, seatNumber)
	return true
}

// Deselect removes a seat, keeping the order of the remaining ones
func (s *Selection) Deselect(seatNumber string) bool {
	for i, n := range s.selected {
		if n == seatNumber {
			s.selected = append(s.selected[:i:i], s.selected[i+1:]...)
			return true
		}
	}
	return false
}

// Toggle deselects a selected seat and selects any other one
func (s *Selection) Toggle(seatNumber string) bool {
	if s.IsSelected(seatNumber) {
		return s.Deselect(seatNumber)
	}
	return s.Select(seatNumber)
}

// Clear empties the selection
func (s *Selection) Clear() {
	s.selected = nil
}

// Selected returns the selected seat numbers in selection order
func (s *Selection) Selected() []string {
	out := make([]string, len(s.selected))
	copy(out, s.selected)
	return out
}

// Len returns the number of selected seats
func (s *Selection) Len() int {
	return len(s.selected)
}

// Full reports whether the selection reached MaxSeats
func (s *Selection) Full() bool {
	return len(s.selected) >= MaxSeats
}

// IsSelected reports whether a seat number is in the selection
func (s *Selection) IsSelected(seatNumber string) bool {
	for _, n := range s.selected {
		if n == seatNumber {
			return true
		}
	}
	return false
}

// Clickable reports whether a seat can be interacted with right now. A seat
// that is not available is never clickable.
func (s *Selection) Clickable(seat models.Seat) bool {
	if !seat.Status.Selectable() {
		return false
	}
	return s.IsSelected(seat.SeatNumber) || !s.Full()
}

// Seat looks up a seat of the snapshot by number
func (s *Selection) Seat(seatNumber string) (models.Seat, bool) {
	seat, ok := s.seats[seatNumber]
	return seat, ok
}

// Refresh swaps in a new seat snapshot and drops selected seats that are no
// longer available. The dropped seat numbers are returned.
func (s *Selection) Refresh(seats []models.Seat) []string {
	s.setSeats(seats)

	var dropped []string
	kept := s.selected[:0:0]
	for _, n := range s.selected {
		seat, ok := s.seats[n]
		if ok && seat.Status.Selectable() {
			kept = append(kept, n)
			continue
		}
		dropped = append(dropped, n)
	}
	s.selected = kept
	return dropped
}

// Grid groups the snapshot by row, ordered by row then column
func (s *Selection) Grid() [][]SeatView {
	views := make([]SeatView, 0, len(s.order))
	for _, n := range s.order {
		seat := s.seats[n]
		views = append(views, SeatView{
			Seat:      seat,
			Selected:  s.IsSelected(n),
			Clickable: s.Clickable(seat),
		})
	}
	sort.SliceStable(views, func(i, j int) bool {
		if views[i].Row != views[j].Row {
			return views[i].Row < views[j].Row
		}
		return views[i].Column < views[j].Column
	})

	var grid [][]SeatView
	for i, v := range views {
		if i == 0 || v.Row != views[i-1].Row {
			grid = append(grid, nil)
		}
		grid[len(grid)-1] = append(grid[len(grid)-1], v)
	}
	return grid
}
