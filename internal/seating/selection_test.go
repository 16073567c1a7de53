package seating

import (
	"fmt"
	"testing"

	"github.com/databayt/mkan-sub001/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seatRow builds a row of seats labelled <row letter><column>
func seatRow(row int, columns int, status models.SeatStatus) []models.Seat {
	seats := make([]models.Seat, 0, columns)
	for col := 1; col <= columns; col++ {
		seats = append(seats, models.Seat{
			ID:         int64(row*100 + col),
			TripID:     1,
			SeatNumber: fmt.Sprintf("%c%d", 'A'+rune(row-1), col),
			Row:        row,
			Column:     col,
			Status:     status,
		})
	}
	return seats
}

func testSeats() []models.Seat {
	seats := seatRow(1, 4, models.SeatStatusAvailable)
	seats = append(seats, seatRow(2, 4, models.SeatStatusAvailable)...)
	seats = append(seats,
		models.Seat{ID: 301, SeatNumber: "C1", Row: 3, Column: 1, Status: models.SeatStatusReserved},
		models.Seat{ID: 302, SeatNumber: "C2", Row: 3, Column: 2, Status: models.SeatStatusBooked},
		models.Seat{ID: 303, SeatNumber: "C3", Row: 3, Column: 3, Status: models.SeatStatusBlocked},
		models.Seat{ID: 304, SeatNumber: "C4", Row: 3, Column: 4, Status: models.SeatStatusAvailable},
	)
	return seats
}

func TestSelect_AppendsInSelectionOrder(t *testing.T) {
	sel := New(testSeats())

	assert.True(t, sel.Select("B2"))
	assert.True(t, sel.Select("A1"))
	assert.True(t, sel.Select("C4"))

	assert.Equal(t, []string{"B2", "A1", "C4"}, sel.Selected())
	assert.Equal(t, 3, sel.Len())
}

func TestSelect_CapsAtMaxSeats(t *testing.T) {
	sel := New(testSeats())

	for _, n := range []string{"A1", "A2", "A3", "A4", "B1"} {
		require.True(t, sel.Select(n))
	}
	require.True(t, sel.Full())
	before := sel.Selected()

	assert.False(t, sel.Select("B2"), "sixth seat must be ignored")
	assert.Equal(t, before, sel.Selected())
	assert.Equal(t, MaxSeats, sel.Len())
}

func TestSelect_AlreadySelectedIsNoop(t *testing.T) {
	sel := New(testSeats())
	sel.Select("A1")
	sel.Select("A2")

	assert.False(t, sel.Select("A1"))
	assert.Equal(t, []string{"A1", "A2"}, sel.Selected())
}

func TestSelect_RejectsUnavailableSeats(t *testing.T) {
	tests := []struct {
		name       string
		seatNumber string
	}{
		{name: "reserved", seatNumber: "C1"},
		{name: "booked", seatNumber: "C2"},
		{name: "blocked", seatNumber: "C3"},
		{name: "unknown", seatNumber: "Z9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := New(testSeats())

			assert.False(t, sel.Select(tt.seatNumber))
			assert.Empty(t, sel.Selected())
			assert.False(t, sel.IsSelected(tt.seatNumber))
		})
	}
}

func TestDeselect(t *testing.T) {
	sel := New(testSeats())
	sel.Select("A1")
	sel.Select("A2")
	sel.Select("A3")

	assert.False(t, sel.Deselect("B4"), "deselecting a seat that is not selected is a no-op")
	assert.Equal(t, []string{"A1", "A2", "A3"}, sel.Selected())

	assert.True(t, sel.Deselect("A2"))
	assert.Equal(t, []string{"A1", "A3"}, sel.Selected())
}

func TestDeselect_DoesNotAliasEarlierSnapshots(t *testing.T) {
	sel := New(testSeats())
	sel.Select("A1")
	sel.Select("A2")
	sel.Select("A3")
	snapshot := sel.Selected()

	sel.Deselect("A1")

	assert.Equal(t, []string{"A1", "A2", "A3"}, snapshot)
}

func TestToggleAndClear(t *testing.T) {
	sel := New(testSeats())

	assert.True(t, sel.Toggle("A1"))
	assert.True(t, sel.IsSelected("A1"))
	assert.True(t, sel.Toggle("A1"))
	assert.False(t, sel.IsSelected("A1"))

	sel.Select("A2")
	sel.Select("A3")
	sel.Clear()
	assert.Zero(t, sel.Len())
	assert.Empty(t, sel.Selected())
}

func TestClickable(t *testing.T) {
	sel := New(testSeats())
	for _, n := range []string{"A1", "A2", "A3", "A4"} {
		sel.Select(n)
	}

	a1, _ := sel.Seat("A1")
	b1, _ := sel.Seat("B1")
	c2, _ := sel.Seat("C2")

	assert.True(t, sel.Clickable(b1), "below max every available seat is clickable")
	assert.False(t, sel.Clickable(c2))

	sel.Select("B1")
	b2, _ := sel.Seat("B2")
	assert.True(t, sel.Clickable(a1), "selected seats stay clickable at max")
	assert.False(t, sel.Clickable(b2), "unselected seats are locked at max")
}

func TestRefresh_DropsSeatsThatLostAvailability(t *testing.T) {
	sel := New(testSeats())
	sel.Select("A1")
	sel.Select("A2")
	sel.Select("B1")

	updated := testSeats()
	for i := range updated {
		if updated[i].SeatNumber == "A2" {
			updated[i].Status = models.SeatStatusReserved
		}
	}

	dropped := sel.Refresh(updated)

	assert.Equal(t, []string{"A2"}, dropped)
	assert.Equal(t, []string{"A1", "B1"}, sel.Selected())
}

func TestGrid(t *testing.T) {
	seats := testSeats()
	// shuffle the flat list; the grid must not depend on input order
	seats[0], seats[len(seats)-1] = seats[len(seats)-1], seats[0]
	sel := New(seats)
	sel.Select("A2")

	grid := sel.Grid()

	require.Len(t, grid, 3)
	for r, row := range grid {
		require.Len(t, row, 4)
		for c, view := range row {
			assert.Equal(t, r+1, view.Row)
			assert.Equal(t, c+1, view.Column)
		}
	}
	assert.True(t, grid[0][1].Selected)
	assert.False(t, grid[2][1].Clickable)
	assert.True(t, grid[2][3].Clickable)
}
