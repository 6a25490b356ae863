package model

// Ticket claims one seat of a session on behalf of a reservation.  The
// triple (ShowSessionID, Row, Seat) is unique across all tickets.
type Ticket struct {
	ID            uint64 `json:"id"`
	Row           int    `json:"row"`
	Seat          int    `json:"seat"`
	ShowSessionID uint64 `json:"show_session"`
	ReservationID uint64 `json:"-"`
}
