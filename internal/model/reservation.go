package model

import "time"

// Reservation is a user's purchase of one or more tickets.  It owns its
// tickets: they are created together and deleted together.
type Reservation struct {
	ID        uint64    `json:"id"`
	UserID    uint64    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	Tickets   []Ticket  `json:"tickets"`
}
