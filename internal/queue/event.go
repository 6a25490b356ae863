// Package queue carries reservation events over RabbitMQ.  Publishing is
// best effort: a broker outage never fails the reservation that produced
// the event.
package queue

import (
	"time"

	"github.com/iliyamo/planetarium-reservation/internal/model"
)

// Event types.
const (
	ReservationCreated   = "reservation.created"
	ReservationCancelled = "reservation.cancelled"
)

// ReservationEvent is published after a reservation commits or is
// cancelled.  It carries enough for consumers to log or notify without
// querying the primary database.
type ReservationEvent struct {
	Type          string        `json:"type"`
	ReservationID uint64        `json:"reservation_id"`
	UserID        uint64        `json:"user_id"`
	Tickets       []EventTicket `json:"tickets,omitempty"`
	OccurredAt    string        `json:"occurred_at"`
}

// EventTicket is one seat in a ReservationEvent.
type EventTicket struct {
	ShowSessionID uint64 `json:"show_session"`
	Row           int    `json:"row"`
	Seat          int    `json:"seat"`
}

// NewReservationEvent builds an event of type typ for res.
func NewReservationEvent(typ string, res model.Reservation, at time.Time) ReservationEvent {
	ev := ReservationEvent{
		Type:          typ,
		ReservationID: res.ID,
		UserID:        res.UserID,
		OccurredAt:    at.UTC().Format(time.RFC3339),
	}
	for _, t := range res.Tickets {
		ev.Tickets = append(ev.Tickets, EventTicket{ShowSessionID: t.ShowSessionID, Row: t.Row, Seat: t.Seat})
	}
	return ev
}
