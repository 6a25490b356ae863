package model

import "time"

// ShowSession schedules a show into a dome at a given time.  Show and Dome
// are populated by read queries that join the referenced rows; SoldTickets
// is the number of tickets referencing the session at read time.
type ShowSession struct {
	ID              uint64          `json:"id"`
	AstronomyShowID uint64          `json:"astronomy_show"`
	DomeID          uint64          `json:"planetarium_dome"`
	ShowTime        time.Time       `json:"show_time"`
	Show            AstronomyShow   `json:"-"`
	Dome            PlanetariumDome `json:"-"`
	SoldTickets     int             `json:"-"`
}

// TicketsAvailable returns the dome capacity minus the tickets sold for
// this session.  It is derived on every call and never stored.
func (s ShowSession) TicketsAvailable() int {
	return s.Dome.Capacity() - s.SoldTickets
}
