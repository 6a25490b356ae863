package model

// PlanetariumDome describes a physical venue.  Seats are addressed by a
// 1-based (row, seat) pair inside a Rows x SeatsInRow grid.
type PlanetariumDome struct {
	ID         uint64 `json:"id"`
	Name       string `json:"name"`
	Rows       int    `json:"rows"`
	SeatsInRow int    `json:"seats_in_row"`
}

// Capacity is the total number of seats in the dome.
func (d PlanetariumDome) Capacity() int {
	return d.Rows * d.SeatsInRow
}
