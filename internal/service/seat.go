package service

import "github.com/iliyamo/planetarium-reservation/internal/model"

// ValidateSeat checks that (row, seat) lies inside the dome grid.  Rows are
// checked before seats, so a ticket wrong in both reports the row.
func ValidateSeat(row, seat int, dome model.PlanetariumDome) error {
	checks := []struct {
		field string
		value int
		limit string
		max   int
	}{
		{"row", row, "rows", dome.Rows},
		{"seat", seat, "seats_in_row", dome.SeatsInRow},
	}
	for _, c := range checks {
		if c.value < 1 || c.value > c.max {
			return &OutOfBoundsError{Field: c.field, Value: c.value, Limit: c.limit, Max: c.max}
		}
	}
	return nil
}
