package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomeCapacity(t *testing.T) {
	tests := []struct {
		rows, seats, want int
	}{
		{10, 10, 100},
		{1, 1, 1},
		{7, 13, 91},
	}
	for _, tt := range tests {
		d := PlanetariumDome{Rows: tt.rows, SeatsInRow: tt.seats}
		assert.Equal(t, tt.want, d.Capacity())
	}
}

func TestShowSessionTicketsAvailable(t *testing.T) {
	s := ShowSession{Dome: PlanetariumDome{Rows: 10, SeatsInRow: 10}}
	assert.Equal(t, 100, s.TicketsAvailable())

	s.SoldTickets = 1
	assert.Equal(t, 99, s.TicketsAvailable())

	s.SoldTickets = 100
	assert.Equal(t, 0, s.TicketsAvailable())
}

func TestAstronomyShowThemeNames(t *testing.T) {
	s := AstronomyShow{Themes: []ShowTheme{{ID: 2, Name: "Galaxies"}, {ID: 1, Name: "Comets"}}}
	assert.Equal(t, []string{"Galaxies", "Comets"}, s.ThemeNames())
	assert.Empty(t, AstronomyShow{}.ThemeNames())
}
