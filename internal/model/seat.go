package model

// Seat is a (row, seat) coordinate inside a dome.  Both parts are 1-based.
type Seat struct {
	Row  int `json:"row"`
	Seat int `json:"seat"`
}
