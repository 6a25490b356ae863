package model

// ShowTheme is a catalogue tag such as "Solar system" or "Black holes".
// Names are unique across the catalogue.
type ShowTheme struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}
