package model

// AstronomyShow is a programme that can be scheduled into sessions.  A show
// carries any number of themes; Image is an opaque reference managed by an
// external asset store and may be nil.
type AstronomyShow struct {
	ID          uint64      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Themes      []ShowTheme `json:"show_theme"`
	Image       *string     `json:"image"`
}

// ThemeNames returns the names of the show's themes in stored order.
func (s AstronomyShow) ThemeNames() []string {
	names := make([]string, 0, len(s.Themes))
	for _, t := range s.Themes {
		names = append(names, t.Name)
	}
	return names
}
